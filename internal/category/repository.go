package category

import (
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/segmentio/ksuid"
)

// ErrAlreadyExists is returned when a strict create hits the unique name index.
var ErrAlreadyExists = errors.New("category already exists")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db}
}

// GetOrCreate returns the category with the given name, creating it when
// absent. The name is normalized first. The upsert keeps concurrent first use
// from producing duplicates: both writers land on the same row.
func (r *Repository) GetOrCreate(name string) (Category, error) {
	c := Category{}
	normalized := Normalize(name)
	if normalized == "" {
		return c, errors.New("category name is empty")
	}
	k, err := ksuid.NewRandom()
	if err != nil {
		return c, err
	}
	row := r.db.QueryRow(
		`INSERT INTO categories (id, name, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, created_at`,
		k.String(), normalized, time.Now().UTC(),
	)
	if err := row.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
		return c, err
	}
	return c, nil
}

// Create inserts a new category and fails with ErrAlreadyExists when the
// normalized name is already taken. Because names are stored lowercased the
// uniqueness check is case-insensitive by construction.
func (r *Repository) Create(name string) (Category, error) {
	c := Category{}
	normalized := Normalize(name)
	if normalized == "" {
		return c, errors.New("category name is empty")
	}
	k, err := ksuid.NewRandom()
	if err != nil {
		return c, err
	}
	now := time.Now().UTC()
	_, err = r.db.Exec(`INSERT INTO categories (id, name, created_at) VALUES ($1, $2, $3)`, k.String(), normalized, now)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return c, ErrAlreadyExists
	}
	if err != nil {
		return c, err
	}
	c.ID = k.String()
	c.Name = normalized
	c.CreatedAt = now
	return c, nil
}

func (r *Repository) GetByName(name string) (Category, error) {
	c := Category{}
	row := r.db.QueryRow(`SELECT id, name, created_at FROM categories WHERE name = $1`, Normalize(name))
	if err := row.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
		return c, err
	}
	return c, nil
}

// GetByIDs returns the categories matching the given ids. Dangling ids are
// silently skipped so reads tolerate references to deleted categories.
func (r *Repository) GetByIDs(ids []string) ([]Category, error) {
	all := make([]Category, 0)
	if len(ids) == 0 {
		return all, nil
	}
	rows, err := r.db.Query(`SELECT id, name, created_at FROM categories WHERE id = ANY($1)`, pq.Array(ids))
	if err == sql.ErrNoRows {
		return all, nil
	}
	if err != nil {
		return all, err
	}
	defer rows.Close()
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return all, err
		}
		all = append(all, c)
	}
	return all, rows.Err()
}

func (r *Repository) All() ([]Category, error) {
	all := make([]Category, 0)
	rows, err := r.db.Query(`SELECT id, name, created_at FROM categories ORDER BY created_at DESC`)
	if err == sql.ErrNoRows {
		return all, nil
	}
	if err != nil {
		return all, err
	}
	defer rows.Close()
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return all, err
		}
		all = append(all, c)
	}
	return all, rows.Err()
}

// WithCounts returns every category together with the number of blog posts
// whose categories array references it. Zero-count categories are included.
func (r *Repository) WithCounts() ([]WithCount, error) {
	all := make([]WithCount, 0)
	rows, err := r.db.Query(
		`SELECT c.id, c.name, c.created_at, COUNT(b.id)
		FROM categories c
		LEFT JOIN blogs b ON c.id = ANY(b.categories)
		GROUP BY c.id, c.name, c.created_at
		ORDER BY c.created_at DESC`,
	)
	if err == sql.ErrNoRows {
		return all, nil
	}
	if err != nil {
		return all, err
	}
	defer rows.Close()
	for rows.Next() {
		var c WithCount
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.BlogCount); err != nil {
			return all, err
		}
		all = append(all, c)
	}
	return all, rows.Err()
}

// Delete removes a category. Blog posts referencing it keep the dangling id,
// reads skip ids with no matching row.
func (r *Repository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *Repository) CountAll() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM categories`).Scan(&count)
	return count, err
}
