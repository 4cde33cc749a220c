package tag

import (
	"database/sql"
	"errors"
	"time"

	"github.com/Akanshu-Shrivastava/blogging-platform/internal/category"
	"github.com/lib/pq"
	"github.com/segmentio/ksuid"
)

var ErrAlreadyExists = errors.New("tag already exists")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db}
}

func (r *Repository) Create(name string) (Tag, error) {
	t := Tag{}
	normalized := category.Normalize(name)
	if normalized == "" {
		return t, errors.New("tag name is empty")
	}
	k, err := ksuid.NewRandom()
	if err != nil {
		return t, err
	}
	now := time.Now().UTC()
	_, err = r.db.Exec(`INSERT INTO tags (id, name, created_at) VALUES ($1, $2, $3)`, k.String(), normalized, now)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return t, ErrAlreadyExists
	}
	if err != nil {
		return t, err
	}
	t.ID = k.String()
	t.Name = normalized
	t.CreatedAt = now
	return t, nil
}

// All returns the tag vocabulary sorted by name, the order the public
// endpoint serves.
func (r *Repository) All() ([]Tag, error) {
	return r.all(`SELECT id, name, created_at FROM tags ORDER BY name ASC`)
}

// AllRecent returns tags newest first, the order the admin listing uses.
func (r *Repository) AllRecent() ([]Tag, error) {
	return r.all(`SELECT id, name, created_at FROM tags ORDER BY created_at DESC`)
}

func (r *Repository) all(query string) ([]Tag, error) {
	all := make([]Tag, 0)
	rows, err := r.db.Query(query)
	if err == sql.ErrNoRows {
		return all, nil
	}
	if err != nil {
		return all, err
	}
	defer rows.Close()
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return all, err
		}
		all = append(all, t)
	}
	return all, rows.Err()
}

func (r *Repository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM tags WHERE id = $1`, id)
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
	err := r.db.QueryRow(`SELECT COUNT(*) FROM tags`).Scan(&count)
	return count, err
}
