package user

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lib/pq"
)

// ErrEmailTaken is returned when a create hits the unique email index.
var ErrEmailTaken = errors.New("user with this email already exists")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db}
}

func (r *Repository) Create(u User) error {
	_, err := r.db.Exec(
		`INSERT INTO users (id, name, email, password, avatar, role, bio, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Name, strings.ToLower(u.Email), u.Password, u.Avatar, u.Role, u.Bio, u.CreatedAt, u.UpdatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrEmailTaken
	}
	return err
}

func (r *Repository) GetByEmail(email string) (User, error) {
	u := User{}
	row := r.db.QueryRow(`SELECT id, name, email, password, avatar, role, bio, created_at, updated_at FROM users WHERE email = $1`, strings.ToLower(email))
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Avatar, &u.Role, &u.Bio, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return u, err
	}
	u.CreatedAtHumanised = humanize.Time(u.CreatedAt.UTC())
	return u, nil
}

func (r *Repository) GetByID(id string) (User, error) {
	u := User{}
	row := r.db.QueryRow(`SELECT id, name, email, password, avatar, role, bio, created_at, updated_at FROM users WHERE id = $1`, id)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Avatar, &u.Role, &u.Bio, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return u, err
	}
	u.CreatedAtHumanised = humanize.Time(u.CreatedAt.UTC())
	return u, nil
}

func (r *Repository) UpdateProfile(id, name, bio string) error {
	_, err := r.db.Exec(`UPDATE users SET name = $1, bio = $2, updated_at = $3 WHERE id = $4`, name, bio, time.Now().UTC(), id)
	return err
}

func (r *Repository) UpdateAvatar(id, avatarURL string) error {
	_, err := r.db.Exec(`UPDATE users SET avatar = $1, updated_at = $2 WHERE id = $3`, avatarURL, time.Now().UTC(), id)
	return err
}

// All returns every user, newest first. Password hashes are not selected.
func (r *Repository) All() ([]User, error) {
	all := make([]User, 0)
	rows, err := r.db.Query(`SELECT id, name, email, avatar, role, bio, created_at, updated_at FROM users ORDER BY created_at DESC`)
	if err == sql.ErrNoRows {
		return all, nil
	}
	if err != nil {
		return all, err
	}
	defer rows.Close()
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Avatar, &u.Role, &u.Bio, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return all, err
		}
		u.CreatedAtHumanised = humanize.Time(u.CreatedAt.UTC())
		all = append(all, u)
	}
	return all, rows.Err()
}

func (r *Repository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM users WHERE id = $1`, id)
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
	err := r.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

func (r *Repository) CountCreatedSince(t time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM users WHERE created_at >= $1`, t).Scan(&count)
	return count, err
}
