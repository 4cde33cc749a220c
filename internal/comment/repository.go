package comment

import (
	"database/sql"
	"time"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db}
}

func (r *Repository) Create(c Comment) error {
	_, err := r.db.Exec(
		`INSERT INTO comments (id, post_id, user_id, text, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.PostID, c.UserID, c.Text, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (r *Repository) GetByID(id string) (Comment, error) {
	c := Comment{}
	var userID, userName, userAvatar sql.NullString
	row := r.db.QueryRow(
		`SELECT c.id, c.post_id, c.user_id, c.text, c.created_at, c.updated_at, u.id, u.name, u.avatar
		FROM comments c LEFT JOIN users u ON u.id = c.user_id WHERE c.id = $1`, id)
	if err := row.Scan(&c.ID, &c.PostID, &c.UserID, &c.Text, &c.CreatedAt, &c.UpdatedAt, &userID, &userName, &userAvatar); err != nil {
		return c, err
	}
	if userID.Valid {
		c.User = &Commenter{ID: userID.String, Name: userName.String, Avatar: userAvatar.String}
	}
	return c, nil
}

func (r *Repository) UpdateText(id, text string) error {
	res, err := r.db.Exec(`UPDATE comments SET text = $1, updated_at = $2 WHERE id = $3`, text, time.Now().UTC(), id)
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

func (r *Repository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM comments WHERE id = $1`, id)
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

// AllForPost returns a post's comments newest first, with the commenter
// subset populated. A deleted commenter renders as a nil user, not an error.
func (r *Repository) AllForPost(postID string) ([]Comment, error) {
	all := make([]Comment, 0)
	rows, err := r.db.Query(
		`SELECT c.id, c.post_id, c.user_id, c.text, c.created_at, c.updated_at, u.id, u.name, u.avatar
		FROM comments c LEFT JOIN users u ON u.id = c.user_id
		WHERE c.post_id = $1 ORDER BY c.created_at DESC`, postID)
	if err == sql.ErrNoRows {
		return all, nil
	}
	if err != nil {
		return all, err
	}
	defer rows.Close()
	for rows.Next() {
		var c Comment
		var userID, userName, userAvatar sql.NullString
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Text, &c.CreatedAt, &c.UpdatedAt, &userID, &userName, &userAvatar); err != nil {
			return all, err
		}
		if userID.Valid {
			c.User = &Commenter{ID: userID.String, Name: userName.String, Avatar: userAvatar.String}
		}
		all = append(all, c)
	}
	return all, rows.Err()
}

// All returns every comment newest first with commenter and post title
// populated, the shape the admin listing serves.
func (r *Repository) All() ([]Comment, error) {
	all := make([]Comment, 0)
	rows, err := r.db.Query(
		`SELECT c.id, c.post_id, c.user_id, c.text, c.created_at, c.updated_at, u.id, u.name, u.avatar, b.title
		FROM comments c
		LEFT JOIN users u ON u.id = c.user_id
		LEFT JOIN blogs b ON b.id = c.post_id
		ORDER BY c.created_at DESC`)
	if err == sql.ErrNoRows {
		return all, nil
	}
	if err != nil {
		return all, err
	}
	defer rows.Close()
	for rows.Next() {
		var c Comment
		var userID, userName, userAvatar, postTitle sql.NullString
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Text, &c.CreatedAt, &c.UpdatedAt, &userID, &userName, &userAvatar, &postTitle); err != nil {
			return all, err
		}
		if userID.Valid {
			c.User = &Commenter{ID: userID.String, Name: userName.String, Avatar: userAvatar.String}
		}
		c.PostTitle = postTitle.String
		all = append(all, c)
	}
	return all, rows.Err()
}

func (r *Repository) CountAll() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM comments`).Scan(&count)
	return count, err
}
