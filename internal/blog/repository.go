package blog

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Akanshu-Shrivastava/blogging-platform/internal/category"
	"github.com/lib/pq"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db}
}

const selectColumns = `b.id, b.title, b.content, b.excerpt, b.slug, b.author, b.cover_image, b.likes, b.categories, b.tags, b.published, b.created_at, b.updated_at, u.id, u.name, u.avatar`

func (r *Repository) Create(b BlogPost) error {
	_, err := r.db.Exec(
		`INSERT INTO blogs (id, title, content, excerpt, slug, author, cover_image, likes, categories, tags, published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		b.ID, b.Title, b.Content, b.Excerpt, b.Slug, b.AuthorID, b.CoverImage,
		pq.Array(b.Likes), pq.Array(b.CategoryIDs), pq.Array(b.Tags), b.Published, b.CreatedAt, b.UpdatedAt,
	)
	return err
}

func (r *Repository) GetByID(id string) (*BlogPost, error) {
	row := r.db.QueryRow(`SELECT `+selectColumns+` FROM blogs b LEFT JOIN users u ON u.id = b.author WHERE b.id = $1`, id)
	b, err := scanPost(row)
	if err != nil {
		return nil, err
	}
	if err := r.populateCategories([]*BlogPost{b}); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *Repository) GetBySlug(slug string) (*BlogPost, error) {
	row := r.db.QueryRow(`SELECT `+selectColumns+` FROM blogs b LEFT JOIN users u ON u.id = b.author WHERE b.slug = $1`, slug)
	b, err := scanPost(row)
	if err != nil {
		return nil, err
	}
	if err := r.populateCategories([]*BlogPost{b}); err != nil {
		return nil, err
	}
	return b, nil
}

// List returns posts newest first, populated with the author subset and
// category details.
func (r *Repository) List(opts ListOptions) ([]*BlogPost, error) {
	all := make([]*BlogPost, 0)
	query, args := listQuery(opts)
	rows, err := r.db.Query(query, args...)
	if err == sql.ErrNoRows {
		return all, nil
	}
	if err != nil {
		return all, err
	}
	defer rows.Close()
	for rows.Next() {
		b, err := scanPost(rows)
		if err != nil {
			return all, err
		}
		all = append(all, b)
	}
	if err := rows.Err(); err != nil {
		return all, err
	}
	if err := r.populateCategories(all); err != nil {
		return all, err
	}
	return all, nil
}

// RecentPublished returns up to n published posts, newest first. Used for the
// RSS feed and the sitemap.
func (r *Repository) RecentPublished(n int) ([]*BlogPost, error) {
	return r.List(ListOptions{PublishedOnly: true, Limit: n})
}

func (r *Repository) Update(b BlogPost) error {
	res, err := r.db.Exec(
		`UPDATE blogs SET title = $1, content = $2, excerpt = $3, cover_image = $4, categories = $5, tags = $6, published = $7, updated_at = $8 WHERE id = $9`,
		b.Title, b.Content, b.Excerpt, b.CoverImage, pq.Array(b.CategoryIDs), pq.Array(b.Tags), b.Published, time.Now().UTC(), b.ID,
	)
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

// Delete removes a post and its comments in one transaction. Deleting a post
// never leaves orphaned comments behind.
func (r *Repository) Delete(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM comments WHERE post_id = $1`, id); err != nil {
		tx.Rollback()
		return err
	}
	res, err := tx.Exec(`DELETE FROM blogs WHERE id = $1`, id)
	if err != nil {
		tx.Rollback()
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return err
	}
	if n == 0 {
		tx.Rollback()
		return sql.ErrNoRows
	}
	return tx.Commit()
}

// ToggleLike flips the user's membership in the post's likes set and returns
// the resulting set. The flip is a single conditional update, concurrent
// toggles from the same user cannot interleave a read-modify-write.
func (r *Repository) ToggleLike(id, userID string) ([]string, error) {
	var likes pq.StringArray
	row := r.db.QueryRow(
		`UPDATE blogs SET likes = CASE WHEN $2 = ANY(likes) THEN array_remove(likes, $2) ELSE array_append(likes, $2) END, updated_at = $3
		WHERE id = $1 RETURNING likes`,
		id, userID, time.Now().UTC(),
	)
	if err := row.Scan(&likes); err != nil {
		return nil, err
	}
	return []string(likes), nil
}

func (r *Repository) CountAll() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM blogs`).Scan(&count)
	return count, err
}

func (r *Repository) CountCreatedSince(t time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM blogs WHERE created_at >= $1`, t).Scan(&count)
	return count, err
}

func listQuery(opts ListOptions) (string, []interface{}) {
	query := `SELECT ` + selectColumns + ` FROM blogs b LEFT JOIN users u ON u.id = b.author WHERE 1=1`
	var args []interface{}
	if opts.Search != "" {
		args = append(args, escapeLike(opts.Search))
		query += fmt.Sprintf(` AND (b.title ILIKE '%%' || $%d || '%%' OR b.content ILIKE '%%' || $%d || '%%')`, len(args), len(args))
	}
	if opts.CategoryID != "" {
		args = append(args, opts.CategoryID)
		query += fmt.Sprintf(` AND $%d = ANY(b.categories)`, len(args))
	}
	if opts.PublishedOnly {
		query += ` AND b.published`
	}
	query += ` ORDER BY b.created_at DESC`
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	return query, args
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanPost(row scannable) (*BlogPost, error) {
	var b BlogPost
	var likes, categories, tags pq.StringArray
	var authorID, authorName, authorAvatar sql.NullString
	if err := row.Scan(
		&b.ID, &b.Title, &b.Content, &b.Excerpt, &b.Slug, &b.AuthorID, &b.CoverImage,
		&likes, &categories, &tags, &b.Published, &b.CreatedAt, &b.UpdatedAt,
		&authorID, &authorName, &authorAvatar,
	); err != nil {
		return nil, err
	}
	b.Likes = []string(likes)
	b.CategoryIDs = []string(categories)
	b.Tags = []string(tags)
	b.Categories = make([]category.Category, 0)
	// author row may be gone, reads tolerate the dangling reference
	if authorID.Valid {
		b.Author = &Author{ID: authorID.String, Name: authorName.String, Avatar: authorAvatar.String}
	}
	return &b, nil
}

// populateCategories expands category id references into id+name subsets with
// a single query. Ids with no matching row are skipped.
func (r *Repository) populateCategories(posts []*BlogPost) error {
	idSet := map[string]bool{}
	for _, p := range posts {
		for _, id := range p.CategoryIDs {
			idSet[id] = true
		}
	}
	if len(idSet) == 0 {
		return nil
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	rows, err := r.db.Query(`SELECT id, name, created_at FROM categories WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil && err != sql.ErrNoRows {
		return err
	}
	byID := map[string]category.Category{}
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var c category.Category
			if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
				return err
			}
			byID[c.ID] = c
		}
		if err := rows.Err(); err != nil {
			return err
		}
	}
	attachCategories(posts, byID)
	return nil
}

// attachCategories fills each post's Categories from the id lookup. Ids with
// no entry are dropped, a deleted category never fails a read.
func attachCategories(posts []*BlogPost, byID map[string]category.Category) {
	for _, p := range posts {
		for _, id := range p.CategoryIDs {
			if c, ok := byID[id]; ok {
				p.Categories = append(p.Categories, c)
			}
		}
	}
}

// escapeLike neutralises LIKE wildcards in user-supplied search text so it
// matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
