package handler

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/Akanshu-Shrivastava/blogging-platform/internal/blog"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/category"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/comment"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/config"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/middleware"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/server"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/tag"
	"github.com/Akanshu-Shrivastava/blogging-platform/internal/user"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
)

var testJwtKey = []byte("test-signing-key")

func testServer(t *testing.T) server.Server {
	t.Helper()
	return server.NewServer(config.Config{
		JwtSigningKey:    testJwtKey,
		TokenExpiryHours: 1,
		Env:              "dev",
		SiteName:         "Blogging Platform",
		SiteHost:         "blog.example.com",
		URLProtocol:      "https://",
	}, nil, mux.NewRouter())
}

func bearer(t *testing.T, u user.User) string {
	t.Helper()
	token, err := middleware.SignUserJWT(u, testJwtKey, time.Hour)
	if err != nil {
		t.Fatalf("sign jwt: %v", err)
	}
	return "Bearer " + token
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hashed)
}

// memUserStore is an in-memory stand-in for the user repository.
type memUserStore struct {
	users map[string]user.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[string]user.User{}}
}

func (s *memUserStore) Create(u user.User) error {
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return user.ErrEmailTaken
		}
	}
	s.users[u.ID] = u
	return nil
}

func (s *memUserStore) GetByEmail(email string) (user.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, sql.ErrNoRows
}

func (s *memUserStore) GetByID(id string) (user.User, error) {
	u, ok := s.users[id]
	if !ok {
		return user.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (s *memUserStore) UpdateProfile(id, name, bio string) error {
	u, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Name = name
	u.Bio = bio
	s.users[id] = u
	return nil
}

func (s *memUserStore) UpdateAvatar(id, avatarURL string) error {
	u, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Avatar = avatarURL
	s.users[id] = u
	return nil
}

func (s *memUserStore) All() ([]user.User, error) {
	all := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		u.Password = ""
		all = append(all, u)
	}
	return all, nil
}

func (s *memUserStore) Delete(id string) error {
	if _, ok := s.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.users, id)
	return nil
}

func (s *memUserStore) CountAll() (int, error) {
	return len(s.users), nil
}

func (s *memUserStore) CountCreatedSince(t time.Time) (int, error) {
	count := 0
	for _, u := range s.users {
		if !u.CreatedAt.Before(t) {
			count++
		}
	}
	return count, nil
}

// memBlogStore keeps posts in insertion order, newest first on List, the
// same ordering the real repository produces.
type memBlogStore struct {
	posts []*blog.BlogPost
}

func (s *memBlogStore) Create(b blog.BlogPost) error {
	s.posts = append(s.posts, &b)
	return nil
}

func (s *memBlogStore) GetByID(id string) (*blog.BlogPost, error) {
	for _, p := range s.posts {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *memBlogStore) GetBySlug(slugVal string) (*blog.BlogPost, error) {
	for _, p := range s.posts {
		if p.Slug == slugVal {
			cp := *p
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *memBlogStore) List(opts blog.ListOptions) ([]*blog.BlogPost, error) {
	out := make([]*blog.BlogPost, 0)
	for i := len(s.posts) - 1; i >= 0; i-- {
		p := s.posts[i]
		if opts.PublishedOnly && !p.Published {
			continue
		}
		if opts.CategoryID != "" && !contains(p.CategoryIDs, opts.CategoryID) {
			continue
		}
		if opts.Search != "" && !containsFold(p.Title, opts.Search) && !containsFold(p.Content, opts.Search) {
			continue
		}
		cp := *p
		out = append(out, &cp)
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

func (s *memBlogStore) RecentPublished(n int) ([]*blog.BlogPost, error) {
	return s.List(blog.ListOptions{PublishedOnly: true, Limit: n})
}

func (s *memBlogStore) Update(b blog.BlogPost) error {
	for i, p := range s.posts {
		if p.ID == b.ID {
			s.posts[i] = &b
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *memBlogStore) Delete(id string) error {
	for i, p := range s.posts {
		if p.ID == id {
			s.posts = append(s.posts[:i], s.posts[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *memBlogStore) ToggleLike(id, userID string) ([]string, error) {
	for _, p := range s.posts {
		if p.ID != id {
			continue
		}
		if contains(p.Likes, userID) {
			next := make([]string, 0, len(p.Likes))
			for _, l := range p.Likes {
				if l != userID {
					next = append(next, l)
				}
			}
			p.Likes = next
		} else {
			p.Likes = append(p.Likes, userID)
		}
		return append([]string{}, p.Likes...), nil
	}
	return nil, sql.ErrNoRows
}

func (s *memBlogStore) CountAll() (int, error) {
	return len(s.posts), nil
}

func (s *memBlogStore) CountCreatedSince(t time.Time) (int, error) {
	count := 0
	for _, p := range s.posts {
		if !p.CreatedAt.Before(t) {
			count++
		}
	}
	return count, nil
}

// memCategoryStore enforces the same normalized unique names as the real
// table.
type memCategoryStore struct {
	categories []category.Category
	counts     map[string]int
}

func (s *memCategoryStore) GetOrCreate(name string) (category.Category, error) {
	normalized := category.Normalize(name)
	for _, c := range s.categories {
		if c.Name == normalized {
			return c, nil
		}
	}
	c := category.Category{
		ID:        fmt.Sprintf("cat-%d", len(s.categories)+1),
		Name:      normalized,
		CreatedAt: time.Now().UTC(),
	}
	s.categories = append(s.categories, c)
	return c, nil
}

func (s *memCategoryStore) Create(name string) (category.Category, error) {
	normalized := category.Normalize(name)
	for _, c := range s.categories {
		if c.Name == normalized {
			return category.Category{}, category.ErrAlreadyExists
		}
	}
	return s.GetOrCreate(name)
}

func (s *memCategoryStore) GetByName(name string) (category.Category, error) {
	normalized := category.Normalize(name)
	for _, c := range s.categories {
		if c.Name == normalized {
			return c, nil
		}
	}
	return category.Category{}, sql.ErrNoRows
}

func (s *memCategoryStore) All() ([]category.Category, error) {
	return append([]category.Category{}, s.categories...), nil
}

func (s *memCategoryStore) WithCounts() ([]category.WithCount, error) {
	out := make([]category.WithCount, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, category.WithCount{Category: c, BlogCount: s.counts[c.ID]})
	}
	return out, nil
}

func (s *memCategoryStore) Delete(id string) error {
	for i, c := range s.categories {
		if c.ID == id {
			s.categories = append(s.categories[:i], s.categories[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *memCategoryStore) CountAll() (int, error) {
	return len(s.categories), nil
}

type memTagStore struct {
	tags []tag.Tag
}

func (s *memTagStore) Create(name string) (tag.Tag, error) {
	normalized := category.Normalize(name)
	for _, t := range s.tags {
		if t.Name == normalized {
			return tag.Tag{}, tag.ErrAlreadyExists
		}
	}
	created := tag.Tag{
		ID:        fmt.Sprintf("tag-%d", len(s.tags)+1),
		Name:      normalized,
		CreatedAt: time.Now().UTC(),
	}
	s.tags = append(s.tags, created)
	return created, nil
}

func (s *memTagStore) All() ([]tag.Tag, error) {
	sorted := append([]tag.Tag{}, s.tags...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return sorted, nil
}

func (s *memTagStore) AllRecent() ([]tag.Tag, error) {
	out := make([]tag.Tag, 0, len(s.tags))
	for i := len(s.tags) - 1; i >= 0; i-- {
		out = append(out, s.tags[i])
	}
	return out, nil
}

func (s *memTagStore) Delete(id string) error {
	for i, t := range s.tags {
		if t.ID == id {
			s.tags = append(s.tags[:i], s.tags[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *memTagStore) CountAll() (int, error) {
	return len(s.tags), nil
}

type memCommentStore struct {
	comments []comment.Comment
}

func (s *memCommentStore) Create(c comment.Comment) error {
	s.comments = append(s.comments, c)
	return nil
}

func (s *memCommentStore) GetByID(id string) (comment.Comment, error) {
	for _, c := range s.comments {
		if c.ID == id {
			return c, nil
		}
	}
	return comment.Comment{}, sql.ErrNoRows
}

func (s *memCommentStore) UpdateText(id, text string) error {
	for i, c := range s.comments {
		if c.ID == id {
			s.comments[i].Text = text
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *memCommentStore) Delete(id string) error {
	for i, c := range s.comments {
		if c.ID == id {
			s.comments = append(s.comments[:i], s.comments[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *memCommentStore) AllForPost(postID string) ([]comment.Comment, error) {
	out := make([]comment.Comment, 0)
	for i := len(s.comments) - 1; i >= 0; i-- {
		if s.comments[i].PostID == postID {
			out = append(out, s.comments[i])
		}
	}
	return out, nil
}

func (s *memCommentStore) All() ([]comment.Comment, error) {
	return append([]comment.Comment{}, s.comments...), nil
}

func (s *memCommentStore) CountAll() (int, error) {
	return len(s.comments), nil
}

// memUploader records uploads and deletions instead of talking to object
// storage.
type memUploader struct {
	uploads  int
	deleted  []string
	failNext bool
}

func (s *memUploader) Upload(ctx context.Context, r io.Reader, size int64, folder, ext, contentType string) (string, error) {
	if s.failNext {
		return "", fmt.Errorf("upload failed")
	}
	s.uploads++
	return fmt.Sprintf("http://storage.local/bucket/%s/obj-%d%s", folder, s.uploads, ext), nil
}

func (s *memUploader) Delete(ctx context.Context, fileURL string) error {
	s.deleted = append(s.deleted, fileURL)
	return nil
}

func contains(list []string, val string) bool {
	for _, v := range list {
		if v == val {
			return true
		}
	}
	return false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func authedRequest(t *testing.T, method, target string, body io.Reader, u user.User) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, target, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", bearer(t, u))
	return req
}
