package blog

import (
	"time"

	"github.com/Akanshu-Shrivastava/blogging-platform/internal/category"
)

// Author is the populated subset of the post author's user document served on
// read endpoints.
type Author struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

type BlogPost struct {
	ID          string              `json:"_id"`
	Title       string              `json:"title"`
	Content     string              `json:"content"`
	ContentHTML string              `json:"contentHTML,omitempty"`
	Excerpt     string              `json:"excerpt,omitempty"`
	Slug        string              `json:"slug"`
	AuthorID    string              `json:"-"`
	Author      *Author             `json:"author,omitempty"`
	CoverImage  string              `json:"coverImage,omitempty"`
	Likes       []string            `json:"likes"`
	CategoryIDs []string            `json:"-"`
	Categories  []category.Category `json:"categories"`
	Tags        []string            `json:"tags"`
	Published   bool                `json:"published"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// ListOptions narrows List results. Search is a case-insensitive substring
// match over title and content. CategoryID filters posts whose categories
// array contains the id. Limit caps the number of rows when positive.
type ListOptions struct {
	Search        string
	CategoryID    string
	PublishedOnly bool
	Limit         int
}
