package category

import (
	"strings"
	"time"
)

type Category struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// WithCount is a category together with the number of blog posts referencing
// it. Categories with no posts carry a zero count, they are never omitted.
type WithCount struct {
	Category
	BlogCount int `json:"blogCount"`
}

// Normalize applies the single canonical naming rule for categories and tags:
// trim surrounding whitespace and lowercase.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
