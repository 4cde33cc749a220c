package comment

import "time"

// Commenter is the populated subset of the comment author's user document.
type Commenter struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

type Comment struct {
	ID        string     `json:"_id"`
	PostID    string     `json:"postId"`
	UserID    string     `json:"-"`
	User      *Commenter `json:"user,omitempty"`
	PostTitle string     `json:"postTitle,omitempty"` // filled on admin listings
	Text      string     `json:"text"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}
