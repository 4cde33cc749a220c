package tag

import "time"

// Tag is an entry in the admin-curated tag vocabulary. Blog posts store their
// tags as plain strings, the registry is a suggestion list, not a foreign key.
type Tag struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}
