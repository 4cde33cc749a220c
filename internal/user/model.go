package user

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// DefaultBio is returned on profile reads when the user never set one.
const DefaultBio = "Hey there! I'm passionate about writing, learning new things, and sharing creative ideas."

type User struct {
	ID                 string    `json:"_id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	Password           string    `json:"-"`
	Avatar             string    `json:"avatar,omitempty"`
	Role               string    `json:"role"`
	Bio                string    `json:"bio"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
	CreatedAtHumanised string    `json:"joined,omitempty"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
