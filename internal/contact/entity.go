// AngelaMos | 2026
// entity.go

package contact

import (
	"time"
)

type Contact struct {
	ID        string    `db:"id"`
	OwnerID   string    `db:"owner_id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Phone     string    `db:"phone"`
	Favorite  bool      `db:"favorite"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Changes is a partial update. Nil fields keep their stored value.
type Changes struct {
	Name     *string
	Email    *string
	Phone    *string
	Favorite *bool
}

func (c Changes) IsEmpty() bool {
	return c.Name == nil && c.Email == nil && c.Phone == nil && c.Favorite == nil
}
