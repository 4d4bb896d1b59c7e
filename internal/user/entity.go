// AngelaMos | 2026
// entity.go

package user

import (
	"time"
)

type User struct {
	ID                string    `db:"id"`
	Email             string    `db:"email"`
	PasswordHash      string    `db:"password_hash"`
	Subscription      string    `db:"subscription"`
	AvatarURL         string    `db:"avatar_url"`
	TokenHash         *string   `db:"token_hash"`
	Verified          bool      `db:"verified"`
	VerificationToken *string   `db:"verification_token"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

const (
	SubscriptionStarter  = "starter"
	SubscriptionPro      = "pro"
	SubscriptionBusiness = "business"
)

func IsValidSubscription(s string) bool {
	switch s {
	case SubscriptionStarter, SubscriptionPro, SubscriptionBusiness:
		return true
	}
	return false
}
