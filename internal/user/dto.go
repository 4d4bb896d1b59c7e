// AngelaMos | 2026
// dto.go

package user

// Profile is the public projection of a user. It never carries the
// password hash or any token.
type Profile struct {
	Email        string `json:"email"`
	Subscription string `json:"subscription"`
	AvatarURL    string `json:"avatarURL"`
}

func ToProfile(u *User) Profile {
	return Profile{
		Email:        u.Email,
		Subscription: u.Subscription,
		AvatarURL:    u.AvatarURL,
	}
}

// AvatarSwap is the result of replacing a user's avatar: the updated user
// and the value it replaced.
type AvatarSwap struct {
	User     *User
	Previous string
}
