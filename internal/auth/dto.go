// AngelaMos | 2026
// dto.go

package auth

import (
	"github.com/carterperez-dev/contacts-backend/internal/user"
)

type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,emailpattern,max=255"`
	Password string `json:"password" validate:"required,min=6,passwordbytes"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,emailpattern,max=255"`
	Password string `json:"password" validate:"required,min=6,passwordbytes"`
}

type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,emailpattern,max=255"`
}

type UpdateSubscriptionRequest struct {
	Subscription string `json:"subscription" validate:"required,oneof=starter pro business"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  user.Profile `json:"user"`
}

type AvatarResponse struct {
	AvatarURL string `json:"avatarURL"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
