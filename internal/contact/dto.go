// AngelaMos | 2026
// dto.go

package contact

type CreateContactRequest struct {
	Name     string `json:"name"     validate:"required,min=1,max=100"`
	Email    string `json:"email"    validate:"omitempty,emailpattern,max=255"`
	Phone    string `json:"phone"    validate:"omitempty,max=32"`
	Favorite bool   `json:"favorite"`
}

type UpdateContactRequest struct {
	Name     *string `json:"name,omitempty"     validate:"omitempty,min=1,max=100"`
	Email    *string `json:"email,omitempty"    validate:"omitempty,emailpattern,max=255"`
	Phone    *string `json:"phone,omitempty"    validate:"omitempty,max=32"`
	Favorite *bool   `json:"favorite,omitempty"`
}

func (r UpdateContactRequest) Changes() Changes {
	return Changes{
		Name:     r.Name,
		Email:    r.Email,
		Phone:    r.Phone,
		Favorite: r.Favorite,
	}
}

type UpdateFavoriteRequest struct {
	Favorite *bool `json:"favorite" validate:"required"`
}

// ContactResponse leaves out the timestamps.
type ContactResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Favorite bool   `json:"favorite"`
	Owner    string `json:"owner"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func ToContactResponse(c *Contact) ContactResponse {
	return ContactResponse{
		ID:       c.ID,
		Name:     c.Name,
		Email:    c.Email,
		Phone:    c.Phone,
		Favorite: c.Favorite,
		Owner:    c.OwnerID,
	}
}

func ToContactResponseList(contacts []Contact) []ContactResponse {
	responses := make([]ContactResponse, 0, len(contacts))
	for _, c := range contacts {
		responses = append(responses, ToContactResponse(&c))
	}
	return responses
}
