package authapi

import (
	"time"

	"pedeai/cmd/identity"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	FullName string `json:"full_name" validate:"required,min=3,max=200"`
	CPFCNPJ  string `json:"cpf_cnpj" validate:"required,max=18,cpf_cnpj"`
	Phone    string `json:"phone" validate:"required,min=10,max=32"`
	Address  string `json:"address" validate:"required,min=5,max=500"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// UserResponse is the public view of a profile.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	CPFCNPJ   *string   `json:"cpf_cnpj"`
	Phone     *string   `json:"phone"`
	Address   *string   `json:"address"`
	Plan      string    `json:"plan"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginResponse carries the issued token and the user it was issued for.
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// UserEnvelope wraps a single user (register and me responses).
type UserEnvelope struct {
	User UserResponse `json:"user"`
}

func toUserResponse(p identity.Profile) UserResponse {
	return UserResponse{
		ID:        p.ID,
		Email:     p.Email,
		FullName:  p.FullName,
		CPFCNPJ:   p.CPFCNPJ,
		Phone:     p.Phone,
		Address:   p.Address,
		Plan:      p.Plan,
		AvatarURL: p.AvatarURL,
		CreatedAt: p.CreatedAt,
	}
}
