package handler

import "github.com/tasklane/taskapi/internal/core/ports"

type registerRequest struct {
	FirstName string `json:"firstName" validate:"min=1"`
	LastName  string `json:"lastName"  validate:"min=1"`
	UserName  string `json:"userName"  validate:"min=3"`
	Email     string `json:"email"     validate:"required,email"`
	Password  string `json:"password"  validate:"min=5,maxbytes=72"`
}

func (r registerRequest) input() ports.RegisterInput {
	return ports.RegisterInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		UserName:  r.UserName,
		Email:     r.Email,
		Password:  r.Password,
	}
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"min=5,maxbytes=72"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}
