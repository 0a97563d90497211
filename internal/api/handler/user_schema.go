package handler

import (
	"github.com/tasklane/taskapi/internal/core/domain"
	"github.com/tasklane/taskapi/internal/core/ports"
)

type createUserRequest struct {
	FirstName string `json:"firstName" validate:"min=1"`
	LastName  string `json:"lastName"  validate:"min=1"`
	UserName  string `json:"userName"  validate:"min=3"`
	Email     string `json:"email"     validate:"required,email"`
	Password  string `json:"password"  validate:"min=5,maxbytes=72"`
	UserRole  string `json:"userRole"  validate:"omitempty,oneof=user admin"`
}

func (r createUserRequest) input() ports.CreateUserInput {
	return ports.CreateUserInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		UserName:  r.UserName,
		Email:     r.Email,
		Password:  r.Password,
		Role:      domain.Role(r.UserRole),
	}
}

type updateUserRequest struct {
	FirstName string  `json:"firstName" validate:"min=1"`
	LastName  string  `json:"lastName"  validate:"min=1"`
	UserName  string  `json:"userName"  validate:"min=3"`
	Email     string  `json:"email"     validate:"required,email"`
	Password  string  `json:"password"  validate:"min=5,maxbytes=72"`
	UserRole  *string `json:"userRole"  validate:"omitnil,oneof=user admin"`
	IsActive  *bool   `json:"isActive"`
}

func (r updateUserRequest) input() ports.UpdateUserInput {
	return ports.UpdateUserInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		UserName:  r.UserName,
		Email:     r.Email,
		Password:  r.Password,
		Role:      rolePtr(r.UserRole),
		IsActive:  r.IsActive,
	}
}

type patchUserRequest struct {
	FirstName *string `json:"firstName" validate:"omitnil,min=1"`
	LastName  *string `json:"lastName"  validate:"omitnil,min=1"`
	UserName  *string `json:"userName"  validate:"omitnil,min=3"`
	Email     *string `json:"email"     validate:"omitnil,email"`
	Password  *string `json:"password"  validate:"omitnil,min=6,maxbytes=72"`
	UserRole  *string `json:"userRole"  validate:"omitnil,oneof=user admin"`
	IsActive  *bool   `json:"isActive"`
}

func (r patchUserRequest) input() ports.PatchUserInput {
	return ports.PatchUserInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		UserName:  r.UserName,
		Email:     r.Email,
		Password:  r.Password,
		Role:      rolePtr(r.UserRole),
		IsActive:  r.IsActive,
	}
}

func rolePtr(s *string) *domain.Role {
	if s == nil {
		return nil
	}
	r := domain.Role(*s)
	return &r
}
