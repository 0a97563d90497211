package handler

import (
	"github.com/tasklane/taskapi/internal/core/domain"
	"github.com/tasklane/taskapi/internal/core/ports"
)

type createTaskRequest struct {
	Title       string  `json:"title"       validate:"min=3"`
	Description *string `json:"description"`
	Status      *string `json:"status"      validate:"omitnil,oneof=pending in_progress done"`
	Priority    *string `json:"priority"    validate:"omitnil,oneof=low medium high"`
}

func (r createTaskRequest) input() ports.CreateTaskInput {
	return ports.CreateTaskInput{
		Title:       r.Title,
		Description: r.Description,
		Status:      statusPtr(r.Status),
		Priority:    priorityPtr(r.Priority),
	}
}

type updateTaskRequest struct {
	Title       *string `json:"title"       validate:"omitnil,min=3"`
	Description *string `json:"description"`
	Status      *string `json:"status"      validate:"omitnil,oneof=pending in_progress done"`
	Priority    *string `json:"priority"    validate:"omitnil,oneof=low medium high"`
	IsActive    *bool   `json:"isActive"`
}

func (r updateTaskRequest) input() ports.UpdateTaskInput {
	return ports.UpdateTaskInput{
		Title:       r.Title,
		Description: r.Description,
		Status:      statusPtr(r.Status),
		Priority:    priorityPtr(r.Priority),
		IsActive:    r.IsActive,
	}
}

func statusPtr(s *string) *domain.TaskStatus {
	if s == nil {
		return nil
	}
	v := domain.TaskStatus(*s)
	return &v
}

func priorityPtr(s *string) *domain.TaskPriority {
	if s == nil {
		return nil
	}
	v := domain.TaskPriority(*s)
	return &v
}
