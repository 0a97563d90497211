package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tasklane/taskapi/internal/core/domain"
	"github.com/tasklane/taskapi/internal/core/policy"
	"github.com/tasklane/taskapi/internal/core/ports"
	"github.com/tasklane/taskapi/internal/pkg/metrics"
)

const (
	msgTaskNotFound     = "Task not found"
	msgViewTaskDenied   = "You do not have permission to view this task"
	msgModifyTaskDenied = "You do not have permission to modify this task"
	msgDeleteTaskDenied = "You do not have permission to delete this task"
	msgListTasksFailed  = "Error listing tasks"
	msgGetTaskFailed    = "Error fetching task"
	msgCreateTaskFailed = "Error creating task"
	msgUpdateTaskFailed = "Error updating task"
	msgDeleteTaskFailed = "The task could not be deleted"
	minTitleLength      = 3
)

type taskService struct {
	tasks ports.TaskRepository
	log   zerolog.Logger
	now   func() time.Time
}

// NewTaskService returns a TaskService implementation.
func NewTaskService(tasks ports.TaskRepository, log zerolog.Logger) ports.TaskService {
	return &taskService{tasks: tasks, log: log, now: time.Now}
}

// List returns every task for administrators (oldest first) and the
// caller's own tasks otherwise (newest first).
func (s *taskService) List(ctx context.Context, caller domain.Claims) ([]*domain.Task, error) {
	var (
		tasks []*domain.Task
		err   error
	)
	if caller.IsAdmin() {
		tasks, err = s.tasks.List(ctx)
	} else {
		tasks, err = s.tasks.ListByOwner(ctx, caller.UserID)
	}
	if err != nil {
		return nil, domain.Internal(msgListTasksFailed, err)
	}
	return tasks, nil
}

func (s *taskService) Get(ctx context.Context, caller domain.Claims, id int64) (*domain.Task, error) {
	return s.authorized(ctx, caller, id, msgViewTaskDenied, msgGetTaskFailed)
}

func (s *taskService) Create(ctx context.Context, caller domain.Claims, in ports.CreateTaskInput) (*domain.Task, error) {
	if err := validateTitle(&in.Title); err != nil {
		return nil, err
	}

	task := &domain.Task{
		Title:       in.Title,
		Description: in.Description,
		Status:      domain.TaskPending,
		Priority:    domain.PriorityMedium,
		UserID:      caller.UserID,
		IsActive:    true,
		CreatedAt:   s.now().UTC(),
	}
	if in.Status != nil {
		task.Status = *in.Status
	}
	if in.Priority != nil {
		task.Priority = *in.Priority
	}
	if err := validateEnums(task.Status, task.Priority); err != nil {
		return nil, err
	}

	created, err := s.tasks.Create(ctx, task)
	if err != nil {
		return nil, domain.AsError(err, msgCreateTaskFailed)
	}

	metrics.TasksCreatedTotal.WithLabelValues(string(created.Priority)).Inc()
	s.log.Info().Int64("task_id", created.ID).Int64("user_id", caller.UserID).Msg("task created")
	return created, nil
}

func (s *taskService) Update(ctx context.Context, caller domain.Claims, id int64, in ports.UpdateTaskInput) (*domain.Task, error) {
	task, err := s.authorized(ctx, caller, id, msgModifyTaskDenied, msgUpdateTaskFailed)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		if err := validateTitle(in.Title); err != nil {
			return nil, err
		}
		task.Title = *in.Title
	}
	if in.Description != nil {
		task.Description = in.Description
	}
	if in.Status != nil {
		task.Status = *in.Status
	}
	if in.Priority != nil {
		task.Priority = *in.Priority
	}
	if in.IsActive != nil {
		task.IsActive = *in.IsActive
	}
	if err := validateEnums(task.Status, task.Priority); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	task.UpdatedAt = &now

	updated, err := s.tasks.Update(ctx, task)
	if err != nil {
		return nil, domain.AsError(err, msgUpdateTaskFailed)
	}
	if updated == nil {
		return nil, domain.Internal(msgUpdateTaskFailed, fmt.Errorf("update task %d: no rows affected", id))
	}
	return updated, nil
}

func (s *taskService) Delete(ctx context.Context, caller domain.Claims, id int64) error {
	if _, err := s.authorized(ctx, caller, id, msgDeleteTaskDenied, msgDeleteTaskFailed); err != nil {
		return err
	}

	deleted, err := s.tasks.Delete(ctx, id)
	if err != nil {
		return domain.Internal(msgDeleteTaskFailed, err)
	}
	if !deleted {
		return domain.Internal(msgDeleteTaskFailed, fmt.Errorf("delete task %d: no rows affected", id))
	}
	s.log.Info().Int64("task_id", id).Int64("by", caller.UserID).Msg("task deleted")
	return nil
}

// authorized loads the task and applies the ownership policy. A missing
// task is reported before any permission check.
func (s *taskService) authorized(ctx context.Context, caller domain.Claims, id int64, denyMsg, failMsg string) (*domain.Task, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, domain.Internal(failMsg, err)
	}
	if task == nil {
		return nil, domain.NotFound(msgTaskNotFound)
	}
	if !policy.CanAccess(caller.Role, caller.UserID, task.UserID) {
		metrics.AuthzDeniedTotal.WithLabelValues("task").Inc()
		s.log.Warn().Int64("caller_id", caller.UserID).Int64("task_id", id).Msg("task access denied")
		return nil, domain.Forbidden(denyMsg)
	}
	return task, nil
}

func validateTitle(title *string) error {
	if len(strings.TrimSpace(*title)) < minTitleLength {
		return domain.Validation(domain.FieldError{Path: "title", Message: "must be at least 3 characters"})
	}
	return nil
}

func validateEnums(status domain.TaskStatus, priority domain.TaskPriority) error {
	var fields []domain.FieldError
	if !status.Valid() {
		fields = append(fields, domain.FieldError{Path: "status", Message: "must be one of: pending, in_progress, done"})
	}
	if !priority.Valid() {
		fields = append(fields, domain.FieldError{Path: "priority", Message: "must be one of: low, medium, high"})
	}
	if len(fields) > 0 {
		return domain.Validation(fields...)
	}
	return nil
}
