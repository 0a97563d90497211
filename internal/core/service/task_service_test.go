package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tasklane/taskapi/internal/core/domain"
	"github.com/tasklane/taskapi/internal/core/ports"
)

func newTaskSvc(repo *stubTaskRepo) ports.TaskService {
	return NewTaskService(repo, zerolog.Nop())
}

func seededTasks() *stubTaskRepo {
	return newStubTaskRepo(
		&domain.Task{ID: 1, Title: "first", Status: domain.TaskPending, Priority: domain.PriorityLow, UserID: 2, IsActive: true},
		&domain.Task{ID: 2, Title: "second", Status: domain.TaskDone, Priority: domain.PriorityHigh, UserID: 3, IsActive: true},
		&domain.Task{ID: 3, Title: "third", Status: domain.TaskPending, Priority: domain.PriorityMedium, UserID: 2, IsActive: false},
	)
}

func TestTaskService_List(t *testing.T) {
	svc := newTaskSvc(seededTasks())

	all, err := svc.List(context.Background(), adminClaims())
	if err != nil || len(all) != 3 || all[0].ID != 1 || all[2].ID != 3 {
		t.Fatalf("admin list: %+v / %v", all, err)
	}

	own, err := svc.List(context.Background(), userClaims(2))
	if err != nil || len(own) != 2 || own[0].ID != 3 || own[1].ID != 1 {
		t.Fatalf("owner list should be newest first and include inactive tasks: %+v / %v", own, err)
	}
}

func TestTaskService_Get_NotFoundBeforePolicy(t *testing.T) {
	svc := newTaskSvc(seededTasks())

	if _, err := svc.Get(context.Background(), userClaims(2), 404); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	_, err := svc.Get(context.Background(), userClaims(2), 2)
	if !errors.Is(err, domain.ErrForbidden) || messageOf(t, err) != "You do not have permission to view this task" {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if task, err := svc.Get(context.Background(), adminClaims(), 2); err != nil || task.ID != 2 {
		t.Fatalf("admin get: %+v / %v", task, err)
	}
}

func TestTaskService_Create_Defaults(t *testing.T) {
	repo := newStubTaskRepo()
	svc := newTaskSvc(repo)

	task, err := svc.Create(context.Background(), userClaims(5), ports.CreateTaskInput{Title: "Write report"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.UserID != 5 || task.Status != domain.TaskPending || task.Priority != domain.PriorityMedium || !task.IsActive {
		t.Fatalf("unexpected defaults %+v", task)
	}
	if task.Description != nil {
		t.Fatalf("expected nil description")
	}
}

func TestTaskService_Create_Validation(t *testing.T) {
	svc := newTaskSvc(newStubTaskRepo())

	if _, err := svc.Create(context.Background(), userClaims(5), ports.CreateTaskInput{Title: "ab"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for short title, got %v", err)
	}
	bad := domain.TaskStatus("archived")
	if _, err := svc.Create(context.Background(), userClaims(5), ports.CreateTaskInput{Title: "valid", Status: &bad}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for status, got %v", err)
	}
}

func TestTaskService_Update(t *testing.T) {
	repo := seededTasks()
	svc := newTaskSvc(repo)
	done := domain.TaskDone

	updated, err := svc.Update(context.Background(), userClaims(2), 1, ports.UpdateTaskInput{Status: &done})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Status != domain.TaskDone || updated.Title != "first" || updated.UpdatedAt == nil {
		t.Fatalf("unexpected update %+v", updated)
	}

	if _, err := svc.Update(context.Background(), userClaims(2), 2, ports.UpdateTaskInput{Status: &done}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := svc.Update(context.Background(), userClaims(2), 404, ports.UpdateTaskInput{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if repo.tasks[2].Status != domain.TaskDone || repo.tasks[2].Title != "second" {
		t.Fatalf("foreign task must be unchanged")
	}
}

func TestTaskService_Delete(t *testing.T) {
	repo := seededTasks()
	svc := newTaskSvc(repo)

	if err := svc.Delete(context.Background(), userClaims(3), 1); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := svc.Delete(context.Background(), adminClaims(), 1); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if err := svc.Delete(context.Background(), adminClaims(), 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
