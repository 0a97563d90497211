// Package memory is a thread-safe in-memory store for tests and local dev.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/tasklane/taskapi/internal/core/domain"
	"github.com/tasklane/taskapi/internal/core/ports"
)

const msgEmailTaken = "The email is already registered"

// Store keeps users and tasks in maps guarded by one RWMutex. Values are
// copied on the way in and out so callers never share state with the store.
type Store struct {
	mu sync.RWMutex

	users      map[int64]*domain.User
	emailIndex map[string]int64
	tasks      map[int64]*domain.Task

	nextUserID int64
	nextTaskID int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:      make(map[int64]*domain.User),
		emailIndex: make(map[string]int64),
		tasks:      make(map[int64]*domain.Task),
	}
}

// Users returns the store as a ports.UserRepository.
func (s *Store) Users() ports.UserRepository { return userRepo{s} }

// Tasks returns the store as a ports.TaskRepository.
func (s *Store) Tasks() ports.TaskRepository { return taskRepo{s} }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func copyUser(u *domain.User) *domain.User {
	c := *u
	if u.UpdatedAt != nil {
		t := *u.UpdatedAt
		c.UpdatedAt = &t
	}
	return &c
}

func copyTask(t *domain.Task) *domain.Task {
	c := *t
	if t.Description != nil {
		d := *t.Description
		c.Description = &d
	}
	if t.UpdatedAt != nil {
		u := *t.UpdatedAt
		c.UpdatedAt = &u
	}
	return &c
}

// ---------- Users ----------

type userRepo struct{ s *Store }

func (r userRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.emailIndex[email]
	if !ok {
		return nil, nil
	}
	return copyUser(r.s.users[id]), nil
}

func (r userRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return copyUser(u), nil
}

func (r userRepo) List(_ context.Context) ([]*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, copyUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r userRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.emailIndex[user.Email]; exists {
		return nil, domain.Conflict(msgEmailTaken)
	}
	r.s.nextUserID++
	stored := copyUser(user)
	stored.ID = r.s.nextUserID
	r.s.users[stored.ID] = stored
	r.s.emailIndex[stored.Email] = stored.ID
	return copyUser(stored), nil
}

func (r userRepo) Update(_ context.Context, user *domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.users[user.ID]
	if !ok {
		return nil, nil
	}
	if owner, taken := r.s.emailIndex[user.Email]; taken && owner != user.ID {
		return nil, domain.Conflict(msgEmailTaken)
	}
	delete(r.s.emailIndex, current.Email)
	stored := copyUser(user)
	stored.CreatedAt = current.CreatedAt
	r.s.users[user.ID] = stored
	r.s.emailIndex[stored.Email] = stored.ID
	return copyUser(stored), nil
}

// Delete removes the user and, like the relational schema, its tasks.
func (r userRepo) Delete(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return false, nil
	}
	delete(r.s.users, id)
	delete(r.s.emailIndex, u.Email)
	for tid, t := range r.s.tasks {
		if t.UserID == id {
			delete(r.s.tasks, tid)
		}
	}
	return true, nil
}

func (r userRepo) CountByRole(_ context.Context, role domain.Role) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, u := range r.s.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

// ---------- Tasks ----------

type taskRepo struct{ s *Store }

func (r taskRepo) FindByID(_ context.Context, id int64) (*domain.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tasks[id]
	if !ok {
		return nil, nil
	}
	return copyTask(t), nil
}

func (r taskRepo) List(_ context.Context) ([]*domain.Task, error) {
	return r.filter(func(*domain.Task) bool { return true }, true), nil
}

func (r taskRepo) ListByOwner(_ context.Context, userID int64) ([]*domain.Task, error) {
	return r.filter(func(t *domain.Task) bool { return t.UserID == userID }, false), nil
}

func (r taskRepo) filter(keep func(*domain.Task) bool, ascending bool) []*domain.Task {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.Task, 0)
	for _, t := range r.s.tasks {
		if keep(t) {
			out = append(out, copyTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if ascending {
			return out[i].ID < out[j].ID
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r taskRepo) Create(_ context.Context, task *domain.Task) (*domain.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextTaskID++
	stored := copyTask(task)
	stored.ID = r.s.nextTaskID
	r.s.tasks[stored.ID] = stored
	return copyTask(stored), nil
}

func (r taskRepo) Update(_ context.Context, task *domain.Task) (*domain.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.tasks[task.ID]
	if !ok {
		return nil, nil
	}
	stored := copyTask(task)
	stored.UserID = current.UserID
	stored.CreatedAt = current.CreatedAt
	r.s.tasks[task.ID] = stored
	return copyTask(stored), nil
}

func (r taskRepo) Delete(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tasks[id]; !ok {
		return false, nil
	}
	delete(r.s.tasks, id)
	return true, nil
}
