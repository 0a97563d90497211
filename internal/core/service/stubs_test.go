package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/tasklane/taskapi/internal/core/domain"
)

// ---------------------------------------------------------------------------
// Repositories
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	users     map[int64]*domain.User
	nextID    int64
	findErr   error
	createErr error
	deleteOK  *bool
}

func newStubUserRepo(seed ...*domain.User) *stubUserRepo {
	r := &stubUserRepo{users: make(map[int64]*domain.User)}
	for _, u := range seed {
		if u.ID > r.nextID {
			r.nextID = u.ID
		}
		r.users[u.ID] = cloneUser(u)
	}
	return r
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return cloneUser(r.users[id]), nil
}

func (r *stubUserRepo) List(_ context.Context) ([]*domain.User, error) {
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.nextID++
	c := cloneUser(user)
	c.ID = r.nextID
	r.users[c.ID] = c
	return cloneUser(c), nil
}

func (r *stubUserRepo) Update(_ context.Context, user *domain.User) (*domain.User, error) {
	if _, ok := r.users[user.ID]; !ok {
		return nil, nil
	}
	r.users[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

func (r *stubUserRepo) Delete(_ context.Context, id int64) (bool, error) {
	if r.deleteOK != nil {
		return *r.deleteOK, nil
	}
	if _, ok := r.users[id]; !ok {
		return false, nil
	}
	delete(r.users, id)
	return true, nil
}

func (r *stubUserRepo) CountByRole(_ context.Context, role domain.Role) (int64, error) {
	var n int64
	for _, u := range r.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

type stubTaskRepo struct {
	tasks  map[int64]*domain.Task
	nextID int64
}

func newStubTaskRepo(seed ...*domain.Task) *stubTaskRepo {
	r := &stubTaskRepo{tasks: make(map[int64]*domain.Task)}
	for _, t := range seed {
		if t.ID > r.nextID {
			r.nextID = t.ID
		}
		c := *t
		r.tasks[t.ID] = &c
	}
	return r
}

func (r *stubTaskRepo) get(id int64) *domain.Task {
	t, ok := r.tasks[id]
	if !ok {
		return nil
	}
	c := *t
	return &c
}

func (r *stubTaskRepo) FindByID(_ context.Context, id int64) (*domain.Task, error) {
	return r.get(id), nil
}

func (r *stubTaskRepo) List(_ context.Context) ([]*domain.Task, error) {
	var out []*domain.Task
	for id := range r.tasks {
		out = append(out, r.get(id))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubTaskRepo) ListByOwner(_ context.Context, userID int64) ([]*domain.Task, error) {
	var out []*domain.Task
	for id, t := range r.tasks {
		if t.UserID == userID {
			out = append(out, r.get(id))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *stubTaskRepo) Create(_ context.Context, task *domain.Task) (*domain.Task, error) {
	r.nextID++
	c := *task
	c.ID = r.nextID
	r.tasks[c.ID] = &c
	return r.get(c.ID), nil
}

func (r *stubTaskRepo) Update(_ context.Context, task *domain.Task) (*domain.Task, error) {
	if _, ok := r.tasks[task.ID]; !ok {
		return nil, nil
	}
	c := *task
	r.tasks[task.ID] = &c
	return r.get(task.ID), nil
}

func (r *stubTaskRepo) Delete(_ context.Context, id int64) (bool, error) {
	if _, ok := r.tasks[id]; !ok {
		return false, nil
	}
	delete(r.tasks, id)
	return true, nil
}

// ---------------------------------------------------------------------------
// Security
// ---------------------------------------------------------------------------

// stubHasher "hashes" by prefixing, which keeps tests fast and deterministic.
type stubHasher struct {
	hashErr error
}

func (h stubHasher) Hash(_ context.Context, plaintext string) (string, error) {
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "hashed:" + plaintext, nil
}

func (h stubHasher) Verify(_ context.Context, plaintext, digest string) bool {
	return digest != "" && digest == "hashed:"+plaintext
}

type stubTokens struct {
	issueErr error
}

func (stubTokens) encode(typ string, c domain.Claims) string {
	return strings.Join([]string{typ, string(c.Role), c.Email, strconv.FormatInt(c.UserID, 10)}, "|")
}

func (s stubTokens) IssueAccess(c domain.Claims) (string, error) {
	if s.issueErr != nil {
		return "", s.issueErr
	}
	return s.encode("access", c), nil
}

func (s stubTokens) IssueRefresh(c domain.Claims) (string, error) {
	if s.issueErr != nil {
		return "", s.issueErr
	}
	return s.encode("refresh", c), nil
}

func (stubTokens) decode(typ, token string) (*domain.Claims, error) {
	parts := strings.Split(token, "|")
	if len(parts) != 4 || parts[0] != typ {
		return nil, domain.ErrInvalidToken
	}
	id, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	return &domain.Claims{Role: domain.Role(parts[1]), Email: parts[2], UserID: id}, nil
}

func (s stubTokens) VerifyAccess(token string) (*domain.Claims, error) { return s.decode("access", token) }

func (s stubTokens) VerifyRefresh(token string) (*domain.Claims, error) {
	return s.decode("refresh", token)
}

type stubLimiter struct {
	max      int
	allowErr error
	failures map[string]int
	resets   []string
}

func newStubLimiter(max int) *stubLimiter {
	return &stubLimiter{max: max, failures: make(map[string]int)}
}

func (l *stubLimiter) Allow(_ context.Context, email string) (bool, error) {
	if l.allowErr != nil {
		return false, l.allowErr
	}
	return l.failures[email] < l.max, nil
}

func (l *stubLimiter) RecordFailure(_ context.Context, email string) error {
	l.failures[email]++
	return nil
}

func (l *stubLimiter) Reset(_ context.Context, email string) error {
	delete(l.failures, email)
	l.resets = append(l.resets, email)
	return nil
}

type stubRecorder struct {
	mu     sync.Mutex
	events []domain.AuthEvent
}

func (r *stubRecorder) Record(_ context.Context, e domain.AuthEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *stubRecorder) last() domain.AuthEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

var errStore = errors.New("store unavailable")

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

func adminClaims() domain.Claims {
	return domain.Claims{UserID: 1, Email: "admin@admin.com", Role: domain.RoleAdmin}
}

func userClaims(id int64) domain.Claims {
	return domain.Claims{UserID: id, Email: "u@example.com", Role: domain.RoleUser}
}

func seedUser(id int64, email string, role domain.Role, active bool) *domain.User {
	return &domain.User{
		ID:           id,
		FirstName:    "First",
		LastName:     "Last",
		UserName:     "user" + strconv.FormatInt(id, 10),
		Email:        email,
		PasswordHash: "hashed:secret",
		Role:         role,
		IsActive:     active,
	}
}
