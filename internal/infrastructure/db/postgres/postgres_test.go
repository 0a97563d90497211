package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/tasklane/taskapi/internal/core/domain"
)

var userCols = []string{"id", "first_name", "last_name", "user_name", "email", "password_hash", "user_role", "is_active", "created_at", "updated_at"}
var taskCols = []string{"id", "title", "description", "status", "priority", "user_id", "is_active", "created_at", "updated_at"}

// newMockConn returns a Conn whose opener hands out the sqlmock handle and
// counts how many times it was called.
func newMockConn(t *testing.T) (*Conn, sqlmock.Sqlmock, *int) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	opens := 0
	open := func(string, string) (*sql.DB, error) {
		opens++
		return db, nil
	}
	return NewConn(Config{DSN: "postgres://test", QueryTimeout: time.Second}, open, zerolog.Nop()), mock, &opens
}

func TestUserRepository_FindByEmail(t *testing.T) {
	conn, mock, _ := newMockConn(t)
	repo := NewUserRepository(conn)
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`select .* from users where email = \$1`).
		WithArgs("ana@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(int64(2), "Ana", "Diaz", "ana", "ana@example.com", "$2a$hash", "admin", true, created, nil))

	u, err := repo.FindByEmail(context.Background(), "ana@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if u.ID != 2 || u.Role != domain.RoleAdmin || u.UpdatedAt != nil || !u.CreatedAt.Equal(created) {
		t.Fatalf("unexpected user %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_FindByID_NotFound(t *testing.T) {
	conn, mock, _ := newMockConn(t)
	repo := NewUserRepository(conn)

	mock.ExpectQuery(`select .* from users where id = \$1`).
		WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)

	u, err := repo.FindByID(context.Background(), 9)
	if err != nil || u != nil {
		t.Fatalf("expected (nil, nil), got (%+v, %v)", u, err)
	}
}

func TestUserRepository_Create_UniqueViolation(t *testing.T) {
	conn, mock, _ := newMockConn(t)
	repo := NewUserRepository(conn)

	mock.ExpectQuery(`insert into users`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err := repo.Create(context.Background(), &domain.User{Email: "dup@example.com", Role: domain.RoleUser})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestUserRepository_Create_Returning(t *testing.T) {
	conn, mock, _ := newMockConn(t)
	repo := NewUserRepository(conn)
	now := time.Now().UTC()

	mock.ExpectQuery(`insert into users .* returning id`).
		WithArgs("Ana", "Diaz", "ana", "ana@example.com", "hash", "user", true, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(int64(5), "Ana", "Diaz", "ana", "ana@example.com", "hash", "user", true, now, nil))

	u, err := repo.Create(context.Background(), &domain.User{
		FirstName: "Ana", LastName: "Diaz", UserName: "ana", Email: "ana@example.com",
		PasswordHash: "hash", Role: domain.RoleUser, IsActive: true, CreatedAt: now,
	})
	if err != nil || u.ID != 5 {
		t.Fatalf("Create: %+v / %v", u, err)
	}
}

func TestUserRepository_Update_Missing(t *testing.T) {
	conn, mock, _ := newMockConn(t)
	repo := NewUserRepository(conn)

	mock.ExpectQuery(`update users`).WillReturnError(sql.ErrNoRows)

	u, err := repo.Update(context.Background(), &domain.User{ID: 77, Role: domain.RoleUser})
	if err != nil || u != nil {
		t.Fatalf("expected (nil, nil), got (%+v, %v)", u, err)
	}
}

func TestUserRepository_DeleteAndCount(t *testing.T) {
	conn, mock, _ := newMockConn(t)
	repo := NewUserRepository(conn)

	mock.ExpectExec(`delete from users where id = \$1`).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`delete from users where id = \$1`).WithArgs(int64(4)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`select count\(\*\) from users where user_role = \$1`).
		WithArgs("admin").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(2)))

	if ok, err := repo.Delete(context.Background(), 3); err != nil || !ok {
		t.Fatalf("expected delete to succeed, got %v / %v", ok, err)
	}
	if ok, err := repo.Delete(context.Background(), 4); err != nil || ok {
		t.Fatalf("expected (false, nil) for missing row, got %v / %v", ok, err)
	}
	if n, err := repo.CountByRole(context.Background(), domain.RoleAdmin); err != nil || n != 2 {
		t.Fatalf("CountByRole: %d / %v", n, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTaskRepository_ListByOwner(t *testing.T) {
	conn, mock, _ := newMockConn(t)
	repo := NewTaskRepository(conn)
	now := time.Now().UTC()

	mock.ExpectQuery(`select .* from tasks where user_id = \$1 order by id desc`).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(taskCols).
			AddRow(int64(9), "newer", "with notes", "done", "high", int64(2), true, now, now).
			AddRow(int64(4), "older", nil, "pending", "medium", int64(2), false, now, nil))

	tasks, err := repo.ListByOwner(context.Background(), 2)
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != 9 || tasks[1].ID != 4 {
		t.Fatalf("unexpected tasks %+v", tasks)
	}
	if tasks[0].Description == nil || *tasks[0].Description != "with notes" || tasks[0].UpdatedAt == nil {
		t.Fatalf("expected nullable columns to be set on first task: %+v", tasks[0])
	}
	if tasks[1].Description != nil || tasks[1].IsActive {
		t.Fatalf("unexpected second task %+v", tasks[1])
	}
}

func TestTaskRepository_FindAndDelete(t *testing.T) {
	conn, mock, _ := newMockConn(t)
	repo := NewTaskRepository(conn)

	mock.ExpectQuery(`select .* from tasks where id = \$1`).WithArgs(int64(1)).WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`delete from tasks where id = \$1`).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 0))

	if task, err := repo.FindByID(context.Background(), 1); err != nil || task != nil {
		t.Fatalf("expected (nil, nil), got (%+v, %v)", task, err)
	}
	if ok, err := repo.Delete(context.Background(), 1); err != nil || ok {
		t.Fatalf("expected (false, nil), got %v / %v", ok, err)
	}
}

func TestConn_InvalidateReopensAfterConnectionLoss(t *testing.T) {
	conn, mock, opens := newMockConn(t)
	repo := NewTaskRepository(conn)

	mock.ExpectQuery(`select .* from tasks order by id asc`).
		WillReturnError(&net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")})

	if _, err := repo.List(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if *opens != 1 {
		t.Fatalf("expected one open, got %d", *opens)
	}

	if _, err := conn.DB(context.Background()); err != nil {
		t.Fatalf("DB: %v", err)
	}
	if *opens != 2 {
		t.Fatalf("expected the stale handle to be reopened, got %d opens", *opens)
	}
}

func TestConn_QueryErrorsDoNotInvalidate(t *testing.T) {
	conn, mock, opens := newMockConn(t)
	repo := NewTaskRepository(conn)

	mock.ExpectQuery(`select .* from tasks order by id asc`).WillReturnError(errors.New("syntax error"))

	_, _ = repo.List(context.Background())
	_, _ = conn.DB(context.Background())
	if *opens != 1 {
		t.Fatalf("expected handle to be reused, got %d opens", *opens)
	}
}

func TestConn_TimeoutDoesNotInvalidate(t *testing.T) {
	conn, mock, opens := newMockConn(t)
	repo := NewTaskRepository(conn)

	mock.ExpectQuery(`select .* from tasks order by id asc`).
		WillReturnError(fmt.Errorf("timeout: %w", context.DeadlineExceeded))

	if _, err := repo.List(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := conn.DB(context.Background()); err != nil {
		t.Fatalf("DB: %v", err)
	}
	if *opens != 1 {
		t.Fatalf("expected a timed-out query to keep the handle, got %d opens", *opens)
	}
}

func TestConn_ReopenKeepsOldHandleUsable(t *testing.T) {
	var mocks []sqlmock.Sqlmock
	open := func(string, string) (*sql.DB, error) {
		db, mock, err := sqlmock.New()
		if err != nil {
			return nil, err
		}
		mocks = append(mocks, mock)
		return db, nil
	}
	conn := NewConn(Config{DSN: "postgres://test", QueryTimeout: time.Minute}, open, zerolog.Nop())
	t.Cleanup(func() { _ = conn.Close() })

	held, err := conn.DB(context.Background())
	if err != nil {
		t.Fatalf("DB: %v", err)
	}
	conn.Invalidate(&net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")})

	fresh, err := conn.DB(context.Background())
	if err != nil {
		t.Fatalf("DB: %v", err)
	}
	if fresh == held || len(mocks) != 2 {
		t.Fatalf("expected a new handle after invalidation, got %d opens", len(mocks))
	}
	if err := held.PingContext(context.Background()); err != nil {
		t.Fatalf("a request holding the previous handle must still be served, got %v", err)
	}
}

func TestConn_OpenFailure(t *testing.T) {
	conn := NewConn(Config{DSN: "x"}, func(string, string) (*sql.DB, error) {
		return nil, errors.New("bad dsn")
	}, zerolog.Nop())

	if _, err := conn.DB(context.Background()); err == nil {
		t.Fatalf("expected open error")
	}
}
