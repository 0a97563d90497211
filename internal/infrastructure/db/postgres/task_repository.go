package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tasklane/taskapi/internal/core/domain"
	"github.com/tasklane/taskapi/internal/core/ports"
)

const taskColumns = `id, title, description, status, priority, user_id, is_active, created_at, updated_at`

// TaskRepository implements ports.TaskRepository on the tasks table.
type TaskRepository struct {
	conn *Conn
}

var _ ports.TaskRepository = (*TaskRepository)(nil)

func NewTaskRepository(conn *Conn) *TaskRepository {
	return &TaskRepository{conn: conn}
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		t                domain.Task
		description      sql.NullString
		status, priority string
		updated          sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.Title, &description, &status, &priority,
		&t.UserID, &t.IsActive, &t.CreatedAt, &updated); err != nil {
		return nil, err
	}
	t.Status = domain.TaskStatus(status)
	t.Priority = domain.TaskPriority(priority)
	if description.Valid {
		d := description.String
		t.Description = &d
	}
	if updated.Valid {
		u := updated.Time
		t.UpdatedAt = &u
	}
	return &t, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id int64) (*domain.Task, error) {
	var task *domain.Task
	err := r.conn.query(ctx, "find task", func(ctx context.Context, db *sql.DB) error {
		var err error
		task, err = scanTask(db.QueryRowContext(ctx, `select `+taskColumns+` from tasks where id = $1`, id))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *TaskRepository) List(ctx context.Context) ([]*domain.Task, error) {
	return r.list(ctx, "list tasks", `select `+taskColumns+` from tasks order by id asc`)
}

func (r *TaskRepository) ListByOwner(ctx context.Context, userID int64) ([]*domain.Task, error) {
	return r.list(ctx, "list tasks by owner", `select `+taskColumns+` from tasks where user_id = $1 order by id desc`, userID)
}

func (r *TaskRepository) list(ctx context.Context, op, query string, args ...any) ([]*domain.Task, error) {
	var tasks []*domain.Task
	err := r.conn.query(ctx, op, func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			t, err := scanTask(rows)
			if err != nil {
				return err
			}
			tasks = append(tasks, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	var created *domain.Task
	err := r.conn.query(ctx, "create task", func(ctx context.Context, db *sql.DB) error {
		var err error
		created, err = scanTask(db.QueryRowContext(ctx, `
			insert into tasks (title, description, status, priority, user_id, is_active, created_at)
			values ($1, $2, $3, $4, $5, $6, $7)
			returning `+taskColumns,
			task.Title, task.Description, string(task.Status), string(task.Priority),
			task.UserID, task.IsActive, task.CreatedAt,
		))
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *TaskRepository) Update(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	var updated *domain.Task
	err := r.conn.query(ctx, "update task", func(ctx context.Context, db *sql.DB) error {
		var err error
		updated, err = scanTask(db.QueryRowContext(ctx, `
			update tasks
			set title = $2, description = $3, status = $4, priority = $5, is_active = $6, updated_at = $7
			where id = $1
			returning `+taskColumns,
			task.ID, task.Title, task.Description, string(task.Status), string(task.Priority),
			task.IsActive, task.UpdatedAt,
		))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *TaskRepository) Delete(ctx context.Context, id int64) (bool, error) {
	var affected int64
	err := r.conn.query(ctx, "delete task", func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx, `delete from tasks where id = $1`, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
