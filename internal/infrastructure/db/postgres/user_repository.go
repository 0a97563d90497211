package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tasklane/taskapi/internal/core/domain"
	"github.com/tasklane/taskapi/internal/core/ports"
)

const msgEmailTaken = "The email is already registered"

const userColumns = `id, first_name, last_name, user_name, email, password_hash, user_role, is_active, created_at, updated_at`

// UserRepository implements ports.UserRepository on the users table.
type UserRepository struct {
	conn *Conn
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository(conn *Conn) *UserRepository {
	return &UserRepository{conn: conn}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u       domain.User
		role    string
		updated sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.UserName, &u.Email,
		&u.PasswordHash, &role, &u.IsActive, &u.CreatedAt, &updated); err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	if updated.Valid {
		t := updated.Time
		u.UpdatedAt = &t
	}
	return &u, nil
}

func (r *UserRepository) findOne(ctx context.Context, op, query string, arg any) (*domain.User, error) {
	var user *domain.User
	err := r.conn.query(ctx, op, func(ctx context.Context, db *sql.DB) error {
		var err error
		user, err = scanUser(db.QueryRowContext(ctx, query, arg))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "find user by email", `select `+userColumns+` from users where email = $1`, email)
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.findOne(ctx, "find user by id", `select `+userColumns+` from users where id = $1`, id)
}

func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	var users []*domain.User
	err := r.conn.query(ctx, "list users", func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx, `select `+userColumns+` from users order by id`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			users = append(users, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	var created *domain.User
	err := r.conn.query(ctx, "create user", func(ctx context.Context, db *sql.DB) error {
		var err error
		created, err = scanUser(db.QueryRowContext(ctx, `
			insert into users (first_name, last_name, user_name, email, password_hash, user_role, is_active, created_at)
			values ($1, $2, $3, $4, $5, $6, $7, $8)
			returning `+userColumns,
			user.FirstName, user.LastName, user.UserName, user.Email,
			user.PasswordHash, string(user.Role), user.IsActive, user.CreatedAt,
		))
		return err
	})
	if isUniqueViolation(err) {
		return nil, domain.Conflict(msgEmailTaken)
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) (*domain.User, error) {
	var updated *domain.User
	err := r.conn.query(ctx, "update user", func(ctx context.Context, db *sql.DB) error {
		var err error
		updated, err = scanUser(db.QueryRowContext(ctx, `
			update users
			set first_name = $2, last_name = $3, user_name = $4, email = $5,
			    password_hash = $6, user_role = $7, is_active = $8, updated_at = $9
			where id = $1
			returning `+userColumns,
			user.ID, user.FirstName, user.LastName, user.UserName, user.Email,
			user.PasswordHash, string(user.Role), user.IsActive, user.UpdatedAt,
		))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if isUniqueViolation(err) {
		return nil, domain.Conflict(msgEmailTaken)
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) (bool, error) {
	var affected int64
	err := r.conn.query(ctx, "delete user", func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx, `delete from users where id = $1`, id)
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

func (r *UserRepository) CountByRole(ctx context.Context, role domain.Role) (int64, error) {
	var n int64
	err := r.conn.query(ctx, "count users by role", func(ctx context.Context, db *sql.DB) error {
		return db.QueryRowContext(ctx, `select count(*) from users where user_role = $1`, string(role)).Scan(&n)
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
