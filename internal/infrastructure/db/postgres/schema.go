package postgres

import (
	"context"
	"database/sql"
)

var schema = []string{
	`create table if not exists users (
		id            bigserial primary key,
		first_name    text not null,
		last_name     text not null,
		user_name     text not null,
		email         text not null unique,
		password_hash text not null,
		user_role     text not null default 'user' check (user_role in ('user', 'admin')),
		is_active     boolean not null default true,
		created_at    timestamptz not null default now(),
		updated_at    timestamptz
	)`,
	`create table if not exists tasks (
		id          bigserial primary key,
		title       text not null,
		description text,
		status      text not null default 'pending' check (status in ('pending', 'in_progress', 'done')),
		priority    text not null default 'medium' check (priority in ('low', 'medium', 'high')),
		user_id     bigint not null references users(id) on delete cascade,
		is_active   boolean not null default true,
		created_at  timestamptz not null default now(),
		updated_at  timestamptz
	)`,
	`create index if not exists tasks_user_id_idx on tasks(user_id)`,
}

// EnsureSchema creates the tables when they do not exist yet.
func EnsureSchema(ctx context.Context, c *Conn) error {
	return c.query(ctx, "ensure schema", func(ctx context.Context, db *sql.DB) error {
		for _, stmt := range schema {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
}
