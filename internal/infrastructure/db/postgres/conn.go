// Package postgres implements the relational store on top of database/sql
// with the pgx driver.
package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
)

const (
	driverName          = "pgx"
	defaultQueryTimeout = 10 * time.Second
	defaultMaxOpen      = 10
	defaultIdleTime     = 30 * time.Second
	uniqueViolation     = "23505"
)

// Config captures the pool settings of the relational store.
type Config struct {
	DSN          string
	MaxOpen      int
	MinIdle      int
	IdleTimeout  time.Duration
	QueryTimeout time.Duration
}

// OpenFunc opens a database handle. It matches sql.Open.
type OpenFunc func(driverName, dsn string) (*sql.DB, error)

// Conn owns the process-wide database handle. The handle is opened lazily
// and reopened after Invalidate. Conn is safe for concurrent use.
type Conn struct {
	cfg  Config
	open OpenFunc
	log  zerolog.Logger

	mu    sync.Mutex
	db    *sql.DB
	stale bool
}

// NewConn returns an unopened Conn. A nil open uses sql.Open.
func NewConn(cfg Config, open OpenFunc, log zerolog.Logger) *Conn {
	if cfg.MaxOpen <= 0 {
		cfg.MaxOpen = defaultMaxOpen
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTime
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = defaultQueryTimeout
	}
	if open == nil {
		open = sql.Open
	}
	return &Conn{cfg: cfg, open: open, log: log}
}

// Connect opens the handle and verifies it with a ping.
func (c *Conn) Connect(ctx context.Context) error {
	db, err := c.DB(ctx)
	if err != nil {
		return err
	}
	pingCtx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		c.Invalidate(err)
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

// DB returns the live handle, opening a new one when none exists or the
// current one was invalidated.
func (c *Conn) DB(_ context.Context) (*sql.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil && !c.stale {
		return c.db, nil
	}
	if c.db != nil {
		c.retire(c.db)
		c.db = nil
	}

	db, err := c.open(driverName, c.cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	db.SetMaxOpenConns(c.cfg.MaxOpen)
	if c.cfg.MinIdle > 0 {
		db.SetMaxIdleConns(c.cfg.MinIdle)
	}
	db.SetConnMaxIdleTime(c.cfg.IdleTimeout)

	c.db = db
	c.stale = false
	c.log.Debug().Int("max_open", c.cfg.MaxOpen).Msg("postgres handle opened")
	return db, nil
}

// retire closes a replaced handle once every query that may still hold it
// has run out its timeout.
func (c *Conn) retire(old *sql.DB) {
	time.AfterFunc(c.cfg.QueryTimeout, func() {
		if err := old.Close(); err != nil {
			c.log.Debug().Err(err).Msg("closing retired postgres handle")
		}
	})
}

// Invalidate marks the handle stale when err signals a lost connection.
// It is a no-op for every other error.
func (c *Conn) Invalidate(err error) {
	if !isConnLoss(err) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil && !c.stale {
		c.stale = true
		c.log.Warn().Err(err).Msg("postgres connection lost, handle will be reopened")
	}
}

// Ping checks the store for readiness probes.
func (c *Conn) Ping(ctx context.Context) error {
	db, err := c.DB(ctx)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		c.Invalidate(err)
		return err
	}
	return nil
}

// Close releases the handle. A closed Conn reopens on the next DB call.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	c.stale = false
	return err
}

// query runs fn with the live handle under the per-query timeout and
// invalidates the handle on connection loss.
func (c *Conn) query(ctx context.Context, op string, fn func(ctx context.Context, db *sql.DB) error) error {
	db, err := c.DB(ctx)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout)
	defer cancel()

	if err := fn(ctx, db); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		c.Invalidate(err)
		return fmt.Errorf("postgres %s: %w", op, err)
	}
	return nil
}

func isConnLoss(err error) bool {
	if err == nil {
		return false
	}
	// A query that ran out of time says nothing about the connection.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
