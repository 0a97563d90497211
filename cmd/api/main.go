// @title                       Task API
// @version                     1.0
// @description                 Authentication, users and tasks with role-based access control.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tasklane/taskapi/internal/api"
	"github.com/tasklane/taskapi/internal/core/ports"
	"github.com/tasklane/taskapi/internal/core/service"
	"github.com/tasklane/taskapi/internal/infrastructure/db/memory"
	mongostore "github.com/tasklane/taskapi/internal/infrastructure/db/mongo"
	"github.com/tasklane/taskapi/internal/infrastructure/db/postgres"
	redisstore "github.com/tasklane/taskapi/internal/infrastructure/db/redis"
	"github.com/tasklane/taskapi/internal/infrastructure/http/handlers"
	"github.com/tasklane/taskapi/internal/infrastructure/queue"
	"github.com/tasklane/taskapi/internal/infrastructure/security"
	"github.com/tasklane/taskapi/internal/pkg/config"
	"github.com/tasklane/taskapi/pkg/logger"
)

const (
	serviceName     = "taskapi"
	shutdownTimeout = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad(ctx)
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: serviceName,
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("taskapi stopped with error")
	}
	log.Info().Msg("stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	health := map[string]handlers.Pinger{}

	// --- Relational store ---
	var (
		users ports.UserRepository
		tasks ports.TaskRepository
	)
	switch cfg.Store.Driver {
	case config.DriverMemory:
		store := memory.NewStore()
		users, tasks = store.Users(), store.Tasks()
		health["store"] = store
		log.Warn().Msg("using the in-memory store, data is lost on restart")
	default:
		conn := postgres.NewConn(postgres.Config{
			DSN:          cfg.Store.DatabaseURL,
			MaxOpen:      cfg.Store.PoolMax,
			MinIdle:      cfg.Store.PoolMin,
			IdleTimeout:  cfg.Store.PoolIdle,
			QueryTimeout: cfg.Store.QueryTimeout,
		}, nil, log)
		if err := conn.Connect(ctx); err != nil {
			return err
		}
		defer func() { _ = conn.Close() }()
		if err := postgres.EnsureSchema(ctx, conn); err != nil {
			return err
		}
		users, tasks = postgres.NewUserRepository(conn), postgres.NewTaskRepository(conn)
		health["postgres"] = conn
	}

	// --- Audit trail (optional) ---
	var audit ports.AuditRecorder
	health["mongo"] = nil
	if cfg.Mongo.URI != "" {
		client, db, err := mongostore.Connect(ctx, mongostore.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			AppName:  serviceName,
		})
		if err != nil {
			return err
		}
		defer func() { _ = mongostore.Disconnect(client) }()

		repo := mongostore.NewAuditRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return err
		}
		dispatcher := queue.NewDispatcher(cfg.Audit.Workers, service.NewAuditService(repo, log), log)
		dispatcher.Start(ctx)
		audit = dispatcher
		health["mongo"] = mongostore.Pinger{Client: client}
	}

	// --- Login throttle (optional) ---
	var limiter ports.LoginLimiter
	health["redis"] = nil
	if cfg.Redis.Addr != "" {
		client, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		limiter = redisstore.NewLoginLimiter(client, cfg.Auth.LoginMaxFailures, cfg.Auth.LoginFailureWindow)
		health["redis"] = redisstore.Pinger{Client: client}
	}

	// --- Security ---
	hasher, err := security.NewHasher(cfg.Auth.BcryptRounds, 0)
	if err != nil {
		return err
	}
	tokens, err := security.NewTokenService(security.TokenConfig{
		AccessSecret:  cfg.Auth.AccessSecret,
		RefreshSecret: cfg.Auth.RefreshSecret,
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshTTL:    cfg.Auth.RefreshTTL,
	})
	if err != nil {
		return err
	}

	// --- Use cases ---
	userService := service.NewUserService(users, hasher, log)
	if cfg.Seed.Enabled {
		created, err := userService.EnsureAdmin(ctx, ports.AdminSeed{Email: cfg.Seed.Email, Password: cfg.Seed.Password})
		if err != nil {
			return err
		}
		if created {
			log.Info().Str("email", cfg.Seed.Email).Msg("seed administrator created")
		}
	}

	router := api.NewRouter(api.Deps{
		Log:           log,
		Auth:          service.NewAuthService(users, hasher, tokens, limiter, audit, log),
		Users:         userService,
		Tasks:         service.NewTaskService(tasks, log),
		Tokens:        tokens,
		Health:        health,
		BodyLimit:     cfg.BodyLimit,
		AuthRateLimit: cfg.AuthRateLimit,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("starting taskapi")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
