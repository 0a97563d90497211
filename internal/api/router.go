package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	_ "github.com/tasklane/taskapi/docs" // registers the OpenAPI document served at /swagger/*
	"github.com/tasklane/taskapi/internal/api/handler"
	"github.com/tasklane/taskapi/internal/api/middleware"
	"github.com/tasklane/taskapi/internal/core/domain"
	"github.com/tasklane/taskapi/internal/core/ports"
	"github.com/tasklane/taskapi/internal/infrastructure/http/handlers"
)

const (
	defaultBodyLimit     = "1M"
	defaultAuthRateLimit = 20
	rateLimiterExpiry    = 3 * time.Minute
)

// Deps are the collaborators the HTTP layer dispatches to.
type Deps struct {
	Log    zerolog.Logger
	Auth   ports.AuthService
	Users  ports.UserService
	Tasks  ports.TaskService
	Tokens ports.TokenService

	// Health lists the readiness dependencies. A nil value is reported as disabled.
	Health map[string]handlers.Pinger

	// Registerer and Gatherer default to the global Prometheus registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer

	BodyLimit     string
	AuthRateLimit float64
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	if d.Registerer == nil {
		d.Registerer = prometheus.DefaultRegisterer
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}
	if d.BodyLimit == "" {
		d.BodyLimit = defaultBodyLimit
	}
	if d.AuthRateLimit <= 0 {
		d.AuthRateLimit = defaultAuthRateLimit
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestMeta())
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "taskapi",
		Registerer: d.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))
	e.Use(echomiddleware.BodyLimit(d.BodyLimit))
	e.Use(middleware.RequestLogger(d.Log))
	// Handler panics are rendered as 500s here so the request line records them.
	e.Use(echomiddleware.Recover())

	// --- Probes, metrics and docs (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(d.Health)

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "Hello"})
	})
	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: d.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	v1 := e.Group("/api/v1")

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(d.Auth)
	auth := v1.Group("/auth", authRateLimiter(d.AuthRateLimit))
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	requireAuth := middleware.Auth(d.Tokens)

	// --- User routes ---
	userHandler := handler.NewUserHandler(d.Users)
	users := v1.Group("/users", requireAuth)
	users.GET("", userHandler.List)
	users.GET("/:id", userHandler.Get)
	users.POST("", userHandler.Create, middleware.RBAC(domain.RoleAdmin))
	users.PUT("/:id", userHandler.Update)
	users.PATCH("/:id", userHandler.Patch)
	users.DELETE("/:id", userHandler.Delete)

	// --- Task routes ---
	taskHandler := handler.NewTaskHandler(d.Tasks)
	tasks := v1.Group("/tasks", requireAuth)
	tasks.GET("", taskHandler.List)
	tasks.GET("/:id", taskHandler.Get)
	tasks.POST("", taskHandler.Create)
	tasks.PUT("/:id", taskHandler.Update)
	tasks.PATCH("/:id", taskHandler.Update)
	tasks.DELETE("/:id", taskHandler.Delete)

	return e
}

// authRateLimiter throttles auth requests per client IP.
func authRateLimiter(perSecond float64) echo.MiddlewareFunc {
	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(perSecond),
			Burst:     max(1, int(perSecond)),
			ExpiresIn: rateLimiterExpiry,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return domain.TooManyRequests("Too many requests, try again later")
		},
	})
}
