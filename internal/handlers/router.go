package handlers

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nkiryanov/todolist/internal/handlers/middleware"
	"github.com/nkiryanov/todolist/internal/logger"
	"github.com/nkiryanov/todolist/internal/models"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

type Config struct {
	// Browser origin allowed to call the API with credentials
	AllowedOrigin string

	// Registry to expose on /metrics
	// New one with go and process collectors is created if not set
	Registry *prometheus.Registry
}

func NewRouter(
	cfg Config,
	authService authService,
	todoService todoService,
	logger logger.Logger,
) http.Handler {
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
		cfg.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	metrics := middleware.NewMetrics(cfg.Registry)
	withAuth := middleware.AuthMiddleware(authService)

	mux := http.NewServeMux()

	mux.Handle("POST /auth/register", handleRegister(authService, logger))
	mux.Handle("POST /auth/login", handleLogin(authService, logger))
	mux.Handle("POST /auth/logout", handleLogout())
	mux.Handle("GET /auth/protected", withAuth(handleProtected()))

	mux.Handle("GET /todos", withAuth(handleListTodos(todoService, logger)))
	mux.Handle("POST /todos", withAuth(handleCreateTodo(todoService, logger)))
	mux.Handle("PUT /todos/{id}", withAuth(handleUpdateTodo(todoService, logger)))
	mux.Handle("DELETE /todos/{id}", withAuth(handleDeleteTodo(todoService, logger)))

	mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))

	handler := chain(mux,
		middleware.CORSMiddleware(cfg.AllowedOrigin),
		metrics.Middleware,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type authService interface {
	// Register user with username and password
	// Has to return apperrors.ErrUserAlreadyExists if user already exists
	Register(ctx context.Context, username string, password string) (models.User, error)

	// Login user with username and password and issue access token
	// Has to return apperrors.ErrInvalidCredentials if user not found or password is wrong
	Login(ctx context.Context, username string, password string) (models.IssuedToken, error)

	// Get request and return id of user it authenticated as or error
	Authenticate(r *http.Request) (int64, error)
}

type todoService interface {
	ListTodos(ctx context.Context, userID int64) ([]models.Todo, error)
	GetTodo(ctx context.Context, userID int64, todoID int64) (models.Todo, error)
	CreateTodo(ctx context.Context, userID int64, title string, body string) (models.Todo, error)

	// Both have to return apperrors.ErrTodoNotFound or apperrors.ErrTodoForbidden
	// when todo not exists or belongs to other user
	UpdateTodo(ctx context.Context, userID int64, todoID int64, title string, body string) error
	DeleteTodo(ctx context.Context, userID int64, todoID int64) error
}
