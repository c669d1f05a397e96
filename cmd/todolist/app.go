package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nkiryanov/todolist/internal/db"
	"github.com/nkiryanov/todolist/internal/handlers"
	"github.com/nkiryanov/todolist/internal/logger"
	"github.com/nkiryanov/todolist/internal/repository"
	"github.com/nkiryanov/todolist/internal/repository/postgres"
	"github.com/nkiryanov/todolist/internal/repository/sqlite"
	"github.com/nkiryanov/todolist/internal/service/auth"
	"github.com/nkiryanov/todolist/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/todolist/internal/service/todo"
)

const shutdownTimeout = 5 * time.Second

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger logger.Logger

	// Release database connections
	closeStorage func()
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	storage, closeStorage, err := openStorage(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize services
	tokenManager, err := tokenmanager.New(tokenmanager.Config{SecretKey: c.SecretKey})
	if err != nil {
		closeStorage()
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}
	authService, err := auth.NewService(auth.Config{}, tokenManager, storage)
	if err != nil {
		closeStorage()
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}
	todoService := todo.NewService(storage)

	router := handlers.NewRouter(
		handlers.Config{AllowedOrigin: c.CORSOrigin},
		authService,
		todoService,
		logger,
	)

	return &ServerApp{
		ListenAddr:   c.ListenAddr,
		Handler:      router,
		logger:       logger,
		closeStorage: closeStorage,
	}, nil
}

// Open storage the DSN points to
func openStorage(ctx context.Context, dsn string) (repository.Storage, func(), error) {
	driver, source := db.ParseDSN(dsn)

	switch driver {
	case db.DriverPostgres:
		pool, err := db.ConnectAndMigrate(ctx, source)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewStorage(pool), pool.Close, nil
	default:
		sqlDB, err := db.ConnectAndMigrateSQLite(ctx, source)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewStorage(sqlDB), func() { _ = sqlDB.Close() }, nil
	}
}

// Run starts http server and closes gracefully on context cancellation
// Storage is closed when server stopped
func (s *ServerApp) Run(ctx context.Context) error {
	defer s.closeStorage()

	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}
