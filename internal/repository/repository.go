package repository

import (
	"context"

	"github.com/nkiryanov/todolist/internal/models"
)

// User repository interface
type UserRepo interface {
	// Create user
	// If user with username exists already has to return error apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, username string, hashedPassword string) (models.User, error)

	// Get user by username
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
}

// Todo repository interface
// Repository knows nothing about ownership, services have to check it
type TodoRepo interface {
	// Create todo and return it with assigned id
	CreateTodo(ctx context.Context, todo models.Todo) (models.Todo, error)

	// Get todo by id
	// If todo not found must return apperrors.ErrTodoNotFound
	GetTodo(ctx context.Context, todoID int64) (models.Todo, error)

	// List author todos, the newest first
	ListTodos(ctx context.Context, authorID int64) ([]models.Todo, error)

	// Overwrite title and body, other fields stay untouched
	// If todo not found must return apperrors.ErrTodoNotFound
	UpdateTodo(ctx context.Context, todoID int64, title string, body string) error

	// Delete todo permanently
	// If todo not found must return apperrors.ErrTodoNotFound
	DeleteTodo(ctx context.Context, todoID int64) error
}

type Storage interface {
	User() UserRepo
	Todo() TodoRepo

	// Run fn in transaction: commit if fn returns nil, rollback otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}
