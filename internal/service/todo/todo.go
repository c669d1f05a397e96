package todo

import (
	"context"
	"fmt"
	"time"

	"github.com/nkiryanov/todolist/internal/apperrors"
	"github.com/nkiryanov/todolist/internal/models"
	"github.com/nkiryanov/todolist/internal/repository"
)

type TodoService struct {
	storage repository.Storage

	// Clock to set todo creation time
	now func() time.Time
}

func NewService(storage repository.Storage) *TodoService {
	return &TodoService{
		storage: storage,
		now:     time.Now,
	}
}

// List user todos, newest first
func (s *TodoService) ListTodos(ctx context.Context, userID int64) ([]models.Todo, error) {
	todos, err := s.storage.Todo().ListTodos(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("can't list todos, error=%w", err)
	}

	if todos == nil {
		todos = make([]models.Todo, 0)
	}

	return todos, nil
}

// Get todo owned by user
func (s *TodoService) GetTodo(ctx context.Context, userID int64, todoID int64) (models.Todo, error) {
	return getOwnTodo(ctx, s.storage, userID, todoID)
}

func (s *TodoService) CreateTodo(ctx context.Context, userID int64, title string, body string) (models.Todo, error) {
	var todo models.Todo

	if title == "" {
		return todo, apperrors.ErrTitleRequired
	}

	err := s.storage.InTx(ctx, func(tx repository.Storage) error {
		var err error
		todo, err = tx.Todo().CreateTodo(ctx, models.Todo{
			Title:    title,
			Body:     body,
			Created:  s.now().UTC(),
			AuthorID: userID,
		})
		return err
	})

	return todo, err
}

// Overwrite todo title and body
// Todo existence is checked first, than ownership, than the new title
func (s *TodoService) UpdateTodo(ctx context.Context, userID int64, todoID int64, title string, body string) error {
	return s.storage.InTx(ctx, func(tx repository.Storage) error {
		err := checkOwner(ctx, tx, userID, todoID)
		if err != nil {
			return err
		}

		if title == "" {
			return apperrors.ErrTitleRequired
		}

		return tx.Todo().UpdateTodo(ctx, todoID, title, body)
	})
}

func (s *TodoService) DeleteTodo(ctx context.Context, userID int64, todoID int64) error {
	return s.storage.InTx(ctx, func(tx repository.Storage) error {
		err := checkOwner(ctx, tx, userID, todoID)
		if err != nil {
			return err
		}

		return tx.Todo().DeleteTodo(ctx, todoID)
	})
}

func checkOwner(ctx context.Context, tx repository.Storage, userID int64, todoID int64) error {
	_, err := getOwnTodo(ctx, tx, userID, todoID)
	return err
}

func getOwnTodo(ctx context.Context, storage repository.Storage, userID int64, todoID int64) (models.Todo, error) {
	todo, err := storage.Todo().GetTodo(ctx, todoID)
	if err != nil {
		return models.Todo{}, err
	}

	if !todo.OwnedBy(userID) {
		return models.Todo{}, apperrors.ErrTodoForbidden
	}

	return todo, nil
}
