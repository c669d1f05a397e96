package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/todolist/internal/apperrors"
	"github.com/nkiryanov/todolist/internal/models"
)

type TodoRepo struct {
	DB DBTX
}

const createTodo = `-- name: CreateTodo
INSERT INTO todos (title, body, created, author_id)
VALUES ($1, $2, $3, $4)
RETURNING id, title, body, created, author_id
`

func (r *TodoRepo) CreateTodo(ctx context.Context, todo models.Todo) (models.Todo, error) {
	rows, _ := r.DB.Query(ctx, createTodo, todo.Title, todo.Body, todo.Created, todo.AuthorID)
	created, err := pgx.CollectOneRow(rows, rowToTodo)
	if err != nil {
		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const getTodo = `-- name: GetTodo
SELECT id, title, body, created, author_id FROM todos
WHERE id = $1
`

func (r *TodoRepo) GetTodo(ctx context.Context, todoID int64) (models.Todo, error) {
	rows, _ := r.DB.Query(ctx, getTodo, todoID)
	todo, err := pgx.CollectOneRow(rows, rowToTodo)

	switch {
	case err == nil:
		return todo, nil
	case errors.Is(err, pgx.ErrNoRows):
		return todo, apperrors.ErrTodoNotFound
	default:
		return todo, fmt.Errorf("db error: %w", err)
	}
}

const listTodos = `-- name: ListTodos
SELECT id, title, body, created, author_id FROM todos
WHERE author_id = $1
ORDER BY created DESC, id DESC
`

func (r *TodoRepo) ListTodos(ctx context.Context, authorID int64) ([]models.Todo, error) {
	rows, _ := r.DB.Query(ctx, listTodos, authorID)
	todos, err := pgx.CollectRows(rows, rowToTodo)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return todos, nil
}

const updateTodo = `-- name: UpdateTodo
UPDATE todos
SET title = $2, body = $3
WHERE id = $1
`

func (r *TodoRepo) UpdateTodo(ctx context.Context, todoID int64, title string, body string) error {
	tag, err := r.DB.Exec(ctx, updateTodo, todoID, title, body)

	switch {
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case tag.RowsAffected() == 0:
		return apperrors.ErrTodoNotFound
	default:
		return nil
	}
}

const deleteTodo = `-- name: DeleteTodo
DELETE FROM todos
WHERE id = $1
`

func (r *TodoRepo) DeleteTodo(ctx context.Context, todoID int64) error {
	tag, err := r.DB.Exec(ctx, deleteTodo, todoID)

	switch {
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case tag.RowsAffected() == 0:
		return apperrors.ErrTodoNotFound
	default:
		return nil
	}
}

func rowToTodo(row pgx.CollectableRow) (models.Todo, error) {
	var t models.Todo
	err := row.Scan(&t.ID, &t.Title, &t.Body, &t.Created, &t.AuthorID)
	return t, err
}
