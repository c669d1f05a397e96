package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nkiryanov/todolist/internal/apperrors"
	"github.com/nkiryanov/todolist/internal/models"
)

type TodoRepo struct {
	DB DBTX
}

type scanner interface {
	Scan(dest ...any) error
}

const createTodo = `-- name: CreateTodo
INSERT INTO todos (title, body, created, author_id)
VALUES (?, ?, ?, ?)
RETURNING id, title, body, created, author_id
`

// Created is stored in UTC, so text values stay comparable in ORDER BY
func (r *TodoRepo) CreateTodo(ctx context.Context, todo models.Todo) (models.Todo, error) {
	row := r.DB.QueryRowContext(ctx, createTodo, todo.Title, todo.Body, todo.Created.UTC(), todo.AuthorID)
	created, err := scanTodo(row)
	if err != nil {
		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const getTodo = `-- name: GetTodo
SELECT id, title, body, created, author_id FROM todos
WHERE id = ?
`

func (r *TodoRepo) GetTodo(ctx context.Context, todoID int64) (models.Todo, error) {
	todo, err := scanTodo(r.DB.QueryRowContext(ctx, getTodo, todoID))

	switch {
	case err == nil:
		return todo, nil
	case errors.Is(err, sql.ErrNoRows):
		return todo, apperrors.ErrTodoNotFound
	default:
		return todo, fmt.Errorf("db error: %w", err)
	}
}

const listTodos = `-- name: ListTodos
SELECT id, title, body, created, author_id FROM todos
WHERE author_id = ?
ORDER BY created DESC, id DESC
`

func (r *TodoRepo) ListTodos(ctx context.Context, authorID int64) ([]models.Todo, error) {
	rows, err := r.DB.QueryContext(ctx, listTodos, authorID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close() // nolint:errcheck

	todos := make([]models.Todo, 0)
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		todos = append(todos, todo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return todos, nil
}

const updateTodo = `-- name: UpdateTodo
UPDATE todos
SET title = ?, body = ?
WHERE id = ?
`

func (r *TodoRepo) UpdateTodo(ctx context.Context, todoID int64, title string, body string) error {
	res, err := r.DB.ExecContext(ctx, updateTodo, title, body, todoID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return checkAffected(res)
}

const deleteTodo = `-- name: DeleteTodo
DELETE FROM todos
WHERE id = ?
`

func (r *TodoRepo) DeleteTodo(ctx context.Context, todoID int64) error {
	res, err := r.DB.ExecContext(ctx, deleteTodo, todoID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return checkAffected(res)
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()

	switch {
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case n == 0:
		return apperrors.ErrTodoNotFound
	default:
		return nil
	}
}

func scanTodo(row scanner) (models.Todo, error) {
	var t models.Todo
	err := row.Scan(&t.ID, &t.Title, &t.Body, &t.Created, &t.AuthorID)
	return t, err
}
