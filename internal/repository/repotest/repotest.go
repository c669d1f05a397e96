// Package repotest holds behaviour tests every repository.Storage implementation has to pass
package repotest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/todolist/internal/apperrors"
	"github.com/nkiryanov/todolist/internal/models"
	"github.com/nkiryanov/todolist/internal/repository"
)

// Return clean storage for every call
// Implementation is responsible to cleanup it when test stops
type StorageFactory func(t *testing.T) repository.Storage

func RunStorageTests(t *testing.T, newStorage StorageFactory) {
	t.Run("UserRepo", func(t *testing.T) { testUserRepo(t, newStorage) })
	t.Run("TodoRepo", func(t *testing.T) { testTodoRepo(t, newStorage) })
	t.Run("InTx", func(t *testing.T) { testInTx(t, newStorage) })
}

func testUserRepo(t *testing.T, newStorage StorageFactory) {
	t.Run("create user ok", func(t *testing.T) {
		r := newStorage(t).User()

		user, err := r.CreateUser(t.Context(), "testuser", "hashedpassword123")

		require.NoError(t, err)
		assert.Greater(t, user.ID, int64(0), "ID should be generated")
		assert.Equal(t, "testuser", user.Username)
		assert.Equal(t, "hashedpassword123", user.HashedPassword)
	})

	t.Run("create user duplicate username fails", func(t *testing.T) {
		s := newStorage(t)
		r := s.User()
		first, err := r.CreateUser(t.Context(), "duplicateuser", "hashedpassword123")
		require.NoError(t, err)

		// Failed statement aborts postgres transaction, so run it in nested one
		err = s.InTx(t.Context(), func(tx repository.Storage) error {
			_, err := tx.User().CreateUser(t.Context(), "duplicateuser", "other-hash")
			return err
		})

		require.ErrorIs(t, err, apperrors.ErrUserAlreadyExists, "should return well known error")

		got, err := r.GetUserByUsername(t.Context(), "duplicateuser")
		require.NoError(t, err)
		assert.Equal(t, first, got, "first user must stay untouched")
	})

	t.Run("get user by username ok", func(t *testing.T) {
		r := newStorage(t).User()
		created, err := r.CreateUser(t.Context(), "findbyusername", "hashedpassword123")
		require.NoError(t, err)

		got, err := r.GetUserByUsername(t.Context(), "findbyusername")

		require.NoError(t, err)
		assert.Equal(t, created, got)
	})

	t.Run("get user by username not found", func(t *testing.T) {
		r := newStorage(t).User()

		_, err := r.GetUserByUsername(t.Context(), "nonexistentuser")

		assert.ErrorIs(t, err, apperrors.ErrUserNotFound, "should return well known error")
	})
}

func testTodoRepo(t *testing.T, newStorage StorageFactory) {
	created := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	// Storage with two users
	setup := func(t *testing.T) (repository.Storage, models.User, models.User) {
		s := newStorage(t)
		author, err := s.User().CreateUser(t.Context(), "author", "hash")
		require.NoError(t, err)
		other, err := s.User().CreateUser(t.Context(), "other", "hash")
		require.NoError(t, err)
		return s, author, other
	}

	t.Run("create todo ok", func(t *testing.T) {
		s, author, _ := setup(t)

		todo, err := s.Todo().CreateTodo(t.Context(), models.Todo{
			Title:    "Buy milk",
			Body:     "2 liters",
			Created:  created,
			AuthorID: author.ID,
		})

		require.NoError(t, err)
		assert.Greater(t, todo.ID, int64(0), "ID should be generated")
		assert.Equal(t, "Buy milk", todo.Title)
		assert.Equal(t, "2 liters", todo.Body)
		assert.Equal(t, author.ID, todo.AuthorID)
		assert.WithinDuration(t, created, todo.Created, time.Millisecond)
	})

	t.Run("create todo with empty body ok", func(t *testing.T) {
		s, author, _ := setup(t)

		todo, err := s.Todo().CreateTodo(t.Context(), models.Todo{Title: "No body", Created: created, AuthorID: author.ID})
		require.NoError(t, err)

		got, err := s.Todo().GetTodo(t.Context(), todo.ID)
		require.NoError(t, err)
		assert.Equal(t, "", got.Body)
	})

	t.Run("create todo for unknown author fails", func(t *testing.T) {
		s := newStorage(t)

		_, err := s.Todo().CreateTodo(t.Context(), models.Todo{Title: "Orphan", Created: created, AuthorID: 99999})

		require.Error(t, err, "todo must reference existing user")
	})

	t.Run("get todo ok", func(t *testing.T) {
		s, author, _ := setup(t)
		todo, err := s.Todo().CreateTodo(t.Context(), models.Todo{Title: "Read", Body: "book", Created: created, AuthorID: author.ID})
		require.NoError(t, err)

		got, err := s.Todo().GetTodo(t.Context(), todo.ID)

		require.NoError(t, err)
		assert.Equal(t, todo.ID, got.ID)
		assert.Equal(t, todo.Title, got.Title)
		assert.Equal(t, todo.Body, got.Body)
		assert.Equal(t, todo.AuthorID, got.AuthorID)
		assert.WithinDuration(t, todo.Created, got.Created, time.Millisecond)
	})

	t.Run("get todo not found", func(t *testing.T) {
		s := newStorage(t)

		_, err := s.Todo().GetTodo(t.Context(), 99999)

		assert.ErrorIs(t, err, apperrors.ErrTodoNotFound, "should return well known error")
	})

	t.Run("list todos newest first", func(t *testing.T) {
		s, author, other := setup(t)
		first, err := s.Todo().CreateTodo(t.Context(), models.Todo{Title: "first", Created: created, AuthorID: author.ID})
		require.NoError(t, err)
		second, err := s.Todo().CreateTodo(t.Context(), models.Todo{Title: "second", Created: created.Add(time.Hour), AuthorID: author.ID})
		require.NoError(t, err)
		_, err = s.Todo().CreateTodo(t.Context(), models.Todo{Title: "not mine", Created: created.Add(2 * time.Hour), AuthorID: other.ID})
		require.NoError(t, err)

		todos, err := s.Todo().ListTodos(t.Context(), author.ID)

		require.NoError(t, err)
		require.Len(t, todos, 2, "only author todos must be listed")
		assert.Equal(t, second.ID, todos[0].ID, "todos must be ordered created DESC")
		assert.Equal(t, first.ID, todos[1].ID)
	})

	t.Run("list todos same created ordered by id", func(t *testing.T) {
		s, author, _ := setup(t)
		first, err := s.Todo().CreateTodo(t.Context(), models.Todo{Title: "first", Created: created, AuthorID: author.ID})
		require.NoError(t, err)
		second, err := s.Todo().CreateTodo(t.Context(), models.Todo{Title: "second", Created: created, AuthorID: author.ID})
		require.NoError(t, err)

		todos, err := s.Todo().ListTodos(t.Context(), author.ID)

		require.NoError(t, err)
		require.Len(t, todos, 2)
		assert.Equal(t, second.ID, todos[0].ID, "later inserted todo must be first")
		assert.Equal(t, first.ID, todos[1].ID)
	})

	t.Run("list todos empty", func(t *testing.T) {
		s, author, _ := setup(t)

		todos, err := s.Todo().ListTodos(t.Context(), author.ID)

		require.NoError(t, err)
		assert.Empty(t, todos)
	})

	t.Run("update todo ok", func(t *testing.T) {
		s, author, _ := setup(t)
		todo, err := s.Todo().CreateTodo(t.Context(), models.Todo{Title: "old", Body: "old body", Created: created, AuthorID: author.ID})
		require.NoError(t, err)

		err = s.Todo().UpdateTodo(t.Context(), todo.ID, "new", "new body")
		require.NoError(t, err)

		got, err := s.Todo().GetTodo(t.Context(), todo.ID)
		require.NoError(t, err)
		assert.Equal(t, "new", got.Title)
		assert.Equal(t, "new body", got.Body)
		assert.Equal(t, author.ID, got.AuthorID, "author must not change")
		assert.WithinDuration(t, created, got.Created, time.Millisecond, "created must not change")
	})

	t.Run("update todo not found", func(t *testing.T) {
		s := newStorage(t)

		err := s.Todo().UpdateTodo(t.Context(), 99999, "title", "body")

		assert.ErrorIs(t, err, apperrors.ErrTodoNotFound)
	})

	t.Run("delete todo ok", func(t *testing.T) {
		s, author, _ := setup(t)
		todo, err := s.Todo().CreateTodo(t.Context(), models.Todo{Title: "delete me", Created: created, AuthorID: author.ID})
		require.NoError(t, err)

		err = s.Todo().DeleteTodo(t.Context(), todo.ID)
		require.NoError(t, err)

		_, err = s.Todo().GetTodo(t.Context(), todo.ID)
		assert.ErrorIs(t, err, apperrors.ErrTodoNotFound, "deleted todo must be gone")
	})

	t.Run("delete todo not found", func(t *testing.T) {
		s := newStorage(t)

		err := s.Todo().DeleteTodo(t.Context(), 99999)

		assert.ErrorIs(t, err, apperrors.ErrTodoNotFound)
	})
}

func testInTx(t *testing.T, newStorage StorageFactory) {
	t.Run("commit on success", func(t *testing.T) {
		s := newStorage(t)

		err := s.InTx(t.Context(), func(tx repository.Storage) error {
			_, err := tx.User().CreateUser(t.Context(), "committed", "hash")
			return err
		})
		require.NoError(t, err)

		_, err = s.User().GetUserByUsername(t.Context(), "committed")
		assert.NoError(t, err, "user created in committed transaction must exist")
	})

	t.Run("rollback on error", func(t *testing.T) {
		s := newStorage(t)
		errBoom := errors.New("boom")

		err := s.InTx(t.Context(), func(tx repository.Storage) error {
			_, err := tx.User().CreateUser(t.Context(), "rolledback", "hash")
			require.NoError(t, err)
			return errBoom
		})
		require.ErrorIs(t, err, errBoom, "fn error must be returned as is")

		_, err = s.User().GetUserByUsername(context.Background(), "rolledback")
		assert.ErrorIs(t, err, apperrors.ErrUserNotFound, "user created in rolled back transaction must not exist")
	})
}
