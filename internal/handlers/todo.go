package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/nkiryanov/todolist/internal/apperrors"
	"github.com/nkiryanov/todolist/internal/handlers/render"
	"github.com/nkiryanov/todolist/internal/handlers/userctx"
	"github.com/nkiryanov/todolist/internal/logger"
)

type todoRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func handleListTodos(todoService todoService, l logger.Logger) http.Handler {
	type todo struct {
		ID      int64     `json:"id"`
		Title   string    `json:"title"`
		Body    string    `json:"body"`
		Created time.Time `json:"created"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		todos, err := todoService.ListTodos(r.Context(), userID)
		if err != nil {
			l.Error("Failed to list todos", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		res := make([]todo, 0, len(todos))
		for _, t := range todos {
			res = append(res, todo{ID: t.ID, Title: t.Title, Body: t.Body, Created: t.Created})
		}

		render.JSON(w, res)
	})
}

func handleCreateTodo(todoService todoService, l logger.Logger) http.Handler {
	type request struct {
		Title string `json:"title" validate:"required"`
		Body  string `json:"body"`
	}
	type response struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
		Body  string `json:"body"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		todo, err := todoService.CreateTodo(r.Context(), userID, data.Title, data.Body)

		switch {
		case err == nil:
			render.JSONWithStatus(w, response{ID: todo.ID, Title: todo.Title, Body: todo.Body}, http.StatusCreated)
		case errors.Is(err, apperrors.ErrTitleRequired):
			render.ServiceError(w, "Title is required.", http.StatusBadRequest)
		default:
			l.Error("Failed to create todo", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

// Todo lookup and ownership go before body decoding, title is checked by service
func handleUpdateTodo(todoService todoService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		todoID, ok := parseTodoID(w, r)
		if !ok {
			return
		}

		_, err := todoService.GetTodo(r.Context(), userID, todoID)
		if err != nil {
			renderTodoError(w, l, r, err)
			return
		}

		data, err := render.Bind[todoRequest](w, r)
		if err != nil {
			return
		}

		err = todoService.UpdateTodo(r.Context(), userID, todoID, data.Title, data.Body)
		if err != nil {
			renderTodoError(w, l, r, err)
			return
		}

		render.JSON(w, messageResponse{Message: "Todo updated successfully"})
	})
}

func handleDeleteTodo(todoService todoService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		todoID, ok := parseTodoID(w, r)
		if !ok {
			return
		}

		err := todoService.DeleteTodo(r.Context(), userID, todoID)
		if err != nil {
			renderTodoError(w, l, r, err)
			return
		}

		render.JSON(w, messageResponse{Message: "Todo deleted successfully"})
	})
}

// Todo id from path. Not integer id can't match any todo, so it is 404
func parseTodoID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.PathValue("id")

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		render.ServiceError(w, fmt.Sprintf("Todo id %s doesn't exist.", raw), http.StatusNotFound)
		return 0, false
	}

	return id, true
}

func renderTodoError(w http.ResponseWriter, l logger.Logger, r *http.Request, err error) {
	switch {
	case errors.Is(err, apperrors.ErrTodoNotFound):
		render.ServiceError(w, fmt.Sprintf("Todo id %s doesn't exist.", r.PathValue("id")), http.StatusNotFound)
	case errors.Is(err, apperrors.ErrTodoForbidden):
		render.ServiceError(w, "You are not authorized to modify this todo.", http.StatusForbidden)
	case errors.Is(err, apperrors.ErrTitleRequired):
		render.ServiceError(w, "Title is required.", http.StatusBadRequest)
	default:
		l.Error("Failed to change todo", "error", err, "method", r.Method, "todo_id", r.PathValue("id"))
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}
