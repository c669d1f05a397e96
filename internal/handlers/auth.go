package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nkiryanov/todolist/internal/apperrors"
	"github.com/nkiryanov/todolist/internal/handlers/render"
	"github.com/nkiryanov/todolist/internal/handlers/userctx"
	"github.com/nkiryanov/todolist/internal/logger"
)

type credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func handleRegister(authService authService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[credentials](w, r)
		if err != nil {
			return
		}

		_, err = authService.Register(r.Context(), data.Username, data.Password)

		switch {
		case err == nil:
			render.JSONWithStatus(w, messageResponse{Message: "User registered successfully."}, http.StatusCreated)
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, fmt.Sprintf("User %s is already registered.", data.Username), http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrUsernameRequired):
			render.ServiceError(w, "Username is required.", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrPasswordRequired):
			render.ServiceError(w, "Password is required.", http.StatusBadRequest)
		default:
			l.Error("Failed to register user", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleLogin(authService authService, l logger.Logger) http.Handler {
	type response struct {
		AccessToken string `json:"access_token"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[credentials](w, r)
		if err != nil {
			return
		}

		token, err := authService.Login(r.Context(), data.Username, data.Password)

		switch {
		case err == nil:
			render.JSON(w, response{AccessToken: token.Value})
		case errors.Is(err, apperrors.ErrInvalidCredentials):
			render.ServiceError(w, "Incorrect username or password.", http.StatusBadRequest)
		default:
			l.Error("Failed to login user", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

// Tokens are not revoked, client just forgets it
func handleLogout() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, messageResponse{Message: "Logout successful."})
	})
}

func handleProtected() http.Handler {
	type response struct {
		LoggedInAs int64 `json:"logged_in_as"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{LoggedInAs: userID})
	})
}
