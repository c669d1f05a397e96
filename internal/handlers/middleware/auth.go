package middleware

import (
	"errors"
	"net/http"

	"github.com/nkiryanov/todolist/internal/apperrors"
	"github.com/nkiryanov/todolist/internal/handlers/render"
	"github.com/nkiryanov/todolist/internal/handlers/userctx"
)

type authService interface {
	// Return id of user the request authenticated as
	Authenticate(r *http.Request) (int64, error)
}

// Put authenticated user id to request context or respond with 401
func AuthMiddleware(as authService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := as.Authenticate(r)
			if err != nil {
				render.ServiceError(w, unauthorizedMessage(err), http.StatusUnauthorized)
				return
			}

			ctx := userctx.New(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorizedMessage(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrTokenMissing):
		return "Missing Authorization header"
	case errors.Is(err, apperrors.ErrTokenExpired):
		return "Token has expired"
	default:
		return "Invalid token"
	}
}
