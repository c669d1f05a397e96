package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameRequired   = errors.New("username is required")
	ErrPasswordRequired   = errors.New("password is required")
	ErrInvalidCredentials = errors.New("incorrect username or password")

	ErrTokenMissing   = errors.New("access token is missing")
	ErrTokenMalformed = errors.New("access token is malformed")
	ErrTokenInvalid   = errors.New("access token is invalid")
	ErrTokenExpired   = errors.New("access token is expired")

	ErrTodoNotFound  = errors.New("todo not found")
	ErrTodoForbidden = errors.New("todo belongs to another user")
	ErrTitleRequired = errors.New("title is required")
)
