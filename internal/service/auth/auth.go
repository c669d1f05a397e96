package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nkiryanov/todolist/internal/apperrors"
	"github.com/nkiryanov/todolist/internal/models"
	"github.com/nkiryanov/todolist/internal/repository"
)

const (
	defaultAccessHeaderName = "Authorization"
	defaultAccessAuthScheme = "Bearer"
)

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

type TokenManager interface {
	// Issue access token for user
	Issue(user models.User) (models.IssuedToken, error)

	// Parse and validate access token and return user id it was issued to
	ParseAccess(access string) (int64, error)
}

type Config struct {
	// Hasher to use during user registration or login process
	// BcryptHasher if not set
	Hasher PasswordHasher

	// Header and scheme the access token is passed with
	AccessHeaderName string
	AccessAuthScheme string
}

type AuthService struct {
	hasher       PasswordHasher
	tokenManager TokenManager
	storage      repository.Storage

	accessHeaderName string
	accessAuthScheme string

	// Hash to compare against when user not found
	// So unknown usernames take as much time as wrong passwords
	dummyHash string
}

func NewService(cfg Config, tokenManager TokenManager, storage repository.Storage) (*AuthService, error) {
	if cfg.Hasher == nil {
		cfg.Hasher = BcryptHasher{}
	}

	if cfg.AccessHeaderName == "" {
		cfg.AccessHeaderName = defaultAccessHeaderName
	}

	if cfg.AccessAuthScheme == "" {
		cfg.AccessAuthScheme = defaultAccessAuthScheme
	}

	dummyHash, err := cfg.Hasher.Hash("dummy-password")
	if err != nil {
		return nil, fmt.Errorf("hasher not works. Err: %w", err)
	}

	return &AuthService{
		hasher:           cfg.Hasher,
		tokenManager:     tokenManager,
		storage:          storage,
		accessHeaderName: cfg.AccessHeaderName,
		accessAuthScheme: cfg.AccessAuthScheme,
		dummyHash:        dummyHash,
	}, nil
}

func (s *AuthService) Register(ctx context.Context, username string, password string) (models.User, error) {
	var user models.User

	switch {
	case username == "":
		return user, apperrors.ErrUsernameRequired
	case password == "":
		return user, apperrors.ErrPasswordRequired
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return user, fmt.Errorf("can't use this as password, error=%w", err)
	}

	err = s.storage.InTx(ctx, func(tx repository.Storage) error {
		user, err = tx.User().CreateUser(ctx, username, hash)
		return err
	})

	return user, err
}

func (s *AuthService) Login(ctx context.Context, username string, password string) (models.IssuedToken, error) {
	var token models.IssuedToken

	user, err := s.storage.User().GetUserByUsername(ctx, username)

	switch {
	case err == nil:
		err = s.hasher.Compare(user.HashedPassword, password)
		if err != nil {
			return token, apperrors.ErrInvalidCredentials
		}
	case errors.Is(err, apperrors.ErrUserNotFound):
		_ = s.hasher.Compare(s.dummyHash, password)
		return token, apperrors.ErrInvalidCredentials
	default:
		return token, fmt.Errorf("can't get user, error=%w", err)
	}

	token, err = s.tokenManager.Issue(user)
	if err != nil {
		return token, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	return token, nil
}

// Authenticate request by access token and return user id the token was issued to
func (s *AuthService) Authenticate(r *http.Request) (int64, error) {
	header := r.Header.Get(s.accessHeaderName)
	if header == "" {
		return 0, apperrors.ErrTokenMissing
	}

	scheme, access, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, s.accessAuthScheme) || strings.TrimSpace(access) == "" {
		return 0, apperrors.ErrTokenMalformed
	}

	return s.tokenManager.ParseAccess(strings.TrimSpace(access))
}

// Set access token to request as client would do
func (s *AuthService) SetTokenToRequest(r *http.Request, token models.IssuedToken) {
	r.Header.Set(s.accessHeaderName, s.accessAuthScheme+" "+token.Value)
}
