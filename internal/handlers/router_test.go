package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/todolist/internal/logger"
	"github.com/nkiryanov/todolist/internal/service/auth"
	"github.com/nkiryanov/todolist/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/todolist/internal/service/todo"
	"github.com/nkiryanov/todolist/internal/testutil"
)

// Clock shared by token manager and test
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testServer struct {
	url   string
	clock *clock
}

// Run router with production services on clean sqlite database
func newTestServer(t *testing.T) *testServer {
	c := &clock{now: time.Now()}
	storage := testutil.NewSQLiteStorage(t)

	tokenManager, err := tokenmanager.New(tokenmanager.Config{SecretKey: "test-secret", Now: c.Now})
	require.NoError(t, err, "token manager should be created without errors")

	authService, err := auth.NewService(auth.Config{}, tokenManager, storage)
	require.NoError(t, err, "auth service starting error")

	router := NewRouter(
		Config{AllowedOrigin: "http://localhost:3000", Registry: prometheus.NewRegistry()},
		authService,
		todo.NewService(storage),
		logger.NewNoOpLogger(),
	)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{url: srv.URL, clock: c}
}

// Make request and return status and body
func (s *testServer) do(t *testing.T, method string, path string, token string, data string) (int, string) {
	t.Helper()

	var body io.Reader
	if data != "" {
		body = strings.NewReader(data)
	}

	req, err := http.NewRequestWithContext(t.Context(), method, s.url+path, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() // nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(respBody)
}

// Register and login user, return access token
func (s *testServer) login(t *testing.T, username string) string {
	t.Helper()

	creds := fmt.Sprintf(`{"username": %q, "password": "pwd"}`, username)

	code, body := s.do(t, http.MethodPost, "/auth/register", "", creds)
	require.Equalf(t, http.StatusCreated, code, "not expected code. Body: %s", body)

	code, body = s.do(t, http.MethodPost, "/auth/login", "", creds)
	require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)

	var res struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &res))
	require.NotEmpty(t, res.AccessToken)

	return res.AccessToken
}

// Create todo and return its id
func (s *testServer) createTodo(t *testing.T, token string, title string) int64 {
	t.Helper()

	code, body := s.do(t, http.MethodPost, "/todos", token, fmt.Sprintf(`{"title": %q}`, title))
	require.Equalf(t, http.StatusCreated, code, "not expected code. Body: %s", body)

	var res struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &res))

	return res.ID
}

func Test_AuthHandlers(t *testing.T) {
	t.Parallel()

	t.Run("register ok", func(t *testing.T) {
		s := newTestServer(t)

		code, body := s.do(t, http.MethodPost, "/auth/register", "", `{"username": "nk", "password": "pwd"}`)

		require.Equalf(t, http.StatusCreated, code, "not expected code. Body: %s", body)
		require.JSONEq(t, `{"message": "User registered successfully."}`, body)
	})

	t.Run("register existed user fails", func(t *testing.T) {
		s := newTestServer(t)
		s.login(t, "nk")

		code, body := s.do(t, http.MethodPost, "/auth/register", "", `{"username": "nk", "password": "other"}`)

		require.Equal(t, http.StatusBadRequest, code)
		require.JSONEq(t, `{"error": "User nk is already registered.", "code": "service_error"}`, body)
	})

	t.Run("register validation", func(t *testing.T) {
		tests := []struct {
			name     string
			data     string
			expected string
		}{
			{
				name:     "no username",
				data:     `{"password": "pwd"}`,
				expected: "Username is required.",
			},
			{
				name:     "no password",
				data:     `{"username": "nk"}`,
				expected: "Password is required.",
			},
			{
				name:     "nothing",
				data:     `{}`,
				expected: "Username is required.",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				s := newTestServer(t)

				code, body := s.do(t, http.MethodPost, "/auth/register", "", tt.data)

				require.Equal(t, http.StatusBadRequest, code)
				var res struct {
					Error string `json:"error"`
					Code  string `json:"code"`
				}
				require.NoError(t, json.Unmarshal([]byte(body), &res))
				require.Equal(t, tt.expected, res.Error)
				require.Equal(t, "validation_failed", res.Code)
			})
		}
	})

	t.Run("login failed", func(t *testing.T) {
		s := newTestServer(t)
		s.login(t, "nk")

		// Unknown user and wrong password are not distinguished
		for _, data := range []string{
			`{"username": "nk", "password": "wrong"}`,
			`{"username": "unknown", "password": "pwd"}`,
		} {
			code, body := s.do(t, http.MethodPost, "/auth/login", "", data)

			require.Equal(t, http.StatusBadRequest, code)
			require.JSONEq(t, `{"error": "Incorrect username or password.", "code": "service_error"}`, body)
		}
	})

	t.Run("logout ok", func(t *testing.T) {
		s := newTestServer(t)

		code, body := s.do(t, http.MethodPost, "/auth/logout", "", "")

		require.Equal(t, http.StatusOK, code)
		require.JSONEq(t, `{"message": "Logout successful."}`, body)
	})

	t.Run("protected", func(t *testing.T) {
		s := newTestServer(t)
		token := s.login(t, "nk")

		code, body := s.do(t, http.MethodGet, "/auth/protected", token, "")

		require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)
		require.JSONEq(t, `{"logged_in_as": 1}`, body, "first registered user has id 1")
	})

	t.Run("protected unauthorized", func(t *testing.T) {
		tests := []struct {
			name     string
			token    string
			expected string
		}{
			{"no token", "", "Missing Authorization header"},
			{"garbage token", "garbage", "Invalid token"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				s := newTestServer(t)

				code, body := s.do(t, http.MethodGet, "/auth/protected", tt.token, "")

				require.Equal(t, http.StatusUnauthorized, code)
				require.JSONEq(t, fmt.Sprintf(`{"error": %q, "code": "service_error"}`, tt.expected), body)
			})
		}
	})

	t.Run("token expires in one hour", func(t *testing.T) {
		s := newTestServer(t)
		token := s.login(t, "nk")

		s.clock.Add(59 * time.Minute)
		code, _ := s.do(t, http.MethodGet, "/todos", token, "")
		require.Equal(t, http.StatusOK, code, "token must be valid within hour")

		s.clock.Add(time.Minute)
		code, body := s.do(t, http.MethodGet, "/todos", token, "")
		require.Equal(t, http.StatusUnauthorized, code, "token must expire after hour")
		require.JSONEq(t, `{"error": "Token has expired", "code": "service_error"}`, body)
	})
}

func Test_TodoHandlers(t *testing.T) {
	t.Parallel()

	t.Run("create ok", func(t *testing.T) {
		s := newTestServer(t)
		token := s.login(t, "nk")

		code, body := s.do(t, http.MethodPost, "/todos", token, `{"title": "Buy milk", "body": "2 liters"}`)

		require.Equalf(t, http.StatusCreated, code, "not expected code. Body: %s", body)
		require.JSONEq(t, `{"id": 1, "title": "Buy milk", "body": "2 liters"}`, body)
	})

	t.Run("create without body", func(t *testing.T) {
		s := newTestServer(t)
		token := s.login(t, "nk")

		code, body := s.do(t, http.MethodPost, "/todos", token, `{"title": "Buy milk"}`)

		require.Equal(t, http.StatusCreated, code)
		require.JSONEq(t, `{"id": 1, "title": "Buy milk", "body": ""}`, body)
	})

	t.Run("create without title fails", func(t *testing.T) {
		s := newTestServer(t)
		token := s.login(t, "nk")

		code, body := s.do(t, http.MethodPost, "/todos", token, `{"title": "", "body": "text"}`)
		require.Equal(t, http.StatusBadRequest, code)
		require.Contains(t, body, `"error":"Title is required."`)

		_, body = s.do(t, http.MethodGet, "/todos", token, "")
		require.JSONEq(t, `[]`, body, "no todo must be created")
	})

	t.Run("create unauthorized", func(t *testing.T) {
		s := newTestServer(t)

		code, _ := s.do(t, http.MethodPost, "/todos", "", `{"title": "Buy milk"}`)

		require.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("list own todos newest first", func(t *testing.T) {
		s := newTestServer(t)
		token := s.login(t, "nk")
		otherToken := s.login(t, "other")

		t1 := s.createTodo(t, token, "T1")
		t2 := s.createTodo(t, token, "T2")
		s.createTodo(t, otherToken, "not mine")

		code, body := s.do(t, http.MethodGet, "/todos", token, "")

		require.Equal(t, http.StatusOK, code)
		var todos []struct {
			ID      int64     `json:"id"`
			Title   string    `json:"title"`
			Body    string    `json:"body"`
			Created time.Time `json:"created"`
		}
		require.NoError(t, json.Unmarshal([]byte(body), &todos))
		require.Len(t, todos, 2, "other user todos must not be listed")
		assert.Equal(t, t2, todos[0].ID)
		assert.Equal(t, t1, todos[1].ID)
		assert.WithinDuration(t, time.Now(), todos[0].Created, time.Minute)
	})

	t.Run("update ok", func(t *testing.T) {
		s := newTestServer(t)
		token := s.login(t, "nk")
		id := s.createTodo(t, token, "old")

		code, body := s.do(t, http.MethodPut, fmt.Sprintf("/todos/%d", id), token, `{"title": "new", "body": "new body"}`)

		require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)
		require.JSONEq(t, `{"message": "Todo updated successfully"}`, body)

		_, body = s.do(t, http.MethodGet, "/todos", token, "")
		require.Contains(t, body, `"title":"new"`)
		require.Contains(t, body, `"body":"new body"`)
	})

	t.Run("update without title fails", func(t *testing.T) {
		s := newTestServer(t)
		token := s.login(t, "nk")
		id := s.createTodo(t, token, "old")

		code, body := s.do(t, http.MethodPut, fmt.Sprintf("/todos/%d", id), token, `{"body": "new body"}`)

		require.Equal(t, http.StatusBadRequest, code)
		require.JSONEq(t, `{"error": "Title is required.", "code": "service_error"}`, body)
	})

	t.Run("update other user todo forbidden", func(t *testing.T) {
		s := newTestServer(t)
		token := s.login(t, "nk")
		otherToken := s.login(t, "other")
		id := s.createTodo(t, token, "mine")

		code, body := s.do(t, http.MethodPut, fmt.Sprintf("/todos/%d", id), otherToken, `{"title": ""}`)

		require.Equal(t, http.StatusForbidden, code, "ownership has to be checked before title")
		require.JSONEq(t, `{"error": "You are not authorized to modify this todo.", "code": "service_error"}`, body)
	})

	t.Run("update not found", func(t *testing.T) {
		s := newTestServer(t)
		token := s.login(t, "nk")

		code, body := s.do(t, http.MethodPut, "/todos/999", token, `{"title": "new"}`)

		require.Equal(t, http.StatusNotFound, code)
		require.JSONEq(t, `{"error": "Todo id 999 doesn't exist.", "code": "service_error"}`, body)
	})

	t.Run("update not found without body", func(t *testing.T) {
		s := newTestServer(t)
		token := s.login(t, "nk")

		code, body := s.do(t, http.MethodPut, "/todos/999", token, "")

		require.Equal(t, http.StatusNotFound, code, "todo lookup has to go before body decoding")
		require.JSONEq(t, `{"error": "Todo id 999 doesn't exist.", "code": "service_error"}`, body)
	})

	t.Run("update other user todo with broken body forbidden", func(t *testing.T) {
		s := newTestServer(t)
		token := s.login(t, "nk")
		otherToken := s.login(t, "other")
		id := s.createTodo(t, token, "mine")

		code, _ := s.do(t, http.MethodPut, fmt.Sprintf("/todos/%d", id), otherToken, `{"title": `)

		require.Equal(t, http.StatusForbidden, code)
	})

	t.Run("update own todo without body fails", func(t *testing.T) {
		s := newTestServer(t)
		token := s.login(t, "nk")
		id := s.createTodo(t, token, "mine")

		code, body := s.do(t, http.MethodPut, fmt.Sprintf("/todos/%d", id), token, "")

		require.Equal(t, http.StatusBadRequest, code)
		require.JSONEq(t, `{"error": "Failed to parse JSON: request body is empty", "code": "decoding_failed"}`, body)
	})

	t.Run("delete ok", func(t *testing.T) {
		s := newTestServer(t)
		token := s.login(t, "nk")
		id := s.createTodo(t, token, "delete me")

		code, body := s.do(t, http.MethodDelete, fmt.Sprintf("/todos/%d", id), token, "")

		require.Equal(t, http.StatusOK, code)
		require.JSONEq(t, `{"message": "Todo deleted successfully"}`, body)

		code, _ = s.do(t, http.MethodDelete, fmt.Sprintf("/todos/%d", id), token, "")
		require.Equal(t, http.StatusNotFound, code, "deleted todo must be gone")
	})

	t.Run("delete other user todo forbidden", func(t *testing.T) {
		s := newTestServer(t)
		token := s.login(t, "nk")
		otherToken := s.login(t, "other")
		id := s.createTodo(t, token, "mine")

		code, _ := s.do(t, http.MethodDelete, fmt.Sprintf("/todos/%d", id), otherToken, "")
		require.Equal(t, http.StatusForbidden, code)

		_, body := s.do(t, http.MethodGet, "/todos", token, "")
		require.Contains(t, body, `"title":"mine"`, "todo must stay")
	})

	t.Run("not integer id is not found", func(t *testing.T) {
		s := newTestServer(t)
		token := s.login(t, "nk")

		code, body := s.do(t, http.MethodDelete, "/todos/abc", token, "")

		require.Equal(t, http.StatusNotFound, code)
		require.JSONEq(t, `{"error": "Todo id abc doesn't exist.", "code": "service_error"}`, body)
	})
}

func Test_RouterMiddlewares(t *testing.T) {
	t.Parallel()

	t.Run("metrics exposed", func(t *testing.T) {
		s := newTestServer(t)
		s.do(t, http.MethodGet, "/todos", "", "")

		code, body := s.do(t, http.MethodGet, "/metrics", "", "")

		require.Equal(t, http.StatusOK, code)
		require.Contains(t, body, `todolist_http_requests_total{method="GET",route="GET /todos",status="401"} 1`)
	})

	t.Run("cors preflight", func(t *testing.T) {
		s := newTestServer(t)

		req, err := http.NewRequestWithContext(t.Context(), http.MethodOptions, s.url+"/todos", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close() // nolint:errcheck

		require.Equal(t, http.StatusNoContent, resp.StatusCode)
		require.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
		require.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
	})
}
