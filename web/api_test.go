package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosom/user-directory/users"
	"github.com/gosom/user-directory/users/memory"
	"github.com/gosom/user-directory/web"
)

type staticBioGen struct{}

func (staticBioGen) GenerateBio(_ context.Context, name, role string) string {
	return fmt.Sprintf("%s is a %s.", name, role)
}

func newHandler(t *testing.T, opts ...web.Option) http.Handler {
	t.Helper()

	svc := users.NewService(memory.New(), staticBioGen{}, nil)

	return web.New(svc, ":0", opts...).Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var rdr *bytes.Reader
	if body != "" {
		rdr = bytes.NewReader([]byte(body))
	} else {
		rdr = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func createUser(t *testing.T, h http.Handler, body string) users.User {
	t.Helper()

	rec := doJSON(t, h, http.MethodPost, "/api/users", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var user users.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))

	return user
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) web.APIError {
	t.Helper()

	var apiErr web.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))

	return apiErr
}

func TestCreateUser(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		h := newHandler(t)

		rec := doJSON(t, h, http.MethodPost, "/api/users",
			`{"name":"Ann Lee","email":"ANN@Example.com","role":"Engineer"}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var user users.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
		assert.NotEmpty(t, user.ID)
		assert.Equal(t, "ann@example.com", user.Email)
		assert.Equal(t, users.StatusActive, user.Status)
		assert.Equal(t, "Ann Lee is a Engineer.", user.Bio)
	})

	t.Run("missing fields", func(t *testing.T) {
		h := newHandler(t)

		rec := doJSON(t, h, http.MethodPost, "/api/users", `{"name":"Ann Lee"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		apiErr := decodeError(t, rec)
		assert.Equal(t, "Name, email, and role are required", apiErr.Message)
		assert.Equal(t, []string{"email", "role"}, apiErr.Errors)
	})

	t.Run("validation error", func(t *testing.T) {
		h := newHandler(t)

		rec := doJSON(t, h, http.MethodPost, "/api/users",
			`{"name":"A","email":"ann@example.com","role":"Engineer"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		apiErr := decodeError(t, rec)
		assert.Equal(t, "Validation error", apiErr.Message)
		assert.Contains(t, apiErr.Errors, "Name must be at least 2 characters")
	})

	t.Run("duplicate email", func(t *testing.T) {
		h := newHandler(t)
		createUser(t, h, `{"name":"Ann Lee","email":"ann@example.com","role":"Engineer"}`)

		rec := doJSON(t, h, http.MethodPost, "/api/users",
			`{"name":"Bob Ray","email":"ann@example.com","role":"Manager"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		apiErr := decodeError(t, rec)
		assert.Equal(t, "Email already exists. Please use a different email.", apiErr.Message)
	})

	t.Run("malformed body", func(t *testing.T) {
		h := newHandler(t)

		rec := doJSON(t, h, http.MethodPost, "/api/users", `{"name":`)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestListUsers(t *testing.T) {
	h := newHandler(t)

	t.Run("empty directory yields an empty array", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/api/users", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
	})

	t.Run("newest first", func(t *testing.T) {
		createUser(t, h, `{"name":"Ann Lee","email":"ann@example.com","role":"Engineer"}`)
		createUser(t, h, `{"name":"Bob Ray","email":"bob@example.com","role":"Manager"}`)

		rec := doJSON(t, h, http.MethodGet, "/api/users", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var all []users.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
		require.Len(t, all, 2)
		assert.Equal(t, "bob@example.com", all[0].Email)
		assert.Equal(t, "ann@example.com", all[1].Email)
	})
}

func TestGetUser(t *testing.T) {
	h := newHandler(t)
	created := createUser(t, h, `{"name":"Ann Lee","email":"ann@example.com","role":"Engineer"}`)

	t.Run("found", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/api/users/"+created.ID, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var user users.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
		assert.Equal(t, created.ID, user.ID)
	})

	t.Run("not found", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/api/users/6ba7b810-9dad-11d1-80b4-00c04fd430c8", "")
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "User not found", decodeError(t, rec).Message)
	})

	t.Run("malformed id", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/api/users/not-a-uuid", "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid user ID format", decodeError(t, rec).Message)
	})
}

func TestUpdateUser(t *testing.T) {
	h := newHandler(t)
	created := createUser(t, h, `{"name":"Ann Lee","email":"ann@example.com","role":"Engineer"}`)

	t.Run("status only keeps the bio", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPut, "/api/users/"+created.ID, `{"status":"inactive"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var user users.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
		assert.Equal(t, users.StatusInactive, user.Status)
		assert.Equal(t, created.Bio, user.Bio)
	})

	t.Run("role change regenerates the bio", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPut, "/api/users/"+created.ID, `{"role":"Senior Engineer"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var user users.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
		assert.Equal(t, "Senior Engineer", user.Role)
		assert.Equal(t, "Ann Lee is a Senior Engineer.", user.Bio)
	})

	t.Run("not found", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPut, "/api/users/6ba7b810-9dad-11d1-80b4-00c04fd430c8",
			`{"status":"inactive"}`)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPut, "/api/users/"+created.ID, `{"role":`)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestDeleteUser(t *testing.T) {
	h := newHandler(t)
	created := createUser(t, h, `{"name":"Ann Lee","email":"ann@example.com","role":"Engineer"}`)

	rec := doJSON(t, h, http.MethodDelete, "/api/users/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Message     string            `json:"message"`
		DeletedUser users.DeletedUser `json:"deletedUser"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "User deleted successfully", resp.Message)
	assert.Equal(t, users.DeletedUser{
		ID:    created.ID,
		Name:  "Ann Lee",
		Email: "ann@example.com",
	}, resp.DeletedUser)

	t.Run("second delete is a 404", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodDelete, "/api/users/"+created.ID, "")
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

func TestHealth(t *testing.T) {
	t.Run("healthy store", func(t *testing.T) {
		h := newHandler(t, web.WithStatusChecker(pingFunc(func(context.Context) error {
			return nil
		})))

		rec := doJSON(t, h, http.MethodGet, "/api/health", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Status  string            `json:"status"`
			Service string            `json:"service"`
			Checks  map[string]string `json:"checks"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "user-directory", resp.Service)
		assert.Equal(t, "healthy", resp.Checks["store"])
	})

	t.Run("unhealthy store", func(t *testing.T) {
		h := newHandler(t, web.WithStatusChecker(pingFunc(func(context.Context) error {
			return errors.New("connection refused")
		})))

		rec := doJSON(t, h, http.MethodGet, "/api/health", "")
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("no checker configured", func(t *testing.T) {
		h := newHandler(t)

		rec := doJSON(t, h, http.MethodGet, "/api/health", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "not_configured")
	})
}

type failingService struct {
	web.UserService
}

func (failingService) List(context.Context) ([]users.User, error) {
	return nil, fmt.Errorf("%w: disk on fire", users.ErrStoreUnavailable)
}

func TestInternalErrorsStayOpaque(t *testing.T) {
	h := web.New(failingService{}, ":0").Handler()

	rec := doJSON(t, h, http.MethodGet, "/api/users", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	apiErr := decodeError(t, rec)
	assert.Equal(t, "Internal Server Error", apiErr.Message)
	assert.NotContains(t, rec.Body.String(), "disk on fire")
}

func TestMiddlewareHeaders(t *testing.T) {
	h := newHandler(t)

	rec := doJSON(t, h, http.MethodGet, "/api/users", "")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/users", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
