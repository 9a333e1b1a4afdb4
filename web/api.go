package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/gosom/user-directory/users"
)

// APIError is the JSON error body. Errors carries the individual messages
// of an aggregated validation failure.
type APIError struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.logger != nil {
		s.logger.Printf("GET %s", r.URL.Path)
	}

	storeStatus := "not_configured"
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			storeStatus = "unhealthy"
		} else {
			storeStatus = "healthy"
		}
	}

	response := map[string]any{
		"status":    "healthy",
		"service":   "user-directory",
		"timestamp": time.Now().UTC(),
		"checks": map[string]string{
			"store":  storeStatus,
			"server": "healthy",
		},
	}

	if storeStatus == "unhealthy" {
		renderJSON(w, http.StatusServiceUnavailable, response)
		return
	}

	renderJSON(w, http.StatusOK, response)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	if s.logger != nil {
		s.logger.Printf("GET %s", r.URL.Path)
	}

	all, err := s.svc.List(r.Context())
	if err != nil {
		s.renderError(w, err)
		return
	}

	if all == nil {
		all = []users.User{}
	}

	renderJSON(w, http.StatusOK, all)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	if s.logger != nil {
		s.logger.Printf("GET %s", r.URL.Path)
	}

	user, err := s.svc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.renderError(w, err)
		return
	}

	renderJSON(w, http.StatusOK, user)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	if s.logger != nil {
		s.logger.Printf("POST %s", r.URL.Path)
	}

	var in users.CreateUserInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		renderJSON(w, http.StatusUnprocessableEntity, APIError{
			Code:    http.StatusUnprocessableEntity,
			Message: err.Error(),
		})

		return
	}

	user, err := s.svc.Create(r.Context(), in)
	if err != nil {
		s.renderError(w, err)
		return
	}

	renderJSON(w, http.StatusCreated, user)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	if s.logger != nil {
		s.logger.Printf("PUT %s", r.URL.Path)
	}

	var in users.UpdateUserInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		renderJSON(w, http.StatusUnprocessableEntity, APIError{
			Code:    http.StatusUnprocessableEntity,
			Message: err.Error(),
		})

		return
	}

	user, err := s.svc.Update(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		s.renderError(w, err)
		return
	}

	renderJSON(w, http.StatusOK, user)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	if s.logger != nil {
		s.logger.Printf("DELETE %s", r.URL.Path)
	}

	deleted, err := s.svc.Delete(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.renderError(w, err)
		return
	}

	renderJSON(w, http.StatusOK, map[string]any{
		"message":     "User deleted successfully",
		"deletedUser": deleted,
	})
}

func (s *Server) renderError(w http.ResponseWriter, err error) {
	var (
		missingErr    *users.MissingFieldsError
		constraintErr *users.ConstraintError
	)

	switch {
	case errors.As(err, &missingErr):
		renderJSON(w, http.StatusBadRequest, APIError{
			Code:    http.StatusBadRequest,
			Message: "Name, email, and role are required",
			Errors:  missingErr.Fields,
		})
	case errors.As(err, &constraintErr):
		renderJSON(w, http.StatusBadRequest, APIError{
			Code:    http.StatusBadRequest,
			Message: "Validation error",
			Errors:  constraintErr.Messages(),
		})
	case errors.Is(err, users.ErrDuplicateEmail):
		renderJSON(w, http.StatusBadRequest, APIError{
			Code:    http.StatusBadRequest,
			Message: "Email already exists. Please use a different email.",
		})
	case errors.Is(err, users.ErrInvalidID):
		renderJSON(w, http.StatusBadRequest, APIError{
			Code:    http.StatusBadRequest,
			Message: "Invalid user ID format",
		})
	case errors.Is(err, users.ErrNotFound):
		renderJSON(w, http.StatusNotFound, APIError{
			Code:    http.StatusNotFound,
			Message: "User not found",
		})
	default:
		// Infrastructure failures stay opaque to the client.
		if s.logger != nil {
			s.logger.Printf("internal error: %v", err)
		}

		renderJSON(w, http.StatusInternalServerError, APIError{
			Code:    http.StatusInternalServerError,
			Message: http.StatusText(http.StatusInternalServerError),
		})
	}
}

func renderJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}
