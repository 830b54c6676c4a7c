// Package api exposes users, groups, expenses and balances over JSON/HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/billbatista/splitledger/eventlogger"
	"github.com/billbatista/splitledger/group"
	"github.com/billbatista/splitledger/ledger"
	"github.com/billbatista/splitledger/middleware"
	"github.com/billbatista/splitledger/session"
	"github.com/billbatista/splitledger/split"
	"github.com/billbatista/splitledger/user"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Server struct {
	ledger   *ledger.Service
	users    user.Repository
	groups   group.Repository
	sessions session.Repository
	events   eventlogger.Logger
}

func NewServer(
	ledgerService *ledger.Service,
	users user.Repository,
	groups group.Repository,
	sessions session.Repository,
	events eventlogger.Logger,
) *Server {
	return &Server{
		ledger:   ledgerService,
		users:    users,
		groups:   groups,
		sessions: sessions,
		events:   events,
	}
}

func (s *Server) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.AuthMiddleware(s.sessions))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	router.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/users", s.register)
		r.Post("/users/login", s.login)

		// Protected routes - require authentication
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.Post("/users/logout", s.logout)
			r.Get("/users", s.listUsers)
			r.Get("/users/{id}", s.getUser)
			r.Get("/users/{id}/expenses", s.listUserExpenses)
			r.Get("/users/{id}/shares/unsettled", s.listUnsettledShares)

			r.Post("/groups", s.createGroup)
			r.Get("/groups/{id}", s.getGroup)
			r.Post("/groups/{id}/members", s.addGroupMember)
			r.Get("/groups/{id}/expenses", s.listGroupExpenses)

			r.Post("/expenses", s.postExpense)
			r.Get("/expenses/{id}", s.getExpense)
			r.Post("/shares/{id}/settle", s.settleShare)

			r.Post("/settlements", s.settlePayment)
			r.Get("/balances/user/{id}", s.getBalance)
		})
	})

	return router
}

var (
	errBadRequest   = errors.New("bad request")
	errUnauthorized = errors.New("invalid email or password")
	errForbidden    = errors.New("forbidden")
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps err onto a status code. Anything unrecognised is logged
// and reported as a 500 without details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal_error"

	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, split.ErrInvalidSplit),
		errors.Is(err, ledger.ErrEmptyDescription),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidInput),
		errors.Is(err, user.ErrBlankName),
		errors.Is(err, user.ErrInvalidEmail),
		errors.Is(err, user.ErrBlankPassword),
		errors.Is(err, group.ErrBlankName):
		status, code = http.StatusBadRequest, "validation_error"
	case errors.Is(err, group.ErrNotMember):
		status, code = http.StatusBadRequest, "not_member"
	case errors.Is(err, errUnauthorized):
		status, code = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, errForbidden):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, user.ErrNotFound),
		errors.Is(err, group.ErrNotFound),
		errors.Is(err, ledger.ErrExpenseNotFound),
		errors.Is(err, ledger.ErrShareNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, ledger.ErrConcurrentModification):
		status, code = http.StatusConflict, "concurrent_modification"
	case errors.Is(err, ledger.ErrShareAlreadySettled),
		errors.Is(err, user.ErrEmailExists),
		errors.Is(err, group.ErrAlreadyMember):
		status, code = http.StatusConflict, "conflict"
	}

	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, status, errorResponse{Error: code, Message: "internal server error"})
		return
	}
	if status == http.StatusConflict && code == "concurrent_modification" {
		slog.Warn("gave up after repeated balance conflicts", "path", r.URL.Path, "error", err)
	}

	writeJSON(w, status, errorResponse{Error: code, Message: err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: decoding request body: %v", errBadRequest, err)
	}
	return nil
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid id %q", errBadRequest, chi.URLParam(r, "id"))
	}
	return id, nil
}

// currentUser is only called behind RequireAuth.
func currentUser(r *http.Request) uuid.UUID {
	userID, _ := middleware.GetUserID(r.Context())
	return userID
}
