package api

import (
	"log/slog"
	"net/http"

	"github.com/billbatista/splitledger/eventlogger"
	"github.com/billbatista/splitledger/middleware"
	"github.com/billbatista/splitledger/user"
)

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	registered, err := s.users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventlogger.TypeUserRegistered),
		eventlogger.WithData(map[string]string{
			"user_id": registered.ID.String(),
			"email":   registered.Email,
		}),
	))

	writeJSON(w, http.StatusCreated, newUserResponse(*registered))
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	userdb, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if userdb == nil || s.users.VerifyPassword(userdb.PasswordHash, req.Password) != nil {
		writeError(w, r, errUnauthorized)
		return
	}

	sess, err := s.sessions.Create(ctx, userdb.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventlogger.TypeUserLoggedIn),
		eventlogger.WithData(map[string]string{
			"user_id":    userdb.ID.String(),
			"email":      userdb.Email,
			"session_id": sess.ID.String(),
		}),
	))

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     sess.Token,
		UserID:    sess.UserID,
		ExpiresAt: sess.ExpiresAt,
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	token, _ := middleware.BearerToken(r)
	if err := s.sessions.Delete(r.Context(), token); err != nil {
		slog.Error("failed to delete session", "error", err)
	}

	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventlogger.TypeUserLoggedOut),
		eventlogger.WithData(map[string]string{
			"user_id": currentUser(r).String(),
		}),
	))

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, newUserResponse(u))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.userFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(*u))
}

func (s *Server) userFromPath(r *http.Request) (*user.User, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	return s.users.GetByID(r.Context(), id)
}
