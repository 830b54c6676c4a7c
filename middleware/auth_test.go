package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/billbatista/splitledger/session"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions map[string]session.Session

func (f fakeSessions) Create(context.Context, uuid.UUID) (*session.Session, error) {
	panic("not used")
}

func (f fakeSessions) GetByToken(_ context.Context, token string) (*session.Session, error) {
	s, ok := f[token]
	if !ok {
		return nil, session.ErrInvalidSession
	}
	if s.Expired(time.Now()) {
		return nil, session.ErrExpiredSession
	}
	return &s, nil
}

func (f fakeSessions) Delete(context.Context, string) error {
	return nil
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer  abc ", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"abc", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		got, ok := BearerToken(r)
		assert.Equal(t, tt.want, got, tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
	}
}

func TestAuth(t *testing.T) {
	userID := uuid.New()
	sessions := fakeSessions{
		"valid":   {UserID: userID, Token: "valid", ExpiresAt: time.Now().Add(time.Hour)},
		"expired": {UserID: userID, Token: "expired", ExpiresAt: time.Now().Add(-time.Hour)},
	}

	var seen uuid.UUID
	handler := AuthMiddleware(sessions)(RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetUserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid token", "Bearer valid", http.StatusNoContent},
		{"expired token", "Bearer expired", http.StatusUnauthorized},
		{"unknown token", "Bearer nope", http.StatusUnauthorized},
		{"no header", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = uuid.Nil
			r := httptest.NewRequest(http.MethodGet, "/api/users", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, r)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				var body map[string]string
				require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
				assert.Equal(t, "unauthorized", body["error"])
				assert.Equal(t, uuid.Nil, seen)
				return
			}
			assert.Equal(t, userID, seen)
		})
	}
}

func TestGetUserIDWithoutSession(t *testing.T) {
	_, ok := GetUserID(context.Background())
	assert.False(t, ok)
	assert.False(t, IsAuthenticated(context.Background()))
}
