package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Repository interface {
	Register(ctx context.Context, name, email, password string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	List(ctx context.Context) ([]User, error)
	Resolve(ctx context.Context, ids ...uuid.UUID) error
	VerifyPassword(hashedPassword, password string) error
}

var (
	ErrNotFound      = errors.New("user not found")
	ErrEmailExists   = errors.New("email already exists")
	ErrInvalidEmail  = errors.New("invalid email format")
	ErrBlankPassword = errors.New("password can't be blank")
	ErrBlankName     = errors.New("name can't be blank")
)

// MissingError lists the ids that did not resolve to a user.
type MissingError struct {
	IDs []uuid.UUID
}

func (e *MissingError) Error() string {
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = id.String()
	}
	return fmt.Sprintf("%s: %s", ErrNotFound, strings.Join(ids, ", "))
}

func (e *MissingError) Unwrap() error {
	return ErrNotFound
}

// missing returns the ids absent from found, in request order and without
// repeats.
func missing(ids []uuid.UUID, found map[uuid.UUID]bool) []uuid.UUID {
	var out []uuid.UUID
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if found[id] || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
