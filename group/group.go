// Package group keeps named groups of users and answers whether a set of
// users all belong to one.
package group

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Group struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	Members   []Member  `json:"members"`
}

type Member struct {
	UserID   uuid.UUID `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// HasMember reports whether userID is among the loaded members.
func (g *Group) HasMember(userID uuid.UUID) bool {
	for _, m := range g.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

type Repository interface {
	Create(ctx context.Context, name string, createdBy uuid.UUID, members ...uuid.UUID) (*Group, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Group, error)
	AddMember(ctx context.Context, groupID, userID uuid.UUID) error
	CheckMembers(ctx context.Context, groupID uuid.UUID, userIDs ...uuid.UUID) error
}

var (
	ErrNotFound      = errors.New("group not found")
	ErrNotMember     = errors.New("user is not a member of the group")
	ErrAlreadyMember = errors.New("user is already a member of the group")
	ErrBlankName     = errors.New("group name can't be blank")
)

// MembershipError names the users found outside a group.
type MembershipError struct {
	GroupID uuid.UUID
	UserIDs []uuid.UUID
}

func (e *MembershipError) Error() string {
	ids := make([]string, len(e.UserIDs))
	for i, id := range e.UserIDs {
		ids[i] = id.String()
	}
	return fmt.Sprintf("group %s: %s: %s", e.GroupID, ErrNotMember, strings.Join(ids, ", "))
}

func (e *MembershipError) Unwrap() error {
	return ErrNotMember
}

// outsiders returns the ids not in members, in request order and without
// repeats.
func outsiders(ids []uuid.UUID, members map[uuid.UUID]bool) []uuid.UUID {
	var out []uuid.UUID
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if members[id] || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// initialMembers puts the creator first and drops repeats.
func initialMembers(createdBy uuid.UUID, members []uuid.UUID) []uuid.UUID {
	out := []uuid.UUID{createdBy}
	seen := map[uuid.UUID]bool{createdBy: true}
	for _, id := range members {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
