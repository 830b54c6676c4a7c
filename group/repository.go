package group

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var _ Repository = (*repository)(nil)

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *repository {
	return &repository{db: db}
}

// Create stores a group with its creator and any extra members in one
// transaction. The creator is always a member.
func (r *repository) Create(ctx context.Context, name string, createdBy uuid.UUID, members ...uuid.UUID) (*Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrBlankName
	}

	now := time.Now().UTC()
	g := &Group{
		ID:        uuid.New(),
		Name:      name,
		CreatedBy: createdBy,
		CreatedAt: now,
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO groups (id, name, created_by, created_at) VALUES ($1, $2, $3, $4)`
	_, err = tx.ExecContext(ctx, query, g.ID, g.Name, g.CreatedBy, g.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting group: %w", err)
	}

	for _, userID := range initialMembers(createdBy, members) {
		query := `INSERT INTO group_members (group_id, user_id, joined_at) VALUES ($1, $2, $3)`
		_, err = tx.ExecContext(ctx, query, g.ID, userID, now)
		if err != nil {
			return nil, fmt.Errorf("inserting group member: %w", err)
		}
		g.Members = append(g.Members, Member{UserID: userID, JoinedAt: now})
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return g, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Group, error) {
	query := `SELECT id, name, created_by, created_at FROM groups WHERE id = $1`

	var g Group
	err := r.db.QueryRowContext(ctx, query, id).Scan(&g.ID, &g.Name, &g.CreatedBy, &g.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying group: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT user_id, joined_at FROM group_members WHERE group_id = $1 ORDER BY joined_at, user_id`, id)
	if err != nil {
		return nil, fmt.Errorf("querying group members: %w", err)
	}
	defer rows.Close()

	g.Members = []Member{}
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.JoinedAt); err != nil {
			return nil, err
		}
		g.Members = append(g.Members, m)
	}

	return &g, rows.Err()
}

func (r *repository) AddMember(ctx context.Context, groupID, userID uuid.UUID) error {
	if err := r.exists(ctx, groupID); err != nil {
		return err
	}

	query := `INSERT INTO group_members (group_id, user_id, joined_at) VALUES ($1, $2, $3)`
	_, err := r.db.ExecContext(ctx, query, groupID, userID, time.Now().UTC())
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrAlreadyMember
		}
		return fmt.Errorf("inserting group member: %w", err)
	}
	return nil
}

// CheckMembers returns a *MembershipError naming every user that is not in
// the group, or ErrNotFound when the group does not exist.
func (r *repository) CheckMembers(ctx context.Context, groupID uuid.UUID, userIDs ...uuid.UUID) error {
	if err := r.exists(ctx, groupID); err != nil {
		return err
	}

	strs := make([]string, len(userIDs))
	for i, id := range userIDs {
		strs[i] = id.String()
	}

	query := `SELECT user_id FROM group_members WHERE group_id = $1 AND user_id = ANY($2::uuid[])`
	rows, err := r.db.QueryContext(ctx, query, groupID, pq.Array(strs))
	if err != nil {
		return fmt.Errorf("querying group members: %w", err)
	}
	defer rows.Close()

	members := make(map[uuid.UUID]bool, len(userIDs))
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return err
		}
		members[id] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if out := outsiders(userIDs, members); len(out) > 0 {
		return &MembershipError{GroupID: groupID, UserIDs: out}
	}
	return nil
}

func (r *repository) exists(ctx context.Context, groupID uuid.UUID) error {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM groups WHERE id = $1)`, groupID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("querying group: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}
