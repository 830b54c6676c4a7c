package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrConcurrentModification means another writer changed a balance
	// between our read and our write. The whole operation can be retried.
	ErrConcurrentModification = errors.New("balance was modified concurrently")

	ErrExpenseNotFound     = errors.New("expense not found")
	ErrShareNotFound       = errors.New("expense share not found")
	ErrShareAlreadySettled = errors.New("expense share already settled")

	// errDuplicatePair is returned by insertEntry when another transaction
	// created the pair first.
	errDuplicatePair = errors.New("balance pair already exists")
)

// ConflictError is a version conflict on the balance between two users.
type ConflictError struct {
	Ower uuid.UUID
	Owee uuid.UUID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("adjusting balance between %s and %s: %s", e.Ower, e.Owee, ErrConcurrentModification)
}

func (e *ConflictError) Unwrap() error {
	return ErrConcurrentModification
}
