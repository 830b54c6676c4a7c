package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists expenses, shares and pair balances. It is implemented by
// NewRepository (Postgres) and NewMemoryStore.
type Store interface {
	// withTx runs fn in one transaction. Nothing fn wrote is visible to
	// others unless fn returns nil and the commit succeeds.
	withTx(ctx context.Context, fn func(tx storeTx) error) error

	entriesFor(ctx context.Context, userID uuid.UUID) ([]entry, error)
	expense(ctx context.Context, id uuid.UUID) (*Expense, error)
	expensesForUser(ctx context.Context, userID uuid.UUID) ([]Expense, error)
	expensesForGroup(ctx context.Context, groupID uuid.UUID) ([]Expense, error)
	unsettledShares(ctx context.Context, userID uuid.UUID) ([]ExpenseShare, error)
	settleShare(ctx context.Context, shareID uuid.UUID, at time.Time) (*ExpenseShare, error)
}

type storeTx interface {
	insertExpense(ctx context.Context, e *Expense) error
	insertShare(ctx context.Context, s *ExpenseShare, position int) error

	// findEntry returns nil, nil when the pair has no row yet.
	findEntry(ctx context.Context, p pair) (*entry, error)
	// insertEntry returns errDuplicatePair when the pair already exists.
	insertEntry(ctx context.Context, e *entry) error
	// updateEntry writes e only if the stored version is still
	// prevVersion, otherwise it returns ErrConcurrentModification.
	updateEntry(ctx context.Context, e *entry, prevVersion int64) error
}
