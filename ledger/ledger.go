// Package ledger posts shared expenses and keeps one consolidated, signed
// balance per pair of users so that "what do I owe" never needs the
// expense history.
package ledger

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/billbatista/splitledger/split"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Expense struct {
	ID          uuid.UUID       `json:"id,omitempty"`
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	SplitType   split.Type      `json:"split_type,omitempty"`
	PaidBy      uuid.UUID       `json:"paid_by,omitempty"`
	GroupID     uuid.NullUUID   `json:"group_id"`
	CreatedAt   time.Time       `json:"created_at,omitempty"`
	Shares      []ExpenseShare  `json:"shares,omitempty"`
}

type ExpenseShare struct {
	ID        uuid.UUID       `json:"id,omitempty"`
	ExpenseID uuid.UUID       `json:"expense_id,omitempty"`
	UserID    uuid.UUID       `json:"user_id,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Settled   bool            `json:"settled"`
	SettledAt *time.Time      `json:"settled_at,omitempty"`
}

// Settle marks the share as paid. It does not touch the ledger balance.
func (s *ExpenseShare) Settle(at time.Time) error {
	if s.Settled {
		return ErrShareAlreadySettled
	}
	s.Settled = true
	s.SettledAt = &at
	return nil
}

// NewExpense is what a caller supplies to post an expense. Participants
// order matters to the equal and percentage split policies.
type NewExpense struct {
	PayerID      uuid.UUID
	GroupID      uuid.NullUUID
	Description  string
	Amount       decimal.Decimal
	SplitType    split.Type
	Participants []uuid.UUID
	SplitDetails map[uuid.UUID]decimal.Decimal
}

func (n NewExpense) validate() error {
	if n.Description == "" {
		return ErrEmptyDescription
	}
	if n.PayerID == uuid.Nil {
		return fmt.Errorf("%w: payer is required", ErrInvalidInput)
	}
	return nil
}

// Debt is one counterpart and the amount owed between them and the
// user a Balance belongs to.
type Debt struct {
	UserID uuid.UUID       `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
}

// Balance is a user's consolidated position: who owes them and whom
// they owe. Each counterpart with a nonzero balance appears once.
type Balance struct {
	UserID     uuid.UUID `json:"user_id"`
	OwedToUser []Debt    `json:"owed_to_user"`
	OwedByUser []Debt    `json:"owed_by_user"`
}

// TotalOwedToUser sums OwedToUser.
func (b Balance) TotalOwedToUser() decimal.Decimal {
	return sumDebts(b.OwedToUser)
}

// TotalOwedByUser sums OwedByUser.
func (b Balance) TotalOwedByUser() decimal.Decimal {
	return sumDebts(b.OwedByUser)
}

func sumDebts(debts []Debt) decimal.Decimal {
	total := decimal.Zero
	for _, d := range debts {
		total = total.Add(d.Amount)
	}
	return total
}

// pair is an unordered pair of users stored low-first. The order only
// exists to give every pair a single row.
type pair struct {
	low  uuid.UUID
	high uuid.UUID
}

func newPair(a, b uuid.UUID) pair {
	if bytes.Compare(a[:], b[:]) < 0 {
		return pair{low: a, high: b}
	}
	return pair{low: b, high: a}
}

// entry is the stored balance of a pair. A positive amount means low
// owes high, a negative amount means high owes low.
type entry struct {
	ID        uuid.UUID
	LowUser   uuid.UUID
	HighUser  uuid.UUID
	Amount    decimal.Decimal
	Version   int64
	UpdatedAt time.Time
}

func (e entry) pair() pair {
	return pair{low: e.LowUser, high: e.HighUser}
}

// direction resolves the entry into debtor, creditor and magnitude. ok
// is false for a settled (zero) entry.
func (e entry) direction() (debtor, creditor uuid.UUID, amount decimal.Decimal, ok bool) {
	switch e.Amount.Sign() {
	case 1:
		return e.LowUser, e.HighUser, e.Amount, true
	case -1:
		return e.HighUser, e.LowUser, e.Amount.Abs(), true
	default:
		return uuid.Nil, uuid.Nil, decimal.Zero, false
	}
}

var (
	ErrEmptyDescription = errors.New("description can't be empty")
	ErrInvalidAmount    = errors.New("amount must be positive with at most 2 decimal places")
	ErrInvalidInput     = errors.New("invalid input")
)
