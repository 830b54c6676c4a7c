package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/billbatista/splitledger/split"
	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IdentityResolver confirms that every id names an existing user and
// returns a not-found error naming the ones that do not.
type IdentityResolver interface {
	Resolve(ctx context.Context, ids ...uuid.UUID) error
}

// MembershipPolicy rejects users that do not belong to a group.
type MembershipPolicy interface {
	CheckMembers(ctx context.Context, groupID uuid.UUID, userIDs ...uuid.UUID) error
}

const (
	defaultMaxAttempts   = 5
	defaultRetryInterval = 10 * time.Millisecond
)

type Service struct {
	store         Store
	identities    IdentityResolver
	membership    MembershipPolicy
	maxAttempts   uint
	retryInterval time.Duration
	now           func() time.Time
}

type Option func(*Service)

func WithIdentityResolver(r IdentityResolver) Option {
	return func(s *Service) {
		s.identities = r
	}
}

func WithMembershipPolicy(m MembershipPolicy) Option {
	return func(s *Service) {
		s.membership = m
	}
}

// WithMaxAttempts bounds how many times a unit of work is run when it
// keeps losing version conflicts.
func WithMaxAttempts(n uint) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithRetryInterval(d time.Duration) Option {
	return func(s *Service) {
		s.retryInterval = d
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:         store,
		maxAttempts:   defaultMaxAttempts,
		retryInterval: defaultRetryInterval,
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PostExpense records an expense paid by n.PayerID, splits it among the
// participants and adds every share to the balance between participant
// and payer. Expense, shares and balance changes commit together or not
// at all; version conflicts rerun the whole unit of work.
func (s *Service) PostExpense(ctx context.Context, n NewExpense) (*Expense, error) {
	if err := n.validate(); err != nil {
		return nil, err
	}

	shares, err := split.Split(n.Amount, n.Participants, n.SplitType, n.SplitDetails)
	if err != nil {
		return nil, err
	}

	if err := s.resolve(ctx, append([]uuid.UUID{n.PayerID}, n.Participants...)...); err != nil {
		return nil, err
	}
	if n.GroupID.Valid && s.membership != nil {
		if err := s.membership.CheckMembers(ctx, n.GroupID.UUID, append([]uuid.UUID{n.PayerID}, n.Participants...)...); err != nil {
			return nil, err
		}
	}

	return retry(ctx, s, func() (*Expense, error) {
		now := s.now()
		expense := &Expense{
			ID:          uuid.New(),
			Description: n.Description,
			Amount:      n.Amount,
			SplitType:   n.SplitType,
			PaidBy:      n.PayerID,
			GroupID:     n.GroupID,
			CreatedAt:   now,
			Shares:      make([]ExpenseShare, 0, len(shares)),
		}

		err := s.store.withTx(ctx, func(tx storeTx) error {
			if err := tx.insertExpense(ctx, expense); err != nil {
				return fmt.Errorf("inserting expense: %w", err)
			}
			for i, sh := range shares {
				share := ExpenseShare{
					ID:        uuid.New(),
					ExpenseID: expense.ID,
					UserID:    sh.Participant,
					Amount:    sh.Amount,
				}
				if err := tx.insertShare(ctx, &share, i); err != nil {
					return fmt.Errorf("inserting expense share: %w", err)
				}
				if err := adjustDebt(ctx, tx, sh.Participant, n.PayerID, sh.Amount, now); err != nil {
					return err
				}
				expense.Shares = append(expense.Shares, share)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return expense, nil
	})
}

// SettlePayment records that payer paid recipient amount, reducing what
// payer owes. Paying more than is owed flips the direction of the debt.
func (s *Service) SettlePayment(ctx context.Context, payer, recipient uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() || !split.IsMinorUnit(amount) {
		return fmt.Errorf("%w: got %s", ErrInvalidAmount, amount)
	}
	if err := s.resolve(ctx, payer, recipient); err != nil {
		return err
	}

	_, err := retry(ctx, s, func() (struct{}, error) {
		return struct{}{}, s.store.withTx(ctx, func(tx storeTx) error {
			return adjustDebt(ctx, tx, payer, recipient, amount.Neg(), s.now())
		})
	})
	return err
}

// AdjustDebt applies a single balance change in its own transaction. It
// does not retry: a lost version race surfaces as a *ConflictError.
func (s *Service) AdjustDebt(ctx context.Context, ower, owee uuid.UUID, delta decimal.Decimal) error {
	return s.store.withTx(ctx, func(tx storeTx) error {
		return adjustDebt(ctx, tx, ower, owee, delta, s.now())
	})
}

// GetConsolidatedBalance reads the user's position from the pair
// balances alone. The caller checks that the user exists.
func (s *Service) GetConsolidatedBalance(ctx context.Context, userID uuid.UUID) (Balance, error) {
	entries, err := s.store.entriesFor(ctx, userID)
	if err != nil {
		return Balance{}, fmt.Errorf("querying balances: %w", err)
	}
	return consolidate(userID, entries), nil
}

func (s *Service) GetExpense(ctx context.Context, id uuid.UUID) (*Expense, error) {
	return s.store.expense(ctx, id)
}

// ListUserExpenses returns the expenses the user paid or has a share in,
// newest first.
func (s *Service) ListUserExpenses(ctx context.Context, userID uuid.UUID) ([]Expense, error) {
	return s.store.expensesForUser(ctx, userID)
}

func (s *Service) ListGroupExpenses(ctx context.Context, groupID uuid.UUID) ([]Expense, error) {
	return s.store.expensesForGroup(ctx, groupID)
}

func (s *Service) ListUnsettledShares(ctx context.Context, userID uuid.UUID) ([]ExpenseShare, error) {
	return s.store.unsettledShares(ctx, userID)
}

// SettleShare flags one share as paid. Pair balances are left alone:
// they only move through PostExpense and SettlePayment.
func (s *Service) SettleShare(ctx context.Context, shareID uuid.UUID) (*ExpenseShare, error) {
	return s.store.settleShare(ctx, shareID, s.now())
}

func (s *Service) resolve(ctx context.Context, ids ...uuid.UUID) error {
	if s.identities == nil {
		return nil
	}
	return s.identities.Resolve(ctx, ids...)
}

// retry reruns op while it fails with ErrConcurrentModification. Any
// other error stops at once.
func retry[T any](ctx context.Context, s *Service, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retryInterval

	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && !errors.Is(err, ErrConcurrentModification) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(s.maxAttempts))
}
