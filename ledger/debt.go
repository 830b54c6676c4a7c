package ledger

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// adjustDebt records that ower owes owee delta more (a negative delta
// reduces the debt). It is the only code that changes a pair balance.
func adjustDebt(ctx context.Context, tx storeTx, ower, owee uuid.UUID, delta decimal.Decimal, now time.Time) error {
	if ower == owee {
		return nil
	}

	p := newPair(ower, owee)
	signed := delta
	if ower == p.high {
		signed = delta.Neg()
	}

	current, err := tx.findEntry(ctx, p)
	if err != nil {
		return err
	}

	if current == nil {
		created := &entry{
			ID:        uuid.New(),
			LowUser:   p.low,
			HighUser:  p.high,
			Amount:    signed,
			UpdatedAt: now,
		}
		err = tx.insertEntry(ctx, created)
		if err == nil {
			return nil
		}
		if !errors.Is(err, errDuplicatePair) {
			return err
		}

		// Lost the race to create the pair: apply on top of the winner's row, once.
		current, err = tx.findEntry(ctx, p)
		if err != nil {
			return err
		}
		if current == nil {
			return &ConflictError{Ower: ower, Owee: owee}
		}
	}

	next := *current
	next.Amount = current.Amount.Add(signed)
	next.Version = current.Version + 1
	next.UpdatedAt = now

	err = tx.updateEntry(ctx, &next, current.Version)
	if errors.Is(err, ErrConcurrentModification) {
		return &ConflictError{Ower: ower, Owee: owee}
	}
	return err
}

// consolidate turns the stored entries touching userID into the user's
// creditor/debtor view. Settled entries are skipped.
func consolidate(userID uuid.UUID, entries []entry) Balance {
	b := Balance{
		UserID:     userID,
		OwedToUser: []Debt{},
		OwedByUser: []Debt{},
	}

	for _, e := range entries {
		debtor, creditor, amount, ok := e.direction()
		if !ok {
			continue
		}
		switch userID {
		case creditor:
			b.OwedToUser = append(b.OwedToUser, Debt{UserID: debtor, Amount: amount})
		case debtor:
			b.OwedByUser = append(b.OwedByUser, Debt{UserID: creditor, Amount: amount})
		}
	}

	sortDebts(b.OwedToUser)
	sortDebts(b.OwedByUser)
	return b
}

func sortDebts(debts []Debt) {
	sort.Slice(debts, func(i, j int) bool {
		return bytes.Compare(debts[i].UserID[:], debts[j].UserID[:]) < 0
	})
}
