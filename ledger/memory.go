package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var _ Store = (*memoryStore)(nil)

type memoryStore struct {
	mu       sync.Mutex
	expenses map[uuid.UUID]Expense
	shares   map[uuid.UUID]storedShare
	entries  map[pair]entry
	// order records commit order, breaking CreatedAt ties.
	order map[uuid.UUID]int64
	seq   int64
}

type storedShare struct {
	ExpenseShare
	position int
}

// NewMemoryStore returns a Store that keeps everything in process. Pair
// balances follow the same optimistic versioning as the Postgres store:
// writes are checked when made and checked again at commit.
func NewMemoryStore() *memoryStore {
	return &memoryStore{
		expenses: make(map[uuid.UUID]Expense),
		shares:   make(map[uuid.UUID]storedShare),
		entries:  make(map[pair]entry),
		order:    make(map[uuid.UUID]int64),
	}
}

type stagedEntry struct {
	entry       entry
	baseVersion int64
	created     bool
}

type memoryTx struct {
	s        *memoryStore
	expenses []Expense
	shares   []storedShare
	entries  map[pair]stagedEntry
}

func (m *memoryStore) withTx(ctx context.Context, fn func(tx storeTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memoryTx{s: m, entries: make(map[pair]stagedEntry)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return tx.commit()
}

func (tx *memoryTx) commit() error {
	m := tx.s
	m.mu.Lock()
	defer m.mu.Unlock()

	for p, st := range tx.entries {
		committed, exists := m.entries[p]
		if st.created && exists {
			return fmt.Errorf("committing new balance: %w", ErrConcurrentModification)
		}
		if !st.created && (!exists || committed.Version != st.baseVersion) {
			return fmt.Errorf("committing balance: %w", ErrConcurrentModification)
		}
	}

	for p, st := range tx.entries {
		m.entries[p] = st.entry
	}
	for _, e := range tx.expenses {
		m.seq++
		e.Shares = nil
		m.expenses[e.ID] = e
		m.order[e.ID] = m.seq
	}
	for _, sh := range tx.shares {
		m.shares[sh.ID] = sh
	}
	return nil
}

func (tx *memoryTx) insertExpense(_ context.Context, e *Expense) error {
	tx.expenses = append(tx.expenses, *e)
	return nil
}

func (tx *memoryTx) insertShare(_ context.Context, s *ExpenseShare, position int) error {
	tx.shares = append(tx.shares, storedShare{ExpenseShare: *s, position: position})
	return nil
}

func (tx *memoryTx) findEntry(_ context.Context, p pair) (*entry, error) {
	if st, ok := tx.entries[p]; ok {
		e := st.entry
		return &e, nil
	}

	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	if e, ok := tx.s.entries[p]; ok {
		return &e, nil
	}
	return nil, nil
}

func (tx *memoryTx) insertEntry(_ context.Context, e *entry) error {
	p := e.pair()
	if _, ok := tx.entries[p]; ok {
		return errDuplicatePair
	}

	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	if _, ok := tx.s.entries[p]; ok {
		return errDuplicatePair
	}
	tx.entries[p] = stagedEntry{entry: *e, created: true}
	return nil
}

func (tx *memoryTx) updateEntry(_ context.Context, e *entry, prevVersion int64) error {
	p := e.pair()
	if st, ok := tx.entries[p]; ok {
		if st.entry.Version != prevVersion {
			return ErrConcurrentModification
		}
		st.entry = *e
		tx.entries[p] = st
		return nil
	}

	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	committed, ok := tx.s.entries[p]
	if !ok || committed.Version != prevVersion {
		return ErrConcurrentModification
	}
	tx.entries[p] = stagedEntry{entry: *e, baseVersion: prevVersion}
	return nil
}

func (m *memoryStore) entriesFor(_ context.Context, userID uuid.UUID) ([]entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []entry
	for _, e := range m.entries {
		if e.LowUser == userID || e.HighUser == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryStore) expense(_ context.Context, id uuid.UUID) (*Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.expenses[id]
	if !ok {
		return nil, ErrExpenseNotFound
	}
	e.Shares = m.sharesOf(id)
	return &e, nil
}

func (m *memoryStore) expensesForUser(_ context.Context, userID uuid.UUID) ([]Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	involved := make(map[uuid.UUID]bool)
	for _, e := range m.expenses {
		if e.PaidBy == userID {
			involved[e.ID] = true
		}
	}
	for _, sh := range m.shares {
		if sh.UserID == userID {
			involved[sh.ExpenseID] = true
		}
	}
	return m.collect(func(e Expense) bool { return involved[e.ID] }), nil
}

func (m *memoryStore) expensesForGroup(_ context.Context, groupID uuid.UUID) ([]Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.collect(func(e Expense) bool {
		return e.GroupID.Valid && e.GroupID.UUID == groupID
	}), nil
}

func (m *memoryStore) unsettledShares(_ context.Context, userID uuid.UUID) ([]ExpenseShare, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []storedShare
	for _, sh := range m.shares {
		if sh.UserID == userID && !sh.Settled {
			out = append(out, sh)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExpenseID != out[j].ExpenseID {
			return m.newer(out[i].ExpenseID, out[j].ExpenseID)
		}
		return out[i].position < out[j].position
	})

	shares := make([]ExpenseShare, 0, len(out))
	for _, sh := range out {
		shares = append(shares, sh.ExpenseShare)
	}
	return shares, nil
}

func (m *memoryStore) settleShare(_ context.Context, shareID uuid.UUID, at time.Time) (*ExpenseShare, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sh, ok := m.shares[shareID]
	if !ok {
		return nil, ErrShareNotFound
	}
	if err := sh.Settle(at); err != nil {
		return nil, err
	}
	m.shares[shareID] = sh
	out := sh.ExpenseShare
	return &out, nil
}

// collect returns the matching expenses, newest first, with their shares.
// The caller holds m.mu.
func (m *memoryStore) collect(match func(Expense) bool) []Expense {
	out := []Expense{}
	for _, e := range m.expenses {
		if match(e) {
			e.Shares = m.sharesOf(e.ID)
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return m.newer(out[i].ID, out[j].ID)
	})
	return out
}

// newer reports whether expense a was created after expense b. The
// caller holds m.mu.
func (m *memoryStore) newer(a, b uuid.UUID) bool {
	ea, eb := m.expenses[a], m.expenses[b]
	if !ea.CreatedAt.Equal(eb.CreatedAt) {
		return ea.CreatedAt.After(eb.CreatedAt)
	}
	return m.order[a] > m.order[b]
}

// sharesOf returns an expense's shares in split order. The caller holds m.mu.
func (m *memoryStore) sharesOf(expenseID uuid.UUID) []ExpenseShare {
	var stored []storedShare
	for _, sh := range m.shares {
		if sh.ExpenseID == expenseID {
			stored = append(stored, sh)
		}
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].position < stored[j].position })

	shares := make([]ExpenseShare, 0, len(stored))
	for _, sh := range stored {
		shares = append(shares, sh.ExpenseShare)
	}
	return shares
}
