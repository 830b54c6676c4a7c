package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var _ Store = (*repository)(nil)

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *repository {
	return &repository{db: db}
}

func (r *repository) withTx(ctx context.Context, fn func(tx storeTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) insertExpense(ctx context.Context, e *Expense) error {
	query := `INSERT INTO expenses (id, description, amount, split_type, paid_by, group_id, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := t.tx.ExecContext(
		ctx,
		query,
		e.ID,
		e.Description,
		e.Amount,
		e.SplitType,
		e.PaidBy,
		e.GroupID,
		e.CreatedAt,
	)
	return err
}

func (t *sqlTx) insertShare(ctx context.Context, s *ExpenseShare, position int) error {
	query := `INSERT INTO expense_shares (id, expense_id, user_id, position, amount, settled) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := t.tx.ExecContext(ctx, query, s.ID, s.ExpenseID, s.UserID, position, s.Amount, s.Settled)
	return err
}

func (t *sqlTx) findEntry(ctx context.Context, p pair) (*entry, error) {
	query := `SELECT id, low_user, high_user, signed_amount, version, updated_at FROM debt_ledger WHERE low_user = $1 AND high_user = $2`

	var e entry
	err := t.tx.QueryRowContext(ctx, query, p.low, p.high).Scan(
		&e.ID,
		&e.LowUser,
		&e.HighUser,
		&e.Amount,
		&e.Version,
		&e.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying balance: %w", err)
	}
	return &e, nil
}

func (t *sqlTx) insertEntry(ctx context.Context, e *entry) error {
	// ON CONFLICT waits for a concurrent creator to finish instead of
	// aborting our transaction with a unique violation.
	query := `INSERT INTO debt_ledger (id, low_user, high_user, signed_amount, version, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6)
              ON CONFLICT (low_user, high_user) DO NOTHING`

	res, err := t.tx.ExecContext(ctx, query, e.ID, e.LowUser, e.HighUser, e.Amount, e.Version, e.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return errDuplicatePair
		}
		return fmt.Errorf("inserting balance: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errDuplicatePair
	}
	return nil
}

func (t *sqlTx) updateEntry(ctx context.Context, e *entry, prevVersion int64) error {
	query := `UPDATE debt_ledger SET signed_amount = $1, version = $2, updated_at = $3 WHERE id = $4 AND version = $5`

	res, err := t.tx.ExecContext(ctx, query, e.Amount, e.Version, e.UpdatedAt, e.ID, prevVersion)
	if err != nil {
		return fmt.Errorf("updating balance: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConcurrentModification
	}
	return nil
}

func (r *repository) entriesFor(ctx context.Context, userID uuid.UUID) ([]entry, error) {
	query := `SELECT id, low_user, high_user, signed_amount, version, updated_at
              FROM debt_ledger
              WHERE low_user = $1 OR high_user = $1`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []entry
	for rows.Next() {
		var e entry
		err := rows.Scan(&e.ID, &e.LowUser, &e.HighUser, &e.Amount, &e.Version, &e.UpdatedAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

const selectExpense = `SELECT id, description, amount, split_type, paid_by, group_id, created_at FROM expenses`

func (r *repository) expense(ctx context.Context, id uuid.UUID) (*Expense, error) {
	var e Expense
	err := r.db.QueryRowContext(ctx, selectExpense+` WHERE id = $1`, id).Scan(
		&e.ID,
		&e.Description,
		&e.Amount,
		&e.SplitType,
		&e.PaidBy,
		&e.GroupID,
		&e.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrExpenseNotFound
		}
		return nil, fmt.Errorf("querying expense: %w", err)
	}

	shares, err := r.sharesOf(ctx, []uuid.UUID{e.ID})
	if err != nil {
		return nil, err
	}
	e.Shares = shares[e.ID]
	return &e, nil
}

func (r *repository) expensesForUser(ctx context.Context, userID uuid.UUID) ([]Expense, error) {
	query := selectExpense + `
              WHERE paid_by = $1
                 OR id IN (SELECT expense_id FROM expense_shares WHERE user_id = $1)
              ORDER BY created_at DESC`
	return r.listExpenses(ctx, query, userID)
}

func (r *repository) expensesForGroup(ctx context.Context, groupID uuid.UUID) ([]Expense, error) {
	query := selectExpense + `
              WHERE group_id = $1
              ORDER BY created_at DESC`
	return r.listExpenses(ctx, query, groupID)
}

func (r *repository) listExpenses(ctx context.Context, query string, arg any) ([]Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := []Expense{}
	var ids []uuid.UUID
	for rows.Next() {
		var e Expense
		err := rows.Scan(
			&e.ID,
			&e.Description,
			&e.Amount,
			&e.SplitType,
			&e.PaidBy,
			&e.GroupID,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	shares, err := r.sharesOf(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range expenses {
		expenses[i].Shares = shares[expenses[i].ID]
	}
	return expenses, nil
}

func (r *repository) sharesOf(ctx context.Context, expenseIDs []uuid.UUID) (map[uuid.UUID][]ExpenseShare, error) {
	out := make(map[uuid.UUID][]ExpenseShare, len(expenseIDs))
	if len(expenseIDs) == 0 {
		return out, nil
	}

	query := `SELECT id, expense_id, user_id, amount, settled, settled_at
              FROM expense_shares
              WHERE expense_id = ANY($1::uuid[])
              ORDER BY expense_id, position`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(uuidStrings(expenseIDs)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		out[s.ExpenseID] = append(out[s.ExpenseID], s)
	}
	return out, rows.Err()
}

func (r *repository) unsettledShares(ctx context.Context, userID uuid.UUID) ([]ExpenseShare, error) {
	query := `SELECT s.id, s.expense_id, s.user_id, s.amount, s.settled, s.settled_at
              FROM expense_shares s
              INNER JOIN expenses e ON s.expense_id = e.id
              WHERE s.user_id = $1 AND NOT s.settled
              ORDER BY e.created_at DESC, s.position`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shares := []ExpenseShare{}
	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		shares = append(shares, s)
	}
	return shares, rows.Err()
}

func (r *repository) settleShare(ctx context.Context, shareID uuid.UUID, at time.Time) (*ExpenseShare, error) {
	query := `UPDATE expense_shares SET settled = TRUE, settled_at = $2
              WHERE id = $1 AND NOT settled
              RETURNING id, expense_id, user_id, amount, settled, settled_at`

	s, err := scanShare(r.db.QueryRowContext(ctx, query, shareID, at))
	if err == nil {
		return &s, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("settling share: %w", err)
	}

	var exists bool
	err = r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM expense_shares WHERE id = $1)`, shareID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("querying share: %w", err)
	}
	if !exists {
		return nil, ErrShareNotFound
	}
	return nil, ErrShareAlreadySettled
}

type scanner interface {
	Scan(dest ...any) error
}

func scanShare(row scanner) (ExpenseShare, error) {
	var s ExpenseShare
	var settledAt sql.NullTime
	err := row.Scan(&s.ID, &s.ExpenseID, &s.UserID, &s.Amount, &s.Settled, &settledAt)
	if err != nil {
		return s, err
	}
	if settledAt.Valid {
		s.SettledAt = &settledAt.Time
	}
	return s, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
