package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/mymess-backend/internal/model"
)

// PaymentRepo is the append-only store for ledger entries (the payments
// table). It exposes no update or delete: entries are immutable once
// written. The auto-increment seq column records insertion order and
// breaks ties between entries that share a payment_date.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentColumns = `id, user_email, owner_email, mess_id, total_dues, amount_paid, remaining_dues,
	payment_date, payment_method, transaction_id, status, notes, period_start, period_end`

func scanPayment(s rowScanner) (*model.LedgerEntry, error) {
	var (
		e           model.LedgerEntry
		method      sql.NullString
		txnID       sql.NullString
		notes       sql.NullString
		periodStart sql.NullTime
		periodEnd   sql.NullTime
	)
	err := s.Scan(
		&e.ID, &e.UserEmail, &e.OwnerEmail, &e.MessID, &e.TotalDues, &e.AmountPaid, &e.RemainingDues,
		&e.PaymentDate, &method, &txnID, &e.Status, &notes, &periodStart, &periodEnd,
	)
	if err != nil {
		return nil, err
	}
	e.PaymentDate = e.PaymentDate.UTC()
	e.PaymentMethod = method.String
	e.TransactionID = txnID.String
	e.Notes = notes.String
	e.PeriodStart = nullTimePtr(periodStart)
	e.PeriodEnd = nullTimePtr(periodEnd)
	return &e, nil
}

func emptyNull(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Append inserts a new ledger entry. The caller computes TotalDues and
// assigns the ID and PaymentDate.
func (r *PaymentRepo) Append(ctx context.Context, e *model.LedgerEntry) error {
	const q = `INSERT INTO payments (` + paymentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		e.ID, e.UserEmail, e.OwnerEmail, e.MessID, e.TotalDues, e.AmountPaid, e.RemainingDues,
		e.PaymentDate, emptyNull(e.PaymentMethod), emptyNull(e.TransactionID), e.Status, emptyNull(e.Notes),
		nullTime(e.PeriodStart), nullTime(e.PeriodEnd),
	)
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return ErrConflict
	}
	return err
}

// Latest returns the most recently dated entry for a user at a mess.
// ErrNotFound is returned when the pair has no entries yet.
func (r *PaymentRepo) Latest(ctx context.Context, userEmail, messID string) (*model.LedgerEntry, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments
		WHERE user_email = ? AND mess_id = ?
		ORDER BY payment_date DESC, seq DESC
		LIMIT 1`
	e, err := scanPayment(r.db.QueryRowContext(ctx, q, userEmail, messID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// List returns the entries matching f, oldest first.
func (r *PaymentRepo) List(ctx context.Context, f PaymentFilter) ([]model.LedgerEntry, error) {
	where := []string{}
	args := []any{}
	if f.UserEmail != "" {
		where = append(where, "user_email = ?")
		args = append(args, f.UserEmail)
	}
	if f.MessID != "" {
		where = append(where, "mess_id = ?")
		args = append(args, f.MessID)
	}
	if f.From != nil {
		where = append(where, "payment_date >= ?")
		args = append(args, *f.From)
	}
	if f.To != nil {
		where = append(where, "payment_date <= ?")
		args = append(args, *f.To)
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE ` + cond + ` ORDER BY payment_date ASC, seq ASC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.LedgerEntry{}
	for rows.Next() {
		e, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}
