package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/mymess-backend/internal/model"
)

// SlotRepo persists meal-slot reservations in the booking_slots table.
// Every reservation is one flat row keyed by its UUID. All timestamps are
// stored in UTC; slot_date is a DATE column.
type SlotRepo struct {
	db *sql.DB
}

// NewSlotRepo returns a new SlotRepo bound to the given database.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

// DB exposes the underlying handle so callers can share transactions.
func (r *SlotRepo) DB() *sql.DB { return r.db }

const slotColumns = `id, user_email, user_name, mess_id, mess_email, mess_name,
	slot_date, time_slot, status, is_paid, payment_id, amount, cancelled_by,
	created_at, updated_at, approved_at, confirmed_at, completed_at, cancelled_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(s rowScanner) (*model.Reservation, error) {
	var (
		res         model.Reservation
		status      string
		paymentID   sql.NullString
		cancelledBy sql.NullString
		approvedAt  sql.NullTime
		confirmedAt sql.NullTime
		completedAt sql.NullTime
		cancelledAt sql.NullTime
	)
	err := s.Scan(
		&res.ID, &res.UserEmail, &res.UserName, &res.MessID, &res.MessEmail, &res.MessName,
		&res.Date, &res.TimeSlot, &status, &res.Paid, &paymentID, &res.Amount, &cancelledBy,
		&res.CreatedAt, &res.UpdatedAt, &approvedAt, &confirmedAt, &completedAt, &cancelledAt,
	)
	if err != nil {
		return nil, err
	}
	res.Status = model.SlotStatus(status)
	if paymentID.Valid {
		p := paymentID.String
		res.PaymentID = &p
	}
	if cancelledBy.Valid {
		a := model.Actor(cancelledBy.String)
		res.CancelledBy = &a
	}
	res.ApprovedAt = nullTimePtr(approvedAt)
	res.ConfirmedAt = nullTimePtr(confirmedAt)
	res.CompletedAt = nullTimePtr(completedAt)
	res.CancelledAt = nullTimePtr(cancelledAt)
	return &res, nil
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullActor(a *model.Actor) sql.NullString {
	if a == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*a), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// Create inserts a new reservation. The caller assigns the ID and the
// initial timestamps. A duplicate ID yields ErrConflict.
func (r *SlotRepo) Create(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO booking_slots (` + slotColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		res.ID, res.UserEmail, res.UserName, res.MessID, res.MessEmail, res.MessName,
		res.Date, res.TimeSlot, string(res.Status), res.Paid, nullString(res.PaymentID), res.Amount,
		nullActor(res.CancelledBy), res.CreatedAt, res.UpdatedAt,
		nullTime(res.ApprovedAt), nullTime(res.ConfirmedAt), nullTime(res.CompletedAt), nullTime(res.CancelledAt),
	)
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return ErrConflict
	}
	return err
}

// GetByID loads a single reservation. ErrNotFound is returned when no row
// has the given id.
func (r *SlotRepo) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM booking_slots WHERE id = ?`, id)
	res, err := scanSlot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return res, err
}

// List returns the reservations matching f ordered by slot date and
// creation time. An empty slice is returned when nothing matches.
func (r *SlotRepo) List(ctx context.Context, f SlotFilter) ([]model.Reservation, error) {
	where := []string{}
	args := []any{}
	if f.UserEmail != "" {
		where = append(where, "user_email = ?")
		args = append(args, f.UserEmail)
	}
	if f.MessEmail != "" {
		where = append(where, "mess_email = ?")
		args = append(args, f.MessEmail)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Date != nil {
		where = append(where, "slot_date = ?")
		args = append(args, f.Date.Format(model.DateLayout))
	}
	if f.TimeSlot != "" {
		where = append(where, "time_slot = ?")
		args = append(args, f.TimeSlot)
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}
	q := `SELECT ` + slotColumns + ` FROM booking_slots WHERE ` + cond + ` ORDER BY slot_date ASC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Reservation{}
	for rows.Next() {
		res, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

// CountActive counts APPROVED and CONFIRMED reservations for one slot.
// PENDING, CANCELLED and COMPLETED rows do not occupy a place.
func (r *SlotRepo) CountActive(ctx context.Context, key model.SlotKey) (int, error) {
	const q = `SELECT COUNT(*) FROM booking_slots
		WHERE mess_email = ? AND slot_date = ? AND time_slot = ? AND status IN ('APPROVED', 'CONFIRMED')`
	var n int
	err := r.db.QueryRowContext(ctx, q, key.MessEmail, key.Date.Format(model.DateLayout), key.TimeSlot).Scan(&n)
	return n, err
}

// Transition performs an atomic read-modify-write on one reservation. The
// row is locked with SELECT ... FOR UPDATE, handed to fn, and written back
// only when fn returns nil; an error from fn aborts the transaction and is
// returned unchanged. This keeps the status precondition check and the
// update in the same transaction so concurrent transitions cannot both
// succeed.
func (r *SlotRepo) Transition(ctx context.Context, id string, fn func(*model.Reservation) error) (*model.Reservation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	row := tx.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM booking_slots WHERE id = ? FOR UPDATE`, id)
	res, err := scanSlot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := fn(res); err != nil {
		return nil, err
	}

	const upd = `UPDATE booking_slots SET
			slot_date = ?, time_slot = ?, status = ?, is_paid = ?, payment_id = ?, amount = ?,
			cancelled_by = ?, updated_at = ?, approved_at = ?, confirmed_at = ?, completed_at = ?, cancelled_at = ?
		WHERE id = ?`
	if _, err := tx.ExecContext(ctx, upd,
		res.Date, res.TimeSlot, string(res.Status), res.Paid, nullString(res.PaymentID), res.Amount,
		nullActor(res.CancelledBy), res.UpdatedAt,
		nullTime(res.ApprovedAt), nullTime(res.ConfirmedAt), nullTime(res.CompletedAt), nullTime(res.CancelledAt),
		res.ID,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return res, nil
}

// Delete hard-removes a reservation. ErrNotFound is returned when no row
// was deleted.
func (r *SlotRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM booking_slots WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
