package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/mymess-backend/internal/model"
)

// IdentityRepo is a read-only view over the users and messes tables,
// which are owned by the profile service. The booking and ledger code
// only needs to resolve identities and read pricing fields.
type IdentityRepo struct {
	db *sql.DB
}

// NewIdentityRepo returns a new IdentityRepo bound to the given database.
func NewIdentityRepo(db *sql.DB) *IdentityRepo { return &IdentityRepo{db: db} }

// UserByEmail returns the user with the given email or ErrNotFound.
func (r *IdentityRepo) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx, `SELECT email, name FROM users WHERE email = ?`, email).
		Scan(&u.Email, &u.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// MessByID returns the mess with the given id or ErrNotFound.
func (r *IdentityRepo) MessByID(ctx context.Context, id string) (*model.Mess, error) {
	const q = `SELECT id, email, owner_name, mess_name, price_per_meal, subscription_plan
		FROM messes WHERE id = ?`
	var (
		m     model.Mess
		price sql.NullInt64
		plan  sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(&m.ID, &m.Email, &m.OwnerName, &m.MessName, &price, &plan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if price.Valid {
		p := int(price.Int64)
		m.PricePerMeal = &p
	}
	if plan.Valid {
		p := int(plan.Int64)
		m.SubscriptionPlan = &p
	}
	return &m, nil
}
