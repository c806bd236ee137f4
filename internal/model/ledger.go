package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentCompleted is the status stamped on every recorded payment.
const PaymentCompleted = "COMPLETED"

// LedgerEntry is one immutable payment transaction between a user and a
// mess. It corresponds to a row in the `payments` table and is never
// updated after insertion.
//
// TotalDues always equals AmountPaid + RemainingDues at creation time.
// The outstanding balance for a (user, mess) pair is the RemainingDues of
// the most recently dated entry, not a running sum.
type LedgerEntry struct {
	ID            string
	UserEmail     string
	OwnerEmail    string
	MessID        string
	TotalDues     decimal.Decimal
	AmountPaid    decimal.Decimal
	RemainingDues decimal.Decimal
	PaymentDate   time.Time
	PaymentMethod string
	TransactionID string
	Status        string
	Notes         string
	PeriodStart   *time.Time
	PeriodEnd     *time.Time
}

// LedgerView decorates an entry with display names resolved from the
// identity lookup. Names are empty when the lookup misses.
type LedgerView struct {
	LedgerEntry
	UserName string
	MessName string
}
