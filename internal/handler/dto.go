package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/mymess-backend/internal/model"
)

// ReservationDTO is the JSON form of a booking slot.
type ReservationDTO struct {
	ID          string           `json:"id"`
	UserEmail   string           `json:"userEmail"`
	UserName    string           `json:"userName"`
	MessID      string           `json:"messId"`
	MessEmail   string           `json:"messEmail"`
	MessName    string           `json:"messName"`
	Date        string           `json:"date"`
	TimeSlot    string           `json:"timeSlot"`
	Status      model.SlotStatus `json:"status"`
	Paid        bool             `json:"paid"`
	PaymentID   *string          `json:"paymentId"`
	Amount      *decimal.Decimal `json:"amount"`
	CancelledBy *model.Actor     `json:"cancelledBy,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	ApprovedAt  *time.Time       `json:"approvedAt,omitempty"`
	ConfirmedAt *time.Time       `json:"confirmedAt,omitempty"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
	CancelledAt *time.Time       `json:"cancelledAt,omitempty"`
}

func toReservationDTO(r model.Reservation) ReservationDTO {
	out := ReservationDTO{
		ID:          r.ID,
		UserEmail:   r.UserEmail,
		UserName:    r.UserName,
		MessID:      r.MessID,
		MessEmail:   r.MessEmail,
		MessName:    r.MessName,
		Date:        r.Date.Format(model.DateLayout),
		TimeSlot:    r.TimeSlot,
		Status:      r.Status,
		Paid:        r.Paid,
		PaymentID:   r.PaymentID,
		CancelledBy: r.CancelledBy,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		ApprovedAt:  r.ApprovedAt,
		ConfirmedAt: r.ConfirmedAt,
		CompletedAt: r.CompletedAt,
		CancelledAt: r.CancelledAt,
	}
	if r.Amount.Valid {
		amount := r.Amount.Decimal
		out.Amount = &amount
	}
	return out
}

// bookingBody is the POST /slot/book payload.
type bookingBody struct {
	UserEmail string           `json:"userEmail"`
	UserName  string           `json:"userName"`
	MessID    string           `json:"messId"`
	MessEmail string           `json:"messEmail"`
	MessName  string           `json:"messName"`
	Date      string           `json:"date"`
	TimeSlot  string           `json:"timeSlot"`
	Amount    *decimal.Decimal `json:"amount"`
}

// updateBody is the PUT /slot/:id payload. Absent fields stay unchanged.
type updateBody struct {
	Date     *string          `json:"date"`
	TimeSlot *string          `json:"timeSlot"`
	Amount   *decimal.Decimal `json:"amount"`
}

// PaymentDTO is the JSON form of a ledger entry with display names.
type PaymentDTO struct {
	ID            string          `json:"id"`
	UserEmail     string          `json:"userEmail"`
	UserName      string          `json:"userName,omitempty"`
	OwnerEmail    string          `json:"ownerEmail"`
	MessID        string          `json:"messId"`
	MessName      string          `json:"messName,omitempty"`
	TotalDues     decimal.Decimal `json:"totalDues"`
	AmountPaid    decimal.Decimal `json:"amountPaid"`
	RemainingDues decimal.Decimal `json:"remainingDues"`
	PaymentDate   time.Time       `json:"paymentDate"`
	PaymentMethod string          `json:"paymentMethod,omitempty"`
	TransactionID string          `json:"transactionId,omitempty"`
	Status        string          `json:"status"`
	Notes         string          `json:"notes,omitempty"`
	PeriodStart   string          `json:"periodStart,omitempty"`
	PeriodEnd     string          `json:"periodEnd,omitempty"`
}

func toPaymentDTO(v model.LedgerView) PaymentDTO {
	return PaymentDTO{
		ID:            v.ID,
		UserEmail:     v.UserEmail,
		UserName:      v.UserName,
		OwnerEmail:    v.OwnerEmail,
		MessID:        v.MessID,
		MessName:      v.MessName,
		TotalDues:     v.TotalDues,
		AmountPaid:    v.AmountPaid,
		RemainingDues: v.RemainingDues,
		PaymentDate:   v.PaymentDate,
		PaymentMethod: v.PaymentMethod,
		TransactionID: v.TransactionID,
		Status:        v.Status,
		Notes:         v.Notes,
		PeriodStart:   formatDay(v.PeriodStart),
		PeriodEnd:     formatDay(v.PeriodEnd),
	}
}

func formatDay(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(model.DateLayout)
}

// NotificationDTO is the JSON form of an inbox message.
type NotificationDTO struct {
	ID              string    `json:"id"`
	RecipientEmail  string    `json:"recipientEmail"`
	SenderEmail     string    `json:"senderEmail"`
	SenderName      string    `json:"senderName"`
	Title           string    `json:"title"`
	Message         string    `json:"message"`
	Type            string    `json:"type"`
	RelatedEntityID string    `json:"relatedEntityId"`
	Read            bool      `json:"read"`
	CreatedAt       time.Time `json:"createdAt"`
}

func toNotificationDTO(n model.Notification) NotificationDTO {
	return NotificationDTO{
		ID:              n.ID,
		RecipientEmail:  n.RecipientEmail,
		SenderEmail:     n.SenderEmail,
		SenderName:      n.SenderName,
		Title:           n.Title,
		Message:         n.Message,
		Type:            n.Type,
		RelatedEntityID: n.RelatedEntityID,
		Read:            n.Read,
		CreatedAt:       n.CreatedAt,
	}
}
