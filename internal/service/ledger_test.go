package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/mymess-backend/internal/model"
	"github.com/iliyamo/mymess-backend/internal/repository/memory"
)

func intPtr(v int) *int { return &v }

func newLedgerFixture(t *testing.T) (*LedgerService, *memory.IdentityStore, *memory.PaymentStore) {
	t.Helper()
	ids := memory.NewIdentityStore()
	ids.PutUser(model.User{Email: "u1@user.test", Name: "Asha"})
	ids.PutUser(model.User{Email: "u2@user.test", Name: "Ravi"})
	ids.PutMess(model.Mess{ID: "m1", Email: "owner@mess.test", MessName: "Green Mess", PricePerMeal: intPtr(100), SubscriptionPlan: intPtr(30)})
	ids.PutMess(model.Mess{ID: "flat", Email: "flat@mess.test", MessName: "Flat Mess", SubscriptionPlan: intPtr(1500)})
	ids.PutMess(model.Mess{ID: "bare", Email: "bare@mess.test", MessName: "Bare Mess"})
	ids.PutMess(model.Mess{ID: "noprice", Email: "np@mess.test", MessName: "No Price", SubscriptionPlan: intPtr(30)})

	store := memory.NewPaymentStore()
	svc := NewLedgerService(store, ids, nil)
	c := &clock{t: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
	svc.now = c.now
	return svc, ids, store
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRecordPaymentThenOutstanding(t *testing.T) {
	svc, _, _ := newLedgerFixture(t)
	ctx := context.Background()

	e, err := svc.RecordPayment(ctx, "u1@user.test", "owner@mess.test", "m1", dec("300"), dec("200"), PaymentOptions{PaymentMethod: "UPI", TransactionID: "tx-1"})
	if err != nil {
		t.Fatalf("RecordPayment() error = %v", err)
	}
	if !e.TotalDues.Equal(dec("500")) {
		t.Fatalf("totalDues = %s, want 500", e.TotalDues)
	}
	if e.Status != model.PaymentCompleted || e.PaymentMethod != "UPI" || e.TransactionID != "tx-1" {
		t.Fatalf("entry = %+v", e)
	}

	got, err := svc.GetOutstandingDues(ctx, "u1@user.test", "m1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(dec("200")) {
		t.Fatalf("outstanding = %s, want 200", got)
	}

	if _, err := svc.RecordPayment(ctx, "u1@user.test", "owner@mess.test", "m1", dec("150.25"), dec("49.75"), PaymentOptions{}); err != nil {
		t.Fatal(err)
	}
	got, _ = svc.GetOutstandingDues(ctx, "u1@user.test", "m1")
	if !got.Equal(dec("49.75")) {
		t.Fatalf("outstanding after second payment = %s, want 49.75 (latest, not a sum)", got)
	}
}

func TestOutstandingFallback(t *testing.T) {
	svc, _, _ := newLedgerFixture(t)
	tests := []struct {
		mess string
		want string
	}{
		{"m1", "3000"},
		{"flat", "1500"},
		{"bare", "0"},
		{"noprice", "0"},
		{"unknown", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.mess, func(t *testing.T) {
			got, err := svc.GetOutstandingDues(context.Background(), "u1@user.test", tt.mess)
			if err != nil {
				t.Fatalf("GetOutstandingDues() error = %v", err)
			}
			if !got.Equal(dec(tt.want)) {
				t.Fatalf("dues = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEstimateDuesThreshold(t *testing.T) {
	tests := []struct {
		name string
		mess *model.Mess
		want string
	}{
		{"exactly 100 is a day count", &model.Mess{PricePerMeal: intPtr(2), SubscriptionPlan: intPtr(100)}, "200"},
		{"101 is a flat fee", &model.Mess{PricePerMeal: intPtr(2), SubscriptionPlan: intPtr(101)}, "101"},
		{"nil mess", nil, "0"},
	}
	for _, tt := range tests {
		if got := EstimateDues(tt.mess); !got.Equal(dec(tt.want)) {
			t.Errorf("%s: EstimateDues() = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestTotalOutstandingUsesLatestPerUser(t *testing.T) {
	svc, _, _ := newLedgerFixture(t)
	ctx := context.Background()
	payments := []struct {
		user      string
		paid, due string
	}{
		{"u1@user.test", "100", "400"},
		{"u2@user.test", "100", "900"},
		{"u1@user.test", "300", "100"},
		{"u2@user.test", "800", "50"},
	}
	for _, p := range payments {
		if _, err := svc.RecordPayment(ctx, p.user, "owner@mess.test", "m1", dec(p.paid), dec(p.due), PaymentOptions{}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := svc.GetTotalOutstandingForMess(ctx, "m1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(dec("150")) {
		t.Fatalf("total = %s, want 150", got)
	}
	if got, _ := svc.GetTotalOutstandingForMess(ctx, "flat"); !got.IsZero() {
		t.Fatalf("total for mess without payments = %s, want 0", got)
	}
}

func TestLatestTieBreaksOnInsertionOrder(t *testing.T) {
	svc, _, _ := newLedgerFixture(t)
	ctx := context.Background()
	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	svc.RecordPayment(ctx, "u1@user.test", "owner@mess.test", "m1", dec("10"), dec("90"), PaymentOptions{})
	svc.RecordPayment(ctx, "u1@user.test", "owner@mess.test", "m1", dec("20"), dec("70"), PaymentOptions{})

	got, _ := svc.GetOutstandingDues(ctx, "u1@user.test", "m1")
	if !got.Equal(dec("70")) {
		t.Fatalf("outstanding = %s, want 70", got)
	}
	total, _ := svc.GetTotalOutstandingForMess(ctx, "m1")
	if !total.Equal(dec("70")) {
		t.Fatalf("total = %s, want 70", total)
	}
}

func TestRecordPaymentRejects(t *testing.T) {
	svc, _, _ := newLedgerFixture(t)
	ctx := context.Background()

	if _, err := svc.RecordPayment(ctx, "ghost@user.test", "owner@mess.test", "m1", dec("1"), dec("1"), PaymentOptions{}); !errors.Is(err, ErrNotFound) || err.Error() != "User or Mess not found" {
		t.Fatalf("unknown user error = %v", err)
	}
	if _, err := svc.RecordPayment(ctx, "u1@user.test", "owner@mess.test", "ghost", dec("1"), dec("1"), PaymentOptions{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown mess error = %v", err)
	}
	if _, err := svc.RecordPayment(ctx, "u1@user.test", "owner@mess.test", "m1", dec("-1"), dec("1"), PaymentOptions{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("negative amount error = %v", err)
	}
	start := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.RecordPayment(ctx, "u1@user.test", "owner@mess.test", "m1", dec("1"), dec("1"), PaymentOptions{PeriodStart: &start, PeriodEnd: &end}); !errors.Is(err, ErrValidation) {
		t.Fatalf("inverted period error = %v", err)
	}
	if all, _ := svc.ListByMess(ctx, "m1"); len(all) != 0 {
		t.Fatalf("rejected payments were stored: %d", len(all))
	}
}

func TestListsAreAnnotated(t *testing.T) {
	svc, _, _ := newLedgerFixture(t)
	ctx := context.Background()
	svc.RecordPayment(ctx, "u1@user.test", "owner@mess.test", "m1", dec("10"), dec("0"), PaymentOptions{})
	svc.RecordPayment(ctx, "u2@user.test", "flat@mess.test", "flat", dec("20"), dec("0"), PaymentOptions{})
	svc.RecordPayment(ctx, "u1@user.test", "flat@mess.test", "flat", dec("30"), dec("0"), PaymentOptions{})

	byUser, err := svc.ListByUser(ctx, "u1@user.test")
	if err != nil {
		t.Fatal(err)
	}
	if len(byUser) != 2 || byUser[0].UserName != "Asha" || byUser[0].MessName != "Green Mess" || byUser[1].MessName != "Flat Mess" {
		t.Fatalf("ListByUser() = %+v", byUser)
	}
	pair, _ := svc.ListByUserAndMess(ctx, "u1@user.test", "flat")
	if len(pair) != 1 || !pair[0].AmountPaid.Equal(dec("30")) {
		t.Fatalf("ListByUserAndMess() = %+v", pair)
	}

	from := time.Date(2025, 3, 1, 8, 0, 2, 0, time.UTC)
	to := time.Date(2025, 3, 1, 8, 0, 3, 0, time.UTC)
	ranged, err := svc.ListByDateRange(ctx, from, to)
	if err != nil {
		t.Fatal(err)
	}
	if len(ranged) != 2 {
		t.Fatalf("ListByDateRange() returned %d entries, want 2", len(ranged))
	}
	if _, err := svc.ListByDateRange(ctx, to, from); !errors.Is(err, ErrValidation) {
		t.Fatalf("inverted range error = %v", err)
	}
}
