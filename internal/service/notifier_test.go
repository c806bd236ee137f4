package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/mymess-backend/internal/model"
	"github.com/iliyamo/mymess-backend/internal/repository/memory"
)

type captureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *captureLogger) add(format string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, format)
}

func (l *captureLogger) Infof(format string, _ ...interface{})  { l.add(format) }
func (l *captureLogger) Warnf(format string, _ ...interface{})  { l.add(format) }
func (l *captureLogger) Errorf(format string, _ ...interface{}) { l.add(format) }

// blockingSink waits for its context to end.
type blockingSink struct{ err chan error }

func (s blockingSink) Send(ctx context.Context, _ model.Notification) error {
	<-ctx.Done()
	s.err <- ctx.Err()
	return ctx.Err()
}

func TestNotifierBoundsSlowSinks(t *testing.T) {
	sink := blockingSink{err: make(chan error, 1)}
	log := &captureLogger{}
	n := NewNotifier(sink, 20*time.Millisecond, log)

	start := time.Now()
	n.Dispatch(context.Background(), model.Notification{RecipientEmail: "a@user.test"})
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Dispatch() blocked for %v", elapsed)
	}
	if err := <-sink.err; !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("sink context error = %v, want deadline exceeded", err)
	}
	if len(log.lines) != 1 {
		t.Fatalf("logged %d lines, want 1", len(log.lines))
	}
}

func TestNotifierIgnoresCallerCancellation(t *testing.T) {
	sink := &recordingSink{}
	n := NewNotifier(sink, time.Second, &captureLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n.Dispatch(ctx, model.Notification{RecipientEmail: "a@user.test"})
	got := sink.all()
	if len(got) != 1 {
		t.Fatalf("sent %d notifications, want 1", len(got))
	}
	if got[0].ID == "" || got[0].CreatedAt.IsZero() {
		t.Fatalf("id/createdAt not stamped: %+v", got[0])
	}
}

func TestNotifierRecoversPanics(t *testing.T) {
	log := &captureLogger{}
	n := NewNotifier(failingSink{panics: true}, time.Second, log)
	n.Dispatch(context.Background(), model.Notification{}, model.Notification{})
	if len(log.lines) != 2 {
		t.Fatalf("logged %d lines, want 2", len(log.lines))
	}
	var nilNotifier *Notifier
	nilNotifier.Dispatch(context.Background(), model.Notification{})
}

func TestInboxSinkResolvesSenderName(t *testing.T) {
	ids := memory.NewIdentityStore()
	ids.PutUser(model.User{Email: "a@user.test", Name: "Asha"})
	store := memory.NewNotificationStore()
	sink := NewInboxSink(store, ids)
	ctx := context.Background()

	tests := []struct {
		sender string
		want   string
	}{
		{"a@user.test", "Asha"},
		{model.SystemSenderEmail, "MyMess System"},
		{"owner@mess.test", "owner@mess.test"},
	}
	for i, tt := range tests {
		n := model.Notification{ID: strings.Repeat("x", i+1), RecipientEmail: "r@user.test", SenderEmail: tt.sender}
		if err := sink.Send(ctx, n); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		got, err := store.GetByID(ctx, n.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.SenderName != tt.want {
			t.Errorf("sender %s resolved to %q, want %q", tt.sender, got.SenderName, tt.want)
		}
	}
}

func TestInboxReadSide(t *testing.T) {
	store := memory.NewNotificationStore()
	inbox := NewInbox(store)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"n1", "n2", "n3"} {
		store.Create(ctx, &model.Notification{ID: id, RecipientEmail: "r@user.test", CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	store.Create(ctx, &model.Notification{ID: "other", RecipientEmail: "x@user.test", CreatedAt: base})

	all, err := inbox.List(ctx, "r@user.test", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != "n3" || all[2].ID != "n1" {
		t.Fatalf("List() = %+v, want newest first", all)
	}

	if _, err := inbox.MarkRead(ctx, "other", "r@user.test"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("MarkRead(foreign) error = %v, want ErrNotFound", err)
	}
	n, err := inbox.MarkRead(ctx, "n2", "r@user.test")
	if err != nil || !n.Read {
		t.Fatalf("MarkRead() = %+v, %v", n, err)
	}
	if c, _ := inbox.CountUnread(ctx, "r@user.test"); c != 2 {
		t.Fatalf("CountUnread() = %d, want 2", c)
	}
	unread, _ := inbox.List(ctx, "r@user.test", true)
	if len(unread) != 2 {
		t.Fatalf("unread list = %d, want 2", len(unread))
	}
	changed, err := inbox.MarkAllRead(ctx, "r@user.test")
	if err != nil || changed != 2 {
		t.Fatalf("MarkAllRead() = %d, %v, want 2", changed, err)
	}
	if c, _ := inbox.CountUnread(ctx, "x@user.test"); c != 1 {
		t.Fatalf("other recipient unread = %d, want 1", c)
	}
}

func TestInboxDelete(t *testing.T) {
	store := memory.NewNotificationStore()
	inbox := NewInbox(store)
	ctx := context.Background()
	for _, n := range []model.Notification{
		{ID: "n1", RecipientEmail: "r@user.test"},
		{ID: "n2", RecipientEmail: "r@user.test"},
		{ID: "n3", RecipientEmail: "r@user.test"},
		{ID: "other", RecipientEmail: "x@user.test"},
	} {
		n := n
		if err := store.Create(ctx, &n); err != nil {
			t.Fatal(err)
		}
	}

	if err := inbox.Delete(ctx, "other", "r@user.test"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete(foreign) error = %v, want ErrNotFound", err)
	}
	if err := inbox.Delete(ctx, "missing", "r@user.test"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete(missing) error = %v, want ErrNotFound", err)
	}
	if err := inbox.Delete(ctx, "n2", "r@user.test"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	left, _ := inbox.List(ctx, "r@user.test", false)
	if len(left) != 2 {
		t.Fatalf("after Delete list = %+v, want 2 messages", left)
	}

	deleted, err := inbox.DeleteAll(ctx, "r@user.test")
	if err != nil || deleted != 2 {
		t.Fatalf("DeleteAll() = %d, %v, want 2", deleted, err)
	}
	if all := store.All(); len(all) != 1 || all[0].ID != "other" {
		t.Fatalf("store after DeleteAll = %+v, want only the other recipient", all)
	}
}

func TestAvailabilityCountsOnlyActive(t *testing.T) {
	store := memory.NewSlotStore()
	ctx := context.Background()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	statuses := []model.SlotStatus{model.SlotPending, model.SlotApproved, model.SlotConfirmed, model.SlotCancelled, model.SlotCompleted}
	for i, st := range statuses {
		store.Create(ctx, &model.Reservation{ID: string(rune('a' + i)), MessEmail: "owner@mess.test", Date: day, TimeSlot: "lunch", Status: st})
	}

	tests := []struct {
		capacity int
		want     bool
	}{
		{2, false},
		{3, true},
	}
	for _, tt := range tests {
		a := NewAvailability(store, tt.capacity)
		got, err := a.Check(ctx, day, "lunch", "owner@mess.test")
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("capacity %d: Check() = %v, want %v", tt.capacity, got, tt.want)
		}
	}
	if NewAvailability(store, 0).Capacity() != DefaultSlotCapacity {
		t.Fatalf("zero capacity should fall back to default")
	}
	if ok, _ := NewAvailability(store, 1).Check(ctx, day, "dinner", "owner@mess.test"); !ok {
		t.Fatalf("empty slot reported full")
	}
}
