package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	glog "github.com/labstack/gommon/log"

	"github.com/iliyamo/mymess-backend/internal/model"
)

// Logger is the subset of the Echo/gommon logger the services write to.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

func defaultLogger(prefix string) Logger {
	l := glog.New(prefix)
	l.SetLevel(glog.INFO)
	return l
}

// Sink delivers one notification. Implementations may store it, publish
// it to a broker, or both.
type Sink interface {
	Send(ctx context.Context, n model.Notification) error
}

// Notifier is the fire-and-forget hook invoked after every slot
// transition. Each send runs with its own deadline, detached from the
// caller's cancellation, and any error or panic from the sink is logged
// and dropped: a transition that already committed is never undone by a
// notification failure.
type Notifier struct {
	sink    Sink
	timeout time.Duration
	log     Logger
	now     func() time.Time
}

// NewNotifier returns a Notifier writing to sink. A nil sink disables
// delivery; a non-positive timeout defaults to two seconds.
func NewNotifier(sink Sink, timeout time.Duration, log Logger) *Notifier {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if log == nil {
		log = defaultLogger("notify")
	}
	return &Notifier{sink: sink, timeout: timeout, log: log, now: time.Now}
}

// Dispatch sends each notification in turn. It never returns an error.
func (n *Notifier) Dispatch(ctx context.Context, msgs ...model.Notification) {
	if n == nil || n.sink == nil {
		return
	}
	for _, m := range msgs {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = n.now().UTC()
		}
		if err := n.send(ctx, m); err != nil {
			n.log.Warnf("notify: %v: %s to %s (%s): %v", ErrDependency, m.Type, m.RecipientEmail, m.RelatedEntityID, err)
		}
	}
}

func (n *Notifier) send(parent context.Context, m model.Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), n.timeout)
	defer cancel()
	return n.sink.Send(ctx, m)
}
