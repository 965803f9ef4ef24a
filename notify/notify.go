// Package notify delivers operator-facing events. Sinks are fire-and-forget:
// a failing sink logs and returns, it never surfaces an error to the caller.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/vuquang23/steamauto/internal/logger"
)

type EventKind string

const (
	EventNeedsReauth    EventKind = "needs_reauth"
	EventSuspended      EventKind = "suspended"
	EventRepeatedErrors EventKind = "repeated_errors"
	EventInfo           EventKind = "info"
)

type Event struct {
	Kind    EventKind
	Message string
	Time    time.Time
}

func NewEvent(kind EventKind, format string, args ...interface{}) Event {
	return Event{Kind: kind, Message: fmt.Sprintf(format, args...), Time: time.Now()}
}

func (e Event) Text(account string) string {
	return fmt.Sprintf("[%s] %s: %s", account, e.Kind, e.Message)
}

type Sink interface {
	Notify(ctx context.Context, account string, ev Event)
}

type nopSink struct{}

func (nopSink) Notify(context.Context, string, Event) {}

func Nop() Sink {
	return nopSink{}
}

type LogSink struct {
	log logger.Logger
}

func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{log: log.With(logger.Component("notify"))}
}

func (s *LogSink) Notify(_ context.Context, account string, ev Event) {
	s.log.Warn(ev.Message, logger.Account(account), logger.String("event", string(ev.Kind)))
}

// Multi fans an event out to every sink.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, account string, ev Event) {
	for _, s := range m {
		s.Notify(ctx, account, ev)
	}
}
