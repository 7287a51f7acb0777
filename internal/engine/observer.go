package engine

import (
	"context"
	"time"
)

// EventKind names a task lifecycle event.
type EventKind string

const (
	EventStarted EventKind = "started"
	EventStep    EventKind = "step"
	EventDone    EventKind = "done"
	EventFailed  EventKind = "failed"
)

// Event describes progress of one task run.
type Event struct {
	Kind      EventKind `json:"kind"`
	TaskID    int64     `json:"task_id"`
	RunID     string    `json:"run_id,omitempty"`
	Step      int       `json:"step,omitempty"` // 1-based, set on step events
	Steps     int       `json:"steps"`
	MatchType string    `json:"match_type,omitempty"`
	Matches   int       `json:"matches,omitempty"`
	Error     string    `json:"error,omitempty"`
	Time      time.Time `json:"time"`
}

// Observer receives task lifecycle events. Observe must not block for long:
// it runs on the task's goroutine between steps.
type Observer interface {
	Observe(ctx context.Context, e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, e Event)

// Observe calls f(ctx, e).
func (f ObserverFunc) Observe(ctx context.Context, e Event) {
	f(ctx, e)
}

type nopObserver struct{}

func (nopObserver) Observe(context.Context, Event) {}
