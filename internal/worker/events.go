package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/roach88/rematch/internal/engine"
)

// EventPublisher publishes runner events to NATS.
type EventPublisher struct {
	nc     *nats.Conn
	prefix string
	logger *slog.Logger
}

var _ engine.Observer = (*EventPublisher)(nil)

// NewEventPublisher creates a publisher for subjects under prefix.
func NewEventPublisher(nc *nats.Conn, prefix string, logger *slog.Logger) *EventPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventPublisher{nc: nc, prefix: prefix, logger: logger}
}

// EventSubject returns the subject of an event kind for a task.
func EventSubject(prefix string, taskID int64, kind engine.EventKind) string {
	return fmt.Sprintf("%s.%d.%s", prefix, taskID, kind)
}

// Observe publishes e. Failures are logged; they never fail the task.
func (p *EventPublisher) Observe(_ context.Context, e engine.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		p.logger.Error("failed to marshal event", "task_id", e.TaskID, "error", err)
		return
	}
	subject := EventSubject(p.prefix, e.TaskID, e.Kind)
	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}
