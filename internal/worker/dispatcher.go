package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// Dispatcher hands tasks to workers.
type Dispatcher struct {
	nc      *nats.Conn
	subject string
}

// NewDispatcher creates a dispatcher publishing on subject.
func NewDispatcher(nc *nats.Conn, subject string) *Dispatcher {
	return &Dispatcher{nc: nc, subject: subject}
}

// Dispatch publishes the task and returns once the server has it. No worker
// acknowledgement is awaited.
func (d *Dispatcher) Dispatch(ctx context.Context, taskID int64) error {
	data, err := json.Marshal(Request{TaskID: taskID})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	if err := d.nc.Publish(d.subject, data); err != nil {
		return fmt.Errorf("publish task %d: %w", taskID, err)
	}
	if err := d.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush task %d: %w", taskID, err)
	}
	return nil
}

// Run publishes the task as a request and waits for the worker's reply.
// The returned error is about transport only; a task that ran and failed
// is reported in the reply.
func (d *Dispatcher) Run(ctx context.Context, taskID int64) (Reply, error) {
	data, err := json.Marshal(Request{TaskID: taskID})
	if err != nil {
		return Reply{}, fmt.Errorf("marshal request: %w", err)
	}
	msg, err := d.nc.RequestWithContext(ctx, d.subject, data)
	if err != nil {
		return Reply{}, fmt.Errorf("request task %d: %w", taskID, err)
	}
	var reply Reply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return Reply{}, fmt.Errorf("unmarshal reply: %w", err)
	}
	return reply, nil
}
