package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// Runner runs one task. Implemented by *engine.Runner.
type Runner interface {
	RunMatch(ctx context.Context, taskID int64) error
}

// Consumer receives task requests from a NATS queue group.
type Consumer struct {
	nc          *nats.Conn
	runner      Runner
	subject     string
	queue       string
	concurrency int
	logger      *slog.Logger

	mu   sync.Mutex
	subs []*nats.Subscription

	runMu  sync.Mutex
	active int
	idle   *sync.Cond
}

const drainPoll = 10 * time.Millisecond

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithQueue sets the queue group. Default: "rematch-workers".
func WithQueue(queue string) ConsumerOption {
	return func(c *Consumer) { c.queue = queue }
}

// WithConcurrency sets how many tasks this consumer runs at once. Each slot
// is a separate queue subscription. Default: 1.
func WithConcurrency(n int) ConsumerOption {
	return func(c *Consumer) { c.concurrency = n }
}

// WithConsumerLogger sets the logger. Default: slog.Default().
func WithConsumerLogger(l *slog.Logger) ConsumerOption {
	return func(c *Consumer) { c.logger = l }
}

// NewConsumer creates a consumer of subject that runs tasks with runner.
func NewConsumer(nc *nats.Conn, runner Runner, subject string, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		nc:          nc,
		runner:      runner,
		subject:     subject,
		queue:       "rematch-workers",
		concurrency: 1,
		logger:      slog.Default(),
	}
	c.idle = sync.NewCond(&c.runMu)
	for _, opt := range opts {
		opt(c)
	}
	if c.concurrency < 1 {
		c.concurrency = 1
	}
	return c
}

// Start subscribes and returns immediately. Tasks run with the values of
// ctx but not its cancellation: a task that was received is always run to
// a terminal status.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.subs) > 0 {
		return fmt.Errorf("start consumer: already started")
	}
	taskCtx := context.WithoutCancel(ctx)
	for i := 0; i < c.concurrency; i++ {
		sub, err := c.nc.QueueSubscribe(c.subject, c.queue, func(msg *nats.Msg) {
			c.handle(taskCtx, msg)
		})
		if err != nil {
			c.unsubscribeLocked()
			return fmt.Errorf("subscribe %s: %w", c.subject, err)
		}
		c.subs = append(c.subs, sub)
	}
	if err := c.nc.Flush(); err != nil {
		c.unsubscribeLocked()
		return fmt.Errorf("flush subscriptions: %w", err)
	}

	c.logger.Info("worker subscribed", "subject", c.subject, "queue", c.queue, "concurrency", c.concurrency)
	return nil
}

// Run starts the consumer and blocks until ctx is done, then drains.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return c.Stop()
}

// Stop drains the subscriptions and blocks until they are closed and no
// task is running. In-flight tasks finish, queued messages are still
// delivered, new ones are not.
func (c *Consumer) Stop() error {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	var firstErr error
	for _, sub := range subs {
		if err := sub.Drain(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("drain %s: %w", c.subject, err)
		}
	}
	// Drain returns before the pending messages are delivered.
	for _, sub := range subs {
		for sub.IsValid() {
			time.Sleep(drainPoll)
		}
	}

	c.runMu.Lock()
	for c.active > 0 {
		c.idle.Wait()
	}
	c.runMu.Unlock()

	if len(subs) > 0 {
		c.logger.Info("worker drained", "subject", c.subject)
	}
	return firstErr
}

func (c *Consumer) unsubscribeLocked() {
	for _, sub := range c.subs {
		sub.Unsubscribe()
	}
	c.subs = nil
}

func (c *Consumer) handle(ctx context.Context, msg *nats.Msg) {
	c.runMu.Lock()
	c.active++
	c.runMu.Unlock()
	defer func() {
		c.runMu.Lock()
		c.active--
		if c.active == 0 {
			c.idle.Broadcast()
		}
		c.runMu.Unlock()
	}()

	var req Request
	if err := json.Unmarshal(msg.Data, &req); err != nil || req.TaskID <= 0 {
		c.logger.Warn("dropped malformed task request", "subject", msg.Subject, "data", string(msg.Data))
		c.respond(msg, Reply{Status: StatusRejected, Error: "malformed task request"})
		return
	}

	logger := c.logger.With("task_id", req.TaskID)
	logger.Info("received task")
	err := c.runner.RunMatch(ctx, req.TaskID)
	reply := replyFor(req.TaskID, err)
	if err != nil {
		logger.Error("task ended with error", "status", reply.Status, "error", err)
	}
	c.respond(msg, reply)
}

func (c *Consumer) respond(msg *nats.Msg, reply Reply) {
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(reply)
	if err != nil {
		c.logger.Error("failed to marshal reply", "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		c.logger.Error("failed to send reply", "task_id", reply.TaskID, "error", err)
	}
}
