// Package worker runs matching tasks delivered over NATS.
//
// A Dispatcher publishes {"task_id": N} on the task subject. Consumers
// subscribe to that subject in a queue group, so each task is delivered to
// one worker, run with engine.Runner.RunMatch, and answered with a Reply
// when the message carries a reply subject. A received task always runs to
// done or failed: Consumer.Stop drains and waits for running tasks, and
// cancelling the start context does not cancel them.
//
// EventPublisher is an engine.Observer that forwards task lifecycle events
// to NATS subjects:
//
//	<prefix>.<task_id>.started
//	<prefix>.<task_id>.step
//	<prefix>.<task_id>.done
//	<prefix>.<task_id>.failed
package worker
