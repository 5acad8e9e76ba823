package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"billing-rag/internal/retry"
)

const subjectPrefix = "billing.tasks."

// NATS is a queue on plain NATS subjects. Workers of one task type share a
// queue group, so each task is delivered to a single worker.
type NATS struct {
	log     *slog.Logger
	nc      *nats.Conn
	publish func(subject string, data []byte) error
	backoff time.Duration
}

// NewNATS wraps an established connection.
func NewNATS(log *slog.Logger, nc *nats.Conn) *NATS {
	return &NATS{log: log, nc: nc, publish: nc.Publish, backoff: time.Second}
}

// ConnectNATS dials url and wraps the connection.
func ConnectNATS(log *slog.Logger, url string) (*NATS, error) {
	nc, err := nats.Connect(url, nats.Name("billing-rag"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, err
	}
	return NewNATS(log, nc), nil
}

func (q *NATS) Enqueue(_ context.Context, task Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.Type == "" {
		return errors.New("task type required")
	}
	body, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.publish(subjectPrefix+string(task.Type), body)
}

func (q *NATS) Worker(ctx context.Context, taskType TaskType, handler Handler) error {
	subject := subjectPrefix + string(taskType)
	group := "workers-" + string(taskType)
	sub, err := q.nc.QueueSubscribe(subject, group, func(msg *nats.Msg) {
		q.handle(ctx, msg.Data, handler)
	})
	if err != nil {
		return err
	}
	q.log.Info("queue worker subscribed", "subject", subject, "group", group)
	<-ctx.Done()
	return sub.Unsubscribe()
}

// Close drains pending messages before closing the connection.
func (q *NATS) Close() error {
	if q.nc == nil {
		return nil
	}
	return q.nc.Drain()
}

func (q *NATS) handle(ctx context.Context, data []byte, handler Handler) {
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		q.log.Error("failed to decode task", "err", err)
		return
	}

	if wait := time.Until(task.NotBefore); wait > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}

	if err := handler(ctx, task); err != nil {
		q.retry(ctx, task, err)
	}
}

func (q *NATS) retry(ctx context.Context, task Task, handlerErr error) {
	task.Attempts++
	if task.MaxAttempts == 0 {
		task.MaxAttempts = DefaultMaxAttempts
	}

	if task.Attempts >= task.MaxAttempts {
		q.log.Error("task permanently failed", "id", task.ID, "type", task.Type, "attempts", task.Attempts, "original_err", handlerErr)
		return
	}
	task.NotBefore = time.Now().Add(retry.ExponentialBackoff(task.Attempts, q.backoff))
	q.log.Warn("task failed, retrying", "id", task.ID, "type", task.Type, "attempt", task.Attempts, "err", handlerErr)
	if err := q.Enqueue(ctx, task); err != nil {
		q.log.Error("failed to re-enqueue task after failure", "id", task.ID, "type", task.Type, "original_err", handlerErr, "enqueue_err", err)
	}
}
