package queue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type published struct {
	subject string
	task    Task
}

func newTestNATS(t *testing.T) (*NATS, *[]published) {
	t.Helper()
	var out []published
	q := &NATS{
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		backoff: time.Millisecond,
		publish: func(subject string, data []byte) error {
			var task Task
			require.NoError(t, json.Unmarshal(data, &task))
			out = append(out, published{subject: subject, task: task})
			return nil
		},
	}
	return q, &out
}

func TestEnqueueAssignsID(t *testing.T) {
	q, out := newTestNATS(t)

	require.NoError(t, q.Enqueue(context.Background(), Task{Type: TaskTypeIndex, Payload: []byte(`{}`)}))

	require.Len(t, *out, 1)
	assert.Equal(t, "billing.tasks.index", (*out)[0].subject)
	assert.NotEqual(t, uuid.Nil, (*out)[0].task.ID)
}

func TestEnqueueRequiresType(t *testing.T) {
	q, out := newTestNATS(t)
	assert.Error(t, q.Enqueue(context.Background(), Task{}))
	assert.Empty(t, *out)
}

func encode(t *testing.T, task Task) []byte {
	t.Helper()
	b, err := json.Marshal(task)
	require.NoError(t, err)
	return b
}

func TestHandleRetriesFailedTask(t *testing.T) {
	q, out := newTestNATS(t)
	id := uuid.New()

	q.handle(context.Background(), encode(t, Task{ID: id, Type: TaskTypeIndex}), func(context.Context, Task) error {
		return errors.New("embedding provider down")
	})

	require.Len(t, *out, 1)
	retried := (*out)[0].task
	assert.Equal(t, id, retried.ID)
	assert.Equal(t, 1, retried.Attempts)
	assert.Equal(t, DefaultMaxAttempts, retried.MaxAttempts)
	assert.True(t, retried.NotBefore.After(time.Now().Add(-time.Second)))
}

func TestHandleGivesUpAfterMaxAttempts(t *testing.T) {
	q, out := newTestNATS(t)

	task := Task{ID: uuid.New(), Type: TaskTypeIndex, Attempts: DefaultMaxAttempts - 1, MaxAttempts: DefaultMaxAttempts}
	q.handle(context.Background(), encode(t, task), func(context.Context, Task) error {
		return errors.New("still failing")
	})

	assert.Empty(t, *out)
}

func TestHandleSuccessDoesNotRequeue(t *testing.T) {
	q, out := newTestNATS(t)
	called := false

	q.handle(context.Background(), encode(t, Task{ID: uuid.New(), Type: TaskTypeIndex}), func(context.Context, Task) error {
		called = true
		return nil
	})

	assert.True(t, called)
	assert.Empty(t, *out)
}

func TestHandleDropsUndecodableMessage(t *testing.T) {
	q, out := newTestNATS(t)
	q.handle(context.Background(), []byte("{"), func(context.Context, Task) error {
		t.Fatal("handler must not run")
		return nil
	})
	assert.Empty(t, *out)
}

func TestHandleStopsWaitingOnCancel(t *testing.T) {
	q, _ := newTestNATS(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	task := Task{ID: uuid.New(), Type: TaskTypeIndex, NotBefore: time.Now().Add(time.Hour)}
	q.handle(ctx, encode(t, task), func(context.Context, Task) error {
		t.Fatal("handler must not run")
		return nil
	})
}

func TestEnqueueWithRetry(t *testing.T) {
	q := new(MockQueue)
	q.On("Enqueue", mock.Anything, mock.Anything).Return(errors.New("no responders")).Twice()
	q.On("Enqueue", mock.Anything, mock.Anything).Return(nil).Once()

	err := EnqueueWithRetry(context.Background(), q, Task{Type: TaskTypeIndex}, 3, time.Millisecond)

	require.NoError(t, err)
	q.AssertNumberOfCalls(t, "Enqueue", 3)
}

func TestEnqueueWithRetryReturnsLastError(t *testing.T) {
	q := new(MockQueue)
	q.On("Enqueue", mock.Anything, mock.Anything).Return(errors.New("no responders"))

	err := EnqueueWithRetry(context.Background(), q, Task{Type: TaskTypeIndex}, 2, time.Millisecond)

	assert.EqualError(t, err, "no responders")
	q.AssertNumberOfCalls(t, "Enqueue", 2)
}
