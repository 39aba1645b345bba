package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/notify"
)

type chanQueue struct {
	ch chan notify.EmailMessage
}

func (q *chanQueue) Enqueue(_ context.Context, msg notify.EmailMessage) error {
	q.ch <- msg
	return nil
}

func (q *chanQueue) Dequeue(ctx context.Context, wait time.Duration) (*notify.EmailMessage, error) {
	select {
	case msg := <-q.ch:
		return &msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(wait):
		return nil, nil
	}
}

type countingMailer struct {
	mu   sync.Mutex
	sent []notify.EmailMessage
	done chan struct{}
	want int
}

func (m *countingMailer) Send(_ context.Context, msg notify.EmailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	if len(m.sent) == m.want {
		close(m.done)
	}
	return nil
}

func TestWorkerDrainsQueue(t *testing.T) {
	queue := &chanQueue{ch: make(chan notify.EmailMessage, 4)}
	mailer := &countingMailer{done: make(chan struct{}), want: 2}
	w := NewNotificationWorker(queue, mailer, zap.NewNop(), 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(stopped)
	}()

	require.NoError(t, queue.Enqueue(ctx, notify.EmailMessage{To: "a@example.com", Subject: "one"}))
	require.NoError(t, queue.Enqueue(ctx, notify.EmailMessage{To: "b@example.com", Subject: "two"}))

	select {
	case <-mailer.done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not deliver queued messages")
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on context cancellation")
	}

	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	require.Equal(t, "a@example.com", mailer.sent[0].To)
	require.Equal(t, "b@example.com", mailer.sent[1].To)
}

func TestWorkerWithoutQueueReturnsImmediately(t *testing.T) {
	w := NewNotificationWorker(nil, &countingMailer{done: make(chan struct{}), want: 1}, zap.NewNop(), time.Second)

	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker with nil queue should return immediately")
	}
}
