package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/notify"
)

// NotificationWorker drains the email outbox in the background so delivery
// never sits on the request path.
type NotificationWorker struct {
	queue  notify.Queue
	mailer notify.Mailer
	logger *zap.Logger
	wait   time.Duration
}

// NewNotificationWorker constructs the worker.
func NewNotificationWorker(queue notify.Queue, mailer notify.Mailer, logger *zap.Logger, wait time.Duration) *NotificationWorker {
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &NotificationWorker{queue: queue, mailer: mailer, logger: logger, wait: wait}
}

// Run consumes the queue until ctx is cancelled. Intended to run in its own
// goroutine.
func (w *NotificationWorker) Run(ctx context.Context) {
	if w.queue == nil {
		return
	}
	for {
		if ctx.Err() != nil {
			return
		}
		msg, err := w.queue.Dequeue(ctx, w.wait)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Warn("dequeue notification", zap.Error(err))
			time.Sleep(w.wait)
			continue
		}
		if msg == nil {
			continue
		}
		if err := w.mailer.Send(ctx, *msg); err != nil {
			w.logger.Warn("send queued notification", zap.String("to", msg.To), zap.Error(err))
		}
	}
}
