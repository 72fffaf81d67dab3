package notification

import (
	"context"

	"github.com/YelzhanWeb/bistro/internal/adapter/logger"
	"github.com/YelzhanWeb/bistro/internal/interfaces"
	"golang.org/x/sync/errgroup"
)

// Worker drains an in-process event stream into a Notifier. Delivery
// failures are logged and dropped; they never reach the code that emitted
// the event.
type Worker struct {
	notifier    interfaces.Notifier
	concurrency int
	logger      logger.Logger
}

func NewWorker(notifier interfaces.Notifier, concurrency int, logger logger.Logger) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{notifier: notifier, concurrency: concurrency, logger: logger}
}

// Run returns when events is closed and every delivery finished, or when ctx
// is cancelled.
func (w *Worker) Run(ctx context.Context, events <-chan interfaces.NotificationEvent) error {
	g := new(errgroup.Group)
	g.SetLimit(w.concurrency)

	for {
		select {
		case <-ctx.Done():
			return g.Wait()
		case event, ok := <-events:
			if !ok {
				return g.Wait()
			}
			g.Go(func() error {
				w.Deliver(ctx, event)
				return nil
			})
		}
	}
}

// Deliver hands one event to the notifier.
func (w *Worker) Deliver(ctx context.Context, event interfaces.NotificationEvent) error {
	if err := w.notifier.Notify(ctx, event); err != nil {
		w.logger.Warn("notification_failed", "Failed to deliver notification", "", map[string]interface{}{
			"event_id": event.ID,
			"kind":     event.Kind,
		}, err)
		return err
	}
	return nil
}
