package consumer

import (
	"context"
	"time"

	"task-ledger/internal/core/ports"
	"task-ledger/internal/logging"
	"task-ledger/internal/metrics"

	"github.com/sirupsen/logrus"
)

// Runner pulls stream entries and acknowledges each one after its handler
// returns. Entries whose handler failed stay pending; Reclaim brings them
// back after the idle timeout, which is the only retry mechanism.
type Runner struct {
	sub          ports.StreamSubscriber
	dispatcher   *Dispatcher
	reclaimEvery time.Duration
}

func NewRunner(sub ports.StreamSubscriber, dispatcher *Dispatcher, reclaimEvery time.Duration) *Runner {
	if reclaimEvery <= 0 {
		reclaimEvery = 30 * time.Second
	}
	return &Runner{sub: sub, dispatcher: dispatcher, reclaimEvery: reclaimEvery}
}

// Start begins the listening loop. Call this in main.go as a goroutine.
func (r *Runner) Start(ctx context.Context) {
	logging.Logger.Info("Event ID: CONSUMER_STARTED, Description: Consumer started, listening for events...")

	reclaim := time.NewTicker(r.reclaimEvery)
	defer reclaim.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Logger.Info("Event ID: CONSUMER_STOPPED, Description: Consumer shutting down...")
			return

		case <-reclaim.C:
			entries, err := r.sub.Reclaim(ctx)
			if err != nil && ctx.Err() == nil {
				logging.Logger.WithError(err).Error("reclaiming pending entries failed")
			}
			r.ProcessBatch(ctx, entries)

		default:
			entries, err := r.sub.Read(ctx)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				logging.Logger.WithError(err).Error("reading stream failed")
				select {
				case <-ctx.Done():
				case <-time.After(time.Second):
				}
				continue
			}
			r.ProcessBatch(ctx, entries)
		}
	}
}

// ProcessBatch handles entries one at a time, in stream order.
func (r *Runner) ProcessBatch(ctx context.Context, entries []ports.StreamEntry) {
	for _, entry := range entries {
		r.process(ctx, entry)
	}
}

func (r *Runner) process(ctx context.Context, entry ports.StreamEntry) {
	log := logging.Logger.WithFields(logrus.Fields{
		"stream":   entry.Stream,
		"entry_id": entry.ID,
		"key":      entry.Key,
	})

	// Handle logs its own errors; the outcome alone decides the ack.
	outcome, _ := r.dispatcher.Handle(ctx, entry.Payload)
	metrics.MessagesConsumed.WithLabelValues(entry.Stream, string(outcome)).Inc()
	if !outcome.Acked() {
		return
	}

	if err := r.sub.Ack(ctx, entry); err != nil {
		// The entry will be reclaimed and handled again; handlers are idempotent.
		log.WithError(err).Error("ack failed")
	}
}
