package publisher

import (
	"context"
	"errors"
	"time"

	"task-ledger/internal/core/ports"
	"task-ledger/internal/domain"
	"task-ledger/internal/envelope"
	"task-ledger/internal/logging"
	"task-ledger/internal/metrics"

	"github.com/sirupsen/logrus"
)

type RelayConfig struct {
	Interval time.Duration // polling interval, e.g. 500ms
	Batch    int           // max messages claimed per tick
	Backoff  BackoffConfig
}

func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		Interval: 500 * time.Millisecond,
		Batch:    50,
		Backoff:  DefaultBackoff(),
	}
}

// Relay moves committed outbox messages to the broker. It is the only place
// tracker events are published from, so a task change and its event can no
// longer diverge: the event is either still pending or on the stream.
type Relay struct {
	outbox  ports.OutboxRepository
	gateway *Gateway
	cfg     RelayConfig
	now     func() time.Time
}

func NewRelay(outbox ports.OutboxRepository, gateway *Gateway, cfg RelayConfig) *Relay {
	if cfg.Interval <= 0 {
		cfg.Interval = 500 * time.Millisecond
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 1
	}
	return &Relay{
		outbox:  outbox,
		gateway: gateway,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ProcessOnce claims one batch of due messages and publishes them in order.
// It returns how many messages reached the broker.
func (r *Relay) ProcessOnce(ctx context.Context) (int, error) {
	published := 0
	err := r.outbox.ClaimDue(ctx, r.now(), r.cfg.Batch, func(msgs []domain.OutboxMessage, marker ports.OutboxMarker) error {
		for _, msg := range msgs {
			ok, err := r.publishOne(ctx, msg, marker)
			if err != nil {
				return err
			}
			if ok {
				published++
			}
		}
		return nil
	})
	return published, err
}

// publishOne reports whether msg was published. The returned error is a
// storage failure while recording the outcome.
func (r *Relay) publishOne(ctx context.Context, msg domain.OutboxMessage, marker ports.OutboxMarker) (bool, error) {
	log := logging.Logger.WithFields(logrus.Fields{
		"outbox_id":   msg.ID,
		"event_id":    msg.EventID,
		"event_name":  msg.EventName,
		"routing_key": msg.RoutingKey,
	})

	env, err := envelope.Decode(msg.Payload)
	if err == nil {
		err = r.gateway.Publish(ctx, env, msg.RoutingKey)
	}

	var pubErr *PublishError
	switch {
	case err == nil:
		log.Debug("outbox message published")
		return true, marker.MarkPublished(ctx, msg.ID, r.now())

	case errors.As(err, &pubErr):
		next := NextAttemptAt(r.now(), msg.Attempts+1, r.cfg.Backoff, nil)
		log.WithError(err).WithField("next_attempt_at", next).Warn("outbox publish failed, will retry")
		return false, marker.MarkRetry(ctx, msg.ID, err.Error(), next)

	default:
		// Undecodable or schema-invalid: no retry can fix it.
		metrics.OutboxDead.Inc()
		log.WithError(err).Error("outbox message can never be published, marking dead")
		return false, marker.MarkDead(ctx, msg.ID, err.Error())
	}
}

// Run polls until ctx is canceled, draining full batches back to back.
func (r *Relay) Run(ctx context.Context, workerID int) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	logging.Logger.Infof("Event ID: RELAY_STARTED, Description: Outbox relay %d started: interval=%s batch=%d", workerID, r.cfg.Interval, r.cfg.Batch)

	for {
		select {
		case <-ctx.Done():
			logging.Logger.Infof("Event ID: RELAY_STOPPED, Description: Outbox relay %d stopping: %v", workerID, ctx.Err())
			return

		case <-ticker.C:
			for {
				n, err := r.ProcessOnce(ctx)
				if err != nil {
					if ctx.Err() == nil {
						logging.Logger.WithError(err).Error("outbox relay batch failed")
					}
					break
				}
				if n < r.cfg.Batch {
					break
				}
			}
		}
	}
}

// StartPool launches concurrent relay loops. Claims skip rows locked by a
// sibling, so the loops never publish the same row at once.
func (r *Relay) StartPool(ctx context.Context, concurrency int) {
	logging.Logger.Infof("Starting outbox relay pool with %d workers...", concurrency)
	for i := 0; i < concurrency; i++ {
		go r.Run(ctx, i)
	}
}
