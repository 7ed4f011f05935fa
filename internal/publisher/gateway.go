package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"task-ledger/internal/core/ports"
	"task-ledger/internal/domain"
	"task-ledger/internal/envelope"
	"task-ledger/internal/logging"
	"task-ledger/internal/metrics"

	"github.com/sony/gobreaker"
	"gorm.io/datatypes"
)

// PublishError is a broker-side failure. The envelope was valid; retrying
// later may succeed.
type PublishError struct {
	EventID    string
	RoutingKey string
	Err        error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s to %s: %v", e.EventID, e.RoutingKey, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// Gateway is the only path from the tracker to the broker. It validates every
// envelope before transmission and guards the broker with a circuit breaker.
// Delivery is at-least-once: a retried publish produces a second copy of the
// same envelope, and consumers deduplicate.
type Gateway struct {
	codec   *envelope.Codec
	broker  ports.StreamPublisher
	breaker *gobreaker.CircuitBreaker
}

func NewGateway(codec *envelope.Codec, broker ports.StreamPublisher) *Gateway {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "broker-publish",
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Warnf("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})
	return &Gateway{codec: codec, broker: broker, breaker: breaker}
}

// Publish validates env and appends it to the stream named by routingKey.
// A schema violation is returned as domain.ErrSchemaViolation and is never
// worth retrying; broker trouble comes back as *PublishError.
func (g *Gateway) Publish(ctx context.Context, env envelope.Envelope, routingKey string) error {
	if err := g.codec.Validate(env); err != nil {
		metrics.PublishFailures.WithLabelValues(string(env.EventName), "schema").Inc()
		return err
	}

	raw, err := envelope.Encode(env)
	if err != nil {
		return err
	}

	_, err = g.breaker.Execute(func() (interface{}, error) {
		return nil, g.broker.Publish(ctx, routingKey, PartitionKey(env), raw)
	})
	if err != nil {
		metrics.PublishFailures.WithLabelValues(string(env.EventName), "broker").Inc()
		return &PublishError{EventID: env.EventID.String(), RoutingKey: routingKey, Err: err}
	}

	metrics.EventsPublished.WithLabelValues(string(env.EventName), routingKey).Inc()
	return nil
}

// PartitionKey is the task public id carried by every task event, so a
// broker that partitions by key keeps one task's events together.
func PartitionKey(env envelope.Envelope) string {
	var keyed struct {
		PublicID string `json:"public_id"`
	}
	if err := json.Unmarshal(env.Data, &keyed); err != nil || keyed.PublicID == "" {
		return env.EventID.String()
	}
	return keyed.PublicID
}

// NewOutboxMessage turns a validated envelope into the row committed with the
// state change it describes.
func NewOutboxMessage(env envelope.Envelope, routingKey string, now time.Time) (*domain.OutboxMessage, error) {
	raw, err := envelope.Encode(env)
	if err != nil {
		return nil, err
	}
	return &domain.OutboxMessage{
		EventID:      env.EventID,
		EventName:    env.EventName,
		RoutingKey:   routingKey,
		PartitionKey: PartitionKey(env),
		Payload:      datatypes.JSON(raw),
		Status:       domain.OutboxPending,
		NextAttempt:  now,
		CreatedAt:    now,
	}, nil
}
