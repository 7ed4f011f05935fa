package consumer

import (
	"context"
	"errors"

	"task-ledger/internal/domain"
	"task-ledger/internal/envelope"
	"task-ledger/internal/logging"

	"github.com/sirupsen/logrus"
)

type Outcome string

const (
	OutcomeHandled Outcome = "handled"
	// OutcomeDropped: undecodable, no event_name, or failed validation. Acked.
	OutcomeDropped Outcome = "dropped"
	// OutcomeIgnored: a well-formed event this service has no handler for. Acked.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeFailed: the handler returned an error. Not acked.
	OutcomeFailed Outcome = "failed"
)

// Acked reports whether the message should be acknowledged.
func (o Outcome) Acked() bool { return o != OutcomeFailed }

type Dispatcher struct {
	handlers Registry
	schemas  *envelope.Registry
}

// NewDispatcher builds a dispatcher. When schemas is non-nil, recognized
// events are also validated on the way in and dropped if they do not match.
func NewDispatcher(handlers Registry, schemas *envelope.Registry) *Dispatcher {
	return &Dispatcher{handlers: handlers, schemas: schemas}
}

// Handle decodes raw and runs the handler registered for its key. Only a
// handler fault yields an error; everything else is safe to acknowledge.
func (d *Dispatcher) Handle(ctx context.Context, raw []byte) (Outcome, error) {
	env, err := envelope.Decode(raw)
	if err != nil {
		logging.Logger.WithError(err).Debug("dropping undecodable message")
		return OutcomeDropped, nil
	}

	log := logging.Logger.WithFields(logrus.Fields{
		"event_id":      env.EventID,
		"event_name":    env.EventName,
		"event_version": env.EventVersion,
	})

	handler, ok := d.handlers[env.Key()]
	if !ok {
		log.Debug("no handler for event, ignoring")
		return OutcomeIgnored, nil
	}

	if d.schemas != nil {
		if err := d.schemas.Validate(env.Key(), raw); err != nil {
			log.WithError(err).Warn("dropping event that fails its schema")
			return OutcomeDropped, nil
		}
	}

	if err := handler(ctx, env); err != nil {
		if errors.Is(err, errMalformed) || errors.Is(err, domain.ErrInvalidInput) {
			log.WithError(err).Warn("dropping event with unusable data")
			return OutcomeDropped, nil
		}
		log.WithError(err).Error("event handler failed, leaving message for redelivery")
		return OutcomeFailed, err
	}

	log.Debug("event handled")
	return OutcomeHandled, nil
}
