package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"task-ledger/internal/domain"
	"task-ledger/internal/envelope"
	"task-ledger/internal/ledger"
	"task-ledger/internal/logging"
)

// Handler applies one decoded envelope. A returned error means "not done":
// the message stays unacknowledged and will be redelivered.
type Handler func(ctx context.Context, env envelope.Envelope) error

// Registry maps each (event name, version) the accounting service
// understands to its handler. Anything else is acknowledged and ignored.
type Registry map[envelope.Key]Handler

// errMalformed marks a payload that can never be handled; it is dropped.
var errMalformed = errors.New("malformed event data")

// typed decodes env.Data into T before calling fn.
func typed[T any](fn func(ctx context.Context, data T) error) Handler {
	return func(ctx context.Context, env envelope.Envelope) error {
		var data T
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return fmt.Errorf("%w: %s: %v", errMalformed, env.Key(), err)
		}
		return fn(ctx, data)
	}
}

// InitRegistry wires the event handlers to the ledger writers.
func InitRegistry(writer *ledger.Writer, projection *ledger.ProjectionWriter) Registry {
	created := typed(taskCreated(writer, projection))
	assigned := typed(projection.ApplyAssigned)
	completed := typed(projection.ApplyCompleted)

	return Registry{
		{Name: domain.EventTaskCreated, Version: 3}:   created,
		{Name: domain.EventTaskAssigned, Version: 3}:  assigned,
		{Name: domain.EventTaskCompleted, Version: 3}: completed,

		// v2 payloads have no task version. They decode with version 0 and
		// only fill projection fields that are still empty.
		{Name: domain.EventTaskCreated, Version: 2}:   created,
		{Name: domain.EventTaskAssigned, Version: 2}:  assigned,
		{Name: domain.EventTaskCompleted, Version: 2}: completed,
	}
}

// taskCreated charges the assignment before projecting the task. The
// transaction write is idempotent, so if the projection write fails and the
// message comes back, the second pass only finishes the projection.
func taskCreated(writer *ledger.Writer, projection *ledger.ProjectionWriter) func(context.Context, domain.TaskCreatedData) error {
	return func(ctx context.Context, data domain.TaskCreatedData) error {
		if data.Status == domain.StatusAssigned {
			_, err := writer.CreateAssignedTaskTransaction(ctx, data)
			switch {
			case errors.Is(err, domain.ErrDuplicateTransaction):
				logging.Logger.WithField("task", data.PublicID).Info("transaction already recorded, skipping")
			case errors.Is(err, domain.ErrInvalidInput):
				return fmt.Errorf("%w: %v", errMalformed, err)
			case err != nil:
				return err
			}
		}
		return projection.ApplyCreated(ctx, data)
	}
}
