// Package envelope builds, encodes and validates versioned domain event
// envelopes. Every (event name, version) pair has a JSON schema embedded
// under schemas/; the version table below is part of the wire contract and
// changing a payload shape means adding a new version and a new schema file.
package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"task-ledger/internal/domain"

	"github.com/google/uuid"
)

// Versions is the current contract version of each event the tracker emits.
var Versions = map[domain.EventName]int{
	domain.EventTaskCreated:   3,
	domain.EventTaskAssigned:  3,
	domain.EventTaskCompleted: 3,
}

type Envelope struct {
	EventID       uuid.UUID        `json:"event_id"`
	EventVersion  int              `json:"event_version"`
	EventName     domain.EventName `json:"event_name"`
	EventTime     string           `json:"event_time"`
	EventProducer string           `json:"event_producer"`
	Data          json.RawMessage  `json:"data"`
}

// Key identifies the schema and the consumer handler for an envelope.
type Key struct {
	Name    domain.EventName
	Version int
}

func (e Envelope) Key() Key {
	return Key{Name: e.EventName, Version: e.EventVersion}
}

func (k Key) String() string {
	return fmt.Sprintf("%s v%d", k.Name, k.Version)
}

// Codec stamps envelopes with a producer identity and validates them against
// the schema registry.
type Codec struct {
	producer string
	schemas  *Registry
	now      func() time.Time
}

func NewCodec(producer string, schemas *Registry) *Codec {
	return &Codec{
		producer: producer,
		schemas:  schemas,
		now:      time.Now,
	}
}

// Build wraps data in a fresh envelope and validates it. The returned envelope
// is always safe to publish.
func (c *Codec) Build(name domain.EventName, data any) (Envelope, error) {
	version, ok := Versions[name]
	if !ok {
		return Envelope{}, fmt.Errorf("%w: no contract version for %s", domain.ErrSchemaViolation, name)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s data: %w", name, err)
	}

	env := Envelope{
		EventID:       uuid.New(),
		EventVersion:  version,
		EventName:     name,
		EventTime:     c.now().UTC().Format(time.RFC3339),
		EventProducer: c.producer,
		Data:          raw,
	}
	if err := c.Validate(env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// Validate checks the envelope against the schema registered for its key.
func (c *Codec) Validate(env Envelope) error {
	raw, err := Encode(env)
	if err != nil {
		return err
	}
	return c.schemas.Validate(env.Key(), raw)
}

func Encode(env Envelope) ([]byte, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope %s: %w", env.EventID, err)
	}
	return raw, nil
}

// Decode parses a wire message. A message without event_name yields
// domain.ErrMissingEventName so callers can acknowledge and drop it.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.EventName == "" {
		return Envelope{}, domain.ErrMissingEventName
	}
	return env, nil
}
