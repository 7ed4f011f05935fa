package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"task-ledger/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

// Entry field names inside a stream message.
const (
	fieldKey     = "key"
	fieldPayload = "payload"
)

// StreamPublisher appends envelopes to Redis streams; the routing key is the
// stream name. Streams keep entries until acknowledged by every group, which
// gives the at-least-once delivery the consumers are written for.
type StreamPublisher struct {
	client *redis.Client
	maxLen int64
}

func NewStreamPublisher(client *redis.Client, maxLen int64) *StreamPublisher {
	return &StreamPublisher{client: client, maxLen: maxLen}
}

func (p *StreamPublisher) Publish(ctx context.Context, stream, partitionKey string, payload []byte) error {
	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			fieldKey:     partitionKey,
			fieldPayload: string(payload),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	return p.client.XAdd(ctx, args).Err()
}

type SubscriberConfig struct {
	Streams     []string
	Group       string
	Consumer    string
	Count       int64
	Block       time.Duration
	ReclaimIdle time.Duration
}

// StreamSubscriber reads one consumer group across several streams.
type StreamSubscriber struct {
	client *redis.Client
	cfg    SubscriberConfig
}

func NewStreamSubscriber(client *redis.Client, cfg SubscriberConfig) *StreamSubscriber {
	if cfg.Count <= 0 {
		cfg.Count = 10
	}
	if cfg.Block <= 0 {
		cfg.Block = 2 * time.Second
	}
	return &StreamSubscriber{client: client, cfg: cfg}
}

// EnsureGroups creates the consumer group on every stream, creating the
// stream itself if needed. An existing group is not an error.
func (s *StreamSubscriber) EnsureGroups(ctx context.Context) error {
	for _, stream := range s.cfg.Streams {
		err := s.client.XGroupCreateMkStream(ctx, stream, s.cfg.Group, "0").Err()
		if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
			return fmt.Errorf("create group %s on %s: %w", s.cfg.Group, stream, err)
		}
	}
	return nil
}

// Read blocks up to cfg.Block for new entries. An empty result is not an error.
func (s *StreamSubscriber) Read(ctx context.Context) ([]ports.StreamEntry, error) {
	streams := make([]string, 0, 2*len(s.cfg.Streams))
	streams = append(streams, s.cfg.Streams...)
	for range s.cfg.Streams {
		streams = append(streams, ">")
	}

	res, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.cfg.Group,
		Consumer: s.cfg.Consumer,
		Streams:  streams,
		Count:    s.cfg.Count,
		Block:    s.cfg.Block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []ports.StreamEntry
	for _, stream := range res {
		for _, msg := range stream.Messages {
			entries = append(entries, toEntry(stream.Stream, msg))
		}
	}
	return entries, nil
}

// Reclaim takes over entries another delivery left pending for longer than
// cfg.ReclaimIdle. This is how failed handlers get their redelivery.
func (s *StreamSubscriber) Reclaim(ctx context.Context) ([]ports.StreamEntry, error) {
	var entries []ports.StreamEntry
	for _, stream := range s.cfg.Streams {
		msgs, _, err := s.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   stream,
			Group:    s.cfg.Group,
			Consumer: s.cfg.Consumer,
			MinIdle:  s.cfg.ReclaimIdle,
			Start:    "0-0",
			Count:    s.cfg.Count,
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return entries, fmt.Errorf("reclaim %s: %w", stream, err)
		}
		for _, msg := range msgs {
			entries = append(entries, toEntry(stream, msg))
		}
	}
	return entries, nil
}

func (s *StreamSubscriber) Ack(ctx context.Context, entry ports.StreamEntry) error {
	return s.client.XAck(ctx, entry.Stream, s.cfg.Group, entry.ID).Err()
}

func toEntry(stream string, msg redis.XMessage) ports.StreamEntry {
	entry := ports.StreamEntry{Stream: stream, ID: msg.ID}
	if key, ok := msg.Values[fieldKey].(string); ok {
		entry.Key = key
	}
	if payload, ok := msg.Values[fieldPayload].(string); ok {
		entry.Payload = []byte(payload)
	}
	return entry
}
