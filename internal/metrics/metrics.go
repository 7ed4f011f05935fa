// Package metrics holds the prometheus collectors shared by both services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_published_total",
		Help: "Envelopes appended to the broker.",
	}, []string{"event_name", "routing_key"})

	PublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_publish_failures_total",
		Help: "Publish attempts that failed, by reason (schema, broker).",
	}, []string{"event_name", "reason"})

	OutboxDead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outbox_dead_total",
		Help: "Outbox messages given up on because they can never validate.",
	})

	MessagesConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "consumer_messages_total",
		Help: "Stream messages seen by the consumer, by outcome.",
	}, []string{"stream", "outcome"})

	TransactionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_transactions_created_total",
		Help: "Accounting transactions written.",
	})

	DuplicateTransactions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_duplicate_transactions_total",
		Help: "Transaction writes suppressed by the idempotency key.",
	})
)
