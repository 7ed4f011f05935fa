package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "pending"
	OutboxPublished OutboxStatus = "published"
	// OutboxDead marks envelopes that can never be published (schema violation).
	OutboxDead OutboxStatus = "dead"
)

// OutboxMessage is an encoded envelope committed together with the task
// mutation that produced it. The relay publishes it afterwards.
type OutboxMessage struct {
	ID           uint           `gorm:"primaryKey;autoIncrement"`
	EventID      uuid.UUID      `gorm:"type:uuid;uniqueIndex;not null"`
	EventName    EventName      `gorm:"type:varchar(64);not null"`
	RoutingKey   string         `gorm:"type:varchar(64);not null"`
	PartitionKey string         `gorm:"type:varchar(64);index;not null"`
	Payload      datatypes.JSON `gorm:"type:jsonb;not null"`
	Status       OutboxStatus   `gorm:"type:varchar(20);index;default:'pending'"`
	Attempts     int            `gorm:"default:0"`
	NextAttempt  time.Time      `gorm:"column:next_attempt_at;index"`
	LastError    *string        `gorm:"type:text"`
	PublishedAt  *time.Time

	CreatedAt time.Time
}

func (OutboxMessage) TableName() string { return "outbox_messages" }
