package models

import (
	"encoding/json"
	"time"
)

// OutboxStatus represents the status of an outbox message
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusCompleted  OutboxStatus = "completed"
	OutboxStatusFailed     OutboxStatus = "failed"
)

const (
	AggregateTypeSetting  = "setting"
	EventTypeSettingSaved = "setting_updated"
)

// OutboxMessage is an event waiting in the outbox table to be published
type OutboxMessage struct {
	ID                 int64        `db:"id" json:"id"`
	AggregateType      string       `db:"aggregate_type" json:"aggregate_type"`
	AggregateID        string       `db:"aggregate_id" json:"aggregate_id"`
	EventType          string       `db:"event_type" json:"event_type"`
	Payload            []byte       `db:"payload" json:"payload"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at"`
	ProcessedAt        *time.Time   `db:"processed_at" json:"processed_at,omitempty"`
	ProcessingAttempts int          `db:"processing_attempts" json:"processing_attempts"`
	LastError          *string      `db:"last_error" json:"last_error,omitempty"`
	Status             OutboxStatus `db:"status" json:"status"`
}

// OutboxMessageEvent is the JSON envelope stored in OutboxMessage.Payload
type OutboxMessageEvent struct {
	EventType   string      `json:"event_type"`
	EventID     string      `json:"event_id"`
	AggregateID string      `json:"aggregate_id"`
	OccurredAt  time.Time   `json:"occurred_at"`
	Data        interface{} `json:"data"`
}

// SettingUpdatedData is the event body for a saved setting. The value is
// deliberately left out; consumers read it back from the settings table.
type SettingUpdatedData struct {
	Key       string    `json:"key"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSettingUpdatedEvent creates the outbox message announcing a saved setting
func NewSettingUpdatedEvent(setting *Setting) (*OutboxMessage, error) {
	now := GetCurrentTime()

	event := OutboxMessageEvent{
		EventType:   EventTypeSettingSaved,
		EventID:     GenerateID("evt"),
		AggregateID: setting.Key,
		OccurredAt:  now,
		Data: SettingUpdatedData{
			Key:       setting.Key,
			UpdatedAt: setting.UpdatedAt,
		},
	}

	payload, err := json.Marshal(event)

	if err != nil {
		return nil, err
	}

	return &OutboxMessage{
		AggregateType: AggregateTypeSetting,
		AggregateID:   setting.Key,
		EventType:     event.EventType,
		Payload:       payload,
		CreatedAt:     now,
		Status:        OutboxStatusPending,
	}, nil
}
