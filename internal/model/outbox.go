package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusProcessed OutboxStatus = "processed"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// Outbox event types dispatched by the notification worker.
const (
	OutboxEventBooked      = "appointment.booked"
	OutboxEventCancelled   = "appointment.cancelled"
	OutboxEventRescheduled = "appointment.rescheduled"
)

// OutboxEvent is written in the same transaction as the booking change it
// describes, so downstream notification dispatch survives a publish
// failure without blocking the booking itself.
type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	RetryAt      *time.Time      `db:"retry_at" json:"retry_at,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// BookingNoticePayload is the outbox payload for confirmation dispatch.
// The contact email comes from the booking request; this subsystem holds
// no user directory of its own.
type BookingNoticePayload struct {
	AppointmentID   uuid.UUID `json:"appointment_id"`
	ProviderID      uuid.UUID `json:"provider_id"`
	ClientID        uuid.UUID `json:"client_id"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	ContactEmail    string    `json:"contact_email,omitempty"`
}
