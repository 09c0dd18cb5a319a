package model

import (
	"time"

	"github.com/google/uuid"
)

type BookingEventType string

const (
	BookingEventBooked      BookingEventType = "booked"
	BookingEventCancelled   BookingEventType = "cancelled"
	BookingEventRescheduled BookingEventType = "rescheduled"
)

// BookingEvent tells calendar watchers that availability changed for a
// provider on a date. It deliberately carries no appointment or client
// details: consumers re-fetch slots, they never patch local state.
type BookingEvent struct {
	Type         BookingEventType `json:"type"`
	ProviderID   uuid.UUID        `json:"provider_id"`
	AffectedDate string           `json:"affected_date"`
	Timestamp    time.Time        `json:"timestamp"`
}

// AffectedDateFormat is the layout of BookingEvent.AffectedDate.
const AffectedDateFormat = "2006-01-02"
