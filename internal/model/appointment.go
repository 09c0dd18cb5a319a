package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled   AppointmentStatus = "scheduled"
	AppointmentStatusCancelled   AppointmentStatus = "cancelled"
	AppointmentStatusCompleted   AppointmentStatus = "completed"
	AppointmentStatusRescheduled AppointmentStatus = "rescheduled"
)

// Terminal reports whether the status admits no further time changes.
// A rescheduled appointment lives on as history; the replacement booking
// is a separate record linked through RescheduledTo.
func (s AppointmentStatus) Terminal() bool {
	return s != AppointmentStatusScheduled
}

type Appointment struct {
	Base
	ProviderID        uuid.UUID         `db:"provider_id" json:"provider_id"`
	ClientID          uuid.UUID         `db:"client_id" json:"client_id"`
	StartTime         time.Time         `db:"start_time" json:"start_time"`
	EndTime           time.Time         `db:"end_time" json:"end_time"`
	DurationMinutes   int               `db:"duration_minutes" json:"duration_minutes"`
	Status            AppointmentStatus `db:"status" json:"status"`
	AppointmentTypeID *uuid.UUID        `db:"appointment_type_id" json:"appointment_type_id,omitempty"`
	ModeID            *uuid.UUID        `db:"mode_id" json:"mode_id,omitempty"`
	CreatedBy         uuid.UUID         `db:"created_by" json:"created_by"`
	IdempotencyKey    *string           `db:"idempotency_key" json:"-"`
	CancelReason      *string           `db:"cancel_reason" json:"cancel_reason,omitempty"`
	RescheduledTo     *uuid.UUID        `db:"rescheduled_to" json:"rescheduled_to,omitempty"`
}

// Overlaps reports whether [start, end) intersects this appointment's
// interval. Both intervals are half-open.
func (a *Appointment) Overlaps(start, end time.Time) bool {
	return a.StartTime.Before(end) && start.Before(a.EndTime)
}

type CreateAppointmentRequest struct {
	ProviderID        string    `json:"provider_id" validate:"required,uuid"`
	ClientID          string    `json:"client_id" validate:"omitempty,uuid"`
	StartTime         time.Time `json:"start_time" validate:"required"`
	DurationMinutes   int       `json:"duration_minutes" validate:"required,gt=0"`
	AppointmentTypeID string    `json:"appointment_type_id" validate:"omitempty,uuid"`
	ModeID            string    `json:"mode_id" validate:"omitempty,uuid"`
	IdempotencyKey    string    `json:"idempotency_key" validate:"required,max=64"`
	ContactEmail      string    `json:"contact_email" validate:"omitempty,email"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type RescheduleAppointmentRequest struct {
	StartTime       time.Time `json:"start_time" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"required,gt=0"`
}

type AppointmentFilters struct {
	ProviderID uuid.UUID
	ClientID   uuid.UUID
	Status     AppointmentStatus
	From       time.Time
	To         time.Time
}
