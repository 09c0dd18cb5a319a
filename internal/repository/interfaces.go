package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/avirajsharma-ops/DTPS-sub004/internal/model"
)

// AppointmentRepository is the durable appointment store. Reads are
// uncoordinated; every write goes through WithProviderLock so the
// overlap re-check and the mutation commit or fail as one unit.
type AppointmentRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)

	// ScheduledInRange returns scheduled appointments whose interval
	// intersects [from, to), ordered by start time.
	ScheduledInRange(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]*model.Appointment, error)

	List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)

	// WithProviderLock runs fn inside a transaction that holds an
	// exclusive per-provider lock. Returning an error from fn rolls the
	// whole transaction back, including any outbox rows it wrote.
	WithProviderLock(ctx context.Context, providerID uuid.UUID, fn func(tx BookingTx) error) error
}

// BookingTx is the write surface available inside a provider lock.
type BookingTx interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	ByIdempotencyKey(ctx context.Context, key string) (*model.Appointment, error)
	ScheduledOverlapping(ctx context.Context, providerID uuid.UUID, start, end time.Time, exclude *uuid.UUID) ([]*model.Appointment, error)
	Insert(ctx context.Context, appt *model.Appointment) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus, reason *string, rescheduledTo *uuid.UUID) error
	InsertOutbox(ctx context.Context, event *model.OutboxEvent) error
}

// ScheduleRepository reads provider schedules managed by external admin
// tooling. A provider without a schedule for a weekday yields (nil, nil).
type ScheduleRepository interface {
	DaySchedule(ctx context.Context, providerID uuid.UUID, weekday time.Weekday) (*model.DaySchedule, error)
}

// OutboxRepository is used by the notification worker.
type OutboxRepository interface {
	PendingWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string, retryAt *time.Time) error
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}
