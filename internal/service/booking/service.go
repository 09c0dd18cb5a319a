package booking

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/avirajsharma-ops/DTPS-sub004/internal/model"
	"github.com/avirajsharma-ops/DTPS-sub004/internal/repository"
	apperrors "github.com/avirajsharma-ops/DTPS-sub004/pkg/errors"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/logger"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/metrics"
)

// Clock is injected so "booking in the past" checks are testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Notifier receives a booking event after each committed write. Delivery
// is best-effort: the committed data is primary and a failed publish
// must never fail the booking.
type Notifier interface {
	Publish(ctx context.Context, event model.BookingEvent) error
}

// ScheduleSource supplies the provider's shape for a weekday.
type ScheduleSource interface {
	DaySchedule(ctx context.Context, providerID uuid.UUID, weekday time.Weekday) (*model.DaySchedule, error)
}

// Service is the only writer of appointment records. All writes for one
// provider run inside the repository's provider lock, so two concurrent
// requests for overlapping intervals cannot both commit: the first
// writer wins and the loser sees a conflict.
type Service struct {
	repo      repository.AppointmentRepository
	schedules ScheduleSource
	notifier  Notifier
	clock     Clock
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func NewService(repo repository.AppointmentRepository, schedules ScheduleSource, notifier Notifier, clock Clock, log *logger.Logger, m *metrics.Metrics) *Service {
	if clock == nil {
		clock = systemClock{}
	}
	return &Service{
		repo:      repo,
		schedules: schedules,
		notifier:  notifier,
		clock:     clock,
		logger:    log,
		metrics:   m,
	}
}

// CreateParams carries one booking request. IdempotencyKey is supplied
// by the client; retrying a request whose response was lost returns the
// original appointment instead of creating a duplicate.
type CreateParams struct {
	ProviderID        uuid.UUID
	ClientID          uuid.UUID
	Start             time.Time
	DurationMinutes   int
	AppointmentTypeID *uuid.UUID
	ModeID            *uuid.UUID
	CreatedBy         uuid.UUID
	IdempotencyKey    string
	ContactEmail      string
}

// Create books an appointment, re-validating non-overlap inside the
// provider lock. Losing the race yields a Conflict; the client should
// re-fetch slots and pick again.
func (s *Service) Create(ctx context.Context, p CreateParams) (*model.Appointment, error) {
	if p.DurationMinutes <= 0 {
		return nil, apperrors.BadRequest("duration must be positive", nil)
	}
	if p.IdempotencyKey == "" {
		return nil, apperrors.BadRequest("idempotency key is required", nil)
	}
	if p.Start.Before(s.clock.Now()) {
		return nil, apperrors.BadRequest("appointment cannot start in the past", nil)
	}

	end := p.Start.Add(time.Duration(p.DurationMinutes) * time.Minute)

	sched, err := s.schedules.DaySchedule(ctx, p.ProviderID, p.Start.Weekday())
	if err != nil {
		return nil, s.storageError(err)
	}
	if !fitsSchedule(sched, p.Start, end) {
		return nil, apperrors.Conflict("slot unavailable", nil)
	}
	buffer := time.Duration(sched.BufferMinutes) * time.Minute

	var appt *model.Appointment
	var replayed bool

	err = s.repo.WithProviderLock(ctx, p.ProviderID, func(tx repository.BookingTx) error {
		existing, err := tx.ByIdempotencyKey(ctx, p.IdempotencyKey)
		if err != nil {
			return err
		}
		if existing != nil {
			appt = existing
			replayed = true
			return nil
		}

		conflicts, err := tx.ScheduledOverlapping(ctx, p.ProviderID, p.Start.Add(-buffer), end.Add(buffer), nil)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return apperrors.Conflict("slot unavailable", nil)
		}

		key := p.IdempotencyKey
		appt = &model.Appointment{
			ProviderID:        p.ProviderID,
			ClientID:          p.ClientID,
			StartTime:         p.Start,
			EndTime:           end,
			DurationMinutes:   p.DurationMinutes,
			Status:            model.AppointmentStatusScheduled,
			AppointmentTypeID: p.AppointmentTypeID,
			ModeID:            p.ModeID,
			CreatedBy:         p.CreatedBy,
			IdempotencyKey:    &key,
		}
		if err := tx.Insert(ctx, appt); err != nil {
			return err
		}

		return tx.InsertOutbox(ctx, s.outboxEvent(model.OutboxEventBooked, appt, p.ContactEmail))
	})
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrConflict) {
			s.metrics.RecordBooking("create", "conflict")
			return nil, err
		}
		s.metrics.RecordBooking("create", "error")
		return nil, s.storageError(err)
	}

	if replayed {
		s.metrics.RecordBooking("create", "idempotent_replay")
		return appt, nil
	}

	s.metrics.RecordBooking("create", "created")
	s.publish(ctx, model.BookingEventBooked, appt.ProviderID, appt.StartTime)
	return appt, nil
}

// Cancel marks an appointment cancelled. Cancelling an already-cancelled
// appointment is reported through the second return value, not an error.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor uuid.UUID, reason string) (*model.Appointment, bool, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, false, s.storageError(err)
	}

	var appt *model.Appointment
	var alreadyCancelled bool

	err = s.repo.WithProviderLock(ctx, current.ProviderID, func(tx repository.BookingTx) error {
		cur, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}

		switch cur.Status {
		case model.AppointmentStatusCancelled:
			appt = cur
			alreadyCancelled = true
			return nil
		case model.AppointmentStatusScheduled:
			// fall through to the update below
		default:
			return apperrors.Conflict("appointment is no longer active", nil)
		}

		var reasonPtr *string
		if reason != "" {
			reasonPtr = &reason
		}
		if err := tx.UpdateStatus(ctx, id, model.AppointmentStatusScheduled, model.AppointmentStatusCancelled, reasonPtr, nil); err != nil {
			return err
		}

		cur.Status = model.AppointmentStatusCancelled
		cur.CancelReason = reasonPtr
		appt = cur

		return tx.InsertOutbox(ctx, s.outboxEvent(model.OutboxEventCancelled, cur, ""))
	})
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrConflict) || apperrors.IsCode(err, apperrors.ErrNotFound) {
			s.metrics.RecordBooking("cancel", "rejected")
			return nil, false, err
		}
		s.metrics.RecordBooking("cancel", "error")
		return nil, false, s.storageError(err)
	}

	if alreadyCancelled {
		s.metrics.RecordBooking("cancel", "already_cancelled")
		return appt, true, nil
	}

	s.metrics.RecordBooking("cancel", "cancelled")
	s.publish(ctx, model.BookingEventCancelled, appt.ProviderID, appt.StartTime)
	return appt, false, nil
}

// Reschedule retires the original appointment and books a replacement in
// one atomic unit. If the new slot is taken the whole unit rolls back
// and the original stays scheduled; a booking is never lost to a failed
// reschedule.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newStart time.Time, durationMinutes int, actor uuid.UUID) (*model.Appointment, error) {
	if durationMinutes <= 0 {
		return nil, apperrors.BadRequest("duration must be positive", nil)
	}
	if newStart.Before(s.clock.Now()) {
		return nil, apperrors.BadRequest("appointment cannot start in the past", nil)
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.storageError(err)
	}

	newEnd := newStart.Add(time.Duration(durationMinutes) * time.Minute)

	sched, err := s.schedules.DaySchedule(ctx, current.ProviderID, newStart.Weekday())
	if err != nil {
		return nil, s.storageError(err)
	}
	if !fitsSchedule(sched, newStart, newEnd) {
		return nil, apperrors.Conflict("slot unavailable", nil)
	}
	buffer := time.Duration(sched.BufferMinutes) * time.Minute

	var replacement *model.Appointment
	var oldStart time.Time

	err = s.repo.WithProviderLock(ctx, current.ProviderID, func(tx repository.BookingTx) error {
		orig, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if orig.Status != model.AppointmentStatusScheduled {
			return apperrors.Conflict("only scheduled appointments can be rescheduled", nil)
		}
		oldStart = orig.StartTime

		conflicts, err := tx.ScheduledOverlapping(ctx, orig.ProviderID, newStart.Add(-buffer), newEnd.Add(buffer), &orig.ID)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return apperrors.Conflict("slot unavailable", nil)
		}

		replacement = &model.Appointment{
			ProviderID:        orig.ProviderID,
			ClientID:          orig.ClientID,
			StartTime:         newStart,
			EndTime:           newEnd,
			DurationMinutes:   durationMinutes,
			Status:            model.AppointmentStatusScheduled,
			AppointmentTypeID: orig.AppointmentTypeID,
			ModeID:            orig.ModeID,
			CreatedBy:         actor,
		}
		if err := tx.Insert(ctx, replacement); err != nil {
			return err
		}

		if err := tx.UpdateStatus(ctx, orig.ID, model.AppointmentStatusScheduled, model.AppointmentStatusRescheduled, nil, &replacement.ID); err != nil {
			return err
		}

		return tx.InsertOutbox(ctx, s.outboxEvent(model.OutboxEventRescheduled, replacement, ""))
	})
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrConflict) || apperrors.IsCode(err, apperrors.ErrNotFound) {
			s.metrics.RecordBooking("reschedule", "rejected")
			return nil, err
		}
		s.metrics.RecordBooking("reschedule", "error")
		return nil, s.storageError(err)
	}

	s.metrics.RecordBooking("reschedule", "rescheduled")
	s.publish(ctx, model.BookingEventRescheduled, replacement.ProviderID, replacement.StartTime)
	if oldStart.Format(model.AffectedDateFormat) != replacement.StartTime.Format(model.AffectedDateFormat) {
		// Watchers of the original date need a re-fetch too.
		s.publish(ctx, model.BookingEventRescheduled, replacement.ProviderID, oldStart)
	}
	return replacement, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.storageError(err)
	}
	return appt, nil
}

func (s *Service) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	appointments, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, s.storageError(err)
	}
	return appointments, nil
}

// fitsSchedule reports whether [start, end) lies inside a working window
// and clear of the lunch break. A missing schedule means the provider
// has no bookable time that day.
func fitsSchedule(sched *model.DaySchedule, start, end time.Time) bool {
	if sched == nil {
		return false
	}

	startM := model.MinuteOfDay(start.Hour()*60 + start.Minute())
	endM := startM + model.MinuteOfDay(end.Sub(start)/time.Minute)
	if endM > 24*60 {
		return false
	}

	if sched.Lunch != nil && sched.Lunch.Overlaps(startM, endM) {
		return false
	}
	for _, w := range sched.Windows {
		if w.Covers(startM, endM) {
			return true
		}
	}
	return false
}

func (s *Service) publish(ctx context.Context, eventType model.BookingEventType, providerID uuid.UUID, affected time.Time) {
	event := model.BookingEvent{
		Type:         eventType,
		ProviderID:   providerID,
		AffectedDate: affected.Format(model.AffectedDateFormat),
		Timestamp:    s.clock.Now(),
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		// Distinct from storage failures: the write already committed.
		s.metrics.IncNotifyFailures()
		s.logger.Error(err, "failed to publish booking event",
			"type", string(eventType), "provider_id", providerID.String())
	}
}

func (s *Service) outboxEvent(eventType string, appt *model.Appointment, contactEmail string) *model.OutboxEvent {
	payload, err := json.Marshal(model.BookingNoticePayload{
		AppointmentID:   appt.ID,
		ProviderID:      appt.ProviderID,
		ClientID:        appt.ClientID,
		StartTime:       appt.StartTime,
		DurationMinutes: appt.DurationMinutes,
		ContactEmail:    contactEmail,
	})
	if err != nil {
		payload = []byte("{}")
	}
	return &model.OutboxEvent{
		EventType: eventType,
		Payload:   payload,
	}
}

// storageError passes classified errors through and wraps everything
// else as a transient storage fault, which the client may retry with
// the same idempotency key.
func (s *Service) storageError(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Unavailable("storage unavailable", err)
}
