package availability

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/avirajsharma-ops/DTPS-sub004/internal/model"
	apperrors "github.com/avirajsharma-ops/DTPS-sub004/pkg/errors"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/logger"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/metrics"
)

// Clock is injected so "past slot" decisions are deterministic in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the ambient wall clock.
func SystemClock() Clock { return systemClock{} }

// AppointmentReader is the read-only slice of the appointment store the
// calculator needs.
type AppointmentReader interface {
	ScheduledInRange(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]*model.Appointment, error)
}

// ScheduleSource supplies the provider's shape for a weekday.
type ScheduleSource interface {
	DaySchedule(ctx context.Context, providerID uuid.UUID, weekday time.Weekday) (*model.DaySchedule, error)
}

// Service computes bookable slots. It is a pure read: it never mutates
// state and tolerates any number of concurrent callers.
type Service struct {
	appointments AppointmentReader
	schedules    ScheduleSource
	clock        Clock
	readTimeout  time.Duration
	logger       *logger.Logger
	metrics      *metrics.Metrics
}

func NewService(appointments AppointmentReader, schedules ScheduleSource, clock Clock, readTimeout time.Duration, log *logger.Logger, m *metrics.Metrics) *Service {
	if clock == nil {
		clock = SystemClock()
	}
	if readTimeout <= 0 {
		readTimeout = 3 * time.Second
	}
	return &Service{
		appointments: appointments,
		schedules:    schedules,
		clock:        clock,
		readTimeout:  readTimeout,
		logger:       log,
		metrics:      m,
	}
}

// GetSlots returns the ascending slot grid for a provider on a calendar
// day. durationMinutes <= 0 means "use the provider's granularity".
//
// Candidates step by the schedule granularity, not the requested
// duration, so appointment types of different lengths line up on one
// grid. Candidates overlapping the lunch break are omitted, candidates
// starting before "now" are omitted, and candidates colliding with an
// existing booking (buffer included) are returned with available=false
// so the client can render them greyed out.
func (s *Service) GetSlots(ctx context.Context, providerID uuid.UUID, day time.Time, durationMinutes int) ([]model.Slot, error) {
	started := time.Now()
	defer func() { s.metrics.ObserveSlotQuery(time.Since(started)) }()

	ctx, cancel := context.WithTimeout(ctx, s.readTimeout)
	defer cancel()

	sched, err := s.schedules.DaySchedule(ctx, providerID, day.Weekday())
	if err != nil {
		return nil, s.readError("failed to load provider schedule", err)
	}
	if sched == nil {
		// Provider does not work this weekday.
		return []model.Slot{}, nil
	}

	if durationMinutes == 0 {
		durationMinutes = sched.SlotMinutes
	}
	if durationMinutes <= 0 {
		return nil, apperrors.BadRequest("duration must be positive", nil)
	}
	duration := time.Duration(durationMinutes) * time.Minute
	buffer := time.Duration(sched.BufferMinutes) * time.Minute

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	// Widen the read window by the buffer so a neighboring booking just
	// outside the day can still block the first or last slot.
	existing, err := s.appointments.ScheduledInRange(ctx, providerID, dayStart.Add(-buffer-duration), dayEnd.Add(buffer))
	if err != nil {
		return nil, s.readError("failed to load existing appointments", err)
	}

	now := s.clock.Now()
	durMinutes := model.MinuteOfDay(durationMinutes)

	slots := []model.Slot{}
	for _, w := range sched.Windows {
		for m := w.Start; m+durMinutes <= w.End; m += model.MinuteOfDay(sched.SlotMinutes) {
			if sched.Lunch != nil && sched.Lunch.Overlaps(m, m+durMinutes) {
				continue
			}

			start := m.At(dayStart)
			if start.Before(now) {
				continue
			}
			end := start.Add(duration)

			slots = append(slots, model.Slot{
				Start:     start,
				End:       end,
				Available: !collides(existing, start.Add(-buffer), end.Add(buffer)),
			})
		}
	}

	return slots, nil
}

func collides(existing []*model.Appointment, start, end time.Time) bool {
	for _, appt := range existing {
		if appt.Overlaps(start, end) {
			return true
		}
	}
	return false
}

// readError distinguishes "slots unknown, retry" timeouts from plain
// storage faults; both are retryable for the caller.
func (s *Service) readError(msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("availability read timed out")
		return apperrors.Unavailable("slots unknown, retry", err)
	}
	s.logger.Error(err, msg)
	return apperrors.Unavailable(msg, err)
}
