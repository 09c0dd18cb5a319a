package availability

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avirajsharma-ops/DTPS-sub004/internal/model"
	apperrors "github.com/avirajsharma-ops/DTPS-sub004/pkg/errors"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/logger"
)

// monday is a fixed in-test calendar day.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

type fakeClock struct {
	now time.Time
}

func (c fakeClock) Now() time.Time { return c.now }

type fakeReader struct {
	appointments []*model.Appointment
	err          error
}

func (r *fakeReader) ScheduledInRange(_ context.Context, _ uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []*model.Appointment
	for _, a := range r.appointments {
		if a.Overlaps(from, to) {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeSchedules struct {
	sched *model.DaySchedule
	err   error
}

func (s *fakeSchedules) DaySchedule(context.Context, uuid.UUID, time.Weekday) (*model.DaySchedule, error) {
	return s.sched, s.err
}

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

func morningSchedule() *model.DaySchedule {
	return &model.DaySchedule{
		Weekday:     time.Monday,
		Windows:     []model.TimeWindow{{Start: 9 * 60, End: 12 * 60}},
		SlotMinutes: 30,
	}
}

func newTestService(reader *fakeReader, schedules *fakeSchedules, now time.Time) *Service {
	return NewService(reader, schedules, fakeClock{now: now}, time.Second, testLogger(), nil)
}

func at(hour, minute int) time.Time {
	return time.Date(monday.Year(), monday.Month(), monday.Day(), hour, minute, 0, 0, time.UTC)
}

func TestGetSlotsEmptyDay(t *testing.T) {
	svc := newTestService(&fakeReader{}, &fakeSchedules{sched: morningSchedule()}, monday)

	slots, err := svc.GetSlots(context.Background(), uuid.New(), monday, 30)
	require.NoError(t, err)
	require.Len(t, slots, 6)

	assert.Equal(t, at(9, 0), slots[0].Start)
	assert.Equal(t, at(11, 30), slots[5].Start)
	for i, slot := range slots {
		assert.True(t, slot.Available, "slot %d", i)
		assert.Equal(t, 30*time.Minute, slot.End.Sub(slot.Start))
		if i > 0 {
			assert.True(t, slots[i-1].Start.Before(slot.Start), "slots must ascend")
		}
	}
}

func TestGetSlotsMarksBookedSlots(t *testing.T) {
	reader := &fakeReader{appointments: []*model.Appointment{{
		StartTime: at(10, 0),
		EndTime:   at(10, 30),
		Status:    model.AppointmentStatusScheduled,
	}}}
	svc := newTestService(reader, &fakeSchedules{sched: morningSchedule()}, monday)

	slots, err := svc.GetSlots(context.Background(), uuid.New(), monday, 30)
	require.NoError(t, err)
	require.Len(t, slots, 6)

	for _, slot := range slots {
		if slot.Start.Equal(at(10, 0)) {
			assert.False(t, slot.Available)
		} else {
			assert.True(t, slot.Available, "slot at %s", slot.Start)
		}
	}
}

func TestGetSlotsBufferBlocksNeighbors(t *testing.T) {
	sched := morningSchedule()
	sched.BufferMinutes = 10
	reader := &fakeReader{appointments: []*model.Appointment{{
		StartTime: at(10, 0),
		EndTime:   at(10, 30),
		Status:    model.AppointmentStatusScheduled,
	}}}
	svc := newTestService(reader, &fakeSchedules{sched: sched}, monday)

	slots, err := svc.GetSlots(context.Background(), uuid.New(), monday, 30)
	require.NoError(t, err)
	require.Len(t, slots, 6)

	unavailable := map[string]bool{}
	for _, slot := range slots {
		if !slot.Available {
			unavailable[slot.Start.Format("15:04")] = true
		}
	}
	// The booking itself plus both padded neighbors.
	assert.Equal(t, map[string]bool{"09:30": true, "10:00": true, "10:30": true}, unavailable)
}

func TestGetSlotsExcludesLunch(t *testing.T) {
	sched := &model.DaySchedule{
		Weekday:     time.Monday,
		Windows:     []model.TimeWindow{{Start: 9 * 60, End: 17 * 60}},
		Lunch:       &model.TimeWindow{Start: 12 * 60, End: 13 * 60},
		SlotMinutes: 30,
	}
	svc := newTestService(&fakeReader{}, &fakeSchedules{sched: sched}, monday)

	slots, err := svc.GetSlots(context.Background(), uuid.New(), monday, 30)
	require.NoError(t, err)
	require.NotEmpty(t, slots)

	lunchStart := at(12, 0)
	lunchEnd := at(13, 0)
	for _, slot := range slots {
		overlapsLunch := slot.Start.Before(lunchEnd) && lunchStart.Before(slot.End)
		assert.False(t, overlapsLunch, "slot at %s overlaps lunch", slot.Start)
	}
	// 09:00-12:00 and 13:00-17:00 at a 30 minute step.
	assert.Len(t, slots, 14)
}

func TestGetSlotsExcludesPast(t *testing.T) {
	svc := newTestService(&fakeReader{}, &fakeSchedules{sched: morningSchedule()}, at(10, 15))

	slots, err := svc.GetSlots(context.Background(), uuid.New(), monday, 30)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, at(10, 30), slots[0].Start)
}

func TestGetSlotsLongerDurationOnGrid(t *testing.T) {
	svc := newTestService(&fakeReader{}, &fakeSchedules{sched: morningSchedule()}, monday)

	slots, err := svc.GetSlots(context.Background(), uuid.New(), monday, 60)
	require.NoError(t, err)
	// Candidates still start every 30 minutes; the last 60 minute
	// appointment fitting before 12:00 starts at 11:00.
	require.Len(t, slots, 5)
	assert.Equal(t, at(11, 0), slots[4].Start)
	assert.Equal(t, at(12, 0), slots[4].End)
}

func TestGetSlotsDefaultDuration(t *testing.T) {
	svc := newTestService(&fakeReader{}, &fakeSchedules{sched: morningSchedule()}, monday)

	slots, err := svc.GetSlots(context.Background(), uuid.New(), monday, 0)
	require.NoError(t, err)
	assert.Len(t, slots, 6)
}

func TestGetSlotsNoScheduleForWeekday(t *testing.T) {
	svc := newTestService(&fakeReader{}, &fakeSchedules{}, monday)

	slots, err := svc.GetSlots(context.Background(), uuid.New(), monday, 30)
	require.NoError(t, err)
	assert.NotNil(t, slots)
	assert.Empty(t, slots)
}

func TestGetSlotsStorageFailure(t *testing.T) {
	reader := &fakeReader{err: errors.New("connection refused")}
	svc := newTestService(reader, &fakeSchedules{sched: morningSchedule()}, monday)

	_, err := svc.GetSlots(context.Background(), uuid.New(), monday, 30)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrUnavailable))
}

func TestGetSlotsReadTimeout(t *testing.T) {
	reader := &fakeReader{err: context.DeadlineExceeded}
	svc := newTestService(reader, &fakeSchedules{sched: morningSchedule()}, monday)

	_, err := svc.GetSlots(context.Background(), uuid.New(), monday, 30)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrUnavailable))
	assert.Contains(t, err.Error(), "retry")
}
