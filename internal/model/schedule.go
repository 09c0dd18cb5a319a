package model

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// MinuteOfDay is a wall-clock time expressed as minutes since midnight.
// Schedules are stored as "HH:MM" strings and resolved against a concrete
// calendar day only when slots are generated.
type MinuteOfDay int

// ParseClock parses a "HH:MM" 24-hour clock string.
func ParseClock(s string) (MinuteOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return MinuteOfDay(t.Hour()*60 + t.Minute()), nil
}

func (m MinuteOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

// At anchors the clock time to the given calendar day.
func (m MinuteOfDay) At(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), int(m)/60, int(m)%60, 0, 0, day.Location())
}

// TimeWindow is a half-open [Start, End) interval within one day.
type TimeWindow struct {
	Start MinuteOfDay `json:"start"`
	End   MinuteOfDay `json:"end"`
}

func (w TimeWindow) Valid() bool {
	return w.Start >= 0 && w.End <= 24*60 && w.Start < w.End
}

// Overlaps reports whether [start, end) intersects the window.
func (w TimeWindow) Overlaps(start, end MinuteOfDay) bool {
	return w.Start < end && start < w.End
}

// Covers reports whether [start, end) lies entirely inside the window.
func (w TimeWindow) Covers(start, end MinuteOfDay) bool {
	return start >= w.Start && end <= w.End
}

// DaySchedule is one provider's bookable shape for a single weekday:
// working windows, an optional lunch break, the slot grid step and the
// buffer enforced between consecutive appointments. It is owned by the
// external admin tooling and read-only here.
type DaySchedule struct {
	ProviderID    uuid.UUID    `json:"provider_id"`
	Weekday       time.Weekday `json:"weekday"`
	Windows       []TimeWindow `json:"windows"`
	Lunch         *TimeWindow  `json:"lunch,omitempty"`
	SlotMinutes   int          `json:"slot_minutes"`
	BufferMinutes int          `json:"buffer_minutes"`
}

// Validate checks the schedule invariants: positive granularity,
// well-formed non-overlapping windows, lunch contained in a window.
func (s *DaySchedule) Validate() error {
	if s.SlotMinutes <= 0 {
		return fmt.Errorf("slot granularity must be positive, got %d", s.SlotMinutes)
	}
	if s.BufferMinutes < 0 {
		return fmt.Errorf("buffer must not be negative, got %d", s.BufferMinutes)
	}
	if len(s.Windows) == 0 {
		return fmt.Errorf("schedule has no working windows")
	}

	sorted := make([]TimeWindow, len(s.Windows))
	copy(sorted, s.Windows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	for i, w := range sorted {
		if !w.Valid() {
			return fmt.Errorf("invalid working window %s-%s", w.Start, w.End)
		}
		if i > 0 && w.Start < sorted[i-1].End {
			return fmt.Errorf("working windows %s-%s and %s-%s overlap",
				sorted[i-1].Start, sorted[i-1].End, w.Start, w.End)
		}
	}
	s.Windows = sorted

	if s.Lunch != nil {
		if !s.Lunch.Valid() {
			return fmt.Errorf("invalid lunch window %s-%s", s.Lunch.Start, s.Lunch.End)
		}
		inside := false
		for _, w := range s.Windows {
			if w.Covers(s.Lunch.Start, s.Lunch.End) {
				inside = true
				break
			}
		}
		if !inside {
			return fmt.Errorf("lunch window %s-%s is outside working hours", s.Lunch.Start, s.Lunch.End)
		}
	}

	return nil
}

// Slot is a derived bookable interval. It is computed fresh on every
// availability request and never persisted; a cached slot grid goes
// stale the moment anyone books.
type Slot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}
