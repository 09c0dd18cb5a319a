package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avirajsharma-ops/DTPS-sub004/internal/model"
)

type scheduleRow struct {
	ProviderID    uuid.UUID `db:"provider_id"`
	Weekday       int       `db:"weekday"`
	WorkStart     string    `db:"work_start"`
	WorkEnd       string    `db:"work_end"`
	LunchStart    *string   `db:"lunch_start"`
	LunchEnd      *string   `db:"lunch_end"`
	SlotMinutes   int       `db:"slot_minutes"`
	BufferMinutes int       `db:"buffer_minutes"`
}

// DaySchedule aggregates one row per working window into a validated
// DaySchedule. No rows means the provider does not work that weekday,
// which is a normal empty result, not an error.
func (r *scheduleRepository) DaySchedule(ctx context.Context, providerID uuid.UUID, weekday time.Weekday) (*model.DaySchedule, error) {
	query := `
		SELECT provider_id, weekday, work_start, work_end,
			   lunch_start, lunch_end, slot_minutes, buffer_minutes
		FROM provider_schedules
		WHERE provider_id = $1 AND weekday = $2
		ORDER BY work_start ASC
	`
	var rows []scheduleRow
	if err := r.db.SelectContext(ctx, &rows, query, providerID, int(weekday)); err != nil {
		return nil, fmt.Errorf("failed to load provider schedule: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	sched := &model.DaySchedule{
		ProviderID:    providerID,
		Weekday:       weekday,
		SlotMinutes:   rows[0].SlotMinutes,
		BufferMinutes: rows[0].BufferMinutes,
	}

	for _, row := range rows {
		start, err := model.ParseClock(row.WorkStart)
		if err != nil {
			return nil, fmt.Errorf("bad schedule row for provider %s: %w", providerID, err)
		}
		end, err := model.ParseClock(row.WorkEnd)
		if err != nil {
			return nil, fmt.Errorf("bad schedule row for provider %s: %w", providerID, err)
		}
		sched.Windows = append(sched.Windows, model.TimeWindow{Start: start, End: end})

		if sched.Lunch == nil && row.LunchStart != nil && row.LunchEnd != nil {
			ls, err := model.ParseClock(*row.LunchStart)
			if err != nil {
				return nil, fmt.Errorf("bad lunch window for provider %s: %w", providerID, err)
			}
			le, err := model.ParseClock(*row.LunchEnd)
			if err != nil {
				return nil, fmt.Errorf("bad lunch window for provider %s: %w", providerID, err)
			}
			sched.Lunch = &model.TimeWindow{Start: ls, End: le}
		}
	}

	if err := sched.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schedule for provider %s on %s: %w", providerID, weekday, err)
	}
	return sched, nil
}
