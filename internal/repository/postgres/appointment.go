package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/avirajsharma-ops/DTPS-sub004/internal/model"
	"github.com/avirajsharma-ops/DTPS-sub004/internal/repository"
	apperrors "github.com/avirajsharma-ops/DTPS-sub004/pkg/errors"
)

const appointmentColumns = `
	id, provider_id, client_id, start_time, end_time, duration_minutes,
	status, appointment_type_id, mode_id, created_by, idempotency_key,
	cancel_reason, rescheduled_to, created_at, updated_at
`

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var appt model.Appointment
	err := r.db.GetContext(ctx, &appt, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("appointment", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appt, nil
}

func (r *appointmentRepository) ScheduledInRange(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE provider_id = $1
		AND status = $2
		AND start_time < $4
		AND end_time > $3
		ORDER BY start_time ASC
	`
	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, providerID, model.AppointmentStatusScheduled, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE provider_id = $1`
	args := []interface{}{filters.ProviderID}
	argCount := 2

	if filters.ClientID != uuid.Nil {
		query += fmt.Sprintf(" AND client_id = $%d", argCount)
		args = append(args, filters.ClientID)
		argCount++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}
	if !filters.From.IsZero() {
		query += fmt.Sprintf(" AND end_time > $%d", argCount)
		args = append(args, filters.From)
		argCount++
	}
	if !filters.To.IsZero() {
		query += fmt.Sprintf(" AND start_time < $%d", argCount)
		args = append(args, filters.To)
		argCount++
	}

	query += " ORDER BY start_time ASC"

	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

// WithProviderLock serializes all booking writes for one provider using a
// transaction-scoped advisory lock, so the conflict re-check and insert
// are atomic even across processes. Writes for different providers never
// contend.
func (r *appointmentRepository) WithProviderLock(ctx context.Context, providerID uuid.UUID, fn func(tx repository.BookingTx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, providerID.String()); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to acquire provider lock: %w", err)
	}

	if err := fn(&bookingTx{tx: tx}); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking transaction: %w", err)
	}
	return nil
}

type bookingTx struct {
	tx *sqlx.Tx
}

func (t *bookingTx) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var appt model.Appointment
	err := t.tx.GetContext(ctx, &appt, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("appointment", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appt, nil
}

func (t *bookingTx) ByIdempotencyKey(ctx context.Context, key string) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE idempotency_key = $1`

	var appt model.Appointment
	err := t.tx.GetContext(ctx, &appt, query, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
	return &appt, nil
}

func (t *bookingTx) ScheduledOverlapping(ctx context.Context, providerID uuid.UUID, start, end time.Time, exclude *uuid.UUID) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE provider_id = $1
		AND status = $2
		AND start_time < $4
		AND end_time > $3
	`
	args := []interface{}{providerID, model.AppointmentStatusScheduled, start, end}

	if exclude != nil {
		query += " AND id != $5"
		args = append(args, *exclude)
	}

	query += " ORDER BY start_time ASC"

	var appointments []*model.Appointment
	err := t.tx.SelectContext(ctx, &appointments, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to check overlapping appointments: %w", err)
	}
	return appointments, nil
}

func (t *bookingTx) Insert(ctx context.Context, appt *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, provider_id, client_id, start_time, end_time, duration_minutes,
			status, appointment_type_id, mode_id, created_by, idempotency_key,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	now := time.Now()
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	appt.CreatedAt = now
	appt.UpdatedAt = now

	_, err := t.tx.ExecContext(ctx, query,
		appt.ID,
		appt.ProviderID,
		appt.ClientID,
		appt.StartTime,
		appt.EndTime,
		appt.DurationMinutes,
		appt.Status,
		appt.AppointmentTypeID,
		appt.ModeID,
		appt.CreatedBy,
		appt.IdempotencyKey,
		appt.CreatedAt,
		appt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert appointment: %w", err)
	}
	return nil
}

func (t *bookingTx) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus, reason *string, rescheduledTo *uuid.UUID) error {
	query := `
		UPDATE appointments
		SET status = $1,
			cancel_reason = COALESCE($2, cancel_reason),
			rescheduled_to = COALESCE($3, rescheduled_to),
			updated_at = $4
		WHERE id = $5 AND status = $6
	`
	result, err := t.tx.ExecContext(ctx, query, to, reason, rescheduledTo, time.Now(), id, from)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// The row was re-read under the provider lock just before this,
		// so a miss means the id is gone, not a lost race.
		return apperrors.NotFound("appointment", nil)
	}
	return nil
}

func (t *bookingTx) InsertOutbox(ctx context.Context, event *model.OutboxEvent) error {
	query := `
		INSERT INTO outbox_events (
			id, event_type, payload, status, retry_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	now := time.Now()
	event.ID = uuid.New()
	event.Status = model.OutboxStatusPending
	event.CreatedAt = now
	event.UpdatedAt = now

	_, err := t.tx.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		event.Payload,
		event.Status,
		event.RetryCount,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}
