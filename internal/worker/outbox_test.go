package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avirajsharma-ops/DTPS-sub004/internal/model"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/logger"
)

type fakeOutboxRepo struct {
	mu      sync.Mutex
	pending []*model.OutboxEvent

	processed []uuid.UUID
	failed    []string
	retries   []*time.Time
}

func (r *fakeOutboxRepo) PendingWithLock(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pending) > limit {
		return r.pending[:limit], nil
	}
	out := r.pending
	r.pending = nil
	return out, nil
}

func (r *fakeOutboxRepo) MarkProcessed(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed = append(r.processed, id)
	return nil
}

func (r *fakeOutboxRepo) MarkFailed(_ context.Context, _ uuid.UUID, errorMessage string, retryAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, errorMessage)
	r.retries = append(r.retries, retryAt)
	return nil
}

func (r *fakeOutboxRepo) DeleteProcessedBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []model.BookingNoticePayload
	err  error
}

func (s *fakeSender) SendBookingNotice(_ string, p model.BookingNoticePayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, p)
	return nil
}

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

func outboxEvent(t *testing.T, retryCount int) *model.OutboxEvent {
	t.Helper()
	payload, err := json.Marshal(model.BookingNoticePayload{
		AppointmentID: uuid.New(),
		ContactEmail:  "client@example.com",
	})
	require.NoError(t, err)
	return &model.OutboxEvent{
		ID:         uuid.New(),
		EventType:  model.OutboxEventBooked,
		Payload:    payload,
		Status:     model.OutboxStatusPending,
		RetryCount: retryCount,
	}
}

func TestProcessBatchDispatchesAndMarks(t *testing.T) {
	evt := outboxEvent(t, 0)
	repo := &fakeOutboxRepo{pending: []*model.OutboxEvent{evt}}
	sender := &fakeSender{}
	p := NewOutboxProcessor(repo, sender, Config{}, testLogger(), nil)

	require.NoError(t, p.processBatch(context.Background()))

	assert.Len(t, sender.sent, 1)
	assert.Equal(t, []uuid.UUID{evt.ID}, repo.processed)
	assert.Empty(t, repo.failed)
}

func TestProcessBatchSchedulesRetry(t *testing.T) {
	repo := &fakeOutboxRepo{pending: []*model.OutboxEvent{outboxEvent(t, 0)}}
	sender := &fakeSender{err: errors.New("smtp down")}
	p := NewOutboxProcessor(repo, sender, Config{MaxRetries: 3, RetryBackoff: time.Minute}, testLogger(), nil)

	require.NoError(t, p.processBatch(context.Background()))

	require.Len(t, repo.failed, 1)
	assert.Contains(t, repo.failed[0], "smtp down")
	require.Len(t, repo.retries, 1)
	assert.NotNil(t, repo.retries[0], "should schedule a retry, not park the row")
}

func TestProcessBatchExhaustsRetries(t *testing.T) {
	repo := &fakeOutboxRepo{pending: []*model.OutboxEvent{outboxEvent(t, 2)}}
	sender := &fakeSender{err: errors.New("smtp down")}
	p := NewOutboxProcessor(repo, sender, Config{MaxRetries: 3, RetryBackoff: time.Minute}, testLogger(), nil)

	require.NoError(t, p.processBatch(context.Background()))

	require.Len(t, repo.retries, 1)
	assert.Nil(t, repo.retries[0], "attempt budget spent, row should be parked")
}

func TestProcessBatchSkipsMalformedPayload(t *testing.T) {
	evt := outboxEvent(t, 0)
	evt.Payload = []byte("{")
	repo := &fakeOutboxRepo{pending: []*model.OutboxEvent{evt}}
	sender := &fakeSender{}
	p := NewOutboxProcessor(repo, sender, Config{}, testLogger(), nil)

	require.NoError(t, p.processBatch(context.Background()))

	assert.Empty(t, sender.sent)
	assert.Len(t, repo.failed, 1)
}

func TestRunStopsOnCancel(t *testing.T) {
	repo := &fakeOutboxRepo{}
	p := NewOutboxProcessor(repo, &fakeSender{}, Config{PollInterval: 10 * time.Millisecond}, testLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
