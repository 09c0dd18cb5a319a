package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/avirajsharma-ops/DTPS-sub004/internal/model"
	"github.com/avirajsharma-ops/DTPS-sub004/internal/repository"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/logger"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/metrics"
)

// NoticeSender dispatches one booking notice to the outside world.
type NoticeSender interface {
	SendBookingNotice(eventType string, p model.BookingNoticePayload) error
}

type Config struct {
	PollInterval    time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"5s"`
	BatchSize       int           `envconfig:"OUTBOX_BATCH_SIZE" default:"50"`
	MaxRetries      int           `envconfig:"OUTBOX_MAX_RETRIES" default:"5"`
	RetryBackoff    time.Duration `envconfig:"OUTBOX_RETRY_BACKOFF" default:"1m"`
	CleanupInterval time.Duration `envconfig:"OUTBOX_CLEANUP_INTERVAL" default:"1h"`
	RetainProcessed time.Duration `envconfig:"OUTBOX_RETAIN_PROCESSED" default:"168h"`
}

// OutboxProcessor drains pending outbox rows and hands each to the
// sender. Rows are claimed with a row lock, so multiple workers can run
// side by side without double-sending.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	sender  NoticeSender
	cfg     Config
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewOutboxProcessor(repo repository.OutboxRepository, sender NoticeSender, cfg Config, log *logger.Logger, m *metrics.Metrics) *OutboxProcessor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Minute
	}
	return &OutboxProcessor{repo: repo, sender: sender, cfg: cfg, logger: log, metrics: m}
}

// Run polls until ctx is cancelled.
func (p *OutboxProcessor) Run(ctx context.Context) error {
	poll := time.NewTicker(p.cfg.PollInterval)
	defer poll.Stop()

	var cleanup <-chan time.Time
	if p.cfg.CleanupInterval > 0 {
		t := time.NewTicker(p.cfg.CleanupInterval)
		defer t.Stop()
		cleanup = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-poll.C:
			if err := p.processBatch(ctx); err != nil {
				p.logger.Error(err, "outbox batch failed")
			}
		case <-cleanup:
			p.cleanupProcessed(ctx)
		}
	}
}

func (p *OutboxProcessor) processBatch(ctx context.Context) error {
	events, err := p.repo.PendingWithLock(ctx, p.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, event := range events {
		if err := p.dispatch(event); err != nil {
			p.markFailure(ctx, event, err)
			continue
		}
		if err := p.repo.MarkProcessed(ctx, event.ID); err != nil {
			p.logger.Error(err, "failed to mark outbox event processed", "event_id", event.ID.String())
			continue
		}
		p.metrics.IncOutboxProcessed()
	}
	return nil
}

func (p *OutboxProcessor) dispatch(event *model.OutboxEvent) error {
	var payload model.BookingNoticePayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return err
	}
	return p.sender.SendBookingNotice(event.EventType, payload)
}

// markFailure retries with a linear backoff until the attempt budget is
// spent, then parks the row as failed for operator attention.
func (p *OutboxProcessor) markFailure(ctx context.Context, event *model.OutboxEvent, cause error) {
	var retryAt *time.Time
	if event.RetryCount+1 < p.cfg.MaxRetries {
		at := time.Now().Add(p.cfg.RetryBackoff * time.Duration(event.RetryCount+1))
		retryAt = &at
	} else {
		p.metrics.IncOutboxFailed()
	}

	if err := p.repo.MarkFailed(ctx, event.ID, cause.Error(), retryAt); err != nil {
		p.logger.Error(err, "failed to record outbox failure", "event_id", event.ID.String())
		return
	}
	p.logger.Warn("outbox dispatch failed",
		"event_id", event.ID.String(),
		"event_type", event.EventType,
		"retry_count", event.RetryCount+1,
		"error", cause.Error(),
	)
}

func (p *OutboxProcessor) cleanupProcessed(ctx context.Context) {
	deleted, err := p.repo.DeleteProcessedBefore(ctx, time.Now().Add(-p.cfg.RetainProcessed))
	if err != nil {
		p.logger.Error(err, "outbox cleanup failed")
		return
	}
	if deleted > 0 {
		p.logger.Info("outbox cleanup", "deleted", deleted)
	}
}
