package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/avirajsharma-ops/DTPS-sub004/internal/config"
	"github.com/avirajsharma-ops/DTPS-sub004/internal/email"
	"github.com/avirajsharma-ops/DTPS-sub004/internal/repository/postgres"
	"github.com/avirajsharma-ops/DTPS-sub004/internal/worker"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/logger"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/metrics"
)

func main() {
	cfg, err := config.LoadWorker()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := logger.NewLogger(&logger.Config{Level: level, Output: os.Stdout})

	db, err := postgres.NewDBFromURL(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	m := metrics.New("booking_worker")
	sender := email.NewService(cfg.SMTP, log)
	processor := worker.NewOutboxProcessor(postgres.NewOutboxRepository(db), sender, cfg.Outbox, log, m)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("outbox worker started")
	if err := processor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err, "worker exited")
	}
	log.Info("outbox worker stopped")
}
