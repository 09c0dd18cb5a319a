package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/avirajsharma-ops/DTPS-sub004/internal/config"
	appointmenthandler "github.com/avirajsharma-ops/DTPS-sub004/internal/handler/appointment"
	availabilityhandler "github.com/avirajsharma-ops/DTPS-sub004/internal/handler/availability"
	eventshandler "github.com/avirajsharma-ops/DTPS-sub004/internal/handler/events"
	healthhandler "github.com/avirajsharma-ops/DTPS-sub004/internal/handler/health"
	"github.com/avirajsharma-ops/DTPS-sub004/internal/notifier"
	"github.com/avirajsharma-ops/DTPS-sub004/internal/repository/postgres"
	"github.com/avirajsharma-ops/DTPS-sub004/internal/router"
	"github.com/avirajsharma-ops/DTPS-sub004/internal/service/availability"
	"github.com/avirajsharma-ops/DTPS-sub004/internal/service/booking"
	"github.com/avirajsharma-ops/DTPS-sub004/internal/service/schedule"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/auth"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/logger"
	redisbroker "github.com/avirajsharma-ops/DTPS-sub004/pkg/messaging/redis"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/metrics"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/validator"
)

func main() {
	configPath := flag.String("config", "", "directory containing config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := logger.NewLogger(&logger.Config{Level: level, Output: os.Stdout})

	if err := run(cfg, log); err != nil {
		log.Fatal(err, "server exited")
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	db, err := postgres.NewDB(postgres.DBConfig{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Name:         cfg.Database.Name,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	broker, err := redisbroker.NewBroker(redisbroker.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, log)
	if err != nil {
		return err
	}
	defer broker.Close()

	m := metrics.New("booking")

	appointmentRepo := postgres.NewAppointmentRepository(db)
	scheduleRepo := postgres.NewScheduleRepository(db)
	schedules := schedule.NewCachedSource(scheduleRepo, cfg.Availability.ScheduleTTL, m)

	hub := notifier.NewHub(m)
	events := notifier.NewService(broker, hub, log, m)

	availabilitySvc := availability.NewService(appointmentRepo, schedules, availability.SystemClock(), cfg.Availability.ReadTimeout, log, m)
	bookingSvc := booking.NewService(appointmentRepo, schedules, events, nil, log, m)

	verifier := auth.NewTokenVerifier(cfg.Auth.JWTSecret)
	v := validator.New()

	engine := router.New(router.Handlers{
		Availability: availabilityhandler.NewHandler(availabilitySvc, log),
		Appointment:  appointmenthandler.NewHandler(bookingSvc, v, log),
		Events:       eventshandler.NewHandler(events, log),
		Health:       healthhandler.NewHandler(db, broker),
	}, verifier, log, m, router.Options{
		RequestTimeout: cfg.Server.RequestTimeout,
		RateLimitRPS:   cfg.RateLimit.RPS,
		RateLimitBurst: cfg.RateLimit.Burst,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Bridge broker events into the in-process hub for SSE clients.
	go func() {
		if err := events.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error(err, "event bridge stopped")
		}
	}()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
