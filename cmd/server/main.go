package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"nsiwatch/internal/authority"
	"nsiwatch/internal/catalog"
	"nsiwatch/internal/config"
	"nsiwatch/internal/events"
	"nsiwatch/internal/handlers"
	"nsiwatch/internal/middleware"
	"nsiwatch/internal/notify"
	"nsiwatch/internal/pipeline"
	"nsiwatch/internal/plugin"
	"nsiwatch/internal/plugins/lookup"
	"nsiwatch/internal/plugins/reports"
	"nsiwatch/internal/plugins/stats"
	"nsiwatch/internal/plugins/updates"
	"nsiwatch/internal/scheduler"
	"nsiwatch/internal/store"
	"nsiwatch/internal/stream"
)

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Development() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
}

func main() {
	cfg := config.Load()
	setupLogging(cfg)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("database initialization failed")
	}
	defer db.Close()
	if err := notify.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("database initialization failed")
	}

	client, err := authority.NewClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("authority client initialization failed")
	}

	bus := events.NewBus()

	dispatcher := notify.NewDispatcher(db, cfg.Subscribers, nil)
	dispatcher.Attach(bus)

	hub := stream.NewHub()
	hub.Attach(bus)

	catalogs := catalog.NewManager(db, client, bus, cfg)
	checker := pipeline.NewChecker(db, client, bus)

	registry := plugin.NewRegistry(cfg)
	registry.Register(updates.New(checker, cfg))
	registry.Register(reports.New(catalogs, bus))
	registry.Register(lookup.New(db, catalogs, cfg))
	registry.Register(stats.New(db))

	sched := scheduler.New()
	for _, task := range registry.CollectScheduledTasks() {
		if err := sched.AddTask(task); err != nil {
			log.Fatal().Err(err).Str("task", task.Name).Msg("scheduler registration failed")
		}
	}
	sched.Start()

	mux := http.NewServeMux()
	api := handlers.New(db, registry, checker, hub)
	api.Register(mux)
	registry.Bind(mux)

	limiter := middleware.NewRateLimiter(120, time.Minute)
	handler := middleware.CORS(middleware.Logging(limiter.Limit(mux)))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("server shutdown")
	}

	sched.Stop()
	hub.CloseAll()
	registry.ShutdownAll()

	log.Info().Msg("stopped")
}
