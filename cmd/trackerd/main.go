package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/driftwatch/trackerd/internal/capture"
	"github.com/driftwatch/trackerd/internal/config"
	"github.com/driftwatch/trackerd/internal/database"
	"github.com/driftwatch/trackerd/internal/handler"
	"github.com/driftwatch/trackerd/internal/jobs"
	"github.com/driftwatch/trackerd/internal/llm"
	"github.com/driftwatch/trackerd/internal/middleware"
	"github.com/driftwatch/trackerd/internal/probe"
	"github.com/driftwatch/trackerd/internal/repository"
	"github.com/driftwatch/trackerd/internal/service"
	"github.com/driftwatch/trackerd/internal/sse"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to resolve database path")
	}

	db, err := database.Connect(dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Str("path", dbPath).Msg("database opened")

	sessionRepo := repository.NewSessionRepository(db.DB)
	eventRepo := repository.NewSessionEventRepository(db.DB)
	captureRepo := repository.NewCaptureRepository(db.DB)
	feelingRepo := repository.NewFeelingRepository(db.DB)
	reportRepo := repository.NewReportRepository(db.DB)

	broker := sse.NewBroker()
	defer broker.Close()

	windowProbe := probe.NewHelperProbe(cfg.ProbeCommand)

	poller := capture.NewPoller(windowProbe, windowProbe, captureRepo, capture.NewBrokerNotifier(broker), capture.Config{
		Interval:         config.CapturePollInterval,
		ProbeTimeout:     config.CaptureProbeTimeout,
		FailureThreshold: config.CaptureFailureThreshold,
	})

	var provider llm.Provider
	if client := llm.NewClient(llm.Config{
		BaseURL: cfg.LLMBaseURL,
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
		Timeout: cfg.LLMTimeout(),
	}); client != nil {
		provider = client
	} else {
		log.Warn().Msg("LLM_BASE_URL not set: report generation will fail until configured")
	}

	sessionService := service.NewSessionService(sessionRepo, eventRepo, captureRepo, feelingRepo, poller, broker)
	reportService := service.NewReportService(db, reportRepo, sessionRepo, eventRepo, captureRepo, feelingRepo, provider, broker)

	// Launch recovery, in order: sweep reports orphaned in generating,
	// force-end sessions the previous process left running, then drop
	// setup flows that never started.
	launchCtx := context.Background()
	if _, err := reportService.MarkStaleAsFailedOnLaunch(launchCtx); err != nil {
		log.Error().Err(err).Msg("failed to sweep stale reports")
	}
	staleSummary, err := sessionService.CheckStaleOnLaunch(launchCtx)
	if err != nil {
		log.Error().Err(err).Msg("failed to end stale sessions")
	}
	if staleSummary != nil {
		if err := reportService.StartGeneration(launchCtx, staleSummary.SessionID); err != nil {
			log.Error().Err(err).Str("sessionId", staleSummary.SessionID).Msg("failed to start report for stale session")
		}
	}
	if _, err := sessionService.CleanupAbandoned(launchCtx); err != nil {
		log.Error().Err(err).Msg("failed to clean up abandoned sessions")
	}

	watchdog := jobs.NewWatchdogJob(
		sessionRepo, eventRepo, sessionService, reportService, broker,
		config.WatchdogTickInterval, config.AutoEndWarnMinutes, config.AutoEndHardMinutes,
	)
	watchdog.Start()
	defer watchdog.Stop()

	sessionHandler := handler.NewSessionHandler(sessionService, reportService)
	reportHandler := handler.NewReportHandler(reportService)
	eventsHandler := handler.NewEventsHandler(broker)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	sessionRoutes := sessionHandler.Routes()
	sessionRoutes.Mount("/{sessionID}/report", reportHandler.Routes())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/events", eventsHandler.ServeHTTP)
		r.Mount("/sessions", sessionRoutes)
	})

	server := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     r,
		ReadTimeout: config.ServerReadTimeout,
		// WriteTimeout stays zero so the event stream can be held open.
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting daemon")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down daemon")

	poller.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Let in-flight report generations settle their terminal status.
	reportService.Wait()

	log.Info().Msg("daemon stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
