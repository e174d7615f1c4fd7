package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/driftwatch/trackerd/internal/activetime"
	"github.com/driftwatch/trackerd/internal/model"
	"github.com/driftwatch/trackerd/internal/repository"
	"github.com/driftwatch/trackerd/internal/service"
	"github.com/driftwatch/trackerd/internal/sse"
)

// WatchdogJob guards against forgotten sessions. Every tick it measures
// the running session's active time: past the warn threshold it notifies
// clients, past the hard limit it force-ends the session and kicks off
// report generation. Both thresholds compare unrounded minutes.
type WatchdogJob struct {
	sessionRepo repository.SessionRepository
	eventRepo   repository.SessionEventRepository
	sessions    *service.SessionService
	reports     *service.ReportService
	broker      *sse.Broker
	interval    time.Duration
	warnAfter   float64
	endAfter    float64
	now         func() time.Time
	done        chan struct{}
}

func NewWatchdogJob(
	sessionRepo repository.SessionRepository,
	eventRepo repository.SessionEventRepository,
	sessions *service.SessionService,
	reports *service.ReportService,
	broker *sse.Broker,
	interval time.Duration,
	warnAfterMinutes float64,
	endAfterMinutes float64,
) *WatchdogJob {
	return &WatchdogJob{
		sessionRepo: sessionRepo,
		eventRepo:   eventRepo,
		sessions:    sessions,
		reports:     reports,
		broker:      broker,
		interval:    interval,
		warnAfter:   warnAfterMinutes,
		endAfter:    endAfterMinutes,
		now:         func() time.Time { return time.Now().UTC() },
		done:        make(chan struct{}),
	}
}

func (j *WatchdogJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("session watchdog started")
}

func (j *WatchdogJob) Stop() {
	close(j.done)
	log.Info().Msg("session watchdog stopped")
}

func (j *WatchdogJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.check()
		}
	}
}

func (j *WatchdogJob) check() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	running, err := j.sessionRepo.FindByStatuses(ctx, model.SessionStatusActive, model.SessionStatusPaused)
	if err != nil {
		log.Error().Err(err).Msg("watchdog session lookup failed")
		return
	}
	if len(running) == 0 {
		return
	}

	session := running[0]
	events, err := j.eventRepo.ListBySession(ctx, session.ID)
	if err != nil {
		log.Error().Err(err).Str("sessionId", session.ID).Msg("watchdog event lookup failed")
		return
	}

	active := activetime.Compute(session.StartedAt, events, j.now()).ActiveMinutes
	switch {
	case active >= j.endAfter:
		log.Warn().
			Str("sessionId", session.ID).
			Float64("activeMinutes", active).
			Msg("session hit the hard limit, force-ending")
		if _, err := j.sessions.End(ctx, session.ID, model.EndedByAuto); err != nil {
			log.Error().Err(err).Str("sessionId", session.ID).Msg("watchdog failed to end session")
			return
		}
		if err := j.reports.StartGeneration(ctx, session.ID); err != nil {
			log.Error().Err(err).Str("sessionId", session.ID).Msg("watchdog failed to start report generation")
		}
	case active >= j.warnAfter:
		// Re-sent every tick while over the threshold; clients decide
		// whether to de-duplicate.
		j.broker.PublishJSON(sse.EventApproachingLimit, map[string]any{
			"sessionId":     session.ID,
			"activeMinutes": active,
		})
	}
}
