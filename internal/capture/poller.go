// Package capture runs the fixed-interval foreground-window poller for the
// one session currently being tracked.
package capture

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/driftwatch/trackerd/internal/model"
	"github.com/driftwatch/trackerd/internal/probe"
	"github.com/driftwatch/trackerd/internal/repository"
	"github.com/driftwatch/trackerd/internal/sse"
)

// Notifier receives the warning signals. Raised fires at most once per
// consecutive-failure run; Cleared fires at most once when the run ends.
type Notifier interface {
	CaptureWarningRaised(sessionID string, failures int)
	CaptureWarningCleared(sessionID string)
}

type Config struct {
	Interval         time.Duration
	ProbeTimeout     time.Duration
	FailureThreshold int
}

type Poller struct {
	windowProbe probe.WindowProbe
	permission  probe.PermissionProbe
	captures    repository.CaptureRepository
	notifier    Notifier
	cfg         Config

	mu        sync.Mutex
	cancel    context.CancelFunc
	sessionID string
	failures  int
	warning   bool
	// gen changes on every Start/Stop so an in-flight tick that raced a
	// stop can tell its result is stale and discard it.
	gen uint64
}

func NewPoller(
	windowProbe probe.WindowProbe,
	permission probe.PermissionProbe,
	captures repository.CaptureRepository,
	notifier Notifier,
	cfg Config,
) *Poller {
	return &Poller{
		windowProbe: windowProbe,
		permission:  permission,
		captures:    captures,
		notifier:    notifier,
		cfg:         cfg,
	}
}

// Start begins polling for the given session. It is a no-op while already
// running, which prevents duplicate timers for the same session.
func (p *Poller) Start(sessionID string) {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.sessionID = sessionID
	p.failures = 0
	p.warning = false
	p.gen++
	gen := p.gen
	p.mu.Unlock()

	log.Info().Str("sessionId", sessionID).Dur("interval", p.cfg.Interval).Msg("capture poller started")

	go p.run(ctx, sessionID, gen)
}

// Stop cancels future ticks. An in-flight probe call is not interrupted,
// but its result will be discarded. If a warning was active it is cleared,
// firing the cleared signal exactly once.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.cancel == nil {
		p.mu.Unlock()
		return
	}

	p.cancel()
	p.cancel = nil
	sessionID := p.sessionID
	wasWarning := p.warning
	p.sessionID = ""
	p.failures = 0
	p.warning = false
	p.gen++
	p.mu.Unlock()

	log.Info().Str("sessionId", sessionID).Msg("capture poller stopped")

	if wasWarning {
		p.notifier.CaptureWarningCleared(sessionID)
	}
}

// Running reports whether the poller currently has a session.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// CheckPermission is a passthrough to the OS permission probe.
func (p *Poller) CheckPermission(ctx context.Context) (bool, error) {
	return p.permission.Granted(ctx)
}

func (p *Poller) run(ctx context.Context, sessionID string, gen uint64) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx, sessionID, gen)
		}
	}
}

func (p *Poller) tick(ctx context.Context, sessionID string, gen uint64) {
	probeCtx, cancel := context.WithTimeout(ctx, p.cfg.ProbeTimeout)
	sample, err := p.windowProbe.Sample(probeCtx)
	cancel()
	capturedAt := time.Now().UTC()

	p.mu.Lock()
	if p.gen != gen {
		// Stopped while the probe was in flight; the session may already
		// have ended, so the result must not be recorded.
		p.mu.Unlock()
		return
	}

	if err != nil {
		p.failures++
		if p.failures >= p.cfg.FailureThreshold && !p.warning {
			p.warning = true
			failures := p.failures
			p.mu.Unlock()

			log.Warn().
				Str("sessionId", sessionID).
				Int("consecutiveFailures", failures).
				Msg("capture probe failing, raising warning")
			p.notifier.CaptureWarningRaised(sessionID, failures)
			return
		}
		p.mu.Unlock()

		log.Debug().Err(err).Str("sessionId", sessionID).Msg("capture probe failed")
		return
	}

	if sample.Empty() {
		// Nothing focused; skipped silently and not counted as a failure.
		p.mu.Unlock()
		return
	}

	p.failures = 0
	wasWarning := p.warning
	p.warning = false
	p.mu.Unlock()

	if err := p.captures.Create(ctx, model.CreateCaptureParams{
		SessionID:   sessionID,
		WindowTitle: sample.Title,
		AppName:     sample.Owner.Name,
		CapturedAt:  capturedAt,
	}); err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("failed to record capture")
		return
	}

	if wasWarning {
		log.Info().Str("sessionId", sessionID).Msg("capture probe recovered, clearing warning")
		p.notifier.CaptureWarningCleared(sessionID)
	}
}

// BrokerNotifier publishes warning signals on the SSE broker.
type BrokerNotifier struct {
	broker *sse.Broker
}

func NewBrokerNotifier(broker *sse.Broker) *BrokerNotifier {
	return &BrokerNotifier{broker: broker}
}

func (n *BrokerNotifier) CaptureWarningRaised(sessionID string, failures int) {
	n.broker.PublishJSON(sse.EventCaptureWarningRaised, map[string]any{
		"sessionId":           sessionID,
		"consecutiveFailures": failures,
	})
}

func (n *BrokerNotifier) CaptureWarningCleared(sessionID string) {
	n.broker.PublishJSON(sse.EventCaptureWarningCleared, map[string]any{
		"sessionId": sessionID,
	})
}
