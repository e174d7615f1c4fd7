package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwatch/trackerd/internal/database"
	"github.com/driftwatch/trackerd/internal/model"
	"github.com/driftwatch/trackerd/internal/repository"
	"github.com/driftwatch/trackerd/internal/service"
	"github.com/driftwatch/trackerd/internal/sse"
)

type idlePoller struct{}

func (idlePoller) Start(sessionID string)                            {}
func (idlePoller) Stop()                                             {}
func (idlePoller) CheckPermission(ctx context.Context) (bool, error) { return true, nil }

type watchdogFixture struct {
	job      *WatchdogJob
	sessions *service.SessionService
	repo     repository.SessionRepository
	broker   *sse.Broker
	db       *database.DB
}

func newWatchdogFixture(t *testing.T, warnAfter, endAfter float64) *watchdogFixture {
	t.Helper()

	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sessionRepo := repository.NewSessionRepository(db.DB)
	eventRepo := repository.NewSessionEventRepository(db.DB)
	captureRepo := repository.NewCaptureRepository(db.DB)
	feelingRepo := repository.NewFeelingRepository(db.DB)
	reportRepo := repository.NewReportRepository(db.DB)

	broker := sse.NewBroker()
	t.Cleanup(broker.Close)

	sessions := service.NewSessionService(sessionRepo, eventRepo, captureRepo, feelingRepo, idlePoller{}, broker)
	reports := service.NewReportService(db, reportRepo, sessionRepo, eventRepo, captureRepo, feelingRepo, nil, broker)
	t.Cleanup(reports.Wait)

	job := NewWatchdogJob(sessionRepo, eventRepo, sessions, reports, broker, time.Minute, warnAfter, endAfter)

	return &watchdogFixture{
		job:      job,
		sessions: sessions,
		repo:     sessionRepo,
		broker:   broker,
		db:       db,
	}
}

func (f *watchdogFixture) runningSessionStartedAgo(t *testing.T, ago time.Duration) string {
	t.Helper()
	ctx := context.Background()

	session, err := f.sessions.Create(ctx, model.CreateSessionParams{Name: "x", Intent: "y"})
	require.NoError(t, err)
	result, err := f.sessions.Start(ctx, session.ID)
	require.NoError(t, err)
	require.True(t, result.Started)

	// Backdate the start so active time crosses the threshold under test.
	startedAt := time.Now().UTC().Add(-ago)
	_, err = f.db.DB.Exec(`UPDATE sessions SET started_at = ? WHERE id = ?`, startedAt, session.ID)
	require.NoError(t, err)
	return session.ID
}

func TestWatchdogCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("no running session is a no-op", func(t *testing.T) {
		f := newWatchdogFixture(t, 450, 480)
		f.job.check()
	})

	t.Run("under the warn threshold stays quiet", func(t *testing.T) {
		f := newWatchdogFixture(t, 450, 480)
		id := f.runningSessionStartedAgo(t, 10*time.Minute)

		client := f.broker.Subscribe()
		defer f.broker.Unsubscribe(client)

		f.job.check()

		assert.Empty(t, client.Events)
		session, err := f.sessions.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.SessionStatusActive, session.Status)
	})

	t.Run("past the warn threshold publishes every tick", func(t *testing.T) {
		f := newWatchdogFixture(t, 450, 480)
		f.runningSessionStartedAgo(t, 460*time.Minute)

		client := f.broker.Subscribe()
		defer f.broker.Unsubscribe(client)

		f.job.check()
		f.job.check()

		for n := 0; n < 2; n++ {
			select {
			case event := <-client.Events:
				assert.Equal(t, sse.EventApproachingLimit, event.Type)
			default:
				t.Fatal("expected an approaching_limit event per tick")
			}
		}
	})

	t.Run("past the hard limit force-ends and starts a report", func(t *testing.T) {
		f := newWatchdogFixture(t, 450, 480)
		id := f.runningSessionStartedAgo(t, 500*time.Minute)

		f.job.check()

		session, err := f.sessions.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.SessionStatusEnded, session.Status)
		require.NotNil(t, session.EndedBy)
		assert.Equal(t, model.EndedByAuto, *session.EndedBy)
	})

	t.Run("paused sessions are still watched", func(t *testing.T) {
		f := newWatchdogFixture(t, 450, 480)
		id := f.runningSessionStartedAgo(t, 500*time.Minute)
		_, err := f.sessions.Pause(ctx, id)
		require.NoError(t, err)

		f.job.check()

		session, err := f.sessions.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.SessionStatusEnded, session.Status)
	})
}
