// Package activetime computes the active/paused/total elapsed-time breakdown
// for a session from its start time and its ordered pause/resume events.
// It is a pure computation with no side effects.
package activetime

import (
	"math"
	"time"

	"github.com/driftwatch/trackerd/internal/model"
)

// Breakdown holds unrounded minute values. Callers that display or report
// the values should use Rounded; repeated internal computation must stay on
// the unrounded values to avoid compounding rounding error.
type Breakdown struct {
	ActiveMinutes float64 `json:"activeMinutes"`
	PausedMinutes float64 `json:"pausedMinutes"`
	TotalMinutes  float64 `json:"totalMinutes"`
}

// Rounded returns the breakdown with every value rounded to one decimal
// place for display.
func (b Breakdown) Rounded() Breakdown {
	return Breakdown{
		ActiveMinutes: round1(b.ActiveMinutes),
		PausedMinutes: round1(b.PausedMinutes),
		TotalMinutes:  round1(b.TotalMinutes),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Compute walks the session's events in order, accumulating active time
// between the start (or each resume) and the next pause, plus the trailing
// span up to end if the session finished active. Events inconsistent with
// the running state (for example a second consecutive pause) are skipped:
// the state machine never produces them, and the computation trusts the log
// to be well-formed by construction.
//
// The end boundary must be the session's ended_at once the session is
// terminal, so a session ended while paused accrues paused time only up to
// its actual end, never to the current wall clock.
func Compute(startedAt *time.Time, events []model.SessionEvent, end time.Time) Breakdown {
	if startedAt == nil {
		return Breakdown{}
	}

	var activeMs float64
	spanStart := *startedAt
	active := true

	for _, ev := range events {
		switch ev.EventType {
		case model.SessionEventPaused:
			if active {
				activeMs += float64(ev.CreatedAt.Sub(spanStart).Milliseconds())
				active = false
			}
		case model.SessionEventResumed:
			if !active {
				spanStart = ev.CreatedAt
				active = true
			}
		}
	}

	if active {
		activeMs += float64(end.Sub(spanStart).Milliseconds())
	}

	totalMs := float64(end.Sub(*startedAt).Milliseconds())

	activeMin := activeMs / 60000
	totalMin := totalMs / 60000
	// Clamped so clock skew between event timestamps and the boundary can
	// never yield a negative paused value.
	pausedMin := math.Max(0, totalMin-activeMin)

	return Breakdown{
		ActiveMinutes: activeMin,
		PausedMinutes: pausedMin,
		TotalMinutes:  totalMin,
	}
}

// EndBoundary picks the accounting end boundary for a session: its actual
// end once terminal, otherwise now.
func EndBoundary(s *model.Session, now time.Time) time.Time {
	if s.Status.Terminal() && s.EndedAt != nil {
		return *s.EndedAt
	}
	return now
}
