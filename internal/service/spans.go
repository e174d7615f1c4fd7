package service

import (
	"math"
	"time"

	"github.com/driftwatch/trackerd/internal/model"
)

// ActivitySpan is a run of consecutive captures showing the same window.
// Collapsing captures into spans keeps the report prompt proportional to
// how often the user switched contexts rather than to raw polling volume.
type ActivitySpan struct {
	WindowTitle     string    `json:"windowTitle"`
	AppName         string    `json:"appName"`
	StartedAt       time.Time `json:"startedAt"`
	EndedAt         time.Time `json:"endedAt"`
	DurationMinutes float64   `json:"durationMinutes"`
}

// CollapseCaptures merges consecutive captures with an identical window
// title and app name into a single span. Captures must be in capture
// order; a span's end is the timestamp of its last capture.
func CollapseCaptures(captures []model.Capture) []ActivitySpan {
	if len(captures) == 0 {
		return nil
	}

	spans := make([]ActivitySpan, 0, len(captures))
	current := spanFrom(captures[0])
	for _, c := range captures[1:] {
		if c.WindowTitle == current.WindowTitle && c.AppName == current.AppName {
			current.EndedAt = c.CapturedAt
			continue
		}
		spans = append(spans, finishSpan(current))
		current = spanFrom(c)
	}
	return append(spans, finishSpan(current))
}

func spanFrom(c model.Capture) ActivitySpan {
	return ActivitySpan{
		WindowTitle: c.WindowTitle,
		AppName:     c.AppName,
		StartedAt:   c.CapturedAt,
		EndedAt:     c.CapturedAt,
	}
}

func finishSpan(span ActivitySpan) ActivitySpan {
	minutes := span.EndedAt.Sub(span.StartedAt).Minutes()
	span.DurationMinutes = math.Round(minutes*10) / 10
	return span
}
