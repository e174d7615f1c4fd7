package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwatch/trackerd/internal/model"
)

func captureAt(t time.Time, app, title string) model.Capture {
	return model.Capture{
		WindowTitle: title,
		AppName:     app,
		CapturedAt:  t,
	}
}

func TestCollapseCaptures(t *testing.T) {
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	t.Run("empty input", func(t *testing.T) {
		assert.Nil(t, CollapseCaptures(nil))
	})

	t.Run("merges consecutive identical windows", func(t *testing.T) {
		spans := CollapseCaptures([]model.Capture{
			captureAt(base, "Editor", "main.go"),
			captureAt(base.Add(3*time.Second), "Editor", "main.go"),
			captureAt(base.Add(6*time.Second), "Editor", "main.go"),
			captureAt(base.Add(9*time.Second), "Browser", "news"),
			captureAt(base.Add(12*time.Second), "Editor", "main.go"),
		})

		require.Len(t, spans, 3)
		assert.Equal(t, "Editor", spans[0].AppName)
		assert.Equal(t, base, spans[0].StartedAt)
		assert.Equal(t, base.Add(6*time.Second), spans[0].EndedAt)
		assert.Equal(t, "Browser", spans[1].AppName)
		assert.Equal(t, "Editor", spans[2].AppName)
	})

	t.Run("same title in a different app is a new span", func(t *testing.T) {
		spans := CollapseCaptures([]model.Capture{
			captureAt(base, "Editor", "notes.md"),
			captureAt(base.Add(3*time.Second), "Preview", "notes.md"),
		})
		require.Len(t, spans, 2)
	})

	t.Run("duration rounds to one decimal", func(t *testing.T) {
		spans := CollapseCaptures([]model.Capture{
			captureAt(base, "Editor", "main.go"),
			captureAt(base.Add(87*time.Second), "Editor", "main.go"),
		})
		require.Len(t, spans, 1)
		assert.Equal(t, 1.5, spans[0].DurationMinutes)
	})

	t.Run("single capture is a zero-length span", func(t *testing.T) {
		spans := CollapseCaptures([]model.Capture{captureAt(base, "Editor", "main.go")})
		require.Len(t, spans, 1)
		assert.Equal(t, spans[0].StartedAt, spans[0].EndedAt)
		assert.Zero(t, spans[0].DurationMinutes)
	})
}
