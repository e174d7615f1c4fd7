package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSample(t *testing.T) {
	t.Run("valid reading", func(t *testing.T) {
		sample, err := ParseSample([]byte(`{"title":"main.go - editor","owner":{"name":"Code"}}`))

		require.NoError(t, err)
		require.NotNil(t, sample)
		assert.Equal(t, "main.go - editor", sample.Title)
		assert.Equal(t, "Code", sample.Owner.Name)
		assert.False(t, sample.Empty())
	})

	t.Run("null means no reading", func(t *testing.T) {
		sample, err := ParseSample([]byte("null"))

		require.NoError(t, err)
		assert.Nil(t, sample)
	})

	t.Run("empty output means no reading", func(t *testing.T) {
		sample, err := ParseSample(nil)

		require.NoError(t, err)
		assert.Nil(t, sample)
	})

	t.Run("malformed output is an error", func(t *testing.T) {
		_, err := ParseSample([]byte("not json"))

		assert.Error(t, err)
	})
}

func TestWindowSample_Empty(t *testing.T) {
	var nilSample *WindowSample
	assert.True(t, nilSample.Empty())

	missingTitle := &WindowSample{}
	missingTitle.Owner.Name = "Code"
	assert.True(t, missingTitle.Empty())

	missingOwner := &WindowSample{Title: "main.go"}
	assert.True(t, missingOwner.Empty())
}

func TestNewHelperProbe_SplitsCommand(t *testing.T) {
	p := NewHelperProbe("/usr/local/bin/window-helper --json")

	assert.Equal(t, "/usr/local/bin/window-helper", p.command)
	assert.Equal(t, []string{"--json"}, p.args)
}
