package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindkeep/internal/config"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default("local")
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 50.0, cfg.Scoring.Base)
	assert.Equal(t, 0.4, cfg.Scoring.MoodWeight)
	assert.Equal(t, 7, cfg.Scoring.MoodWindowEntries)
	assert.Equal(t, 7, cfg.Scoring.ActivityWindowDays)
}

func TestFromYAMLRejectsBadWeight(t *testing.T) {
	_, err := config.FromYAML([]byte(`
profile:
  name: local
scoring:
  base: 50
  mood_weight: 1.5
  mood_window_entries: 7
  activity_window_days: 7
  activity_points: 5
  activity_cap: 30
  goal_points: 10
  goal_cap: 30
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mood_weight")
}

func TestFromYAMLRejectsMissingProfile(t *testing.T) {
	_, err := config.FromYAML([]byte(`
scoring:
  base: 50
  mood_weight: 0.4
  mood_window_entries: 7
  activity_window_days: 7
  activity_points: 5
  activity_cap: 30
  goal_points: 10
  goal_cap: 30
`))
	require.Error(t, err)
}

func TestGenerateDefaultRoundTrips(t *testing.T) {
	cfg, err := config.FromYAML([]byte(config.GenerateDefault("me")))
	require.NoError(t, err)
	assert.Equal(t, "me", cfg.Profile.Name)
}
