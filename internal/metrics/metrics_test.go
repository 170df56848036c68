package metrics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"mindkeep/internal/config"
	"mindkeep/internal/domain"
	"mindkeep/internal/metrics"
)

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func entryAt(at time.Time, mood, energy, stress int) domain.MoodEntry {
	return domain.MoodEntry{Mood: mood, Energy: energy, Stress: stress, Timestamp: at}
}

func scoring() config.Scoring {
	return config.Default("local").Scoring
}

func TestScoreEmptyLedgers(t *testing.T) {
	assert.Equal(t, 50, metrics.Score(nil, nil, nil, scoring(), now))
}

func TestScoreMoodBlend(t *testing.T) {
	entries := []domain.MoodEntry{
		entryAt(now.Add(-2*time.Hour), 8, 8, 3),
		entryAt(now.Add(-time.Hour), 7, 7, 4),
		entryAt(now, 9, 9, 2),
	}
	// mean of means = 8 -> scaled 80 -> 80*0.4 + 50*0.6 = 62
	assert.Equal(t, 62, metrics.Score(entries, nil, nil, scoring(), now))
}

func TestScoreUsesOnlyRecentWindow(t *testing.T) {
	// Seven perfect recent entries followed by old terrible ones: only the
	// window counts.
	var entries []domain.MoodEntry
	for i := 0; i < 7; i++ {
		entries = append(entries, entryAt(now.Add(-time.Duration(i)*time.Hour), 10, 10, 1))
	}
	for i := 0; i < 20; i++ {
		entries = append(entries, entryAt(now.Add(-time.Duration(48+i)*time.Hour), 1, 1, 10))
	}
	assert.Equal(t, 70, metrics.Score(entries, nil, nil, scoring(), now))
}

func TestScoreActivityBonusCapped(t *testing.T) {
	var acts []domain.Activity
	for i := 0; i < 10; i++ {
		acts = append(acts, domain.Activity{CompletedAt: now.Add(-time.Hour)})
	}
	// 10 activities * 5 points would be 50; the cap holds it at 30.
	assert.Equal(t, 80, metrics.Score(nil, acts, nil, scoring(), now))
}

func TestScoreActivityWindowExcludesOld(t *testing.T) {
	acts := []domain.Activity{
		{CompletedAt: now.Add(-2 * 24 * time.Hour)},
		{CompletedAt: now.Add(-8 * 24 * time.Hour)},
	}
	// Only the one inside the trailing 7 days earns points.
	assert.Equal(t, 55, metrics.Score(nil, acts, nil, scoring(), now))
}

func TestScoreGoalBonusCountsOnlyCompleted(t *testing.T) {
	goals := []domain.Goal{
		{IsCompleted: true},
		{IsCompleted: true},
		{IsCompleted: false},
	}
	assert.Equal(t, 70, metrics.Score(nil, nil, goals, scoring(), now))
}

func TestScoreClampedToBounds(t *testing.T) {
	var entries []domain.MoodEntry
	for i := 0; i < 7; i++ {
		entries = append(entries, entryAt(now.Add(-time.Duration(i)*time.Hour), 10, 10, 1))
	}
	var acts []domain.Activity
	for i := 0; i < 10; i++ {
		acts = append(acts, domain.Activity{CompletedAt: now})
	}
	goals := []domain.Goal{{IsCompleted: true}, {IsCompleted: true}, {IsCompleted: true}, {IsCompleted: true}}
	assert.Equal(t, 100, metrics.Score(entries, acts, goals, scoring(), now))

	var worst []domain.MoodEntry
	for i := 0; i < 7; i++ {
		worst = append(worst, entryAt(now.Add(-time.Duration(i)*time.Hour), 1, 1, 10))
	}
	// Floor of the blend is well above zero, but the clamp guards anyway.
	assert.GreaterOrEqual(t, metrics.Score(worst, nil, nil, scoring(), now), 0)
}

func TestStreaksEmpty(t *testing.T) {
	current, longest := metrics.Streaks(nil, 4, now)
	assert.Equal(t, 0, current)
	assert.Equal(t, 4, longest, "stored longest must persist with an empty ledger")
}

func TestStreaksConsecutiveDays(t *testing.T) {
	day := 24 * time.Hour
	entries := []domain.MoodEntry{
		entryAt(now, 5, 5, 5),
		entryAt(now.Add(-day), 5, 5, 5),
		entryAt(now.Add(-2*day), 5, 5, 5),
		entryAt(now.Add(-5*day), 5, 5, 5),
	}
	current, longest := metrics.Streaks(entries, 0, now)
	assert.Equal(t, 3, current)
	assert.Equal(t, 3, longest)
}

func TestStreaksDuplicateDayDoesNotBreakRun(t *testing.T) {
	day := 24 * time.Hour
	entries := []domain.MoodEntry{
		entryAt(now, 5, 5, 5),
		entryAt(now.Add(-3*time.Hour), 5, 5, 5),
		entryAt(now.Add(-day), 5, 5, 5),
	}
	current, _ := metrics.Streaks(entries, 0, now)
	assert.Equal(t, 2, current)
}

func TestStreaksNoEntryToday(t *testing.T) {
	day := 24 * time.Hour
	entries := []domain.MoodEntry{
		entryAt(now.Add(-2*day), 5, 5, 5),
		entryAt(now.Add(-3*day), 5, 5, 5),
		entryAt(now.Add(-4*day), 5, 5, 5),
	}
	current, longest := metrics.Streaks(entries, 0, now)
	assert.Equal(t, 0, current)
	assert.Equal(t, 3, longest, "historical run still counts toward longest")
}

func TestStreaksRatchetNeverRegresses(t *testing.T) {
	entries := []domain.MoodEntry{entryAt(now, 5, 5, 5)}
	current, longest := metrics.Streaks(entries, 9, now)
	assert.Equal(t, 1, current)
	assert.Equal(t, 9, longest)
}

func TestStreaksOrderIndependent(t *testing.T) {
	day := 24 * time.Hour
	a := []domain.MoodEntry{
		entryAt(now.Add(-2*day), 5, 5, 5),
		entryAt(now, 5, 5, 5),
		entryAt(now.Add(-day), 5, 5, 5),
	}
	b := []domain.MoodEntry{a[1], a[2], a[0]}
	ca, la := metrics.Streaks(a, 0, now)
	cb, lb := metrics.Streaks(b, 0, now)
	assert.Equal(t, ca, cb)
	assert.Equal(t, la, lb)
}

func TestClampScale(t *testing.T) {
	assert.Equal(t, 1, metrics.ClampScale(-5, 1, 10))
	assert.Equal(t, 10, metrics.ClampScale(42, 1, 10))
	assert.Equal(t, 7, metrics.ClampScale(7, 1, 10))
}

func TestClampProgress(t *testing.T) {
	assert.Equal(t, 0.0, metrics.ClampProgress(-3, 5))
	assert.Equal(t, 5.0, metrics.ClampProgress(12, 5))
	assert.Equal(t, 2.5, metrics.ClampProgress(2.5, 5))
}
