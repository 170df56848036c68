package engine_test

import (
	"context"
	"testing"
	"time"

	"mindkeep/internal/config"
	"mindkeep/internal/db"
	"mindkeep/internal/engine"
	"mindkeep/internal/migrate"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	now    time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	env := &testEnv{
		Ctx: context.Background(),
		now: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	eng := engine.New(conn, config.Default("local"))
	eng.Now = func() time.Time { return env.now }
	env.Engine = eng
	return env
}

// logMoodAt logs an entry with the clock shifted, then restores it.
func (env *testEnv) logMoodAt(t *testing.T, at time.Time, mood, energy, stress int) {
	t.Helper()
	saved := env.now
	env.now = at
	if _, err := env.Engine.LogMood(env.Ctx, engine.MoodLogOptions{Mood: mood, Energy: energy, Stress: stress}); err != nil {
		t.Fatalf("log mood at %s: %v", at, err)
	}
	env.now = saved
}

func TestEmptyLedgersNeutralMetrics(t *testing.T) {
	env := newTestEnv(t)
	m, err := env.Engine.Recompute(env.Ctx)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if m.WellnessScore != 50 || m.CurrentStreak != 0 || m.LongestStreak != 0 || m.TotalActivities != 0 {
		t.Fatalf("expected neutral metrics, got %+v", m)
	}
}

func TestWellnessScoreComposition(t *testing.T) {
	env := newTestEnv(t)
	// Three entries averaging 8 across all three dimensions: mood blend
	// lands at 80*0.4 + 50*0.6 = 62.
	env.logMoodAt(t, env.now.Add(-2*time.Hour), 8, 8, 3)
	env.logMoodAt(t, env.now.Add(-time.Hour), 7, 7, 4)
	env.logMoodAt(t, env.now, 9, 9, 2)
	// Three activities inside the trailing window: +15.
	for i := 0; i < 3; i++ {
		if _, err := env.Engine.CompleteActivity(env.Ctx, engine.ActivityOptions{Type: "meditation", Title: "sit", DurationMinutes: 10}); err != nil {
			t.Fatalf("complete activity: %v", err)
		}
	}
	// Two completed goals: +20.
	for i := 0; i < 2; i++ {
		g, err := env.Engine.CreateGoal(env.Ctx, engine.GoalCreateOptions{Title: "walk", Type: "activity", TargetValue: 1})
		if err != nil {
			t.Fatalf("create goal: %v", err)
		}
		if _, err := env.Engine.IncrementGoalProgress(env.Ctx, g.ID, 1); err != nil {
			t.Fatalf("progress goal: %v", err)
		}
	}
	m, err := env.Engine.Metrics(env.Ctx)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if m.WellnessScore != 97 {
		t.Fatalf("expected score 97, got %d", m.WellnessScore)
	}
	if m.TotalActivities != 3 {
		t.Fatalf("expected 3 activities, got %d", m.TotalActivities)
	}
}

func TestScoreStaysWithinBounds(t *testing.T) {
	env := newTestEnv(t)
	// Max everything: the additive bonuses would push past 100 unclamped.
	for i := 0; i < 10; i++ {
		env.logMoodAt(t, env.now.Add(-time.Duration(i)*time.Minute), 10, 10, 1)
	}
	for i := 0; i < 10; i++ {
		if _, err := env.Engine.CompleteActivity(env.Ctx, engine.ActivityOptions{Type: "journaling", Title: "write", DurationMinutes: 30}); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 5; i++ {
		g, _ := env.Engine.CreateGoal(env.Ctx, engine.GoalCreateOptions{Title: "g", Type: "habit", TargetValue: 1})
		if _, err := env.Engine.IncrementGoalProgress(env.Ctx, g.ID, 1); err != nil {
			t.Fatal(err)
		}
	}
	m, _ := env.Engine.Metrics(env.Ctx)
	if m.WellnessScore != 100 {
		t.Fatalf("expected clamped score 100, got %d", m.WellnessScore)
	}
}

func TestStreakCountsDistinctDays(t *testing.T) {
	env := newTestEnv(t)
	day := 24 * time.Hour
	// A three-day run ending today, plus an isolated entry five days back.
	env.logMoodAt(t, env.now.Add(-5*day), 5, 5, 5)
	env.logMoodAt(t, env.now.Add(-2*day), 6, 6, 5)
	env.logMoodAt(t, env.now.Add(-1*day), 6, 6, 5)
	env.logMoodAt(t, env.now, 7, 6, 4)
	m, err := env.Engine.Metrics(env.Ctx)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if m.CurrentStreak != 3 {
		t.Fatalf("expected current streak 3, got %d", m.CurrentStreak)
	}
	if m.LongestStreak != 3 {
		t.Fatalf("expected longest streak 3, got %d", m.LongestStreak)
	}
}

func TestStreakSameDayEntriesCountOnce(t *testing.T) {
	env := newTestEnv(t)
	day := 24 * time.Hour
	env.logMoodAt(t, env.now.Add(-1*day), 5, 5, 5)
	env.logMoodAt(t, env.now.Add(-2*time.Hour), 6, 6, 5)
	env.logMoodAt(t, env.now, 7, 7, 4)
	m, _ := env.Engine.Metrics(env.Ctx)
	if m.CurrentStreak != 2 {
		t.Fatalf("two same-day entries must count one day: got streak %d", m.CurrentStreak)
	}
}

func TestStreakBrokenWhenNoEntryToday(t *testing.T) {
	env := newTestEnv(t)
	day := 24 * time.Hour
	env.logMoodAt(t, env.now.Add(-3*day), 5, 5, 5)
	env.logMoodAt(t, env.now.Add(-2*day), 5, 5, 5)
	m, err := env.Engine.Recompute(env.Ctx)
	if err != nil {
		t.Fatal(err)
	}
	if m.CurrentStreak != 0 {
		t.Fatalf("gap before today must break current streak: got %d", m.CurrentStreak)
	}
	if m.LongestStreak != 2 {
		t.Fatalf("expected longest 2, got %d", m.LongestStreak)
	}
}

func TestLongestStreakSurvivesDeletion(t *testing.T) {
	env := newTestEnv(t)
	day := 24 * time.Hour
	env.logMoodAt(t, env.now.Add(-2*day), 5, 5, 5)
	env.logMoodAt(t, env.now.Add(-1*day), 5, 5, 5)
	env.logMoodAt(t, env.now, 5, 5, 5)

	entries, err := env.Engine.Repo.ListMoodEntries(env.Ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	// Punch a hole in the middle of the run.
	var middle string
	for _, e := range entries {
		if e.Timestamp.Equal(env.now.Add(-1 * day).UTC()) {
			middle = e.ID
		}
	}
	if middle == "" {
		t.Fatal("middle entry not found")
	}
	if err := env.Engine.DeleteMoodEntry(env.Ctx, middle); err != nil {
		t.Fatalf("delete: %v", err)
	}
	m, _ := env.Engine.Metrics(env.Ctx)
	if m.CurrentStreak != 1 {
		t.Fatalf("expected current streak 1 after deletion, got %d", m.CurrentStreak)
	}
	if m.LongestStreak != 3 {
		t.Fatalf("longest streak must not regress on deletion: got %d", m.LongestStreak)
	}
}

func TestMoodScalesClamped(t *testing.T) {
	env := newTestEnv(t)
	entry, err := env.Engine.LogMood(env.Ctx, engine.MoodLogOptions{Mood: 15, Energy: -3, Stress: 0})
	if err != nil {
		t.Fatalf("log mood: %v", err)
	}
	if entry.Mood != 10 || entry.Energy != 1 || entry.Stress != 1 {
		t.Fatalf("expected clamped scales 10/1/1, got %d/%d/%d", entry.Mood, entry.Energy, entry.Stress)
	}
}

func TestUpdateMoodEntryTouchesOnlyNoteAndTags(t *testing.T) {
	env := newTestEnv(t)
	entry, err := env.Engine.LogMood(env.Ctx, engine.MoodLogOptions{Mood: 6, Energy: 6, Stress: 5, Note: "before"})
	if err != nil {
		t.Fatal(err)
	}
	note := "after"
	tags := []string{"work", "sleep"}
	updated, err := env.Engine.UpdateMoodEntry(env.Ctx, entry.ID, engine.MoodUpdateOptions{Note: &note, Tags: &tags})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Note != "after" || len(updated.Tags) != 2 {
		t.Fatalf("note/tags not applied: %+v", updated)
	}
	if updated.Mood != 6 || !updated.Timestamp.Equal(entry.Timestamp) {
		t.Fatalf("scales or timestamp changed on update: %+v", updated)
	}
}

func TestMutationsOnUnknownIDsAreNoOps(t *testing.T) {
	env := newTestEnv(t)
	env.logMoodAt(t, env.now, 7, 7, 4)
	before, _ := env.Engine.Metrics(env.Ctx)

	if _, err := env.Engine.UpdateMoodEntry(env.Ctx, "nope", engine.MoodUpdateOptions{}); err != nil {
		t.Fatalf("update unknown mood: %v", err)
	}
	if err := env.Engine.DeleteMoodEntry(env.Ctx, "nope"); err != nil {
		t.Fatalf("delete unknown mood: %v", err)
	}
	if _, err := env.Engine.RateActivity(env.Ctx, "nope", 3, ""); err != nil {
		t.Fatalf("rate unknown activity: %v", err)
	}
	if _, err := env.Engine.IncrementGoalProgress(env.Ctx, "nope", 2); err != nil {
		t.Fatalf("progress unknown goal: %v", err)
	}
	if err := env.Engine.DeleteGoal(env.Ctx, "nope"); err != nil {
		t.Fatalf("delete unknown goal: %v", err)
	}
	if _, err := env.Engine.MarkInsightViewed(env.Ctx, "nope"); err != nil {
		t.Fatalf("view unknown insight: %v", err)
	}
	after, _ := env.Engine.Metrics(env.Ctx)
	if after != before {
		t.Fatalf("no-op mutations changed metrics: %+v != %+v", after, before)
	}
}

func TestActivityRatingClampedAndImmutableCore(t *testing.T) {
	env := newTestEnv(t)
	a, err := env.Engine.CompleteActivity(env.Ctx, engine.ActivityOptions{Type: "breathing", Title: "box breathing", DurationMinutes: 0})
	if err != nil {
		t.Fatal(err)
	}
	if a.DurationMinutes != 1 {
		t.Fatalf("zero duration must floor to 1, got %d", a.DurationMinutes)
	}
	rated, err := env.Engine.RateActivity(env.Ctx, a.ID, 9, "great")
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if rated.Rating == nil || *rated.Rating != 5 {
		t.Fatalf("expected rating clamped to 5, got %v", rated.Rating)
	}
	if rated.Type != "breathing" || !rated.CompletedAt.Equal(a.CompletedAt) {
		t.Fatalf("rating must not touch type or completion time: %+v", rated)
	}
}

func TestActivityTypeValidated(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.CompleteActivity(env.Ctx, engine.ActivityOptions{Type: "skydiving", Title: "jump"}); err == nil {
		t.Fatal("expected error for unknown activity type")
	}
}

func TestGoalProgressClampAndMonotonicCompletion(t *testing.T) {
	env := newTestEnv(t)
	g, err := env.Engine.CreateGoal(env.Ctx, engine.GoalCreateOptions{Title: "meditate", Type: "habit", TargetValue: 5, Unit: "sessions"})
	if err != nil {
		t.Fatal(err)
	}
	g, err = env.Engine.IncrementGoalProgress(env.Ctx, g.ID, 3)
	if err != nil || g.CurrentValue != 3 || g.IsCompleted {
		t.Fatalf("after +3: %+v err=%v", g, err)
	}
	g, err = env.Engine.IncrementGoalProgress(env.Ctx, g.ID, 4)
	if err != nil {
		t.Fatal(err)
	}
	if g.CurrentValue != 5 || !g.IsCompleted {
		t.Fatalf("overshoot must clamp to target and complete: %+v", g)
	}
	g, err = env.Engine.IncrementGoalProgress(env.Ctx, g.ID, -10)
	if err != nil {
		t.Fatal(err)
	}
	if g.CurrentValue != 0 {
		t.Fatalf("negative correction must clamp at 0, got %v", g.CurrentValue)
	}
	if !g.IsCompleted {
		t.Fatal("completion must not revert when progress drops")
	}
}

func TestGoalNonPositiveTargetCorrected(t *testing.T) {
	env := newTestEnv(t)
	g, err := env.Engine.CreateGoal(env.Ctx, engine.GoalCreateOptions{Title: "g", Type: "mindfulness", TargetValue: -4})
	if err != nil {
		t.Fatal(err)
	}
	if g.TargetValue != 1 {
		t.Fatalf("expected target corrected to 1, got %v", g.TargetValue)
	}
}

func TestCompleteGoalForcesCompletion(t *testing.T) {
	env := newTestEnv(t)
	g, _ := env.Engine.CreateGoal(env.Ctx, engine.GoalCreateOptions{Title: "big", Type: "mindfulness", TargetValue: 100})
	g, err := env.Engine.CompleteGoal(env.Ctx, g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !g.IsCompleted {
		t.Fatal("expected forced completion")
	}
	m, _ := env.Engine.Metrics(env.Ctx)
	if m.WellnessScore != 60 {
		t.Fatalf("completed goal must add its bonus: expected 60, got %d", m.WellnessScore)
	}
}

func TestDeleteGoalRemovesBonus(t *testing.T) {
	env := newTestEnv(t)
	g, _ := env.Engine.CreateGoal(env.Ctx, engine.GoalCreateOptions{Title: "g", Type: "habit", TargetValue: 1})
	if _, err := env.Engine.IncrementGoalProgress(env.Ctx, g.ID, 1); err != nil {
		t.Fatal(err)
	}
	m, _ := env.Engine.Metrics(env.Ctx)
	if m.WellnessScore != 60 {
		t.Fatalf("expected 60 with one completed goal, got %d", m.WellnessScore)
	}
	if err := env.Engine.DeleteGoal(env.Ctx, g.ID); err != nil {
		t.Fatal(err)
	}
	m, _ = env.Engine.Metrics(env.Ctx)
	if m.WellnessScore != 50 {
		t.Fatalf("expected 50 after goal deletion, got %d", m.WellnessScore)
	}
}

func TestInsightViewIsMonotonic(t *testing.T) {
	env := newTestEnv(t)
	in, err := env.Engine.AddInsight(env.Ctx, engine.InsightOptions{Type: "mood_trend", Title: "Mornings are better", DataJSON: `{"delta":1.2}`})
	if err != nil {
		t.Fatal(err)
	}
	if in.IsViewed {
		t.Fatal("new insight must start unviewed")
	}
	in, err = env.Engine.MarkInsightViewed(env.Ctx, in.ID)
	if err != nil || !in.IsViewed {
		t.Fatalf("expected viewed insight: %+v err=%v", in, err)
	}
	// Acknowledging twice is harmless.
	in, err = env.Engine.MarkInsightViewed(env.Ctx, in.ID)
	if err != nil || !in.IsViewed {
		t.Fatalf("second ack: %+v err=%v", in, err)
	}
	unviewed, err := env.Engine.Repo.ListInsights(env.Ctx, true, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(unviewed) != 0 {
		t.Fatalf("expected no unviewed insights, got %d", len(unviewed))
	}
}

func TestEventsJournalRecordsMutations(t *testing.T) {
	env := newTestEnv(t)
	env.logMoodAt(t, env.now, 7, 7, 4)
	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, 10, "", "", "")
	if err != nil {
		t.Fatal(err)
	}
	var sawLog, sawRecompute bool
	for _, e := range evts {
		switch e.Type {
		case "mood.logged":
			sawLog = true
		case "metrics.recomputed":
			sawRecompute = true
		}
	}
	if !sawLog || !sawRecompute {
		t.Fatalf("expected mood.logged and metrics.recomputed in journal, got %+v", evts)
	}
}

func TestDeterministicUnderFixedClock(t *testing.T) {
	env := newTestEnv(t)
	env.logMoodAt(t, env.now, 8, 8, 3)
	first, err := env.Engine.Recompute(env.Ctx)
	if err != nil {
		t.Fatal(err)
	}
	second, err := env.Engine.Recompute(env.Ctx)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatalf("recompute must be deterministic: %+v != %+v", first, second)
	}
}
