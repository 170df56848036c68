package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mindkeep/internal/config"
	"mindkeep/internal/domain"
	"mindkeep/internal/events"
	"mindkeep/internal/metrics"
	"mindkeep/internal/repo"
)

// Engine owns the wellness ledgers and keeps the derived metrics snapshot
// consistent with them. Every mutation runs in a single transaction that
// also recomputes the snapshot, so a stale cached score cannot be observed.
//
// Operations addressed at an unknown id are silent no-ops: the zero value is
// returned with a nil error and no state changes. Out-of-range scales are
// corrected by clamping, never rejected.
type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) writer() events.Writer {
	w := e.Events
	if w.Now == nil {
		w.Now = e.now
	}
	return w
}

func (e Engine) scoring() config.Scoring {
	if e.Config != nil {
		return e.Config.Scoring
	}
	return config.Default("local").Scoring
}

// MoodLogOptions are parameters for logging a mood entry.
type MoodLogOptions struct {
	Mood   int
	Energy int
	Stress int
	Note   string
	Tags   []string
}

// LogMood appends a self-report to the mood ledger. The three scales are
// clamped to [1,10] and the timestamp is stamped from the engine clock.
func (e Engine) LogMood(ctx context.Context, opts MoodLogOptions) (domain.MoodEntry, error) {
	now := e.now().UTC()
	entry := domain.MoodEntry{
		ID:        uuid.New().String(),
		Mood:      metrics.ClampScale(opts.Mood, 1, 10),
		Energy:    metrics.ClampScale(opts.Energy, 1, 10),
		Stress:    metrics.ClampScale(opts.Stress, 1, 10),
		Note:      opts.Note,
		Tags:      opts.Tags,
		Timestamp: now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.MoodEntry{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertMoodEntry(ctx, tx, entry); err != nil {
		return domain.MoodEntry{}, fmt.Errorf("insert mood entry: %w", err)
	}
	m, err := e.recomputeTx(ctx, tx)
	if err != nil {
		return domain.MoodEntry{}, err
	}
	if err := e.writer().Append(ctx, tx, "mood.logged", "mood_entry", entry.ID, events.EventPayload{
		"mood":           entry.Mood,
		"energy":         entry.Energy,
		"stress":         entry.Stress,
		"wellness_score": m.WellnessScore,
		"current_streak": m.CurrentStreak,
	}); err != nil {
		return domain.MoodEntry{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.MoodEntry{}, err
	}
	return entry, nil
}

// MoodUpdateOptions carries the editable fields of a mood entry. Only note
// and tags are mutable; identity, scales and timestamp are preserved.
type MoodUpdateOptions struct {
	Note *string
	Tags *[]string
}

func (e Engine) UpdateMoodEntry(ctx context.Context, id string, opts MoodUpdateOptions) (domain.MoodEntry, error) {
	entry, err := e.Repo.GetMoodEntry(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.MoodEntry{}, nil
		}
		return domain.MoodEntry{}, err
	}
	if opts.Note != nil {
		entry.Note = *opts.Note
	}
	if opts.Tags != nil {
		entry.Tags = *opts.Tags
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.MoodEntry{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateMoodEntry(ctx, tx, entry); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.MoodEntry{}, nil
		}
		return domain.MoodEntry{}, err
	}
	if _, err := e.recomputeTx(ctx, tx); err != nil {
		return domain.MoodEntry{}, err
	}
	if err := e.writer().Append(ctx, tx, "mood.updated", "mood_entry", entry.ID, events.EventPayload{}); err != nil {
		return domain.MoodEntry{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.MoodEntry{}, err
	}
	return entry, nil
}

// DeleteMoodEntry removes an entry by id and recomputes all derived metrics,
// since removing history can change both the score window and streak
// continuity. Unknown ids leave state untouched.
func (e Engine) DeleteMoodEntry(ctx context.Context, id string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.DeleteMoodEntry(ctx, tx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		return err
	}
	if _, err := e.recomputeTx(ctx, tx); err != nil {
		return err
	}
	if err := e.writer().Append(ctx, tx, "mood.deleted", "mood_entry", id, events.EventPayload{}); err != nil {
		return err
	}
	return tx.Commit()
}

// ActivityOptions are parameters for recording a completed exercise.
type ActivityOptions struct {
	Type            string
	Title           string
	Description     string
	DurationMinutes int
}

// CompleteActivity appends a completion record. Activities feed the score's
// trailing-window bonus but never the streaks.
func (e Engine) CompleteActivity(ctx context.Context, opts ActivityOptions) (domain.Activity, error) {
	if !domain.ValidActivityType(opts.Type) {
		return domain.Activity{}, fmt.Errorf("unknown activity type %q", opts.Type)
	}
	if opts.Title == "" {
		return domain.Activity{}, errors.New("title is required")
	}
	duration := opts.DurationMinutes
	if duration < 1 {
		duration = 1
	}
	a := domain.Activity{
		ID:              uuid.New().String(),
		Type:            opts.Type,
		Title:           opts.Title,
		Description:     opts.Description,
		DurationMinutes: duration,
		CompletedAt:     e.now().UTC(),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Activity{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertActivity(ctx, tx, a); err != nil {
		return domain.Activity{}, fmt.Errorf("insert activity: %w", err)
	}
	m, err := e.recomputeTx(ctx, tx)
	if err != nil {
		return domain.Activity{}, err
	}
	if err := e.writer().Append(ctx, tx, "activity.completed", "activity", a.ID, events.EventPayload{
		"type":             a.Type,
		"duration_minutes": a.DurationMinutes,
		"wellness_score":   m.WellnessScore,
	}); err != nil {
		return domain.Activity{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Activity{}, err
	}
	return a, nil
}

// RateActivity attaches the after-completion rating and notes. The rating is
// clamped to [1,5]; type and completion time stay immutable. Unknown ids are
// a no-op.
func (e Engine) RateActivity(ctx context.Context, id string, rating int, notes string) (domain.Activity, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Activity{}, err
	}
	defer tx.Rollback()

	clamped := metrics.ClampScale(rating, 1, 5)
	if err := e.Repo.SetActivityFeedback(ctx, tx, id, clamped, notes); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Activity{}, nil
		}
		return domain.Activity{}, err
	}
	if err := e.writer().Append(ctx, tx, "activity.rated", "activity", id, events.EventPayload{"rating": clamped}); err != nil {
		return domain.Activity{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Activity{}, err
	}
	return e.Repo.GetActivity(ctx, id)
}

// GoalCreateOptions are parameters for creating a goal.
type GoalCreateOptions struct {
	Title       string
	Description string
	Type        string
	TargetValue float64
	Unit        string
	Deadline    *time.Time
}

// CreateGoal starts a goal at zero progress. A non-positive target is
// corrected to 1 rather than rejected.
func (e Engine) CreateGoal(ctx context.Context, opts GoalCreateOptions) (domain.Goal, error) {
	if opts.Title == "" {
		return domain.Goal{}, errors.New("title is required")
	}
	if !domain.ValidGoalType(opts.Type) {
		return domain.Goal{}, fmt.Errorf("unknown goal type %q", opts.Type)
	}
	target := opts.TargetValue
	if target <= 0 {
		target = 1
	}
	g := domain.Goal{
		ID:          uuid.New().String(),
		Title:       opts.Title,
		Description: opts.Description,
		Type:        opts.Type,
		TargetValue: target,
		Unit:        opts.Unit,
		Deadline:    opts.Deadline,
		CreatedAt:   e.now().UTC(),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Goal{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertGoal(ctx, tx, g); err != nil {
		return domain.Goal{}, fmt.Errorf("insert goal: %w", err)
	}
	if _, err := e.recomputeTx(ctx, tx); err != nil {
		return domain.Goal{}, err
	}
	if err := e.writer().Append(ctx, tx, "goal.created", "goal", g.ID, events.EventPayload{
		"type":         g.Type,
		"target_value": g.TargetValue,
	}); err != nil {
		return domain.Goal{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Goal{}, err
	}
	return g, nil
}

// IncrementGoalProgress adds amount (possibly negative, for corrections) to
// the goal's progress, clamped to [0, target]. Completion is monotonic: once
// the clamped value reaches the target the goal stays completed even if a
// later negative increment drives progress back down.
func (e Engine) IncrementGoalProgress(ctx context.Context, id string, amount float64) (domain.Goal, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Goal{}, err
	}
	defer tx.Rollback()

	g, err := e.Repo.GetGoalTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Goal{}, nil
		}
		return domain.Goal{}, err
	}
	g.CurrentValue = metrics.ClampProgress(g.CurrentValue+amount, g.TargetValue)
	justCompleted := !g.IsCompleted && g.CurrentValue >= g.TargetValue
	if justCompleted {
		g.IsCompleted = true
	}
	if err := e.Repo.UpdateGoal(ctx, tx, g); err != nil {
		return domain.Goal{}, err
	}
	m, err := e.recomputeTx(ctx, tx)
	if err != nil {
		return domain.Goal{}, err
	}
	if err := e.writer().Append(ctx, tx, "goal.progressed", "goal", g.ID, events.EventPayload{
		"current_value":  g.CurrentValue,
		"target_value":   g.TargetValue,
		"wellness_score": m.WellnessScore,
	}); err != nil {
		return domain.Goal{}, err
	}
	if justCompleted {
		if err := e.writer().Append(ctx, tx, "goal.completed", "goal", g.ID, events.EventPayload{}); err != nil {
			return domain.Goal{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.Goal{}, err
	}
	return g, nil
}

// CompleteGoal force-completes a goal without requiring progress to reach
// the target. Unknown ids are a no-op.
func (e Engine) CompleteGoal(ctx context.Context, id string) (domain.Goal, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Goal{}, err
	}
	defer tx.Rollback()

	g, err := e.Repo.GetGoalTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Goal{}, nil
		}
		return domain.Goal{}, err
	}
	if !g.IsCompleted {
		g.IsCompleted = true
		if err := e.Repo.UpdateGoal(ctx, tx, g); err != nil {
			return domain.Goal{}, err
		}
		if _, err := e.recomputeTx(ctx, tx); err != nil {
			return domain.Goal{}, err
		}
		if err := e.writer().Append(ctx, tx, "goal.completed", "goal", g.ID, events.EventPayload{"forced": true}); err != nil {
			return domain.Goal{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.Goal{}, err
	}
	return g, nil
}

// GoalUpdateOptions carries explicit goal edits. A target change re-clamps
// progress and re-derives completion from the new values; the explicit
// update path is the one place completion may flip back off.
type GoalUpdateOptions struct {
	Title         *string
	Description   *string
	Unit          *string
	TargetValue   *float64
	Deadline      *time.Time
	ClearDeadline bool
}

func (e Engine) UpdateGoal(ctx context.Context, id string, opts GoalUpdateOptions) (domain.Goal, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Goal{}, err
	}
	defer tx.Rollback()

	g, err := e.Repo.GetGoalTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Goal{}, nil
		}
		return domain.Goal{}, err
	}
	if opts.Title != nil {
		g.Title = *opts.Title
	}
	if opts.Description != nil {
		g.Description = *opts.Description
	}
	if opts.Unit != nil {
		g.Unit = *opts.Unit
	}
	if opts.Deadline != nil {
		g.Deadline = opts.Deadline
	}
	if opts.ClearDeadline {
		g.Deadline = nil
	}
	if opts.TargetValue != nil {
		target := *opts.TargetValue
		if target <= 0 {
			target = 1
		}
		g.TargetValue = target
		g.CurrentValue = metrics.ClampProgress(g.CurrentValue, target)
		g.IsCompleted = g.CurrentValue >= target
	}
	if err := e.Repo.UpdateGoal(ctx, tx, g); err != nil {
		return domain.Goal{}, err
	}
	if _, err := e.recomputeTx(ctx, tx); err != nil {
		return domain.Goal{}, err
	}
	if err := e.writer().Append(ctx, tx, "goal.updated", "goal", g.ID, events.EventPayload{}); err != nil {
		return domain.Goal{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Goal{}, err
	}
	return g, nil
}

// DeleteGoal removes a goal; its completion stops feeding the score
// immediately. Unknown ids are a no-op.
func (e Engine) DeleteGoal(ctx context.Context, id string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.DeleteGoal(ctx, tx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		return err
	}
	if _, err := e.recomputeTx(ctx, tx); err != nil {
		return err
	}
	if err := e.writer().Append(ctx, tx, "goal.deleted", "goal", id, events.EventPayload{}); err != nil {
		return err
	}
	return tx.Commit()
}

// InsightOptions are parameters for recording an externally generated
// insight.
type InsightOptions struct {
	Type        string
	Title       string
	Description string
	DataJSON    string
}

// AddInsight stores a derived observation for later acknowledgment. The
// engine performs no analysis of its own; the generator lives outside.
func (e Engine) AddInsight(ctx context.Context, opts InsightOptions) (domain.Insight, error) {
	if !domain.ValidInsightType(opts.Type) {
		return domain.Insight{}, fmt.Errorf("unknown insight type %q", opts.Type)
	}
	if opts.Title == "" {
		return domain.Insight{}, errors.New("title is required")
	}
	in := domain.Insight{
		ID:          uuid.New().String(),
		Type:        opts.Type,
		Title:       opts.Title,
		Description: opts.Description,
		DataJSON:    opts.DataJSON,
		GeneratedAt: e.now().UTC(),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Insight{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertInsight(ctx, tx, in); err != nil {
		return domain.Insight{}, fmt.Errorf("insert insight: %w", err)
	}
	if err := e.writer().Append(ctx, tx, "insight.added", "insight", in.ID, events.EventPayload{"type": in.Type}); err != nil {
		return domain.Insight{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Insight{}, err
	}
	return in, nil
}

// MarkInsightViewed acknowledges an insight. The flag never reverts through
// this interface and unknown ids are a no-op.
func (e Engine) MarkInsightViewed(ctx context.Context, id string) (domain.Insight, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Insight{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.MarkInsightViewed(ctx, tx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Insight{}, nil
		}
		return domain.Insight{}, err
	}
	if err := e.writer().Append(ctx, tx, "insight.viewed", "insight", id, events.EventPayload{}); err != nil {
		return domain.Insight{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Insight{}, err
	}
	return e.Repo.GetInsight(ctx, id)
}

// Metrics returns the cached snapshot.
func (e Engine) Metrics(ctx context.Context) (domain.Metrics, error) {
	return e.Repo.GetMetrics(ctx)
}

// Recompute rebuilds the snapshot from the ledgers outside any mutation,
// correcting whatever a previous process left behind.
func (e Engine) Recompute(ctx context.Context) (domain.Metrics, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Metrics{}, err
	}
	defer tx.Rollback()

	m, err := e.recomputeTx(ctx, tx)
	if err != nil {
		return domain.Metrics{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Metrics{}, err
	}
	return m, nil
}

// recomputeTx derives the snapshot fresh from the ledgers inside the
// caller's transaction. The stored longest streak is read first so the
// ratchet survives deletions.
func (e Engine) recomputeTx(ctx context.Context, tx *sql.Tx) (domain.Metrics, error) {
	moods, err := e.Repo.ListMoodEntriesTx(ctx, tx, 0)
	if err != nil {
		return domain.Metrics{}, err
	}
	activities, err := e.Repo.ListActivitiesTx(ctx, tx, 0)
	if err != nil {
		return domain.Metrics{}, err
	}
	goals, err := e.Repo.ListGoalsTx(ctx, tx)
	if err != nil {
		return domain.Metrics{}, err
	}
	prior, err := e.Repo.GetMetricsTx(ctx, tx)
	if err != nil {
		return domain.Metrics{}, err
	}

	now := e.now().UTC()
	current, longest := metrics.Streaks(moods, prior.LongestStreak, now)
	m := domain.Metrics{
		WellnessScore:   metrics.Score(moods, activities, goals, e.scoring(), now),
		CurrentStreak:   current,
		LongestStreak:   longest,
		TotalActivities: len(activities),
	}
	if err := e.Repo.UpdateMetricsTx(ctx, tx, m, now); err != nil {
		return domain.Metrics{}, err
	}
	if err := e.writer().Append(ctx, tx, "metrics.recomputed", "metrics", "", events.EventPayload{
		"wellness_score": m.WellnessScore,
		"current_streak": m.CurrentStreak,
		"longest_streak": m.LongestStreak,
	}); err != nil {
		return domain.Metrics{}, err
	}
	return m, nil
}
