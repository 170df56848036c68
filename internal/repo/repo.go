package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"mindkeep/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const moodColumns = `id,mood,energy,stress,COALESCE(note,'') AS note,tags_json,ts`

func (r Repo) InsertMoodEntry(ctx context.Context, tx *sql.Tx, e domain.MoodEntry) error {
	tags, err := marshalTags(e.Tags)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO mood_entries(id,mood,energy,stress,note,tags_json,ts) VALUES (?,?,?,?,?,?,?)`,
		e.ID, e.Mood, e.Energy, e.Stress, nullable(e.Note), tags, formatTime(e.Timestamp))
	return err
}

// UpdateMoodEntry rewrites note and tags only; the scales and timestamp are
// immutable after creation.
func (r Repo) UpdateMoodEntry(ctx context.Context, tx *sql.Tx, e domain.MoodEntry) error {
	tags, err := marshalTags(e.Tags)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `UPDATE mood_entries SET note=?, tags_json=? WHERE id=?`,
		nullable(e.Note), tags, e.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteMoodEntry(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM mood_entries WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetMoodEntry(ctx context.Context, id string) (domain.MoodEntry, error) {
	return scanMoodEntry(r.DB.QueryRowContext(ctx, `SELECT `+moodColumns+` FROM mood_entries WHERE id=?`, id))
}

func (r Repo) GetMoodEntryTx(ctx context.Context, tx *sql.Tx, id string) (domain.MoodEntry, error) {
	return scanMoodEntry(tx.QueryRowContext(ctx, `SELECT `+moodColumns+` FROM mood_entries WHERE id=?`, id))
}

func (r Repo) ListMoodEntries(ctx context.Context, limit int) ([]domain.MoodEntry, error) {
	return queryMoodEntries(ctx, r.DB.QueryContext, limit)
}

func (r Repo) ListMoodEntriesTx(ctx context.Context, tx *sql.Tx, limit int) ([]domain.MoodEntry, error) {
	return queryMoodEntries(ctx, tx.QueryContext, limit)
}

type queryFunc func(ctx context.Context, query string, args ...any) (*sql.Rows, error)

func queryMoodEntries(ctx context.Context, query queryFunc, limit int) ([]domain.MoodEntry, error) {
	q := `SELECT ` + moodColumns + ` FROM mood_entries ORDER BY ts DESC, id DESC`
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.MoodEntry
	for rows.Next() {
		var e domain.MoodEntry
		var tags sql.NullString
		var ts string
		if err := rows.Scan(&e.ID, &e.Mood, &e.Energy, &e.Stress, &e.Note, &tags, &ts); err != nil {
			return nil, err
		}
		if e.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		if e.Tags, err = unmarshalTags(tags); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func scanMoodEntry(row *sql.Row) (domain.MoodEntry, error) {
	var e domain.MoodEntry
	var tags sql.NullString
	var ts string
	err := row.Scan(&e.ID, &e.Mood, &e.Energy, &e.Stress, &e.Note, &tags, &ts)
	if err == sql.ErrNoRows {
		return e, ErrNotFound
	}
	if err != nil {
		return e, err
	}
	if e.Timestamp, err = parseTime(ts); err != nil {
		return e, err
	}
	if e.Tags, err = unmarshalTags(tags); err != nil {
		return e, err
	}
	return e, nil
}

const activityColumns = `id,type,title,COALESCE(description,'') AS description,duration_minutes,completed_at,rating,notes`

func (r Repo) InsertActivity(ctx context.Context, tx *sql.Tx, a domain.Activity) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO activities(id,type,title,description,duration_minutes,completed_at,rating,notes) VALUES (?,?,?,?,?,?,?,?)`,
		a.ID, a.Type, a.Title, nullable(a.Description), a.DurationMinutes, formatTime(a.CompletedAt), nullableIntPtr(a.Rating), nullableStringPtr(a.Notes))
	return err
}

// SetActivityFeedback attaches the after-completion rating and notes. Type,
// title and completed_at never change.
func (r Repo) SetActivityFeedback(ctx context.Context, tx *sql.Tx, id string, rating int, notes string) error {
	res, err := tx.ExecContext(ctx, `UPDATE activities SET rating=?, notes=? WHERE id=?`, rating, nullable(notes), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetActivity(ctx context.Context, id string) (domain.Activity, error) {
	return scanActivity(r.DB.QueryRowContext(ctx, `SELECT `+activityColumns+` FROM activities WHERE id=?`, id))
}

func (r Repo) GetActivityTx(ctx context.Context, tx *sql.Tx, id string) (domain.Activity, error) {
	return scanActivity(tx.QueryRowContext(ctx, `SELECT `+activityColumns+` FROM activities WHERE id=?`, id))
}

func (r Repo) ListActivities(ctx context.Context, limit int) ([]domain.Activity, error) {
	return queryActivities(ctx, r.DB.QueryContext, limit)
}

func (r Repo) ListActivitiesTx(ctx context.Context, tx *sql.Tx, limit int) ([]domain.Activity, error) {
	return queryActivities(ctx, tx.QueryContext, limit)
}

func queryActivities(ctx context.Context, query queryFunc, limit int) ([]domain.Activity, error) {
	q := `SELECT ` + activityColumns + ` FROM activities ORDER BY completed_at DESC, id DESC`
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Activity
	for rows.Next() {
		var a domain.Activity
		var completedAt string
		var rating sql.NullInt64
		var notes sql.NullString
		if err := rows.Scan(&a.ID, &a.Type, &a.Title, &a.Description, &a.DurationMinutes, &completedAt, &rating, &notes); err != nil {
			return nil, err
		}
		if a.CompletedAt, err = parseTime(completedAt); err != nil {
			return nil, err
		}
		if rating.Valid {
			v := int(rating.Int64)
			a.Rating = &v
		}
		if notes.Valid {
			a.Notes = &notes.String
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func scanActivity(row *sql.Row) (domain.Activity, error) {
	var a domain.Activity
	var completedAt string
	var rating sql.NullInt64
	var notes sql.NullString
	err := row.Scan(&a.ID, &a.Type, &a.Title, &a.Description, &a.DurationMinutes, &completedAt, &rating, &notes)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	if a.CompletedAt, err = parseTime(completedAt); err != nil {
		return a, err
	}
	if rating.Valid {
		v := int(rating.Int64)
		a.Rating = &v
	}
	if notes.Valid {
		a.Notes = &notes.String
	}
	return a, nil
}

const goalColumns = `id,title,COALESCE(description,'') AS description,type,target_value,current_value,COALESCE(unit,'') AS unit,deadline,is_completed,created_at`

func (r Repo) InsertGoal(ctx context.Context, tx *sql.Tx, g domain.Goal) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO goals(id,title,description,type,target_value,current_value,unit,deadline,is_completed,created_at) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		g.ID, g.Title, nullable(g.Description), g.Type, g.TargetValue, g.CurrentValue, nullable(g.Unit), nullableTimePtr(g.Deadline), g.IsCompleted, formatTime(g.CreatedAt))
	return err
}

func (r Repo) UpdateGoal(ctx context.Context, tx *sql.Tx, g domain.Goal) error {
	res, err := tx.ExecContext(ctx, `UPDATE goals SET title=?, description=?, type=?, target_value=?, current_value=?, unit=?, deadline=?, is_completed=? WHERE id=?`,
		g.Title, nullable(g.Description), g.Type, g.TargetValue, g.CurrentValue, nullable(g.Unit), nullableTimePtr(g.Deadline), g.IsCompleted, g.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteGoal(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM goals WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetGoal(ctx context.Context, id string) (domain.Goal, error) {
	return scanGoal(r.DB.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id=?`, id))
}

func (r Repo) GetGoalTx(ctx context.Context, tx *sql.Tx, id string) (domain.Goal, error) {
	return scanGoal(tx.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id=?`, id))
}

func (r Repo) ListGoals(ctx context.Context) ([]domain.Goal, error) {
	return queryGoals(ctx, r.DB.QueryContext)
}

func (r Repo) ListGoalsTx(ctx context.Context, tx *sql.Tx) ([]domain.Goal, error) {
	return queryGoals(ctx, tx.QueryContext)
}

func queryGoals(ctx context.Context, query queryFunc) ([]domain.Goal, error) {
	rows, err := query(ctx, `SELECT `+goalColumns+` FROM goals ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Goal
	for rows.Next() {
		var g domain.Goal
		var deadline sql.NullString
		var createdAt string
		if err := rows.Scan(&g.ID, &g.Title, &g.Description, &g.Type, &g.TargetValue, &g.CurrentValue, &g.Unit, &deadline, &g.IsCompleted, &createdAt); err != nil {
			return nil, err
		}
		if g.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if deadline.Valid {
			d, err := parseTime(deadline.String)
			if err != nil {
				return nil, err
			}
			g.Deadline = &d
		}
		res = append(res, g)
	}
	return res, rows.Err()
}

func scanGoal(row *sql.Row) (domain.Goal, error) {
	var g domain.Goal
	var deadline sql.NullString
	var createdAt string
	err := row.Scan(&g.ID, &g.Title, &g.Description, &g.Type, &g.TargetValue, &g.CurrentValue, &g.Unit, &deadline, &g.IsCompleted, &createdAt)
	if err == sql.ErrNoRows {
		return g, ErrNotFound
	}
	if err != nil {
		return g, err
	}
	if g.CreatedAt, err = parseTime(createdAt); err != nil {
		return g, err
	}
	if deadline.Valid {
		d, err := parseTime(deadline.String)
		if err != nil {
			return g, err
		}
		g.Deadline = &d
	}
	return g, nil
}

const insightColumns = `id,type,title,COALESCE(description,'') AS description,COALESCE(data_json,'') AS data_json,generated_at,is_viewed`

func (r Repo) InsertInsight(ctx context.Context, tx *sql.Tx, in domain.Insight) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO insights(id,type,title,description,data_json,generated_at,is_viewed) VALUES (?,?,?,?,?,?,?)`,
		in.ID, in.Type, in.Title, nullable(in.Description), nullable(in.DataJSON), formatTime(in.GeneratedAt), in.IsViewed)
	return err
}

// MarkInsightViewed is a one-way flip; re-marking a viewed insight is
// harmless.
func (r Repo) MarkInsightViewed(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `UPDATE insights SET is_viewed=1 WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetInsight(ctx context.Context, id string) (domain.Insight, error) {
	var in domain.Insight
	var generatedAt string
	err := r.DB.QueryRowContext(ctx, `SELECT `+insightColumns+` FROM insights WHERE id=?`, id).
		Scan(&in.ID, &in.Type, &in.Title, &in.Description, &in.DataJSON, &generatedAt, &in.IsViewed)
	if err == sql.ErrNoRows {
		return in, ErrNotFound
	}
	if err != nil {
		return in, err
	}
	if in.GeneratedAt, err = parseTime(generatedAt); err != nil {
		return in, err
	}
	return in, nil
}

func (r Repo) ListInsights(ctx context.Context, unviewedOnly bool, limit int) ([]domain.Insight, error) {
	clauses := []string{"1=1"}
	var args []any
	if unviewedOnly {
		clauses = append(clauses, "is_viewed=0")
	}
	q := `SELECT ` + insightColumns + ` FROM insights WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY generated_at DESC, id DESC`
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Insight
	for rows.Next() {
		var in domain.Insight
		var generatedAt string
		if err := rows.Scan(&in.ID, &in.Type, &in.Title, &in.Description, &in.DataJSON, &generatedAt, &in.IsViewed); err != nil {
			return nil, err
		}
		if in.GeneratedAt, err = parseTime(generatedAt); err != nil {
			return nil, err
		}
		res = append(res, in)
	}
	return res, rows.Err()
}

func (r Repo) GetMetrics(ctx context.Context) (domain.Metrics, error) {
	var m domain.Metrics
	err := r.DB.QueryRowContext(ctx, `SELECT wellness_score,current_streak,longest_streak,total_activities FROM metrics WHERE id=1`).
		Scan(&m.WellnessScore, &m.CurrentStreak, &m.LongestStreak, &m.TotalActivities)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	return m, err
}

func (r Repo) GetMetricsTx(ctx context.Context, tx *sql.Tx) (domain.Metrics, error) {
	var m domain.Metrics
	err := tx.QueryRowContext(ctx, `SELECT wellness_score,current_streak,longest_streak,total_activities FROM metrics WHERE id=1`).
		Scan(&m.WellnessScore, &m.CurrentStreak, &m.LongestStreak, &m.TotalActivities)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	return m, err
}

func (r Repo) UpdateMetricsTx(ctx context.Context, tx *sql.Tx, m domain.Metrics, ts time.Time) error {
	_, err := tx.ExecContext(ctx, `UPDATE metrics SET wellness_score=?, current_streak=?, longest_streak=?, total_activities=?, updated_at=? WHERE id=1`,
		m.WellnessScore, m.CurrentStreak, m.LongestStreak, m.TotalActivities, formatTime(ts))
	return err
}

func (r Repo) LatestEvents(ctx context.Context, limit int, evtType, entityKind, entityID string) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	var args []any
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if entityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, entityKind)
	}
	if entityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, entityID)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := `SELECT id,ts,type,entity_kind,entity_id,payload_json FROM events ` + where + ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var entity, payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &entity, &payload); err != nil {
			return nil, err
		}
		if entity.Valid {
			e.EntityID = entity.String
		}
		if payload.Valid {
			e.Payload = payload.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// --- helpers ---

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func marshalTags(tags []string) (any, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func unmarshalTags(raw sql.NullString) ([]string, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw.String), &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}

func nullableIntPtr(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
