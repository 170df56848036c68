package server

import (
	"encoding/json"
	"time"

	"mindkeep/internal/domain"
)

// Request payloads

type LogMoodRequest struct {
	Mood   int      `json:"mood" minimum:"1" maximum:"10"`
	Energy int      `json:"energy" minimum:"1" maximum:"10"`
	Stress int      `json:"stress" minimum:"1" maximum:"10"`
	Note   *string  `json:"note,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

type UpdateMoodRequest struct {
	Note *string   `json:"note,omitempty"`
	Tags *[]string `json:"tags,omitempty"`
}

type CompleteActivityRequest struct {
	Type            string  `json:"type" enum:"breathing,meditation,journaling,reflection,music"`
	Title           string  `json:"title"`
	Description     *string `json:"description,omitempty"`
	DurationMinutes int     `json:"duration_minutes" minimum:"1"`
}

type RateActivityRequest struct {
	Rating int     `json:"rating" minimum:"1" maximum:"5"`
	Notes  *string `json:"notes,omitempty"`
}

type CreateGoalRequest struct {
	Title       string   `json:"title"`
	Description *string  `json:"description,omitempty"`
	Type        string   `json:"type" enum:"mood,habit,activity,mindfulness"`
	TargetValue float64  `json:"target_value"`
	Unit        *string  `json:"unit,omitempty"`
	Deadline    *string  `json:"deadline,omitempty" format:"date-time"`
}

type UpdateGoalRequest struct {
	Title         *string  `json:"title,omitempty"`
	Description   *string  `json:"description,omitempty"`
	Unit          *string  `json:"unit,omitempty"`
	TargetValue   *float64 `json:"target_value,omitempty"`
	Deadline      *string  `json:"deadline,omitempty" format:"date-time"`
	ClearDeadline bool     `json:"clear_deadline,omitempty"`
}

type ProgressGoalRequest struct {
	Amount float64 `json:"amount"`
}

type AddInsightRequest struct {
	Type        string         `json:"type" enum:"mood_trend,goal_progress,activity_streak,correlation"`
	Title       string         `json:"title"`
	Description *string        `json:"description,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

// Response payloads

type MoodEntryResponse struct {
	ID        string   `json:"id"`
	Mood      int      `json:"mood"`
	Energy    int      `json:"energy"`
	Stress    int      `json:"stress"`
	Note      string   `json:"note,omitempty"`
	Tags      []string `json:"tags"`
	Timestamp string   `json:"timestamp" format:"date-time"`
}

type ActivityResponse struct {
	ID              string  `json:"id"`
	Type            string  `json:"type" enum:"breathing,meditation,journaling,reflection,music"`
	Title           string  `json:"title"`
	Description     string  `json:"description,omitempty"`
	DurationMinutes int     `json:"duration_minutes"`
	CompletedAt     string  `json:"completed_at" format:"date-time"`
	Rating          *int    `json:"rating,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

type GoalResponse struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description,omitempty"`
	Type         string  `json:"type" enum:"mood,habit,activity,mindfulness"`
	TargetValue  float64 `json:"target_value"`
	CurrentValue float64 `json:"current_value"`
	Unit         string  `json:"unit,omitempty"`
	Deadline     *string `json:"deadline,omitempty" format:"date-time"`
	IsCompleted  bool    `json:"is_completed"`
	CreatedAt    string  `json:"created_at" format:"date-time"`
}

type InsightResponse struct {
	ID          string         `json:"id"`
	Type        string         `json:"type" enum:"mood_trend,goal_progress,activity_streak,correlation"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	GeneratedAt string         `json:"generated_at" format:"date-time"`
	IsViewed    bool           `json:"is_viewed"`
}

type MetricsResponse struct {
	WellnessScore   int `json:"wellness_score" minimum:"0" maximum:"100"`
	CurrentStreak   int `json:"current_streak"`
	LongestStreak   int `json:"longest_streak"`
	TotalActivities int `json:"total_activities"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}

func moodEntryResponse(e domain.MoodEntry) MoodEntryResponse {
	return MoodEntryResponse{
		ID:        e.ID,
		Mood:      e.Mood,
		Energy:    e.Energy,
		Stress:    e.Stress,
		Note:      e.Note,
		Tags:      nonNilSlice(e.Tags),
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
	}
}

func activityResponse(a domain.Activity) ActivityResponse {
	return ActivityResponse{
		ID:              a.ID,
		Type:            a.Type,
		Title:           a.Title,
		Description:     a.Description,
		DurationMinutes: a.DurationMinutes,
		CompletedAt:     a.CompletedAt.UTC().Format(time.RFC3339),
		Rating:          a.Rating,
		Notes:           a.Notes,
	}
}

func goalResponse(g domain.Goal) GoalResponse {
	resp := GoalResponse{
		ID:           g.ID,
		Title:        g.Title,
		Description:  g.Description,
		Type:         g.Type,
		TargetValue:  g.TargetValue,
		CurrentValue: g.CurrentValue,
		Unit:         g.Unit,
		IsCompleted:  g.IsCompleted,
		CreatedAt:    g.CreatedAt.UTC().Format(time.RFC3339),
	}
	if g.Deadline != nil {
		d := g.Deadline.UTC().Format(time.RFC3339)
		resp.Deadline = &d
	}
	return resp
}

func insightResponse(in domain.Insight) InsightResponse {
	return InsightResponse{
		ID:          in.ID,
		Type:        in.Type,
		Title:       in.Title,
		Description: in.Description,
		Data:        decodeJSONMap(in.DataJSON),
		GeneratedAt: in.GeneratedAt.UTC().Format(time.RFC3339),
		IsViewed:    in.IsViewed,
	}
}

func metricsResponse(m domain.Metrics) MetricsResponse {
	return MetricsResponse{
		WellnessScore:   m.WellnessScore,
		CurrentStreak:   m.CurrentStreak,
		LongestStreak:   m.LongestStreak,
		TotalActivities: m.TotalActivities,
	}
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		Payload:    decodeJSONMap(e.Payload),
	}
}

func mapMoodEntries(items []domain.MoodEntry) []MoodEntryResponse {
	out := []MoodEntryResponse{}
	for _, e := range items {
		out = append(out, moodEntryResponse(e))
	}
	return out
}

func mapActivities(items []domain.Activity) []ActivityResponse {
	out := []ActivityResponse{}
	for _, a := range items {
		out = append(out, activityResponse(a))
	}
	return out
}

func mapGoals(items []domain.Goal) []GoalResponse {
	out := []GoalResponse{}
	for _, g := range items {
		out = append(out, goalResponse(g))
	}
	return out
}

func mapInsights(items []domain.Insight) []InsightResponse {
	out := []InsightResponse{}
	for _, in := range items {
		out = append(out, insightResponse(in))
	}
	return out
}

func mapEvents(items []domain.Event) []EventResponse {
	out := []EventResponse{}
	for _, e := range items {
		out = append(out, eventResponse(e))
	}
	return out
}

func decodeJSONMap(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil
	}
	return m
}

func nonNilSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
