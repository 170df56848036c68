package domain

import "time"

// ActivityTypes is the fixed set of wellness exercises.
var ActivityTypes = []string{"breathing", "meditation", "journaling", "reflection", "music"}

// GoalTypes is the fixed set of goal categories.
var GoalTypes = []string{"mood", "habit", "activity", "mindfulness"}

// InsightTypes is the fixed set of insight categories.
var InsightTypes = []string{"mood_trend", "goal_progress", "activity_streak", "correlation"}

// MoodEntry is one self-report event. Mood, energy and stress are clamped to
// [1,10] before storage; the timestamp is immutable once created.
type MoodEntry struct {
	ID        string    `json:"id"`
	Mood      int       `json:"mood" minimum:"1" maximum:"10"`
	Energy    int       `json:"energy" minimum:"1" maximum:"10"`
	Stress    int       `json:"stress" minimum:"1" maximum:"10"`
	Note      string    `json:"note,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Timestamp time.Time `json:"timestamp" format:"date-time"`
}

// Activity is a completion record of a wellness exercise. Type and CompletedAt
// are set once at creation; Rating and Notes stay nil until the entry is rated.
type Activity struct {
	ID              string    `json:"id"`
	Type            string    `json:"type" enum:"breathing,meditation,journaling,reflection,music"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	DurationMinutes int       `json:"duration_minutes"`
	CompletedAt     time.Time `json:"completed_at" format:"date-time"`
	Rating          *int      `json:"rating,omitempty" minimum:"1" maximum:"5"`
	Notes           *string   `json:"notes,omitempty"`
}

// Goal is a user-defined target with bounded incremental progress.
// CurrentValue is always within [0, TargetValue]; IsCompleted never reverts
// to false through increments once set.
type Goal struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Type         string     `json:"type" enum:"mood,habit,activity,mindfulness"`
	TargetValue  float64    `json:"target_value"`
	CurrentValue float64    `json:"current_value"`
	Unit         string     `json:"unit,omitempty"`
	Deadline     *time.Time `json:"deadline,omitempty" format:"date-time"`
	IsCompleted  bool       `json:"is_completed"`
	CreatedAt    time.Time  `json:"created_at" format:"date-time"`
}

// Insight is a derived observation produced by an external generator and
// acknowledged by the user. IsViewed flips to true at most once.
type Insight struct {
	ID          string    `json:"id"`
	Type        string    `json:"type" enum:"mood_trend,goal_progress,activity_streak,correlation"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	DataJSON    string    `json:"data_json,omitempty"`
	GeneratedAt time.Time `json:"generated_at" format:"date-time"`
	IsViewed    bool      `json:"is_viewed"`
}

// Metrics is the cached scalar snapshot derived from the ledgers. It is
// overwritten on every mutation; LongestStreak only ever ratchets upward.
type Metrics struct {
	WellnessScore   int `json:"wellness_score" minimum:"0" maximum:"100"`
	CurrentStreak   int `json:"current_streak"`
	LongestStreak   int `json:"longest_streak"`
	TotalActivities int `json:"total_activities"`
}

// Event is one entry of the append-only change journal.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload_json"`
}

// ValidActivityType reports whether t names a known exercise.
func ValidActivityType(t string) bool { return contains(ActivityTypes, t) }

// ValidGoalType reports whether t names a known goal category.
func ValidGoalType(t string) bool { return contains(GoalTypes, t) }

// ValidInsightType reports whether t names a known insight category.
func ValidInsightType(t string) bool { return contains(InsightTypes, t) }

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
