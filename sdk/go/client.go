package mindkeepsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Mindkeep HTTP API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// MoodEntry represents the API mood entry model.
type MoodEntry struct {
	ID        string   `json:"id"`
	Mood      int      `json:"mood"`
	Energy    int      `json:"energy"`
	Stress    int      `json:"stress"`
	Note      string   `json:"note,omitempty"`
	Tags      []string `json:"tags"`
	Timestamp string   `json:"timestamp"`
}

// Activity represents a completed exercise.
type Activity struct {
	ID              string  `json:"id"`
	Type            string  `json:"type"`
	Title           string  `json:"title"`
	Description     string  `json:"description,omitempty"`
	DurationMinutes int     `json:"duration_minutes"`
	CompletedAt     string  `json:"completed_at"`
	Rating          *int    `json:"rating,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

// Goal represents a numeric target.
type Goal struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Type         string  `json:"type"`
	TargetValue  float64 `json:"target_value"`
	CurrentValue float64 `json:"current_value"`
	Unit         string  `json:"unit,omitempty"`
	IsCompleted  bool    `json:"is_completed"`
	CreatedAt    string  `json:"created_at"`
}

// Insight represents a stored observation.
type Insight struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	GeneratedAt string         `json:"generated_at"`
	IsViewed    bool           `json:"is_viewed"`
}

// Metrics is the derived snapshot.
type Metrics struct {
	WellnessScore   int `json:"wellness_score"`
	CurrentStreak   int `json:"current_streak"`
	LongestStreak   int `json:"longest_streak"`
	TotalActivities int `json:"total_activities"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id"`
	Payload    map[string]any `json:"payload"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// LogMood appends a mood entry.
func (c *Client) LogMood(ctx context.Context, mood, energy, stress int, note string, tags []string) (MoodEntry, error) {
	body := map[string]any{
		"mood":   mood,
		"energy": energy,
		"stress": stress,
	}
	if note != "" {
		body["note"] = note
	}
	if len(tags) > 0 {
		body["tags"] = tags
	}
	var resp MoodEntry
	err := c.do(ctx, http.MethodPost, "v0/moods", body, &resp)
	return resp, err
}

// CompleteActivity records a completed exercise.
func (c *Client) CompleteActivity(ctx context.Context, activityType, title string, durationMinutes int) (Activity, error) {
	body := map[string]any{
		"type":             activityType,
		"title":            title,
		"duration_minutes": durationMinutes,
	}
	var resp Activity
	err := c.do(ctx, http.MethodPost, "v0/activities", body, &resp)
	return resp, err
}

// RateActivity attaches a rating and notes to an activity.
func (c *Client) RateActivity(ctx context.Context, id string, rating int, notes string) (Activity, error) {
	body := map[string]any{"rating": rating}
	if notes != "" {
		body["notes"] = notes
	}
	var resp Activity
	endpoint := fmt.Sprintf("v0/activities/%s/rating", url.PathEscape(id))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// CreateGoal starts a goal.
func (c *Client) CreateGoal(ctx context.Context, title, goalType string, target float64, unit string) (Goal, error) {
	body := map[string]any{
		"title":        title,
		"type":         goalType,
		"target_value": target,
	}
	if unit != "" {
		body["unit"] = unit
	}
	var resp Goal
	err := c.do(ctx, http.MethodPost, "v0/goals", body, &resp)
	return resp, err
}

// IncrementGoal adds amount to a goal's progress.
func (c *Client) IncrementGoal(ctx context.Context, id string, amount float64) (Goal, error) {
	var resp Goal
	endpoint := fmt.Sprintf("v0/goals/%s/progress", url.PathEscape(id))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"amount": amount}, &resp)
	return resp, err
}

// AddInsight stores an observation.
func (c *Client) AddInsight(ctx context.Context, insightType, title string, data map[string]any) (Insight, error) {
	body := map[string]any{
		"type":  insightType,
		"title": title,
	}
	if data != nil {
		body["data"] = data
	}
	var resp Insight
	err := c.do(ctx, http.MethodPost, "v0/insights", body, &resp)
	return resp, err
}

// ViewInsight acknowledges an insight.
func (c *Client) ViewInsight(ctx context.Context, id string) (Insight, error) {
	var resp Insight
	endpoint := fmt.Sprintf("v0/insights/%s/view", url.PathEscape(id))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// Metrics returns the current snapshot.
func (c *Client) Metrics(ctx context.Context) (Metrics, error) {
	var resp Metrics
	err := c.do(ctx, http.MethodGet, "v0/metrics", nil, &resp)
	return resp, err
}

// Events returns recent journal events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "v0/events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
