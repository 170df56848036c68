package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"mindkeep/internal/engine"
	"mindkeep/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"bad_request"`
	Message string         `json:"message" example:"title is required"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

type bodyBytesKey struct{}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the mindkeep API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			ctx := context.WithValue(r.Context(), bodyBytesKey{}, bodyBytes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	hcfg := huma.DefaultConfig("Mindkeep API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerMetrics(group, cfg.Engine)
	registerMoods(group, cfg.Engine)
	registerActivities(group, cfg.Engine)
	registerGoals(group, cfg.Engine)
	registerInsights(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "unknown") || strings.Contains(lowered, "invalid") || strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func bodyBytes(ctx context.Context) []byte {
	b, _ := ctx.Value(bodyBytesKey{}).([]byte)
	return b
}

// notFoundEntity is returned when a mutation addressed an id the ledgers do
// not hold. The engine treats those as no-ops; over HTTP we surface 404 so
// the caller learns nothing happened.
func notFoundEntity(kind string) huma.StatusError {
	return newAPIError(http.StatusNotFound, "not_found", kind+" not found", nil)
}

func parseDeadline(raw *string) (*time.Time, huma.StatusError) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid deadline", map[string]any{"deadline": *raw})
	}
	return &t, nil
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Mindkeep API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerMetrics(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-metrics",
		Method:      http.MethodGet,
		Path:        "/metrics",
		Summary:     "Current wellness metrics",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body MetricsResponse `json:"body"`
	}, error) {
		m, err := e.Metrics(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MetricsResponse `json:"body"`
		}{Body: metricsResponse(m)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "recompute-metrics",
		Method:      http.MethodPost,
		Path:        "/metrics/recompute",
		Summary:     "Recompute metrics from the ledgers",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body MetricsResponse `json:"body"`
	}, error) {
		m, err := e.Recompute(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MetricsResponse `json:"body"`
		}{Body: metricsResponse(m)}, nil
	})
}

func registerMoods(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "log-mood",
		Method:        http.MethodPost,
		Path:          "/moods",
		Summary:       "Log a mood entry",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body LogMoodRequest `json:"body"`
	}) (*struct {
		Body MoodEntryResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		entry, err := e.LogMood(ctx, engine.MoodLogOptions{
			Mood:   input.Body.Mood,
			Energy: input.Body.Energy,
			Stress: input.Body.Stress,
			Note:   stringOrEmpty(input.Body.Note),
			Tags:   input.Body.Tags,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MoodEntryResponse `json:"body"`
		}{Body: moodEntryResponse(entry)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-moods",
		Method:      http.MethodGet,
		Path:        "/moods",
		Summary:     "List mood entries",
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" default:"50"`
	}) (*struct {
		Body []MoodEntryResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListMoodEntries(ctx, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []MoodEntryResponse `json:"body"`
		}{Body: mapMoodEntries(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-mood",
		Method:      http.MethodGet,
		Path:        "/moods/{id}",
		Summary:     "Get mood entry",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body MoodEntryResponse `json:"body"`
	}, error) {
		entry, err := e.Repo.GetMoodEntry(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MoodEntryResponse `json:"body"`
		}{Body: moodEntryResponse(entry)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-mood",
		Method:      http.MethodPatch,
		Path:        "/moods/{id}",
		Summary:     "Update mood entry note and tags",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string            `path:"id"`
		Body UpdateMoodRequest `json:"body"`
	}) (*struct {
		Body MoodEntryResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		entry, err := e.UpdateMoodEntry(ctx, input.ID, engine.MoodUpdateOptions{
			Note: input.Body.Note,
			Tags: input.Body.Tags,
		})
		if err != nil {
			return nil, handleError(err)
		}
		if entry.ID == "" {
			return nil, notFoundEntity("mood entry")
		}
		return &struct {
			Body MoodEntryResponse `json:"body"`
		}{Body: moodEntryResponse(entry)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-mood",
		Method:      http.MethodDelete,
		Path:        "/moods/{id}",
		Summary:     "Delete mood entry",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		if _, err := e.Repo.GetMoodEntry(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		if err := e.DeleteMoodEntry(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerActivities(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "complete-activity",
		Method:        http.MethodPost,
		Path:          "/activities",
		Summary:       "Record a completed activity",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CompleteActivityRequest `json:"body"`
	}) (*struct {
		Body ActivityResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		a, err := e.CompleteActivity(ctx, engine.ActivityOptions{
			Type:            input.Body.Type,
			Title:           input.Body.Title,
			Description:     stringOrEmpty(input.Body.Description),
			DurationMinutes: input.Body.DurationMinutes,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ActivityResponse `json:"body"`
		}{Body: activityResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-activities",
		Method:      http.MethodGet,
		Path:        "/activities",
		Summary:     "List activities",
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" default:"50"`
	}) (*struct {
		Body []ActivityResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListActivities(ctx, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []ActivityResponse `json:"body"`
		}{Body: mapActivities(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-activity",
		Method:      http.MethodGet,
		Path:        "/activities/{id}",
		Summary:     "Get activity",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body ActivityResponse `json:"body"`
	}, error) {
		a, err := e.Repo.GetActivity(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ActivityResponse `json:"body"`
		}{Body: activityResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "rate-activity",
		Method:      http.MethodPost,
		Path:        "/activities/{id}/rating",
		Summary:     "Rate a completed activity",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string              `path:"id"`
		Body RateActivityRequest `json:"body"`
	}) (*struct {
		Body ActivityResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		a, err := e.RateActivity(ctx, input.ID, input.Body.Rating, stringOrEmpty(input.Body.Notes))
		if err != nil {
			return nil, handleError(err)
		}
		if a.ID == "" {
			return nil, notFoundEntity("activity")
		}
		return &struct {
			Body ActivityResponse `json:"body"`
		}{Body: activityResponse(a)}, nil
	})
}

func registerGoals(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-goal",
		Method:        http.MethodPost,
		Path:          "/goals",
		Summary:       "Create goal",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateGoalRequest `json:"body"`
	}) (*struct {
		Body GoalResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		deadline, herr := parseDeadline(input.Body.Deadline)
		if herr != nil {
			return nil, herr
		}
		g, err := e.CreateGoal(ctx, engine.GoalCreateOptions{
			Title:       input.Body.Title,
			Description: stringOrEmpty(input.Body.Description),
			Type:        input.Body.Type,
			TargetValue: input.Body.TargetValue,
			Unit:        stringOrEmpty(input.Body.Unit),
			Deadline:    deadline,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body GoalResponse `json:"body"`
		}{Body: goalResponse(g)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-goals",
		Method:      http.MethodGet,
		Path:        "/goals",
		Summary:     "List goals",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []GoalResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListGoals(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []GoalResponse `json:"body"`
		}{Body: mapGoals(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-goal",
		Method:      http.MethodGet,
		Path:        "/goals/{id}",
		Summary:     "Get goal",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body GoalResponse `json:"body"`
	}, error) {
		g, err := e.Repo.GetGoal(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body GoalResponse `json:"body"`
		}{Body: goalResponse(g)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-goal",
		Method:      http.MethodPatch,
		Path:        "/goals/{id}",
		Summary:     "Update goal",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string            `path:"id"`
		Body UpdateGoalRequest `json:"body"`
	}) (*struct {
		Body GoalResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		deadline, herr := parseDeadline(input.Body.Deadline)
		if herr != nil {
			return nil, herr
		}
		g, err := e.UpdateGoal(ctx, input.ID, engine.GoalUpdateOptions{
			Title:         input.Body.Title,
			Description:   input.Body.Description,
			Unit:          input.Body.Unit,
			TargetValue:   input.Body.TargetValue,
			Deadline:      deadline,
			ClearDeadline: input.Body.ClearDeadline,
		})
		if err != nil {
			return nil, handleError(err)
		}
		if g.ID == "" {
			return nil, notFoundEntity("goal")
		}
		return &struct {
			Body GoalResponse `json:"body"`
		}{Body: goalResponse(g)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "progress-goal",
		Method:      http.MethodPost,
		Path:        "/goals/{id}/progress",
		Summary:     "Increment goal progress",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string              `path:"id"`
		Body ProgressGoalRequest `json:"body"`
	}) (*struct {
		Body GoalResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		g, err := e.IncrementGoalProgress(ctx, input.ID, input.Body.Amount)
		if err != nil {
			return nil, handleError(err)
		}
		if g.ID == "" {
			return nil, notFoundEntity("goal")
		}
		return &struct {
			Body GoalResponse `json:"body"`
		}{Body: goalResponse(g)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-goal",
		Method:      http.MethodPost,
		Path:        "/goals/{id}/complete",
		Summary:     "Force-complete goal",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body GoalResponse `json:"body"`
	}, error) {
		g, err := e.CompleteGoal(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if g.ID == "" {
			return nil, notFoundEntity("goal")
		}
		return &struct {
			Body GoalResponse `json:"body"`
		}{Body: goalResponse(g)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-goal",
		Method:      http.MethodDelete,
		Path:        "/goals/{id}",
		Summary:     "Delete goal",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		if _, err := e.Repo.GetGoal(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		if err := e.DeleteGoal(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerInsights(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "add-insight",
		Method:        http.MethodPost,
		Path:          "/insights",
		Summary:       "Store an insight",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body AddInsightRequest `json:"body"`
	}) (*struct {
		Body InsightResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		dataJSON := ""
		if input.Body.Data != nil {
			b, err := json.Marshal(input.Body.Data)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid data", map[string]any{"error": err.Error()})
			}
			dataJSON = string(b)
		}
		in, err := e.AddInsight(ctx, engine.InsightOptions{
			Type:        input.Body.Type,
			Title:       input.Body.Title,
			Description: stringOrEmpty(input.Body.Description),
			DataJSON:    dataJSON,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body InsightResponse `json:"body"`
		}{Body: insightResponse(in)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-insights",
		Method:      http.MethodGet,
		Path:        "/insights",
		Summary:     "List insights",
	}, func(ctx context.Context, input *struct {
		Unviewed bool `query:"unviewed"`
		Limit    int  `query:"limit" default:"50"`
	}) (*struct {
		Body []InsightResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListInsights(ctx, input.Unviewed, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []InsightResponse `json:"body"`
		}{Body: mapInsights(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "view-insight",
		Method:      http.MethodPost,
		Path:        "/insights/{id}/view",
		Summary:     "Mark insight viewed",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body InsightResponse `json:"body"`
	}, error) {
		in, err := e.MarkInsightViewed(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if in.ID == "" {
			return nil, notFoundEntity("insight")
		}
		return &struct {
			Body InsightResponse `json:"body"`
		}{Body: insightResponse(in)}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Latest journal events",
	}, func(ctx context.Context, input *struct {
		Limit      int    `query:"limit" default:"50"`
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind"`
		EntityID   string `query:"entity_id"`
	}) (*struct {
		Body []EventResponse `json:"body"`
	}, error) {
		items, err := e.Repo.LatestEvents(ctx, input.Limit, input.Type, input.EntityKind, input.EntityID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []EventResponse `json:"body"`
		}{Body: mapEvents(items)}, nil
	})
}
