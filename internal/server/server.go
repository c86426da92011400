// Package server exposes the weekly planning engine over HTTP so an agent
// or dashboard can drive the same cycle the CLI does.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"focusline/internal/assistant"
	"focusline/internal/engine"
	"focusline/internal/plan"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   *engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"assistant_unavailable"`
	Message string         `json:"message" example:"could not generate steps"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Focusline API.
func New(cfg Config) (http.Handler, error) {
	if cfg.Engine == nil {
		return nil, errors.New("engine is required")
	}
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
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Focusline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerState(group, cfg.Engine)
	registerRole(group, cfg.Engine)
	registerPriorities(group, cfg.Engine)
	registerSteps(group, cfg.Engine)
	registerToggles(group, cfg.Engine)
	registerRetrospective(group, cfg.Engine)
	registerArchive(group, cfg.Engine)
	registerMotivation(group, cfg.Engine)
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
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, engine.ErrGenerationInFlight):
		return newAPIError(http.StatusConflict, "generation_in_flight", err.Error(), nil)
	case errors.Is(err, plan.ErrWeekIncomplete):
		return newAPIError(http.StatusUnprocessableEntity, "validation_failed", err.Error(), nil)
	case errors.Is(err, assistant.ErrUnavailable):
		return newAPIError(http.StatusServiceUnavailable, "assistant_unavailable", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	if strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") || strings.Contains(lowered, "required") {
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusServiceUnavailable:
		return "assistant_unavailable"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
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
			spec, _ = json.Marshal(api.OpenAPI())
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Focusline API Docs</title>
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

func registerState(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-state",
		Method:      http.MethodGet,
		Path:        "/state",
		Summary:     "Current record and selected view",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body StateResponse `json:"body"`
	}, error) {
		snap := e.Snapshot(ctx)
		return &struct {
			Body StateResponse `json:"body"`
		}{Body: StateResponse{
			View:   string(snap.View),
			Today:  snap.Today,
			Record: recordResponse(snap.Record),
		}}, nil
	})
}

func registerRole(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "set-role",
		Method:      http.MethodPut,
		Path:        "/role",
		Summary:     "Set the user's work role",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body SetRoleRequest `json:"body"`
	}) (*struct {
		Body RecordResponse `json:"body"`
	}, error) {
		rec, err := e.SetRole(ctx, strings.TrimSpace(input.Body.Role))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RecordResponse `json:"body"`
		}{Body: recordResponse(rec)}, nil
	})
}

func registerPriorities(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "set-priorities",
		Method:      http.MethodPut,
		Path:        "/priorities",
		Summary:     "Set this week's priorities",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body SetPrioritiesRequest `json:"body"`
	}) (*struct {
		Body RecordResponse `json:"body"`
	}, error) {
		rec, err := e.SetPriorities(ctx, input.Body.Priorities)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RecordResponse `json:"body"`
		}{Body: recordResponse(rec)}, nil
	})
}

func registerSteps(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "generate-steps",
		Method:      http.MethodPost,
		Path:        "/priorities/{priority_id}/steps",
		Summary:     "Generate actionable steps for a priority",
		Errors: []int{
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		PriorityID string `path:"priority_id"`
	}) (*struct {
		Body PriorityResponse `json:"body"`
	}, error) {
		p, err := e.GenerateSteps(ctx, input.PriorityID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PriorityResponse `json:"body"`
		}{Body: priorityResponse(p)}, nil
	})
}

func registerToggles(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "toggle-priority",
		Method:      http.MethodPost,
		Path:        "/priorities/{priority_id}/toggle",
		Summary:     "Toggle a priority's completion",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		PriorityID string `path:"priority_id"`
	}) (*struct {
		Body RecordResponse `json:"body"`
	}, error) {
		if e.Load(ctx).FindPriority(input.PriorityID) == nil {
			return nil, newAPIError(http.StatusNotFound, "not_found", "priority not found", nil)
		}
		rec := e.TogglePriority(ctx, input.PriorityID)
		return &struct {
			Body RecordResponse `json:"body"`
		}{Body: recordResponse(rec)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-step",
		Method:      http.MethodPost,
		Path:        "/priorities/{priority_id}/steps/{step_id}/toggle",
		Summary:     "Toggle a step's completion",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		PriorityID string `path:"priority_id"`
		StepID     string `path:"step_id"`
	}) (*struct {
		Body RecordResponse `json:"body"`
	}, error) {
		p := e.Load(ctx).FindPriority(input.PriorityID)
		if p == nil {
			return nil, newAPIError(http.StatusNotFound, "not_found", "priority not found", nil)
		}
		found := false
		for _, s := range p.ActionableSteps {
			if s.ID == input.StepID {
				found = true
				break
			}
		}
		if !found {
			return nil, newAPIError(http.StatusNotFound, "not_found", "step not found", nil)
		}
		rec := e.ToggleStep(ctx, input.PriorityID, input.StepID)
		return &struct {
			Body RecordResponse `json:"body"`
		}{Body: recordResponse(rec)}, nil
	})
}

func registerRetrospective(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "complete-retrospective",
		Method:      http.MethodPost,
		Path:        "/retrospective",
		Summary:     "Complete the weekly retrospective",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		Body RetrospectiveRequest `json:"body"`
	}) (*struct {
		Body RetrospectiveResponse `json:"body"`
	}, error) {
		advice, rec, err := e.CompleteRetrospective(ctx, input.Body.CarryOver, input.Body.Blockages)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RetrospectiveResponse `json:"body"`
		}{Body: RetrospectiveResponse{
			Advice: advice,
			Record: recordResponse(rec),
		}}, nil
	})
}

func registerArchive(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "archive-week",
		Method:      http.MethodPost,
		Path:        "/archive",
		Summary:     "Archive a fully completed week",
		Errors:      []int{http.StatusUnprocessableEntity},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body RecordResponse `json:"body"`
	}, error) {
		rec, err := e.ArchiveWeek(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RecordResponse `json:"body"`
		}{Body: recordResponse(rec)}, nil
	})
}

func registerMotivation(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-motivation",
		Method:      http.MethodGet,
		Path:        "/motivation",
		Summary:     "Motivational feedback on completed work",
		Errors:      []int{http.StatusServiceUnavailable},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body MotivationResponse `json:"body"`
	}, error) {
		msg, err := e.Motivation(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MotivationResponse `json:"body"`
		}{Body: MotivationResponse{Message: msg}}, nil
	})
}

func registerEvents(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Recent weekly-cycle events",
		Errors:      []int{http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Type  string `query:"type"`
		Limit int    `query:"limit" default:"20"`
	}) (*struct {
		Body []EventResponse `json:"body"`
	}, error) {
		items, err := e.Events.Latest(ctx, input.Limit, input.Type)
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]EventResponse, 0, len(items))
		for _, ev := range items {
			out = append(out, eventResponse(ev))
		}
		return &struct {
			Body []EventResponse `json:"body"`
		}{Body: out}, nil
	})
}
