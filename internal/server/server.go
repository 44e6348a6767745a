// Package server exposes the laborline engine over HTTP. Routes are
// registered with huma on a chi router; errors use a {code,message,details}
// envelope.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"laborline/internal/directory"
	"laborline/internal/domain"
	"laborline/internal/engine"
	"laborline/internal/geo"
	"laborline/internal/identity"
	"laborline/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine    *engine.Engine
	Identity  *identity.Service
	Directory *directory.Service
	BasePath  string
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"conflict"`
	Message string         `json:"message" example:"already checked in"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Laborline API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Identity))
	hcfg := huma.DefaultConfig("Laborline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerAuth(group, cfg.Identity)
	registerMe(group, cfg.Engine)
	registerWorkers(group, cfg.Directory)
	registerProjects(group, cfg.Engine)
	registerAssignments(group, cfg.Engine)
	registerSessions(group, cfg.Engine)
	registerGigs(group, cfg.Engine)
	registerEvents(group, cfg.Engine)

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

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	default:
		return "internal_error"
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var ve engine.ValidationError
	if errors.As(err, &ve) {
		return newAPIError(http.StatusBadRequest, "validation_failed", err.Error(), nil)
	}
	var nf engine.NotFoundError
	if errors.As(err, &nf) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), map[string]any{"kind": nf.Kind, "id": nf.ID})
	}
	var pe engine.PermissionError
	if errors.As(err, &pe) {
		return newAPIError(http.StatusForbidden, "forbidden", err.Error(), nil)
	}
	var ce engine.ConflictError
	if errors.As(err, &ce) {
		return newAPIError(http.StatusConflict, "conflict", err.Error(), nil)
	}
	var ae engine.AuthenticationError
	if errors.As(err, &ae) {
		return newAPIError(http.StatusUnauthorized, "invalid_credentials", err.Error(), nil)
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
}

func parseAmount(field, raw string) (decimal.Decimal, huma.StatusError) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, newAPIError(http.StatusBadRequest, "bad_request", field+" must be a decimal amount", nil)
	}
	return d, nil
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

func registerAuth(api huma.API, ids *identity.Service) {
	huma.Register(api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/auth/register",
		Summary:       "Register an actor",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body RegisterRequest `json:"body"`
	}) (*struct {
		Body domain.Actor `json:"body"`
	}, error) {
		a, err := ids.Register(ctx, input.Body.Phone, input.Body.Password,
			domain.Role(input.Body.Role), input.Body.FirstName, input.Body.LastName)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Actor `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Exchange credentials for a token",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body LoginRequest `json:"body"`
	}) (*struct {
		Body TokenResponse `json:"body"`
	}, error) {
		token, a, err := ids.Login(ctx, input.Body.Phone, input.Body.Password)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TokenResponse `json:"body"`
		}{Body: TokenResponse{Token: token, Actor: a}}, nil
	})
}

func registerMe(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current actor",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.Actor `json:"body"`
	}, error) {
		p, authErr := mustPrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.GetActor(ctx, p.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Actor `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-profile",
		Method:      http.MethodPut,
		Path:        "/me/profile",
		Summary:     "Update name and skills",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body UpdateProfileRequest `json:"body"`
	}) (*struct {
		Body domain.Actor `json:"body"`
	}, error) {
		p, authErr := mustPrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.UpdateProfile(ctx, p.ActorID, input.Body.FirstName, input.Body.LastName, input.Body.Skills)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Actor `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-status",
		Method:      http.MethodPut,
		Path:        "/me/status",
		Summary:     "Set availability",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body UpdateStatusRequest `json:"body"`
	}) (*struct {
		Body domain.Actor `json:"body"`
	}, error) {
		p, authErr := mustPrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.UpdateAvailability(ctx, p.ActorID, domain.Availability(input.Body.Status))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Actor `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-position",
		Method:      http.MethodPut,
		Path:        "/me/position",
		Summary:     "Report current position",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body geo.Position `json:"body"`
	}) (*struct {
		Body domain.Actor `json:"body"`
	}, error) {
		p, authErr := mustPrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.UpdatePosition(ctx, p.ActorID, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Actor `json:"body"`
		}{Body: a}, nil
	})
}

func registerWorkers(api huma.API, dir *directory.Service) {
	huma.Register(api, huma.Operation{
		OperationID: "find-workers",
		Method:      http.MethodGet,
		Path:        "/workers",
		Summary:     "Available workers by skill",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Skill string `query:"skill"`
	}) (*struct {
		Body []domain.Actor `json:"body"`
	}, error) {
		items, err := dir.FindBySkill(ctx, input.Skill)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Actor `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "find-workers-nearby",
		Method:      http.MethodGet,
		Path:        "/workers/nearby",
		Summary:     "Available workers near a point",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Lat   float64 `query:"lat"`
		Lon   float64 `query:"lon"`
		Skill string  `query:"skill"`
	}) (*struct {
		Body []directory.NearbyWorker `json:"body"`
	}, error) {
		items, err := dir.FindNearby(ctx, geo.Position{Lat: input.Lat, Lon: input.Lon}, input.Skill)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []directory.NearbyWorker `json:"body"`
		}{Body: items}, nil
	})
}

func registerProjects(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create project",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body CreateProjectRequest `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		p, authErr := mustPrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		project, err := e.CreateProject(ctx, p.ActorID, input.Body.Name, input.Body.Address, input.Body.Position)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: project}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List own projects",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Project `json:"body"`
	}, error) {
		p, authErr := mustPrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListProjects(ctx, p.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Project `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}",
		Summary:     "Get project",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		project, err := e.GetProject(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: project}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-project-sessions",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/sessions",
		Summary:     "Work sessions at a project",
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body []domain.WorkSession `json:"body"`
	}, error) {
		items, err := e.ListProjectSessions(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.WorkSession `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-project-assignments",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/assignments",
		Summary:     "Assignments at a project",
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body []domain.Assignment `json:"body"`
	}, error) {
		items, err := e.ListProjectAssignments(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Assignment `json:"body"`
		}{Body: items}, nil
	})
}

func registerAssignments(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-assignment",
		Method:        http.MethodPost,
		Path:          "/assignments",
		Summary:       "Assign a laborer to a project",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateAssignmentRequest `json:"body"`
	}) (*struct {
		Body domain.Assignment `json:"body"`
	}, error) {
		p, authErr := mustPrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rate, perr := parseAmount("wage_rate", input.Body.WageRate)
		if perr != nil {
			return nil, perr
		}
		a, err := e.CreateAssignment(ctx, p.ActorID, input.Body.ProjectID, input.Body.LaborerID,
			rate, domain.WageType(input.Body.WageType))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Assignment `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "resolve-assignment",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/assignments/{laborer_id}",
		Summary:     "Resolve the wage contract for a laborer at a project",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		LaborerID string `path:"laborer_id"`
	}) (*struct {
		Body domain.Assignment `json:"body"`
	}, error) {
		a, err := e.ResolveAssignment(ctx, input.LaborerID, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Assignment `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-my-assignments",
		Method:      http.MethodGet,
		Path:        "/me/assignments",
		Summary:     "Assignments for the current laborer",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Assignment `json:"body"`
	}, error) {
		p, authErr := mustPrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListLaborerAssignments(ctx, p.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Assignment `json:"body"`
		}{Body: items}, nil
	})
}

func registerSessions(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "check-in",
		Method:        http.MethodPost,
		Path:          "/sessions/checkin",
		Summary:       "Check in at a worksite",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		Body CheckInRequest `json:"body"`
	}) (*struct {
		Body domain.WorkSession `json:"body"`
	}, error) {
		p, authErr := mustPrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		w, err := e.CheckIn(ctx, p.ActorID, input.Body.ProjectID, input.Body.Position)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.WorkSession `json:"body"`
		}{Body: w}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "check-out",
		Method:      http.MethodPost,
		Path:        "/sessions/checkout",
		Summary:     "Check out and settle the wage",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.WorkSession `json:"body"`
	}, error) {
		p, authErr := mustPrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		w, err := e.CheckOut(ctx, p.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.WorkSession `json:"body"`
		}{Body: w}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "approve-session",
		Method:      http.MethodPost,
		Path:        "/sessions/{session_id}/approve",
		Summary:     "Approve a settled session",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
	}) (*struct {
		Body domain.WorkSession `json:"body"`
	}, error) {
		p, authErr := mustPrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		w, err := e.ApproveSession(ctx, p.ActorID, input.SessionID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.WorkSession `json:"body"`
		}{Body: w}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-my-sessions",
		Method:      http.MethodGet,
		Path:        "/me/sessions",
		Summary:     "Work sessions for the current laborer",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.WorkSession `json:"body"`
	}, error) {
		p, authErr := mustPrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListLaborerSessions(ctx, p.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.WorkSession `json:"body"`
		}{Body: items}, nil
	})
}

func registerGigs(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "request-gig",
		Method:        http.MethodPost,
		Path:          "/gigs",
		Summary:       "Request a gig from a laborer",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		Body RequestGigRequest `json:"body"`
	}) (*struct {
		Body domain.Gig `json:"body"`
	}, error) {
		p, authErr := mustPrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		g, err := e.RequestGig(ctx, p.ActorID, input.Body.LaborerID, input.Body.Skill,
			input.Body.Position, input.Body.Address)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Gig `json:"body"`
		}{Body: g}, nil
	})

	type gigPath struct {
		GigID string `path:"gig_id"`
	}
	lifecycleErrors := []int{http.StatusForbidden, http.StatusNotFound, http.StatusConflict}

	huma.Register(api, huma.Operation{
		OperationID: "accept-gig",
		Method:      http.MethodPost,
		Path:        "/gigs/{gig_id}/accept",
		Summary:     "Accept a requested gig",
		Errors:      lifecycleErrors,
	}, func(ctx context.Context, input *gigPath) (*struct {
		Body domain.Gig `json:"body"`
	}, error) {
		p, authErr := mustPrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		g, err := e.AcceptGig(ctx, p.ActorID, input.GigID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Gig `json:"body"`
		}{Body: g}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "start-gig-work",
		Method:      http.MethodPost,
		Path:        "/gigs/{gig_id}/start",
		Summary:     "Start work on an accepted gig",
		Errors:      lifecycleErrors,
	}, func(ctx context.Context, input *gigPath) (*struct {
		Body domain.Gig `json:"body"`
	}, error) {
		p, authErr := mustPrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		g, err := e.StartWork(ctx, p.ActorID, input.GigID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Gig `json:"body"`
		}{Body: g}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "invoice-gig",
		Method:      http.MethodPost,
		Path:        "/gigs/{gig_id}/invoice",
		Summary:     "Complete work and fix the bill",
		Errors:      append([]int{http.StatusBadRequest}, lifecycleErrors...),
	}, func(ctx context.Context, input *struct {
		GigID string            `path:"gig_id"`
		Body  InvoiceGigRequest `json:"body"`
	}) (*struct {
		Body domain.Gig `json:"body"`
	}, error) {
		p, authErr := mustPrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		additional := decimal.Zero
		if strings.TrimSpace(input.Body.AdditionalAmount) != "" {
			var perr huma.StatusError
			additional, perr = parseAmount("additional_amount", input.Body.AdditionalAmount)
			if perr != nil {
				return nil, perr
			}
		}
		g, err := e.CompleteAndInvoice(ctx, p.ActorID, input.GigID, additional)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Gig `json:"body"`
		}{Body: g}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "pay-gig",
		Method:      http.MethodPost,
		Path:        "/gigs/{gig_id}/pay",
		Summary:     "Record payment for an invoiced gig",
		Errors:      append([]int{http.StatusBadRequest}, lifecycleErrors...),
	}, func(ctx context.Context, input *struct {
		GigID string        `path:"gig_id"`
		Body  PayGigRequest `json:"body"`
	}) (*struct {
		Body domain.Gig `json:"body"`
	}, error) {
		p, authErr := mustPrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		g, err := e.MarkPaid(ctx, p.ActorID, input.GigID, domain.PaymentMethod(input.Body.Method))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Gig `json:"body"`
		}{Body: g}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "rate-gig",
		Method:      http.MethodPost,
		Path:        "/gigs/{gig_id}/rate",
		Summary:     "Rate a completed gig",
		Errors:      append([]int{http.StatusBadRequest}, lifecycleErrors...),
	}, func(ctx context.Context, input *struct {
		GigID string         `path:"gig_id"`
		Body  RateGigRequest `json:"body"`
	}) (*struct {
		Body domain.Gig `json:"body"`
	}, error) {
		p, authErr := mustPrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		g, err := e.RateGig(ctx, p.ActorID, input.GigID, input.Body.Rating)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Gig `json:"body"`
		}{Body: g}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-gig",
		Method:      http.MethodGet,
		Path:        "/gigs/{gig_id}",
		Summary:     "Get gig",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *gigPath) (*struct {
		Body domain.Gig `json:"body"`
	}, error) {
		g, err := e.GetGig(ctx, input.GigID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Gig `json:"body"`
		}{Body: g}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-my-gigs",
		Method:      http.MethodGet,
		Path:        "/me/gigs",
		Summary:     "Gigs for the current actor",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Gig `json:"body"`
	}, error) {
		p, authErr := mustPrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		var items []domain.Gig
		var err error
		if p.Role == domain.RoleConsumer {
			items, err = e.ListConsumerGigs(ctx, p.ActorID)
		} else {
			items, err = e.ListLaborerGigs(ctx, p.ActorID)
		}
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Gig `json:"body"`
		}{Body: items}, nil
	})
}

func registerEvents(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Latest events",
	}, func(ctx context.Context, input *struct {
		EntityID string `query:"entity_id"`
		Limit    int    `query:"limit"`
	}) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		items, err := e.Repo.LatestEvents(ctx, input.EntityID, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: items}, nil
	})
}
