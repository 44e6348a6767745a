package engine

import (
	"context"
	"errors"
	"strings"

	"laborline/internal/domain"
	"laborline/internal/geo"
	"laborline/internal/repo"

	"github.com/google/uuid"
)

// CreateProject registers a worksite owned by a contractor. The worksite
// position anchors the geofence every later check-in is verified against.
func (e *Engine) CreateProject(ctx context.Context, contractorID, name, address string, pos geo.Position) (domain.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Project{}, ValidationError{Msg: "project name is required"}
	}
	if err := pos.Validate(); err != nil {
		return domain.Project{}, ValidationError{Msg: err.Error()}
	}
	owner, err := e.GetActor(ctx, contractorID)
	if err != nil {
		return domain.Project{}, err
	}
	if owner.Role != domain.RoleContractor {
		return domain.Project{}, PermissionError{Msg: "only contractors can create projects"}
	}

	p := domain.Project{
		ID:           uuid.NewString(),
		ContractorID: contractorID,
		Name:         name,
		Address:      strings.TrimSpace(address),
		Position:     pos,
		CreatedAt:    e.stamp(),
	}
	if err := e.Repo.InsertProject(ctx, p); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

func (e *Engine) GetProject(ctx context.Context, id string) (domain.Project, error) {
	p, err := e.Repo.GetProject(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return p, NotFoundError{Kind: "project", ID: id}
	}
	return p, err
}

func (e *Engine) ListProjects(ctx context.Context, contractorID string) ([]domain.Project, error) {
	return e.Repo.ListProjectsByContractor(ctx, contractorID)
}
