package engine

import (
	"context"
	"errors"

	"laborline/internal/domain"
	"laborline/internal/events"
	"laborline/internal/repo"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateAssignment binds a laborer to a contractor's project with agreed
// wage terms. A laborer is assigned to a given project at most once.
func (e *Engine) CreateAssignment(ctx context.Context, contractorID, projectID, laborerID string, rate decimal.Decimal, wageType domain.WageType) (domain.Assignment, error) {
	if !wageType.Valid() {
		return domain.Assignment{}, ValidationError{Msg: "wage type must be DAILY or HOURLY"}
	}
	if rate.IsNegative() || rate.IsZero() {
		return domain.Assignment{}, ValidationError{Msg: "wage rate must be positive"}
	}

	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Assignment{}, err
	}
	defer tx.Rollback()

	project, err := e.Repo.GetProjectTx(ctx, tx, projectID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Assignment{}, NotFoundError{Kind: "project", ID: projectID}
	}
	if err != nil {
		return domain.Assignment{}, err
	}
	if project.ContractorID != contractorID {
		return domain.Assignment{}, PermissionError{Msg: "project belongs to another contractor"}
	}
	laborer, err := e.Repo.GetActorTx(ctx, tx, laborerID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Assignment{}, NotFoundError{Kind: "actor", ID: laborerID}
	}
	if err != nil {
		return domain.Assignment{}, err
	}
	if laborer.Role != domain.RoleLabor {
		return domain.Assignment{}, ValidationError{Msg: "assignee must be a laborer"}
	}
	if _, err := e.Repo.GetAssignmentForTx(ctx, tx, projectID, laborerID); err == nil {
		return domain.Assignment{}, ConflictError{Msg: "laborer is already assigned to this project"}
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.Assignment{}, err
	}

	a := domain.Assignment{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		LaborerID: laborerID,
		WageRate:  rate,
		WageType:  wageType,
		CreatedAt: e.stamp(),
	}
	if err := e.Repo.InsertAssignmentTx(ctx, tx, a); err != nil {
		if repo.IsUniqueViolation(err) {
			return domain.Assignment{}, ConflictError{Msg: "laborer is already assigned to this project"}
		}
		return domain.Assignment{}, err
	}
	err = e.Events.Append(ctx, tx, "assignment.created", "assignment", a.ID, contractorID, events.EventPayload{
		"project_id": projectID,
		"laborer_id": laborerID,
		"wage_type":  string(wageType),
		"wage_rate":  rate.String(),
	})
	if err != nil {
		return domain.Assignment{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Assignment{}, err
	}
	return a, nil
}

func (e *Engine) GetAssignment(ctx context.Context, id string) (domain.Assignment, error) {
	a, err := e.Repo.GetAssignment(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return a, NotFoundError{Kind: "assignment", ID: id}
	}
	return a, err
}

// ResolveAssignment looks up the wage contract binding a laborer to a project.
func (e *Engine) ResolveAssignment(ctx context.Context, laborerID, projectID string) (domain.Assignment, error) {
	a, err := e.Repo.GetAssignmentFor(ctx, projectID, laborerID)
	if errors.Is(err, repo.ErrNotFound) {
		return a, NotFoundError{Kind: "assignment", ID: projectID + "/" + laborerID}
	}
	return a, err
}

func (e *Engine) ListProjectAssignments(ctx context.Context, projectID string) ([]domain.Assignment, error) {
	return e.Repo.ListAssignmentsByProject(ctx, projectID)
}

func (e *Engine) ListLaborerAssignments(ctx context.Context, laborerID string) ([]domain.Assignment, error) {
	return e.Repo.ListAssignmentsByLaborer(ctx, laborerID)
}
