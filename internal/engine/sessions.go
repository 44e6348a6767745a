package engine

import (
	"context"
	"errors"
	"time"

	"laborline/internal/domain"
	"laborline/internal/events"
	"laborline/internal/geo"
	"laborline/internal/repo"

	"github.com/google/uuid"
)

// CheckIn opens a work session for a laborer at a project worksite. The
// reported position must fall inside the worksite geofence. Checks run in a
// fixed order so callers get stable error kinds: open-session conflict
// first, then assignment, then project, then the geofence.
func (e *Engine) CheckIn(ctx context.Context, laborerID, projectID string, pos geo.Position) (domain.WorkSession, error) {
	if err := pos.Validate(); err != nil {
		return domain.WorkSession{}, ValidationError{Msg: err.Error()}
	}

	tx, err := e.begin(ctx)
	if err != nil {
		return domain.WorkSession{}, err
	}
	defer tx.Rollback()

	if _, err := e.Repo.GetOpenSessionTx(ctx, tx, laborerID); err == nil {
		return domain.WorkSession{}, ConflictError{Msg: "already checked in"}
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.WorkSession{}, err
	}
	if _, err := e.Repo.GetAssignmentForTx(ctx, tx, projectID, laborerID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.WorkSession{}, PermissionError{Msg: "laborer is not assigned to this project"}
		}
		return domain.WorkSession{}, err
	}
	project, err := e.Repo.GetProjectTx(ctx, tx, projectID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.WorkSession{}, NotFoundError{Kind: "project", ID: projectID}
		}
		return domain.WorkSession{}, err
	}
	if geo.DistanceMeters(pos, project.Position) > e.Config.Geofence.CheckinRadiusMeters {
		return domain.WorkSession{}, ValidationError{Msg: "not at worksite"}
	}

	w := domain.WorkSession{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		LaborerID: laborerID,
		CheckInAt: e.stamp(),
		Status:    domain.SessionActive,
	}
	if err := e.Repo.InsertSessionTx(ctx, tx, w); err != nil {
		if repo.IsUniqueViolation(err) {
			return domain.WorkSession{}, ConflictError{Msg: "already checked in"}
		}
		return domain.WorkSession{}, err
	}
	err = e.Events.Append(ctx, tx, "session.checkin", "session", w.ID, laborerID, events.EventPayload{
		"project_id": projectID,
	})
	if err != nil {
		return domain.WorkSession{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.WorkSession{}, err
	}
	return w, nil
}

// CheckOut closes the laborer's open session and settles the wage from the
// assignment terms and the elapsed time.
func (e *Engine) CheckOut(ctx context.Context, laborerID string) (domain.WorkSession, error) {
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.WorkSession{}, err
	}
	defer tx.Rollback()

	w, err := e.Repo.GetOpenSessionTx(ctx, tx, laborerID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.WorkSession{}, NotFoundError{Kind: "open session for laborer", ID: laborerID}
		}
		return domain.WorkSession{}, err
	}
	a, err := e.Repo.GetAssignmentForTx(ctx, tx, w.ProjectID, laborerID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.WorkSession{}, ConflictError{Msg: "no wage contract resolves for this session"}
		}
		return domain.WorkSession{}, err
	}
	checkIn, err := time.Parse(time.RFC3339, w.CheckInAt)
	if err != nil {
		return domain.WorkSession{}, err
	}
	now := e.now()
	wage := ComputeWage(a, checkIn, now)
	out := now.Format(time.RFC3339)
	if err := e.Repo.CloseSessionTx(ctx, tx, w.ID, out, wage, domain.SessionPendingApproval); err != nil {
		return domain.WorkSession{}, err
	}
	err = e.Events.Append(ctx, tx, "session.checkout", "session", w.ID, laborerID, events.EventPayload{
		"project_id":  w.ProjectID,
		"wage_earned": wage.String(),
	})
	if err != nil {
		return domain.WorkSession{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.WorkSession{}, err
	}
	w.CheckOutAt = &out
	w.WageEarned = &wage
	w.Status = domain.SessionPendingApproval
	return w, nil
}

// ApproveSession lets the project's contractor sign off a settled session.
func (e *Engine) ApproveSession(ctx context.Context, contractorID, sessionID string) (domain.WorkSession, error) {
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.WorkSession{}, err
	}
	defer tx.Rollback()

	w, err := e.Repo.GetSessionTx(ctx, tx, sessionID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.WorkSession{}, NotFoundError{Kind: "session", ID: sessionID}
		}
		return domain.WorkSession{}, err
	}
	project, err := e.Repo.GetProjectTx(ctx, tx, w.ProjectID)
	if err != nil {
		return domain.WorkSession{}, err
	}
	if project.ContractorID != contractorID {
		return domain.WorkSession{}, PermissionError{Msg: "session belongs to another contractor's project"}
	}
	if w.Status != domain.SessionPendingApproval {
		return domain.WorkSession{}, ConflictError{Msg: "session is not pending approval"}
	}
	if err := e.Repo.UpdateSessionStatusTx(ctx, tx, sessionID, domain.SessionApproved); err != nil {
		return domain.WorkSession{}, err
	}
	err = e.Events.Append(ctx, tx, "session.approved", "session", sessionID, contractorID, events.EventPayload{
		"project_id": w.ProjectID,
	})
	if err != nil {
		return domain.WorkSession{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.WorkSession{}, err
	}
	w.Status = domain.SessionApproved
	return w, nil
}

func (e *Engine) GetSession(ctx context.Context, id string) (domain.WorkSession, error) {
	w, err := e.Repo.GetSession(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return w, NotFoundError{Kind: "session", ID: id}
	}
	return w, err
}

func (e *Engine) ListLaborerSessions(ctx context.Context, laborerID string) ([]domain.WorkSession, error) {
	return e.Repo.ListSessionsByLaborer(ctx, laborerID)
}

func (e *Engine) ListProjectSessions(ctx context.Context, projectID string) ([]domain.WorkSession, error) {
	return e.Repo.ListSessionsByProject(ctx, projectID)
}
