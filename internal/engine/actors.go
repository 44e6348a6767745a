package engine

import (
	"context"
	"errors"
	"strings"

	"laborline/internal/domain"
	"laborline/internal/geo"
	"laborline/internal/repo"
)

func (e *Engine) GetActor(ctx context.Context, id string) (domain.Actor, error) {
	a, err := e.Repo.GetActor(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return a, NotFoundError{Kind: "actor", ID: id}
	}
	return a, err
}

// UpdateProfile replaces the actor's display name and skill tags.
func (e *Engine) UpdateProfile(ctx context.Context, actorID, firstName, lastName string, skills []string) (domain.Actor, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" {
		return domain.Actor{}, ValidationError{Msg: "first name is required"}
	}
	clean := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s != "" {
			clean = append(clean, strings.ToUpper(s))
		}
	}
	err := e.Repo.UpdateActorProfile(ctx, actorID, firstName, lastName, clean)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Actor{}, NotFoundError{Kind: "actor", ID: actorID}
	}
	if err != nil {
		return domain.Actor{}, err
	}
	return e.GetActor(ctx, actorID)
}

// UpdateAvailability sets a laborer's availability flag. ON_CONTRACT is
// managed by the gig lifecycle and cannot be set directly.
func (e *Engine) UpdateAvailability(ctx context.Context, actorID string, status domain.Availability) (domain.Actor, error) {
	switch status {
	case domain.Available, domain.Offline:
	default:
		return domain.Actor{}, ValidationError{Msg: "status must be AVAILABLE or OFFLINE"}
	}
	a, err := e.GetActor(ctx, actorID)
	if err != nil {
		return domain.Actor{}, err
	}
	if a.Role != domain.RoleLabor {
		return domain.Actor{}, PermissionError{Msg: "only laborers have an availability status"}
	}
	if err := e.Repo.UpdateActorStatus(ctx, actorID, status); err != nil {
		return domain.Actor{}, err
	}
	a.Status = status
	return a, nil
}

// UpdatePosition records the actor's last reported location.
func (e *Engine) UpdatePosition(ctx context.Context, actorID string, pos geo.Position) (domain.Actor, error) {
	if err := pos.Validate(); err != nil {
		return domain.Actor{}, ValidationError{Msg: err.Error()}
	}
	err := e.Repo.UpdateActorPosition(ctx, actorID, pos)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Actor{}, NotFoundError{Kind: "actor", ID: actorID}
	}
	if err != nil {
		return domain.Actor{}, err
	}
	return e.GetActor(ctx, actorID)
}
