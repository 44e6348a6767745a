// Package directory is the worker discovery surface: skill lookup and
// geographic nearby search over laborers.
package directory

import (
	"context"
	"sort"

	"laborline/internal/config"
	"laborline/internal/domain"
	"laborline/internal/engine"
	"laborline/internal/geo"
	"laborline/internal/repo"
)

type Service struct {
	Repo   repo.Repo
	Config *config.Config
}

func New(r repo.Repo, cfg *config.Config) *Service {
	return &Service{Repo: r, Config: cfg}
}

// NearbyWorker is a search hit with the exact distance to the query point.
type NearbyWorker struct {
	domain.Actor
	DistanceMeters float64 `json:"distance_meters"`
}

// FindBySkill lists available laborers carrying the given skill tag.
func (s *Service) FindBySkill(ctx context.Context, skill string) ([]domain.Actor, error) {
	if skill == "" {
		return nil, engine.ValidationError{Msg: "skill is required"}
	}
	return s.Repo.FindWorkers(ctx, repo.WorkerFilters{Skill: skill, AvailableOnly: true})
}

// FindNearby ranks available laborers by distance from the query point. The
// store prefilters with a degree bounding box; exact great-circle distance
// decides membership and order.
func (s *Service) FindNearby(ctx context.Context, center geo.Position, skill string) ([]NearbyWorker, error) {
	if err := center.Validate(); err != nil {
		return nil, engine.ValidationError{Msg: err.Error()}
	}
	radius := s.Config.Search.NearbyRadiusMeters
	minLat, maxLat, minLon, maxLon := geo.BoundingBox(center, radius)
	candidates, err := s.Repo.FindWorkers(ctx, repo.WorkerFilters{
		Skill:         skill,
		AvailableOnly: true,
		UseBox:        true,
		MinLat:        minLat,
		MaxLat:        maxLat,
		MinLon:        minLon,
		MaxLon:        maxLon,
	})
	if err != nil {
		return nil, err
	}
	hits := make([]NearbyWorker, 0, len(candidates))
	for _, a := range candidates {
		d := geo.DistanceMeters(center, *a.Position)
		if d <= radius {
			hits = append(hits, NearbyWorker{Actor: a, DistanceMeters: d})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].DistanceMeters < hits[j].DistanceMeters })
	if limit := s.Config.Search.NearbyLimit; len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}
