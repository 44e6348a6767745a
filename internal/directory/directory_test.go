package directory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"laborline/internal/config"
	"laborline/internal/db"
	"laborline/internal/directory"
	"laborline/internal/domain"
	"laborline/internal/geo"
	"laborline/internal/migrate"
	"laborline/internal/repo"
)

func newDirectory(t *testing.T) (*directory.Service, repo.Repo) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	r := repo.Repo{DB: conn}
	return directory.New(r, config.Default()), r
}

func seedLaborer(t *testing.T, r repo.Repo, status domain.Availability, pos *geo.Position, skills ...string) domain.Actor {
	t.Helper()
	a := domain.Actor{
		ID:           uuid.NewString(),
		Phone:        "+91" + uuid.NewString()[:8],
		PasswordHash: "x",
		Role:         domain.RoleLabor,
		FirstName:    "Worker",
		Status:       status,
		Position:     pos,
		Skills:       skills,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	if err := r.InsertActor(context.Background(), a); err != nil {
		t.Fatalf("seed laborer: %v", err)
	}
	return a
}

func TestFindBySkill(t *testing.T) {
	dir, r := newDirectory(t)
	ctx := context.Background()

	plumber := seedLaborer(t, r, domain.Available, nil, "plumbing")
	seedLaborer(t, r, domain.Available, nil, "electrical")
	seedLaborer(t, r, domain.Offline, nil, "plumbing") // not discoverable

	got, err := dir.FindBySkill(ctx, "PLUMBING")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 1 || got[0].ID != plumber.ID {
		t.Fatalf("got %d hits, want just the available plumber", len(got))
	}

	// skill tags match case-insensitively
	got, err = dir.FindBySkill(ctx, "plumbing")
	if err != nil || len(got) != 1 {
		t.Fatalf("lowercase query: %v, %d hits", err, len(got))
	}

	if _, err := dir.FindBySkill(ctx, ""); err == nil {
		t.Fatal("empty skill accepted")
	}
}

func TestFindNearby(t *testing.T) {
	dir, r := newDirectory(t)
	ctx := context.Background()
	center := geo.Position{Lat: 12.9716, Lon: 77.5946}

	near := seedLaborer(t, r, domain.Available, &geo.Position{Lat: center.Lat + 0.002, Lon: center.Lon}, "plumbing")
	nearer := seedLaborer(t, r, domain.Available, &geo.Position{Lat: center.Lat + 0.001, Lon: center.Lon}, "plumbing")
	// ~11 km north, outside the 5 km search radius
	seedLaborer(t, r, domain.Available, &geo.Position{Lat: center.Lat + 0.1, Lon: center.Lon}, "plumbing")
	// no reported position
	seedLaborer(t, r, domain.Available, nil, "plumbing")

	hits, err := dir.FindNearby(ctx, center, "plumbing")
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(hits))
	}
	if hits[0].ID != nearer.ID || hits[1].ID != near.ID {
		t.Fatal("hits not ordered by distance")
	}
	if hits[0].DistanceMeters >= hits[1].DistanceMeters {
		t.Fatalf("distances not ascending: %v %v", hits[0].DistanceMeters, hits[1].DistanceMeters)
	}
}

func TestFindNearbyLimit(t *testing.T) {
	dir, r := newDirectory(t)
	ctx := context.Background()
	center := geo.Position{Lat: 12.9716, Lon: 77.5946}

	for i := 0; i < 15; i++ {
		seedLaborer(t, r, domain.Available, &geo.Position{Lat: center.Lat + float64(i)*0.0001, Lon: center.Lon})
	}
	hits, err := dir.FindNearby(ctx, center, "")
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(hits) != 10 {
		t.Fatalf("hits = %d, want the configured limit of 10", len(hits))
	}
}
