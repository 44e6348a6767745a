package repo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"laborline/internal/db"
	"laborline/internal/domain"
	"laborline/internal/events"
	"laborline/internal/geo"
	"laborline/internal/migrate"
	"laborline/internal/repo"
)

func newRepo(t *testing.T) repo.Repo {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo.Repo{DB: conn}
}

func stamp() string { return time.Now().UTC().Format(time.RFC3339) }

func seed(t *testing.T, r repo.Repo, role domain.Role) domain.Actor {
	t.Helper()
	a := domain.Actor{
		ID:           uuid.NewString(),
		Phone:        "+91" + uuid.NewString()[:8],
		PasswordHash: "x",
		Role:         role,
		Status:       domain.Available,
		CreatedAt:    stamp(),
	}
	if err := r.InsertActor(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	return a
}

// The partial unique index is the storage-level backstop behind the
// engine's open-session check: a second open session must fail even when
// inserted directly.
func TestOpenSessionIndexBackstop(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	contractor := seed(t, r, domain.RoleContractor)
	laborer := seed(t, r, domain.RoleLabor)
	p := domain.Project{
		ID: uuid.NewString(), ContractorID: contractor.ID, Name: "Tower A",
		Position: geo.Position{Lat: 12.97, Lon: 77.59}, CreatedAt: stamp(),
	}
	if err := r.InsertProject(ctx, p); err != nil {
		t.Fatal(err)
	}

	insert := func() error {
		tx, err := r.DB.BeginTx(ctx, nil)
		if err != nil {
			t.Fatal(err)
		}
		defer tx.Rollback()
		w := domain.WorkSession{
			ID: uuid.NewString(), ProjectID: p.ID, LaborerID: laborer.ID,
			CheckInAt: stamp(), Status: domain.SessionActive,
		}
		if err := r.InsertSessionTx(ctx, tx, w); err != nil {
			return err
		}
		return tx.Commit()
	}
	if err := insert(); err != nil {
		t.Fatalf("first open session: %v", err)
	}
	err := insert()
	if !repo.IsUniqueViolation(err) {
		t.Fatalf("second open session: got %v, want unique violation", err)
	}
}

func TestActiveGigIndexBackstop(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	consumer := seed(t, r, domain.RoleConsumer)
	laborer := seed(t, r, domain.RoleLabor)

	insert := func(consumerID string) error {
		tx, err := r.DB.BeginTx(ctx, nil)
		if err != nil {
			t.Fatal(err)
		}
		defer tx.Rollback()
		g := domain.Gig{
			ID: uuid.NewString(), ConsumerID: consumerID, LaborerID: laborer.ID,
			Status: domain.GigRequested, Skill: "PLUMBING",
			Position: geo.Position{Lat: 12.97, Lon: 77.59}, Address: "x",
			VisitingCharge: decimal.RequireFromString("110.00"),
			PlatformFee:    decimal.RequireFromString("10.00"),
			LaborerPayout:  decimal.RequireFromString("100.00"),
			TotalAmount:    decimal.RequireFromString("110.00"),
			PaymentMethod: domain.PaymentPending,
			CreatedAt:     stamp(),
		}
		if err := r.InsertGigTx(ctx, tx, g); err != nil {
			return err
		}
		return tx.Commit()
	}
	if err := insert(consumer.ID); err != nil {
		t.Fatalf("first gig: %v", err)
	}
	other := seed(t, r, domain.RoleConsumer)
	if err := insert(other.ID); !repo.IsUniqueViolation(err) {
		t.Fatalf("second active gig for laborer: got %v, want unique violation", err)
	}
}

func TestGetActorRoundTrip(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	pos := &geo.Position{Lat: 12.97, Lon: 77.59}
	a := domain.Actor{
		ID: uuid.NewString(), Phone: "9876543210", PasswordHash: "h",
		Role: domain.RoleLabor, FirstName: "Ravi", LastName: "Kumar",
		Status: domain.Available, Position: pos,
		Skills: []string{"plumbing", "electrical"}, CreatedAt: stamp(),
	}
	if err := r.InsertActor(ctx, a); err != nil {
		t.Fatal(err)
	}

	got, err := r.GetActor(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Phone != a.Phone || got.Position == nil || got.Position.Lat != pos.Lat {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	// skills come back uppercased and sorted
	if len(got.Skills) != 2 || got.Skills[0] != "ELECTRICAL" || got.Skills[1] != "PLUMBING" {
		t.Fatalf("skills = %v", got.Skills)
	}

	byPhone, err := r.GetActorByPhone(ctx, "9876543210")
	if err != nil || byPhone.ID != a.ID {
		t.Fatalf("by phone: %v / %+v", err, byPhone)
	}

	if _, err := r.GetActor(ctx, "missing"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("missing actor: %v", err)
	}
}

// An event appended without an entity id is stored with NULL entity_id and
// must still scan on the global stream.
func TestLatestEventsTolerateNullEntity(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	w := events.Writer{DB: r.DB}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()
	if err := w.Append(ctx, tx, "system.migrated", "system", "", "", nil); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	got, err := r.LatestEvents(ctx, "", 10)
	if err != nil {
		t.Fatalf("latest events: %v", err)
	}
	if len(got) != 1 || got[0].Type != "system.migrated" || got[0].EntityID != "" {
		t.Fatalf("events = %+v", got)
	}
}
