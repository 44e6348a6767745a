package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"laborline/internal/config"
	"laborline/internal/db"
	"laborline/internal/domain"
	"laborline/internal/engine"
	"laborline/internal/geo"
	"laborline/internal/migrate"
)

// Bangalore worksite used by most tests. 0.00135 degrees of latitude is
// about 150 m, 0.00225 about 250 m.
var worksite = geo.Position{Lat: 12.9716, Lon: 77.5946}

type testEnv struct {
	Engine *engine.Engine
	Ctx    context.Context
	Clock  *time.Time
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default())
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	eng.Now = func() time.Time { return now }
	return testEnv{Engine: eng, Ctx: context.Background(), Clock: &now}
}

func (env testEnv) seedActor(t *testing.T, role domain.Role, status domain.Availability) domain.Actor {
	t.Helper()
	a := domain.Actor{
		ID:           uuid.NewString(),
		Phone:        "+91" + uuid.NewString()[:8],
		PasswordHash: "x",
		Role:         role,
		FirstName:    "Test",
		Status:       status,
		CreatedAt:    env.Engine.Now().Format(time.RFC3339),
	}
	if err := env.Engine.Repo.InsertActor(env.Ctx, a); err != nil {
		t.Fatalf("seed actor: %v", err)
	}
	return a
}

func (env testEnv) seedWorksite(t *testing.T) (contractor, laborer domain.Actor, project domain.Project) {
	t.Helper()
	contractor = env.seedActor(t, domain.RoleContractor, domain.Offline)
	laborer = env.seedActor(t, domain.RoleLabor, domain.Available)
	project, err := env.Engine.CreateProject(env.Ctx, contractor.ID, "Tower A", "12 MG Road", worksite)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return contractor, laborer, project
}

func TestCreateAssignment(t *testing.T) {
	env := newTestEnv(t)
	contractor, laborer, project := env.seedWorksite(t)

	a, err := env.Engine.CreateAssignment(env.Ctx, contractor.ID, project.ID, laborer.ID,
		decimal.NewFromInt(800), domain.WageDaily)
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}
	if a.ProjectID != project.ID || a.LaborerID != laborer.ID {
		t.Fatalf("assignment mismatch: %+v", a)
	}

	// same pair again conflicts
	_, err = env.Engine.CreateAssignment(env.Ctx, contractor.ID, project.ID, laborer.ID,
		decimal.NewFromInt(900), domain.WageDaily)
	var ce engine.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected conflict, got %v", err)
	}

	// a stranger cannot assign to someone else's project
	other := env.seedActor(t, domain.RoleContractor, domain.Offline)
	laborer2 := env.seedActor(t, domain.RoleLabor, domain.Available)
	_, err = env.Engine.CreateAssignment(env.Ctx, other.ID, project.ID, laborer2.ID,
		decimal.NewFromInt(800), domain.WageDaily)
	var pe engine.PermissionError
	if !errors.As(err, &pe) {
		t.Fatalf("expected permission error, got %v", err)
	}

	got, err := env.Engine.ResolveAssignment(env.Ctx, laborer.ID, project.ID)
	if err != nil || got.ID != a.ID {
		t.Fatalf("resolve assignment: %v / %+v", err, got)
	}
	var nf engine.NotFoundError
	if _, err := env.Engine.ResolveAssignment(env.Ctx, laborer2.ID, project.ID); !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCheckInGeofence(t *testing.T) {
	env := newTestEnv(t)
	contractor, laborer, project := env.seedWorksite(t)
	if _, err := env.Engine.CreateAssignment(env.Ctx, contractor.ID, project.ID, laborer.ID,
		decimal.NewFromInt(100), domain.WageHourly); err != nil {
		t.Fatal(err)
	}

	// 250 m away: rejected
	far := geo.Position{Lat: worksite.Lat + 0.00225, Lon: worksite.Lon}
	_, err := env.Engine.CheckIn(env.Ctx, laborer.ID, project.ID, far)
	var ve engine.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error at 250m, got %v", err)
	}

	// 150 m away: accepted
	near := geo.Position{Lat: worksite.Lat + 0.00135, Lon: worksite.Lon}
	w, err := env.Engine.CheckIn(env.Ctx, laborer.ID, project.ID, near)
	if err != nil {
		t.Fatalf("check in at 150m: %v", err)
	}
	if w.Status != domain.SessionActive || !w.Open() {
		t.Fatalf("unexpected session: %+v", w)
	}
}

func TestCheckInOrdering(t *testing.T) {
	env := newTestEnv(t)
	contractor, laborer, project := env.seedWorksite(t)

	// no assignment: permission error, even from far away
	far := geo.Position{Lat: 0, Lon: 0}
	_, err := env.Engine.CheckIn(env.Ctx, laborer.ID, project.ID, far)
	var pe engine.PermissionError
	if !errors.As(err, &pe) {
		t.Fatalf("expected permission error, got %v", err)
	}

	if _, err := env.Engine.CreateAssignment(env.Ctx, contractor.ID, project.ID, laborer.ID,
		decimal.NewFromInt(100), domain.WageHourly); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.CheckIn(env.Ctx, laborer.ID, project.ID, worksite); err != nil {
		t.Fatalf("check in: %v", err)
	}

	// an open session blocks any further check-in before other checks run
	_, err = env.Engine.CheckIn(env.Ctx, laborer.ID, "no-such-project", worksite)
	var ce engine.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected conflict for open session, got %v", err)
	}
}

func TestCheckOutSettlesHourlyWage(t *testing.T) {
	env := newTestEnv(t)
	contractor, laborer, project := env.seedWorksite(t)
	if _, err := env.Engine.CreateAssignment(env.Ctx, contractor.ID, project.ID, laborer.ID,
		decimal.NewFromInt(100), domain.WageHourly); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.CheckIn(env.Ctx, laborer.ID, project.ID, worksite); err != nil {
		t.Fatal(err)
	}

	*env.Clock = env.Clock.Add(30 * time.Minute)
	w, err := env.Engine.CheckOut(env.Ctx, laborer.ID)
	if err != nil {
		t.Fatalf("check out: %v", err)
	}
	if w.Status != domain.SessionPendingApproval {
		t.Fatalf("status = %s, want PENDING_APPROVAL", w.Status)
	}
	if w.WageEarned == nil || !w.WageEarned.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("wage = %v, want 50", w.WageEarned)
	}

	// nothing open anymore
	_, err = env.Engine.CheckOut(env.Ctx, laborer.ID)
	var nf engine.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestApproveSession(t *testing.T) {
	env := newTestEnv(t)
	contractor, laborer, project := env.seedWorksite(t)
	if _, err := env.Engine.CreateAssignment(env.Ctx, contractor.ID, project.ID, laborer.ID,
		decimal.NewFromInt(800), domain.WageDaily); err != nil {
		t.Fatal(err)
	}
	w, err := env.Engine.CheckIn(env.Ctx, laborer.ID, project.ID, worksite)
	if err != nil {
		t.Fatal(err)
	}

	// active session cannot be approved
	_, err = env.Engine.ApproveSession(env.Ctx, contractor.ID, w.ID)
	var ce engine.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected conflict for active session, got %v", err)
	}

	*env.Clock = env.Clock.Add(8 * time.Hour)
	if _, err := env.Engine.CheckOut(env.Ctx, laborer.ID); err != nil {
		t.Fatal(err)
	}

	// wrong contractor
	other := env.seedActor(t, domain.RoleContractor, domain.Offline)
	_, err = env.Engine.ApproveSession(env.Ctx, other.ID, w.ID)
	var pe engine.PermissionError
	if !errors.As(err, &pe) {
		t.Fatalf("expected permission error, got %v", err)
	}

	got, err := env.Engine.ApproveSession(env.Ctx, contractor.ID, w.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got.Status != domain.SessionApproved {
		t.Fatalf("status = %s, want APPROVED", got.Status)
	}
	if got.WageEarned == nil || !got.WageEarned.Equal(decimal.NewFromInt(800)) {
		t.Fatalf("daily wage = %v, want 800", got.WageEarned)
	}
}

func TestGigLifecycle(t *testing.T) {
	env := newTestEnv(t)
	consumer := env.seedActor(t, domain.RoleConsumer, domain.Offline)
	laborer := env.seedActor(t, domain.RoleLabor, domain.Available)

	g, err := env.Engine.RequestGig(env.Ctx, consumer.ID, laborer.ID, "plumbing", worksite, "44 Residency Road")
	if err != nil {
		t.Fatalf("request gig: %v", err)
	}
	if g.Status != domain.GigRequested {
		t.Fatalf("status = %s, want REQUESTED", g.Status)
	}
	if !g.TotalAmount.Equal(decimal.RequireFromString("110.00")) {
		t.Fatalf("total = %s, want 110.00", g.TotalAmount)
	}
	if g.PaymentMethod != domain.PaymentPending {
		t.Fatalf("payment method = %s, want PENDING", g.PaymentMethod)
	}

	g, err = env.Engine.AcceptGig(env.Ctx, laborer.ID, g.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if g.Status != domain.GigAccepted || g.AcceptedAt == nil {
		t.Fatalf("unexpected gig after accept: %+v", g)
	}
	// accepting takes the laborer off discovery
	a, err := env.Engine.GetActor(env.Ctx, laborer.ID)
	if err != nil {
		t.Fatal(err)
	}
	if a.Status != domain.Offline {
		t.Fatalf("laborer status = %s, want OFFLINE", a.Status)
	}

	g, err = env.Engine.StartWork(env.Ctx, laborer.ID, g.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if g.Status != domain.GigInProgress || g.WorkStartedAt == nil {
		t.Fatalf("unexpected gig after start: %+v", g)
	}

	g, err = env.Engine.CompleteAndInvoice(env.Ctx, laborer.ID, g.ID, decimal.RequireFromString("25.00"))
	if err != nil {
		t.Fatalf("invoice: %v", err)
	}
	if g.Status != domain.GigPendingPayment {
		t.Fatalf("status = %s, want PENDING_PAYMENT", g.Status)
	}
	if !g.TotalAmount.Equal(decimal.RequireFromString("135.00")) {
		t.Fatalf("total = %s, want 135.00", g.TotalAmount)
	}

	g, err = env.Engine.MarkPaid(env.Ctx, consumer.ID, g.ID, domain.PaymentCash)
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if g.Status != domain.GigCompleted || g.PaidAt == nil || g.PaymentMethod != domain.PaymentCash {
		t.Fatalf("unexpected gig after pay: %+v", g)
	}

	g, err = env.Engine.RateGig(env.Ctx, consumer.ID, g.ID, 4)
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if g.Rating == nil || *g.Rating != 4 {
		t.Fatalf("rating = %v, want 4", g.Rating)
	}
	// the rating lives on the gig; the laborer's profile is untouched
	a, err = env.Engine.GetActor(env.Ctx, laborer.ID)
	if err != nil {
		t.Fatal(err)
	}
	if a.Rating != nil {
		t.Fatalf("laborer rating = %v, want unset", *a.Rating)
	}

	// rating twice conflicts
	_, err = env.Engine.RateGig(env.Ctx, consumer.ID, g.ID, 5)
	var ce engine.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected conflict on second rating, got %v", err)
	}
}

func TestAcceptGigTwiceFails(t *testing.T) {
	env := newTestEnv(t)
	consumer := env.seedActor(t, domain.RoleConsumer, domain.Offline)
	laborer := env.seedActor(t, domain.RoleLabor, domain.Available)
	g, err := env.Engine.RequestGig(env.Ctx, consumer.ID, laborer.ID, "electrical", worksite, "9 Brigade Road")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.AcceptGig(env.Ctx, laborer.ID, g.ID); err != nil {
		t.Fatal(err)
	}

	_, err = env.Engine.AcceptGig(env.Ctx, laborer.ID, g.ID)
	var ce engine.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected conflict, got %v", err)
	}
	// the failed call mutated nothing
	got, err := env.Engine.GetGig(env.Ctx, g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.GigAccepted {
		t.Fatalf("status = %s, want ACCEPTED", got.Status)
	}
}

func TestSingleActiveGigInvariant(t *testing.T) {
	env := newTestEnv(t)
	consumer := env.seedActor(t, domain.RoleConsumer, domain.Offline)
	laborer := env.seedActor(t, domain.RoleLabor, domain.Available)
	laborer2 := env.seedActor(t, domain.RoleLabor, domain.Available)
	consumer2 := env.seedActor(t, domain.RoleConsumer, domain.Offline)

	if _, err := env.Engine.RequestGig(env.Ctx, consumer.ID, laborer.ID, "plumbing", worksite, "44 Residency Road"); err != nil {
		t.Fatal(err)
	}

	// the laborer is tied up
	_, err := env.Engine.RequestGig(env.Ctx, consumer2.ID, laborer.ID, "plumbing", worksite, "9 Brigade Road")
	var ce engine.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected conflict for busy laborer, got %v", err)
	}

	// the consumer is tied up too
	_, err = env.Engine.RequestGig(env.Ctx, consumer.ID, laborer2.ID, "plumbing", worksite, "44 Residency Road")
	if !errors.As(err, &ce) {
		t.Fatalf("expected conflict for busy consumer, got %v", err)
	}
}

func TestConcurrentRequestGig(t *testing.T) {
	env := newTestEnv(t)
	laborer := env.seedActor(t, domain.RoleLabor, domain.Available)
	consumer := env.seedActor(t, domain.RoleConsumer, domain.Offline)
	consumer2 := env.seedActor(t, domain.RoleConsumer, domain.Offline)

	// two consumers race for the same laborer; exactly one wins
	errs := make(chan error, 2)
	for _, id := range []string{consumer.ID, consumer2.ID} {
		go func(consumerID string) {
			_, err := env.Engine.RequestGig(env.Ctx, consumerID, laborer.ID, "plumbing", worksite, "44 Residency Road")
			errs <- err
		}(id)
	}

	var ok, conflicts int
	for i := 0; i < 2; i++ {
		err := <-errs
		var ce engine.ConflictError
		switch {
		case err == nil:
			ok++
		case errors.As(err, &ce):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != 1 {
		t.Fatalf("got %d successes and %d conflicts, want 1 and 1", ok, conflicts)
	}
}

func TestRequestGigRequiresAvailableLaborer(t *testing.T) {
	env := newTestEnv(t)
	consumer := env.seedActor(t, domain.RoleConsumer, domain.Offline)
	laborer := env.seedActor(t, domain.RoleLabor, domain.Offline)

	_, err := env.Engine.RequestGig(env.Ctx, consumer.ID, laborer.ID, "plumbing", worksite, "44 Residency Road")
	var ce engine.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected conflict, got %v", err)
	}

	_, err = env.Engine.RequestGig(env.Ctx, consumer.ID, laborer.ID, "plumbing", worksite, "")
	var ve engine.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error for empty address, got %v", err)
	}
}

func TestInvoiceRejectsNegativeAmount(t *testing.T) {
	env := newTestEnv(t)
	consumer := env.seedActor(t, domain.RoleConsumer, domain.Offline)
	laborer := env.seedActor(t, domain.RoleLabor, domain.Available)
	g, err := env.Engine.RequestGig(env.Ctx, consumer.ID, laborer.ID, "painting", worksite, "1 Church Street")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.AcceptGig(env.Ctx, laborer.ID, g.ID); err != nil {
		t.Fatal(err)
	}

	_, err = env.Engine.CompleteAndInvoice(env.Ctx, laborer.ID, g.ID, decimal.RequireFromString("-1"))
	var ve engine.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}

	// ACCEPTED can be invoiced directly, skipping IN_PROGRESS
	g, err = env.Engine.CompleteAndInvoice(env.Ctx, laborer.ID, g.ID, decimal.Zero)
	if err != nil {
		t.Fatalf("invoice from ACCEPTED: %v", err)
	}
	if !g.TotalAmount.Equal(decimal.RequireFromString("110.00")) {
		t.Fatalf("total = %s, want 110.00", g.TotalAmount)
	}
}

func TestMarkPaidPermissions(t *testing.T) {
	env := newTestEnv(t)
	consumer := env.seedActor(t, domain.RoleConsumer, domain.Offline)
	laborer := env.seedActor(t, domain.RoleLabor, domain.Available)
	stranger := env.seedActor(t, domain.RoleConsumer, domain.Offline)

	g, err := env.Engine.RequestGig(env.Ctx, consumer.ID, laborer.ID, "plumbing", worksite, "44 Residency Road")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.AcceptGig(env.Ctx, laborer.ID, g.ID); err != nil {
		t.Fatal(err)
	}

	// cannot pay before the invoice
	_, err = env.Engine.MarkPaid(env.Ctx, consumer.ID, g.ID, domain.PaymentCash)
	var ce engine.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected conflict, got %v", err)
	}

	if _, err := env.Engine.CompleteAndInvoice(env.Ctx, laborer.ID, g.ID, decimal.Zero); err != nil {
		t.Fatal(err)
	}
	_, err = env.Engine.MarkPaid(env.Ctx, stranger.ID, g.ID, domain.PaymentCash)
	var pe engine.PermissionError
	if !errors.As(err, &pe) {
		t.Fatalf("expected permission error, got %v", err)
	}
	if _, err := env.Engine.MarkPaid(env.Ctx, laborer.ID, g.ID, domain.PaymentOnline); err != nil {
		t.Fatalf("laborer records payment: %v", err)
	}
}

func TestEventsAppendedOnLifecycle(t *testing.T) {
	env := newTestEnv(t)
	consumer := env.seedActor(t, domain.RoleConsumer, domain.Offline)
	laborer := env.seedActor(t, domain.RoleLabor, domain.Available)
	g, err := env.Engine.RequestGig(env.Ctx, consumer.ID, laborer.ID, "plumbing", worksite, "44 Residency Road")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.AcceptGig(env.Ctx, laborer.ID, g.ID); err != nil {
		t.Fatal(err)
	}

	events, err := env.Engine.Repo.LatestEvents(env.Ctx, g.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Type != "gig.accepted" || events[1].Type != "gig.requested" {
		t.Fatalf("unexpected event order: %s, %s", events[0].Type, events[1].Type)
	}
}
