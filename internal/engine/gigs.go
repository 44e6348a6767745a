package engine

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"laborline/internal/domain"
	"laborline/internal/events"
	"laborline/internal/geo"
	"laborline/internal/repo"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func (e *Engine) checkNoActiveGig(ctx context.Context, tx *sql.Tx, laborerID, consumerID string) error {
	if _, err := e.Repo.ActiveGigForLaborerTx(ctx, tx, laborerID); err == nil {
		return ConflictError{Msg: "laborer already has an active gig"}
	} else if !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	if _, err := e.Repo.ActiveGigForConsumerTx(ctx, tx, consumerID); err == nil {
		return ConflictError{Msg: "consumer already has an active gig"}
	} else if !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	return nil
}

// RequestGig opens a gig from a consumer to one specific available laborer.
// The price breakdown is fixed at request time from the platform tariff.
func (e *Engine) RequestGig(ctx context.Context, consumerID, laborerID, skill string, pos geo.Position, address string) (domain.Gig, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return domain.Gig{}, ValidationError{Msg: "address is required"}
	}
	if err := pos.Validate(); err != nil {
		return domain.Gig{}, ValidationError{Msg: err.Error()}
	}

	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Gig{}, err
	}
	defer tx.Rollback()

	laborer, err := e.Repo.GetActorTx(ctx, tx, laborerID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Gig{}, NotFoundError{Kind: "actor", ID: laborerID}
		}
		return domain.Gig{}, err
	}
	if laborer.Role != domain.RoleLabor {
		return domain.Gig{}, ValidationError{Msg: "gig target must be a laborer"}
	}
	if laborer.Status != domain.Available {
		return domain.Gig{}, ConflictError{Msg: "laborer is not available"}
	}
	if err := e.checkNoActiveGig(ctx, tx, laborerID, consumerID); err != nil {
		return domain.Gig{}, err
	}

	charge := e.Config.VisitingCharge()
	g := domain.Gig{
		ID:             uuid.NewString(),
		ConsumerID:     consumerID,
		LaborerID:      laborerID,
		Status:         domain.GigRequested,
		Skill:          strings.ToUpper(strings.TrimSpace(skill)),
		Position:       pos,
		Address:        address,
		VisitingCharge: charge,
		PlatformFee:    e.Config.PlatformFee(),
		LaborerPayout:  e.Config.LaborerPayout(),
		TotalAmount:    charge,
		PaymentMethod:  domain.PaymentPending,
		CreatedAt:      e.stamp(),
	}
	if err := e.Repo.InsertGigTx(ctx, tx, g); err != nil {
		if repo.IsUniqueViolation(err) {
			return domain.Gig{}, ConflictError{Msg: "an active gig already exists for this laborer or consumer"}
		}
		return domain.Gig{}, err
	}
	err = e.Events.Append(ctx, tx, "gig.requested", "gig", g.ID, consumerID, events.EventPayload{
		"laborer_id":      laborerID,
		"skill":           g.Skill,
		"visiting_charge": charge.String(),
	})
	if err != nil {
		return domain.Gig{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Gig{}, err
	}
	return g, nil
}

// getGigForLaborerTx loads the gig and verifies the caller is its laborer.
func (e *Engine) getGigForLaborerTx(ctx context.Context, tx *sql.Tx, laborerID, gigID string) (domain.Gig, error) {
	g, err := e.Repo.GetGigTx(ctx, tx, gigID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return g, NotFoundError{Kind: "gig", ID: gigID}
		}
		return g, err
	}
	if g.LaborerID != laborerID {
		return g, PermissionError{Msg: "gig belongs to another laborer"}
	}
	return g, nil
}

// AcceptGig moves a requested gig to ACCEPTED and takes the laborer off the
// discovery surface by flipping their availability to OFFLINE in the same
// transaction.
func (e *Engine) AcceptGig(ctx context.Context, laborerID, gigID string) (domain.Gig, error) {
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Gig{}, err
	}
	defer tx.Rollback()

	g, err := e.getGigForLaborerTx(ctx, tx, laborerID, gigID)
	if err != nil {
		return domain.Gig{}, err
	}
	if g.Status != domain.GigRequested {
		return domain.Gig{}, ConflictError{Msg: "gig is not in REQUESTED state"}
	}
	now := e.stamp()
	if err := e.Repo.UpdateGigStatusTx(ctx, tx, gigID, domain.GigAccepted, "accepted_at", now); err != nil {
		return domain.Gig{}, err
	}
	if err := e.Repo.UpdateActorStatusTx(ctx, tx, laborerID, domain.Offline); err != nil {
		return domain.Gig{}, err
	}
	err = e.Events.Append(ctx, tx, "gig.accepted", "gig", gigID, laborerID, nil)
	if err != nil {
		return domain.Gig{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Gig{}, err
	}
	g.Status = domain.GigAccepted
	g.AcceptedAt = &now
	return g, nil
}

func (e *Engine) StartWork(ctx context.Context, laborerID, gigID string) (domain.Gig, error) {
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Gig{}, err
	}
	defer tx.Rollback()

	g, err := e.getGigForLaborerTx(ctx, tx, laborerID, gigID)
	if err != nil {
		return domain.Gig{}, err
	}
	if g.Status != domain.GigAccepted {
		return domain.Gig{}, ConflictError{Msg: "gig is not in ACCEPTED state"}
	}
	now := e.stamp()
	if err := e.Repo.UpdateGigStatusTx(ctx, tx, gigID, domain.GigInProgress, "work_started_at", now); err != nil {
		return domain.Gig{}, err
	}
	err = e.Events.Append(ctx, tx, "gig.work_started", "gig", gigID, laborerID, nil)
	if err != nil {
		return domain.Gig{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Gig{}, err
	}
	g.Status = domain.GigInProgress
	g.WorkStartedAt = &now
	return g, nil
}

// CompleteAndInvoice closes the work and fixes the bill. The total is the
// visiting charge plus any additional amount agreed on site.
func (e *Engine) CompleteAndInvoice(ctx context.Context, laborerID, gigID string, additional decimal.Decimal) (domain.Gig, error) {
	if additional.IsNegative() {
		return domain.Gig{}, ValidationError{Msg: "additional amount cannot be negative"}
	}

	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Gig{}, err
	}
	defer tx.Rollback()

	g, err := e.getGigForLaborerTx(ctx, tx, laborerID, gigID)
	if err != nil {
		return domain.Gig{}, err
	}
	if g.Status != domain.GigAccepted && g.Status != domain.GigInProgress {
		return domain.Gig{}, ConflictError{Msg: "gig cannot be invoiced in its current state"}
	}
	total := g.VisitingCharge.Add(additional)
	now := e.stamp()
	if err := e.Repo.InvoiceGigTx(ctx, tx, gigID, total, now); err != nil {
		return domain.Gig{}, err
	}
	err = e.Events.Append(ctx, tx, "gig.invoiced", "gig", gigID, laborerID, events.EventPayload{
		"additional_amount": additional.String(),
		"total_amount":      total.String(),
	})
	if err != nil {
		return domain.Gig{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Gig{}, err
	}
	g.Status = domain.GigPendingPayment
	g.TotalAmount = total
	g.CompletedAt = &now
	return g, nil
}

// MarkPaid settles the invoice. Either side of the gig may record the
// payment, cash is handed over in person.
func (e *Engine) MarkPaid(ctx context.Context, actorID, gigID string, method domain.PaymentMethod) (domain.Gig, error) {
	if method != domain.PaymentCash && method != domain.PaymentOnline {
		return domain.Gig{}, ValidationError{Msg: "payment method must be CASH or ONLINE"}
	}

	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Gig{}, err
	}
	defer tx.Rollback()

	g, err := e.Repo.GetGigTx(ctx, tx, gigID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Gig{}, NotFoundError{Kind: "gig", ID: gigID}
		}
		return domain.Gig{}, err
	}
	if actorID != g.ConsumerID && actorID != g.LaborerID {
		return domain.Gig{}, PermissionError{Msg: "only the gig's consumer or laborer can record payment"}
	}
	if g.Status != domain.GigPendingPayment {
		return domain.Gig{}, ConflictError{Msg: "gig is not awaiting payment"}
	}
	now := e.stamp()
	if err := e.Repo.MarkGigPaidTx(ctx, tx, gigID, method, now); err != nil {
		return domain.Gig{}, err
	}
	err = e.Events.Append(ctx, tx, "gig.paid", "gig", gigID, actorID, events.EventPayload{
		"payment_method": string(method),
		"total_amount":   g.TotalAmount.String(),
	})
	if err != nil {
		return domain.Gig{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Gig{}, err
	}
	g.Status = domain.GigCompleted
	g.PaymentMethod = method
	g.PaidAt = &now
	return g, nil
}

// RateGig records the consumer's one-time 1..5 rating of a completed gig.
func (e *Engine) RateGig(ctx context.Context, consumerID, gigID string, rating int) (domain.Gig, error) {
	if rating < 1 || rating > 5 {
		return domain.Gig{}, ValidationError{Msg: "rating must be between 1 and 5"}
	}

	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Gig{}, err
	}
	defer tx.Rollback()

	g, err := e.Repo.GetGigTx(ctx, tx, gigID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Gig{}, NotFoundError{Kind: "gig", ID: gigID}
		}
		return domain.Gig{}, err
	}
	if g.ConsumerID != consumerID {
		return domain.Gig{}, PermissionError{Msg: "only the gig's consumer can rate it"}
	}
	if g.Status != domain.GigCompleted {
		return domain.Gig{}, ConflictError{Msg: "only completed gigs can be rated"}
	}
	if g.Rating != nil {
		return domain.Gig{}, ConflictError{Msg: "gig is already rated"}
	}
	if err := e.Repo.RateGigTx(ctx, tx, gigID, rating); err != nil {
		return domain.Gig{}, err
	}
	err = e.Events.Append(ctx, tx, "gig.rated", "gig", gigID, consumerID, events.EventPayload{
		"rating": rating,
	})
	if err != nil {
		return domain.Gig{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Gig{}, err
	}
	g.Rating = &rating
	return g, nil
}

func (e *Engine) GetGig(ctx context.Context, id string) (domain.Gig, error) {
	g, err := e.Repo.GetGig(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return g, NotFoundError{Kind: "gig", ID: id}
	}
	return g, err
}

func (e *Engine) ListConsumerGigs(ctx context.Context, consumerID string) ([]domain.Gig, error) {
	return e.Repo.ListGigsByConsumer(ctx, consumerID)
}

func (e *Engine) ListLaborerGigs(ctx context.Context, laborerID string) ([]domain.Gig, error) {
	return e.Repo.ListGigsByLaborer(ctx, laborerID)
}
