package repo

import (
	"context"
	"database/sql"
	"strings"

	"laborline/internal/domain"

	"github.com/shopspring/decimal"
)

const gigColumns = `id,consumer_id,laborer_id,status,skill,lat,lon,address,
visiting_charge,platform_fee,laborer_payout,total_amount,payment_method,rating,
created_at,accepted_at,work_started_at,completed_at,paid_at`

type gigScanner interface {
	Scan(dest ...any) error
}

func scanGig(row gigScanner) (domain.Gig, error) {
	var g domain.Gig
	var charge, fee, payout, total string
	var rating sql.NullInt64
	var accepted, started, completed, paid sql.NullString
	err := row.Scan(&g.ID, &g.ConsumerID, &g.LaborerID, &g.Status, &g.Skill,
		&g.Position.Lat, &g.Position.Lon, &g.Address,
		&charge, &fee, &payout, &total, &g.PaymentMethod, &rating,
		&g.CreatedAt, &accepted, &started, &completed, &paid)
	if err == sql.ErrNoRows {
		return g, ErrNotFound
	}
	if err != nil {
		return g, err
	}
	if g.VisitingCharge, err = decimal.NewFromString(charge); err != nil {
		return g, err
	}
	if g.PlatformFee, err = decimal.NewFromString(fee); err != nil {
		return g, err
	}
	if g.LaborerPayout, err = decimal.NewFromString(payout); err != nil {
		return g, err
	}
	if g.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return g, err
	}
	if rating.Valid {
		v := int(rating.Int64)
		g.Rating = &v
	}
	g.AcceptedAt = optionalString(accepted)
	g.WorkStartedAt = optionalString(started)
	g.CompletedAt = optionalString(completed)
	g.PaidAt = optionalString(paid)
	return g, nil
}

func (r Repo) InsertGigTx(ctx context.Context, tx *sql.Tx, g domain.Gig) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO gigs(id,consumer_id,laborer_id,status,skill,lat,lon,address,
visiting_charge,platform_fee,laborer_payout,total_amount,payment_method,rating,created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		g.ID, g.ConsumerID, g.LaborerID, g.Status, g.Skill, g.Position.Lat, g.Position.Lon, g.Address,
		g.VisitingCharge.String(), g.PlatformFee.String(), g.LaborerPayout.String(), g.TotalAmount.String(),
		g.PaymentMethod, nil, g.CreatedAt)
	return err
}

func (r Repo) GetGig(ctx context.Context, id string) (domain.Gig, error) {
	return scanGig(r.DB.QueryRowContext(ctx, `SELECT `+gigColumns+` FROM gigs WHERE id=?`, id))
}

func (r Repo) GetGigTx(ctx context.Context, tx *sql.Tx, id string) (domain.Gig, error) {
	return scanGig(tx.QueryRowContext(ctx, `SELECT `+gigColumns+` FROM gigs WHERE id=?`, id))
}

func activeStatusPlaceholders() (string, []any) {
	statuses := domain.ActiveGigStatuses()
	marks := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, s := range statuses {
		marks[i] = "?"
		args[i] = s
	}
	return strings.Join(marks, ","), args
}

// ActiveGigForLaborerTx finds the laborer's gig still in flight, if any.
func (r Repo) ActiveGigForLaborerTx(ctx context.Context, tx *sql.Tx, laborerID string) (domain.Gig, error) {
	marks, args := activeStatusPlaceholders()
	return scanGig(tx.QueryRowContext(ctx,
		`SELECT `+gigColumns+` FROM gigs WHERE laborer_id=? AND status IN (`+marks+`)`,
		append([]any{laborerID}, args...)...))
}

func (r Repo) ActiveGigForConsumerTx(ctx context.Context, tx *sql.Tx, consumerID string) (domain.Gig, error) {
	marks, args := activeStatusPlaceholders()
	return scanGig(tx.QueryRowContext(ctx,
		`SELECT `+gigColumns+` FROM gigs WHERE consumer_id=? AND status IN (`+marks+`)`,
		append([]any{consumerID}, args...)...))
}

func (r Repo) UpdateGigStatusTx(ctx context.Context, tx *sql.Tx, id string, status domain.GigStatus, stampColumn, stamp string) error {
	query := `UPDATE gigs SET status=? WHERE id=?`
	args := []any{status, id}
	if stampColumn != "" {
		query = `UPDATE gigs SET status=?, ` + stampColumn + `=? WHERE id=?`
		args = []any{status, stamp, id}
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InvoiceGigTx(ctx context.Context, tx *sql.Tx, id string, total decimal.Decimal, completedAt string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE gigs SET status=?, total_amount=?, completed_at=? WHERE id=?`,
		domain.GigPendingPayment, total.String(), completedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) MarkGigPaidTx(ctx context.Context, tx *sql.Tx, id string, method domain.PaymentMethod, paidAt string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE gigs SET status=?, payment_method=?, paid_at=? WHERE id=?`,
		domain.GigCompleted, method, paidAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) RateGigTx(ctx context.Context, tx *sql.Tx, id string, rating int) error {
	res, err := tx.ExecContext(ctx, `UPDATE gigs SET rating=? WHERE id=?`, rating, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) ListGigsByConsumer(ctx context.Context, consumerID string) ([]domain.Gig, error) {
	return r.listGigs(ctx, `consumer_id=?`, consumerID)
}

func (r Repo) ListGigsByLaborer(ctx context.Context, laborerID string) ([]domain.Gig, error) {
	return r.listGigs(ctx, `laborer_id=?`, laborerID)
}

func (r Repo) listGigs(ctx context.Context, where string, arg any) ([]domain.Gig, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+gigColumns+` FROM gigs WHERE `+where+` ORDER BY created_at ASC`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Gig
	for rows.Next() {
		g, err := scanGig(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, g)
	}
	return res, rows.Err()
}
