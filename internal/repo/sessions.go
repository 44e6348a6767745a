package repo

import (
	"context"
	"database/sql"

	"laborline/internal/domain"

	"github.com/shopspring/decimal"
)

const sessionColumns = `id,project_id,laborer_id,check_in_at,check_out_at,wage_earned,status`

func scanSession(row *sql.Row) (domain.WorkSession, error) {
	var w domain.WorkSession
	var out, wage sql.NullString
	err := row.Scan(&w.ID, &w.ProjectID, &w.LaborerID, &w.CheckInAt, &out, &wage, &w.Status)
	if err == sql.ErrNoRows {
		return w, ErrNotFound
	}
	if err != nil {
		return w, err
	}
	w.CheckOutAt = optionalString(out)
	if wage.Valid {
		d, err := decimal.NewFromString(wage.String)
		if err != nil {
			return w, err
		}
		w.WageEarned = &d
	}
	return w, nil
}

func (r Repo) InsertSessionTx(ctx context.Context, tx *sql.Tx, w domain.WorkSession) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO work_sessions(id,project_id,laborer_id,check_in_at,check_out_at,wage_earned,status)
VALUES (?,?,?,?,?,?,?)`,
		w.ID, w.ProjectID, w.LaborerID, w.CheckInAt, nullableStringPtr(w.CheckOutAt), nil, w.Status)
	return err
}

func (r Repo) GetSession(ctx context.Context, id string) (domain.WorkSession, error) {
	return scanSession(r.DB.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM work_sessions WHERE id=?`, id))
}

func (r Repo) GetSessionTx(ctx context.Context, tx *sql.Tx, id string) (domain.WorkSession, error) {
	return scanSession(tx.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM work_sessions WHERE id=?`, id))
}

// GetOpenSessionTx returns the laborer's open session if one exists. At most
// one can exist, the partial unique index guarantees it.
func (r Repo) GetOpenSessionTx(ctx context.Context, tx *sql.Tx, laborerID string) (domain.WorkSession, error) {
	return scanSession(tx.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM work_sessions WHERE laborer_id=? AND check_out_at IS NULL`, laborerID))
}

func (r Repo) CloseSessionTx(ctx context.Context, tx *sql.Tx, id, checkOutAt string, wage decimal.Decimal, status domain.SessionStatus) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE work_sessions SET check_out_at=?, wage_earned=?, status=? WHERE id=? AND check_out_at IS NULL`,
		checkOutAt, wage.String(), status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) UpdateSessionStatusTx(ctx context.Context, tx *sql.Tx, id string, status domain.SessionStatus) error {
	res, err := tx.ExecContext(ctx, `UPDATE work_sessions SET status=? WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) ListSessionsByLaborer(ctx context.Context, laborerID string) ([]domain.WorkSession, error) {
	return r.listSessions(ctx, `laborer_id=?`, laborerID)
}

func (r Repo) ListSessionsByProject(ctx context.Context, projectID string) ([]domain.WorkSession, error) {
	return r.listSessions(ctx, `project_id=?`, projectID)
}

func (r Repo) listSessions(ctx context.Context, where string, arg any) ([]domain.WorkSession, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM work_sessions WHERE `+where+` ORDER BY check_in_at ASC`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.WorkSession
	for rows.Next() {
		var w domain.WorkSession
		var out, wage sql.NullString
		if err := rows.Scan(&w.ID, &w.ProjectID, &w.LaborerID, &w.CheckInAt, &out, &wage, &w.Status); err != nil {
			return nil, err
		}
		w.CheckOutAt = optionalString(out)
		if wage.Valid {
			d, err := decimal.NewFromString(wage.String)
			if err != nil {
				return nil, err
			}
			w.WageEarned = &d
		}
		res = append(res, w)
	}
	return res, rows.Err()
}
