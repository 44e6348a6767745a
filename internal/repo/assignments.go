package repo

import (
	"context"
	"database/sql"

	"laborline/internal/domain"

	"github.com/shopspring/decimal"
)

const assignmentColumns = `id,project_id,laborer_id,wage_rate,wage_type,created_at`

func scanAssignment(row *sql.Row) (domain.Assignment, error) {
	var a domain.Assignment
	var rate string
	err := row.Scan(&a.ID, &a.ProjectID, &a.LaborerID, &rate, &a.WageType, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	a.WageRate, err = decimal.NewFromString(rate)
	return a, err
}

func (r Repo) InsertAssignmentTx(ctx context.Context, tx *sql.Tx, a domain.Assignment) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO assignments(id,project_id,laborer_id,wage_rate,wage_type,created_at)
VALUES (?,?,?,?,?,?)`,
		a.ID, a.ProjectID, a.LaborerID, a.WageRate.String(), a.WageType, a.CreatedAt)
	return err
}

func (r Repo) GetAssignment(ctx context.Context, id string) (domain.Assignment, error) {
	return scanAssignment(r.DB.QueryRowContext(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id=?`, id))
}

// GetAssignmentForTx resolves the assignment binding a laborer to a project,
// inside the caller's transaction.
func (r Repo) GetAssignmentForTx(ctx context.Context, tx *sql.Tx, projectID, laborerID string) (domain.Assignment, error) {
	return scanAssignment(tx.QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE project_id=? AND laborer_id=?`, projectID, laborerID))
}

func (r Repo) GetAssignmentFor(ctx context.Context, projectID, laborerID string) (domain.Assignment, error) {
	return scanAssignment(r.DB.QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE project_id=? AND laborer_id=?`, projectID, laborerID))
}

func (r Repo) ListAssignmentsByProject(ctx context.Context, projectID string) ([]domain.Assignment, error) {
	return r.listAssignments(ctx, `project_id=?`, projectID)
}

func (r Repo) ListAssignmentsByLaborer(ctx context.Context, laborerID string) ([]domain.Assignment, error) {
	return r.listAssignments(ctx, `laborer_id=?`, laborerID)
}

func (r Repo) listAssignments(ctx context.Context, where string, arg any) ([]domain.Assignment, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE `+where+` ORDER BY created_at ASC`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Assignment
	for rows.Next() {
		var a domain.Assignment
		var rate string
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.LaborerID, &rate, &a.WageType, &a.CreatedAt); err != nil {
			return nil, err
		}
		if a.WageRate, err = decimal.NewFromString(rate); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}
