package repo

import (
	"context"
	"database/sql"

	"laborline/internal/domain"
)

const projectColumns = `id,contractor_id,name,address,lat,lon,created_at`

func scanProject(row *sql.Row) (domain.Project, error) {
	var p domain.Project
	err := row.Scan(&p.ID, &p.ContractorID, &p.Name, &p.Address, &p.Position.Lat, &p.Position.Lon, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

func (r Repo) InsertProject(ctx context.Context, p domain.Project) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO projects(id,contractor_id,name,address,lat,lon,created_at)
VALUES (?,?,?,?,?,?,?)`,
		p.ID, p.ContractorID, p.Name, p.Address, p.Position.Lat, p.Position.Lon, p.CreatedAt)
	return err
}

func (r Repo) GetProject(ctx context.Context, id string) (domain.Project, error) {
	return scanProject(r.DB.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=?`, id))
}

func (r Repo) GetProjectTx(ctx context.Context, tx *sql.Tx, id string) (domain.Project, error) {
	return scanProject(tx.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=?`, id))
}

func (r Repo) ListProjectsByContractor(ctx context.Context, contractorID string) ([]domain.Project, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE contractor_id=? ORDER BY created_at ASC`, contractorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.ContractorID, &p.Name, &p.Address, &p.Position.Lat, &p.Position.Lon, &p.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}
