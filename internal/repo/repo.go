package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"laborline/internal/domain"
	"laborline/internal/geo"

	sqlite "modernc.org/sqlite"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// querier is satisfied by both *sql.DB and *sql.Tx so reads can run inside
// or outside a transaction. Invariant checks in the engine always use the
// Tx variants: a check against stale state is a race, not a shortcut.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// IsUniqueViolation reports whether err is a storage-level uniqueness
// failure. The engine maps these to conflicts: the unique indexes are the
// second line of defense behind the in-transaction checks.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()&0xff == 19 // SQLITE_CONSTRAINT
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}

func optionalString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func positionArgs(p *geo.Position) (lat, lon any) {
	if p == nil {
		return nil, nil
	}
	return p.Lat, p.Lon
}

const actorColumns = `id,phone,password_hash,role,COALESCE(first_name,''),COALESCE(last_name,''),rating,verified,status,lat,lon,created_at`

func scanActor(row *sql.Row) (domain.Actor, error) {
	var a domain.Actor
	var rating sql.NullFloat64
	var lat, lon sql.NullFloat64
	err := row.Scan(&a.ID, &a.Phone, &a.PasswordHash, &a.Role, &a.FirstName, &a.LastName,
		&rating, &a.Verified, &a.Status, &lat, &lon, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	if rating.Valid {
		r := rating.Float64
		a.Rating = &r
	}
	if lat.Valid && lon.Valid {
		a.Position = &geo.Position{Lat: lat.Float64, Lon: lon.Float64}
	}
	return a, nil
}

func getActor(ctx context.Context, q querier, id string) (domain.Actor, error) {
	a, err := scanActor(q.QueryRowContext(ctx, `SELECT `+actorColumns+` FROM actors WHERE id=?`, id))
	if err != nil {
		return a, err
	}
	a.Skills, err = listSkills(ctx, q, id)
	return a, err
}

func listSkills(ctx context.Context, q querier, actorID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT skill FROM actor_skills WHERE actor_id=? ORDER BY skill`, actorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var skills []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		skills = append(skills, s)
	}
	return skills, rows.Err()
}

func (r Repo) InsertActor(ctx context.Context, a domain.Actor) error {
	lat, lon := positionArgs(a.Position)
	_, err := r.DB.ExecContext(ctx, `INSERT INTO actors(id,phone,password_hash,role,first_name,last_name,rating,verified,status,lat,lon,created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		a.ID, a.Phone, a.PasswordHash, a.Role, nullable(a.FirstName), nullable(a.LastName),
		nil, a.Verified, a.Status, lat, lon, a.CreatedAt)
	if err != nil {
		return err
	}
	return r.replaceSkills(ctx, r.DB, a.ID, a.Skills)
}

func (r Repo) GetActor(ctx context.Context, id string) (domain.Actor, error) {
	return getActor(ctx, r.DB, id)
}

func (r Repo) GetActorTx(ctx context.Context, tx *sql.Tx, id string) (domain.Actor, error) {
	return getActor(ctx, tx, id)
}

func (r Repo) GetActorByPhone(ctx context.Context, phone string) (domain.Actor, error) {
	a, err := scanActor(r.DB.QueryRowContext(ctx, `SELECT `+actorColumns+` FROM actors WHERE phone=?`, phone))
	if err != nil {
		return a, err
	}
	a.Skills, err = listSkills(ctx, r.DB, a.ID)
	return a, err
}

// UpdateActorProfile replaces name and skill tags.
func (r Repo) UpdateActorProfile(ctx context.Context, id, firstName, lastName string, skills []string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE actors SET first_name=?, last_name=? WHERE id=?`,
		nullable(firstName), nullable(lastName), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return r.replaceSkills(ctx, r.DB, id, skills)
}

func (r Repo) replaceSkills(ctx context.Context, q querier, actorID string, skills []string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM actor_skills WHERE actor_id=?`, actorID); err != nil {
		return err
	}
	for _, s := range skills {
		if _, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO actor_skills(actor_id,skill) VALUES (?,?)`, actorID, strings.ToUpper(s)); err != nil {
			return err
		}
	}
	return nil
}

func (r Repo) UpdateActorStatus(ctx context.Context, id string, status domain.Availability) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE actors SET status=? WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) UpdateActorStatusTx(ctx context.Context, tx *sql.Tx, id string, status domain.Availability) error {
	res, err := tx.ExecContext(ctx, `UPDATE actors SET status=? WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) UpdateActorPosition(ctx context.Context, id string, pos geo.Position) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE actors SET lat=?, lon=? WHERE id=?`, pos.Lat, pos.Lon, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// WorkerFilters narrows FindWorkers. Skill matches case-insensitively;
// the bounding box is a prefilter only, callers re-check exact distance.
type WorkerFilters struct {
	Skill         string
	AvailableOnly bool
	HasPosition   bool
	MinLat        float64
	MaxLat        float64
	MinLon        float64
	MaxLon        float64
	UseBox        bool
}

func (r Repo) FindWorkers(ctx context.Context, f WorkerFilters) ([]domain.Actor, error) {
	clauses := []string{"role=?"}
	args := []any{domain.RoleLabor}
	if f.Skill != "" {
		clauses = append(clauses, "EXISTS (SELECT 1 FROM actor_skills s WHERE s.actor_id=actors.id AND s.skill=UPPER(?))")
		args = append(args, f.Skill)
	}
	if f.AvailableOnly {
		clauses = append(clauses, "status=?")
		args = append(args, domain.Available)
	}
	if f.HasPosition || f.UseBox {
		clauses = append(clauses, "lat IS NOT NULL AND lon IS NOT NULL")
	}
	if f.UseBox {
		clauses = append(clauses, "lat BETWEEN ? AND ?", "lon BETWEEN ? AND ?")
		args = append(args, f.MinLat, f.MaxLat, f.MinLon, f.MaxLon)
	}
	query := `SELECT ` + actorColumns + ` FROM actors WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY created_at ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Actor
	for rows.Next() {
		var a domain.Actor
		var rating, lat, lon sql.NullFloat64
		if err := rows.Scan(&a.ID, &a.Phone, &a.PasswordHash, &a.Role, &a.FirstName, &a.LastName,
			&rating, &a.Verified, &a.Status, &lat, &lon, &a.CreatedAt); err != nil {
			return nil, err
		}
		if rating.Valid {
			v := rating.Float64
			a.Rating = &v
		}
		if lat.Valid && lon.Valid {
			a.Position = &geo.Position{Lat: lat.Float64, Lon: lon.Float64}
		}
		res = append(res, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range res {
		if res[i].Skills, err = listSkills(ctx, r.DB, res[i].ID); err != nil {
			return nil, err
		}
	}
	return res, nil
}
