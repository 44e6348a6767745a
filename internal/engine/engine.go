// Package engine implements the transaction lifecycle rules: assignments,
// geofenced work sessions, gig state transitions and wage settlement. Every
// mutating operation runs its invariant checks and writes inside a single
// database transaction and appends to the event log before commit.
package engine

import (
	"context"
	"database/sql"
	"time"

	"laborline/internal/config"
	"laborline/internal/events"
	"laborline/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events *events.Writer
	Config *config.Config

	// Now is replaceable in tests.
	Now func() time.Time
}

func New(db *sql.DB, cfg *config.Config) *Engine {
	e := &Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
	e.Events = &events.Writer{DB: db, Now: func() time.Time { return e.Now() }}
	return e
}

func (e *Engine) now() time.Time { return e.Now().UTC() }

func (e *Engine) stamp() string { return e.now().Format(time.RFC3339) }

func (e *Engine) begin(ctx context.Context) (*sql.Tx, error) {
	return e.DB.BeginTx(ctx, nil)
}
