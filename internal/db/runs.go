package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/speedfield/internal/version"
)

// ErrRunNotFound is returned when a run id is not in the database.
var ErrRunNotFound = errors.New("db: run not found")

// Run is one smoothing run and the parameters it used.
type Run struct {
	ID            string
	CreatedAt     time.Time
	EngineVersion string
	Source        string
	Params        json.RawMessage
}

// CreateRun records a new run. params is stored as JSON.
func (db *DB) CreateRun(ctx context.Context, source string, params any) (Run, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return Run{}, fmt.Errorf("encode run params: %w", err)
	}
	run := Run{
		ID:            uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
		EngineVersion: version.Version,
		Source:        source,
		Params:        raw,
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO runs (run_id, created_unix_ns, engine_version, source, params_json) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UnixNano(), run.EngineVersion, run.Source, string(run.Params))
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

func scanRun(row interface{ Scan(...any) error }) (Run, error) {
	var (
		r      Run
		ns     int64
		params string
	)
	if err := row.Scan(&r.ID, &ns, &r.EngineVersion, &r.Source, &params); err != nil {
		return Run{}, err
	}
	r.CreatedAt = time.Unix(0, ns).UTC()
	r.Params = json.RawMessage(params)
	return r, nil
}

// GetRun returns the run with id.
func (db *DB) GetRun(ctx context.Context, id string) (Run, error) {
	row := db.QueryRowContext(ctx,
		`SELECT run_id, created_unix_ns, engine_version, source, params_json FROM runs WHERE run_id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return r, nil
}

// ListRuns returns all runs, newest first.
func (db *DB) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT run_id, created_unix_ns, engine_version, source, params_json FROM runs ORDER BY created_unix_ns DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and everything stored under it.
func (db *DB) DeleteRun(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

func nullable(v float64, ok bool) sql.NullFloat64 {
	if !ok || math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

// inTx runs fn in a transaction, rolling back on error.
func (db *DB) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
