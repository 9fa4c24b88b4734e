package db

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/banshee-data/speedfield/internal/speedfield"
)

// InsertSmoothed stores grid under runID.
func (db *DB) InsertSmoothed(ctx context.Context, runID string, grid speedfield.SmoothedGrid) error {
	if _, err := db.GetRun(ctx, runID); err != nil {
		return err
	}
	return db.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO smoothed_points (run_id, t_index, x_index, raw_speed, time, milemarker, speed) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare smoothed insert: %w", err)
		}
		defer stmt.Close()
		for _, p := range grid {
			if _, err := stmt.ExecContext(ctx, runID, p.TIndex, p.XIndex, nullable(p.Raw, p.HasRaw), p.Time, p.Milemarker, p.Speed); err != nil {
				return fmt.Errorf("insert smoothed point (%d, %d): %w", p.TIndex, p.XIndex, err)
			}
		}
		return nil
	})
}

// LoadSmoothed returns the grid stored under runID ordered by time then
// space index.
func (db *DB) LoadSmoothed(ctx context.Context, runID string) (speedfield.SmoothedGrid, error) {
	if _, err := db.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT t_index, x_index, raw_speed, time, milemarker, speed FROM smoothed_points WHERE run_id = ? ORDER BY t_index, x_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("load smoothed %s: %w", runID, err)
	}
	defer rows.Close()

	var grid speedfield.SmoothedGrid
	for rows.Next() {
		var (
			p   speedfield.SmoothedPoint
			raw sql.NullFloat64
		)
		if err := rows.Scan(&p.TIndex, &p.XIndex, &raw, &p.Time, &p.Milemarker, &p.Speed); err != nil {
			return nil, fmt.Errorf("scan smoothed point: %w", err)
		}
		p.Raw, p.HasRaw = math.NaN(), raw.Valid
		if raw.Valid {
			p.Raw = raw.Float64
		}
		grid = append(grid, p)
	}
	return grid, rows.Err()
}
