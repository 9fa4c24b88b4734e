package db

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/banshee-data/speedfield/internal/speedfield"
)

// InsertTrajectories stores set under runID, replacing any trajectories
// already stored for the run.
func (db *DB) InsertTrajectories(ctx context.Context, runID string, set speedfield.TrajectorySet) error {
	if _, err := db.GetRun(ctx, runID); err != nil {
		return err
	}
	return db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM trajectories WHERE run_id = ?`, runID); err != nil {
			return fmt.Errorf("clear trajectories: %w", err)
		}
		head, err := tx.PrepareContext(ctx, `INSERT INTO trajectories (run_id, vehicle_id, status) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare trajectory insert: %w", err)
		}
		defer head.Close()
		sample, err := tx.PrepareContext(ctx,
			`INSERT INTO trajectory_samples (run_id, vehicle_id, seq, time, space, speed) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare sample insert: %w", err)
		}
		defer sample.Close()

		for _, tr := range set {
			if _, err := head.ExecContext(ctx, runID, tr.VehicleID, tr.Status.String()); err != nil {
				return fmt.Errorf("insert vehicle %d: %w", tr.VehicleID, err)
			}
			for i, s := range tr.Samples {
				if _, err := sample.ExecContext(ctx, runID, tr.VehicleID, i, s.Time, s.Space, nullable(s.Speed, true)); err != nil {
					return fmt.Errorf("insert vehicle %d sample %d: %w", tr.VehicleID, i, err)
				}
			}
		}
		return nil
	})
}

func parseStatus(s string) speedfield.TrajectoryStatus {
	if s == speedfield.Stalled.String() {
		return speedfield.Stalled
	}
	return speedfield.Complete
}

// LoadTrajectories returns the trajectories stored under runID ordered by
// vehicle id.
func (db *DB) LoadTrajectories(ctx context.Context, runID string) (speedfield.TrajectorySet, error) {
	if _, err := db.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT t.vehicle_id, t.status, s.time, s.space, s.speed
		FROM trajectories t
		JOIN trajectory_samples s ON s.run_id = t.run_id AND s.vehicle_id = t.vehicle_id
		WHERE t.run_id = ?
		ORDER BY t.vehicle_id, s.seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("load trajectories %s: %w", runID, err)
	}
	defer rows.Close()

	var set speedfield.TrajectorySet
	for rows.Next() {
		var (
			id     int
			status string
			s      speedfield.Sample
			speed  sql.NullFloat64
		)
		if err := rows.Scan(&id, &status, &s.Time, &s.Space, &speed); err != nil {
			return nil, fmt.Errorf("scan trajectory sample: %w", err)
		}
		s.VehicleID = id
		s.Speed = math.NaN()
		if speed.Valid {
			s.Speed = speed.Float64
		}
		if n := len(set); n == 0 || set[n-1].VehicleID != id {
			set = append(set, speedfield.Trajectory{VehicleID: id, Status: parseStatus(status)})
		}
		set[len(set)-1].Samples = append(set[len(set)-1].Samples, s)
	}
	return set, rows.Err()
}
