package db

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/speedfield/internal/monitoring"
	"github.com/banshee-data/speedfield/internal/speedfield"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "speedfield.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenDBPragmas(t *testing.T) {
	db := setupTestDB(t)

	var journal string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journal))
	assert.Equal(t, "wal", journal)

	var busy int
	require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&busy))
	assert.Equal(t, 5000, busy)

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestMigrations(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	defer db.Close()

	v, dirty, err := db.MigrateVersion(MigrationsFS())
	require.NoError(t, err)
	assert.Equal(t, uint(0), v)
	assert.False(t, dirty)

	require.NoError(t, db.MigrateUp(MigrationsFS()))
	v, _, err = db.MigrateVersion(MigrationsFS())
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)

	// Second run is a no-op.
	require.NoError(t, db.MigrateUp(MigrationsFS()))

	require.NoError(t, db.MigrateDown(MigrationsFS()))
	v, _, err = db.MigrateVersion(MigrationsFS())
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 'trajectories'`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestRunLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	run, err := db.CreateRun(ctx, "speeds.csv", map[string]float64{"x_window": 0.15})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)

	got, err := db.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "speeds.csv", got.Source)
	assert.JSONEq(t, `{"x_window":0.15}`, string(got.Params))
	assert.Equal(t, run.CreatedAt.UnixNano(), got.CreatedAt.UnixNano())

	second, err := db.CreateRun(ctx, "other.csv", nil)
	require.NoError(t, err)
	runs, err := db.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)

	require.NoError(t, db.DeleteRun(ctx, run.ID))
	_, err = db.GetRun(ctx, run.ID)
	assert.True(t, errors.Is(err, ErrRunNotFound))
	assert.True(t, errors.Is(db.DeleteRun(ctx, run.ID), ErrRunNotFound))
}

func TestSmoothedRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	run, err := db.CreateRun(ctx, "grid.csv", nil)
	require.NoError(t, err)

	grid := speedfield.SmoothedGrid{
		{TIndex: 0, XIndex: 0, Raw: 61, HasRaw: true, Time: 0, Milemarker: 58.7, Speed: 60.5},
		{TIndex: 0, XIndex: 1, Raw: math.NaN(), Time: 0, Milemarker: 58.72, Speed: 59},
		{TIndex: 1, XIndex: 0, Raw: 20, HasRaw: true, Time: 4, Milemarker: 58.7, Speed: 22},
	}
	require.NoError(t, db.InsertSmoothed(ctx, run.ID, grid))

	got, err := db.LoadSmoothed(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 61.0, got[0].Raw)
	assert.True(t, got[0].HasRaw)
	assert.False(t, got[1].HasRaw)
	assert.True(t, math.IsNaN(got[1].Raw))
	assert.Equal(t, 22.0, got[2].Speed)

	// Duplicate cells violate the primary key and roll back the batch.
	assert.Error(t, db.InsertSmoothed(ctx, run.ID, grid[:1]))
	got, err = db.LoadSmoothed(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = db.LoadSmoothed(ctx, "missing")
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestTrajectoriesRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	run, err := db.CreateRun(ctx, "grid.csv", nil)
	require.NoError(t, err)

	set := speedfield.TrajectorySet{
		{VehicleID: 0, Status: speedfield.Complete, Samples: []speedfield.Sample{
			{Time: 30, Space: 0.32, Speed: 60, VehicleID: 0},
			{Time: 31, Space: 0.3367, Speed: 61, VehicleID: 0},
		}},
		{VehicleID: 1, Status: speedfield.Stalled, Samples: []speedfield.Sample{
			{Time: 60, Space: 0.32, Speed: 40, VehicleID: 1},
			{Time: 61, Space: 0.331, Speed: math.NaN(), VehicleID: 1},
		}},
	}
	require.NoError(t, db.InsertTrajectories(ctx, run.ID, set))

	got, err := db.LoadTrajectories(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, speedfield.Complete, got[0].Status)
	assert.Equal(t, speedfield.Stalled, got[1].Status)
	require.Len(t, got[1].Samples, 2)
	assert.True(t, math.IsNaN(got[1].Samples[1].Speed))
	assert.Equal(t, 0.3367, got[0].Samples[1].Space)

	// Storing again replaces the previous fleet.
	require.NoError(t, db.InsertTrajectories(ctx, run.ID, set[:1]))
	got, err = db.LoadTrajectories(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	// Deleting the run cascades to its trajectories.
	require.NoError(t, db.DeleteRun(ctx, run.ID))
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM trajectory_samples`).Scan(&n))
	assert.Equal(t, 0, n)
}
