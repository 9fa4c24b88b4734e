package trajectory

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/speedfield/internal/config"
	"github.com/banshee-data/speedfield/internal/metrics"
	"github.com/banshee-data/speedfield/internal/monitoring"
	"github.com/banshee-data/speedfield/internal/speedfield"
	"github.com/banshee-data/speedfield/internal/timeutil"
)

// spawnEps absorbs rounding in the last spawn time comparison.
const spawnEps = 1e-9

// Fleet spawns virtual vehicles at a fixed interval over a smoothed grid.
type Fleet struct {
	Config   Config
	Corridor speedfield.Corridor

	FirstSpawn float64 // seconds
	SpawnTail  float64 // seconds kept free at the end of the period

	// Workers bounds concurrent vehicles; zero means GOMAXPROCS.
	Workers int

	ProgressInterval time.Duration
	Clock            timeutil.Clock
	Metrics          *metrics.Collector
}

// NewFleet builds a Fleet from tuning configuration. m may be nil.
func NewFleet(cfg *config.TuningConfig, m *metrics.Collector) *Fleet {
	return &Fleet{
		Config: ConfigFromTuning(cfg),
		Corridor: speedfield.Corridor{
			StartMilemarker: cfg.GetMilemarkerOffset(),
			Length:          cfg.GetCorridorLengthMiles(),
		},
		FirstSpawn:       cfg.GetFirstSpawnSeconds(),
		SpawnTail:        cfg.GetSpawnTailSeconds(),
		Workers:          cfg.GetFleetWorkers(),
		ProgressInterval: cfg.GetProgressInterval(),
		Clock:            timeutil.RealClock{},
		Metrics:          m,
	}
}

// SpawnTimes lists the launch times FirstSpawn, FirstSpawn+frequency, ...
// up to and including FirstSpawn + 3600*hours - SpawnTail.
func (f *Fleet) SpawnTimes(frequency, hours float64) ([]float64, error) {
	if !(frequency > 0) {
		return nil, fmt.Errorf("spawn frequency must be positive, got %v", frequency)
	}
	if !(hours > 0) {
		return nil, fmt.Errorf("duration must be positive, got %v hours", hours)
	}
	last := f.FirstSpawn + 3600*hours - f.SpawnTail
	var times []float64
	for k := 0; ; k++ {
		t := f.FirstSpawn + float64(k)*frequency
		if t > last+spawnEps {
			break
		}
		times = append(times, t)
	}
	return times, nil
}

// VehicleID derives a vehicle's id from its spawn time.
func VehicleID(spawn, frequency float64) int {
	return int(spawn / frequency)
}

// StepForRate converts an update rate in Hz to a step in seconds, rounded
// to two decimals.
func StepForRate(hz float64) (float64, error) {
	if !(hz > 0) {
		return 0, fmt.Errorf("update rate must be positive, got %v Hz", hz)
	}
	step := math.Round(100/hz) / 100
	if step <= 0 {
		return 0, fmt.Errorf("update rate %v Hz is finer than 0.01 s", hz)
	}
	return step, nil
}

// Generate runs one vehicle per spawn time over grid and returns their
// trajectories ordered by vehicle id, with space in milemarkers.
func (f *Fleet) Generate(ctx context.Context, grid speedfield.SmoothedGrid, frequency, hours, hz float64) (speedfield.TrajectorySet, error) {
	if len(grid) == 0 {
		return nil, fmt.Errorf("generate fleet: %w", speedfield.ErrEmptyGrid)
	}
	step, err := StepForRate(hz)
	if err != nil {
		return nil, fmt.Errorf("generate fleet: %w", err)
	}
	spawns, err := f.SpawnTimes(frequency, hours)
	if err != nil {
		return nil, fmt.Errorf("generate fleet: %w", err)
	}

	cfg := f.Config
	cfg.Step = step
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("generate fleet: %w", err)
	}

	clock := f.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	start := clock.Now()

	integ := &Integrator{Field: grid.CanonicalField(f.Corridor), Config: cfg, Metrics: f.Metrics}
	workers := f.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	monitoring.Logf("generating %d vehicles every %.0f s over %.2f h at %.2f s steps (%d workers)",
		len(spawns), frequency, hours, step, workers)

	progress := monitoring.NewProgress("trajectories", len(spawns), f.ProgressInterval, clock)
	out := make(speedfield.TrajectorySet, len(spawns))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, t0 := range spawns {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tr, err := integ.Run(gctx, t0, VehicleID(t0, frequency))
			if err != nil {
				return err
			}
			for j := range tr.Samples {
				tr.Samples[j].Space = f.Corridor.Reflect(tr.Samples[j].Space)
			}
			out[i] = tr
			progress.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("generate fleet: %w", err)
	}

	stalled := 0
	for _, tr := range out {
		if tr.Status == speedfield.Stalled {
			stalled++
		}
	}
	elapsed := clock.Since(start)
	f.Metrics.ObserveFleet(elapsed)
	monitoring.Logf("generated %d trajectories in %s (%d stalled)", len(out), elapsed.Round(time.Millisecond), stalled)
	return out, nil
}
