package asm

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/iter"

	"github.com/banshee-data/speedfield/internal/config"
	"github.com/banshee-data/speedfield/internal/metrics"
	"github.com/banshee-data/speedfield/internal/monitoring"
	"github.com/banshee-data/speedfield/internal/speedfield"
	"github.com/banshee-data/speedfield/internal/timeutil"
)

// Smoother applies the regime-blending filter to every point of a raw grid.
type Smoother struct {
	Filter     Filter
	Resolution speedfield.Resolution

	// Workers bounds the number of goroutines; zero means GOMAXPROCS.
	Workers int

	ProgressInterval time.Duration
	Clock            timeutil.Clock
	Metrics          *metrics.Collector
}

// NewSmoother builds a Smoother from tuning configuration. m may be nil.
func NewSmoother(cfg *config.TuningConfig, m *metrics.Collector) *Smoother {
	return &Smoother{
		Filter: NewFilter(ParamsFromTuning(cfg)),
		Resolution: speedfield.Resolution{
			DT:     cfg.GetDTSeconds(),
			DX:     cfg.GetDXMiles(),
			Offset: cfg.GetMilemarkerOffset(),
		},
		Workers:          cfg.GetSmoothingWorkers(),
		ProgressInterval: cfg.GetProgressInterval(),
		Clock:            timeutil.RealClock{},
		Metrics:          m,
	}
}

// SourceField converts the observed rows of raw to physical units. Rows
// without a speed are dropped; they are smoothed but never used as sources.
func (s *Smoother) SourceField(raw []speedfield.RawObservation) speedfield.SpeedField {
	pts := make([]speedfield.FieldPoint, 0, len(raw))
	for _, r := range raw {
		if !r.Valid || math.IsNaN(r.Speed) {
			continue
		}
		pts = append(pts, speedfield.FieldPoint{
			T:     s.Resolution.Time(r.TIndex),
			X:     s.Resolution.Milemarker(r.XIndex),
			Speed: r.Speed,
		})
	}
	return speedfield.NewSpeedField(pts)
}

// Smooth returns one smoothed row per raw row, in input order.
func (s *Smoother) Smooth(ctx context.Context, raw []speedfield.RawObservation) (speedfield.SmoothedGrid, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("smooth: %w", speedfield.ErrEmptyGrid)
	}
	if err := s.Resolution.Validate(); err != nil {
		return nil, fmt.Errorf("smooth: %w", err)
	}
	if err := s.Filter.Params.Validate(); err != nil {
		return nil, fmt.Errorf("smooth: %w", err)
	}

	clock := s.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	start := clock.Now()

	source := s.SourceField(raw)
	monitoring.Logf("smoothing %d grid points from %d observations (x_win=%.3f mi, t_win=%.0f s)",
		len(raw), source.Len(), s.Filter.Params.XWindow, s.Filter.Params.TWindow)

	workers := s.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	progress := monitoring.NewProgress("smoothing", len(raw), s.ProgressInterval, clock)
	var fallbacks atomic.Int64

	mapper := iter.Mapper[speedfield.RawObservation, speedfield.SmoothedPoint]{MaxGoroutines: workers}
	out := mapper.Map(raw, func(r *speedfield.RawObservation) speedfield.SmoothedPoint {
		if ctx.Err() != nil {
			return speedfield.SmoothedPoint{}
		}
		t := s.Resolution.Time(r.TIndex)
		x := s.Resolution.Milemarker(r.XIndex)
		b := s.Filter.At(source, t, x)
		if b.Fallback() {
			fallbacks.Add(1)
		}
		progress.Add(1)

		hasRaw := r.Valid && !math.IsNaN(r.Speed)
		rawSpeed := math.NaN()
		if hasRaw {
			rawSpeed = r.Speed
		}
		return speedfield.SmoothedPoint{
			TIndex:     r.TIndex,
			XIndex:     r.XIndex,
			Raw:        rawSpeed,
			HasRaw:     hasRaw,
			Time:       t,
			Milemarker: x,
			Speed:      b.Speed,
		}
	})
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("smooth: %w", err)
	}

	elapsed := clock.Since(start)
	s.Metrics.ObserveSmoothing(len(out), int(fallbacks.Load()), elapsed)
	monitoring.Logf("smoothed %d grid points in %s (%d without nearby observations)",
		len(out), elapsed.Round(time.Millisecond), fallbacks.Load())
	return speedfield.SmoothedGrid(out), nil
}
