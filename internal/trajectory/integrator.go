package trajectory

import (
	"context"
	"fmt"
	"math"

	"github.com/banshee-data/speedfield/internal/metrics"
	"github.com/banshee-data/speedfield/internal/monitoring"
	"github.com/banshee-data/speedfield/internal/speedfield"
)

// ctxCheckEvery is how many steps pass between context checks.
const ctxCheckEvery = 256

// Integrator walks single vehicles through a canonical-axis speed field.
// It is safe for concurrent use; each Run owns its own window.
type Integrator struct {
	Field   speedfield.SpeedField
	Config  Config
	Metrics *metrics.Collector
}

// NewIntegrator creates an Integrator over field, which must already be on
// the canonical axis.
func NewIntegrator(field speedfield.SpeedField, cfg Config) *Integrator {
	return &Integrator{Field: field, Config: cfg}
}

// Run integrates one vehicle from (t0, Entrance) until it reaches Length.
//
// The first sample is the start position with the speed found there. Each
// step interpolates the speed at the current point, advances position by
// speed*Step/3600 and time by Step, and records the new point with the speed
// that moved it. Negative spline estimates are clamped to zero so position
// never decreases.
//
// When no estimate is available the vehicle records one sample with a NaN
// speed at its current position and stops as Stalled. It also stops as
// Stalled after MaxSteps updates.
func (in *Integrator) Run(ctx context.Context, t0 float64, vehicleID int) (speedfield.Trajectory, error) {
	cfg := in.Config
	if err := cfg.Validate(); err != nil {
		return speedfield.Trajectory{}, fmt.Errorf("vehicle %d: %w", vehicleID, err)
	}

	win := newWindow(in.Field, cfg, t0)
	tr := speedfield.Trajectory{VehicleID: vehicleID, Status: speedfield.Complete}

	t, x := t0, cfg.Entrance
	first := cfg.Interp.At(win.at(t), t, x)
	tr.Samples = append(tr.Samples, speedfield.Sample{Time: t, Space: x, Speed: first.Speed, VehicleID: vehicleID})

	undefined := false
	for step := 1; x < cfg.Length; step++ {
		if step > cfg.MaxSteps {
			tr.Status = speedfield.Stalled
			monitoring.Debugf("vehicle %d: stopped after %d steps at t=%.2f x=%.4f", vehicleID, cfg.MaxSteps, t, x)
			break
		}
		if step%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return speedfield.Trajectory{}, fmt.Errorf("vehicle %d: %w", vehicleID, err)
			}
		}

		r := cfg.Interp.At(win.at(t), t, x)
		next := stepTime(t0, step, cfg.Step)
		if !r.OK() {
			tr.Samples = append(tr.Samples, speedfield.Sample{Time: next, Space: x, Speed: math.NaN(), VehicleID: vehicleID})
			tr.Status = speedfield.Stalled
			undefined = true
			monitoring.Debugf("vehicle %d: no speed estimate at t=%.2f x=%.4f", vehicleID, t, x)
			break
		}

		speed := math.Max(r.Speed, 0)
		x += speed * cfg.Step / 3600
		t = next
		tr.Samples = append(tr.Samples, speedfield.Sample{Time: t, Space: x, Speed: speed, VehicleID: vehicleID})
	}

	in.Metrics.ObserveTrajectory(tr.Status.String(), len(tr.Samples), undefined)
	monitoring.Debugf("vehicle %d: %s, %d samples, %d window refreshes", vehicleID, tr.Status, len(tr.Samples), win.refreshes)
	return tr, nil
}

// stepTime is t0 + step*dt rounded to the microsecond, so repeated steps
// never accumulate drift. Rounding to whole seconds would collapse sub-second
// steps; at a 1 s step from an integral t0 both give the same times.
func stepTime(t0 float64, step int, dt float64) float64 {
	return math.Round((t0+float64(step)*dt)*1e6) / 1e6
}
