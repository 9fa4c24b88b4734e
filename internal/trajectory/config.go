package trajectory

import (
	"fmt"

	"github.com/banshee-data/speedfield/internal/config"
	"github.com/banshee-data/speedfield/internal/interp"
)

// Config controls a single vehicle's integration.
type Config struct {
	Entrance float64 // canonical start position, miles
	Length   float64 // canonical end position, miles
	Step     float64 // seconds per update

	// The cached window covers (t-WindowBack, t+WindowAhead] and is rebuilt
	// at least every RefreshInterval simulated seconds.
	WindowBack      float64
	WindowAhead     float64
	RefreshInterval float64

	// MaxSteps bounds the number of updates for one vehicle.
	MaxSteps int

	Interp interp.Local
}

// DefaultConfig returns the default 1 Hz integration over the 4.3 mile corridor.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning reads integration settings from cfg. Step is always 1 s;
// Fleet overrides it from the requested update rate.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		Entrance:        cfg.GetEntranceMiles(),
		Length:          cfg.GetCorridorLengthMiles(),
		Step:            1,
		WindowBack:      cfg.GetWindowBackSeconds(),
		WindowAhead:     cfg.GetWindowAheadSeconds(),
		RefreshInterval: cfg.GetWindowRefreshSeconds(),
		MaxSteps:        cfg.GetMaxSteps(),
		Interp: interp.Local{
			HalfT: cfg.GetInterpHalfTSeconds(),
			HalfX: cfg.GetInterpHalfXMiles(),
		},
	}
}

// Validate rejects configurations that cannot terminate or interpolate.
func (c Config) Validate() error {
	if !(c.Step > 0) {
		return fmt.Errorf("integration step must be positive, got %v", c.Step)
	}
	if !(c.Entrance >= 0) || !(c.Length > c.Entrance) {
		return fmt.Errorf("entrance %v must lie in [0, %v)", c.Entrance, c.Length)
	}
	if !(c.WindowBack > 0) || !(c.WindowAhead > 0) || !(c.RefreshInterval > 0) {
		return fmt.Errorf("window back, ahead and refresh must be positive, got %v, %v, %v",
			c.WindowBack, c.WindowAhead, c.RefreshInterval)
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("max steps must be positive, got %d", c.MaxSteps)
	}
	if !(c.Interp.HalfT > 0) || !(c.Interp.HalfX > 0) {
		return fmt.Errorf("interpolation half-widths must be positive, got %v, %v", c.Interp.HalfT, c.Interp.HalfX)
	}
	return nil
}
