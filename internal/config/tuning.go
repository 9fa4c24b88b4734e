package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// EnvPrefix is prepended to upper-cased keys for environment overrides,
// e.g. SPEEDFIELD_FALLBACK_SPEED_MPH=70.
const EnvPrefix = "SPEEDFIELD"

// TuningConfig represents the root configuration for smoothing and
// trajectory parameters. Every field is optional; the Get* accessors
// return the documented default for fields left unset.
type TuningConfig struct {
	// Grid params
	DTSeconds        *float64 `json:"dt_seconds,omitempty" mapstructure:"dt_seconds"`
	DXMiles          *float64 `json:"dx_miles,omitempty" mapstructure:"dx_miles"`
	MilemarkerOffset *float64 `json:"milemarker_offset,omitempty" mapstructure:"milemarker_offset"`

	// Smoothing params
	SmoothXWindowMiles   *float64 `json:"smooth_x_window_miles,omitempty" mapstructure:"smooth_x_window_miles"`
	SmoothTWindowSeconds *float64 `json:"smooth_t_window_seconds,omitempty" mapstructure:"smooth_t_window_seconds"`
	CFreeMPH             *float64 `json:"c_free_mph,omitempty" mapstructure:"c_free_mph"`
	CCongMPH             *float64 `json:"c_cong_mph,omitempty" mapstructure:"c_cong_mph"`
	CriticalSpeedMPH     *float64 `json:"critical_speed_mph,omitempty" mapstructure:"critical_speed_mph"`
	TransitionWidthMPH   *float64 `json:"transition_width_mph,omitempty" mapstructure:"transition_width_mph"`
	FallbackSpeedMPH     *float64 `json:"fallback_speed_mph,omitempty" mapstructure:"fallback_speed_mph"`
	SmoothingWorkers     *int     `json:"smoothing_workers,omitempty" mapstructure:"smoothing_workers"`

	// Interpolation params
	InterpHalfTSeconds *float64 `json:"interp_half_t_seconds,omitempty" mapstructure:"interp_half_t_seconds"`
	InterpHalfXMiles   *float64 `json:"interp_half_x_miles,omitempty" mapstructure:"interp_half_x_miles"`

	// Trajectory params
	CorridorLengthMiles  *float64 `json:"corridor_length_miles,omitempty" mapstructure:"corridor_length_miles"`
	EntranceMiles        *float64 `json:"entrance_miles,omitempty" mapstructure:"entrance_miles"`
	FirstSpawnSeconds    *float64 `json:"first_spawn_seconds,omitempty" mapstructure:"first_spawn_seconds"`
	SpawnTailSeconds     *float64 `json:"spawn_tail_seconds,omitempty" mapstructure:"spawn_tail_seconds"`
	WindowBackSeconds    *float64 `json:"window_back_seconds,omitempty" mapstructure:"window_back_seconds"`
	WindowAheadSeconds   *float64 `json:"window_ahead_seconds,omitempty" mapstructure:"window_ahead_seconds"`
	WindowRefreshSeconds *float64 `json:"window_refresh_seconds,omitempty" mapstructure:"window_refresh_seconds"`
	MaxSteps             *int     `json:"max_steps,omitempty" mapstructure:"max_steps"`
	FleetWorkers         *int     `json:"fleet_workers,omitempty" mapstructure:"fleet_workers"`

	// Progress reporting
	ProgressInterval *string `json:"progress_interval,omitempty" mapstructure:"progress_interval"` // duration string like "5s"
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// with its default.
func DefaultTuningConfig() *TuningConfig {
	c := EmptyTuningConfig()
	return &TuningConfig{
		DTSeconds:            ptrFloat64(c.GetDTSeconds()),
		DXMiles:              ptrFloat64(c.GetDXMiles()),
		MilemarkerOffset:     ptrFloat64(c.GetMilemarkerOffset()),
		SmoothXWindowMiles:   ptrFloat64(c.GetSmoothXWindowMiles()),
		SmoothTWindowSeconds: ptrFloat64(c.GetSmoothTWindowSeconds()),
		CFreeMPH:             ptrFloat64(c.GetCFreeMPH()),
		CCongMPH:             ptrFloat64(c.GetCCongMPH()),
		CriticalSpeedMPH:     ptrFloat64(c.GetCriticalSpeedMPH()),
		TransitionWidthMPH:   ptrFloat64(c.GetTransitionWidthMPH()),
		FallbackSpeedMPH:     ptrFloat64(c.GetFallbackSpeedMPH()),
		SmoothingWorkers:     ptrInt(c.GetSmoothingWorkers()),
		InterpHalfTSeconds:   ptrFloat64(c.GetInterpHalfTSeconds()),
		InterpHalfXMiles:     ptrFloat64(c.GetInterpHalfXMiles()),
		CorridorLengthMiles:  ptrFloat64(c.GetCorridorLengthMiles()),
		EntranceMiles:        ptrFloat64(c.GetEntranceMiles()),
		FirstSpawnSeconds:    ptrFloat64(c.GetFirstSpawnSeconds()),
		SpawnTailSeconds:     ptrFloat64(c.GetSpawnTailSeconds()),
		WindowBackSeconds:    ptrFloat64(c.GetWindowBackSeconds()),
		WindowAheadSeconds:   ptrFloat64(c.GetWindowAheadSeconds()),
		WindowRefreshSeconds: ptrFloat64(c.GetWindowRefreshSeconds()),
		MaxSteps:             ptrInt(c.GetMaxSteps()),
		FleetWorkers:         ptrInt(c.GetFleetWorkers()),
		ProgressInterval:     ptrString(c.GetProgressInterval().String()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON or YAML file and applies
// SPEEDFIELD_* environment overrides on top. An empty path loads from the
// environment only. Fields omitted everywhere keep their defaults.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range configKeys() {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if path != "" {
		cleanPath := filepath.Clean(path)
		switch ext := filepath.Ext(cleanPath); ext {
		case ".json", ".yaml", ".yml":
		default:
			return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
		}

		// Check file size for safety (max 1MB)
		fileInfo, err := os.Stat(cleanPath)
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		const maxFileSize = 1 * 1024 * 1024
		if fileInfo.Size() > maxFileSize {
			return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
		}

		v.SetConfigFile(cleanPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := EmptyTuningConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// configKeys lists the mapstructure keys of TuningConfig.
func configKeys() []string {
	t := reflect.TypeOf(TuningConfig{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("mapstructure"); tag != "" {
			keys = append(keys, tag)
		}
	}
	return keys
}

// Validate checks that the configuration values are usable.
func (c *TuningConfig) Validate() error {
	positive := []struct {
		name string
		v    *float64
	}{
		{"dt_seconds", c.DTSeconds},
		{"dx_miles", c.DXMiles},
		{"smooth_x_window_miles", c.SmoothXWindowMiles},
		{"smooth_t_window_seconds", c.SmoothTWindowSeconds},
		{"c_cong_mph", c.CCongMPH},
		{"transition_width_mph", c.TransitionWidthMPH},
		{"fallback_speed_mph", c.FallbackSpeedMPH},
		{"interp_half_t_seconds", c.InterpHalfTSeconds},
		{"interp_half_x_miles", c.InterpHalfXMiles},
		{"corridor_length_miles", c.CorridorLengthMiles},
		{"window_refresh_seconds", c.WindowRefreshSeconds},
	}
	for _, p := range positive {
		if p.v != nil && !(*p.v > 0) {
			return fmt.Errorf("%s must be positive, got %v", p.name, *p.v)
		}
	}

	// Free-flow information travels downstream: negative by convention.
	if c.CFreeMPH != nil && !(*c.CFreeMPH < 0) {
		return fmt.Errorf("c_free_mph must be negative, got %v", *c.CFreeMPH)
	}

	if c.EntranceMiles != nil && c.CorridorLengthMiles != nil {
		if *c.EntranceMiles < 0 || *c.EntranceMiles >= *c.CorridorLengthMiles {
			return fmt.Errorf("entrance_miles must be in [0, corridor_length_miles), got %v", *c.EntranceMiles)
		}
	}

	if c.MaxSteps != nil && *c.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be positive, got %d", *c.MaxSteps)
	}
	if c.SmoothingWorkers != nil && *c.SmoothingWorkers < 0 {
		return fmt.Errorf("smoothing_workers must be non-negative, got %d", *c.SmoothingWorkers)
	}
	if c.FleetWorkers != nil && *c.FleetWorkers < 0 {
		return fmt.Errorf("fleet_workers must be non-negative, got %d", *c.FleetWorkers)
	}

	if c.ProgressInterval != nil && *c.ProgressInterval != "" {
		if _, err := time.ParseDuration(*c.ProgressInterval); err != nil {
			return fmt.Errorf("invalid progress_interval '%s': %w", *c.ProgressInterval, err)
		}
	}

	return nil
}

// GetDTSeconds returns the dt_seconds value or the default.
func (c *TuningConfig) GetDTSeconds() float64 {
	if c.DTSeconds == nil {
		return 4
	}
	return *c.DTSeconds
}

// GetDXMiles returns the dx_miles value or the default.
func (c *TuningConfig) GetDXMiles() float64 {
	if c.DXMiles == nil {
		return 0.02
	}
	return *c.DXMiles
}

// GetMilemarkerOffset returns the milemarker of space index 0.
func (c *TuningConfig) GetMilemarkerOffset() float64 {
	if c.MilemarkerOffset == nil {
		return 58.7
	}
	return *c.MilemarkerOffset
}

// GetSmoothXWindowMiles returns the smooth_x_window_miles value or the default.
func (c *TuningConfig) GetSmoothXWindowMiles() float64 {
	if c.SmoothXWindowMiles == nil {
		return 0.15
	}
	return *c.SmoothXWindowMiles
}

// GetSmoothTWindowSeconds returns the smooth_t_window_seconds value or the default.
func (c *TuningConfig) GetSmoothTWindowSeconds() float64 {
	if c.SmoothTWindowSeconds == nil {
		return 36
	}
	return *c.SmoothTWindowSeconds
}

// GetCFreeMPH returns the free-flow characteristic speed.
func (c *TuningConfig) GetCFreeMPH() float64 {
	if c.CFreeMPH == nil {
		return -43
	}
	return *c.CFreeMPH
}

// GetCCongMPH returns the congested wave speed.
func (c *TuningConfig) GetCCongMPH() float64 {
	if c.CCongMPH == nil {
		return 13
	}
	return *c.CCongMPH
}

// GetCriticalSpeedMPH returns the centre of the regime transition.
func (c *TuningConfig) GetCriticalSpeedMPH() float64 {
	if c.CriticalSpeedMPH == nil {
		return 36
	}
	return *c.CriticalSpeedMPH
}

// GetTransitionWidthMPH returns the width of the regime transition.
func (c *TuningConfig) GetTransitionWidthMPH() float64 {
	if c.TransitionWidthMPH == nil {
		return 12.43
	}
	return *c.TransitionWidthMPH
}

// GetFallbackSpeedMPH returns the speed assumed when a regime estimate has
// no supporting observations.
func (c *TuningConfig) GetFallbackSpeedMPH() float64 {
	if c.FallbackSpeedMPH == nil {
		return 80
	}
	return *c.FallbackSpeedMPH
}

// GetSmoothingWorkers returns the smoothing goroutine limit (0 = GOMAXPROCS).
func (c *TuningConfig) GetSmoothingWorkers() int {
	if c.SmoothingWorkers == nil {
		return 0
	}
	return *c.SmoothingWorkers
}

// GetInterpHalfTSeconds returns the interpolation neighbourhood half-width in time.
func (c *TuningConfig) GetInterpHalfTSeconds() float64 {
	if c.InterpHalfTSeconds == nil {
		return 8
	}
	return *c.InterpHalfTSeconds
}

// GetInterpHalfXMiles returns the interpolation neighbourhood half-width in space.
func (c *TuningConfig) GetInterpHalfXMiles() float64 {
	if c.InterpHalfXMiles == nil {
		return 0.04
	}
	return *c.InterpHalfXMiles
}

// GetCorridorLengthMiles returns the corridor_length_miles value or the default.
func (c *TuningConfig) GetCorridorLengthMiles() float64 {
	if c.CorridorLengthMiles == nil {
		return 4.3
	}
	return *c.CorridorLengthMiles
}

// GetEntranceMiles returns the start position of virtual vehicles.
func (c *TuningConfig) GetEntranceMiles() float64 {
	if c.EntranceMiles == nil {
		return 0.32
	}
	return *c.EntranceMiles
}

// GetFirstSpawnSeconds returns the launch time of the first vehicle.
func (c *TuningConfig) GetFirstSpawnSeconds() float64 {
	if c.FirstSpawnSeconds == nil {
		return 30
	}
	return *c.FirstSpawnSeconds
}

// GetSpawnTailSeconds returns how long before the end of the run spawning stops.
func (c *TuningConfig) GetSpawnTailSeconds() float64 {
	if c.SpawnTailSeconds == nil {
		return 120
	}
	return *c.SpawnTailSeconds
}

// GetWindowBackSeconds returns the sliding window look-back.
func (c *TuningConfig) GetWindowBackSeconds() float64 {
	if c.WindowBackSeconds == nil {
		return 30
	}
	return *c.WindowBackSeconds
}

// GetWindowAheadSeconds returns the sliding window look-ahead.
func (c *TuningConfig) GetWindowAheadSeconds() float64 {
	if c.WindowAheadSeconds == nil {
		return 870
	}
	return *c.WindowAheadSeconds
}

// GetWindowRefreshSeconds returns the simulated time between window refreshes.
func (c *TuningConfig) GetWindowRefreshSeconds() float64 {
	if c.WindowRefreshSeconds == nil {
		return 300
	}
	return *c.WindowRefreshSeconds
}

// GetMaxSteps returns the per-vehicle integration step limit.
func (c *TuningConfig) GetMaxSteps() int {
	if c.MaxSteps == nil {
		return 20000
	}
	return *c.MaxSteps
}

// GetFleetWorkers returns the fleet goroutine limit (0 = GOMAXPROCS).
func (c *TuningConfig) GetFleetWorkers() int {
	if c.FleetWorkers == nil {
		return 0
	}
	return *c.FleetWorkers
}

// GetProgressInterval parses and returns the ProgressInterval as a time.Duration.
func (c *TuningConfig) GetProgressInterval() time.Duration {
	if c.ProgressInterval == nil || *c.ProgressInterval == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(*c.ProgressInterval)
	if err != nil {
		return 5 * time.Second
	}
	return d
}
