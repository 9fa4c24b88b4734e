package trajectory

import (
	"context"
	"errors"
	"math"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/speedfield/internal/metrics"
	"github.com/banshee-data/speedfield/internal/monitoring"
	"github.com/banshee-data/speedfield/internal/speedfield"
	"github.com/banshee-data/speedfield/internal/testutil"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

// canonicalField covers the whole corridor at 0.02 mi and 4 s spacing.
func canonicalField(nT int, f func(t, x float64) float64) speedfield.SpeedField {
	return testutil.Field(testutil.Range(0, 4, nT), testutil.Range(0, 0.02, 216), f)
}

func uniform(v float64) func(float64, float64) float64 {
	return func(float64, float64) float64 { return v }
}

func wavy(t, x float64) float64 {
	return 35 + 25*math.Sin(t/60)*math.Cos(3*x)
}

func TestRunUniformSixtyMPH(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	in := NewIntegrator(canonicalField(120, uniform(60)), cfg)

	tr, err := in.Run(context.Background(), 30, 0)
	require.NoError(t, err)
	assert.Equal(t, speedfield.Complete, tr.Status)

	steps := int(math.Ceil((cfg.Length - cfg.Entrance) / (60.0 / 3600)))
	require.Len(t, tr.Samples, steps+1)

	first := tr.Samples[0]
	assert.Equal(t, 30.0, first.Time)
	assert.Equal(t, cfg.Entrance, first.Space)
	assert.InDelta(t, 60.0, first.Speed, 1e-9)

	for i := 1; i < len(tr.Samples); i++ {
		prev, cur := tr.Samples[i-1], tr.Samples[i]
		assert.Equal(t, 30.0+float64(i), cur.Time)
		assert.InDelta(t, 60.0/3600, cur.Space-prev.Space, 1e-12)
		assert.InDelta(t, 60.0, cur.Speed, 1e-9)
		assert.Equal(t, 0, cur.VehicleID)
	}
	last := tr.Samples[len(tr.Samples)-1]
	assert.GreaterOrEqual(t, last.Space, cfg.Length)
	assert.Less(t, tr.Samples[len(tr.Samples)-2].Space, cfg.Length)
}

func TestRunMonotoneAndBounded(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	in := NewIntegrator(canonicalField(700, wavy), cfg)

	for _, t0 := range []float64{30, 330, 630} {
		tr, err := in.Run(context.Background(), t0, int(t0/300))
		require.NoError(t, err)
		require.Equal(t, speedfield.Complete, tr.Status)
		for i := 1; i < len(tr.Samples); i++ {
			prev, cur := tr.Samples[i-1], tr.Samples[i]
			require.Greater(t, cur.Time, prev.Time)
			require.GreaterOrEqual(t, cur.Space, prev.Space)
		}
		last := tr.Samples[len(tr.Samples)-1]
		maxStep := last.Speed * cfg.Step / 3600
		assert.GreaterOrEqual(t, last.Space, cfg.Length)
		assert.LessOrEqual(t, last.Space-cfg.Length, maxStep+1e-12)
	}
}

func TestRunWindowMatchesFullRequery(t *testing.T) {
	t.Parallel()
	field := canonicalField(500, wavy)

	full := DefaultConfig()
	full.WindowBack, full.WindowAhead, full.RefreshInterval = 1e9, 1e9, 1e9
	want, err := NewIntegrator(field, full).Run(context.Background(), 130, 1)
	require.NoError(t, err)

	for _, c := range []struct{ back, ahead, refresh float64 }{
		{30, 870, 300}, // defaults
		{9, 20, 5},     // constant refreshing
		{1, 1, 1000},   // neighbourhood always outside the window
	} {
		cfg := DefaultConfig()
		cfg.WindowBack, cfg.WindowAhead, cfg.RefreshInterval = c.back, c.ahead, c.refresh
		got, err := NewIntegrator(field, cfg).Run(context.Background(), 130, 1)
		require.NoError(t, err)
		if diff := cmp.Diff(want, got, cmpopts.EquateNaNs()); diff != "" {
			t.Errorf("window %+v differs from full requery (-want +got):\n%s", c, diff)
		}
	}
}

func TestRunStallsWithoutEstimate(t *testing.T) {
	t.Parallel()
	m := metrics.NewCollector()
	in := NewIntegrator(speedfield.SpeedField{}, DefaultConfig())
	in.Metrics = m

	tr, err := in.Run(context.Background(), 30, 4)
	require.NoError(t, err)
	assert.Equal(t, speedfield.Stalled, tr.Status)
	require.Len(t, tr.Samples, 2)
	assert.True(t, math.IsNaN(tr.Samples[0].Speed))
	assert.True(t, math.IsNaN(tr.Samples[1].Speed))
	assert.Equal(t, 31.0, tr.Samples[1].Time)
	assert.Equal(t, 0.32, tr.Samples[1].Space)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.UndefinedInterpolations))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.Trajectories.WithLabelValues("stalled")))
}

func TestRunStallsAtFieldEdge(t *testing.T) {
	t.Parallel()
	// Columns stop at 2 miles, so the vehicle loses its estimate there.
	field := testutil.Field(testutil.Range(0, 4, 200), testutil.Range(0, 0.02, 101), uniform(60))
	tr, err := NewIntegrator(field, DefaultConfig()).Run(context.Background(), 30, 0)
	require.NoError(t, err)
	assert.Equal(t, speedfield.Stalled, tr.Status)

	n := len(tr.Samples)
	last, prev := tr.Samples[n-1], tr.Samples[n-2]
	assert.True(t, math.IsNaN(last.Speed))
	assert.Equal(t, prev.Space, last.Space)
	assert.Greater(t, last.Time, prev.Time)
	assert.Greater(t, last.Space, 2.0)
	assert.Less(t, last.Space, 2.0+60.0/3600+1e-9)
}

func TestRunMaxStepsAndStationaryTraffic(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.MaxSteps = 10
	tr, err := NewIntegrator(canonicalField(60, uniform(60)), cfg).Run(context.Background(), 30, 0)
	require.NoError(t, err)
	assert.Equal(t, speedfield.Stalled, tr.Status)
	assert.Len(t, tr.Samples, 11)

	cfg.MaxSteps = 50
	tr, err = NewIntegrator(canonicalField(60, uniform(0)), cfg).Run(context.Background(), 30, 0)
	require.NoError(t, err)
	assert.Equal(t, speedfield.Stalled, tr.Status)
	for _, s := range tr.Samples {
		assert.Equal(t, cfg.Entrance, s.Space)
	}
}

func TestRunClampsNegativeEstimates(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.MaxSteps = 20
	tr, err := NewIntegrator(canonicalField(60, uniform(-5)), cfg).Run(context.Background(), 30, 0)
	require.NoError(t, err)
	for _, s := range tr.Samples[1:] {
		assert.Equal(t, 0.0, s.Speed)
		assert.Equal(t, cfg.Entrance, s.Space)
	}
}

func TestRunFractionalStepTimes(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Step = 0.33
	tr, err := NewIntegrator(canonicalField(120, uniform(60)), cfg).Run(context.Background(), 30, 0)
	require.NoError(t, err)
	require.Equal(t, speedfield.Complete, tr.Status)
	for i, s := range tr.Samples {
		assert.InDelta(t, 30+0.33*float64(i), s.Time, 1e-6)
	}
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewIntegrator(canonicalField(150, uniform(10)), DefaultConfig()).Run(ctx, 30, 0)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()
	require.NoError(t, DefaultConfig().Validate())

	mutate := []func(*Config){
		func(c *Config) { c.Step = 0 },
		func(c *Config) { c.Entrance = -1 },
		func(c *Config) { c.Entrance = c.Length },
		func(c *Config) { c.WindowAhead = 0 },
		func(c *Config) { c.RefreshInterval = -1 },
		func(c *Config) { c.MaxSteps = 0 },
		func(c *Config) { c.Interp.HalfX = 0 },
	}
	for i, m := range mutate {
		cfg := DefaultConfig()
		m(&cfg)
		assert.Error(t, cfg.Validate(), "case %d", i)
		_, err := NewIntegrator(speedfield.SpeedField{}, cfg).Run(context.Background(), 30, 0)
		assert.Error(t, err, "case %d", i)
	}
}
