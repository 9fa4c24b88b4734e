package testutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/speedfield/internal/speedfield"
)

func TestRawGrid(t *testing.T) {
	t.Parallel()
	g := RawGrid(2, 3, func(ti, xi int) float64 {
		if ti == 1 && xi == 2 {
			return math.NaN()
		}
		return float64(ti*10 + xi)
	})
	require.Len(t, g, 6)
	assert.Equal(t, speedfield.Observed(0, 1, 1), g[1])
	assert.False(t, g[5].Valid)
	assert.Equal(t, 1, g[5].TIndex)
	assert.Equal(t, 2, g[5].XIndex)
}

func TestSmoothedGrid(t *testing.T) {
	t.Parallel()
	res := speedfield.DefaultResolution()
	g := UniformSmoothedGrid(res, 3, 2, 55)
	require.Len(t, g, 6)
	last := g[len(g)-1]
	assert.Equal(t, 8.0, last.Time)
	assert.InDelta(t, 58.72, last.Milemarker, 1e-12)
	assert.Equal(t, 55.0, last.Speed)
}

func TestField(t *testing.T) {
	t.Parallel()
	f := Field(Range(0, 1, 3), Range(0, 0.5, 2), func(t, x float64) float64 { return t + x })
	require.Equal(t, 6, f.Len())
	assert.Equal(t, 2.5, f.Points()[5].Speed)
}

func TestAssertHelpers(t *testing.T) {
	AssertNoError(t, nil)
	AssertError(t, assert.AnError)
}
