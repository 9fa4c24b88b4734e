package report

import (
	"bytes"
	"errors"
	"image/color"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/speedfield/internal/fsutil"
	"github.com/banshee-data/speedfield/internal/speedfield"
	"github.com/banshee-data/speedfield/internal/testutil"
	"github.com/banshee-data/speedfield/internal/units"
)

func sampleGrid() speedfield.SmoothedGrid {
	return testutil.SmoothedGrid(speedfield.DefaultResolution(), 20, 10, func(t, mm float64) float64 {
		return 20 + t/2
	})
}

func sampleSet() speedfield.TrajectorySet {
	return speedfield.TrajectorySet{
		{VehicleID: 0, Status: speedfield.Complete, Samples: []speedfield.Sample{
			{Time: 0, Space: 58.88, Speed: 40}, {Time: 10, Space: 58.8, Speed: 60}, {Time: 20, Space: 58.7, Speed: 50},
		}},
		{VehicleID: 1, Status: speedfield.Complete, Samples: []speedfield.Sample{
			{Time: 30, Space: 58.88, Speed: 30}, {Time: 60, Space: 58.7, Speed: 30},
		}},
		{VehicleID: 2, Status: speedfield.Stalled, Samples: []speedfield.Sample{
			{Time: 40, Space: 58.88, Speed: 20}, {Time: 41, Space: 58.87, Speed: math.NaN()},
		}},
	}
}

func TestSpeedColorsRunRedToGreen(t *testing.T) {
	t.Parallel()
	c := speedColors(3)
	require.Len(t, c, 3)
	r, g, _, _ := c[0].RGBA()
	assert.Greater(t, r, g, "slowest colour should be red")
	r, g, _, _ = c[2].RGBA()
	assert.Greater(t, g, r, "fastest colour should be green")
	assert.Nil(t, speedColors(0))
	assert.Len(t, speedPalette{n: 5}.Colors(), 5)

	assert.Equal(t, []string{"#ff0000"}, hexColors([]color.Color{color.RGBA{R: 255, A: 255}}))
}

func TestHSLToRGB(t *testing.T) {
	t.Parallel()
	r, g, b := hslToRGB(0, 0, 0.5)
	assert.Equal(t, r, g)
	assert.Equal(t, g, b)
	r, g, b = hslToRGB(1.0/3.0, 1, 0.5)
	assert.Equal(t, [3]uint8{0, 255, 0}, [3]uint8{r, g, b})
}

func TestDenseGrid(t *testing.T) {
	t.Parallel()
	g := sampleGrid()
	d, err := newDenseGrid(g[1:], speedfield.DefaultResolution())
	require.NoError(t, err)
	c, r := d.Dims()
	assert.Equal(t, 20, c)
	assert.Equal(t, 10, r)
	assert.True(t, math.IsNaN(d.Z(0, 0)), "dropped cell should be blank")
	assert.Equal(t, 20.0, d.Z(0, 1))
	assert.Equal(t, 8.0, d.X(2))
	assert.InDelta(t, 58.76, d.Y(3), 1e-9)

	_, err = newDenseGrid(g[:1], speedfield.DefaultResolution())
	assert.True(t, errors.Is(err, ErrGridTooSmall))
	_, err = newDenseGrid(nil, speedfield.DefaultResolution())
	assert.True(t, errors.Is(err, speedfield.ErrEmptyGrid))
}

func TestClockTicks(t *testing.T) {
	t.Parallel()
	ticks := clockTicks{startUnix: 1700000000, tz: "UTC"}.Ticks(0, 3600)
	require.NotEmpty(t, ticks)
	var labelled int
	for _, tk := range ticks {
		if tk.Label == "" {
			continue
		}
		labelled++
		assert.Regexp(t, `^\d\d:\d\d$`, tk.Label)
	}
	assert.Positive(t, labelled)
}

func TestWriteHeatmap(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	o := DefaultHeatmapOptions()
	o.Width, o.Height = 200, 100
	require.NoError(t, WriteHeatmap(&buf, sampleGrid(), sampleSet(), o))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))

	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, SaveHeatmap(fsys, "out/plots/heatmap.png", sampleGrid(), nil, o))
	assert.True(t, fsys.Exists("out/plots/heatmap.png"))

	o.Format = "bmp"
	assert.Error(t, WriteHeatmap(&buf, sampleGrid(), nil, o))
}

func TestHeatmapHTML(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, HeatmapHTML(&buf, "Corridor", sampleGrid(), sampleSet()))
	html := buf.String()
	assert.Contains(t, html, "Corridor")
	assert.Contains(t, html, "trajectories")

	assert.True(t, errors.Is(HeatmapHTML(&buf, "empty", nil, nil), speedfield.ErrEmptyGrid))

	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, SaveHeatmapHTML(fsys, "out/heatmap.html", "Corridor", sampleGrid(), nil))
	data, err := fsys.ReadFile("out/heatmap.html")
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "echarts"))
}

func TestSummarize(t *testing.T) {
	t.Parallel()
	s := Summarize(sampleSet())
	assert.Equal(t, 3, s.Vehicles)
	assert.Equal(t, 1, s.Stalled)
	assert.InDelta(t, 25.0, s.MeanTravelTime, 1e-9)
	assert.InDelta(t, math.Sqrt(50), s.StdTravelTime, 1e-9)
	assert.Equal(t, 20.0, s.MinTravelTime)
	assert.Equal(t, 30.0, s.MaxTravelTime)
	assert.InDelta(t, 230.0/6, s.MeanSpeed, 1e-9)

	var buf bytes.Buffer
	require.NoError(t, s.Write(&buf, units.MPH))
	assert.Contains(t, buf.String(), "vehicles: 3 (stalled 1)")
	assert.Contains(t, buf.String(), "mph")
}

func TestSummarizeEmpty(t *testing.T) {
	t.Parallel()
	s := Summarize(nil)
	assert.Zero(t, s.Vehicles)
	assert.True(t, math.IsNaN(s.MeanTravelTime))
	assert.True(t, math.IsNaN(s.MeanSpeed))

	one := Summarize(sampleSet()[:1])
	assert.Equal(t, 20.0, one.MeanTravelTime)
	assert.Zero(t, one.StdTravelTime)
}
