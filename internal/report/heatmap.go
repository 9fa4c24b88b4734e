package report

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/speedfield/internal/fsutil"
	"github.com/banshee-data/speedfield/internal/speedfield"
	"github.com/banshee-data/speedfield/internal/units"
)

// HeatmapOptions controls the static heatmap rendering.
type HeatmapOptions struct {
	Title      string
	Resolution speedfield.Resolution
	StartUnix  int64  // wall-clock time of t = 0
	Timezone   string // IANA name, empty for UTC
	Width      vg.Length
	Height     vg.Length
	Format     string // png, svg, pdf
	Colors     int
}

// DefaultHeatmapOptions returns a 14x6 inch PNG with 64 colour steps.
func DefaultHeatmapOptions() HeatmapOptions {
	return HeatmapOptions{
		Title:      "Smoothed speed",
		Resolution: speedfield.DefaultResolution(),
		Width:      14 * vg.Inch,
		Height:     6 * vg.Inch,
		Format:     "png",
		Colors:     64,
	}
}

// clockTicks labels the time axis with HH:MM wall-clock times.
type clockTicks struct {
	startUnix int64
	tz        string
}

func (c clockTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i, t := range ticks {
		if t.Label == "" {
			continue
		}
		wall, err := units.ClockTime(c.startUnix, t.Value, c.tz)
		if err != nil {
			continue
		}
		ticks[i].Label = wall.Format("15:04")
	}
	return ticks
}

// HeatmapPlot builds a time/milemarker heatmap of grid with one line per
// trajectory overlaid. Trajectory space is in milemarkers. The milemarker
// axis is inverted so vehicles travel up the page.
func HeatmapPlot(grid speedfield.SmoothedGrid, set speedfield.TrajectorySet, o HeatmapOptions) (*plot.Plot, error) {
	dense, err := newDenseGrid(grid, o.Resolution)
	if err != nil {
		return nil, err
	}
	if o.Colors <= 1 {
		o.Colors = 64
	}

	p := plot.New()
	p.Title.Text = o.Title
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "Milemarker"
	p.X.Tick.Marker = clockTicks{startUnix: o.StartUnix, tz: o.Timezone}
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}

	h := plotter.NewHeatMap(dense, speedPalette{n: o.Colors})
	h.Min, h.Max = MinPlotSpeed, MaxPlotSpeed
	colors := speedColors(o.Colors)
	h.Underflow = colors[0]
	h.Overflow = colors[len(colors)-1]
	p.Add(h)

	for _, tr := range set {
		pts := make(plotter.XYs, 0, len(tr.Samples))
		for _, s := range tr.Samples {
			pts = append(pts, plotter.XY{X: s.Time, Y: s.Space})
		}
		if len(pts) < 2 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("trajectory %d: %w", tr.VehicleID, err)
		}
		line.Width = vg.Points(0.6)
		line.Color = color.Black
		p.Add(line)
	}
	return p, nil
}

// WriteHeatmap renders the heatmap to w in o.Format.
func WriteHeatmap(w io.Writer, grid speedfield.SmoothedGrid, set speedfield.TrajectorySet, o HeatmapOptions) error {
	p, err := HeatmapPlot(grid, set, o)
	if err != nil {
		return err
	}
	format := o.Format
	if format == "" {
		format = "png"
	}
	wt, err := p.WriterTo(o.Width, o.Height, format)
	if err != nil {
		return fmt.Errorf("render heatmap: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write heatmap: %w", err)
	}
	return nil
}

// SaveHeatmap renders the heatmap into a file, creating parent directories.
func SaveHeatmap(fsys fsutil.FileSystem, path string, grid speedfield.SmoothedGrid, set speedfield.TrajectorySet, o HeatmapOptions) (err error) {
	f, err := fsutil.CreateAll(fsys, path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return WriteHeatmap(f, grid, set, o)
}
