package report

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/speedfield/internal/fsutil"
	"github.com/banshee-data/speedfield/internal/speedfield"
)

// maxHTMLTrajectories caps the overlay so large fleets stay responsive.
const maxHTMLTrajectories = 200

// HeatmapHTML renders grid as an interactive scatter heatmap coloured by
// speed, with trajectory samples overlaid as a second series.
func HeatmapHTML(w io.Writer, title string, grid speedfield.SmoothedGrid, set speedfield.TrajectorySet) error {
	if len(grid) == 0 {
		return speedfield.ErrEmptyGrid
	}
	data := make([]opts.ScatterData, 0, len(grid))
	for _, p := range grid {
		data = append(data, opts.ScatterData{Value: []interface{}{p.Time, p.Milemarker, round2(p.Speed)}})
	}

	var traj []opts.ScatterData
	for i, tr := range set {
		if i >= maxHTMLTrajectories {
			break
		}
		for _, s := range tr.Samples {
			if math.IsNaN(s.Speed) {
				continue
			}
			traj = append(traj, opts.ScatterData{Value: []interface{}{s.Time, s.Space, round2(s.Speed)}, Name: fmt.Sprintf("vehicle %d", tr.VehicleID)})
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1400px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("points=%d vehicles=%d", len(grid), len(set))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time (s)", NameLocation: "middle", NameGap: 25, Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Milemarker", NameLocation: "middle", NameGap: 40, Type: "value", Min: "dataMin", Max: "dataMax"}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        MinPlotSpeed,
			Max:        MaxPlotSpeed,
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: hexColors(speedColors(10))},
		}),
	)
	scatter.AddSeries("speed", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	if len(traj) > 0 {
		scatter.AddSeries("trajectories", traj,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 2}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "#000000"}))
	}

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// SaveHeatmapHTML writes the HTML heatmap to path.
func SaveHeatmapHTML(fsys fsutil.FileSystem, path, title string, grid speedfield.SmoothedGrid, set speedfield.TrajectorySet) (err error) {
	f, err := fsutil.CreateAll(fsys, path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return HeatmapHTML(f, title, grid, set)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
