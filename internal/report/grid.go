package report

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/plot/plotter"

	"github.com/banshee-data/speedfield/internal/speedfield"
)

// ErrGridTooSmall is returned when a grid has fewer than two time or space
// columns, which a heatmap cannot lay out.
var ErrGridTooSmall = errors.New("report: grid needs at least 2 time and 2 space indices")

// denseGrid adapts a SmoothedGrid to plotter.GridXYZ. Columns are time
// indices, rows are space indices, and cells without a smoothed point are
// NaN so the heatmap leaves them blank.
type denseGrid struct {
	tMin, xMin int
	cols, rows int
	res        speedfield.Resolution
	z          []float64
}

var _ plotter.GridXYZ = (*denseGrid)(nil)

func newDenseGrid(g speedfield.SmoothedGrid, res speedfield.Resolution) (*denseGrid, error) {
	tMin, tMax, xMin, xMax, err := g.Bounds()
	if err != nil {
		return nil, err
	}
	d := &denseGrid{
		tMin: tMin, xMin: xMin,
		cols: tMax - tMin + 1,
		rows: xMax - xMin + 1,
		res:  res,
	}
	if d.cols < 2 || d.rows < 2 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrGridTooSmall, d.cols, d.rows)
	}
	d.z = make([]float64, d.cols*d.rows)
	for i := range d.z {
		d.z[i] = math.NaN()
	}
	for _, p := range g {
		d.z[(p.TIndex-tMin)*d.rows+(p.XIndex-xMin)] = p.Speed
	}
	return d, nil
}

func (d *denseGrid) Dims() (c, r int) { return d.cols, d.rows }

func (d *denseGrid) Z(c, r int) float64 { return d.z[c*d.rows+r] }

func (d *denseGrid) X(c int) float64 { return d.res.Time(d.tMin + c) }

func (d *denseGrid) Y(r int) float64 { return d.res.Milemarker(d.xMin + r) }
