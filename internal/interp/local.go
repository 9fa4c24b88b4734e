package interp

import (
	"math"
	"sort"
	"sync"

	gointerp "gonum.org/v1/gonum/interp"

	"github.com/banshee-data/speedfield/internal/speedfield"
)

// Default neighbourhood half-widths.
const (
	DefaultHalfT = 8.0  // seconds
	DefaultHalfX = 0.04 // miles
)

// columnEps groups points into one space column and dedupes knot times.
const columnEps = 1e-7

// Status tells a caller whether Result.Speed can be used.
type Status int

const (
	Valid     Status = iota // Speed holds an estimate
	Undefined               // the neighbourhood could not support a fit
)

func (s Status) String() string {
	switch s {
	case Valid:
		return "valid"
	case Undefined:
		return "undefined"
	default:
		return "unknown"
	}
}

// Result is an interpolated speed. Speed is NaN unless Status is Valid.
type Result struct {
	Speed  float64
	Status Status
}

// OK reports whether the result carries an estimate.
func (r Result) OK() bool { return r.Status == Valid }

func undefined() Result { return Result{Speed: math.NaN(), Status: Undefined} }

// Local interpolates within the box |T-t| <= HalfT, |X-x| <= HalfX.
// The zero value is not useful; use NewLocal or set both half-widths.
type Local struct {
	HalfT float64
	HalfX float64
}

// NewLocal returns a Local with the default neighbourhood.
func NewLocal() Local {
	return Local{HalfT: DefaultHalfT, HalfX: DefaultHalfX}
}

var scratchPool = sync.Pool{
	New: func() any {
		buf := make([]speedfield.FieldPoint, 0, 64)
		return &buf
	},
}

// At estimates the speed at (t, x). Points are grouped into space columns;
// each column that spans t is fitted along time, and the column estimates
// are then fitted across space. At least two column estimates must span x.
func (l Local) At(field speedfield.SpeedField, t, x float64) Result {
	bufp := scratchPool.Get().(*[]speedfield.FieldPoint)
	defer func() {
		*bufp = (*bufp)[:0]
		scratchPool.Put(bufp)
	}()

	box := field.AppendBox((*bufp)[:0], t, x, l.HalfT, l.HalfX)
	*bufp = box
	if len(box) < 4 {
		return undefined()
	}
	sort.Slice(box, func(i, j int) bool {
		if box[i].X != box[j].X {
			return box[i].X < box[j].X
		}
		return box[i].T < box[j].T
	})

	var colX, colV []float64
	for start := 0; start < len(box); {
		end := start + 1
		for end < len(box) && box[end].X-box[start].X <= columnEps {
			end++
		}
		if v, ok := fitColumn(box[start:end], t); ok {
			colX = append(colX, box[start].X)
			colV = append(colV, v)
		}
		start = end
	}

	if len(colX) < 2 || x < colX[0]-columnEps || x > colX[len(colX)-1]+columnEps {
		return undefined()
	}
	v, ok := fit(colX, colV, x)
	if !ok {
		return undefined()
	}
	return Result{Speed: v, Status: Valid}
}

// fitColumn interpolates one space column, ordered by time, at t.
func fitColumn(col []speedfield.FieldPoint, t float64) (float64, bool) {
	ts := make([]float64, 0, len(col))
	vs := make([]float64, 0, len(col))
	for _, p := range col {
		if n := len(ts); n > 0 && p.T-ts[n-1] <= columnEps {
			continue
		}
		ts = append(ts, p.T)
		vs = append(vs, p.Speed)
	}
	if len(ts) < 2 || t < ts[0]-columnEps || t > ts[len(ts)-1]+columnEps {
		return 0, false
	}
	return fit(ts, vs, t)
}

func fit(xs, ys []float64, at float64) (float64, bool) {
	for _, y := range ys {
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return 0, false
		}
	}
	var nc gointerp.NaturalCubic
	if err := nc.Fit(xs, ys); err != nil {
		return 0, false
	}
	v := nc.Predict(at)
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
