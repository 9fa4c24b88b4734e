package speedfield

import (
	"math"
	"sort"
)

// boundaryEps widens binary-search bounds so that the closed |Δ| <= half
// checks decide membership, not float rounding in the search key.
const boundaryEps = 1e-9

// FieldPoint is a speed at a physical (time, space) coordinate.
type FieldPoint struct {
	T     float64 // seconds
	X     float64 // miles
	Speed float64 // mph
}

// SpeedField is an immutable set of FieldPoints ordered by time then space.
// Sub-fields returned by Window share storage with their parent.
type SpeedField struct {
	points []FieldPoint
}

// NewSpeedField copies and orders pts.
func NewSpeedField(pts []FieldPoint) SpeedField {
	cp := make([]FieldPoint, len(pts))
	copy(cp, pts)
	sort.Slice(cp, func(i, j int) bool {
		if cp[i].T != cp[j].T {
			return cp[i].T < cp[j].T
		}
		return cp[i].X < cp[j].X
	})
	return SpeedField{points: cp}
}

// Len returns the number of points.
func (f SpeedField) Len() int { return len(f.points) }

// Points exposes the ordered points. Callers must not modify the slice.
func (f SpeedField) Points() []FieldPoint { return f.points }

// TimeRange returns the earliest and latest point times.
func (f SpeedField) TimeRange() (lo, hi float64, ok bool) {
	if len(f.points) == 0 {
		return 0, 0, false
	}
	return f.points[0].T, f.points[len(f.points)-1].T, true
}

// Window returns the points with after < T <= upTo.
func (f SpeedField) Window(after, upTo float64) SpeedField {
	lo := sort.Search(len(f.points), func(i int) bool { return f.points[i].T > after })
	hi := sort.Search(len(f.points), func(i int) bool { return f.points[i].T > upTo })
	if hi < lo {
		hi = lo
	}
	return SpeedField{points: f.points[lo:hi]}
}

// Box returns the points with |T-t| <= halfT and |X-x| <= halfX.
func (f SpeedField) Box(t, x, halfT, halfX float64) []FieldPoint {
	return f.AppendBox(nil, t, x, halfT, halfX)
}

// AppendBox is Box appending into dst, for callers that reuse a buffer.
func (f SpeedField) AppendBox(dst []FieldPoint, t, x, halfT, halfX float64) []FieldPoint {
	start := sort.Search(len(f.points), func(i int) bool {
		return f.points[i].T >= t-halfT-boundaryEps
	})
	for i := start; i < len(f.points); i++ {
		p := f.points[i]
		if p.T > t+halfT+boundaryEps {
			break
		}
		if math.Abs(p.T-t) <= halfT && math.Abs(p.X-x) <= halfX {
			dst = append(dst, p)
		}
	}
	return dst
}
