package speedfield

import (
	"errors"
	"fmt"
	"math"
)

// ErrEmptyGrid is returned when an operation needs at least one grid row.
var ErrEmptyGrid = errors.New("speedfield: empty grid")

// RawObservation is one sample on the regular (time index, space index) grid.
// Valid is false when the detector reported no speed for the cell.
type RawObservation struct {
	TIndex int
	XIndex int
	Speed  float64 // mph
	Valid  bool
}

// Observed builds a RawObservation carrying a speed.
func Observed(tIndex, xIndex int, speed float64) RawObservation {
	return RawObservation{TIndex: tIndex, XIndex: xIndex, Speed: speed, Valid: true}
}

// Missing builds a RawObservation with no speed.
func Missing(tIndex, xIndex int) RawObservation {
	return RawObservation{TIndex: tIndex, XIndex: xIndex, Speed: math.NaN()}
}

// Resolution maps grid indices to physical units.
type Resolution struct {
	DT     float64 // seconds per time index
	DX     float64 // miles per space index
	Offset float64 // milemarker of space index 0
}

// DefaultResolution matches the 4 s x 0.02 mi Edie boxes of the I-24 testbed.
func DefaultResolution() Resolution {
	return Resolution{DT: 4, DX: 0.02, Offset: 58.7}
}

// Validate rejects non-positive cell sizes.
func (r Resolution) Validate() error {
	if !(r.DT > 0) {
		return fmt.Errorf("time resolution must be positive, got %v", r.DT)
	}
	if !(r.DX > 0) {
		return fmt.Errorf("space resolution must be positive, got %v", r.DX)
	}
	return nil
}

// Time returns the time in seconds of a time index.
func (r Resolution) Time(tIndex int) float64 {
	return r.DT * float64(tIndex)
}

// Milemarker returns the milemarker of a space index.
func (r Resolution) Milemarker(xIndex int) float64 {
	return r.DX*float64(xIndex) + r.Offset
}

// Corridor is the monitored roadway segment. Milemarkers decrease in the
// direction of travel, so simulation runs on the reflected, increasing axis
// returned by Reflect.
type Corridor struct {
	StartMilemarker float64
	Length          float64 // miles
}

// DefaultCorridor is the 4.3 mile segment starting at milemarker 58.7.
func DefaultCorridor() Corridor {
	return Corridor{StartMilemarker: 58.7, Length: 4.3}
}

// End returns the far milemarker of the corridor.
func (c Corridor) End() float64 {
	return c.StartMilemarker + c.Length
}

// Reflect converts between milemarkers and canonical travel distance.
// The mapping is its own inverse.
func (c Corridor) Reflect(v float64) float64 {
	return c.End() - v
}

// SmoothedPoint is one row of the smoothed table. Raw is only meaningful
// when HasRaw is set.
type SmoothedPoint struct {
	TIndex     int
	XIndex     int
	Raw        float64
	HasRaw     bool
	Time       float64
	Milemarker float64
	Speed      float64
}

// SmoothedGrid is the Field Smoother output, one row per raw grid cell.
type SmoothedGrid []SmoothedPoint

// Field returns the smoothed speeds keyed by (time, milemarker).
func (g SmoothedGrid) Field() SpeedField {
	pts := make([]FieldPoint, len(g))
	for i, p := range g {
		pts[i] = FieldPoint{T: p.Time, X: p.Milemarker, Speed: p.Speed}
	}
	return NewSpeedField(pts)
}

// CanonicalField returns the smoothed speeds keyed by (time, distance
// travelled along the corridor).
func (g SmoothedGrid) CanonicalField(c Corridor) SpeedField {
	pts := make([]FieldPoint, len(g))
	for i, p := range g {
		pts[i] = FieldPoint{T: p.Time, X: c.Reflect(p.Milemarker), Speed: p.Speed}
	}
	return NewSpeedField(pts)
}

// Bounds returns the index extents of the grid.
func (g SmoothedGrid) Bounds() (tMin, tMax, xMin, xMax int, err error) {
	if len(g) == 0 {
		return 0, 0, 0, 0, ErrEmptyGrid
	}
	tMin, tMax = g[0].TIndex, g[0].TIndex
	xMin, xMax = g[0].XIndex, g[0].XIndex
	for _, p := range g[1:] {
		tMin = min(tMin, p.TIndex)
		tMax = max(tMax, p.TIndex)
		xMin = min(xMin, p.XIndex)
		xMax = max(xMax, p.XIndex)
	}
	return tMin, tMax, xMin, xMax, nil
}
