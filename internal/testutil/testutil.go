// Package testutil provides shared test utilities and fixtures.
//
// This package centralises grid and field builders used by the smoothing,
// interpolation, and trajectory tests.
package testutil

import (
	"math"
	"testing"

	"github.com/banshee-data/speedfield/internal/speedfield"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// RawGrid builds an nT x nX raw grid in time-major order. A NaN from f
// produces a missing observation.
func RawGrid(nT, nX int, f func(ti, xi int) float64) []speedfield.RawObservation {
	out := make([]speedfield.RawObservation, 0, nT*nX)
	for ti := 0; ti < nT; ti++ {
		for xi := 0; xi < nX; xi++ {
			v := f(ti, xi)
			if math.IsNaN(v) {
				out = append(out, speedfield.Missing(ti, xi))
				continue
			}
			out = append(out, speedfield.Observed(ti, xi, v))
		}
	}
	return out
}

// UniformRawGrid builds a raw grid where every cell reports speed.
func UniformRawGrid(nT, nX int, speed float64) []speedfield.RawObservation {
	return RawGrid(nT, nX, func(int, int) float64 { return speed })
}

// SmoothedGrid builds a smoothed grid whose speed at each cell is f(time,
// milemarker), using res for the physical coordinates.
func SmoothedGrid(res speedfield.Resolution, nT, nX int, f func(t, mm float64) float64) speedfield.SmoothedGrid {
	out := make(speedfield.SmoothedGrid, 0, nT*nX)
	for ti := 0; ti < nT; ti++ {
		for xi := 0; xi < nX; xi++ {
			t, mm := res.Time(ti), res.Milemarker(xi)
			v := f(t, mm)
			out = append(out, speedfield.SmoothedPoint{
				TIndex:     ti,
				XIndex:     xi,
				Raw:        v,
				HasRaw:     true,
				Time:       t,
				Milemarker: mm,
				Speed:      v,
			})
		}
	}
	return out
}

// UniformSmoothedGrid builds a smoothed grid with a constant speed.
func UniformSmoothedGrid(res speedfield.Resolution, nT, nX int, speed float64) speedfield.SmoothedGrid {
	return SmoothedGrid(res, nT, nX, func(float64, float64) float64 { return speed })
}

// Field builds a SpeedField on the lattice ts x xs with speed f(t, x).
func Field(ts, xs []float64, f func(t, x float64) float64) speedfield.SpeedField {
	pts := make([]speedfield.FieldPoint, 0, len(ts)*len(xs))
	for _, t := range ts {
		for _, x := range xs {
			pts = append(pts, speedfield.FieldPoint{T: t, X: x, Speed: f(t, x)})
		}
	}
	return speedfield.NewSpeedField(pts)
}

// Range returns n values start, start+step, ...
func Range(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}
