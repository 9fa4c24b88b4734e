package asm

import "math"

// Characteristic propagation speeds in mph. Free-flow information travels
// downstream with traffic (negative by convention); congested waves travel
// upstream.
const (
	DefaultFreeFlowSpeed  = -43.0
	DefaultCongestedSpeed = 13.0
)

// KernelWeight is the anisotropic exponential decay weight of an observation
// at (xs, ts) for a target at (x, t). The time offset is shifted by the
// travel time implied by characteristic speed c, so xWin and tWin must be
// positive and c non-zero. The result lies in (0, 1] and equals 1 only when
// both the spatial and the shifted temporal offsets are zero.
func KernelWeight(x, t, xs, ts, xWin, tWin, c float64) float64 {
	dx := x - xs
	dt := (t - ts) - 3600*dx/c
	return math.Exp(-(2*math.Abs(dx)/xWin + 2*math.Abs(dt)/tWin))
}

// FreeFlowWeight is KernelWeight with the default free-flow speed.
func FreeFlowWeight(x, t, xs, ts, xWin, tWin float64) float64 {
	return KernelWeight(x, t, xs, ts, xWin, tWin, DefaultFreeFlowSpeed)
}

// CongestedWeight is KernelWeight with the default congested wave speed.
func CongestedWeight(x, t, xs, ts, xWin, tWin float64) float64 {
	return KernelWeight(x, t, xs, ts, xWin, tWin, DefaultCongestedSpeed)
}
