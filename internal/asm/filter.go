package asm

import (
	"fmt"
	"math"
	"sync"

	"github.com/banshee-data/speedfield/internal/config"
	"github.com/banshee-data/speedfield/internal/speedfield"
)

// Params holds the smoothing windows, regime speeds, and blend shape.
type Params struct {
	XWindow         float64 // miles, full box width
	TWindow         float64 // seconds, full box height
	CFree           float64 // mph, negative
	CCong           float64 // mph, positive
	CriticalSpeed   float64 // mph, centre of the regime transition
	TransitionWidth float64 // mph
	FallbackSpeed   float64 // mph, used when the box holds no observations
}

// DefaultParams returns the published smoothing parameters.
func DefaultParams() Params {
	return ParamsFromTuning(config.EmptyTuningConfig())
}

// ParamsFromTuning reads smoothing parameters from cfg, defaulting unset keys.
func ParamsFromTuning(cfg *config.TuningConfig) Params {
	return Params{
		XWindow:         cfg.GetSmoothXWindowMiles(),
		TWindow:         cfg.GetSmoothTWindowSeconds(),
		CFree:           cfg.GetCFreeMPH(),
		CCong:           cfg.GetCCongMPH(),
		CriticalSpeed:   cfg.GetCriticalSpeedMPH(),
		TransitionWidth: cfg.GetTransitionWidthMPH(),
		FallbackSpeed:   cfg.GetFallbackSpeedMPH(),
	}
}

// Validate rejects parameters for which the kernel is undefined.
func (p Params) Validate() error {
	if !(p.XWindow > 0) {
		return fmt.Errorf("spatial window must be positive, got %v", p.XWindow)
	}
	if !(p.TWindow > 0) {
		return fmt.Errorf("temporal window must be positive, got %v", p.TWindow)
	}
	if !(p.CFree < 0) {
		return fmt.Errorf("free-flow characteristic speed must be negative, got %v", p.CFree)
	}
	if !(p.CCong > 0) {
		return fmt.Errorf("congested characteristic speed must be positive, got %v", p.CCong)
	}
	if !(p.TransitionWidth > 0) {
		return fmt.Errorf("transition width must be positive, got %v", p.TransitionWidth)
	}
	if math.IsNaN(p.CriticalSpeed) || math.IsNaN(p.FallbackSpeed) {
		return fmt.Errorf("critical and fallback speeds must be numbers")
	}
	return nil
}

// Estimate is a regime speed that may be unavailable.
type Estimate struct {
	Speed float64
	OK    bool
}

// OrDefault returns the speed, or fallback when the estimate is unavailable.
func (e Estimate) OrDefault(fallback float64) float64 {
	if !e.OK {
		return fallback
	}
	return e.Speed
}

// BlendWeight is the congested share of the blend for a regime speed v. It
// decreases monotonically from 1 to 0 as v rises through critical.
func BlendWeight(v, critical, width float64) float64 {
	return 0.5 * (1 + math.Tanh((critical-v)/width))
}

// Blend is the result of filtering one target point.
type Blend struct {
	Free      Estimate
	Congested Estimate
	Weight    float64 // congested share
	Speed     float64
}

// Fallback reports whether the fallback speed replaced the regime estimates.
func (b Blend) Fallback() bool {
	return !(b.Free.OK && b.Congested.OK)
}

// Filter evaluates the regime-blending kernel at single target points.
// It is safe for concurrent use.
type Filter struct {
	Params Params
}

// NewFilter creates a filter with p.
func NewFilter(p Params) Filter {
	return Filter{Params: p}
}

var boxPool = sync.Pool{
	New: func() any {
		buf := make([]speedfield.FieldPoint, 0, 256)
		return &buf
	},
}

// At blends the free-flow and congested estimates at (t, x) from the source
// observations inside the box |xs-x| <= XWindow/2, |ts-t| <= TWindow/2.
func (f Filter) At(src speedfield.SpeedField, t, x float64) Blend {
	bufp := boxPool.Get().(*[]speedfield.FieldPoint)
	box := src.AppendBox((*bufp)[:0], t, x, f.Params.TWindow/2, f.Params.XWindow/2)
	b := f.blend(box, t, x)
	*bufp = box[:0]
	boxPool.Put(bufp)
	return b
}

func (f Filter) blend(box []speedfield.FieldPoint, t, x float64) Blend {
	p := f.Params
	var sumFree, sumCong, accFree, accCong float64
	for _, o := range box {
		wf := KernelWeight(x, t, o.X, o.T, p.XWindow, p.TWindow, p.CFree)
		wc := KernelWeight(x, t, o.X, o.T, p.XWindow, p.TWindow, p.CCong)
		sumFree += wf
		sumCong += wc
		accFree += wf * o.Speed
		accCong += wc * o.Speed
	}

	var b Blend
	if sumFree != 0 && sumCong != 0 {
		b.Free = Estimate{Speed: accFree / sumFree, OK: true}
		b.Congested = Estimate{Speed: accCong / sumCong, OK: true}
	}
	vFree := b.Free.OrDefault(p.FallbackSpeed)
	vCong := b.Congested.OrDefault(p.FallbackSpeed)

	b.Weight = BlendWeight(math.Min(vFree, vCong), p.CriticalSpeed, p.TransitionWidth)
	b.Speed = b.Weight*vCong + (1-b.Weight)*vFree
	return b
}
