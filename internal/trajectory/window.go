package trajectory

import "github.com/banshee-data/speedfield/internal/speedfield"

// windowMargin keeps cached bounds clear of float rounding at the edge of
// the interpolation neighbourhood.
const windowMargin = 1e-6

// window caches the slice of the field around the current simulation time.
// A refresh happens on schedule, and also whenever the interpolation
// neighbourhood would reach outside the cached range, so lookups through the
// window always match lookups against the full field.
type window struct {
	field speedfield.SpeedField
	cfg   Config

	sub         speedfield.SpeedField
	after, upTo float64
	refreshedAt float64
	refreshes   int
}

func newWindow(field speedfield.SpeedField, cfg Config, t float64) *window {
	w := &window{field: field, cfg: cfg}
	w.refresh(t)
	return w
}

func (w *window) reach() float64 {
	return w.cfg.Interp.HalfT + windowMargin
}

// refresh caches (t-WindowBack, t+WindowAhead], widened if needed to hold
// the neighbourhood of t.
func (w *window) refresh(t float64) {
	half := w.reach()
	w.after = t - max(w.cfg.WindowBack, 2*half)
	w.upTo = t + max(w.cfg.WindowAhead, half)
	w.sub = w.field.Window(w.after, w.upTo)
	w.refreshedAt = t
	w.refreshes++
}

func (w *window) covers(t float64) bool {
	half := w.reach()
	return t-half > w.after && t+half <= w.upTo
}

// at returns a field that holds every point the interpolator can see at t.
func (w *window) at(t float64) speedfield.SpeedField {
	if t-w.refreshedAt >= w.cfg.RefreshInterval || !w.covers(t) {
		w.refresh(t)
	}
	return w.sub
}
