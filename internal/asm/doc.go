// Package asm owns the adaptive smoothing method: the directional kernel
// weights, the regime-blending filter, and the field smoother that applies
// it to a raw observation grid.
//
// Responsibilities: free-flow and congested kernel weights, Option-style
// regime estimates with a configurable fallback, the tanh regime blend, and
// parallel per-point smoothing with progress and metrics.
// Key types: Params, Estimate, Blend, Filter, Smoother.
//
// Dependency rule: asm may depend on speedfield, config, monitoring and
// metrics, but never on interp or trajectory.
// No SQL/database code is allowed in this package.
package asm
