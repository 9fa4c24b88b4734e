// Package interp owns local surface interpolation over a SpeedField.
//
// Responsibilities: gathering the neighbourhood of a target point and
// fitting a tensor-product natural cubic spline through it, reporting an
// explicit Undefined status when the neighbourhood cannot support a fit.
// Key types: Local, Result, Status.
//
// Dependency rule: interp depends only on speedfield and gonum.
// No SQL/database code is allowed in this package.
package interp
