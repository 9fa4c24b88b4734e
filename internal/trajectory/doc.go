// Package trajectory owns virtual vehicle generation over a smoothed speed
// field.
//
// Responsibilities: fixed-step integration of a single vehicle through the
// field with a sliding time window, and fleet generation that spawns
// vehicles at a regular interval and runs them in parallel.
// Key types: Config, Integrator, Fleet.
//
// All integration happens on the canonical axis, where distance increases
// in the direction of travel. Fleet is the only place that reflects between
// milemarkers and that axis.
//
// Dependency rule: trajectory may depend on speedfield, interp, config,
// monitoring and metrics, but never on asm.
// No SQL/database code is allowed in this package.
package trajectory
