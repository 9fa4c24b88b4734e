// Package speedfield owns the data model shared by the smoothing and
// trajectory stages.
//
// Responsibilities: grid-index to physical-unit conversion, the
// time-sorted SpeedField with window and box queries, smoothed grid rows,
// and virtual vehicle trajectories.
// Key types: RawObservation, FieldPoint, SpeedField, SmoothedGrid,
// Trajectory, TrajectorySet.
//
// Dependency rule: speedfield depends on nothing else in this module.
// No SQL/database code is allowed in this package.
package speedfield
