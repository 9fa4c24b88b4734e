package speedfield

import "sort"

// Sample is one integration step of a virtual vehicle.
type Sample struct {
	Time      float64 // seconds
	Space     float64 // miles
	Speed     float64 // mph, NaN when no estimate was available
	VehicleID int
}

// TrajectoryStatus records why integration stopped.
type TrajectoryStatus int

const (
	Complete TrajectoryStatus = iota // reached the end of the corridor
	Stalled                          // no usable speed estimate; vehicle stopped short
)

func (s TrajectoryStatus) String() string {
	switch s {
	case Complete:
		return "complete"
	case Stalled:
		return "stalled"
	default:
		return "unknown"
	}
}

// Trajectory is the time-ordered path of one virtual vehicle.
type Trajectory struct {
	VehicleID int
	Samples   []Sample
	Status    TrajectoryStatus
}

// TravelTime returns the elapsed time between the first and last samples.
func (tr Trajectory) TravelTime() float64 {
	if len(tr.Samples) < 2 {
		return 0
	}
	return tr.Samples[len(tr.Samples)-1].Time - tr.Samples[0].Time
}

// TrajectorySet is the fleet generator output.
type TrajectorySet []Trajectory

// Rows flattens the set into (time, space, speed, vehicle_id) rows.
func (ts TrajectorySet) Rows() []Sample {
	n := 0
	for _, tr := range ts {
		n += len(tr.Samples)
	}
	rows := make([]Sample, 0, n)
	for _, tr := range ts {
		rows = append(rows, tr.Samples...)
	}
	return rows
}

// GroupRows rebuilds a TrajectorySet from flat rows, keeping each vehicle's
// samples in time order. Status is not carried by rows and is left Complete.
func GroupRows(rows []Sample) TrajectorySet {
	byID := make(map[int][]Sample)
	var ids []int
	for _, r := range rows {
		if _, seen := byID[r.VehicleID]; !seen {
			ids = append(ids, r.VehicleID)
		}
		byID[r.VehicleID] = append(byID[r.VehicleID], r)
	}
	sort.Ints(ids)
	set := make(TrajectorySet, 0, len(ids))
	for _, id := range ids {
		samples := byID[id]
		sort.SliceStable(samples, func(i, j int) bool { return samples[i].Time < samples[j].Time })
		set = append(set, Trajectory{VehicleID: id, Samples: samples})
	}
	return set
}
