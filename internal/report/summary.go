package report

import (
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/speedfield/internal/speedfield"
	"github.com/banshee-data/speedfield/internal/units"
)

// Summary describes a generated fleet.
type Summary struct {
	Vehicles       int
	Stalled        int
	MeanTravelTime float64 // seconds, completed vehicles only
	StdTravelTime  float64
	MinTravelTime  float64
	MaxTravelTime  float64
	MeanSpeed      float64 // mph over all defined samples
}

// Summarize computes fleet statistics. Travel-time figures are NaN when no
// vehicle completed, and MeanSpeed is NaN when no sample has a speed.
func Summarize(set speedfield.TrajectorySet) Summary {
	s := Summary{Vehicles: len(set)}
	var travel, speeds []float64
	for _, tr := range set {
		if tr.Status == speedfield.Stalled {
			s.Stalled++
		} else {
			travel = append(travel, tr.TravelTime())
		}
		for _, smp := range tr.Samples {
			if !math.IsNaN(smp.Speed) {
				speeds = append(speeds, smp.Speed)
			}
		}
	}

	s.MeanTravelTime, s.StdTravelTime = math.NaN(), math.NaN()
	s.MinTravelTime, s.MaxTravelTime = math.NaN(), math.NaN()
	switch len(travel) {
	case 0:
	case 1:
		s.MeanTravelTime, s.StdTravelTime = travel[0], 0
	default:
		s.MeanTravelTime, s.StdTravelTime = stat.MeanStdDev(travel, nil)
	}
	if len(travel) > 0 {
		s.MinTravelTime, s.MaxTravelTime = floats.Min(travel), floats.Max(travel)
	}

	s.MeanSpeed = math.NaN()
	if len(speeds) > 0 {
		s.MeanSpeed = stat.Mean(speeds, nil)
	}
	return s
}

// Write prints the summary with speeds in unit.
func (s Summary) Write(w io.Writer, unit string) error {
	_, err := fmt.Fprintf(w,
		"vehicles: %d (stalled %d)\ntravel time: mean %.1fs stddev %.1fs min %.1fs max %.1fs\nmean speed: %.2f %s\n",
		s.Vehicles, s.Stalled,
		s.MeanTravelTime, s.StdTravelTime, s.MinTravelTime, s.MaxTravelTime,
		units.ConvertSpeed(s.MeanSpeed, unit), units.Label(unit))
	return err
}
