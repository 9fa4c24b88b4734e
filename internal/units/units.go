// Package units provides speed unit validation and conversion for output
// tables and reports. Fields are computed in miles per hour and converted
// only at the edges.
package units

// Unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

const (
	metersPerMile = 1609.344
	mphToMPS      = metersPerMile / 3600
	mphToKPH      = metersPerMile / 1000
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{MPS, MPH, KMPH, KPH}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "mps, mph, kmph, kph"
}

// ConvertSpeed converts a speed in miles per hour to the target units.
// Unknown units and NaN pass through unchanged.
func ConvertSpeed(speedMPH float64, targetUnits string) float64 {
	switch targetUnits {
	case MPS:
		return speedMPH * mphToMPS
	case KMPH, KPH:
		return speedMPH * mphToKPH
	default:
		return speedMPH
	}
}

// Label returns the display label used on chart axes.
func Label(unit string) string {
	switch unit {
	case MPS:
		return "m/s"
	case KMPH, KPH:
		return "km/h"
	default:
		return "mph"
	}
}

// MilesPerStep is the distance covered at speedMPH over stepSeconds.
func MilesPerStep(speedMPH, stepSeconds float64) float64 {
	return speedMPH * stepSeconds / 3600
}
