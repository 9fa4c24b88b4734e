package units

import (
	"fmt"
	"time"
)

// IsTimezoneValid checks if the given timezone is valid by attempting to load it from the tz database
func IsTimezoneValid(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// ConvertTime converts a UTC time to the specified timezone for display.
func ConvertTime(utcTime time.Time, targetTimezone string) (time.Time, error) {
	if targetTimezone == "UTC" || targetTimezone == "" {
		return utcTime, nil
	}
	loc, err := time.LoadLocation(targetTimezone)
	if err != nil {
		return utcTime, fmt.Errorf("failed to load timezone %s: %w", targetTimezone, err)
	}
	return utcTime.In(loc), nil
}

// ClockTime maps a relative time in seconds onto wall-clock time starting at
// startUnix, in the given timezone.
func ClockTime(startUnix int64, seconds float64, tz string) (time.Time, error) {
	base := time.Unix(startUnix, 0).UTC()
	return ConvertTime(base.Add(time.Duration(seconds*float64(time.Second))), tz)
}
