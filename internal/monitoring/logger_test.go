package monitoring

import (
	"fmt"
	"testing"
	"time"

	"github.com/banshee-data/speedfield/internal/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) { called = true })
	Logf("test message")
	assert.True(t, called, "custom logger was not called")

	called = false
	SetLogger(nil)
	Logf("test message")
	assert.False(t, called, "no-op logger should not reach the previous sink")
}

func TestSetDebugLogger(t *testing.T) {
	original := Debugf
	defer func() { Debugf = original }()

	// Debugf is silent by default and must not panic.
	Debugf("ignored %d", 1)

	var got string
	SetDebugLogger(func(format string, v ...interface{}) { got = fmt.Sprintf(format, v...) })
	Debugf("vehicle %d", 7)
	assert.Equal(t, "vehicle 7", got)

	SetDebugLogger(nil)
	Debugf("vehicle %d", 8)
	assert.Equal(t, "vehicle 7", got)
}

func TestProgressThrottlesAndFinishes(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var lines []string
	SetLogger(func(format string, v ...interface{}) { lines = append(lines, fmt.Sprintf(format, v...)) })

	clock := timeutil.NewMockClock(time.Unix(0, 0))
	p := NewProgress("smoothing", 10, time.Second, clock)

	p.Add(2)
	assert.Empty(t, lines, "should not log before the interval elapses")

	clock.Advance(2 * time.Second)
	p.Add(3)
	require.Len(t, lines, 1)
	assert.Equal(t, "smoothing: 5/10 (50.0%)", lines[0])

	p.Add(5)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "smoothing: 10/10 (100%)")

	// Extra work after completion is counted but not logged again.
	p.Add(1)
	assert.Len(t, lines, 2)
	assert.Equal(t, 11, p.Done())
}

func TestProgressDefaultsToRealClock(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()
	SetLogger(nil)

	p := NewProgress("x", 1, time.Hour, nil)
	p.Add(1)
	assert.Equal(t, 1, p.Done())
}
