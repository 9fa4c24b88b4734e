package monitoring

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/speedfield/internal/timeutil"
)

// Progress counts completed units of work and logs through Logf at most once
// per interval, plus once on completion. Safe for concurrent Add calls.
type Progress struct {
	label    string
	total    int64
	interval time.Duration
	clock    timeutil.Clock

	done atomic.Int64

	mu       sync.Mutex
	start    time.Time
	lastLog  time.Time
	finished bool
}

// NewProgress creates a reporter for total units. A nil clock uses the
// wall clock.
func NewProgress(label string, total int, interval time.Duration, clock timeutil.Clock) *Progress {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	now := clock.Now()
	return &Progress{
		label:    label,
		total:    int64(total),
		interval: interval,
		clock:    clock,
		start:    now,
		lastLog:  now,
	}
}

// Add records n completed units.
func (p *Progress) Add(n int) {
	done := p.done.Add(int64(n))

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	now := p.clock.Now()
	if done >= p.total {
		p.finished = true
		Logf("%s: %d/%d (100%%) in %s", p.label, done, p.total, now.Sub(p.start).Round(time.Millisecond))
		return
	}
	if now.Sub(p.lastLog) < p.interval {
		return
	}
	p.lastLog = now
	Logf("%s: %d/%d (%.1f%%)", p.label, done, p.total, 100*float64(done)/float64(p.total))
}

// Done returns the number of completed units.
func (p *Progress) Done() int {
	return int(p.done.Load())
}
