// Package debounce turns noisy edges into at most one press event per
// window, independently per input.
package debounce

import (
	"math"
	"sync/atomic"
	"time"

	"led-service/internal/fsm"
)

// DefaultWindow is the firmware's 50 ms debounce window.
const DefaultWindow = 50 * time.Millisecond

const never = math.MinInt64

// Enqueuer is the producer end of the event queue.
type Enqueuer interface {
	TryEnqueue(ev fsm.Event) bool
}

// Debouncer is safe to call from any number of edge handlers. OnEdge never
// blocks, allocates or logs.
type Debouncer struct {
	windowMs int64
	out      Enqueuer
	last     [fsm.NumInputs]atomic.Int64

	accepted   atomic.Uint64
	suppressed atomic.Uint64
	dropped    atomic.Uint64
}

func New(window time.Duration, out Enqueuer) *Debouncer {
	d := &Debouncer{
		windowMs: window.Milliseconds(),
		out:      out,
	}
	for i := range d.last {
		d.last[i].Store(never)
	}
	return d
}

// OnEdge handles one edge on input (0-based) observed at nowMs on the
// monotonic clock. Unknown inputs are ignored.
func (d *Debouncer) OnEdge(input int, nowMs int64) {
	if input < 0 || input >= fsm.NumInputs {
		return
	}
	last := &d.last[input]
	for {
		prev := last.Load()
		if prev != never && nowMs-prev < d.windowMs {
			d.suppressed.Add(1)
			return
		}
		if last.CompareAndSwap(prev, nowMs) {
			break
		}
	}
	d.accepted.Add(1)
	if !d.out.TryEnqueue(fsm.PressEvent(input)) {
		d.dropped.Add(1)
	}
}

// Accepted counts edges that passed the window, whether or not the queue
// had room for them.
func (d *Debouncer) Accepted() uint64 { return d.accepted.Load() }

// Suppressed counts edges that fell inside the window.
func (d *Debouncer) Suppressed() uint64 { return d.suppressed.Load() }

// Dropped counts accepted edges the queue rejected.
func (d *Debouncer) Dropped() uint64 { return d.dropped.Load() }

func (d *Debouncer) Window() time.Duration {
	return time.Duration(d.windowMs) * time.Millisecond
}
