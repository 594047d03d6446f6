package search

import (
	"time"

	"github.com/MrEthical07/goConsole/internal/clock"
)

// DefaultDebounce is the quiet interval before a typed query is searched.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer collapses a burst of values into one call with the latest value
// once delay has passed without a new Trigger.
//
// Debouncer is not safe for concurrent use. The timer callback is routed
// through schedule so fire runs on the owner's goroutine.
type Debouncer struct {
	clock    clock.Clock
	delay    time.Duration
	schedule func(func()) bool
	fire     func(value string)

	timer clock.Timer
	seq   uint64
}

// NewDebouncer returns a Debouncer. A nil schedule runs fire on the timer
// goroutine.
func NewDebouncer(clk clock.Clock, delay time.Duration, schedule func(func()) bool, fire func(string)) *Debouncer {
	if clk == nil {
		clk = clock.Real{}
	}
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if schedule == nil {
		schedule = func(fn func()) bool {
			fn()
			return true
		}
	}
	return &Debouncer{clock: clk, delay: delay, schedule: schedule, fire: fire}
}

// Trigger cancels the pending call and restarts the quiet interval with value.
func (d *Debouncer) Trigger(value string) {
	d.Cancel()
	seq := d.seq
	d.timer = d.clock.AfterFunc(d.delay, func() {
		d.schedule(func() {
			// A Trigger or Cancel after this callback was queued wins.
			if seq != d.seq {
				return
			}
			d.timer = nil
			d.fire(value)
		})
	})
}

// Cancel drops the pending call, if any.
func (d *Debouncer) Cancel() {
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	return d.timer != nil
}
