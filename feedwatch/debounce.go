package feedwatch

import "time"

// defaultDebounceWindow is the quiet period after the last mutation
// before a scan is scheduled.
const defaultDebounceWindow = 250 * time.Millisecond

// Debouncer coalesces bursts of mutation notifications into a single
// scan. Each Trigger cancels any pending fire and restarts the window,
// so N triggers inside the window yield exactly one fire after the
// burst ends.
//
// Not safe for concurrent use: Trigger, C and Stop are all called from
// the watcher's single event loop.
type Debouncer struct {
	window time.Duration
	timer  *time.Timer
	timerC <-chan time.Time
}

// NewDebouncer creates a Debouncer. window <= 0 selects the default.
func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = defaultDebounceWindow
	}
	return &Debouncer{window: window}
}

// Trigger restarts the window. Any fire already scheduled is dropped.
func (d *Debouncer) Trigger() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.NewTimer(d.window)
	d.timerC = d.timer.C
}

// C returns the channel that fires when the window expires. Nil until
// the first Trigger, which makes a select on it block cleanly.
func (d *Debouncer) C() <-chan time.Time {
	return d.timerC
}

// Stop cancels any pending fire.
func (d *Debouncer) Stop() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
		d.timerC = nil
	}
}
