package mqtt

import (
	"context"
	"sync"
	"time"

	"github.com/aylahq/ayla-agent/internal/events"
)

// DailyCounters accumulates operational totals that reset at local
// midnight. It is fed from the event bus and read by the publisher's
// state loop; both sides may run concurrently.
type DailyCounters struct {
	mu          sync.Mutex
	requests    int64
	tokens      int64
	segments    int64
	corrections int64
	lastRequest time.Time
	resetDay    int // day-of-year of last reset
	loc         *time.Location
}

// NewDailyCounters creates an accumulator using the given timezone for
// midnight detection. A nil loc means time.Local.
func NewDailyCounters(loc *time.Location) *DailyCounters {
	if loc == nil {
		loc = time.Local
	}
	return &DailyCounters{
		resetDay: time.Now().In(loc).YearDay(),
		loc:      loc,
	}
}

// Run consumes bus events until ctx is cancelled. Completed requests,
// delivered segments and promise corrections bump their counters;
// everything else is ignored.
func (d *DailyCounters) Run(ctx context.Context, bus *events.Bus) {
	ch := bus.Subscribe(64)
	defer bus.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			d.observe(ev)
		}
	}
}

func (d *DailyCounters) observe(ev events.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.maybeReset()

	switch ev.Kind {
	case events.KindRequestComplete:
		d.requests++
		d.tokens += asInt64(ev.Data["tokens_in"]) + asInt64(ev.Data["tokens_out"])
		d.lastRequest = ev.Timestamp
	case events.KindSegmentSent:
		d.segments++
	case events.KindPromiseCorrected:
		d.corrections++
	}
}

// Snapshot returns the current totals after checking for midnight
// rollover.
func (d *DailyCounters) Snapshot() (requests, tokens, segments, corrections int64, lastRequest time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.maybeReset()
	return d.requests, d.tokens, d.segments, d.corrections, d.lastRequest
}

// maybeReset zeroes the counters when the local day changes. Must be
// called with d.mu held. lastRequest survives the rollover.
func (d *DailyCounters) maybeReset() {
	today := time.Now().In(d.loc).YearDay()
	if today != d.resetDay {
		d.requests = 0
		d.tokens = 0
		d.segments = 0
		d.corrections = 0
		d.resetDay = today
	}
}

// asInt64 widens the numeric types event data arrives in.
func asInt64(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}
