package progress

import (
	"sync"
	"time"
)

// TickInterval is the wall-clock cadence of progress emissions.
const TickInterval = 250 * time.Millisecond

// Ticker emits progress states on a fixed cadence until stopped. It is the
// explicit, cancellable handle the session owns for the lifetime of one
// generation attempt.
type Ticker struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// StartTicker begins emitting immediately. emit is called from a single
// goroutine; ticks never overlap.
func StartTicker(etaSec int, emit func(State)) *Ticker {
	t := &Ticker{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	started := time.Now()

	go func() {
		defer close(t.done)
		ticker := time.NewTicker(TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-ticker.C:
				elapsed := time.Since(started).Seconds()
				emit(State{
					Percent:    Percent(elapsed, float64(etaSec)),
					ElapsedSec: elapsed,
					EtaSec:     etaSec,
				})
			}
		}
	}()

	return t
}

// Stop halts emissions. It is idempotent and synchronous: once Stop returns,
// no further emit call will be made.
func (t *Ticker) Stop() {
	if t == nil {
		return
	}
	t.stopOnce.Do(func() { close(t.stop) })
	<-t.done
}
