// Package dispatch serializes view-state mutations on one goroutine and runs
// backend work off it with single-flight, supersede-on-completion semantics.
package dispatch

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrStopped is returned when work is handed to a stopped loop.
var ErrStopped = errors.New("dispatch: loop stopped")

// Loop executes posted closures one at a time, in post order, on a dedicated
// goroutine. State touched only from posted closures needs no further locking.
type Loop struct {
	workCh  chan func()
	stopCh  chan struct{}
	doneCh  chan struct{}
	stopped atomic.Bool
	stopMu  sync.RWMutex
}

// NewLoop starts a loop with the given queue capacity.
func NewLoop(buffer int) *Loop {
	if buffer <= 0 {
		buffer = 64
	}
	l := &Loop{
		workCh: make(chan func(), buffer),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.doneCh)
	for {
		select {
		case fn := <-l.workCh:
			fn()
		case <-l.stopCh:
			// Drain what was queued before Stop.
			for {
				select {
				case fn := <-l.workCh:
					fn()
				default:
					return
				}
			}
		}
	}
}

// Post queues fn and returns immediately. It reports false once the loop is stopped.
func (l *Loop) Post(fn func()) bool {
	l.stopMu.RLock()
	defer l.stopMu.RUnlock()
	if l.stopped.Load() {
		return false
	}
	select {
	case l.workCh <- fn:
		return true
	case <-l.stopCh:
		return false
	}
}

// Call runs fn on the loop and waits for it. It must not be called from the loop itself.
func (l *Loop) Call(fn func()) error {
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-l.doneCh:
		// The loop drains before exiting, so fn has either run or never will.
		select {
		case <-done:
			return nil
		default:
			return ErrStopped
		}
	}
}

// Stop runs the already queued closures and ends the loop. It is idempotent,
// waits for the loop goroutine to exit, and must not be called from the loop.
func (l *Loop) Stop() {
	if l.stopped.CompareAndSwap(false, true) {
		l.stopMu.Lock()
		close(l.stopCh)
		l.stopMu.Unlock()
	}
	<-l.doneCh
}

// Done is closed after the loop has exited.
func (l *Loop) Done() <-chan struct{} { return l.doneCh }
