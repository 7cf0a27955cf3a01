package engine

import (
	"sync/atomic"

	"github.com/alexisbeaulieu97/synapse/internal/bridge"
	"github.com/alexisbeaulieu97/synapse/internal/logging"
	"github.com/alexisbeaulieu97/synapse/internal/node"
	"github.com/alexisbeaulieu97/synapse/internal/scope"
)

// completion is a worker's report back to the engine goroutine.
type completion struct {
	nodeID  string
	trigger string
	stack   scope.Stack
	result  node.Result
}

// Dispatcher turns pulses into activations. Native nodes run on the calling
// (engine) goroutine; everything else goes through a bounded worker pool and
// reports back on the completions channel.
type Dispatcher struct {
	bridge *bridge.Bridge
	logger *logging.Logger

	pool        chan struct{}
	completions chan completion
	inFlight    int64
	active      int64
}

// NewDispatcher creates a dispatcher with the given worker pool size.
func NewDispatcher(b *bridge.Bridge, workers int, log *logging.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 4
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Dispatcher{
		bridge:      b,
		logger:      log,
		pool:        make(chan struct{}, workers),
		completions: make(chan completion, 256),
	}
}

// Completions returns the channel workers report on.
func (d *Dispatcher) Completions() <-chan completion { return d.completions }

// InFlight reports the number of worker activations not yet collected.
func (d *Dispatcher) InFlight() int { return int(atomic.LoadInt64(&d.inFlight)) }

// ActiveProcesses reports the number of handlers currently running, for the
// editor's activity indicator.
func (d *Dispatcher) ActiveProcesses() int { return int(atomic.LoadInt64(&d.active)) }

// Cancelled reports whether any scope on the stack carries a cancellation
// flag, or the run is shutting down. Cancelled dispatches are no-ops.
func (d *Dispatcher) Cancelled(stack scope.Stack) bool {
	if flag, ok := d.bridge.Get(bridge.KeyShutdown).(bool); ok && flag {
		return true
	}
	for _, scopeID := range stack {
		if flag, ok := d.bridge.Get(bridge.CancelScopeKey(scopeID)).(bool); ok && flag {
			return true
		}
	}
	return false
}

// Dispatch schedules one activation. Native nodes execute synchronously and
// the result is returned directly; pooled nodes return a zero Result and
// report through Completions. Cancelled dispatches return Aborted.
func (d *Dispatcher) Dispatch(n *node.Node, pulse node.Pulse) (node.Result, bool) {
	if d.Cancelled(pulse.Stack) {
		return node.Aborted(), true
	}

	if n.Native {
		atomic.AddInt64(&d.active, 1)
		res := n.Execute(pulse)
		atomic.AddInt64(&d.active, -1)
		return res, true
	}

	atomic.AddInt64(&d.inFlight, 1)
	go func() {
		d.pool <- struct{}{}
		atomic.AddInt64(&d.active, 1)
		defer func() {
			atomic.AddInt64(&d.active, -1)
			<-d.pool
		}()

		var res node.Result
		// Workers observe cancellation at their checkpoint: once before
		// running and implicitly via the bridge swallowing post-close writes.
		if d.Cancelled(pulse.Stack) {
			res = node.Aborted()
		} else {
			res = n.Execute(pulse)
		}

		atomic.AddInt64(&d.inFlight, -1)
		d.completions <- completion{
			nodeID:  n.ID,
			trigger: pulse.Trigger,
			stack:   pulse.Stack,
			result:  res,
		}
	}()
	return node.Result{}, false
}
