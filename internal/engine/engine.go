// Package engine implements the pulse loop: it observes active output ports,
// routes pulses along wires, resolves target inputs through the bridge,
// schedules activations via the dispatcher, and honors the interactive
// pause/step/back-step controls.
package engine

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alexisbeaulieu97/synapse/internal/bridge"
	"github.com/alexisbeaulieu97/synapse/internal/graph"
	"github.com/alexisbeaulieu97/synapse/internal/kind"
	"github.com/alexisbeaulieu97/synapse/internal/logging"
	"github.com/alexisbeaulieu97/synapse/internal/node"
	"github.com/alexisbeaulieu97/synapse/internal/port"
	"github.com/alexisbeaulieu97/synapse/internal/scope"
	synerrors "github.com/alexisbeaulieu97/synapse/pkg/errors"
)

// Options configures an engine instance.
type Options struct {
	// Delay inserts a per-node pause for visualization.
	Delay time.Duration
	// PauseFile pauses execution while the file exists.
	PauseFile string
	// SpeedFile overrides Delay with the float seconds read from the file.
	SpeedFile string
	// StopFile stops the run gracefully when the file appears.
	StopFile string
	// Trace enables the editor trace stream.
	Trace bool
	// TraceWriter receives trace lines; defaults to stdout.
	TraceWriter io.Writer
	// BackStep enables per-activation history snapshots.
	BackStep bool
	// HistoryDepth bounds the back-step ring.
	HistoryDepth int
	// Workers sizes the dispatcher pool.
	Workers int
	// InitialStack seeds the context stack; nil means a fresh root stack.
	InitialStack scope.Stack
	// SourceFile is the graph path, recorded for logs only.
	SourceFile string

	Logger *logging.Logger
}

// Engine owns the pulse loop for one graph run.
type Engine struct {
	bridge     *bridge.Bridge
	ports      *port.Registry
	dispatcher *Dispatcher
	tracer     *Tracer
	history    *History
	logger     *logging.Logger
	opts       Options

	nodes     map[string]*node.Node
	wireSpecs []graph.WireSpec
	wires     *graph.WireTable

	// stacks tracks the context stack each node's latest activation ran
	// with; fan-out inherits the source's stack unless overridden per port.
	stacks map[string]scope.Stack

	timers   timerHeap
	critical map[string]bool
	replay   *replayFrame

	currentNodeID string
	fatal         error
	delay         time.Duration
}

// New creates an engine bound to a bridge.
func New(b *bridge.Bridge, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.HistoryDepth <= 0 {
		opts.HistoryDepth = 100
	}

	e := &Engine{
		bridge:     b,
		ports:      port.NewRegistry(),
		dispatcher: NewDispatcher(b, opts.Workers, opts.Logger.With("component", "dispatcher")),
		tracer:     NewTracer(opts.TraceWriter, opts.Trace),
		history:    NewHistory(opts.HistoryDepth),
		logger:     opts.Logger,
		opts:       opts,
		nodes:      make(map[string]*node.Node),
		stacks:     make(map[string]scope.Stack),
		delay:      opts.Delay,
	}

	b.Set(bridge.KeyTraceEnabled, opts.Trace, "engine")
	if opts.StopFile != "" {
		b.Set(bridge.KeyStopFile, opts.StopFile, "engine")
	}
	if opts.PauseFile != "" {
		b.Set(bridge.KeyPauseFile, opts.PauseFile, "engine")
	}

	return e
}

// Bridge returns the run's bridge.
func (e *Engine) Bridge() *bridge.Bridge { return e.bridge }

// Ports returns the run's port registry.
func (e *Engine) Ports() *port.Registry { return e.ports }

// Tracer returns the run's trace emitter.
func (e *Engine) Tracer() *Tracer { return e.tracer }

// NewChild creates an engine for a sub-graph invocation: ambient control
// (pause/stop/speed files, trace surface, worker pool size) is inherited from
// the parent, the context stack is whatever the invoking node passes.
func (e *Engine) NewChild(childBridge *bridge.Bridge, initialStack scope.Stack, sourceFile string) *Engine {
	return New(childBridge, Options{
		PauseFile:    e.opts.PauseFile,
		SpeedFile:    e.opts.SpeedFile,
		StopFile:     e.opts.StopFile,
		Trace:        e.opts.Trace,
		TraceWriter:  e.opts.TraceWriter,
		Workers:      e.opts.Workers,
		InitialStack: initialStack,
		SourceFile:   sourceFile,
		Logger:       e.logger.With("component", "subgraph"),
	})
}

// RegisterNode adds a node to the run. Called by the loader.
func (e *Engine) RegisterNode(n *node.Node) {
	e.nodes[n.ID] = n
	// Mention every declared port so the registry assigns stable ids up front.
	for _, name := range n.Inputs() {
		e.ports.BridgeKey(n.ID, name, port.Input)
	}
	for _, name := range n.Outputs() {
		e.ports.BridgeKey(n.ID, name, port.Output)
	}
}

// Node returns a registered node by id.
func (e *Engine) Node(id string) *node.Node { return e.nodes[id] }

// Connect adds a wire. Called by the loader; the table is built on Run.
func (e *Engine) Connect(fromNode, fromPort, toNode, toPort string) {
	e.wireSpecs = append(e.wireSpecs, graph.WireSpec{
		FromNode: fromNode, FromPort: fromPort, ToNode: toNode, ToPort: toPort,
	})
}

// Run executes the graph from the start node until no work remains, the run
// yields, or a fatal error tears it down.
func (e *Engine) Run(startID string) error {
	start, ok := e.nodes[startID]
	if !ok {
		return synerrors.NewExecutionError(startID, fmt.Errorf("start node not registered"))
	}

	e.wires = graph.NewWireTable(e.wireSpecs)
	e.critical = e.criticalPath(startID)

	initial := e.opts.InitialStack
	if initial == nil {
		initial = scope.NewStack()
	}
	e.stacks[startID] = initial

	e.logger.Info("engine starting", "start", startID, "source", e.opts.SourceFile)

	// Bootstrap: activate the start node itself; its handler pulses Flow.
	e.activate(start, node.Pulse{Trigger: "Flow", Stack: initial})

	for {
		if stop, err := e.gates(); stop {
			e.logger.Info("engine stopping", "reason", "control", "error", err)
			return err
		}

		e.serviceTimers()
		e.drainCompletions()

		progressed := false
		for _, srcID := range e.bridge.ActiveNodes() {
			ports := e.bridge.TakeActivePorts(srcID)
			for _, p := range ports {
				e.fanOut(srcID, p)
				progressed = true
			}
		}

		if e.fatal != nil {
			e.logger.Error("engine fatal", "error", e.fatal)
			return e.fatal
		}

		if progressed {
			continue
		}

		// Live service nodes keep an otherwise idle run alive; they inject
		// work (socket events, timers) or eventually end their scope.
		if e.dispatcher.InFlight() == 0 && e.timers.Len() == 0 && e.liveServices() == 0 {
			e.logger.Info("engine finished", "node_count", len(e.nodes))
			return nil
		}

		e.waitForWork()
	}
}

// activate dispatches one activation, recording history and trace around it.
func (e *Engine) activate(n *node.Node, pulse node.Pulse) {
	if e.dispatcher.Cancelled(pulse.Stack) {
		return
	}

	if e.opts.BackStep || e.backTraceEnabled() {
		e.history.Record(Frame{
			NodeID:   n.ID,
			Trigger:  pulse.Trigger,
			Inputs:   pulse.Inputs,
			Stack:    pulse.Stack,
			Snapshot: e.bridge.Snapshot(),
		})
	}

	e.currentNodeID = n.ID
	e.bridge.Set(bridge.KeyNextNode, n.ID, "engine")
	e.stacks[n.ID] = pulse.Stack
	e.tracer.NodeStart(n.ID)

	if e.skipNext() {
		e.tracer.NodeStop(n.ID)
		return
	}

	if res, sync := e.dispatcher.Dispatch(n, pulse); sync {
		e.handleResult(n.ID, pulse.Trigger, pulse.Stack, res)
	}
}

// fanOut routes one active output port: every outgoing wire gets a pulse, in
// declaration order.
func (e *Engine) fanOut(srcID, srcPort string) {
	wires := e.wires.From(srcID, srcPort)
	if len(wires) == 0 {
		return
	}

	srcStack := e.stacks[srcID]
	if srcStack == nil {
		srcStack = scope.NewStack()
	}
	if override, ok := e.stackOverride(srcID, srcPort); ok {
		srcStack = override
	}

	for _, w := range wires {
		target, ok := e.nodes[w.ToNode]
		if !ok {
			e.logger.Warn("wire to unregistered node", "from", w.FromNode, "to", w.ToNode)
			continue
		}

		stop, err := e.stepGate()
		if stop {
			e.bridge.Set(bridge.KeyShutdown, true, "engine")
			return
		}
		if err != nil {
			// Back-step interrupted this fan-out; the gate handles it.
			return
		}
		e.applySpeed()

		e.tracer.Flow(w.FromNode, w.FromPort, w.ToNode, w.ToPort)

		pulse := node.Pulse{
			Trigger: w.ToPort,
			Inputs:  e.composeInputs(target),
			Stack:   srcStack,
		}
		e.activate(target, pulse)
	}
}

// composeInputs resolves every declared data input of the target through the
// bridge: the registry key first, the legacy node-prefixed key as fallback.
func (e *Engine) composeInputs(target *node.Node) map[string]interface{} {
	inputs := make(map[string]interface{})
	for _, inputName := range target.Inputs() {
		if k, _ := target.InputKind(inputName); k.IsControl() {
			continue
		}
		for _, w := range e.wires.IncomingTo(target.ID, inputName) {
			val := e.portValue(w.FromNode, w.FromPort)
			if val != nil {
				inputs[inputName] = val
				break
			}
		}
	}
	return inputs
}

// portValue reads a source output port's current value.
func (e *Engine) portValue(nodeID, portName string) interface{} {
	if key, ok := e.ports.Lookup(nodeID, portName, port.Output); ok {
		if val := e.bridge.Get(key); val != nil {
			return val
		}
	}
	return e.bridge.Get(port.LegacyKey(nodeID, portName))
}

// stackOverride reads a per-port context stack override the source wrote.
func (e *Engine) stackOverride(nodeID, portName string) (scope.Stack, bool) {
	raw := e.bridge.Get(bridge.StackOverridesKey(nodeID))
	overrides, ok := raw.(map[string]scope.Stack)
	if !ok {
		return nil, false
	}
	s, ok := overrides[portName]
	return s, ok
}

// handleResult interprets a handler's discriminated result on the engine
// goroutine.
func (e *Engine) handleResult(nodeID, trigger string, stack scope.Stack, res node.Result) {
	switch res.Status {
	case node.StatusDone, node.StatusAborted:
		e.tracer.NodeStop(nodeID)

	case node.StatusSuspend:
		e.tracer.WaitingStart(nodeID, res.SuspendMS)
		e.timers.add(timer{
			wakeAt: time.Now().Add(time.Duration(res.SuspendMS) * time.Millisecond),
			nodeID: nodeID,
			port:   "Flow",
			ms:     res.SuspendMS,
		})

	case node.StatusError:
		msg := ""
		if res.Err != nil {
			msg = res.Err.Error()
		}
		e.tracer.NodeError(nodeID, msg)
		e.tracer.NodeStop(nodeID)

		// The failing node already pulsed its Error port. If nothing is
		// wired to it and the node sits on the critical path, the run is
		// unsalvageable.
		n := e.nodes[nodeID]
		if n != nil && e.errorWired(n) {
			return
		}
		e.bridge.TakeActivePorts(nodeID)
		if e.critical[nodeID] {
			e.fatal = res.Err
		}
	}
}

// errorWired reports whether the node's error output reaches anything.
func (e *Engine) errorWired(n *node.Node) bool {
	for _, p := range []string{"Error", "Error Flow"} {
		if n.HasOutput(p) && len(e.wires.From(n.ID, p)) > 0 {
			return true
		}
	}
	return false
}

// serviceTimers wakes every parked branch whose timer expired.
func (e *Engine) serviceTimers() {
	for _, t := range e.timers.popDue(time.Now()) {
		if e.dispatcher.Cancelled(e.stacks[t.nodeID]) {
			continue
		}
		e.tracer.WaitingPulse(t.nodeID, t.ms)
		e.bridge.SetActivePorts(t.nodeID, []string{t.port}, "engine")
	}
}

// drainCompletions collects finished worker activations without blocking.
func (e *Engine) drainCompletions() {
	for {
		select {
		case c := <-e.dispatcher.Completions():
			e.handleResult(c.nodeID, c.trigger, c.stack, c.result)
		default:
			return
		}
	}
}

// waitForWork blocks until a worker completes, a timer comes due, or a poll
// tick elapses for file-based control checks.
func (e *Engine) waitForWork() {
	wait := 10 * time.Millisecond
	if next, ok := e.timers.next(); ok {
		if d := time.Until(next); d < wait {
			wait = d
		}
	}
	if wait < 0 {
		wait = 0
	}

	select {
	case c := <-e.dispatcher.Completions():
		e.handleResult(c.nodeID, c.trigger, c.stack, c.result)
	case <-time.After(wait):
	}
}

// liveServices reports how many provider scopes are currently open.
func (e *Engine) liveServices() int64 {
	switch v := e.bridge.Get(bridge.KeyLiveServices).(type) {
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

func (e *Engine) backTraceEnabled() bool {
	flag, _ := e.bridge.Get(bridge.KeyBackTraceEnabled).(bool)
	return flag
}

// criticalPath computes the chain of nodes from the start with no sibling
// branches; an unrouted error on one of these tears the run down.
func (e *Engine) criticalPath(startID string) map[string]bool {
	table := e.wires
	critical := map[string]bool{startID: true}

	current := startID
	for {
		n := e.nodes[current]
		if n == nil {
			break
		}
		var out []graph.WireSpec
		for _, p := range n.Outputs() {
			if k, _ := n.OutputKind(p); k != kind.Flow && k != kind.ProviderFlow {
				continue
			}
			out = append(out, table.From(current, p)...)
		}
		if len(out) != 1 {
			break
		}
		next := out[0].ToNode
		if critical[next] {
			break
		}
		critical[next] = true
		current = next
	}
	return critical
}

// applySpeed sleeps the per-node visualization delay, honoring the speed file.
func (e *Engine) applySpeed() {
	delay := e.delay
	if e.opts.SpeedFile != "" {
		if data, err := os.ReadFile(e.opts.SpeedFile); err == nil {
			var seconds float64
			if _, err := fmt.Sscanf(string(data), "%f", &seconds); err == nil && seconds >= 0 {
				delay = time.Duration(seconds * float64(time.Second))
			}
		}
	}
	if delay > 0 {
		time.Sleep(delay)
	}
}
