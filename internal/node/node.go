// Package node defines the runtime node type: port schemas, properties,
// per-port handlers and the execution wrapper that merges inputs, applies
// provider hijacking and captures failures into ErrorObjects.
package node

import (
	"fmt"
	"strings"
	"sync"

	"github.com/alexisbeaulieu97/synapse/internal/bridge"
	"github.com/alexisbeaulieu97/synapse/internal/kind"
	"github.com/alexisbeaulieu97/synapse/internal/logging"
	"github.com/alexisbeaulieu97/synapse/internal/port"
	"github.com/alexisbeaulieu97/synapse/internal/scope"
)

// Runtime bundles the per-run services a node needs: the bridge, the port
// registry and a logger. The loader hands the same Runtime to every node of a
// graph run.
type Runtime struct {
	Bridge *bridge.Bridge
	Ports  *port.Registry
	Logger *logging.Logger

	// ProjectName is recorded on ErrorObjects.
	ProjectName string

	// Host is the owning engine. Nodes that spawn nested runs (sub-graphs)
	// assert it back to the engine type; plain nodes never touch it.
	Host interface{}
}

// Activation is one scheduled execution of a node: the trigger port, the
// resolved arguments and the context stack the pulse carried. The stack is
// immutable for the duration of the activation.
type Activation struct {
	Node    *Node
	Trigger string
	Args    map[string]interface{}
	Stack   scope.Stack
}

// Handler executes one activation.
type Handler func(act *Activation) Result

// Node is a unit of the graph. Nodes are constructed once per loaded graph;
// schemas, properties and handlers are frozen after load.
type Node struct {
	ID   string
	Name string
	Type string

	Properties map[string]interface{}

	Service             bool
	Native              bool
	Debug               bool
	AllowDynamicInputs  bool
	AllowDynamicOutputs bool

	// HiddenPorts are editor hints only; the engine ignores them.
	HiddenPorts []string

	// RequiredProviders lists capability types that must be on the scope
	// stack before the node may run.
	RequiredProviders []string

	// OnPropertiesApplied runs after the loader overlays persisted
	// properties; dynamic-schema nodes rebuild their port surface here.
	OnPropertiesApplied func(*Node)

	rt *Runtime

	inputOrder   []string
	outputOrder  []string
	inputSchema  map[string]kind.Kind
	outputSchema map[string]kind.Kind
	handlers     map[string]Handler

	cacheMu       sync.Mutex
	providerCache map[string]providerCacheEntry
}

type providerCacheEntry struct {
	stackHash  string
	providerID string
}

// New creates a bare node. Concrete node constructors add ports, defaults and
// handlers before the loader freezes the graph.
func New(id, name, typeLabel string, rt *Runtime) *Node {
	if rt == nil {
		rt = &Runtime{}
	}
	if rt.Logger == nil {
		rt.Logger = logging.Nop()
	}
	return &Node{
		ID:            id,
		Name:          name,
		Type:          typeLabel,
		Properties:    make(map[string]interface{}),
		rt:            rt,
		inputSchema:   make(map[string]kind.Kind),
		outputSchema:  make(map[string]kind.Kind),
		handlers:      make(map[string]Handler),
		providerCache: make(map[string]providerCacheEntry),
		HiddenPorts:   []string{"Provider ID", "Provider Flow ID"},
	}
}

// Runtime exposes the node's per-run services to handlers.
func (n *Node) Runtime() *Runtime { return n.rt }

// Bridge returns the run's bridge.
func (n *Node) Bridge() *bridge.Bridge { return n.rt.Bridge }

// Logger returns the node's logger.
func (n *Node) Logger() *logging.Logger { return n.rt.Logger }

// AddInput declares an input port. Data inputs also get a property slot so
// the editor can set defaults; control ports do not.
func (n *Node) AddInput(name string, k kind.Kind) {
	if _, exists := n.inputSchema[name]; !exists {
		n.inputOrder = append(n.inputOrder, name)
	}
	n.inputSchema[name] = k

	if k.IsControl() {
		return
	}
	if _, exists := n.Properties[name]; !exists {
		n.Properties[name] = defaultFor(k)
	}
}

// AddOutput declares an output port.
func (n *Node) AddOutput(name string, k kind.Kind) {
	if _, exists := n.outputSchema[name]; !exists {
		n.outputOrder = append(n.outputOrder, name)
	}
	n.outputSchema[name] = k
}

// RemoveOutput drops a declared output; used by dynamic-schema nodes when
// they rebuild their surface.
func (n *Node) RemoveOutput(name string) {
	if _, exists := n.outputSchema[name]; !exists {
		return
	}
	delete(n.outputSchema, name)
	for i, existing := range n.outputOrder {
		if existing == name {
			n.outputOrder = append(n.outputOrder[:i], n.outputOrder[i+1:]...)
			break
		}
	}
}

// InputKind reports the declared kind of an input port.
func (n *Node) InputKind(name string) (kind.Kind, bool) {
	k, ok := n.inputSchema[name]
	return k, ok
}

// OutputKind reports the declared kind of an output port.
func (n *Node) OutputKind(name string) (kind.Kind, bool) {
	k, ok := n.outputSchema[name]
	return k, ok
}

// Inputs returns the input port names in declaration order.
func (n *Node) Inputs() []string { return append([]string(nil), n.inputOrder...) }

// Outputs returns the output port names in declaration order.
func (n *Node) Outputs() []string { return append([]string(nil), n.outputOrder...) }

// HasInput reports whether the node declares the input port.
func (n *Node) HasInput(name string) bool {
	_, ok := n.inputSchema[name]
	return ok
}

// HasOutput reports whether the node declares the output port.
func (n *Node) HasOutput(name string) bool {
	_, ok := n.outputSchema[name]
	return ok
}

// RegisterHandler binds a handler to a trigger port.
func (n *Node) RegisterHandler(portName string, h Handler) {
	n.handlers[portName] = h
}

// HandlerFor returns the handler registered for a trigger port.
func (n *Node) HandlerFor(portName string) (Handler, bool) {
	h, ok := n.handlers[portName]
	return h, ok
}

// SetOutput publishes a value on an output port: the authoritative registry
// key plus the legacy node-prefixed key. This is the only way a node hands
// data to downstream consumers.
func (n *Node) SetOutput(name string, value interface{}) {
	if n.rt.Ports != nil {
		key := n.rt.Ports.BridgeKey(n.ID, name, port.Output)
		n.rt.Bridge.Set(key, value, n.Name)
	}
	n.rt.Bridge.Set(port.LegacyKey(n.ID, name), value, n.Name)
}

// Pulse marks output ports active. The engine consumes the list and routes
// the pulses along wires.
func (n *Node) Pulse(ports ...string) {
	n.rt.Bridge.SetActivePorts(n.ID, ports, n.Name)
}

// SetStackOverride records a per-port context stack override for the next
// fan-out of this node. Loops use this to move pulses in and out of
// iteration scopes.
func (n *Node) SetStackOverride(overrides map[string]scope.Stack) {
	if overrides == nil {
		n.rt.Bridge.Delete(bridge.StackOverridesKey(n.ID))
		return
	}
	n.rt.Bridge.Set(bridge.StackOverridesKey(n.ID), overrides, n.Name)
}

// ProviderID resolves the nearest provider of the given capability type on
// the stack. Results are cached per stack hash; a nested provider pushing a
// new scope changes the hash, so the cache can never serve a stale answer.
func (n *Node) ProviderID(stack scope.Stack, providerType string) string {
	if len(stack) == 0 {
		return ""
	}
	h := stack.Hash()

	n.cacheMu.Lock()
	if entry, ok := n.providerCache[providerType]; ok && entry.stackHash == h {
		n.cacheMu.Unlock()
		return entry.providerID
	}
	n.cacheMu.Unlock()

	id := n.rt.Bridge.GetProviderID(stack, providerType)

	n.cacheMu.Lock()
	n.providerCache[providerType] = providerCacheEntry{stackHash: h, providerID: id}
	n.cacheMu.Unlock()
	return id
}

func defaultFor(k kind.Kind) interface{} {
	switch k {
	case kind.String, kind.Password:
		return ""
	case kind.Number:
		return float64(0)
	case kind.Boolean:
		return false
	case kind.List:
		return []interface{}{}
	case kind.Dict:
		return map[string]interface{}{}
	case kind.Color:
		return []interface{}{255, 255, 255, 255}
	}
	return nil
}

// matchInputName resolves a property key against declared inputs
// case-insensitively, so "condition" in a persisted document binds to the
// "Condition" port.
func (n *Node) matchInputName(key string) (string, bool) {
	if _, ok := n.inputSchema[key]; ok {
		return key, true
	}
	lower := strings.ToLower(key)
	for name := range n.inputSchema {
		if strings.ToLower(name) == lower {
			return name, true
		}
	}
	return "", false
}

// String implements fmt.Stringer for log output.
func (n *Node) String() string {
	return fmt.Sprintf("%s(%s)", n.Name, n.ID)
}
