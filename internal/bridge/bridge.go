// Package bridge implements the shared scoped key/value store that decouples
// node producers from consumers. One Bridge exists per graph run; sub-graph
// invocations get a child Bridge that shares the parent's object manager so
// opaque handles survive the hop without serialization.
package bridge

import (
	"sort"
	"sync"

	"github.com/alexisbeaulieu97/synapse/internal/logging"
	"github.com/alexisbeaulieu97/synapse/internal/scope"
)

// HijackFunc is a provider-installed replacement handler. It receives the
// consumer node's merged arguments and returns the handler's raw result.
type HijackFunc func(args map[string]interface{}) (interface{}, error)

// Bridge is a process-safe scoped key/value store. All cross-node state flows
// through it: port values, active-port pulses, loop counters, control flags,
// provider indexes and super-function registrations.
type Bridge struct {
	mu      sync.Mutex
	data    map[string]interface{}
	sources map[string]string
	super   map[string]map[string]HijackFunc

	objects *ObjectManager
	logger  *logging.Logger

	defaultScope string
	closed       bool
}

// New creates a Bridge with its own object manager.
func New(log *logging.Logger) *Bridge {
	return newBridge(NewObjectManager(), log)
}

// NewChild creates a Bridge for a sub-graph invocation. It reuses the parent's
// object manager to avoid a per-invocation spawn; keyed data is NOT shared.
func NewChild(parent *Bridge, log *logging.Logger) *Bridge {
	mgr := NewObjectManager()
	if parent != nil && parent.objects != nil {
		mgr = parent.objects
	}
	return newBridge(mgr, log)
}

func newBridge(mgr *ObjectManager, log *logging.Logger) *Bridge {
	if log == nil {
		log = logging.Nop()
	}
	return &Bridge{
		data:         make(map[string]interface{}),
		sources:      make(map[string]string),
		super:        make(map[string]map[string]HijackFunc),
		objects:      mgr,
		logger:       log,
		defaultScope: scope.Root,
	}
}

// DefaultScope returns the scope bare-name reads and writes resolve against.
func (b *Bridge) DefaultScope() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.defaultScope
}

// Set writes a value atomically, overwriting any previous value. The source is
// recorded for trace output only.
func (b *Bridge) Set(key string, value interface{}, source string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.data[key] = value
	b.sources[key] = source
}

// Get reads the current value for key, or nil when absent.
func (b *Bridge) Get(key string) interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data[key]
}

// Delete removes a key. Absent keys are a no-op.
func (b *Bridge) Delete(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
	delete(b.sources, key)
}

// SetScoped writes name under the given scope (`{scope}:{name}`).
func (b *Bridge) SetScoped(name string, value interface{}, source, scopeID string) {
	if scopeID == "" {
		scopeID = b.DefaultScope()
	}
	b.Set(ScopedKey(scopeID, name), value, source)
}

// GetScoped resolves a bare name: the requested scope first, then the root.
func (b *Bridge) GetScoped(name, scopeID string) interface{} {
	if scopeID == "" {
		scopeID = b.DefaultScope()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if v, ok := b.data[ScopedKey(scopeID, name)]; ok {
		return v
	}
	if v, ok := b.data[ScopedKey(scope.Root, name)]; ok {
		return v
	}
	return b.data[name]
}

// BubbleSet writes at an outer named scope instead of the current one. Loops
// and sub-graphs use it to publish into the Global scope.
func (b *Bridge) BubbleSet(name string, value interface{}, source, scopeID string) {
	if scopeID == "" {
		scopeID = scope.Root
	}
	b.Set(ScopedKey(scopeID, name), value, source)
}

// Increment atomically adds delta to a counter key and returns the new value.
// Missing or non-numeric values count from zero.
func (b *Bridge) Increment(key string, delta int64) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	var current int64
	switch v := b.data[key].(type) {
	case int64:
		current = v
	case int:
		current = int64(v)
	case float64:
		current = int64(v)
	}
	current += delta
	b.data[key] = current
	return current
}

// SetObject stores an opaque local handle in the side table. Keys never cross
// a process boundary and values are never serialized.
func (b *Bridge) SetObject(key string, handle interface{}) {
	b.objects.Set(key, handle)
}

// GetObject retrieves a handle from the side table, or nil when absent.
func (b *Bridge) GetObject(key string) interface{} {
	return b.objects.Get(key)
}

// DeleteObject removes a handle from the side table.
func (b *Bridge) DeleteObject(key string) {
	b.objects.Delete(key)
}

// GetProviderID walks the context stack from top to root and returns the node
// id of the nearest scope providing the given capability type, or "" if none.
func (b *Bridge) GetProviderID(stack scope.Stack, providerType string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(stack) - 1; i >= 0; i-- {
		if v, ok := b.data[ProviderIndexKey(stack[i], providerType)]; ok {
			if id, ok := v.(string); ok && id != "" {
				return id
			}
		}
	}
	return ""
}

// RegisterSuperFunction installs a provider override for functionName. While
// the provider's scope is on a consumer's stack, the override runs instead of
// the consumer's native handler.
func (b *Bridge) RegisterSuperFunction(providerID, functionName string, fn HijackFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.super[providerID] == nil {
		b.super[providerID] = make(map[string]HijackFunc)
	}
	b.super[providerID][functionName] = fn
}

// UnregisterSuperFunctions removes every override a provider installed.
// Called on scope teardown.
func (b *Bridge) UnregisterSuperFunctions(providerID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.super, providerID)
}

// GetHijackHandler walks the stack from top to root looking for a provider
// that overrides functionName. Returns the provider id and the override, or
// ("", nil) when no provider on the stack claims the function.
func (b *Bridge) GetHijackHandler(stack scope.Stack, functionName string) (string, HijackFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(stack) - 1; i >= 0; i-- {
		providerID := b.providerOfScopeLocked(stack[i])
		if providerID == "" {
			continue
		}
		if fns, ok := b.super[providerID]; ok {
			if fn, ok := fns[functionName]; ok {
				return providerID, fn
			}
		}
	}
	return "", nil
}

// ProviderOfScope returns the node id that provides the given scope, or ""
// when the scope has no registered provider.
func (b *Bridge) ProviderOfScope(scopeID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.providerOfScopeLocked(scopeID)
}

// providerOfScopeLocked finds the node id registered under any provider index
// for the given scope. Caller holds b.mu.
func (b *Bridge) providerOfScopeLocked(scopeID string) string {
	prefix := scopeID + "_Provider_"
	for k, v := range b.data {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			if id, ok := v.(string); ok {
				return id
			}
		}
	}
	return ""
}

// InvokeHijack runs a registered super-function directly by provider id.
func (b *Bridge) InvokeHijack(providerID, functionName string, args map[string]interface{}) (interface{}, error) {
	b.mu.Lock()
	fn := b.super[providerID][functionName]
	b.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(args)
}

// SetActivePorts records the output ports a node pulsed during its activation.
// The list is write-once per activation; the engine consumes it.
func (b *Bridge) SetActivePorts(nodeID string, ports []string, source string) {
	b.Set(ActivePortsKey(nodeID), ports, source)
}

// TakeActivePorts atomically reads and clears a node's active-ports entry.
func (b *Bridge) TakeActivePorts(nodeID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := ActivePortsKey(nodeID)
	raw, ok := b.data[key]
	if !ok {
		return nil
	}
	delete(b.data, key)

	switch v := raw.(type) {
	case []string:
		return v
	case []interface{}:
		ports := make([]string, 0, len(v))
		for _, p := range v {
			if s, ok := p.(string); ok {
				ports = append(ports, s)
			}
		}
		return ports
	}
	return nil
}

// ActiveNodes returns the ids of every node with a pending active-ports entry,
// sorted for deterministic sweep order.
func (b *Bridge) ActiveNodes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var ids []string
	for k := range b.data {
		if len(k) > len(activePortsSuffix) && k[len(k)-len(activePortsSuffix):] == activePortsSuffix {
			ids = append(ids, k[:len(k)-len(activePortsSuffix)])
		}
	}
	sort.Strings(ids)
	return ids
}

// GetAllKeys returns every key currently present, sorted.
func (b *Bridge) GetAllKeys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a shallow copy of the keyed state. Used for back-step
// history frames and the watch UI. Object handles are not captured.
func (b *Bridge) Snapshot() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	snap := make(map[string]interface{}, len(b.data))
	for k, v := range b.data {
		snap[k] = v
	}
	return snap
}

// Restore replaces the keyed state with a previously captured snapshot.
func (b *Bridge) Restore(snap map[string]interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = make(map[string]interface{}, len(snap))
	for k, v := range snap {
		b.data[k] = v
	}
}

// DumpState is Snapshot under the name the watch UI calls it by.
func (b *Bridge) DumpState() map[string]interface{} {
	return b.Snapshot()
}

// Source returns the recorded writer of a key, for trace output.
func (b *Bridge) Source(key string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sources[key]
}

// Close marks the bridge shut down. Subsequent writes are swallowed so late
// worker completions during teardown cannot fail.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}
