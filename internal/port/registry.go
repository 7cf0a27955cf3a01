// Package port assigns stable unique identifiers to every (node, port,
// direction) triple. The identifier is the authoritative bridge key for port
// traffic; legacy `{node_id}_{port_name}` keys remain readable for graphs
// persisted before the registry existed.
package port

import (
	"sync"

	"github.com/google/uuid"
)

// Direction distinguishes input and output ports.
type Direction string

const (
	Input  Direction = "input"
	Output Direction = "output"
)

type portKey struct {
	nodeID    string
	portName  string
	direction Direction
}

// Registry maps port triples to stable UUIDs. One Registry exists per engine;
// sub-graph engines own their own.
type Registry struct {
	mu      sync.Mutex
	ids     map[portKey]string
	reverse map[string]portKey
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		ids:     make(map[portKey]string),
		reverse: make(map[string]portKey),
	}
}

// BridgeKey returns the stable bridge key for a port, assigning a UUID on
// first mention.
func (r *Registry) BridgeKey(nodeID, portName string, direction Direction) string {
	k := portKey{nodeID: nodeID, portName: portName, direction: direction}

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.ids[k]; ok {
		return id
	}
	id := uuid.NewString()
	r.ids[k] = id
	r.reverse[id] = k
	return id
}

// Lookup returns the already-assigned key for a port without assigning one.
func (r *Registry) Lookup(nodeID, portName string, direction Direction) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.ids[portKey{nodeID: nodeID, portName: portName, direction: direction}]
	return id, ok
}

// Resolve maps a bridge key back to its port triple, for trace and debugging.
func (r *Registry) Resolve(bridgeKey string) (nodeID, portName string, direction Direction, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.reverse[bridgeKey]
	if !ok {
		return "", "", "", false
	}
	return k.nodeID, k.portName, k.direction, true
}

// LegacyKey returns the backward-compatible node-prefixed key for a port.
func LegacyKey(nodeID, portName string) string {
	return nodeID + "_" + portName
}
