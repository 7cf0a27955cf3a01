package graph

// WireTable indexes wires by their source port. Cycles are legal and
// essential (loops re-enter themselves); the engine schedules through the
// active-ports queue, so the table is a pure lookup structure with no
// traversal order of its own.
type WireTable struct {
	bySource map[sourceKey][]WireSpec
	byTarget map[string][]WireSpec
}

type sourceKey struct {
	nodeID string
	port   string
}

// NewWireTable builds a table from a document's wires. Fan-out order follows
// declaration order.
func NewWireTable(wires []WireSpec) *WireTable {
	t := &WireTable{
		bySource: make(map[sourceKey][]WireSpec),
		byTarget: make(map[string][]WireSpec),
	}
	for _, w := range wires {
		k := sourceKey{nodeID: w.FromNode, port: w.FromPort}
		t.bySource[k] = append(t.bySource[k], w)
		t.byTarget[w.ToNode] = append(t.byTarget[w.ToNode], w)
	}
	return t
}

// From returns the wires leaving (nodeID, port) in declaration order.
func (t *WireTable) From(nodeID, port string) []WireSpec {
	return t.bySource[sourceKey{nodeID: nodeID, port: port}]
}

// Into returns every wire entering a node, used for input resolution.
func (t *WireTable) Into(nodeID string) []WireSpec {
	return t.byTarget[nodeID]
}

// IncomingTo returns the wires feeding one specific input port.
func (t *WireTable) IncomingTo(nodeID, port string) []WireSpec {
	var out []WireSpec
	for _, w := range t.byTarget[nodeID] {
		if w.ToPort == port {
			out = append(out, w)
		}
	}
	return out
}
