package nodes

import (
	"github.com/alexisbeaulieu97/synapse/internal/kind"
	"github.com/alexisbeaulieu97/synapse/internal/node"
	"github.com/alexisbeaulieu97/synapse/internal/port"
)

// newStartNode builds the entry point of a graph. It primes its declared
// outputs from values a parent sub-graph injected (registry key, bare name,
// legacy key, then its own property defaults) and pulses Flow.
func newStartNode(id, name string, rt *node.Runtime) *node.Node {
	n := node.New(id, name, "Start Node", rt)
	n.Service = true
	n.Native = true
	n.AllowDynamicOutputs = true

	n.AddOutput("Flow", kind.Flow)
	n.AddOutput("Error Flow", kind.Flow)

	n.OnPropertiesApplied = func(n *node.Node) {
		for _, out := range additionalPorts(n.Properties, "Additional Outputs") {
			if out != "Flow" && !n.HasOutput(out) {
				n.AddOutput(out, kind.Any)
			}
		}
	}

	n.RegisterHandler("Flow", func(act *node.Activation) node.Result {
		injectStartOutputs(act.Node)
		act.Node.Pulse("Flow")
		return node.Done()
	})

	return n
}

// injectStartOutputs primes each data output for downstream consumers in this
// graph pass.
func injectStartOutputs(n *node.Node) {
	b := n.Bridge()
	reg := n.Runtime().Ports

	for _, out := range n.Outputs() {
		if out == "Flow" || out == "Error Flow" {
			continue
		}

		var val interface{}
		// Registry key: direct injection from a registry-aware parent.
		if reg != nil {
			if key, ok := reg.Lookup(n.ID, out, port.Output); ok {
				val = b.Get(key)
			}
		}
		// Bare name: standard parent injection.
		if val == nil {
			val = b.Get(out)
		}
		// Legacy node-prefixed key.
		if val == nil {
			val = b.Get(port.LegacyKey(n.ID, out))
		}
		// Property fallback: the graph's own defaults.
		if val == nil {
			val = n.Properties[out]
		}

		if val != nil {
			n.SetOutput(out, val)
		}
	}
}

// additionalPorts reads a dynamic port list property, tolerating both the
// migrated Title Case key and raw string slices.
func additionalPorts(props map[string]interface{}, key string) []string {
	raw, ok := props[key]
	if !ok {
		return nil
	}
	switch list := raw.(type) {
	case []string:
		return list
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, v := range list {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func init() {
	node.MustRegister("Start Node", newStartNode)
}
