package nodes

import (
	"strings"

	"github.com/alexisbeaulieu97/synapse/internal/bridge"
	"github.com/alexisbeaulieu97/synapse/internal/kind"
	"github.com/alexisbeaulieu97/synapse/internal/node"
)

// defaultScrubKeywords blocks UI-only port names from return payloads. A
// graph can replace the list through the scrub-keywords control key when a
// legitimate variable name collides with one of these substrings.
var defaultScrubKeywords = []string{"color", "additional", "schema", "label", "context", "provider"}

var reservedReturnPorts = map[string]bool{
	"Flow": true, "Exec": true, "In": true,
}

// newReturnNode builds the terminator of a sub-graph: it captures every
// non-reserved input as the return payload, records which Return fired, and
// yields control back to the parent.
func newReturnNode(id, name string, rt *node.Runtime) *node.Node {
	n := node.New(id, name, "Return Node", rt)
	n.Native = true
	n.AllowDynamicInputs = true

	n.AddInput("Flow", kind.Flow)

	n.OnPropertiesApplied = func(n *node.Node) {
		for _, in := range additionalPorts(n.Properties, "Additional Inputs") {
			if !reservedReturnPorts[in] && !n.HasInput(in) {
				n.AddInput(in, kind.Any)
			}
		}
	}

	n.RegisterHandler("Flow", func(act *node.Activation) node.Result {
		b := act.Node.Bridge()
		scrub := scrubKeywords(b)

		returnValues := make(map[string]interface{})
		for k, v := range act.Args {
			if reservedReturnPorts[k] || strings.HasPrefix(k, "_") {
				continue
			}
			if containsAny(strings.ToLower(k), scrub) {
				continue
			}
			returnValues[k] = v
		}

		returnKey := "SUBGRAPH_RETURN"
		if parentID, _ := b.Get(bridge.KeyParentNodeID).(string); parentID != "" {
			returnKey = "SUBGRAPH_RETURN_" + parentID
		}

		// Merge over any earlier Return's payload, scrubbing stale keys so a
		// previous pass cannot pollute this one.
		merged := make(map[string]interface{})
		if existing, ok := b.Get(returnKey).(map[string]interface{}); ok {
			for k, v := range existing {
				if reservedReturnPorts[k] || containsAny(strings.ToLower(k), scrub) {
					continue
				}
				merged[k] = v
			}
		}
		for k, v := range returnValues {
			merged[k] = v
		}
		b.Set(returnKey, merged, act.Node.Name)

		b.Set(bridge.KeyReturnLabel, returnLabel(act.Node), act.Node.Name)
		b.Set(bridge.KeyYield, true, act.Node.Name)

		act.Node.Logger().Debug("return fired", "node", act.Node.ID, "values", len(returnValues))
		return node.Done()
	})

	return n
}

// returnLabel resolves the label this Return is known by in the parent's
// port surface.
func returnLabel(n *node.Node) string {
	if label, ok := n.Properties["Label"].(string); ok && label != "" {
		return label
	}
	if n.Name != "" {
		return n.Name
	}
	return "Return Node"
}

// scrubKeywords reads the configurable blocklist, falling back to the default.
func scrubKeywords(b *bridge.Bridge) []string {
	switch v := b.Get(bridge.KeyReturnScrubWords).(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, kw := range v {
			if s, ok := kw.(string); ok {
				out = append(out, strings.ToLower(s))
			}
		}
		return out
	}
	return defaultScrubKeywords
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func init() {
	node.MustRegister("Return Node", newReturnNode)
}
