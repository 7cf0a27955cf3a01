package engine

import (
	"fmt"
	"strings"

	"github.com/alexisbeaulieu97/synapse/internal/bridge"
	"github.com/alexisbeaulieu97/synapse/internal/graph"
	"github.com/alexisbeaulieu97/synapse/internal/node"
	synerrors "github.com/alexisbeaulieu97/synapse/pkg/errors"
)

// Well-known node type labels the loader special-cases.
const (
	TypeStart    = "Start Node"
	TypeReturn   = "Return Node"
	TypeSubGraph = "SubGraph Node"
)

// Load instantiates a validated document into an engine: nodes through the
// type registry, project variables into the bridge, wires with endpoint
// checks. Returns the node map for entry-point validation.
func Load(doc *graph.Document, e *Engine) (map[string]*node.Node, error) {
	rt := &node.Runtime{
		Bridge:      e.bridge,
		Ports:       e.ports,
		Logger:      e.logger.With("component", "node"),
		ProjectName: doc.ProjectName,
		Host:        e,
	}

	for name, val := range doc.ProjectVars {
		e.bridge.Set(bridge.ProjectVarKey(name), val, "ProjectLoader")
	}

	loaded := make(map[string]*node.Node, len(doc.Nodes))

	for _, spec := range doc.Nodes {
		name := spec.Name
		if name == "" {
			name = spec.Type
		}

		factory, err := node.Lookup(spec.Type)
		if err != nil {
			// A node with a graph path is a sub-graph even when its saved
			// type label is unknown (favorites renamed since save).
			if hasGraphPath(spec.Properties) {
				factory, err = node.Lookup(TypeSubGraph)
			}
			if err != nil {
				return nil, synerrors.NewValidationError(
					fmt.Sprintf("nodes[%s].type", spec.ID),
					fmt.Sprintf("unknown node type %q", spec.Type), err)
			}
			e.logger.Warn("unknown node type, falling back to sub-graph", "id", spec.ID, "type", spec.Type)
		}

		n := factory(spec.ID, name, rt)
		applyProperties(n, spec.Properties, e)

		// Hand the document's embedded payload to sub-graph nodes that carry
		// none of their own; it is read only when the graph path does not resolve.
		if payload, ok := doc.EmbeddedSubGraphs[graphPathOf(n.Properties)]; ok {
			if _, has := n.Properties["Embedded Data"]; !has || n.Properties["Embedded Data"] == nil {
				n.Properties["Embedded Data"] = string(payload)
			}
		}

		if n.OnPropertiesApplied != nil {
			n.OnPropertiesApplied(n)
		}

		e.RegisterNode(n)
		loaded[spec.ID] = n
	}

	for i, w := range doc.Wires {
		src, ok := loaded[w.FromNode]
		if !ok {
			return nil, synerrors.NewValidationError(
				fmt.Sprintf("wires[%d].from_node", i),
				fmt.Sprintf("references unknown node %q", w.FromNode), nil)
		}
		dst, ok := loaded[w.ToNode]
		if !ok {
			return nil, synerrors.NewValidationError(
				fmt.Sprintf("wires[%d].to_node", i),
				fmt.Sprintf("references unknown node %q", w.ToNode), nil)
		}

		if !src.HasOutput(w.FromPort) && !src.AllowDynamicOutputs {
			return nil, synerrors.NewValidationError(
				fmt.Sprintf("wires[%d].from_port", i),
				fmt.Sprintf("node %q declares no output %q", w.FromNode, w.FromPort), nil)
		}
		if !dst.HasInput(w.ToPort) && !dst.AllowDynamicInputs {
			return nil, synerrors.NewValidationError(
				fmt.Sprintf("wires[%d].to_port", i),
				fmt.Sprintf("node %q declares no input %q", w.ToNode, w.ToPort), nil)
		}

		e.Connect(w.FromNode, w.FromPort, w.ToNode, w.ToPort)
	}

	return loaded, nil
}

// ValidateEntryPoints enforces the start/return contract on a top-level
// graph: exactly one Start node, at least one Return node. Returns the start
// node id.
func ValidateEntryPoints(nodes map[string]*node.Node) (string, error) {
	var startIDs []string
	returnCount := 0
	for id, n := range nodes {
		switch n.Type {
		case TypeStart:
			startIDs = append(startIDs, id)
		case TypeReturn:
			returnCount++
		}
	}

	if len(startIDs) != 1 {
		return "", synerrors.NewValidationError("nodes",
			fmt.Sprintf("found %d Start nodes, exactly one is required", len(startIDs)), nil)
	}
	if returnCount < 1 {
		return "", synerrors.NewValidationError("nodes",
			"found 0 Return nodes, at least one is required", nil)
	}

	return startIDs[0], nil
}

// applyProperties overlays persisted properties onto a constructed node,
// dropping keys the node neither declares nor allows dynamically.
func applyProperties(n *node.Node, props map[string]interface{}, e *Engine) {
	allowedDynamic := make(map[string]bool)
	for _, key := range []string{"Additional Inputs", "Additional Outputs"} {
		if list, ok := props[key].([]interface{}); ok {
			for _, v := range list {
				if s, ok := v.(string); ok {
					allowedDynamic[strings.ToLower(s)] = true
				}
			}
		}
	}

	for k, v := range props {
		switch {
		case hasKey(n.Properties, k):
			n.Properties[k] = v
		case allowedDynamic[strings.ToLower(k)] || n.AllowDynamicInputs || n.AllowDynamicOutputs:
			n.Properties[k] = v
		case matchesInputCaseInsensitive(n, k):
			n.Properties[k] = v
		default:
			e.logger.Warn("skipped dead property", "node", n.Name, "property", k)
		}
	}
}

func hasKey(m map[string]interface{}, k string) bool {
	_, ok := m[k]
	return ok
}

func matchesInputCaseInsensitive(n *node.Node, key string) bool {
	lower := strings.ToLower(key)
	for _, name := range n.Inputs() {
		if strings.ToLower(name) == lower {
			return true
		}
	}
	return false
}

func hasGraphPath(props map[string]interface{}) bool {
	return graphPathOf(props) != ""
}

func graphPathOf(props map[string]interface{}) string {
	for _, key := range []string{"Graph Path", "GraphPath", "graph_path"} {
		if s, ok := props[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
