package graph

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/gjson"
)

// FlowPort is one flow-labelled output derived from a Return node, together
// with the data ports that Return captures.
type FlowPort struct {
	Label     string
	DataPorts []string
}

// PortScan is the result of analyzing a sub-graph document: the dynamic
// inputs (from the Start node), the flow outputs (one per Return node) and
// the mapping from raw Return labels to the disambiguated pin labels.
type PortScan struct {
	Inputs     []string
	FlowPorts  []FlowPort
	LabelToPin map[string]string
}

// ScanSubGraphPorts extracts the dynamic port surface of a sub-graph from its
// raw document. Both the load-time schema builder and the runtime SubGraph
// node use this one analyzer so the two can never disagree.
func ScanSubGraphPorts(data []byte) PortScan {
	scan := PortScan{LabelToPin: make(map[string]string)}

	root := gjson.ParseBytes(data)
	var start gjson.Result
	var returns []gjson.Result

	root.Get("nodes").ForEach(func(_, node gjson.Result) bool {
		switch node.Get("type").String() {
		case "Start Node":
			if !start.Exists() {
				start = node
			}
		case "Return Node":
			returns = append(returns, node)
		}
		return true
	})

	if !start.Exists() {
		return scan
	}

	// Inputs: the Start node's declared additional outputs, else a wire scan.
	startOutputs := firstArray(start,
		"properties.Additional Outputs", "properties.additional_outputs", "outputs")
	if len(startOutputs) == 0 {
		startID := start.Get("id").String()
		root.Get("wires").ForEach(func(_, wire gjson.Result) bool {
			if wire.Get("from_node").String() == startID {
				if p := wire.Get("from_port").String(); p != "" && p != "Flow" {
					startOutputs = appendUnique(startOutputs, p)
				}
			}
			return true
		})
	}
	for _, out := range startOutputs {
		if out != "Flow" {
			scan.Inputs = append(scan.Inputs, out)
		}
	}

	// Outputs: one flow port per Return node plus its data ports.
	for _, ret := range returns {
		rawLabel := firstString(ret,
			"properties.Label", "properties.label", "name")
		if rawLabel == "" {
			rawLabel = "Return Node"
		}

		dataPorts := firstArray(ret,
			"properties.Additional Inputs", "properties.additional_inputs", "inputs")
		if len(dataPorts) == 0 {
			retID := ret.Get("id").String()
			root.Get("wires").ForEach(func(_, wire gjson.Result) bool {
				if wire.Get("to_node").String() == retID {
					p := wire.Get("to_port").String()
					if p != "" && p != "Flow" && p != "In" && p != "Exec" {
						dataPorts = appendUnique(dataPorts, p)
					}
				}
				return true
			})
		} else {
			filtered := dataPorts[:0]
			for _, p := range dataPorts {
				if p != "Flow" && p != "In" && p != "Exec" {
					filtered = append(filtered, p)
				}
			}
			dataPorts = filtered
		}

		label := rawLabel
		isGeneric := label == "Return Node" || label == "Return"

		if len(returns) == 1 && isGeneric {
			label = "Flow"
		} else {
			// A label colliding with one of its own data ports gets a suffix.
			for _, dp := range dataPorts {
				if dp == label {
					label = label + " Flow"
					break
				}
			}
			// Uniqueness across Return nodes.
			base := label
			counter := 1
			for scanHasLabel(scan.FlowPorts, label) {
				label = fmt.Sprintf("%s_%d", base, counter)
				counter++
			}
		}

		scan.LabelToPin[rawLabel] = label
		scan.FlowPorts = append(scan.FlowPorts, FlowPort{Label: label, DataPorts: dataPorts})
	}

	return scan
}

// ResolveSubGraphDocument locates a sub-graph's raw document: the file on disk
// first (always the freshest copy), the embedded payload as fallback.
func ResolveSubGraphDocument(graphPath string, embedded json.RawMessage) ([]byte, error) {
	if graphPath != "" {
		if data, err := os.ReadFile(graphPath); err == nil {
			return data, nil
		}
	}
	if len(embedded) > 0 {
		return embedded, nil
	}
	return nil, fmt.Errorf("no graph data: path %q unreadable and no embedded payload", graphPath)
}

func scanHasLabel(ports []FlowPort, label string) bool {
	for _, p := range ports {
		if p.Label == label {
			return true
		}
	}
	return false
}

func firstArray(node gjson.Result, paths ...string) []string {
	for _, path := range paths {
		field := node.Get(path)
		if field.IsArray() {
			var out []string
			field.ForEach(func(_, v gjson.Result) bool {
				out = append(out, v.String())
				return true
			})
			return out
		}
	}
	return nil
}

func firstString(node gjson.Result, paths ...string) string {
	for _, path := range paths {
		if v := node.Get(path); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
