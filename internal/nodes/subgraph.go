package nodes

import (
	"encoding/json"
	"fmt"

	"github.com/alexisbeaulieu97/synapse/internal/bridge"
	"github.com/alexisbeaulieu97/synapse/internal/engine"
	"github.com/alexisbeaulieu97/synapse/internal/graph"
	"github.com/alexisbeaulieu97/synapse/internal/kind"
	"github.com/alexisbeaulieu97/synapse/internal/node"
	"github.com/alexisbeaulieu97/synapse/internal/port"
	"github.com/alexisbeaulieu97/synapse/internal/scope"
)

var subGraphSystemProps = map[string]bool{
	"Graph Path": true, "GraphPath": true, "graph_path": true,
	"Embedded Data": true, "EmbeddedData": true, "embedded_data": true,
	"Isolated": true,
}

// newSubGraphNode embeds a nested graph as one node. Its port surface is
// derived from the child's Start and Return nodes; invocation runs a child
// engine over a child bridge and routes the return payload onto this node's
// outputs.
func newSubGraphNode(id, name string, rt *node.Runtime) *node.Node {
	n := node.New(id, name, "SubGraph Node", rt)
	n.Native = true
	n.AllowDynamicInputs = true
	n.AllowDynamicOutputs = true

	n.AddInput("Flow", kind.Flow)
	n.AddInput("Graph Path", kind.String)
	n.AddInput("Embedded Data", kind.Any)
	n.AddInput("Isolated", kind.Boolean)
	n.Properties["Graph Path"] = ""
	n.Properties["Embedded Data"] = nil
	n.Properties["Isolated"] = false

	n.AddOutput("Flow", kind.Flow)
	n.AddOutput("Error Flow", kind.Flow)

	n.OnPropertiesApplied = rebuildSubGraphSchema

	n.RegisterHandler("Flow", runSubGraph)
	return n
}

// rebuildSubGraphSchema derives the dynamic ports from the child document.
func rebuildSubGraphSchema(n *node.Node) {
	data, err := resolveChildDocument(n.Properties)
	if err != nil {
		return
	}

	scan := graph.ScanSubGraphPorts(data)
	for _, in := range scan.Inputs {
		if !n.HasInput(in) {
			n.AddInput(in, kind.Any)
		}
	}
	for _, fp := range scan.FlowPorts {
		if !n.HasOutput(fp.Label) {
			n.AddOutput(fp.Label, kind.Flow)
		}
		for _, dp := range fp.DataPorts {
			if !n.HasOutput(dp) {
				n.AddOutput(dp, kind.Any)
			}
		}
	}

	// Repair a generic node name from the child's project name.
	if n.Name == "SubGraph Node" || n.Name == n.Type {
		var meta struct {
			ProjectName string `json:"project_name"`
		}
		if json.Unmarshal(data, &meta) == nil && meta.ProjectName != "" {
			n.Name = meta.ProjectName
		}
	}
}

func runSubGraph(act *node.Activation) node.Result {
	n := act.Node
	b := n.Bridge()
	host, _ := n.Runtime().Host.(*engine.Engine)

	data, err := resolveChildDocument(act.Args)
	if err != nil {
		return subGraphFail(n, act, err)
	}

	childDoc, _, err := graph.ParseBytes(data, graphPathFrom(act.Args))
	if err != nil {
		return subGraphFail(n, act, err)
	}

	isolated := kind.ToBool(act.Args["Isolated"])
	initialStack := act.Stack.Clone()
	if isolated {
		initialStack = scope.NewStack()
	}

	childBridge := bridge.NewChild(b, n.Logger().With("component", "child-bridge"))
	defer childBridge.Close()

	var childEngine *engine.Engine
	if host != nil {
		childEngine = host.NewChild(childBridge, initialStack, graphPathFrom(act.Args))
	} else {
		childEngine = engine.New(childBridge, engine.Options{InitialStack: initialStack})
	}

	if host != nil {
		host.Tracer().SubGraphActivity()
		defer host.Tracer().SubGraphFinished()
	}

	loaded, err := engine.Load(childDoc, childEngine)
	if err != nil {
		return subGraphFail(n, act, err)
	}
	startID, err := engine.ValidateEntryPoints(loaded)
	if err != nil {
		return subGraphFail(n, act, err)
	}

	// Ambient control and identity for the child run.
	if stopFile, _ := b.Get(bridge.KeyStopFile).(string); stopFile != "" {
		childBridge.Set(bridge.KeyStopFile, stopFile, "Parent_Injection")
	}
	if pauseFile, _ := b.Get(bridge.KeyPauseFile).(string); pauseFile != "" {
		childBridge.Set(bridge.KeyPauseFile, pauseFile, "Parent_Injection")
	}
	childBridge.Set(bridge.KeyParentNodeID, n.ID, "Parent_Injection")

	subID := n.Name
	if parentSubID, _ := b.Get(bridge.KeySubGraphID).(string); parentSubID != "" {
		subID = parentSubID + " > " + n.Name
	}
	childBridge.Set(bridge.KeySubGraphID, subID, "Parent_Injection")

	// Inject arguments under all three key namespaces the child Start node
	// probes: bare name, legacy prefixed, registry key.
	childPorts := childEngine.Ports()
	for k, v := range act.Args {
		if k == "Flow" || subGraphSystemProps[k] || (len(k) > 0 && k[0] == '_') {
			continue
		}
		childBridge.Set(k, v, "Parent_Injection")
		childBridge.Set(port.LegacyKey(startID, k), v, "Parent_Injection")
		childBridge.Set(childPorts.BridgeKey(startID, k, port.Output), v, "Parent_Injection")
	}

	// Replicate the parent's Global scope.
	for _, key := range b.GetAllKeys() {
		if len(key) > 7 && key[:7] == "Global:" {
			childBridge.Set(key, b.Get(key), "Parent_Scope_Inheritance")
		}
	}

	if err := childEngine.Run(startID); err != nil {
		return subGraphFail(n, act, err)
	}

	results, _ := childBridge.Get("SUBGRAPH_RETURN_" + n.ID).(map[string]interface{})
	rawLabel, _ := childBridge.Get(bridge.KeyReturnLabel).(string)

	scan := graph.ScanSubGraphPorts(data)
	pin := scan.LabelToPin[rawLabel]
	if pin == "" {
		pin = rawLabel
	}
	if pin == "" || !n.HasOutput(pin) {
		pin = "Flow"
	}

	captured := make(map[string]bool, len(results))
	for k, v := range results {
		n.SetOutput(k, v)
		captured[k] = true
	}

	// Port mismatch reporting: a declared data output the child never
	// returned is a graph wiring defect worth surfacing.
	for _, expected := range n.Outputs() {
		if k, _ := n.OutputKind(expected); k == kind.Flow {
			continue
		}
		if !captured[expected] {
			n.Logger().Error("subgraph port mismatch",
				"node", n.Name, "expected", expected, "returned", len(results))
		}
	}

	n.Pulse(pin)
	return node.Done()
}

// subGraphFail records the failure and routes it down Error Flow instead of
// the generic Error port.
func subGraphFail(n *node.Node, act *node.Activation, err error) node.Result {
	n.Logger().Error("subgraph failed", "node", n.ID, "error", err)

	errObj := node.NewErrorObject("SubGraph: "+n.Name, n.Name, act.Args, err)
	n.Bridge().Set(bridge.LastErrorKey(n.ID), errObj, n.Name)
	n.Pulse("Error Flow")
	return node.Done()
}

// resolveChildDocument locates the child's raw bytes: file first, embedded
// payload as fallback.
func resolveChildDocument(source map[string]interface{}) ([]byte, error) {
	var embedded json.RawMessage
	switch v := embeddedDataFrom(source).(type) {
	case string:
		embedded = json.RawMessage(v)
	case map[string]interface{}:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal embedded data: %w", err)
		}
		embedded = data
	}

	return graph.ResolveSubGraphDocument(graphPathFrom(source), embedded)
}

func graphPathFrom(source map[string]interface{}) string {
	for _, key := range []string{"Graph Path", "GraphPath", "graph_path"} {
		if s, ok := source[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func embeddedDataFrom(source map[string]interface{}) interface{} {
	for _, key := range []string{"Embedded Data", "EmbeddedData", "embedded_data"} {
		if v, ok := source[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func init() {
	node.MustRegister("SubGraph Node", newSubGraphNode)
}
