package nodes

import (
	"github.com/alexisbeaulieu97/synapse/internal/kind"
	"github.com/alexisbeaulieu97/synapse/internal/node"
)

// memoryConnection is the handle a Memory Data Provider stores in the object
// side table. It stands in for a real driver connection and never leaves the
// process.
type memoryConnection struct {
	Tables map[string][]map[string]interface{}
}

func databaseHandleKey(nodeID string) string { return "_Database_" + nodeID }

func newMemoryDataProvider(id, name string, rt *node.Runtime) *node.Node {
	return NewProvider(id, name, "Memory Data Provider", rt, ProviderHooks{
		ProviderType: "DATABASE",
		Setup: func(act *node.Activation, scopeID string) error {
			conn := &memoryConnection{Tables: make(map[string][]map[string]interface{})}
			b := act.Node.Bridge()
			b.SetObject(databaseHandleKey(act.Node.ID), conn)
			// Children discover the handle key, not the handle itself.
			b.Set(act.Node.ID+"_Connection", databaseHandleKey(act.Node.ID), act.Node.Name)
			act.Node.Logger().Info("memory data provider initialized", "node", act.Node.ID)
			return nil
		},
		Teardown: func(n *node.Node) {
			n.Bridge().DeleteObject(databaseHandleKey(n.ID))
		},
	})
}

func newLogProvider(id, name string, rt *node.Runtime) *node.Node {
	n := NewProvider(id, name, "Log Provider", rt, ProviderHooks{
		ProviderType: "LOGGER",
		Setup: func(act *node.Activation, scopeID string) error {
			prefix, _ := act.Args["Prefix"].(string)
			if prefix == "" {
				prefix = act.Node.Name
			}
			act.Node.Bridge().Set(act.Node.ID+"_Prefix", prefix, act.Node.Name)
			return nil
		},
	})
	n.AddInput("Prefix", kind.String)
	return n
}

func init() {
	node.MustRegister("Memory Data Provider", newMemoryDataProvider)
	node.MustRegister("Log Provider", newLogProvider)
}
