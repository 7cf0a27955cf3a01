package nodes

import (
	"github.com/alexisbeaulieu97/synapse/internal/bridge"
	"github.com/alexisbeaulieu97/synapse/internal/kind"
	"github.com/alexisbeaulieu97/synapse/internal/node"
	"github.com/alexisbeaulieu97/synapse/internal/scope"
)

// projectScope is the scope graph-local variables live under. Sub-graphs own
// their bridge, so "Project" is naturally per-graph-instance.
const projectScope = "Project"

func newGlobalSetVarNode(id, name string, rt *node.Runtime) *node.Node {
	n := node.New(id, name, "Global Set Var", rt)
	n.Native = true

	n.AddInput("Flow", kind.Flow)
	n.AddInput("Var Name", kind.String)
	n.AddInput("Value", kind.Any)

	n.AddOutput("Flow", kind.Flow)

	n.RegisterHandler("Flow", func(act *node.Activation) node.Result {
		varName, _ := act.Args["Var Name"].(string)
		if varName == "" {
			act.Node.Logger().Warn("global set var: no variable name provided", "node", act.Node.ID)
			act.Node.Pulse("Flow")
			return node.Done()
		}

		// Bubble to the root registry so any graph level can read it.
		act.Node.Bridge().BubbleSet(varName, act.Args["Value"], act.Node.ID, scope.Root)
		act.Node.Pulse("Flow")
		return node.Done()
	})

	return n
}

func newGlobalGetVarNode(id, name string, rt *node.Runtime) *node.Node {
	n := node.New(id, name, "Global Get Var", rt)
	n.Native = true

	n.AddInput("Flow", kind.Flow)
	n.AddInput("Var Name", kind.String)

	n.AddOutput("Flow", kind.Flow)
	n.AddOutput("Value", kind.Any)

	n.RegisterHandler("Flow", func(act *node.Activation) node.Result {
		varName, _ := act.Args["Var Name"].(string)
		if varName == "" {
			act.Node.Logger().Warn("global get var: no variable name provided", "node", act.Node.ID)
			act.Node.SetOutput("Value", nil)
			act.Node.Pulse("Flow")
			return node.Done()
		}

		act.Node.SetOutput("Value", act.Node.Bridge().GetScoped(varName, scope.Root))
		act.Node.Pulse("Flow")
		return node.Done()
	})

	return n
}

func newProjectSetVarNode(id, name string, rt *node.Runtime) *node.Node {
	n := node.New(id, name, "Project Set Var", rt)
	n.Native = true

	n.AddInput("Flow", kind.Flow)
	n.AddInput("Var Name", kind.String)
	n.AddInput("Value", kind.Any)

	n.AddOutput("Flow", kind.Flow)

	n.RegisterHandler("Flow", func(act *node.Activation) node.Result {
		varName, _ := act.Args["Var Name"].(string)
		if varName == "" {
			act.Node.Logger().Warn("project set var: no variable name provided", "node", act.Node.ID)
			act.Node.Pulse("Flow")
			return node.Done()
		}

		act.Node.Bridge().SetScoped(varName, act.Args["Value"], act.Node.ID, projectScope)
		act.Node.Pulse("Flow")
		return node.Done()
	})

	return n
}

func newProjectGetVarNode(id, name string, rt *node.Runtime) *node.Node {
	n := node.New(id, name, "Project Get Var", rt)
	n.Native = true

	n.AddInput("Flow", kind.Flow)
	n.AddInput("Var Name", kind.String)

	n.AddOutput("Flow", kind.Flow)
	n.AddOutput("Value", kind.Any)

	n.RegisterHandler("Flow", func(act *node.Activation) node.Result {
		varName, _ := act.Args["Var Name"].(string)
		if varName == "" {
			act.Node.Logger().Warn("project get var: no variable name provided", "node", act.Node.ID)
			act.Node.SetOutput("Value", nil)
			act.Node.Pulse("Flow")
			return node.Done()
		}

		b := act.Node.Bridge()
		val := b.GetScoped(varName, projectScope)
		// Project-level defaults from the document's project_vars block.
		if val == nil {
			val = b.Get(bridge.ProjectVarKey(varName))
		}
		act.Node.SetOutput("Value", val)
		act.Node.Pulse("Flow")
		return node.Done()
	})

	return n
}

func init() {
	node.MustRegister("Global Set Var", newGlobalSetVarNode)
	node.MustRegister("Global Get Var", newGlobalGetVarNode)
	node.MustRegister("Project Set Var", newProjectSetVarNode)
	node.MustRegister("Project Get Var", newProjectGetVarNode)
}
