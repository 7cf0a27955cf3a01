package nodes

import (
	"github.com/alexisbeaulieu97/synapse/internal/kind"
	"github.com/alexisbeaulieu97/synapse/internal/node"
)

// newAddNode sums two numbers. It runs in the worker pool like any ordinary
// leaf.
func newAddNode(id, name string, rt *node.Runtime) *node.Node {
	n := node.New(id, name, "Add", rt)

	n.AddInput("Flow", kind.Flow)
	n.AddInput("A", kind.Number)
	n.AddInput("B", kind.Number)

	n.AddOutput("Flow", kind.Flow)
	n.AddOutput("Result", kind.Number)

	n.RegisterHandler("Flow", func(act *node.Activation) node.Result {
		a := kind.ToNumber(act.Args["A"])
		b := kind.ToNumber(act.Args["B"])
		act.Node.SetOutput("Result", a+b)
		act.Node.Pulse("Flow")
		return node.Done()
	})

	return n
}

// newCompareNode evaluates A <op> B and emits the boolean Result.
func newCompareNode(id, name string, rt *node.Runtime) *node.Node {
	n := node.New(id, name, "Compare", rt)

	n.AddInput("Flow", kind.Flow)
	n.AddInput("A", kind.Any)
	n.AddInput("B", kind.Any)
	n.AddInput("Compare Type", kind.Compare)
	n.Properties["Compare Type"] = "=="

	n.AddOutput("Flow", kind.Flow)
	n.AddOutput("Result", kind.Boolean)

	n.RegisterHandler("Flow", func(act *node.Activation) node.Result {
		op, _ := argOrProperty(act, "Compare Type").(string)
		a := act.Args["A"]
		b := act.Args["B"]

		var result bool
		switch op {
		case "==":
			result = kind.ToString(a) == kind.ToString(b)
		case "!=":
			result = kind.ToString(a) != kind.ToString(b)
		default:
			result = compareFloat(kind.ToNumber(a), kind.ToNumber(b), op)
		}

		act.Node.SetOutput("Result", result)
		act.Node.Pulse("Flow")
		return node.Done()
	})

	return n
}

func compareFloat(a, b float64, op string) bool {
	switch op {
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	}
	return false
}

// newBranchNode routes the pulse down True or False depending on Condition.
func newBranchNode(id, name string, rt *node.Runtime) *node.Node {
	n := node.New(id, name, "Branch", rt)
	n.Native = true

	n.AddInput("Flow", kind.Flow)
	n.AddInput("Condition", kind.Boolean)

	n.AddOutput("True", kind.Flow)
	n.AddOutput("False", kind.Flow)

	n.RegisterHandler("Flow", func(act *node.Activation) node.Result {
		if kind.ToBool(act.Args["Condition"]) {
			act.Node.Pulse("True")
		} else {
			act.Node.Pulse("False")
		}
		return node.Done()
	})

	return n
}

// newLogMessageNode writes a message through the run's logger, prefixed by
// the nearest Log Provider when one is in scope.
func newLogMessageNode(id, name string, rt *node.Runtime) *node.Node {
	n := node.New(id, name, "Log Message", rt)
	n.Native = true

	n.AddInput("Flow", kind.Flow)
	n.AddInput("Message", kind.String)

	n.AddOutput("Flow", kind.Flow)

	n.RegisterHandler("Flow", func(act *node.Activation) node.Result {
		msg, _ := act.Args["Message"].(string)

		prefix := ""
		if providerID := act.Node.ProviderID(act.Stack, "LOGGER"); providerID != "" {
			prefix, _ = act.Node.Bridge().Get(providerID + "_Prefix").(string)
		}
		if prefix != "" {
			act.Node.Logger().Info(msg, "prefix", prefix)
		} else {
			act.Node.Logger().Info(msg)
		}

		act.Node.Pulse("Flow")
		return node.Done()
	})

	return n
}

func init() {
	node.MustRegister("Add", newAddNode)
	node.MustRegister("Compare", newCompareNode)
	node.MustRegister("Branch", newBranchNode)
	node.MustRegister("Log Message", newLogMessageNode)
}
