package nodes

import (
	"github.com/alexisbeaulieu97/synapse/internal/kind"
	"github.com/alexisbeaulieu97/synapse/internal/node"
)

// newWhileNode repeats its Body while the Condition input stays true.
func newWhileNode(id, name string, rt *node.Runtime) *node.Node {
	n := newLoopNode(id, name, "While Node", rt, func(act *node.Activation, index int64) (bool, interface{}) {
		condition, ok := act.Args["Condition"]
		if !ok || condition == nil {
			condition = act.Node.Properties["Condition"]
		}
		return kind.ToBool(condition), nil
	})
	n.AddInput("Condition", kind.Boolean)
	n.Properties["Condition"] = true
	return n
}

// newForNode counts from Start toward Stop by Step, emitting the iteration
// index on Index and the logical counter value on Item.
func newForNode(id, name string, rt *node.Runtime) *node.Node {
	n := newLoopNode(id, name, "For Node", rt, func(act *node.Activation, index int64) (bool, interface{}) {
		start := int64(kind.ToNumber(argOrProperty(act, "Start")))
		step := int64(kind.ToNumber(argOrProperty(act, "Step")))
		stop := int64(kind.ToNumber(argOrProperty(act, "Stop")))
		op, _ := argOrProperty(act, "Compare Type").(string)
		if op == "" {
			op = "<"
		}

		logical := start + index*step
		if compareInt(logical, stop, op) {
			// The logical counter is the Item; the loop core publishes it.
			return true, logical
		}
		return false, nil
	})

	n.AddInput("Start", kind.Number)
	n.AddInput("Step", kind.Number)
	n.AddInput("Stop", kind.Number)
	n.AddInput("Compare Type", kind.Compare)

	n.Properties["Start"] = float64(0)
	n.Properties["Step"] = float64(1)
	n.Properties["Stop"] = float64(10)
	n.Properties["Compare Type"] = "<"

	n.AddOutput("Item", kind.Number)
	return n
}

// newForEachNode iterates a collection, emitting each element on Item.
func newForEachNode(id, name string, rt *node.Runtime) *node.Node {
	n := newLoopNode(id, name, "ForEach Node", rt, func(act *node.Activation, index int64) (bool, interface{}) {
		collection := kind.ToList(argOrProperty(act, "Collection"))
		if index < 0 || index >= int64(len(collection)) {
			return false, nil
		}
		return true, collection[index]
	})

	n.AddInput("Collection", kind.List)
	n.AddOutput("Item", kind.Any)
	return n
}

func argOrProperty(act *node.Activation, name string) interface{} {
	if v, ok := act.Args[name]; ok && v != nil {
		return v
	}
	return act.Node.Properties[name]
}

func compareInt(current, stop int64, op string) bool {
	switch op {
	case "<":
		return current < stop
	case "<=":
		return current <= stop
	case ">":
		return current > stop
	case ">=":
		return current >= stop
	case "==":
		return current == stop
	case "!=":
		return current != stop
	}
	return false
}

func init() {
	node.MustRegister("While Node", newWhileNode)
	node.MustRegister("For Node", newForNode)
	node.MustRegister("ForEach Node", newForEachNode)
}
