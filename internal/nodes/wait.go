package nodes

import (
	"github.com/alexisbeaulieu97/synapse/internal/kind"
	"github.com/alexisbeaulieu97/synapse/internal/node"
)

func yieldingKey(nodeID string) string     { return nodeID + "_is_yielding" }
func earlyTriggerKey(nodeID string) string { return nodeID + "_early_trigger" }

// newWaitNode suspends its branch for Milliseconds without blocking parallel
// branches; the engine re-pulses Flow when the timer expires.
func newWaitNode(id, name string, rt *node.Runtime) *node.Node {
	n := node.New(id, name, "Wait", rt)
	n.Native = true

	n.AddInput("Flow", kind.Flow)
	n.AddInput("Milliseconds", kind.Number)
	n.Properties["Milliseconds"] = float64(1000)

	n.AddOutput("Flow", kind.Flow)

	n.RegisterHandler("Flow", func(act *node.Activation) node.Result {
		ms := int(kind.ToNumber(argOrProperty(act, "Milliseconds")))
		if ms < 0 {
			ms = 0
		}
		return node.Suspend(ms)
	})

	return n
}

// newThrottleNode delays the flow by Delay MS; a zero delay passes through
// immediately.
func newThrottleNode(id, name string, rt *node.Runtime) *node.Node {
	n := node.New(id, name, "Throttle", rt)
	n.Native = true

	n.AddInput("Flow", kind.Flow)
	n.AddInput("Delay MS", kind.Number)
	n.Properties["Delay MS"] = float64(0)

	n.AddOutput("Flow", kind.Flow)

	n.RegisterHandler("Flow", func(act *node.Activation) node.Result {
		ms := int(kind.ToNumber(argOrProperty(act, "Delay MS")))
		if ms < 0 {
			ms = -ms
		}
		if ms > 0 {
			return node.Suspend(ms)
		}
		act.Node.Pulse("Flow")
		return node.Done()
	})

	return n
}

// newYieldNode is a two-input rendezvous: Flow parks until Trigger arrives,
// and a Trigger that fires first arms an instant pass-through.
func newYieldNode(id, name string, rt *node.Runtime) *node.Node {
	n := node.New(id, name, "Yield", rt)
	n.Native = true

	n.AddInput("Flow", kind.Flow)
	n.AddInput("Trigger", kind.Trigger)

	n.AddOutput("Flow", kind.Flow)

	n.RegisterHandler("Flow", func(act *node.Activation) node.Result {
		b := act.Node.Bridge()
		if early, _ := b.Get(earlyTriggerKey(act.Node.ID)).(bool); early {
			b.Set(earlyTriggerKey(act.Node.ID), false, act.Node.Name)
			act.Node.Pulse("Flow")
			return node.Done()
		}
		// Not setting active ports halts this branch's pulse here.
		b.Set(yieldingKey(act.Node.ID), true, act.Node.Name)
		return node.Done()
	})

	n.RegisterHandler("Trigger", func(act *node.Activation) node.Result {
		b := act.Node.Bridge()
		if yielding, _ := b.Get(yieldingKey(act.Node.ID)).(bool); yielding {
			b.Set(yieldingKey(act.Node.ID), false, act.Node.Name)
			act.Node.Pulse("Flow")
			return node.Done()
		}
		b.Set(earlyTriggerKey(act.Node.ID), true, act.Node.Name)
		return node.Done()
	})

	return n
}

func init() {
	node.MustRegister("Wait", newWaitNode)
	node.MustRegister("Throttle", newThrottleNode)
	node.MustRegister("Yield", newYieldNode)
}
