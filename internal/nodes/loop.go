package nodes

import (
	"github.com/alexisbeaulieu97/synapse/internal/bridge"
	"github.com/alexisbeaulieu97/synapse/internal/kind"
	"github.com/alexisbeaulieu97/synapse/internal/node"
	"github.com/alexisbeaulieu97/synapse/internal/scope"
)

// loopChecker decides whether iteration index should run and which item (if
// any) it carries. Subclasses of the loop core differ only here.
type loopChecker func(act *node.Activation, index int64) (bool, interface{})

func loopActiveKey(nodeID string) string    { return nodeID + "_loop_active" }
func loopIndexKey(nodeID string) string     { return nodeID + "_internal_index" }
func loopScopeKey(nodeID string) string     { return nodeID + "_instance_scope" }
func loopBaseStackKey(nodeID string) string { return nodeID + "_base_stack" }

// newLoopNode builds the shared While/For/ForEach control: Flow starts an
// instance, Continue advances it, Break finishes it, End cancels the whole
// iteration family. Body pulses run inside a per-instance scope so End can
// kill in-flight branches.
func newLoopNode(id, name, typeLabel string, rt *node.Runtime, check loopChecker) *node.Node {
	n := node.New(id, name, typeLabel, rt)
	n.Native = true

	n.AddInput("Flow", kind.Flow)
	n.AddInput("Continue", kind.Flow)
	n.AddInput("Break", kind.Flow)
	n.AddInput("End", kind.Flow)

	n.AddOutput("Flow", kind.Flow)
	n.AddOutput("Body", kind.Flow)
	n.AddOutput("Index", kind.Number)

	doWork := func(act *node.Activation) node.Result {
		return loopWork(act, check)
	}
	n.RegisterHandler("Flow", doWork)
	n.RegisterHandler("Continue", doWork)
	n.RegisterHandler("Break", doWork)
	n.RegisterHandler("End", doWork)

	return n
}

func loopWork(act *node.Activation, check loopChecker) node.Result {
	n := act.Node
	b := n.Bridge()

	switch act.Trigger {
	case "Break", "End":
		if act.Trigger == "End" {
			// Kill in-flight Body branches of this instance.
			if instanceScope, _ := b.Get(loopScopeKey(n.ID)).(string); instanceScope != "" {
				b.Set(bridge.CancelScopeKey(instanceScope), true, n.Name)
			}
		}
		if active, _ := b.Get(loopActiveKey(n.ID)).(bool); active {
			// The iteration that ended the loop counts toward the total.
			b.Increment(loopIndexKey(n.ID), 1)
		}
		finishLoop(n, baseStack(n, act.Stack))
		return node.Done()
	}

	var index int64
	if act.Trigger == "Flow" {
		instanceScope := scope.NewID("LO", n.ID)
		b.Set(loopScopeKey(n.ID), instanceScope, n.Name)
		// The stable base stack keeps every iteration pulse at the same
		// nesting depth instead of recursing deeper per iteration.
		b.Set(loopBaseStackKey(n.ID), act.Stack.Clone(), n.Name)
		b.Set(loopActiveKey(n.ID), true, n.Name)
		b.Set(loopIndexKey(n.ID), int64(0), n.Name)
		index = 0
	} else {
		// Continue after the instance already finished is a stale pulse.
		if active, _ := b.Get(loopActiveKey(n.ID)).(bool); !active {
			return node.Done()
		}
		index = b.Increment(loopIndexKey(n.ID), 1)
	}

	shouldContinue, item := check(act, index)

	base := baseStack(n, act.Stack)
	if !shouldContinue {
		finishLoop(n, base)
		return node.Done()
	}

	n.SetOutput("Index", index)
	if item != nil {
		n.SetOutput("Item", item)
	}

	if instanceScope, _ := b.Get(loopScopeKey(n.ID)).(string); instanceScope != "" {
		n.SetStackOverride(map[string]scope.Stack{
			"Body": base.Push(instanceScope),
		})
	}
	n.Pulse("Body")
	return node.Done()
}

// finishLoop clears instance state and pulses completion on the parent's
// stack. The Index output lands on the final iteration count.
func finishLoop(n *node.Node, base scope.Stack) {
	b := n.Bridge()

	if idx, ok := b.Get(loopIndexKey(n.ID)).(int64); ok {
		n.SetOutput("Index", idx)
	}

	b.Set(loopActiveKey(n.ID), false, n.Name)
	b.Delete(loopIndexKey(n.ID))
	b.Delete(loopScopeKey(n.ID))
	b.Delete(loopBaseStackKey(n.ID))

	n.SetStackOverride(nil)
	if base != nil {
		n.SetStackOverride(map[string]scope.Stack{"Flow": base})
	}
	n.Pulse("Flow")
}

// baseStack returns the stack captured at Flow-entry, falling back to the
// current pulse's stack for stale triggers.
func baseStack(n *node.Node, current scope.Stack) scope.Stack {
	if s, ok := n.Bridge().Get(loopBaseStackKey(n.ID)).(scope.Stack); ok {
		return s
	}
	return current
}
