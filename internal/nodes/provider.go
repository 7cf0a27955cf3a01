// Package nodes holds the control-flow node library the runtime core owns:
// Start, Return, SubGraph, the loop family, Wait/Throttle/Yield, variable
// nodes and the provider base. Concrete leaf nodes (HTTP, Excel, browser
// automation) live in external plugin modules and register through the same
// node.Register API.
package nodes

import (
	"github.com/alexisbeaulieu97/synapse/internal/bridge"
	"github.com/alexisbeaulieu97/synapse/internal/kind"
	"github.com/alexisbeaulieu97/synapse/internal/node"
	"github.com/alexisbeaulieu97/synapse/internal/scope"
)

// ProviderHooks customizes a provider node: resource bring-up, teardown and
// the super-functions it installs while its scope is open.
type ProviderHooks struct {
	// ProviderType tags the scope for capability lookup, e.g. "DATABASE".
	ProviderType string

	// Setup performs resource bring-up after the scope is pushed.
	// Non-serializable handles go to the bridge's object side table.
	Setup func(act *node.Activation, scopeID string) error

	// Teardown releases resources on Provider End or Exit.
	Teardown func(n *node.Node)

	// SuperFunctions are installed on scope entry and removed on teardown.
	SuperFunctions map[string]bridge.HijackFunc
}

func providerScopeKey(nodeID string) string  { return nodeID + "_scope" }
func providerActiveKey(nodeID string) string { return nodeID + "_provider_active" }

// NewProvider builds a provider node: a service that pushes a named scope on
// Flow, pulses Provider Flow for its children, and tears down on Provider End
// or the emergency Exit.
func NewProvider(id, name, typeLabel string, rt *node.Runtime, hooks ProviderHooks) *node.Node {
	n := node.New(id, name, typeLabel, rt)
	n.Service = true
	n.Native = true

	n.AddInput("Flow", kind.Flow)
	n.AddInput("Provider End", kind.ProviderFlow)
	n.AddInput("Exit", kind.Flow)

	n.AddOutput("Flow", kind.Flow)
	n.AddOutput("Provider Flow", kind.ProviderFlow)
	n.AddOutput("Error Flow", kind.Flow)
	n.AddOutput("Provider ID", kind.String)

	n.RegisterHandler("Flow", func(act *node.Activation) node.Result {
		return startScope(act, hooks)
	})
	n.RegisterHandler("Provider End", func(act *node.Activation) node.Result {
		return endScope(act, hooks)
	})
	n.RegisterHandler("Exit", func(act *node.Activation) node.Result {
		return emergencyExit(act, hooks)
	})

	return n
}

func startScope(act *node.Activation, hooks ProviderHooks) node.Result {
	n := act.Node
	b := n.Bridge()

	scopeID := scope.NewID("PR", n.ID)
	b.Set(providerScopeKey(n.ID), scopeID, n.Name)
	b.Set(bridge.ProviderIndexKey(scopeID, hooks.ProviderType), n.ID, n.Name)

	if active, _ := b.Get(providerActiveKey(n.ID)).(bool); !active {
		b.Set(providerActiveKey(n.ID), true, n.Name)
		b.Increment(bridge.KeyLiveServices, 1)
		for fnName, fn := range hooks.SuperFunctions {
			b.RegisterSuperFunction(n.ID, fnName, fn)
		}
	}

	n.SetOutput("Provider ID", n.ID)
	b.Set(n.ID+"_Provider Type", hooks.ProviderType, n.Name)

	if hooks.Setup != nil {
		if err := hooks.Setup(act, scopeID); err != nil {
			releaseProvider(n, hooks)
			n.Pulse("Error Flow")
			return node.Done()
		}
	}

	// Children execute inside the new scope.
	n.SetStackOverride(map[string]scope.Stack{
		"Provider Flow": act.Stack.Push(scopeID),
	})
	n.Pulse("Provider Flow")
	return node.Done()
}

func endScope(act *node.Activation, hooks ProviderHooks) node.Result {
	n := act.Node
	b := n.Bridge()

	scopeID, _ := b.Get(providerScopeKey(n.ID)).(string)

	// Downstream teardown branches run outside the closing scope.
	base := act.Stack
	if scopeID != "" {
		base = base.Pop(scopeID)
	}
	n.SetStackOverride(map[string]scope.Stack{"Flow": base})
	n.Pulse("Flow")

	releaseProvider(n, hooks)
	if scopeID != "" {
		b.Delete(bridge.ProviderIndexKey(scopeID, hooks.ProviderType))
		b.Delete(providerScopeKey(n.ID))
	}
	return node.Done()
}

func emergencyExit(act *node.Activation, hooks ProviderHooks) node.Result {
	n := act.Node
	releaseProvider(n, hooks)
	n.Bridge().Set(bridge.KeyShutdown, true, n.Name)
	return node.Aborted()
}

func releaseProvider(n *node.Node, hooks ProviderHooks) {
	b := n.Bridge()
	if active, _ := b.Get(providerActiveKey(n.ID)).(bool); active {
		b.Set(providerActiveKey(n.ID), false, n.Name)
		b.Increment(bridge.KeyLiveServices, -1)
	}
	b.UnregisterSuperFunctions(n.ID)
	if hooks.Teardown != nil {
		hooks.Teardown(n)
	}
}
