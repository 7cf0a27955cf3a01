package node

import (
	"fmt"

	"github.com/alexisbeaulieu97/synapse/internal/bridge"
	"github.com/alexisbeaulieu97/synapse/internal/kind"
	"github.com/alexisbeaulieu97/synapse/internal/scope"
	synerrors "github.com/alexisbeaulieu97/synapse/pkg/errors"
)

// Pulse is the unit of work the dispatcher hands to a node: the trigger port,
// the runtime inputs resolved from wires, and the context stack the pulse
// travelled with.
type Pulse struct {
	Trigger string
	Inputs  map[string]interface{}
	Stack   scope.Stack
}

// Execute runs one activation of the node: argument merge, automatic input
// discovery from scope providers, coercion, hijack indirection, handler
// dispatch and error capture. It never panics; failures come back as an error
// Result with the ErrorObject already stored in the bridge.
func (n *Node) Execute(pulse Pulse) (result Result) {
	stack := pulse.Stack.Clone()
	if stack == nil {
		stack = scope.NewStack()
	}

	args := n.prepareArgs(pulse.Inputs, stack)

	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}
			result = n.captureFailure(args, err)
		}
	}()

	if err := n.checkRequiredProviders(stack); err != nil {
		return n.captureFailure(args, err)
	}

	// Provider-based execution hijacking: a provider on the stack may have
	// registered a replacement for this node's function. The super-function
	// receives the merged args plus the consumer's id so it can address the
	// consumer's bridge keys.
	if providerID, fn := n.rt.Bridge.GetHijackHandler(stack, n.Name); fn != nil {
		n.rt.Logger.Debug("execution hijacked", "node", n.ID, "provider", providerID)
		args["_node_id"] = n.ID
		if _, err := n.rt.Bridge.InvokeHijack(providerID, n.Name, args); err != nil {
			return n.captureFailure(args, err)
		}
		// A super-function that did not route the pulse itself falls through
		// to the consumer's Flow so the branch keeps moving.
		if n.HasOutput("Flow") && n.rt.Bridge.Get(bridge.ActivePortsKey(n.ID)) == nil {
			n.Pulse("Flow")
		}
		return Done()
	}

	trigger := pulse.Trigger
	if trigger == "" {
		trigger = "Flow"
	}
	handler, ok := n.handlers[trigger]
	if !ok {
		return n.captureFailure(args, fmt.Errorf("no handler registered for port %q", trigger))
	}

	act := &Activation{Node: n, Trigger: trigger, Args: args, Stack: stack}
	result = handler(act)
	if result.Status == StatusError && result.Err != nil {
		return n.captureFailure(args, result.Err)
	}
	return result
}

// prepareArgs builds the final argument map: properties first (normalizing
// port-name casing), runtime inputs on top, then automatic discovery of still
// missing inputs from scope providers, and finally per-kind coercion.
func (n *Node) prepareArgs(runtimeInputs map[string]interface{}, stack scope.Stack) map[string]interface{} {
	args := make(map[string]interface{}, len(n.Properties)+len(runtimeInputs))

	for k, v := range n.Properties {
		if name, ok := n.matchInputName(k); ok {
			if name != k {
				continue
			}
			args[name] = v
			continue
		}
		args[k] = v
	}
	// A case-variant key (a persisted "condition" for the "Condition" port)
	// overrides the port's own default slot.
	for k, v := range n.Properties {
		if name, ok := n.matchInputName(k); ok && name != k {
			args[name] = v
		}
	}

	for k, v := range runtimeInputs {
		args[k] = v
	}

	// Automatic hijacking for missing inputs: walk the stack from the
	// innermost scope, asking each scope's provider for
	// `{provider_id}_{input_name}`. First hit wins.
	for _, inputName := range n.inputOrder {
		if k := n.inputSchema[inputName]; k.IsControl() {
			continue
		}
		if v, ok := args[inputName]; ok && v != nil {
			continue
		}
		for i := len(stack) - 1; i >= 0; i-- {
			providerID := n.rt.Bridge.ProviderOfScope(stack[i])
			if providerID == "" {
				continue
			}
			if val := n.rt.Bridge.Get(bridge.PortValueKey(providerID, inputName)); val != nil {
				args[inputName] = val
				break
			}
		}
	}

	for name, val := range args {
		if k, ok := n.inputSchema[name]; ok {
			args[name] = kind.Coerce(val, k)
		}
	}

	return args
}

func (n *Node) checkRequiredProviders(stack scope.Stack) error {
	for _, providerType := range n.RequiredProviders {
		if n.ProviderID(stack, providerType) == "" {
			return synerrors.NewProviderError(n.ID, providerType)
		}
	}
	return nil
}

// captureFailure builds the ErrorObject, stores it node-locally and globally,
// pulses the Error port, and returns the failure to the dispatcher.
func (n *Node) captureFailure(args map[string]interface{}, err error) Result {
	errObj := NewErrorObject(n.rt.ProjectName, n.Name, args, err)

	n.rt.Bridge.Set(bridge.LastErrorKey(n.ID), errObj, n.Name)
	n.rt.Bridge.Set(bridge.KeyLastErrorObject, errObj, n.Name)
	n.rt.Bridge.SetActivePorts(n.ID, []string{"Error"}, n.Name)

	n.rt.Logger.Error("node failed", "node", n.ID, "error", err)
	return Fail(synerrors.NewExecutionError(n.ID, err))
}
