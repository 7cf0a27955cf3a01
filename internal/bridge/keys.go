package bridge

// Well-known control keys. The engine, the CLI and the editor all coordinate
// through these; renaming any of them is a breaking protocol change.
const (
	KeyPause            = "_SYSTEM_PAUSE"
	KeyStepMode         = "_SYSTEM_STEP_MODE"
	KeyStepTrigger      = "_SYSTEM_STEP_TRIGGER"
	KeySkipNext         = "_SYSTEM_SKIP_NEXT"
	KeyStepBack         = "_SYSTEM_STEP_BACK"
	KeyShutdown         = "_SYSTEM_SHUTDOWN"
	KeyNextNode         = "_SYSTEM_NEXT_NODE"
	KeyTraceEnabled     = "_SYSTEM_TRACE_ENABLED"
	KeyBackTraceEnabled = "_SYSTEM_BACK_TRACE_ENABLED"
	KeyStopFile         = "_SYSTEM_STOP_FILE"
	KeyPauseFile        = "_SYSTEM_PAUSE_FILE"
	KeyLastErrorObject  = "_SYSTEM_LAST_ERROR_OBJECT"
	KeyReturnScrubWords = "_SYSTEM_RETURN_SCRUB_KEYWORDS"
	KeyLiveServices     = "_SYSTEM_LIVE_SERVICES"

	KeySubGraphID   = "_SYNP_SUBGRAPH_ID"
	KeyParentNodeID = "_SYNP_PARENT_NODE_ID"
	KeyYield        = "_SYNP_YIELD"
	KeyReturnLabel  = "__RETURN_NODE_LABEL__"

	activePortsSuffix    = "_ActivePorts"
	stackOverridesSuffix = "_StackOverrides"
	lastErrorSuffix      = "_LastError"
	cancelScopePrefix    = "SYNAPSE_CANCEL_SCOPE_"
	projectVarPrefix     = "ProjectVars."
)

// ActivePortsKey returns the key a node pulses its output port list under.
func ActivePortsKey(nodeID string) string { return nodeID + activePortsSuffix }

// StackOverridesKey returns the key holding per-port context stack overrides.
func StackOverridesKey(nodeID string) string { return nodeID + stackOverridesSuffix }

// LastErrorKey returns the key the node's most recent ErrorObject is stored under.
func LastErrorKey(nodeID string) string { return nodeID + lastErrorSuffix }

// CancelScopeKey returns the cooperative cancellation flag key for a scope.
func CancelScopeKey(scopeID string) string { return cancelScopePrefix + scopeID }

// ProjectVarKey returns the key a project-level variable default is injected under.
func ProjectVarKey(name string) string { return projectVarPrefix + name }

// PortValueKey returns the legacy node-prefixed key for a port value.
func PortValueKey(nodeID, portName string) string { return nodeID + "_" + portName }

// ScopedKey composes a scope-qualified key.
func ScopedKey(scopeID, name string) string { return scopeID + ":" + name }

// ProviderIndexKey returns the key recording which node provides a capability
// type within a scope.
func ProviderIndexKey(scopeID, providerType string) string {
	return scopeID + "_Provider_" + providerType
}
