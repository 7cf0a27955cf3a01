package node

import (
	"fmt"
	"runtime/debug"
)

// ErrorObject is the structured record of a handler failure. It is stored in
// the bridge under `{node_id}_LastError` and the global last-error key so
// downstream nodes and the editor overlay can query it.
type ErrorObject struct {
	ProjectName    string                 `json:"project_name"`
	NodeName       string                 `json:"node_name"`
	CapturedInputs map[string]interface{} `json:"captured_inputs"`
	ErrorMessage   string                 `json:"error_message"`
	ErrorType      string                 `json:"error_type"`
	Stack          string                 `json:"stack"`
}

// NewErrorObject captures a failure with the inputs that produced it.
// Internal underscore-prefixed arguments are excluded from the capture.
func NewErrorObject(projectName, nodeName string, inputs map[string]interface{}, err error) *ErrorObject {
	captured := make(map[string]interface{}, len(inputs))
	for k, v := range inputs {
		if len(k) > 0 && k[0] == '_' {
			continue
		}
		captured[k] = v
	}

	return &ErrorObject{
		ProjectName:    projectName,
		NodeName:       nodeName,
		CapturedInputs: captured,
		ErrorMessage:   err.Error(),
		ErrorType:      fmt.Sprintf("%T", err),
		Stack:          string(debug.Stack()),
	}
}

func (e *ErrorObject) Error() string {
	return fmt.Sprintf("%s: %s", e.NodeName, e.ErrorMessage)
}
