// Package graph holds the persisted graph document model: parsing, structural
// validation, schema migrations and the wire table the engine routes pulses
// through.
package graph

import (
	"encoding/json"
	"errors"
	"os"

	synerrors "github.com/alexisbeaulieu97/synapse/pkg/errors"
)

// SchemaVersion is the current graph document schema version.
const SchemaVersion = "2.3.0"

// Document is a persisted graph: project metadata, nodes, wires and optional
// embedded sub-graph documents keyed by path.
type Document struct {
	Version            string                 `json:"version,omitempty" validate:"graph_version"`
	ProjectName        string                 `json:"project_name,omitempty"`
	ProjectCategory    string                 `json:"project_category,omitempty"`
	ProjectDescription string                 `json:"project_description,omitempty"`
	ProjectVars        map[string]interface{} `json:"project_vars,omitempty"`

	Nodes []NodeSpec `json:"nodes" validate:"dive"`
	Wires []WireSpec `json:"wires" validate:"dive"`

	EmbeddedSubGraphs map[string]json.RawMessage `json:"embedded_subgraphs,omitempty"`
}

// NodeSpec describes one node instance in a persisted document.
type NodeSpec struct {
	ID         string                 `json:"id" validate:"required"`
	Type       string                 `json:"type" validate:"required"`
	Name       string                 `json:"name,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// WireSpec is a directed connection between two ports.
type WireSpec struct {
	FromNode string `json:"from_node" validate:"required"`
	FromPort string `json:"from_port,omitempty"`
	ToNode   string `json:"to_node" validate:"required"`
	ToPort   string `json:"to_port,omitempty"`
}

// UnmarshalJSON applies port defaults: an unnamed source port is "Flow", an
// unnamed target port is "In".
func (w *WireSpec) UnmarshalJSON(data []byte) error {
	type rawWire WireSpec
	var raw rawWire
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*w = WireSpec(raw)
	if w.FromPort == "" {
		w.FromPort = "Flow"
	}
	if w.ToPort == "" {
		w.ToPort = "In"
	}
	return nil
}

// ParseFile loads a document from disk, validates it, and migrates it to the
// current schema version. When the migration changed anything the document is
// saved back, matching the editor's behavior.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, synerrors.NewParseError(path, 0, err)
	}

	doc, migrated, err := ParseBytes(data, path)
	if err != nil {
		return nil, err
	}

	if migrated {
		if out, err := json.MarshalIndent(doc, "", "  "); err == nil {
			// Best effort; a read-only graph directory is not a load failure.
			_ = os.WriteFile(path, out, 0o644)
		}
	}

	return doc, nil
}

// ParseBytes decodes, validates and migrates a raw document. The path is used
// for error reporting only. Reports whether a migration modified the document.
func ParseBytes(data []byte, path string) (*Document, bool, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, false, synerrors.NewParseError(path, syntaxErr.Offset, err)
		}
		return nil, false, synerrors.NewParseError(path, 0, err)
	}

	if err := ValidateRaw(data); err != nil {
		return nil, false, err
	}
	if err := Validate(&doc); err != nil {
		return nil, false, err
	}

	migrated := Migrate(&doc)
	return &doc, migrated, nil
}
