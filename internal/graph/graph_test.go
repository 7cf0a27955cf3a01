package graph

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	synerrors "github.com/alexisbeaulieu97/synapse/pkg/errors"
)

const minimalGraph = `{
	"version": "2.3.0",
	"project_name": "test",
	"nodes": [
		{"id": "s", "type": "Start Node"},
		{"id": "r", "type": "Return Node"}
	],
	"wires": [
		{"from_node": "s", "to_node": "r", "to_port": "Flow"}
	]
}`

func TestParseBytesMinimal(t *testing.T) {
	doc, migrated, err := ParseBytes([]byte(minimalGraph), "test.json")
	require.NoError(t, err)
	assert.False(t, migrated)
	require.Len(t, doc.Nodes, 2)
	require.Len(t, doc.Wires, 1)
	// Wire source port defaults to Flow.
	assert.Equal(t, "Flow", doc.Wires[0].FromPort)
	assert.Equal(t, "Flow", doc.Wires[0].ToPort)
}

func TestParseBytesInvalidJSON(t *testing.T) {
	_, _, err := ParseBytes([]byte(`{"nodes": [`), "broken.json")
	var parseErr *synerrors.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "broken.json", parseErr.Path)
}

func TestValidateRawErrorPaths(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{"root not object", `[1,2]`, "document"},
		{"missing nodes", `{"wires": []}`, "nodes"},
		{"missing wires", `{"nodes": []}`, "wires"},
		{"nodes not array", `{"nodes": {}, "wires": []}`, "nodes"},
		{"wires not array", `{"nodes": [], "wires": 5}`, "wires"},
		{"node not object", `{"nodes": [7], "wires": []}`, "nodes[0]"},
		{"node missing id", `{"nodes": [{"type": "Add"}], "wires": []}`, "nodes[0].id"},
		{"node missing type", `{"nodes": [{"id": "a"}], "wires": []}`, "nodes[0].type"},
		{"wire not object", `{"nodes": [], "wires": ["x"]}`, "wires[0]"},
		{"wire missing from", `{"nodes": [], "wires": [{"to_node": "a"}]}`, "wires[0].from_node"},
		{"wire missing to", `{"nodes": [], "wires": [{"from_node": "a"}]}`, "wires[0].to_node"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRaw([]byte(tt.doc))
			var vErr *synerrors.ValidationError
			require.True(t, errors.As(err, &vErr), "expected validation error, got %v", err)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestValidateCrossChecks(t *testing.T) {
	t.Run("duplicate node id", func(t *testing.T) {
		doc := &Document{Nodes: []NodeSpec{
			{ID: "a", Type: "X"},
			{ID: "a", Type: "Y"},
		}}
		err := Validate(doc)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate node id")
	})

	t.Run("wire to unknown node", func(t *testing.T) {
		doc := &Document{
			Nodes: []NodeSpec{{ID: "a", Type: "X"}},
			Wires: []WireSpec{{FromNode: "a", FromPort: "Flow", ToNode: "ghost", ToPort: "Flow"}},
		}
		err := Validate(doc)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown node")
	})

	t.Run("malformed version", func(t *testing.T) {
		doc := &Document{Version: "two.three", Nodes: []NodeSpec{{ID: "a", Type: "X"}}}
		require.Error(t, Validate(doc))
	})
}

func TestMigrateNaming(t *testing.T) {
	doc := &Document{
		Version: "2.0.0",
		Nodes: []NodeSpec{
			{ID: "w", Type: "While Node", Properties: map[string]interface{}{
				"max_iterations": 5,
				"targetURL":      "http://example.com",
			}},
			{ID: "n", Type: "Log"},
		},
		Wires: []WireSpec{
			{FromNode: "w", FromPort: "Loop Flow", ToNode: "n", ToPort: "Flow"},
			{FromNode: "n", FromPort: "Flow", ToNode: "w", ToPort: "Loop"},
		},
	}

	modified := Migrate(doc)
	require.True(t, modified)
	assert.Equal(t, SchemaVersion, doc.Version)

	props := doc.Nodes[0].Properties
	assert.Contains(t, props, "Max Iterations")
	assert.Contains(t, props, "Target URL")
	assert.NotContains(t, props, "max_iterations")

	assert.Equal(t, "Body", doc.Wires[0].FromPort)
	assert.Equal(t, "Continue", doc.Wires[1].ToPort)
}

func TestMigrateLegacyKeys(t *testing.T) {
	doc := &Document{
		Version: "2.2.0",
		Nodes: []NodeSpec{
			{ID: "sg", Type: "SubGraph Node", Properties: map[string]interface{}{
				"additional_inputs":  []interface{}{"A"},
				"isolated_execution": true,
			}},
		},
	}

	require.True(t, Migrate(doc))
	props := doc.Nodes[0].Properties
	assert.Contains(t, props, "Additional Inputs")
	assert.Contains(t, props, "Isolated")
	assert.NotContains(t, props, "additional_inputs")
}

func TestMigrateIdempotent(t *testing.T) {
	doc := &Document{
		Version: "2.0.0",
		Nodes: []NodeSpec{
			{ID: "w", Type: "While Node", Properties: map[string]interface{}{"loop_count": 3}},
		},
		Wires: []WireSpec{{FromNode: "w", FromPort: "Loop Flow", ToNode: "w", ToPort: "Exit"}},
	}

	require.True(t, Migrate(doc))
	first, err := json.Marshal(doc)
	require.NoError(t, err)

	assert.False(t, Migrate(doc))
	second, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))
}

func TestFixName(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"snake_case_key", "Snake Case Key"},
		{"camelCaseKey", "Camel Case Key"},
		{"targetURL", "Target URL"},
		{"api_key", "Api Key"},
		{"Already Done", "Already Done"},
		{"single", "Single"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.out, fixName(tt.in), "fixName(%q)", tt.in)
	}
}

func TestCompareVersions(t *testing.T) {
	assert.Equal(t, 0, compareVersions("2.3.0", "2.3.0"))
	assert.Equal(t, -1, compareVersions("2.1.0", "2.3.0"))
	assert.Equal(t, 1, compareVersions("2.10.0", "2.9.0"))
	assert.Equal(t, -1, compareVersions("", "2.1.0"))
	assert.Equal(t, -1, compareVersions("2.3", "2.3.1"))
}

func TestParseFileSavesBackMigratedDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "legacy.json")
	legacy := `{
		"version": "2.0.0",
		"nodes": [{"id": "s", "type": "Start Node", "properties": {"additional_outputs": ["A"]}}],
		"wires": []
	}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	doc, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, doc.Version)

	// The migrated document was written back.
	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(saved), SchemaVersion)
	assert.Contains(t, string(saved), "Additional Outputs")
}

func TestWireTable(t *testing.T) {
	wires := []WireSpec{
		{FromNode: "a", FromPort: "Flow", ToNode: "b", ToPort: "Flow"},
		{FromNode: "a", FromPort: "Flow", ToNode: "c", ToPort: "Flow"},
		{FromNode: "a", FromPort: "Value", ToNode: "c", ToPort: "X"},
	}
	table := NewWireTable(wires)

	out := table.From("a", "Flow")
	require.Len(t, out, 2)
	// Declaration order preserved for fan-out.
	assert.Equal(t, "b", out[0].ToNode)
	assert.Equal(t, "c", out[1].ToNode)

	assert.Len(t, table.Into("c"), 2)
	assert.Len(t, table.IncomingTo("c", "X"), 1)
	assert.Empty(t, table.From("zzz", "Flow"))
}

func TestScanSubGraphPorts(t *testing.T) {
	child := `{
		"nodes": [
			{"id": "s", "type": "Start Node", "properties": {"Additional Outputs": ["A", "B"]}},
			{"id": "r1", "type": "Return Node", "properties": {"Label": "Success", "Additional Inputs": ["status"]}},
			{"id": "r2", "type": "Return Node", "properties": {"Label": "Fail"}}
		],
		"wires": []
	}`

	scan := ScanSubGraphPorts([]byte(child))
	assert.Equal(t, []string{"A", "B"}, scan.Inputs)
	require.Len(t, scan.FlowPorts, 2)
	assert.Equal(t, "Success", scan.FlowPorts[0].Label)
	assert.Equal(t, []string{"status"}, scan.FlowPorts[0].DataPorts)
	assert.Equal(t, "Fail", scan.FlowPorts[1].Label)
	assert.Equal(t, "Success", scan.LabelToPin["Success"])
}

func TestScanSubGraphPortsLoneGenericReturn(t *testing.T) {
	child := `{
		"nodes": [
			{"id": "s", "type": "Start Node"},
			{"id": "r", "type": "Return Node", "properties": {"Additional Inputs": ["Sum"]}}
		],
		"wires": [
			{"from_node": "s", "from_port": "A", "to_node": "r", "to_port": "Sum"}
		]
	}`

	scan := ScanSubGraphPorts([]byte(child))
	// Wire-scan fallback found the Start output.
	assert.Equal(t, []string{"A"}, scan.Inputs)
	require.Len(t, scan.FlowPorts, 1)
	// A lone generic Return maps to the outer node's Flow.
	assert.Equal(t, "Flow", scan.FlowPorts[0].Label)
	assert.Equal(t, []string{"Sum"}, scan.FlowPorts[0].DataPorts)
}

func TestScanSubGraphPortsLabelCollision(t *testing.T) {
	child := `{
		"nodes": [
			{"id": "s", "type": "Start Node"},
			{"id": "r1", "type": "Return Node", "properties": {"Label": "Result", "Additional Inputs": ["Result"]}},
			{"id": "r2", "type": "Return Node", "properties": {"Label": "Result Flow"}}
		],
		"wires": []
	}`

	scan := ScanSubGraphPorts([]byte(child))
	require.Len(t, scan.FlowPorts, 2)
	// Collides with its own data port, then with the second Return's label.
	assert.Equal(t, "Result Flow", scan.FlowPorts[0].Label)
	assert.Equal(t, "Result Flow_1", scan.FlowPorts[1].Label)
}

func TestResolveSubGraphDocumentFileFirst(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "child.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"from": "disk"}`), 0o644))

	embedded := json.RawMessage(`{"from": "embedded"}`)

	data, err := ResolveSubGraphDocument(path, embedded)
	require.NoError(t, err)
	assert.Contains(t, string(data), "disk")

	data, err = ResolveSubGraphDocument(filepath.Join(dir, "missing.json"), embedded)
	require.NoError(t, err)
	assert.Contains(t, string(data), "embedded")

	_, err = ResolveSubGraphDocument(filepath.Join(dir, "missing.json"), nil)
	require.Error(t, err)
}

func TestLoadSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("parallel: 8\ntrace: false\n"), 0o644))

	settings, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, 8, settings.Parallel)
	assert.False(t, settings.Trace)
	// Defaults survive for unset fields.
	assert.Equal(t, 100, settings.HistoryDepth)

	require.NoError(t, os.WriteFile(path, []byte("parallel: 99\n"), 0o644))
	_, err = LoadSettings(path)
	require.Error(t, err)
}
