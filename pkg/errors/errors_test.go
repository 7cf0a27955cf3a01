package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseError(t *testing.T) {
	root := fmt.Errorf("unexpected end of JSON input")
	err := NewParseError("graph.json", 42, root)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "graph.json", parseErr.Path)
	assert.Contains(t, err.Error(), "offset 42")
	assert.ErrorIs(t, err, root)
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("nodes[2].id", "missing id", nil)
	assert.Equal(t, "validation error: nodes[2].id: missing id", err.Error())

	err = NewValidationError("", "graph is empty", nil)
	assert.Equal(t, "validation error: graph is empty", err.Error())
}

func TestExecutionError(t *testing.T) {
	root := fmt.Errorf("boom")
	err := NewExecutionError("node-7", root)
	assert.Contains(t, err.Error(), "node node-7")
	assert.ErrorIs(t, err, root)
}

func TestRegistryError(t *testing.T) {
	err := NewRegistryError("While Node", fmt.Errorf("already registered"))
	assert.Contains(t, err.Error(), "[While Node]")
}

func TestProviderError(t *testing.T) {
	err := NewProviderError("sql-1", "DATABASE")
	assert.Contains(t, err.Error(), `"DATABASE"`)
	assert.Contains(t, err.Error(), "sql-1")
}
