package kind

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Kind
	}{
		{"canonical", "string", String},
		{"mixed case", "Boolean", Boolean},
		{"legacy int alias", "int", Number},
		{"legacy integer alias", "integer", Number},
		{"legacy compare alias", "compare", Compare},
		{"empty", "", Any},
		{"unknown degrades to any", "sceneobject", Any},
		{"provider flow", "provider_flow", ProviderFlow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Parse(tt.input))
		})
	}
}

func TestIsControl(t *testing.T) {
	assert.True(t, Flow.IsControl())
	assert.True(t, ProviderFlow.IsControl())
	assert.True(t, Trigger.IsControl())
	assert.False(t, String.IsControl())
	assert.False(t, Any.IsControl())
}

func TestToNumber(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected float64
	}{
		{"int", 7, 7},
		{"float", 2.5, 2.5},
		{"numeric string", "42", 42},
		{"decimal string", " 3.14 ", 3.14},
		{"bool true", true, 1},
		{"bool false", false, 0},
		{"nil", nil, 0},
		{"garbage", "not a number", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToNumber(tt.input))
		})
	}
}

func TestToBool(t *testing.T) {
	falsy := []interface{}{"false", "0", "", "no", "off", nil, 0, 0.0, false, "  FALSE  "}
	for _, v := range falsy {
		assert.False(t, ToBool(v), "expected %v to be false", v)
	}

	truthy := []interface{}{"true", "1", "yes", 1, 2.5, true, "anything"}
	for _, v := range truthy {
		assert.True(t, ToBool(v), "expected %v to be true", v)
	}
}

func TestToString(t *testing.T) {
	assert.Equal(t, "", ToString(nil))
	assert.Equal(t, "hello", ToString("hello"))
	assert.Equal(t, "5", ToString(5))
	assert.Equal(t, `["a","b"]`, ToString([]interface{}{"a", "b"}))
	assert.Equal(t, `{"k":1}`, ToString(map[string]interface{}{"k": 1}))
}

func TestToList(t *testing.T) {
	assert.Equal(t, []interface{}{}, ToList(nil))
	assert.Equal(t, []interface{}{"a", "b"}, ToList(`["a","b"]`))
	assert.Equal(t, []interface{}{"plain"}, ToList("plain"))
	assert.Equal(t, []interface{}{5}, ToList(5))
}

func TestToDict(t *testing.T) {
	assert.Equal(t, map[string]interface{}{}, ToDict(nil))
	assert.Equal(t, map[string]interface{}{"k": "v"}, ToDict(`{"k":"v"}`))
	assert.Equal(t, map[string]interface{}{}, ToDict("not a dict"))
	assert.Equal(t, map[string]interface{}{}, ToDict(42))
}

func TestCoercePassword(t *testing.T) {
	hashed, ok := Coerce("hunter2", Password).(string)
	assert.True(t, ok)
	assert.Len(t, hashed, 64)
	assert.NotEqual(t, "hunter2", hashed)

	// Already a digest: passes through unchanged.
	assert.Equal(t, hashed, Coerce(hashed, Password))
}

func TestCoercePassThrough(t *testing.T) {
	v := map[string]interface{}{"x": 1}
	assert.Equal(t, v, Coerce(v, Any))
	assert.Equal(t, v, Coerce(v, Flow))
	assert.Equal(t, v, Coerce(v, ProviderFlow))
}
