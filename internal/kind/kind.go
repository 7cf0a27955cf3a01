package kind

import "strings"

// Kind names a data kind carried on a port. Flow, ProviderFlow and Trigger are
// control tokens and carry no payload.
type Kind string

const (
	Flow         Kind = "flow"
	Any          Kind = "any"
	String       Kind = "string"
	Number       Kind = "number"
	Boolean      Kind = "boolean"
	List         Kind = "list"
	Dict         Kind = "dict"
	Image        Kind = "image"
	Color        Kind = "color"
	Bytes        Kind = "bytes"
	Password     Kind = "password"
	ProviderFlow Kind = "provider_flow"
	Trigger      Kind = "trigger"

	// UI-only discriminated enums. They behave as strings at runtime; the
	// editor renders them as dropdowns.
	Compare    Kind = "compare_type"
	DialogMode Kind = "dialog_mode"
	WriteMode  Kind = "write_type"
)

// aliases maps legacy spellings found in persisted graphs to canonical kinds.
var aliases = map[string]Kind{
	"int":     Number,
	"integer": Number,
	"float":   Number,
	"bool":    Boolean,
	"compare": Compare,
}

// Parse resolves a kind name, tolerating legacy aliases and mixed case.
// Unknown names degrade to Any rather than failing the load.
func Parse(name string) Kind {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" {
		return Any
	}
	if k, ok := aliases[s]; ok {
		return k
	}
	switch Kind(s) {
	case Flow, Any, String, Number, Boolean, List, Dict, Image, Color,
		Bytes, Password, ProviderFlow, Trigger, Compare, DialogMode, WriteMode:
		return Kind(s)
	}
	return Any
}

// IsControl reports whether the kind is a payload-free control token.
func (k Kind) IsControl() bool {
	return k == Flow || k == ProviderFlow || k == Trigger
}
