package graph

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"

	synerrors "github.com/alexisbeaulieu97/synapse/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	versionPattern = regexp.MustCompile(`^\d+(?:\.\d+){0,2}$`)
)

// validatorInstance configures and returns the shared validator instance used
// across the graph package.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("graph_version", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			if s == "" {
				return true
			}
			return versionPattern.MatchString(s)
		})

		validateInst = v
	})

	return validateInst
}

// ValidateRaw performs the structural checks on an undecoded document: root is
// an object, nodes and wires are arrays, every node has id and type, every
// wire has from_node and to_node. It probes the raw bytes so a missing key is
// distinguishable from an empty array.
func ValidateRaw(data []byte) error {
	if !gjson.ValidBytes(data) {
		return synerrors.NewValidationError("document", "not valid JSON", nil)
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return synerrors.NewValidationError("document", "root must be an object", nil)
	}

	for _, key := range []string{"nodes", "wires"} {
		field := root.Get(key)
		if !field.Exists() {
			return synerrors.NewValidationError(key, fmt.Sprintf("missing required key %q", key), nil)
		}
		if !field.IsArray() {
			return synerrors.NewValidationError(key, fmt.Sprintf("%q must be an array", key), nil)
		}
	}

	var firstErr error
	index := 0
	root.Get("nodes").ForEach(func(_, node gjson.Result) bool {
		switch {
		case !node.IsObject():
			firstErr = synerrors.NewValidationError(fieldForNode(index, ""), "node is not an object", nil)
		case !node.Get("id").Exists():
			firstErr = synerrors.NewValidationError(fieldForNode(index, "id"), "missing node id", nil)
		case !node.Get("type").Exists():
			firstErr = synerrors.NewValidationError(fieldForNode(index, "type"), "missing node type", nil)
		}
		index++
		return firstErr == nil
	})
	if firstErr != nil {
		return firstErr
	}

	index = 0
	root.Get("wires").ForEach(func(_, wire gjson.Result) bool {
		switch {
		case !wire.IsObject():
			firstErr = synerrors.NewValidationError(fieldForWire(index, ""), "wire is not an object", nil)
		case !wire.Get("from_node").Exists():
			firstErr = synerrors.NewValidationError(fieldForWire(index, "from_node"), "missing wire source", nil)
		case !wire.Get("to_node").Exists():
			firstErr = synerrors.NewValidationError(fieldForWire(index, "to_node"), "missing wire target", nil)
		}
		index++
		return firstErr == nil
	})

	return firstErr
}

// Validate performs cross-field validation on a decoded document: tag
// constraints, version format, duplicate node ids and wire endpoint existence.
func Validate(doc *Document) error {
	if doc == nil {
		return synerrors.NewValidationError("document", "document is nil", nil)
	}

	v := validatorInstance()
	if err := v.Struct(doc); err != nil {
		return convertValidationError(err)
	}

	seen := make(map[string]int, len(doc.Nodes))
	for i, node := range doc.Nodes {
		if prev, exists := seen[node.ID]; exists {
			return synerrors.NewValidationError(fieldForNode(i, "id"),
				fmt.Sprintf("duplicate node id %q (first declared at index %d)", node.ID, prev), nil)
		}
		seen[node.ID] = i
	}

	for i, wire := range doc.Wires {
		if _, ok := seen[wire.FromNode]; !ok {
			return synerrors.NewValidationError(fieldForWire(i, "from_node"),
				fmt.Sprintf("references unknown node %q", wire.FromNode), nil)
		}
		if _, ok := seen[wire.ToNode]; !ok {
			return synerrors.NewValidationError(fieldForWire(i, "to_node"),
				fmt.Sprintf("references unknown node %q", wire.ToNode), nil)
		}
	}

	return nil
}

func fieldForNode(index int, field string) string {
	if field == "" {
		return fmt.Sprintf("nodes[%d]", index)
	}
	return fmt.Sprintf("nodes[%d].%s", index, field)
}

func fieldForWire(index int, field string) string {
	if field == "" {
		return fmt.Sprintf("wires[%d]", index)
	}
	return fmt.Sprintf("wires[%d].%s", index, field)
}

func convertValidationError(err error) error {
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		first := errs[0]
		return synerrors.NewValidationError(first.Namespace(),
			fmt.Sprintf("failed %q constraint", first.Tag()), err)
	}
	return synerrors.NewValidationError("document", err.Error(), err)
}
