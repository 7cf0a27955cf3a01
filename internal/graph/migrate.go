package graph

import (
	"regexp"
	"strconv"
	"strings"
)

// A migration rewrites a document in place and reports whether it changed
// anything. Migrations run in order; each is idempotent so re-migrating a
// current document is a no-op.
type migration struct {
	version string
	apply   func(*Document) bool
}

var migrations = []migration{
	{version: "2.1.0", apply: migrateNaming},
	{version: "2.3.0", apply: migrateLegacyKeys},
}

// Migrate brings a document up to the current schema version. Reports whether
// the document was modified.
func Migrate(doc *Document) bool {
	modified := false

	for _, m := range migrations {
		if compareVersions(doc.Version, m.version) >= 0 {
			continue
		}
		if m.apply(doc) {
			modified = true
		}
		doc.Version = m.version
		modified = true
	}

	if compareVersions(doc.Version, SchemaVersion) < 0 {
		doc.Version = SchemaVersion
		modified = true
	}

	return modified
}

// migrateNaming standardizes property names to Title Case With Spaces and
// remaps the legacy loop ports on wires.
func migrateNaming(doc *Document) bool {
	modified := false

	for i := range doc.Nodes {
		props := doc.Nodes[i].Properties
		for key, val := range props {
			fixed := fixName(key)
			if fixed == key {
				continue
			}
			if _, taken := props[fixed]; taken {
				continue
			}
			props[fixed] = val
			delete(props, key)
			modified = true
		}
	}

	loopPortMap := map[string]map[string]string{
		"While Node": {
			"Loop":      "Continue",
			"Exit":      "Break",
			"Loop Flow": "Body",
		},
		"For Node": {
			"Loop Flow": "Body",
		},
		"ForEach Node": {
			"Loop Flow": "Body",
		},
	}

	nodeTypes := make(map[string]string, len(doc.Nodes))
	for _, n := range doc.Nodes {
		nodeTypes[n.ID] = n.Type
	}

	for i := range doc.Wires {
		wire := &doc.Wires[i]
		if mapping, ok := loopPortMap[nodeTypes[wire.FromNode]]; ok {
			if newPort, ok := mapping[wire.FromPort]; ok && newPort != wire.FromPort {
				wire.FromPort = newPort
				modified = true
			}
		}
		if mapping, ok := loopPortMap[nodeTypes[wire.ToNode]]; ok {
			if newPort, ok := mapping[wire.ToPort]; ok && newPort != wire.ToPort {
				wire.ToPort = newPort
				modified = true
			}
		}
	}

	return modified
}

// migrateLegacyKeys normalizes a known set of legacy property keys.
func migrateLegacyKeys(doc *Document) bool {
	legacyKeys := map[string]string{
		"additional_inputs":  "Additional Inputs",
		"additional_outputs": "Additional Outputs",
		"embedded_data":      "Embedded Data",
		"isolated_execution": "Isolated",
	}

	modified := false
	for i := range doc.Nodes {
		props := doc.Nodes[i].Properties
		for oldKey, newKey := range legacyKeys {
			val, ok := props[oldKey]
			if !ok {
				continue
			}
			delete(props, oldKey)
			if _, taken := props[newKey]; !taken {
				props[newKey] = val
			}
			modified = true
		}
	}
	return modified
}

var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// fixName converts snake_case or CamelCase to Title Case With Spaces,
// preserving short all-caps words like URL, ID and API.
func fixName(name string) string {
	if name == "" {
		return name
	}
	if strings.Contains(name, " ") && name == properTitle(name) {
		return name
	}

	s := strings.ReplaceAll(name, "_", " ")
	s = camelBoundary.ReplaceAllString(s, "$1 $2")
	return properTitle(s)
}

func properTitle(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		if word == strings.ToUpper(word) && len(word) > 1 && len(word) <= 4 {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	}
	return strings.Join(words, " ")
}

// compareVersions compares dotted numeric versions. Missing segments count as
// zero; an empty version sorts before everything.
func compareVersions(a, b string) int {
	if a == b {
		return 0
	}
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var av, bv int
		if i < len(as) {
			av, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			bv, _ = strconv.Atoi(bs[i])
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}
