package kind

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Coerce converts val to the target kind using best-effort rules. Coercion
// never fails: unparsable input falls back to the kind's zero value. Control
// kinds and Any pass through untouched.
func Coerce(val interface{}, target Kind) interface{} {
	switch target {
	case Any, Flow, ProviderFlow, Trigger:
		return val
	case String:
		return ToString(val)
	case Number:
		return ToNumber(val)
	case Boolean:
		return ToBool(val)
	case List:
		return ToList(val)
	case Dict:
		return ToDict(val)
	case Password:
		return toPassword(val)
	}
	// Image, Color, Bytes and the UI enums have no safe conversion.
	return val
}

// ToNumber parses numerics, treats bool as 0/1, and returns 0 on failure.
func ToNumber(val interface{}) float64 {
	switch v := val.(type) {
	case nil:
		return 0
	case bool:
		if v {
			return 1
		}
		return 0
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float32:
		return float64(v)
	case float64:
		return v
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	}

	s := strings.TrimSpace(ToString(val))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// ToBool treats "false", "0", "", "no", "off", nil and numeric zero as false.
func ToBool(val interface{}) bool {
	switch v := val.(type) {
	case nil:
		return false
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	}

	s := strings.ToLower(strings.TrimSpace(ToString(val)))
	switch s {
	case "false", "0", "no", "off", "":
		return false
	}
	return true
}

// ToString JSON-encodes lists and dicts; everything else formats naturally.
func ToString(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case []interface{}, map[string]interface{}:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
	return fmt.Sprintf("%v", val)
}

// ToList parses "[...]" strings, converts nil to empty, and wraps singletons.
func ToList(val interface{}) []interface{} {
	switch v := val.(type) {
	case nil:
		return []interface{}{}
	case []interface{}:
		return v
	case string:
		if strings.HasPrefix(strings.TrimSpace(v), "[") {
			var out []interface{}
			if err := json.Unmarshal([]byte(v), &out); err == nil {
				return out
			}
		}
	}
	return []interface{}{val}
}

// ToDict parses "{...}" strings and returns an empty map for anything else.
func ToDict(val interface{}) map[string]interface{} {
	switch v := val.(type) {
	case nil:
		return map[string]interface{}{}
	case map[string]interface{}:
		return v
	case string:
		if strings.HasPrefix(strings.TrimSpace(v), "{") {
			var out map[string]interface{}
			if err := json.Unmarshal([]byte(v), &out); err == nil {
				return out
			}
		}
	}
	return map[string]interface{}{}
}

// toPassword hashes via SHA-256 unless the input already looks like a 64-hex digest.
func toPassword(val interface{}) string {
	s := ToString(val)
	if isHexDigest(s) {
		return s
	}
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func isHexDigest(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
