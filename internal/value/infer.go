package value

import (
	"encoding/json"
	"strings"
)

// Infer returns the type implied by a wire value's JSON shape and the payload
// to box. An object carrying a "value" key is an envelope: its "type" field,
// when it parses, overrides inference, and its "value" field is the payload.
func Infer(raw any) (Type, any) {
	if env, ok := raw.(map[string]any); ok {
		if payload, has := env["value"]; has {
			if name, ok := env["type"].(string); ok {
				if t, err := ParseType(name); err == nil {
					return t, payload
				}
			}
			return InferType(payload), payload
		}
	}
	return InferType(raw), raw
}

// InferType maps a JSON shape to a type. Numbers are always Float.
func InferType(raw any) Type {
	switch v := raw.(type) {
	case bool:
		return TypeBool
	case string:
		return TypeString
	case []any:
		switch len(v) {
		case 2:
			return TypeFloat2
		case 3:
			return TypeFloat3
		case 4:
			return TypeFloat4
		}
	case []float64:
		switch len(v) {
		case 2:
			return TypeFloat2
		case 3:
			return TypeFloat3
		case 4:
			return TypeFloat4
		}
	case map[string]any:
		if _, has := v["value"]; has {
			t, _ := Infer(v)
			return t
		}
	}
	return TypeFloat
}

// Coerce re-types an inferred value against the authoritative type id read
// from the live property. An empty authority leaves inference untouched.
func Coerce(inferred Type, raw any, authority string) Type {
	if authority == "" {
		return inferred
	}
	tid := strings.ToLower(authority)

	switch tid {
	case "colorrgba":
		return TypeColor
	case "colorrgb":
		return TypeFloat3
	}
	for _, t := range AllTypes {
		if tid == string(t) {
			return t
		}
	}

	// Namespaced enum types take integer values.
	if strings.Contains(tid, "::") {
		if inferred == TypeFloat && isNumber(raw) {
			return TypeInt
		}
		return inferred
	}

	if strings.Contains(tid, "int") && !strings.Contains(tid, "float") {
		switch inferred {
		case TypeFloat:
			return TypeInt
		case TypeFloat2:
			if isList(raw) {
				return TypeInt2
			}
		case TypeFloat3:
			if isList(raw) {
				return TypeInt3
			}
		case TypeFloat4:
			if isList(raw) {
				return TypeInt4
			}
		}
	}
	return inferred
}

func isNumber(raw any) bool {
	switch raw.(type) {
	case float64, float32, int, int64, int32, json.Number:
		return true
	}
	return false
}

func isList(raw any) bool {
	switch raw.(type) {
	case []any, []float64, []int:
		return true
	}
	return false
}
