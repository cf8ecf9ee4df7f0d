package script

import (
	"strings"

	"github.com/risor-io/risor/object"
)

// ConvertRisorValueToGo converts a Risor object to a Go value
func ConvertRisorValueToGo(obj object.Object) any {
	switch o := obj.(type) {
	case *object.String:
		return o.Value()

	case *object.Int:
		return o.Value()

	case *object.Float:
		return o.Value()

	case *object.Bool:
		return o.Value()

	case *object.Time:
		return o.Value()

	case *object.NilType:
		return nil

	case *object.List:
		result := make([]any, 0, len(o.Value()))
		for _, item := range o.Value() {
			result = append(result, ConvertRisorValueToGo(item))
		}
		return result

	case *object.Map:
		result := make(map[string]any, len(o.Value()))
		for key, value := range o.Value() {
			result[key] = ConvertRisorValueToGo(value)
		}
		return result

	case *object.Set:
		result := make([]any, 0, len(o.Value()))
		for _, item := range o.Value() {
			result = append(result, ConvertRisorValueToGo(item))
		}
		return result

	default:
		// Fallback to string representation
		return obj.Inspect()
	}
}

// ConvertRisorValueToBool converts a Risor object to a boolean indicating truthiness
func ConvertRisorValueToBool(obj object.Object) bool {
	switch obj := obj.(type) {
	case *object.Bool:
		return obj.Value()

	case *object.Int:
		return obj.Value() != 0

	case *object.Float:
		return obj.Value() != 0.0

	case *object.String:
		val := obj.Value()
		return val != "" && strings.ToLower(val) != "false"

	case *object.List:
		return len(obj.Value()) > 0

	case *object.Map:
		return len(obj.Value()) > 0

	case *object.NilType:
		return false

	default:
		// Use Risor's built-in truthiness evaluation
		return obj.IsTruthy()
	}
}

// SafeBuiltins returns the names of Risor builtins that are deterministic
// and free of side effects. Only these are visible to stage expressions.
func SafeBuiltins() map[string]bool {
	return map[string]bool{
		"all":      true,
		"any":      true,
		"base64":   true,
		"bool":     true,
		"coalesce": true,
		"decode":   true,
		"encode":   true,
		"float":    true,
		"fmt":      true,
		"getattr":  true,
		"int":      true,
		"json":     true,
		"keys":     true,
		"len":      true,
		"list":     true,
		"map":      true,
		"math":     true,
		"regexp":   true,
		"reversed": true,
		"set":      true,
		"sorted":   true,
		"sprintf":  true,
		"string":   true,
		"strings":  true,
		"try":      true,
		"type":     true,
	}
}
