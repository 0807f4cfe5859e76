// Safe type conversion helpers for database values.
package driver

import (
	"fmt"
	"math"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// TypeConversionError represents an error during type conversion from database types.
type TypeConversionError struct {
	Expected string
	Actual   string
	Field    string
}

func (e *TypeConversionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("type conversion error for field %q: expected %s, got %s", e.Field, e.Expected, e.Actual)
	}
	return fmt.Sprintf("type conversion error: expected %s, got %s", e.Expected, e.Actual)
}

// NewTypeConversionError creates a new TypeConversionError.
func NewTypeConversionError(expected, actual, field string) *TypeConversionError {
	return &TypeConversionError{
		Expected: expected,
		Actual:   actual,
		Field:    field,
	}
}

// AsDBNode safely converts an interface{} to dbtype.Node.
// Returns the node and true if successful, zero value and false otherwise.
func AsDBNode(v any) (dbtype.Node, bool) {
	if v == nil {
		return dbtype.Node{}, false
	}
	node, ok := v.(dbtype.Node)
	return node, ok
}

// AsDBRelationship safely converts an interface{} to dbtype.Relationship.
// Returns the relationship and true if successful, zero value and false otherwise.
func AsDBRelationship(v any) (dbtype.Relationship, bool) {
	if v == nil {
		return dbtype.Relationship{}, false
	}
	rel, ok := v.(dbtype.Relationship)
	return rel, ok
}

// MustDBNode converts an interface{} to dbtype.Node or returns an error.
func MustDBNode(v any, field string) (dbtype.Node, error) {
	node, ok := AsDBNode(v)
	if !ok {
		return dbtype.Node{}, NewTypeConversionError("dbtype.Node", fmt.Sprintf("%T", v), field)
	}
	return node, nil
}

// AsString safely converts an interface{} to string.
// Returns the string and true if successful, empty string and false otherwise.
func AsString(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// AsInt64 converts any integer kind, or a float with no fractional part,
// to int64. Backends disagree on integer widths, so all are accepted.
func AsInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int16:
		return int64(n), true
	case int8:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n == math.Trunc(n) {
			return int64(n), true
		}
	case float32:
		if float64(n) == math.Trunc(float64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}

// AsFloat64 converts any numeric kind to float64.
func AsFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	if i, ok := AsInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

// AsBool safely converts an interface{} to bool.
// Returns the bool and true if successful, false and false otherwise.
func AsBool(v any) (bool, bool) {
	if v == nil {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// AsStringSlice converts []string or a []any of strings to []string.
func AsStringSlice(v any) ([]string, bool) {
	switch s := v.(type) {
	case []string:
		return s, true
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	}
	return nil, false
}

// AsFloat32Slice converts []float32, []float64 or a numeric []any to []float32.
func AsFloat32Slice(v any) ([]float32, bool) {
	switch s := v.(type) {
	case []float32:
		return s, true
	case []float64:
		out := make([]float32, len(s))
		for i, f := range s {
			out[i] = float32(f)
		}
		return out, true
	case []any:
		out := make([]float32, len(s))
		for i, item := range s {
			f, ok := AsFloat64(item)
			if !ok {
				return nil, false
			}
			out[i] = float32(f)
		}
		return out, true
	}
	return nil, false
}

// AsTime converts time.Time and the Neo4j temporal types to time.Time.
func AsTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case dbtype.LocalDateTime:
		return t.Time(), true
	case dbtype.Date:
		return t.Time(), true
	}
	return time.Time{}, false
}

// AsMap safely converts an interface{} to map[string]any.
// Returns the map and true if successful, nil and false otherwise.
func AsMap(v any) (map[string]any, bool) {
	if v == nil {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

// normalizeValue converts Go values into the narrower set of types every
// backend accepts as parameters.
func normalizeValue(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int16:
		return int64(n)
	case int8:
		return int64(n)
	case uint32:
		return int64(n)
	case uint16:
		return int64(n)
	case uint8:
		return int64(n)
	case float32:
		return float64(n)
	case []float32:
		out := make([]float64, len(n))
		for i, f := range n {
			out[i] = float64(f)
		}
		return out
	case time.Time:
		return n.UTC()
	}
	return v
}
