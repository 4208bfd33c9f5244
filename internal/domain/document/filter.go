package document

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
)

// FilterOp is a query predicate operator.
type FilterOp string

const (
	OpEq FilterOp = "=="
	OpIn FilterOp = "in"
)

// Filter is an equality or membership predicate on a top-level field.
type Filter struct {
	Field  string
	Op     FilterOp
	Values []any
}

// Eq matches documents whose field equals value.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Op: OpEq, Values: []any{value}}
}

// In matches documents whose field equals any of values.
func In(field string, values ...any) Filter {
	return Filter{Field: field, Op: OpIn, Values: values}
}

// Match evaluates the filter against document data.
func (f Filter) Match(data map[string]any) bool {
	got, ok := data[f.Field]
	if !ok {
		return false
	}
	for _, want := range f.Values {
		if valuesEqual(got, want) {
			return true
		}
	}
	return false
}

// MatchAll reports whether data satisfies every filter.
func MatchAll(filters []Filter, data map[string]any) bool {
	for _, f := range filters {
		if !f.Match(data) {
			return false
		}
	}
	return true
}

func (f Filter) String() string {
	if f.Op == OpEq && len(f.Values) == 1 {
		return fmt.Sprintf("%s == %v", f.Field, f.Values[0])
	}
	return fmt.Sprintf("%s in %v", f.Field, f.Values)
}

// valuesEqual compares scalars the way a JSON round trip would see them:
// numbers compare by value regardless of Go type, typed strings by content.
func valuesEqual(a, b any) bool {
	if af, ok := asFloat(a); ok {
		bf, ok := asFloat(b)
		return ok && af == bf
	}
	if as, ok := asString(a); ok {
		bs, ok := asString(b)
		return ok && as == bs
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := strconv.ParseFloat(string(n), 64)
		return f, err == nil
	}
	return 0, false
}

func asString(v any) (string, bool) {
	if s, ok := v.(string); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.IsValid() && rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}
