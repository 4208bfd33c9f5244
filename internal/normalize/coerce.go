package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// toDecimal accepts integers, finite floats, json.Number and numeric strings.
func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int32:
		return decimal.NewFromInt32(n), true
	case int64:
		return decimal.NewFromInt(n), true
	case uint32:
		return decimal.NewFromInt(int64(n)), true
	case uint64:
		return fromString(strconv.FormatUint(n, 10))
	case float32:
		return fromFloat(float64(n))
	case float64:
		return fromFloat(n)
	case json.Number:
		return fromString(string(n))
	case string:
		return fromString(n)
	case decimal.Decimal:
		return n, true
	}
	return decimal.Zero, false
}

func fromFloat(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}

func fromString(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// toNonNegative coerces v to a decimal that is >= 0.
func toNonNegative(v any) (decimal.Decimal, bool) {
	d, ok := toDecimal(v)
	if !ok || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

// toCount coerces v to a whole number >= 0.
func toCount(v any) (int, bool) {
	d, ok := toNonNegative(v)
	if !ok || !d.Equal(d.Truncate(0)) || d.GreaterThan(decimal.NewFromInt(math.MaxInt32)) {
		return 0, false
	}
	return int(d.IntPart()), true
}

// toInt64 accepts only integral numeric values; strings are not epoch millis.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint32:
		return int64(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) || math.Abs(n) > math.MaxInt64/2 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := strconv.ParseInt(string(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	d, ok := toDecimal(v)
	if !ok {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}

func stringField(data map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := data[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

func firstPresent(data map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := data[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}
