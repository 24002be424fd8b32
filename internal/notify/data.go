package notify

import (
	"encoding/json"
	"math"
	"sort"
)

// Well-known data keys. Host payload keys (path, origin, state_id, ...) are
// passed through as-is.
const (
	KeyName               = "name"
	KeyProgress           = "progress"
	KeyTime               = "time"
	KeyTimeFormatted      = "time_formatted"
	KeyRemaining          = "remaining"
	KeyRemainingFormatted = "remaining_formatted"
	KeySpent              = "spent"
	KeySpentFormatted     = "spent_formatted"
)

// Data holds the template variables of one notification.
type Data map[string]any

// Clone returns a shallow copy; nil yields an empty map.
func (d Data) Clone() Data {
	out := make(Data, len(d)+4)
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Keys returns the variable names in sorted order.
func (d Data) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// setDefault stores v under k unless the caller already supplied k.
func (d Data) setDefault(k string, v any) {
	if _, ok := d[k]; !ok {
		d[k] = v
	}
}

// Int reads a number stored under k. Floats are truncated toward zero.
func (d Data) Int(k string) (int, bool) {
	return AsInt(d[k])
}

// AsInt converts the numeric shapes produced by JSON decoding and Go callers.
func AsInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case float32:
		return floatInt(float64(n))
	case float64:
		return floatInt(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatInt(f)
	default:
		return 0, false
	}
}

func floatInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(math.Trunc(f)), true
}
