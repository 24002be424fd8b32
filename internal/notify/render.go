package notify

import (
	"fmt"
	"strconv"
	"strings"
)

// Result is the outcome of rendering a template. Missing is empty when every
// placeholder resolved.
type Result struct {
	Text      string
	Missing   string
	Available []string
}

// Rendered reports whether every placeholder resolved.
func (r Result) Rendered() bool { return r.Missing == "" }

// Render substitutes {variable} placeholders from data. On the first missing
// variable it returns the raw template followed by a warning block.
func Render(tmpl string, data Data) Result {
	var b strings.Builder
	b.Grow(len(tmpl))
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch {
		case c == '{' && i+1 < len(tmpl) && tmpl[i+1] == '{':
			b.WriteByte('{')
			i++
		case c == '}' && i+1 < len(tmpl) && tmpl[i+1] == '}':
			b.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				b.WriteString(tmpl[i:])
				i = len(tmpl)
				continue
			}
			field := tmpl[i+1 : i+1+end]
			if j := strings.IndexAny(field, ":!"); j >= 0 {
				field = field[:j]
			}
			name, path := field, ""
			if j := strings.IndexAny(field, ".["); j >= 0 {
				name, path = field[:j], field[j:]
			}
			v, ok := data[name]
			if !ok {
				return missing(tmpl, name, data)
			}
			if v, ok = resolvePath(v, path); !ok {
				return missing(tmpl, field, data)
			}
			b.WriteString(formatValue(v))
			i += end + 1
		default:
			b.WriteByte(c)
		}
	}
	return Result{Text: b.String()}
}

// resolvePath applies ".key" and "[index]" accessors to v. Keys address
// string-keyed maps; integer indexes address slices and strings.
func resolvePath(v any, path string) (any, bool) {
	for path != "" {
		var part string
		switch path[0] {
		case '.':
			path = path[1:]
			j := strings.IndexAny(path, ".[")
			if j < 0 {
				j = len(path)
			}
			part, path = path[:j], path[j:]
		case '[':
			j := strings.IndexByte(path, ']')
			if j < 0 {
				return nil, false
			}
			part, path = path[1:j], path[j+1:]
		default:
			return nil, false
		}
		if part == "" {
			return nil, false
		}
		next, ok := index(v, part)
		if !ok {
			return nil, false
		}
		v = next
	}
	return v, true
}

func index(v any, part string) (any, bool) {
	switch x := v.(type) {
	case Data:
		r, ok := x[part]
		return r, ok
	case map[string]any:
		r, ok := x[part]
		return r, ok
	case map[string]string:
		r, ok := x[part]
		return r, ok
	}
	n, err := strconv.Atoi(part)
	if err != nil || n < 0 {
		return nil, false
	}
	switch x := v.(type) {
	case []any:
		if n < len(x) {
			return x[n], true
		}
	case []string:
		if n < len(x) {
			return x[n], true
		}
	case string:
		if r := []rune(x); n < len(r) {
			return string(r[n]), true
		}
	}
	return nil, false
}

func missing(tmpl, name string, data Data) Result {
	avail := data.Keys()
	quoted := make([]string, len(avail))
	for i, k := range avail {
		quoted[i] = "`{" + k + "}`"
	}
	text := tmpl +
		"\nOctolabel warning" +
		"\nThe variable `{" + name + "}` is invalid for this message" +
		"\nAvailable variables: " + strings.Join(quoted, ", ")
	return Result{Text: text, Missing: name, Available: avail}
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
