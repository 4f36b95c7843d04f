package merge

import (
	"strconv"
	"strings"
)

// Normalizer canonicalizes a server value. ok is false when the value cannot
// be interpreted, in which case the local value is kept.
type Normalizer func(v any) (out any, ok bool)

// Canonical yes/no values used by the forms
const (
	Yes = "Yes"
	No  = "No"
)

// Test drive status values
const (
	TestDriveCompleted    = "Completed"
	TestDriveNotCompleted = "Not Completed"
)

var truthy = map[string]bool{
	"yes": true, "y": true, "true": true, "1": true, "done": true, "completed": true, "complete": true,
	"no": false, "n": false, "false": false, "0": false, "pending": false, "incomplete": false, "not completed": false,
}

// parseBool interprets loosely typed booleans
func parseBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case float64:
		return t != 0, t == 0 || t == 1
	case int:
		return t != 0, t == 0 || t == 1
	case string:
		b, ok := truthy[strings.ToLower(strings.TrimSpace(t))]
		return b, ok
	}
	return false, false
}

// YesNo maps yes/y/true/1 to "Yes" and no/n/false/0 to "No"
func YesNo(v any) (any, bool) {
	b, ok := parseBool(v)
	if !ok {
		return nil, false
	}
	if b {
		return Yes, true
	}
	return No, true
}

// Bool maps loosely typed booleans to a JSON bool
func Bool(v any) (any, bool) {
	b, ok := parseBool(v)
	if !ok {
		return nil, false
	}
	return b, true
}

// Text trims strings and renders numbers as text
func Text(v any) (any, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case bool:
		return nil, false
	}
	return nil, false
}

// Number accepts numbers and numeric strings
func Number(v any) (any, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", "")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, false
		}
		return f, true
	}
	return nil, false
}

// List accepts arrays and comma separated strings
func List(v any) (any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case string:
		var out []any
		for _, part := range strings.Split(t, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// Enum returns a normalizer that maps case-insensitive spellings onto fixed values
func Enum(values map[string]string) Normalizer {
	lookup := make(map[string]string, len(values))
	for k, v := range values {
		lookup[strings.ToLower(k)] = v
	}
	return func(v any) (any, bool) {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		out, ok := lookup[strings.ToLower(strings.TrimSpace(s))]
		return out, ok
	}
}

// TestDriveStatus maps the many encodings of the test drive status
func TestDriveStatus(v any) (any, bool) {
	b, ok := parseBool(v)
	if !ok {
		return nil, false
	}
	if b {
		return TestDriveCompleted, true
	}
	return TestDriveNotCompleted, true
}

// Completed interprets a server completion flag. Anything unreadable is false.
func Completed(v any) bool {
	b, _ := parseBool(v)
	return b
}
