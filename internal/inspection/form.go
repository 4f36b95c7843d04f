package inspection

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Form is the loosely-typed field tree of one module, as decoded from JSON
type Form map[string]any

// DecodeForm parses a JSON object into a Form. A null or empty document yields an empty Form.
func DecodeForm(raw []byte) (Form, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return Form{}, nil
	}
	var f Form
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to decode form: %w", err)
	}
	if f == nil {
		f = Form{}
	}
	return f, nil
}

// Clone returns a shallow copy of the form
func (f Form) Clone() Form {
	out := make(Form, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Filled reports whether the field holds a non-empty value
func (f Form) Filled(field string) bool {
	if f == nil {
		return false
	}
	return !IsEmpty(f[field])
}

// String returns the field as a trimmed string, or "" when it is not a string
func (f Form) String(field string) string {
	if f == nil {
		return ""
	}
	s, _ := f[field].(string)
	return strings.TrimSpace(s)
}

// Len returns the length of a list field, 0 when absent or not a list
func (f Form) Len(field string) int {
	if f == nil {
		return 0
	}
	switch v := f[field].(type) {
	case []any:
		return len(v)
	case []string:
		return len(v)
	case []map[string]any:
		return len(v)
	}
	return 0
}

// IsEmpty treats nil, blank strings, and empty lists/objects as unset.
// Numbers and booleans are always considered set, including zero and false.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	case Form:
		return len(t) == 0
	case []map[string]any:
		return len(t) == 0
	}
	return false
}
