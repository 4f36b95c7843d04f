package merge

import (
	"strings"

	"inspectsync/internal/inspection"
)

// Lookup resolves a dotted path in a loosely typed document
func Lookup(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// lookupFirst returns the first non-empty value among paths
func lookupFirst(doc map[string]any, paths ...string) (any, bool) {
	for _, p := range paths {
		if v, ok := Lookup(doc, p); ok && !inspection.IsEmpty(v) {
			return v, true
		}
	}
	return nil, false
}

// Section returns the module's object inside a server document. A list found
// under a section key is wrapped under the module name.
func Section(module inspection.ModuleKey, doc map[string]any) (map[string]any, bool) {
	table, ok := Tables[module]
	if !ok || doc == nil {
		return nil, false
	}
	for _, key := range table.Sections {
		v, ok := Lookup(doc, key)
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case map[string]any:
			return t, true
		case []any:
			return map[string]any{string(module): t}, true
		}
	}
	return nil, false
}

// Resolve finds the normalized server value of one canonical field. The
// module section is searched when present, the document root otherwise.
func Resolve(module inspection.ModuleKey, field string, doc map[string]any) (any, bool) {
	table, ok := Tables[module]
	if !ok {
		return nil, false
	}
	def, ok := table.Fields[field]
	if !ok {
		return nil, false
	}

	source := doc
	if section, ok := Section(module, doc); ok {
		source = section
	}

	paths := append([]string{field}, def.Aliases...)
	raw, ok := lookupFirst(source, paths...)
	if !ok {
		return nil, false
	}
	if def.Normalize == nil {
		return raw, true
	}
	v, ok := def.Normalize(raw)
	if !ok || inspection.IsEmpty(v) {
		return nil, false
	}
	return v, true
}

// MergeServerStateIntoForm fills every known field that is empty locally with
// the server's value. Fields set locally are never overwritten, unknown
// server fields are ignored and the local form is not modified.
func MergeServerStateIntoForm(module inspection.ModuleKey, local inspection.Form, server map[string]any) inspection.Form {
	out := local.Clone()
	if out == nil {
		out = inspection.Form{}
	}

	table, ok := Tables[module]
	if !ok || len(server) == 0 {
		return out
	}

	for field := range table.Fields {
		if out.Filled(field) {
			continue
		}
		if v, ok := Resolve(module, field, server); ok {
			out[field] = v
		}
	}
	return out
}

// IsCompleted reads the module's completion flag from a server document
func IsCompleted(module inspection.ModuleKey, doc map[string]any) bool {
	table, ok := Tables[module]
	if !ok || doc == nil {
		return false
	}
	if v, ok := lookupFirst(doc, table.Completion...); ok {
		return Completed(v)
	}
	if section, ok := Section(module, doc); ok {
		if v, ok := lookupFirst(section, sectionFlags...); ok {
			return Completed(v)
		}
	}
	return false
}
