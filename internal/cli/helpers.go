package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"inspectsync/internal/api"
	"inspectsync/internal/inspection"
)

func parseModule(arg string) (inspection.ModuleKey, error) {
	return inspection.ParseModuleKey(arg)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
}

// readPayload returns the JSON document given inline or in a file ("-" is stdin)
func readPayload(data, file string) (json.RawMessage, error) {
	var raw []byte
	switch {
	case data != "" && file != "":
		return nil, fmt.Errorf("use either --data or --file, not both")
	case data != "":
		raw = []byte(data)
	case file == "-":
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		raw = b
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file, err)
		}
		raw = b
	default:
		return nil, fmt.Errorf("a payload is required: use --data or --file")
	}

	if !json.Valid(raw) {
		return nil, fmt.Errorf("payload is not valid JSON")
	}
	return json.RawMessage(raw), nil
}

// parseAttachment reads FIELD=PATH[;CONTENT-TYPE]
func parseAttachment(s string) (api.Attachment, error) {
	field, rest, ok := strings.Cut(s, "=")
	if !ok || field == "" || rest == "" {
		return api.Attachment{}, fmt.Errorf("invalid attachment %q, expected FIELD=PATH[;CONTENT-TYPE]", s)
	}
	path, contentType, _ := strings.Cut(rest, ";")
	return api.Attachment{Field: field, Path: path, ContentType: contentType}, nil
}

func remaining(n int, ok bool) string {
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%d", n)
}
