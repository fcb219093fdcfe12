package export

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sadopc/apitester/internal/core/request"
)

// AsCurl converts a history record to a curl command line. The body is
// left out for GET, matching what the dispatcher sends.
func AsCurl(rec request.Record) string {
	var parts []string
	parts = append(parts, "curl")

	if rec.Method != request.MethodGet {
		parts = append(parts, "-X", string(rec.Method))
	}

	names := make([]string, 0, len(rec.Headers))
	for k := range rec.Headers {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		parts = append(parts, "-H", quote(fmt.Sprintf("%s: %s", k, rec.Headers[k])))
	}

	if rec.Body != "" && rec.Method != request.MethodGet {
		parts = append(parts, "--data-raw", quote(rec.Body))
	}

	parts = append(parts, quote(rec.URL))
	return strings.Join(parts, " ")
}

// AsJSON renders a record in its persisted shape, indented.
func AsJSON(rec request.Record) (string, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding record: %w", err)
	}
	return string(data), nil
}

// quote wraps s in single quotes for a POSIX shell.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
