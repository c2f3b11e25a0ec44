// Package normalize reshapes raw AI extraction responses into flat field
// maps the metadata endpoints accept. It is total: malformed input degrades
// to best-effort flattening, never to an error.
package normalize

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/antonvlasov/metapilot/internal/core/domain"
)

// WarningKey tags a result whose other fields were all filtered out as
// placeholders.
const WarningKey = "_note"

const allPlaceholdersNote = "All other values were placeholders"

// bookkeeping keys the AI response carries that are not template fields.
var bookkeepingKeys = []string{"ai_agent_info", "created_at", "completion_reason", "answer"}

var placeholderIndicators = []string{
	"insert", "placeholder", "<", ">", "[", "]",
	"enter", "fill in", "your", "example",
}

type Options struct {
	FilterPlaceholders bool
	NormalizeKeys      bool
}

// Normalize converts an arbitrarily-shaped extraction result into a flat
// scalar field map: recover stringified objects, flatten the "answer"
// wrapper, drop bookkeeping keys, optionally filter placeholders and
// normalize keys, and stringify anything the metadata API would reject.
func Normalize(raw domain.FieldMap, opts Options) domain.FieldMap {
	if len(raw) == 0 {
		return domain.FieldMap{}
	}

	fields := flattenAnswer(fixStringifiedObjects(raw))

	if opts.FilterPlaceholders {
		fields = filterPlaceholders(fields)
	}
	if opts.NormalizeKeys {
		fields = normalizeKeys(fields)
	}
	return coerceScalars(fields)
}

// fixStringifiedObjects recovers values where a nested object was serialized
// with single quotes upstream. Parse failures keep the original string.
func fixStringifiedObjects(fields domain.FieldMap) domain.FieldMap {
	out := make(domain.FieldMap, len(fields))
	for key, value := range fields {
		str, ok := value.(string)
		if !ok || !strings.HasPrefix(str, "{") || !strings.HasSuffix(str, "}") {
			out[key] = value
			continue
		}
		var parsed map[string]any
		if err := json.Unmarshal([]byte(strings.ReplaceAll(str, "'", `"`)), &parsed); err != nil {
			out[key] = str
			continue
		}
		out[key] = parsed
	}
	return out
}

// flattenAnswer promotes the entries of a top-level "answer" mapping and
// drops bookkeeping keys.
func flattenAnswer(fields domain.FieldMap) domain.FieldMap {
	out := make(domain.FieldMap, len(fields))
	if answer, ok := fields["answer"].(map[string]any); ok {
		for key, value := range answer {
			out[key] = value
		}
	} else {
		for key, value := range fields {
			out[key] = value
		}
	}
	for _, key := range bookkeepingKeys {
		delete(out, key)
	}
	return out
}

// filterPlaceholders drops placeholder values. If that would remove every
// field, the first field (in sorted key order) is retained and the result is
// tagged with a warning so an empty record is never produced.
func filterPlaceholders(fields domain.FieldMap) domain.FieldMap {
	if len(fields) == 0 {
		return fields
	}
	out := make(domain.FieldMap, len(fields))
	for key, value := range fields {
		if !IsPlaceholder(value) {
			out[key] = value
		}
	}
	if len(out) == 0 {
		first := sortedKeys(fields)[0]
		out[first] = fields[first]
		out[WarningKey] = allPlaceholdersNote
	}
	return out
}

// IsPlaceholder reports whether a value looks like unfilled template
// boilerplate rather than real extracted data.
func IsPlaceholder(value any) bool {
	str, ok := value.(string)
	if !ok {
		return false
	}
	lowered := strings.ToLower(str)
	for _, indicator := range placeholderIndicators {
		if strings.Contains(lowered, indicator) {
			return true
		}
	}
	return false
}

// normalizeKeys lowercases keys and replaces whitespace and hyphens with
// underscores. Idempotent.
func normalizeKeys(fields domain.FieldMap) domain.FieldMap {
	out := make(domain.FieldMap, len(fields))
	for key, value := range fields {
		out[NormalizeKey(key)] = value
	}
	return out
}

func NormalizeKey(key string) string {
	normalized := strings.Map(func(r rune) rune {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '-':
			return '_'
		default:
			return r
		}
	}, strings.ToLower(key))
	return normalized
}

// coerceScalars converts anything that is not a string, number, boolean or
// nil to its string representation; the metadata write call accepts only
// scalar types.
func coerceScalars(fields domain.FieldMap) domain.FieldMap {
	out := make(domain.FieldMap, len(fields))
	for key, value := range fields {
		switch value.(type) {
		case nil, string, bool, int, int32, int64, float32, float64, json.Number:
			out[key] = value
		default:
			if encoded, err := json.Marshal(value); err == nil {
				out[key] = string(encoded)
			} else {
				out[key] = fmt.Sprintf("%v", value)
			}
		}
	}
	return out
}

func sortedKeys(fields domain.FieldMap) []string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
