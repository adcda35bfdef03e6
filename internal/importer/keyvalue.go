package importer

import (
	"sort"
	"strings"
)

// ParseKeyValueList parses a spreadsheet cell like "ancho: 10, altura: 5"
// into a string map. Entries without a colon are ignored; later duplicates
// win.
func ParseKeyValueList(s string) map[string]string {
	result := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		result[key] = strings.TrimSpace(value)
	}
	return result
}

// FormatKeyValueList renders a string map back into the "key: value, ..."
// cell format. Keys are sorted so output is stable.
func FormatKeyValueList(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+m[k])
	}
	return strings.Join(parts, ", ")
}

// splitList splits a comma-separated cell into trimmed non-empty items.
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
