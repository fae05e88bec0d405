package textutil

import "strings"

// SplitList splits a comma separated list, trimming entries and dropping
// empty ones and duplicates while preserving first-seen order.
func SplitList(value string) []string {
	return Dedupe(strings.Split(value, ","))
}

// Dedupe trims entries and returns them without empties or repeats, keeping
// the first occurrence of each.
func Dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
