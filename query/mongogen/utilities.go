package mongogen

import "sort"

// orderedKeys lists declared columns first, then the remaining keys of
// row in sorted order.
func orderedKeys(row map[string]any, declared []string) []string {
	keys := make([]string, 0, len(row))
	seen := make(map[string]bool, len(row))
	for _, col := range declared {
		if _, ok := row[col]; ok {
			keys = append(keys, col)
			seen[col] = true
		}
	}

	var rest []string
	for key := range row {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}
