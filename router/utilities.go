package router

import "sort"

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// joinPath joins a prefix and a path into a clean absolute path.
func joinPath(prefix, path string) string {
	parts := append(splitPath(prefix), splitPath(path)...)
	out := ""
	for _, p := range parts {
		out += "/" + p
	}
	if out == "" {
		return "/"
	}
	return out
}
