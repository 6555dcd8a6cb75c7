package builder

import (
	"strings"

	"github.com/satishbabariya/strata/query/ast"
)

// ParseAliasedRow regroups a flat result row. Keys of the form t.c nest
// under t; an aliased column nests under the table of its source
// column; the root table's fields are hoisted to the top level.
func ParseAliasedRow(row map[string]any, selects []ast.Selection, root string) map[string]any {
	result := make(map[string]any, len(row))

	nested := func(name string) map[string]any {
		if m, ok := result[name].(map[string]any); ok {
			return m
		}
		m := map[string]any{}
		result[name] = m
		return m
	}

	for key, value := range row {
		tbl, column, ok := strings.Cut(key, ".")
		if ok && column != "" {
			nested(tbl)[column] = value
			continue
		}

		if src, found := aliasSource(selects, key); found {
			origin, _, _ := strings.Cut(strings.ReplaceAll(src, `"`, ""), ".")
			nested(origin)[key] = value
			continue
		}

		result[key] = value
	}

	if root != "" {
		if fields, ok := result[root].(map[string]any); ok {
			delete(result, root)
			for k, v := range fields {
				result[k] = v
			}
		}
	}

	return result
}

func aliasSource(selects []ast.Selection, alias string) (string, bool) {
	for _, sel := range selects {
		if sel.As == alias {
			return sel.Column, true
		}
	}
	return "", false
}
