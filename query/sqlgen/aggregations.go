package sqlgen

import (
	"sort"
	"strings"

	"github.com/satishbabariya/strata/query/ast"
)

// selectHead renders SELECT [DISTINCT] columns FROM table [AS alias].
func (s *statement) selectHead() string {
	alias := s.baseAlias()

	var columns []string
	for _, sel := range s.def.Select {
		columns = append(columns, s.selection(sel))
	}
	for _, agg := range s.def.Aggregates {
		columns = append(columns, string(agg.Fn)+"("+s.aggregateColumn(agg.Column)+") AS "+s.quote(agg.Alias()))
	}

	if len(columns) == 0 {
		for _, col := range s.table.Columns {
			columns = append(columns, s.selection(ast.Selection{Column: alias + "." + col}))
		}
	}
	if len(columns) == 0 {
		columns = append(columns, s.quote(alias)+".*")
	}

	from := s.quote(s.table.Name)
	if alias != s.table.Name {
		from += " AS " + s.quote(alias)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	if s.def.Distinct {
		b.WriteString("DISTINCT ")
	}
	b.WriteString(strings.Join(columns, ", "))
	b.WriteString(" FROM ")
	b.WriteString(from)
	return b.String()
}

// selection renders a selected column. Unaliased columns keep their
// qualified name as the result key so rows can be regrouped per table.
func (s *statement) selection(sel ast.Selection) string {
	column := strings.ReplaceAll(sel.Column, `"`, "")

	if sel.IsWildcard() {
		table, _, _ := strings.Cut(column, ".")
		return s.quote(table) + ".*"
	}

	as := sel.As
	if as == "" {
		as = column
	}
	return s.quote(column) + " AS " + s.gen.Dialect().Quote() + strings.ReplaceAll(as, `"`, "") + s.gen.Dialect().Quote()
}

func (s *statement) aggregateColumn(column string) string {
	switch {
	case column == "*" || column == "":
		return "*"
	case strings.HasSuffix(column, ".*"):
		return s.quote(strings.TrimSuffix(column, ".*")) + ".*"
	default:
		return s.quote(column)
	}
}

// groupBy returns the explicit GROUP BY list, or derives one from the
// select list when aggregates are present.
func (s *statement) groupBy() []string {
	if s.def.QueryType != ast.Select {
		return nil
	}

	if len(s.def.GroupBy) > 0 {
		out := make([]string, len(s.def.GroupBy))
		for i, col := range s.def.GroupBy {
			out[i] = s.quote(col)
		}
		return out
	}

	if len(s.def.Aggregates) == 0 {
		return nil
	}

	var out []string
	for _, sel := range s.def.Select {
		if !sel.IsWildcard() {
			out = append(out, s.quote(sel.Column))
			continue
		}
		table, _, _ := strings.Cut(sel.Column, ".")
		for _, col := range s.columnsOf(table) {
			out = append(out, s.quote(table+"."+col))
		}
	}
	return out
}

// columnsOf returns the declared columns behind a table alias.
func (s *statement) columnsOf(alias string) []string {
	if alias == s.baseAlias() {
		return s.table.Columns
	}
	return s.def.JoinedColumns[alias]
}

// insertHead renders INSERT INTO t (cols) VALUES (...), (...). The
// columns are the keys of every row: declared ones in declaration order,
// then the rest sorted. A row missing a column binds NULL.
func (s *statement) insertHead() (string, error) {
	rows := s.def.InsertValues
	if len(rows) == 0 {
		return "", ErrMissingValues
	}

	union := make(map[string]any)
	for _, row := range rows {
		for key := range row {
			union[key] = nil
		}
	}
	keys := orderedKeys(union, s.table.Columns)

	columns := make([]string, len(keys))
	for i, key := range keys {
		columns[i] = s.quote(key)
	}
	rowPlaceholders := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(keys)), ", ") + ")"

	tuples := make([]string, len(rows))
	for i, row := range rows {
		tuples[i] = rowPlaceholders
		for _, key := range keys {
			s.bind(row[key])
		}
	}

	return "INSERT INTO " + s.quote(s.table.Name) + " (" + strings.Join(columns, ", ") + ") VALUES " + strings.Join(tuples, ", "), nil
}

// updateHead renders UPDATE t SET "c" = ?, ...
func (s *statement) updateHead() (string, error) {
	values := s.def.UpdateValues
	if len(values) == 0 {
		return "", ErrMissingValues
	}

	keys := orderedKeys(values, s.table.Columns)
	sets := make([]string, len(keys))
	for i, key := range keys {
		sets[i] = s.quote(key) + " = " + s.operand(values[key])
	}

	return "UPDATE " + s.quote(s.table.Name) + " SET " + strings.Join(sets, ", "), nil
}

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
