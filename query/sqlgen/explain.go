package sqlgen

import (
	"errors"
	"strings"
)

// ExplainFormat is the output format of an EXPLAIN statement.
type ExplainFormat string

const (
	ExplainJSON ExplainFormat = "JSON"
	ExplainText ExplainFormat = "TEXT"
	ExplainYAML ExplainFormat = "YAML"
	ExplainXML  ExplainFormat = "XML"
)

// ErrExplainClauses is returned when MySQL is asked for more than one
// EXPLAIN clause.
var ErrExplainClauses = errors.New("only one explain clause is allowed")

// ExplainOptions configures EXPLAIN. Nil pointers leave the database
// default in place.
type ExplainOptions struct {
	Format  ExplainFormat
	Analyze bool
	Verbose bool
	Summary *bool
	Timing  *bool
	Costs   *bool
	Buffers *bool
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}

// Explain renders EXPLAIN (FORMAT x, ANALYZE, SUMMARY ON, ...).
// SUMMARY and TIMING only apply together with ANALYZE.
func (g *PostgresGenerator) Explain(opts ExplainOptions) (string, error) {
	var clauses []string

	if opts.Format != "" {
		clauses = append(clauses, "FORMAT "+string(opts.Format))
	}
	if opts.Analyze {
		clauses = append(clauses, "ANALYZE")
		if opts.Summary != nil {
			clauses = append(clauses, "SUMMARY "+onOff(*opts.Summary))
		}
		if opts.Timing != nil {
			clauses = append(clauses, "TIMING "+onOff(*opts.Timing))
		}
	}
	if opts.Verbose {
		clauses = append(clauses, "VERBOSE ON")
	}
	if opts.Costs != nil {
		clauses = append(clauses, "COSTS "+onOff(*opts.Costs))
	}
	if opts.Buffers != nil {
		clauses = append(clauses, "BUFFERS "+onOff(*opts.Buffers))
	}

	if len(clauses) == 0 {
		return "EXPLAIN", nil
	}
	return "EXPLAIN (" + strings.Join(clauses, ", ") + ")", nil
}

// Explain renders EXPLAIN ANALYZE or EXPLAIN FORMAT=x.
func (g *MySQLGenerator) Explain(opts ExplainOptions) (string, error) {
	var clauses []string
	if opts.Analyze {
		clauses = append(clauses, "ANALYZE")
	}
	if opts.Format != "" {
		clauses = append(clauses, "FORMAT="+string(opts.Format))
	}
	if len(clauses) > 1 {
		return "", ErrExplainClauses
	}
	return strings.TrimSpace("EXPLAIN " + strings.Join(clauses, " ")), nil
}

// Explain renders EXPLAIN QUERY PLAN; SQLite takes no options.
func (g *SQLiteGenerator) Explain(ExplainOptions) (string, error) {
	return "EXPLAIN QUERY PLAN", nil
}

// ExplainQuery prefixes an already compiled query with the EXPLAIN form
// of gen.
func ExplainQuery(gen Generator, q *Query, opts ExplainOptions) (*Query, error) {
	prefix, err := gen.Explain(opts)
	if err != nil {
		return nil, err
	}
	return &Query{SQL: prefix + " " + q.SQL, Args: q.Args}, nil
}
