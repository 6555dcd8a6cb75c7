package sqlgen

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SanitizeParams converts params to values that can be printed inline:
// nil, strings, numbers and booleans pass through, times become
// RFC 3339 strings and everything else is JSON encoded.
func SanitizeParams(params []interface{}) []interface{} {
	out := make([]interface{}, len(params))
	for i, p := range params {
		switch v := p.(type) {
		case nil, string, bool,
			int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64,
			float32, float64:
			out[i] = v
		case time.Time:
			out[i] = v.UTC().Format(time.RFC3339Nano)
		case fmt.Stringer:
			out[i] = v.String()
		default:
			b, err := json.Marshal(v)
			if err != nil {
				out[i] = nil
				continue
			}
			out[i] = string(b)
		}
	}
	return out
}

func literal(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case bool:
		return strconv.FormatBool(v)
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	default:
		return "'" + strings.ReplaceAll(fmt.Sprint(v), "'", "''") + "'"
	}
}

// DebugString inlines the parameters of q into its SQL. It is meant for
// logs only; never execute the result.
func DebugString(q *Query) string {
	if len(q.Args) == 0 {
		return q.SQL
	}

	params := SanitizeParams(q.Args)

	var b strings.Builder
	var quote byte
	next := 0
	sql := q.SQL
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'' || ch == '`':
			quote = ch
		case ch == '?' && next < len(params):
			b.WriteString(literal(params[next]))
			next++
			continue
		case ch == '$' && i+1 < len(sql) && sql[i+1] >= '0' && sql[i+1] <= '9':
			j := i + 1
			for j < len(sql) && sql[j] >= '0' && sql[j] <= '9' {
				j++
			}
			n, _ := strconv.Atoi(sql[i+1 : j])
			if n >= 1 && n <= len(params) {
				b.WriteString(literal(params[n-1]))
				i = j - 1
				continue
			}
		}
		b.WriteByte(ch)
	}
	return b.String()
}
