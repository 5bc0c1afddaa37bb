package nlq

import (
	"strconv"
	"strings"
	"time"

	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/storage"
)

// Column is one projected expression.
type Column struct {
	Expr  string `json:"expr"`
	Alias string `json:"alias,omitempty"`
}

// Name is the result column name the column produces.
func (c Column) Name() string {
	if c.Alias != "" {
		return c.Alias
	}
	return c.Expr
}

// Clause is a filter predicate. SQL uses "?" markers; every user
// influenced value travels in Args.
type Clause struct {
	SQL  string        `json:"sql"`
	Args []interface{} `json:"args,omitempty"`
}

// OrderKey is one ORDER BY entry.
type OrderKey struct {
	Expr string `json:"expr"`
	Desc bool   `json:"desc,omitempty"`
}

// QuerySpec is the pre-execution description of a query. Filter clauses
// are ANDed.
type QuerySpec struct {
	Table      string     `json:"table"`
	Projection []Column   `json:"projection"`
	Filter     []Clause   `json:"filter,omitempty"`
	GroupBy    []string   `json:"group_by,omitempty"`
	OrderBy    []OrderKey `json:"order_by,omitempty"`
	Limit      int        `json:"limit,omitempty"`
}

// Query is a rendered QuerySpec.
type Query struct {
	SQL    string        `json:"sql"`
	Args   []interface{} `json:"args"`
	Inline string        `json:"inline"`
}

// Debug returns the query with its arguments inlined as literals. It is
// meant for display only and is never executed.
func (q Query) Debug() string {
	return q.Inline
}

// Build renders the spec for a dialect.
func (s QuerySpec) Build(d storage.Dialect) Query {
	var b strings.Builder
	args := []interface{}{}

	b.WriteString("SELECT ")
	for i, c := range s.Projection {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Expr)
		if c.Alias != "" && c.Alias != c.Expr {
			b.WriteString(" AS ")
			b.WriteString(c.Alias)
		}
	}

	b.WriteString(" FROM ")
	b.WriteString(s.Table)

	if len(s.Filter) > 0 {
		b.WriteString(" WHERE ")
		for i, c := range s.Filter {
			if i > 0 {
				b.WriteString(" AND ")
			}
			b.WriteString(c.SQL)
			args = append(args, c.Args...)
		}
	}

	if len(s.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(s.GroupBy, ", "))
	}

	if len(s.OrderBy) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range s.OrderBy {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(o.Expr)
			if o.Desc {
				b.WriteString(" DESC")
			} else {
				b.WriteString(" ASC")
			}
		}
	}

	if s.Limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(s.Limit))
	}

	marked := b.String()
	return Query{
		SQL:    rebind(marked, d),
		Args:   args,
		Inline: inline(marked, args),
	}
}

// HasGrouping reports whether the spec groups rows.
func (s QuerySpec) HasGrouping() bool { return len(s.GroupBy) > 0 }

// ColumnNames lists the result columns in projection order.
func (s QuerySpec) ColumnNames() []string {
	out := make([]string, len(s.Projection))
	for i, c := range s.Projection {
		out[i] = c.Name()
	}
	return out
}

// rebind replaces "?" markers outside string literals with the dialect's
// placeholders.
func rebind(sql string, d storage.Dialect) string {
	if d != storage.DialectPostgres {
		return sql
	}
	var b strings.Builder
	n := 0
	quoted := false
	for _, r := range sql {
		switch {
		case r == '\'':
			quoted = !quoted
			b.WriteRune(r)
		case r == '?' && !quoted:
			n++
			b.WriteString(d.Placeholder(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func inline(sql string, args []interface{}) string {
	var b strings.Builder
	n := 0
	quoted := false
	for _, r := range sql {
		switch {
		case r == '\'':
			quoted = !quoted
			b.WriteRune(r)
		case r == '?' && !quoted && n < len(args):
			b.WriteString(literal(args[n]))
			n++
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func literal(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		return "'" + x.Format(time.RFC3339) + "'"
	default:
		return "?"
	}
}

func pct(num, den string) string {
	return "ROUND(CAST(" + num + "*100.0/NULLIF(" + den + ",0) AS NUMERIC),2)"
}

func per(num, den string) string {
	return "ROUND(CAST(" + num + "*1.0/NULLIF(" + den + ",0) AS NUMERIC),2)"
}

func sum(col string) string { return "SUM(" + col + ")" }
