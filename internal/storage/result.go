package storage

import (
	"strconv"
	"strings"
	"time"
)

// ResultTable is the rectangular result of one executed query.
// Numeric cells are float64, text cells are string, NULL is nil.
type ResultTable struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

// EmptyTable returns a table with no columns and no rows.
func EmptyTable() *ResultTable {
	return &ResultTable{Columns: []string{}, Rows: [][]interface{}{}}
}

// Empty reports whether the table has no rows.
func (t *ResultTable) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// Len returns the row count.
func (t *ResultTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Index returns the position of column name, or -1.
func (t *ResultTable) Index(name string) int {
	if t == nil {
		return -1
	}
	for i, c := range t.Columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

// Has reports whether a column is present.
func (t *ResultTable) Has(name string) bool {
	return t.Index(name) >= 0
}

// HasPrefix reports whether any column starts with prefix.
func (t *ResultTable) HasPrefix(prefix string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if strings.HasPrefix(strings.ToLower(c), prefix) {
			return true
		}
	}
	return false
}

// Float returns the numeric value at row, col. Missing columns and NULLs
// yield ok=false.
func (t *ResultTable) Float(row int, col string) (float64, bool) {
	i := t.Index(col)
	if i < 0 || row < 0 || row >= len(t.Rows) || i >= len(t.Rows[row]) {
		return 0, false
	}
	return toFloat(t.Rows[row][i])
}

// FloatOr returns the numeric value at row, col or zero.
func (t *ResultTable) FloatOr(row int, col string) float64 {
	v, _ := t.Float(row, col)
	return v
}

// String returns the text value at row, col. Missing columns and NULLs
// yield an empty string.
func (t *ResultTable) String(row int, col string) string {
	i := t.Index(col)
	if i < 0 || row < 0 || row >= len(t.Rows) || i >= len(t.Rows[row]) {
		return ""
	}
	switch v := t.Rows[row][i].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// normalizeCell maps driver values onto the table's cell types.
func normalizeCell(v interface{}) interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case int64:
		return float64(x)
	case int32:
		return float64(x)
	case int:
		return float64(x)
	case float32:
		return float64(x)
	case float64:
		return x
	case bool:
		if x {
			return float64(1)
		}
		return float64(0)
	case []byte:
		s := string(x)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return s
	case string:
		return x
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format(time.RFC3339)
	default:
		return v
	}
}
