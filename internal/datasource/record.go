package datasource

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Record is one result row keyed by column name.
type Record map[string]any

// Project returns a copy holding exactly cols; missing columns become nil so
// every record of a check carries the same schema.
func (r Record) Project(cols ...string) Record {
	out := make(Record, len(cols))
	for _, c := range cols {
		out[c] = r[c]
	}
	return out
}

// String returns the column as text. Numbers are formatted without exponent.
func (r Record) String(col string) (string, bool) {
	v, ok := r[col]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case []byte:
		return string(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case int:
		return strconv.Itoa(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case time.Time:
		return t.Format(time.DateOnly), true
	default:
		return fmt.Sprint(t), true
	}
}

// Int coerces the column to an integer. Absent, null, fractional and
// non-numeric values report false.
func (r Record) Int(col string) (int, bool) {
	return AsInt(r[col])
}

// AsInt coerces a driver or JSON value to int.
func AsInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int32:
		return int(t), true
	case int64:
		return int(t), true
	case float64:
		if math.IsNaN(t) || t != math.Trunc(t) {
			return 0, false
		}
		return int(t), true
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		// DECIMAL columns arrive as text, e.g. "1234.00".
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return AsInt(f)
	case []byte:
		return AsInt(string(t))
	default:
		return 0, false
	}
}
