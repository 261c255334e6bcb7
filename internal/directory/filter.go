package directory

import (
	"fmt"
	"strconv"
	"strings"
)

// Filter returns the rows in which at least one of fields contains query,
// ignoring case. Matching is an OR across fields and keeps the input order.
//
// An empty or whitespace-only query returns rows as-is. Missing or empty
// field values never match.
func Filter(query string, rows []Record, fields []string) []Record {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return rows
	}

	matched := make([]Record, 0, len(rows))
	for _, row := range rows {
		if rowMatches(row, fields, q) {
			matched = append(matched, row)
		}
	}
	return matched
}

func rowMatches(row Record, fields []string, q string) bool {
	for _, field := range fields {
		v, ok := row[field]
		if !ok || v == "" {
			continue
		}
		if strings.Contains(strings.ToLower(v), q) {
			return true
		}
	}
	return false
}

// stringify coerces decoded file values (numbers, bools, nil) to text.
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}
