// Package directory holds the campus directory tables (faculty, services,
// labs) and the substring filter used to narrow them for display.
package directory

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies a directory table.
type Kind string

const (
	KindFaculty  Kind = "faculty"
	KindServices Kind = "services"
	KindLabs     Kind = "labs"
)

// Kinds lists every table in display order.
var Kinds = []Kind{KindFaculty, KindServices, KindLabs}

// ParseKind converts a user-supplied table name into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindFaculty:
		return KindFaculty, nil
	case KindServices:
		return KindServices, nil
	case KindLabs:
		return KindLabs, nil
	default:
		return "", fmt.Errorf("unknown directory table %q", s)
	}
}

func (k Kind) String() string {
	return string(k)
}

// Record is a single directory row keyed by column name.
type Record map[string]string

// Get returns the trimmed value of field, or "" when the field is absent.
func (r Record) Get(field string) string {
	return strings.TrimSpace(r[field])
}

// Table is a wholesale-loaded, read-only snapshot of one directory table.
// It is never mutated after construction; reloads build a new Table.
type Table struct {
	Kind     Kind
	Columns  []string
	Rows     []Record
	Skipped  int       // rows dropped because a required field was empty
	LoadedAt time.Time // when the source was read
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Search filters the table by query over the schema's search fields.
func (t *Table) Search(query string) []Record {
	if t == nil {
		return nil
	}
	return Filter(query, t.Rows, SchemaFor(t.Kind).SearchFields)
}

// Find returns the first row whose display name equals name, ignoring case.
func (t *Table) Find(name string) (Record, bool) {
	if t == nil {
		return nil, false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false
	}
	field := SchemaFor(t.Kind).NameField
	for _, row := range t.Rows {
		if strings.EqualFold(row.Get(field), name) {
			return row, true
		}
	}
	return nil, false
}

// Age reports how long ago the table was loaded.
func (t *Table) Age(now time.Time) time.Duration {
	if t == nil || t.LoadedAt.IsZero() {
		return 0
	}
	return now.Sub(t.LoadedAt)
}
