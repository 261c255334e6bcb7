package directory

import (
	"slices"
	"strings"
)

// Schema describes the columns of a directory table.
type Schema struct {
	Kind          Kind
	Columns       []string // expected columns in display order
	NameField     string   // display name, required
	LocationField string   // room or location, required
	SearchFields  []string // fields matched by the free-text filter
}

var schemas = map[Kind]Schema{
	KindFaculty: {
		Kind:          KindFaculty,
		Columns:       []string{"Name", "Department", "Subject", "Role", "Room"},
		NameField:     "Name",
		LocationField: "Room",
		SearchFields:  []string{"Name", "Department", "Subject", "Role", "Room"},
	},
	KindServices: {
		Kind:          KindServices,
		Columns:       []string{"Service", "Office", "Room", "Working Hours", "Description"},
		NameField:     "Service",
		LocationField: "Room",
		SearchFields:  []string{"Service", "Office", "Room", "Description"},
	},
	KindLabs: {
		Kind:          KindLabs,
		Columns:       []string{"Lab Name", "Department", "Building", "Room", "Working Hours", "Description"},
		NameField:     "Lab Name",
		LocationField: "Room",
		SearchFields:  []string{"Lab Name", "Department", "Building", "Room", "Description"},
	},
}

// SchemaFor returns the schema of kind. Unknown kinds get an empty schema.
func SchemaFor(kind Kind) Schema {
	return schemas[kind]
}

// Valid reports whether rec carries a non-empty display name and location.
func (s Schema) Valid(rec Record) bool {
	return rec.Get(s.NameField) != "" && rec.Get(s.LocationField) != ""
}

// Normalize builds a Table from a header row and raw value rows.
// Header names and values are trimmed. Rows shorter than the header are
// padded with empty values; rows that fail the schema are dropped and
// counted in Table.Skipped. Fully blank rows are ignored silently.
func Normalize(kind Kind, header []string, rows [][]string) *Table {
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	schema := SchemaFor(kind)
	table := &Table{
		Kind:    kind,
		Columns: columns,
		Rows:    make([]Record, 0, len(rows)),
	}

	for _, raw := range rows {
		rec := make(Record, len(columns))
		blank := true
		for i, col := range columns {
			if col == "" {
				continue
			}
			var v string
			if i < len(raw) {
				v = strings.TrimSpace(raw[i])
			}
			if v != "" {
				blank = false
			}
			rec[col] = v
		}
		if blank {
			continue
		}
		if !schema.Valid(rec) {
			table.Skipped++
			continue
		}
		table.Rows = append(table.Rows, rec)
	}

	return table
}

// NormalizeRecords builds a Table from already keyed records, as decoded
// from JSON, YAML or TOML files. Keys and values are trimmed. Columns keep
// the schema order first, followed by any extra keys in sorted order.
func NormalizeRecords(kind Kind, records []map[string]any) *Table {
	schema := SchemaFor(kind)
	seen := make(map[string]bool)
	var extra []string

	rows := make([][]string, 0, len(records))
	keyed := make([]map[string]string, 0, len(records))
	for _, raw := range records {
		m := make(map[string]string, len(raw))
		for k, v := range raw {
			key := strings.TrimSpace(k)
			m[key] = stringify(v)
			if !seen[key] {
				seen[key] = true
				if !slices.Contains(schema.Columns, key) {
					extra = append(extra, key)
				}
			}
		}
		keyed = append(keyed, m)
	}
	slices.Sort(extra)

	header := make([]string, 0, len(schema.Columns)+len(extra))
	for _, col := range schema.Columns {
		if seen[col] {
			header = append(header, col)
		}
	}
	header = append(header, extra...)

	for _, m := range keyed {
		row := make([]string, len(header))
		for i, col := range header {
			row[i] = m[col]
		}
		rows = append(rows, row)
	}

	return Normalize(kind, header, rows)
}
