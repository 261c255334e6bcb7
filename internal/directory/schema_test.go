package directory

import (
	"testing"
)

func TestNormalize_TrimsHeaderAndValues(t *testing.T) {
	header := []string{"\ufeff Name ", "Department", " Subject", "Role ", "Room"}
	rows := [][]string{
		{"  Jane Doe ", " Computer Science", "Algorithms ", "Professor", " B-204 "},
	}

	table := Normalize(KindFaculty, header, rows)

	wantCols := []string{"Name", "Department", "Subject", "Role", "Room"}
	for i, c := range wantCols {
		if table.Columns[i] != c {
			t.Errorf("Columns[%d] = %q, want %q", i, table.Columns[i], c)
		}
	}
	if len(table.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(table.Rows))
	}
	row := table.Rows[0]
	if row["Name"] != "Jane Doe" || row["Room"] != "B-204" || row["Department"] != "Computer Science" {
		t.Errorf("values not trimmed: %#v", row)
	}
}

func TestNormalize_DropsRowsMissingRequiredFields(t *testing.T) {
	header := []string{"Lab Name", "Department", "Building", "Room", "Working Hours", "Description"}
	rows := [][]string{
		{"Robotics Lab", "ECE", "Block C", "C-12", "9-5", "Arms"},
		{"", "ECE", "Block C", "C-13", "", ""},             // no name
		{"Chem Lab", "Chemistry", "Block D", "  ", "", ""}, // blank room
		{"", "", "", "", "", ""},                           // blank row, ignored
		{"Short Row", "CSE", "Block A", "A-1"},             // padded
	}

	table := Normalize(KindLabs, header, rows)

	if len(table.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(table.Rows))
	}
	if table.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", table.Skipped)
	}
	if got := table.Rows[1]["Description"]; got != "" {
		t.Errorf("padded Description = %q, want empty", got)
	}
	if _, ok := table.Rows[1]["Description"]; !ok {
		t.Error("padded row should still carry the Description key")
	}
}

func TestNormalizeRecords_ColumnOrderAndCoercion(t *testing.T) {
	records := []map[string]any{
		{"Room": "E-2", " Service ": "Exams", "Office": "Controller", "Floor": float64(2), "Open": true},
		{"Service": "Library", "Room": "L-1", "Description": nil},
	}

	table := NormalizeRecords(KindServices, records)

	want := []string{"Service", "Office", "Room", "Description", "Floor", "Open"}
	if len(table.Columns) != len(want) {
		t.Fatalf("Columns = %v, want %v", table.Columns, want)
	}
	for i := range want {
		if table.Columns[i] != want[i] {
			t.Errorf("Columns[%d] = %q, want %q", i, table.Columns[i], want[i])
		}
	}
	if table.Rows[0]["Floor"] != "2" || table.Rows[0]["Open"] != "true" {
		t.Errorf("coercion failed: %#v", table.Rows[0])
	}
	if table.Rows[1]["Description"] != "" {
		t.Errorf("nil should coerce to empty, got %q", table.Rows[1]["Description"])
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"faculty", KindFaculty, false},
		{" Services ", KindServices, false},
		{"LABS", KindLabs, false},
		{"rooms", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseKind(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
