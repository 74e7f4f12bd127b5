package sheetsclient

import "testing"

func TestParseA1Range(t *testing.T) {
	tests := []struct {
		in    string
		want  A1Range
		width int
	}{
		{"Sheet1!A1:B10", A1Range{SheetName: "Sheet1", StartRow: 1, EndRow: 10, StartCol: 1, EndCol: 2}, 2},
		{"Team Name!A2:E", A1Range{SheetName: "Team Name", StartRow: 2, StartCol: 1, EndCol: 5}, 5},
		{"'It''s'!$B$3", A1Range{SheetName: "It's", StartRow: 3, EndRow: 3, StartCol: 2, EndCol: 2}, 1},
		{"A:E", A1Range{StartCol: 1, EndCol: 5}, 5},
		{"C5:A1", A1Range{StartRow: 1, EndRow: 5, StartCol: 1, EndCol: 3}, 3},
		{"2:4", A1Range{StartRow: 2, EndRow: 4}, 0},
		{"AA1", A1Range{StartRow: 1, EndRow: 1, StartCol: 27, EndCol: 27}, 1},
		{"Sheet1", A1Range{SheetName: "Sheet1"}, 0},
		{"Team Name", A1Range{SheetName: "Team Name"}, 0},
		{"'Team Name'", A1Range{SheetName: "Team Name"}, 0},
		{"students_table", A1Range{SheetName: "students_table"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseA1Range(tt.in)
			if err != nil {
				t.Fatalf("ParseA1Range(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("ParseA1Range(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
			if got.Width() != tt.width {
				t.Fatalf("Width(%q) = %d, want %d", tt.in, got.Width(), tt.width)
			}
		})
	}
}

func TestParseA1Range_Invalid(t *testing.T) {
	for _, in := range []string{"", "  ", "!A1", "Sheet1!", "A1:B2:C3", "A0", "Sheet1!1A", "'open!A1", "'open", "Sheet1!:"} {
		if _, err := ParseA1Range(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}
