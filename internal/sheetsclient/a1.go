package sheetsclient

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// A1Range is a parsed A1 reference. Columns are 1-based; a zero row or column
// means the range is open-ended on that side ("A2:E", "A:E", "3:5").
type A1Range struct {
	SheetName        string
	StartRow, EndRow int
	StartCol, EndCol int
}

// Width is the number of columns covered, or 0 when unbounded.
func (r A1Range) Width() int {
	if r.StartCol == 0 || r.EndCol == 0 {
		return 0
	}
	return r.EndCol - r.StartCol + 1
}

var (
	a1CellRe = regexp.MustCompile(`^([A-Za-z]*)([0-9]*)$`)
	// a1RefRe matches a cell, column or row reference ("B3", "$AA$1", "E", "12").
	// Sheets has at most three column letters, so "Sheet1" is not a reference.
	a1RefRe = regexp.MustCompile(`^\$?[A-Za-z]{0,3}\$?[0-9]*$`)
)

func ParseA1Range(a1 string) (A1Range, error) {
	raw := strings.TrimSpace(a1)
	if raw == "" {
		return A1Range{}, fmt.Errorf("empty A1 range")
	}

	if !strings.Contains(raw, "!") && !isA1Reference(raw) {
		// A whole sheet ("Team Name", "'Team Name'") or a named range.
		name, err := unquoteSheetName(raw)
		if err != nil {
			return A1Range{}, err
		}
		return A1Range{SheetName: name}, nil
	}

	sheetName, rangePart, err := splitA1Sheet(raw)
	if err != nil {
		return A1Range{}, err
	}
	if strings.TrimSpace(rangePart) == "" {
		return A1Range{}, fmt.Errorf("missing range in %q", raw)
	}

	rangePart = strings.ReplaceAll(rangePart, "$", "")
	parts := strings.Split(rangePart, ":")
	if len(parts) > 2 {
		return A1Range{}, fmt.Errorf("invalid A1 range %q", raw)
	}

	startRef := strings.TrimSpace(parts[0])
	endRef := startRef
	if len(parts) == 2 {
		endRef = strings.TrimSpace(parts[1])
	}

	startCol, startRow, err := parseA1Cell(startRef)
	if err != nil {
		return A1Range{}, err
	}
	endCol, endRow, err := parseA1Cell(endRef)
	if err != nil {
		return A1Range{}, err
	}

	if endRow != 0 && endRow < startRow {
		startRow, endRow = endRow, startRow
	}
	if endCol != 0 && endCol < startCol {
		startCol, endCol = endCol, startCol
	}

	return A1Range{
		SheetName: sheetName,
		StartRow:  startRow,
		EndRow:    endRow,
		StartCol:  startCol,
		EndCol:    endCol,
	}, nil
}

func isA1Reference(s string) bool {
	for _, part := range strings.Split(s, ":") {
		part = strings.TrimSpace(part)
		if part == "" || !a1RefRe.MatchString(part) {
			return false
		}
	}
	return true
}

func splitA1Sheet(a1 string) (string, string, error) {
	idx := strings.LastIndex(a1, "!")
	if idx == -1 {
		return "", a1, nil
	}

	sheetPart := strings.TrimSpace(a1[:idx])
	rangePart := strings.TrimSpace(a1[idx+1:])
	if sheetPart == "" || rangePart == "" {
		return "", "", fmt.Errorf("invalid A1 range %q", a1)
	}

	sheetName, err := unquoteSheetName(sheetPart)
	if err != nil {
		return "", "", err
	}
	return sheetName, rangePart, nil
}

func unquoteSheetName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("empty sheet name")
	}
	if strings.HasPrefix(name, "'") {
		if !strings.HasSuffix(name, "'") || len(name) < 2 {
			return "", fmt.Errorf("invalid sheet name %q", name)
		}
		inner := name[1 : len(name)-1]
		return strings.ReplaceAll(inner, "''", "'"), nil
	}
	return name, nil
}

// parseA1Cell returns (col, row); either may be 0 for whole rows/columns.
func parseA1Cell(ref string) (int, int, error) {
	matches := a1CellRe.FindStringSubmatch(ref)
	if matches == nil || (matches[1] == "" && matches[2] == "") {
		return 0, 0, fmt.Errorf("invalid A1 cell %q", ref)
	}

	col := 0
	if matches[1] != "" {
		var err error
		if col, err = colLettersToIndex(matches[1]); err != nil {
			return 0, 0, err
		}
	}
	row := 0
	if matches[2] != "" {
		var err error
		row, err = strconv.Atoi(matches[2])
		if err != nil || row <= 0 {
			return 0, 0, fmt.Errorf("invalid row in %q", ref)
		}
	}
	return col, row, nil
}

func colLettersToIndex(letters string) (int, error) {
	letters = strings.ToUpper(strings.TrimSpace(letters))
	if letters == "" {
		return 0, fmt.Errorf("empty column")
	}

	col := 0
	for i := 0; i < len(letters); i++ {
		ch := letters[i]
		if ch < 'A' || ch > 'Z' {
			return 0, fmt.Errorf("invalid column %q", letters)
		}
		col = col*26 + int(ch-'A'+1)
	}
	return col, nil
}
