package sheetsclient

import "strings"

const (
	NoDataText   = "No data found."
	MajorsHeader = "Name, Major:"
)

// FormatMajors renders rows as "<name>, <major>" lines. The name is column 0,
// the major is the last column of a range width columns wide. Sheets trims
// trailing empty cells, so rows shorter than the range use their last cell.
func FormatMajors(rows [][]string, width int) string {
	var b strings.Builder
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		name := row[0]
		major := ""
		switch {
		case width > 0 && len(row) >= width:
			major = row[width-1]
		case len(row) > 1:
			major = row[len(row)-1]
		}
		if b.Len() == 0 {
			b.WriteString(MajorsHeader)
			b.WriteString("\n")
		}
		b.WriteString(name)
		b.WriteString(", ")
		b.WriteString(major)
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return NoDataText
	}
	return b.String()
}
