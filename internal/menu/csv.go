package menu

import "strings"

// ParseCSV splits exported sheet text into rows of trimmed fields.
//
// A double quote toggles quoted mode and is dropped from the field; commas
// inside quotes are kept literally. Quoted fields cannot span lines, and an
// unterminated quote simply swallows the rest of its line. Malformed input
// never produces an error. Lines that are blank after trimming are skipped.
func ParseCSV(text string) [][]string {
	lines := strings.Split(text, "\n")
	rows := make([][]string, 0, len(lines))

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, parseLine(line))
	}

	return rows
}

// parseLine scans one line with a quote toggle.
func parseLine(line string) []string {
	var (
		fields   []string
		field    strings.Builder
		inQuotes bool
	)

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(field.String()))
			field.Reset()
		default:
			field.WriteRune(r)
		}
	}

	return append(fields, strings.TrimSpace(field.String()))
}
