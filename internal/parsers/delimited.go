package parsers

import (
	"strings"
)

// DetectSeparator picks ';' or ',' for a line by counting unquoted occurrences.
// Ties go to ','.
func DetectSeparator(line string) rune {
	commas, semicolons := 0, 0
	inQuotes := false
	for _, r := range line {
		switch r {
		case '"':
			inQuotes = !inQuotes
		case ',':
			if !inQuotes {
				commas++
			}
		case ';':
			if !inQuotes {
				semicolons++
			}
		}
	}
	if semicolons > commas {
		return ';'
	}
	return ','
}

// SplitLine tokenizes one delimited line. Quoted fields may contain separators, and a
// doubled quote inside a quoted field is a literal quote.
func SplitLine(line string) []string {
	sep := DetectSeparator(line)
	runes := []rune(line)

	var fields []string
	var field strings.Builder
	inQuotes := false

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case inQuotes && r == '"':
			if i+1 < len(runes) && runes[i+1] == '"' {
				field.WriteRune('"')
				i++
			} else {
				inQuotes = false
			}
		case inQuotes:
			field.WriteRune(r)
		case r == '"':
			inQuotes = true
		case r == sep:
			fields = append(fields, field.String())
			field.Reset()
		default:
			field.WriteRune(r)
		}
	}
	fields = append(fields, field.String())
	return fields
}

// FormatLine is the inverse of SplitLine: fields containing the separator, a quote or
// surrounding whitespace are quoted.
func FormatLine(fields []string, sep rune) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteRune(sep)
		}
		if needsQuoting(f, sep) {
			b.WriteRune('"')
			b.WriteString(strings.ReplaceAll(f, `"`, `""`))
			b.WriteRune('"')
			continue
		}
		b.WriteString(f)
	}
	return b.String()
}

func needsQuoting(f string, sep rune) bool {
	if f == "" {
		return false
	}
	return strings.ContainsRune(f, sep) ||
		strings.ContainsAny(f, "\",;\r\n") ||
		strings.TrimSpace(f) != f
}

// ParseDelimited reads text into a table: the first non-empty line is the header row.
// Blank lines are ignored; row numbers refer to source lines.
func ParseDelimited(text string) Table {
	text = strings.TrimPrefix(text, "\ufeff")
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var table Table
	headerSeen := false
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := SplitLine(line)
		if !headerSeen {
			for j := range fields {
				fields[j] = strings.TrimSpace(fields[j])
			}
			table.Headers = fields
			headerSeen = true
			continue
		}
		table.Rows = append(table.Rows, Row{Number: i + 1, Cells: fields})
	}
	return table
}
