package parsers

import (
	"strings"

	"github.com/benvon/time-import/internal/models"
)

const (
	// ConfidenceComplete is used for rows with both a date and a duration
	ConfidenceComplete = 0.8
	// ConfidencePartial is used for rows missing a date or a duration
	ConfidencePartial = 0.5
	// ConfidenceKnownSchema is used for rows read through the export fast path
	ConfidenceKnownSchema = 0.95
)

// Row is one data row of a table; Number is its 1-based position in the source
type Row struct {
	Number int
	Cells  []string
}

// Table is a header row plus data rows
type Table struct {
	Sheet   string
	Headers []string
	Rows    []Row
}

// SampleRows returns up to n rows of cells, used when asking for a column mapping
func (t Table) SampleRows(n int) [][]string {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	out := make([][]string, 0, n)
	for _, r := range t.Rows[:n] {
		out = append(out, r.Cells)
	}
	return out
}

// Result is the output of a parser for one source
type Result struct {
	Candidates    []*models.Candidate
	SkippedRows   int
	UnparsedLines []string
}

// ExtractOptions controls row extraction
type ExtractOptions struct {
	Ref models.SourceRef
	// Confidence overrides the date/duration based default when > 0
	Confidence float64
	// DurationInMinutes reads bare duration numbers as minutes (export format)
	DurationInMinutes bool
}

// ExtractRows turns table rows into candidates using mapping. Rows carrying no usable
// value in any mapped column are dropped and counted in Result.SkippedRows.
func ExtractRows(table Table, mapping models.ColumnMapping, opts ExtractOptions) Result {
	var result Result
	index := columnIndex(table.Headers, mapping)

	for _, row := range table.Rows {
		cell := func(f models.Field) string {
			i := index[f]
			if i < 0 || i >= len(row.Cells) {
				return ""
			}
			return strings.TrimSpace(row.Cells[i])
		}

		rawDate := cell(models.FieldDate)
		rawStart := cell(models.FieldStartTime)
		rawEnd := cell(models.FieldEndTime)
		rawDuration := cell(models.FieldDuration)
		category := cell(models.FieldCategory)
		note := cell(models.FieldNote)

		date, hasDate := ParseDate(rawDate)
		if !hasDate && rawStart == "" && rawEnd == "" && rawDuration == "" && category == "" && note == "" {
			result.SkippedRows++
			continue
		}

		ref := opts.Ref
		ref.Sheet = table.Sheet
		ref.Row = row.Number

		c := models.NewCandidate(ref, 0)
		if hasDate {
			c.Date = models.StringPtr(date)
		}
		c.StartTime = normalizeClockOrRaw(rawStart)
		c.EndTime = normalizeClockOrRaw(rawEnd)
		c.CategoryGuess = category
		c.Note = note
		c.DurationMinutes = resolveDuration(rawDuration, c.StartTime, c.EndTime, opts.DurationInMinutes)

		confidence := opts.Confidence
		if confidence <= 0 {
			confidence = ConfidencePartial
			if c.Date != nil && c.DurationMinutes != nil {
				confidence = ConfidenceComplete
			}
		}
		c.SetConfidence(confidence)

		result.Candidates = append(result.Candidates, c)
	}
	return result
}

// resolveDuration prefers an explicit duration and falls back to the start/end difference
func resolveDuration(raw, start, end string, inMinutes bool) *int {
	if raw != "" {
		parse := ParseDuration
		if inMinutes {
			parse = ParseMinutes
		}
		if minutes, ok := parse(raw); ok {
			return models.IntPtr(minutes)
		}
	}
	if minutes, ok := MinutesBetween(start, end); ok {
		return models.IntPtr(minutes)
	}
	return nil
}

// normalizeClockOrRaw keeps unparseable input so validation can flag it
func normalizeClockOrRaw(raw string) string {
	if raw == "" {
		return ""
	}
	if clock, ok := ParseClock(raw); ok {
		return clock
	}
	return raw
}

// ExtractExport reads a table written by the export format. Headers are matched by name
// and duration is in minutes.
func ExtractExport(table Table, ref models.SourceRef) Result {
	return ExtractRows(table, models.ExportMapping(), ExtractOptions{
		Ref:               ref,
		Confidence:        ConfidenceKnownSchema,
		DurationInMinutes: true,
	})
}
