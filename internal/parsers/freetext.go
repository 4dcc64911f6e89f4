package parsers

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/benvon/time-import/internal/models"
)

const (
	// ConfidenceCarriedDate is used for free-text lines under an active date
	ConfidenceCarriedDate = 0.6
	// ConfidenceNoDate is used for free-text lines without any date
	ConfidenceNoDate = 0.4
	// minUnparsedLength is the length above which a signal-less line is reported
	minUnparsedLength = 10
)

var (
	lineTimeRange = regexp.MustCompile(`(\d{1,2}[:.]\d{2})\s*(?:-|–|—|bis|to)\s*(\d{1,2}[:.]\d{2})`)
	lineHours     = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:h|hrs?|hours?|std\.?|stunden?)\b`)
	lineMinutes   = regexp.MustCompile(`(?i)(\d+)\s*(?:min|mins|minutes?|minuten)\b`)
	lineDate      = regexp.MustCompile(`\b(\d{4}-\d{1,2}-\d{1,2}|\d{1,2}[./-]\d{1,2}[./-]\d{4})\b`)
	noteTrim      = " \t-–—:,;|•*"
)

// ParseFreeText extracts candidates from notes, one line at a time. A date found on a
// line becomes the carried-forward date for that line and all following lines until
// another date appears.
func ParseFreeText(text string, ref models.SourceRef) Result {
	var result Result
	var carried string

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		rest := line
		if m := lineDate.FindStringSubmatchIndex(rest); m != nil {
			if date, ok := ParseDate(rest[m[2]:m[3]]); ok {
				carried = date
				rest = rest[:m[0]] + rest[m[1]:]
			}
		}

		c, ok := parseSignalLine(rest)
		if !ok {
			if lineDate.MatchString(line) {
				continue
			}
			if len([]rune(line)) > minUnparsedLength {
				result.UnparsedLines = append(result.UnparsedLines, line)
			}
			continue
		}

		lineRef := ref
		lineRef.Line = i + 1
		c.SourceRef = lineRef
		if carried != "" {
			c.Date = models.StringPtr(carried)
			c.SetConfidence(ConfidenceCarriedDate)
		} else {
			c.SetConfidence(ConfidenceNoDate)
		}
		result.Candidates = append(result.Candidates, c)
	}
	return result
}

// parseSignalLine looks for a time range, decimal hours and minutes independently. An
// explicit duration wins over the range difference. Range ends that are not valid clock
// times are kept raw for validation.
func parseSignalLine(line string) (*models.Candidate, bool) {
	var start, end string
	var explicit *int
	rest := line

	if m := lineTimeRange.FindStringSubmatchIndex(rest); m != nil {
		start = normalizeClockOrRaw(rest[m[2]:m[3]])
		end = normalizeClockOrRaw(rest[m[4]:m[5]])
		rest = rest[:m[0]] + " " + rest[m[1]:]
	}
	if m := lineHours.FindStringSubmatchIndex(rest); m != nil {
		if hours, ok := parseDecimal(rest[m[2]:m[3]]); ok {
			explicit = models.IntPtr(roundMinutes(hours * 60))
			rest = rest[:m[0]] + " " + rest[m[1]:]
		}
	} else if m := lineMinutes.FindStringSubmatchIndex(rest); m != nil {
		if minutes, err := strconv.Atoi(rest[m[2]:m[3]]); err == nil {
			explicit = models.IntPtr(minutes)
			rest = rest[:m[0]] + " " + rest[m[1]:]
		}
	}

	if start == "" && explicit == nil {
		return nil, false
	}

	c := models.NewCandidate(models.SourceRef{}, 0)
	c.StartTime = start
	c.EndTime = end
	c.DurationMinutes = explicit
	if explicit == nil {
		if minutes, ok := MinutesBetween(start, end); ok {
			c.DurationMinutes = models.IntPtr(minutes)
		}
	}
	c.Note = strings.Join(strings.Fields(strings.Trim(rest, noteTrim)), " ")
	return c, true
}
