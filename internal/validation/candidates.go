package validation

import (
	"sort"
	"strings"

	"github.com/benvon/time-import/internal/models"
	"github.com/benvon/time-import/internal/parsers"
)

// Duration bounds in minutes
const (
	MinPlausibleMinutes = 1
	MaxPlausibleMinutes = 960
	ExtremeMinutes      = 720
)

var summaryPrefixes = []string{"total", "sum", "summe", "gesamt", "insgesamt"}

// Validator flags candidates. Flags are only ever added.
type Validator struct {
	categories map[string]struct{}
}

// NewValidator creates a validator. knownCategories nil disables the unknown_category check;
// an empty non-nil list flags every category guess.
func NewValidator(knownCategories []string) *Validator {
	v := &Validator{}
	if knownCategories != nil {
		v.categories = make(map[string]struct{}, len(knownCategories))
		for _, name := range knownCategories {
			v.categories[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
		}
	}
	return v
}

// ValidateBatch runs the per-candidate checks and then the overlap pass
func (v *Validator) ValidateBatch(candidates []*models.Candidate) {
	for _, c := range candidates {
		v.ValidateCandidate(c)
	}
	MarkOverlaps(candidates)
}

// ValidateCandidate applies the single-candidate rules to c
func (v *Validator) ValidateCandidate(c *models.Candidate) {
	if c.Date == nil || !parsers.IsValidISODate(*c.Date) {
		block(c, models.FlagMissingDate)
	}

	if (c.StartTime != "" && !isClock(c.StartTime)) || (c.EndTime != "" && !isClock(c.EndTime)) {
		block(c, models.FlagInvalidTime)
	}

	if minutes, ok := EffectiveDuration(c); !ok {
		block(c, models.FlagMissingDuration)
	} else if minutes < MinPlausibleMinutes || minutes > MaxPlausibleMinutes {
		block(c, models.FlagInvalidTime)
	} else if minutes > ExtremeMinutes {
		c.AddFlag(models.FlagExtremeDuration)
	}

	if v.categories != nil && strings.TrimSpace(c.CategoryGuess) != "" {
		if _, ok := v.categories[strings.ToLower(strings.TrimSpace(c.CategoryGuess))]; !ok {
			c.AddFlag(models.FlagUnknownCategory)
		}
	}

	if IsSummaryRow(c) {
		c.AddFlag(models.FlagSummaryRow)
	}
}

// EffectiveDuration is the explicit duration, or the start/end difference when both are valid
func EffectiveDuration(c *models.Candidate) (int, bool) {
	if c.DurationMinutes != nil {
		return *c.DurationMinutes, true
	}
	return parsers.MinutesBetween(c.StartTime, c.EndTime)
}

// IsSummaryRow reports rows that look like a sheet's total line: no start/end and a note or
// category starting with a total keyword
func IsSummaryRow(c *models.Candidate) bool {
	if c.StartTime != "" || c.EndTime != "" {
		return false
	}
	for _, text := range []string{c.Note, c.CategoryGuess} {
		words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return r == ' ' || r == ':' || r == '\t'
		})
		if len(words) == 0 {
			continue
		}
		for _, prefix := range summaryPrefixes {
			if words[0] == prefix {
				return true
			}
		}
	}
	return false
}

type interval struct {
	candidate  *models.Candidate
	start, end int
}

// MarkOverlaps flags every pair of same-date candidates whose ranges intersect
// (start_a < end_b and start_b < end_a). Touching ranges do not overlap. Ranges with
// start < end are swept; ranges that wrap past midnight are checked against the whole date
// with the same comparison. Returns the number of newly flagged candidates.
func MarkOverlaps(candidates []*models.Candidate) int {
	byDate := make(map[string][]interval)
	for _, c := range candidates {
		if c.Date == nil {
			continue
		}
		start, okStart := parsers.ClockMinutes(c.StartTime)
		end, okEnd := parsers.ClockMinutes(c.EndTime)
		if !okStart || !okEnd {
			continue
		}
		byDate[*c.Date] = append(byDate[*c.Date], interval{candidate: c, start: start, end: end})
	}

	flagged := 0
	mark := func(c *models.Candidate) {
		if !c.HasFlag(models.FlagOverlaps) {
			c.AddFlag(models.FlagOverlaps)
			flagged++
		}
	}

	for _, all := range byDate {
		var intervals, wrapping []interval
		for _, iv := range all {
			if iv.start < iv.end {
				intervals = append(intervals, iv)
			} else {
				wrapping = append(wrapping, iv)
			}
		}

		for _, w := range wrapping {
			for _, other := range all {
				if other.candidate == w.candidate {
					continue
				}
				if w.start < other.end && other.start < w.end {
					mark(w.candidate)
					mark(other.candidate)
				}
			}
		}

		sort.SliceStable(intervals, func(i, j int) bool {
			return intervals[i].start < intervals[j].start
		})
		var active []interval
		for _, cur := range intervals {
			kept := active[:0]
			for _, a := range active {
				if a.end > cur.start {
					kept = append(kept, a)
				}
			}
			active = kept
			for _, a := range active {
				mark(a.candidate)
				mark(cur.candidate)
			}
			active = append(active, cur)
		}
	}
	return flagged
}

func block(c *models.Candidate, f models.Flag) {
	c.AddFlag(f)
	c.AddFlag(models.FlagHardBlock)
}

func isClock(s string) bool {
	_, ok := parsers.ClockMinutes(s)
	return ok
}
