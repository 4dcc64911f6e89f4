package parsers

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/benvon/time-import/internal/models"
	"gopkg.in/yaml.v3"
)

// Keywords lists, per field, the header words that identify the field's column
type Keywords map[models.Field][]string

// DefaultKeywords covers German and English header conventions
func DefaultKeywords() Keywords {
	return Keywords{
		models.FieldDate:      {"datum", "date", "tag", "day"},
		models.FieldStartTime: {"start", "beginn", "begin", "von", "from", "anfang"},
		models.FieldEndTime:   {"ende", "end", "bis", "to", "until", "stop"},
		models.FieldDuration:  {"dauer", "duration", "stunden", "hours", "std", "zeit", "time", "minuten", "minutes"},
		models.FieldCategory:  {"kategorie", "category", "projekt", "project", "tätigkeit", "taetigkeit", "activity", "task"},
		models.FieldNote:      {"notiz", "note", "notes", "beschreibung", "description", "kommentar", "comment", "bemerkung"},
	}
}

// LoadKeywords reads keyword overrides from YAML. Fields missing from the document keep
// their defaults.
//
//	date: [datum, date]
//	note: [text]
func LoadKeywords(data []byte) (Keywords, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse keyword file: %w", err)
	}
	keywords := DefaultKeywords()
	for name, words := range raw {
		field := models.Field(name)
		if !models.IsValidField(field) {
			return nil, fmt.Errorf("unknown field in keyword file: %s", name)
		}
		normalized := make([]string, 0, len(words))
		for _, w := range words {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				normalized = append(normalized, w)
			}
		}
		keywords[field] = normalized
	}
	return keywords, nil
}

// AutoMap matches headers against keywords. Fields are visited in models.FieldPriority
// order; each field claims the first unclaimed header containing one of its keywords as
// a word, and each header is claimed at most once. The bool reports whether any field
// matched.
func AutoMap(headers []string, keywords Keywords) (models.ColumnMapping, bool) {
	if keywords == nil {
		keywords = DefaultKeywords()
	}
	mapping := models.ColumnMapping{}
	claimed := make([]bool, len(headers))
	words := make([][]string, len(headers))
	for i, h := range headers {
		words[i] = headerWords(h)
	}

	for _, field := range models.FieldPriority {
		for i, h := range headers {
			if claimed[i] || strings.TrimSpace(h) == "" {
				continue
			}
			if containsKeyword(words[i], keywords[field]) {
				mapping[field] = h
				claimed[i] = true
				break
			}
		}
	}
	return mapping, len(mapping) > 0
}

func headerWords(header string) []string {
	return strings.FieldsFunc(strings.ToLower(header), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func containsKeyword(words []string, keywords []string) bool {
	for _, w := range words {
		for _, k := range keywords {
			if w == k {
				return true
			}
		}
	}
	return false
}

// columnIndex resolves a mapping to column positions; unmapped or unknown headers get -1
func columnIndex(headers []string, mapping models.ColumnMapping) map[models.Field]int {
	positions := make(map[string]int, len(headers))
	for i, h := range headers {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, exists := positions[key]; !exists {
			positions[key] = i
		}
	}
	index := make(map[models.Field]int, len(models.FieldPriority))
	for _, field := range models.FieldPriority {
		index[field] = -1
		header, ok := mapping[field]
		if !ok || header == "" {
			continue
		}
		if pos, ok := positions[strings.ToLower(strings.TrimSpace(header))]; ok {
			index[field] = pos
		}
	}
	return index
}
