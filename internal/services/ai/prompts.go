package ai

import (
	"encoding/json"
	"strings"

	"github.com/benvon/time-import/internal/models"
)

const (
	mapColumnsSystemPrompt = `You map spreadsheet columns of a time sheet to fields. ` +
		`Fields: date, startTime, endTime, duration, category, note. ` +
		`Respond with valid JSON only: {"mapping": {"<field>": "<header>"}, "confidence": <0..1>}. ` +
		`Use only headers from the input; omit fields without a matching column.`

	guessCategoriesSystemPrompt = `You assign each work description to one of the user's categories. ` +
		`Respond with valid JSON only: {"guesses": [{"text": "<input text>", "category": "<category or null>", "confidence": <0..1>}]}. ` +
		`Return one guess per input text, in input order. Use null when no category fits.`

	parseFreeformSystemPrompt = `You extract worked time entries from notes. ` +
		`Respond with valid JSON only: {"candidates": [{"date": "YYYY-MM-DD or null", "startTime": "HH:MM or empty", ` +
		`"endTime": "HH:MM or empty", "durationMinutes": <int or null>, "categoryGuess": "<text>", "note": "<text>", "confidence": <0..1>}]}. ` +
		`Never invent dates or times that are not in the text.`

	recognizeTextSystemPrompt = `You transcribe photographed time sheets. Keep one entry per line and keep dates and times exactly as written. ` +
		`Respond with valid JSON only: {"text": "<transcription>", "confidence": <0..1>, "isHandwritten": <true|false>}.`

	maxSampleRows = 5
)

func buildMapColumnsPrompt(req MapColumnsRequest) string {
	samples := req.SampleRows
	if len(samples) > maxSampleRows {
		samples = samples[:maxSampleRows]
	}
	payload := struct {
		Headers    []string   `json:"headers"`
		SampleRows [][]string `json:"sampleRows"`
	}{
		Headers:    req.Headers,
		SampleRows: samples,
	}
	data, _ := json.Marshal(payload)
	return "Map these columns:\n" + string(data)
}

func buildGuessCategoriesPrompt(req GuessCategoriesRequest) string {
	var b strings.Builder
	b.WriteString("Categories:\n")
	for _, c := range req.UserCategories {
		b.WriteString("- ")
		b.WriteString(SanitizePrompt(c, false))
		b.WriteString("\n")
	}
	b.WriteString("\nTexts:\n")
	data, _ := json.Marshal(req.Texts)
	b.Write(data)
	return b.String()
}

func buildParseFreeformPrompt(req ParseFreeformRequest) string {
	var b strings.Builder
	if len(req.Categories) > 0 {
		b.WriteString("Known categories: ")
		b.WriteString(strings.Join(req.Categories, ", "))
		b.WriteString("\n\n")
	}
	b.WriteString("Notes:\n")
	b.WriteString(req.Content)
	return b.String()
}

// sanitizeMapping drops fields and headers the model made up
func sanitizeMapping(mapping models.ColumnMapping, headers []string) models.ColumnMapping {
	known := make(map[string]string, len(headers))
	for _, h := range headers {
		known[strings.ToLower(strings.TrimSpace(h))] = h
	}
	out := models.ColumnMapping{}
	for field, header := range mapping {
		if !models.IsValidField(field) {
			continue
		}
		if original, ok := known[strings.ToLower(strings.TrimSpace(header))]; ok {
			out[field] = original
		}
	}
	return out
}

// restrictGuesses nulls categories outside the user's list, matching case-insensitively
func restrictGuesses(guesses []CategoryGuess, categories []string) []CategoryGuess {
	if len(categories) == 0 {
		return guesses
	}
	known := make(map[string]string, len(categories))
	for _, c := range categories {
		known[strings.ToLower(strings.TrimSpace(c))] = c
	}
	for i := range guesses {
		if guesses[i].Category == nil {
			continue
		}
		if original, ok := known[strings.ToLower(strings.TrimSpace(*guesses[i].Category))]; ok {
			guesses[i].Category = &original
		} else {
			guesses[i].Category = nil
		}
	}
	return guesses
}
