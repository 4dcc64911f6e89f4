package pipeline

import (
	"context"
	"strings"

	"github.com/benvon/time-import/internal/models"
	"github.com/benvon/time-import/internal/parsers"
	"github.com/benvon/time-import/internal/services/ai"
	"go.uber.org/zap"
)

// guessCategories sends one request for every candidate with a note and no category.
// Guesses only lower confidence.
func (r *run) guessCategories(ctx context.Context) {
	if len(r.categories) == 0 {
		return
	}

	var pending []*models.Candidate
	var texts []string
	for _, c := range r.candidates {
		if r.skipEnrichment[c.ID] || c.CategoryGuess != "" || strings.TrimSpace(c.Note) == "" {
			continue
		}
		pending = append(pending, c)
		texts = append(texts, c.Note)
	}
	if len(pending) == 0 {
		return
	}

	resp, err := r.p.collaborator.GuessCategories(ctx, ai.GuessCategoriesRequest{
		Texts:          texts,
		UserCategories: r.categories,
	})
	if err != nil {
		r.p.logCollaboratorFailure("guess_categories", err, zap.Int("texts", len(texts)))
		return
	}
	if resp == nil {
		return
	}

	byText := make(map[string]ai.CategoryGuess, len(resp.Guesses))
	for _, g := range resp.Guesses {
		byText[g.Text] = g
	}
	applied := 0
	for i, c := range pending {
		var guess ai.CategoryGuess
		if len(resp.Guesses) == len(pending) {
			guess = resp.Guesses[i]
		} else if g, ok := byText[c.Note]; ok {
			guess = g
		} else {
			continue
		}
		if guess.Category == nil || strings.TrimSpace(*guess.Category) == "" {
			continue
		}
		c.CategoryGuess = *guess.Category
		c.SetConfidence(min(c.Confidence, models.ClampConfidence(guess.Confidence)))
		applied++
	}
	r.p.logger.Debug("categories_guessed",
		zap.Int("requested", len(pending)),
		zap.Int("applied", applied),
	)
}

// parseFreeform asks the collaborator to read text the heuristics found nothing in
func (r *run) parseFreeform(ctx context.Context, text string, src models.Source) ([]*models.Candidate, bool) {
	resp, err := r.p.collaborator.ParseFreeform(ctx, ai.ParseFreeformRequest{
		Content:    text,
		Categories: r.categories,
	})
	if err != nil {
		r.p.logCollaboratorFailure("parse_freeform", err, zap.String("source_id", src.ID.String()))
		return nil, false
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, false
	}

	ref := sourceRef(src)
	out := make([]*models.Candidate, 0, len(resp.Candidates))
	for _, fc := range resp.Candidates {
		out = append(out, candidateFromFreeform(fc, ref))
	}
	return out, true
}

// candidateFromFreeform normalizes a collaborator candidate the way parsers normalize rows
func candidateFromFreeform(fc ai.FreeformCandidate, ref models.SourceRef) *models.Candidate {
	c := models.NewCandidate(ref, fc.Confidence)
	if fc.Date != nil {
		if date, ok := parsers.ParseDate(*fc.Date); ok {
			c.Date = models.StringPtr(date)
		}
	}
	c.StartTime = clockOrRaw(fc.StartTime)
	c.EndTime = clockOrRaw(fc.EndTime)
	c.CategoryGuess = strings.TrimSpace(fc.CategoryGuess)
	c.Note = strings.TrimSpace(fc.Note)
	if fc.DurationMinutes != nil {
		c.DurationMinutes = models.IntPtr(*fc.DurationMinutes)
	} else if minutes, ok := parsers.MinutesBetween(c.StartTime, c.EndTime); ok {
		c.DurationMinutes = models.IntPtr(minutes)
	}
	return c
}

func clockOrRaw(s string) string {
	s = strings.TrimSpace(s)
	if clock, ok := parsers.ParseClock(s); ok {
		return clock
	}
	return s
}
