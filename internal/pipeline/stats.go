package pipeline

import (
	"github.com/benvon/time-import/internal/models"
	"github.com/benvon/time-import/internal/validation"
)

// ComputeStats summarizes candidates. Date range and total minutes only count candidates
// without hard_block.
func ComputeStats(candidates []*models.Candidate, issues []models.Issue) models.Stats {
	stats := models.Stats{
		CandidateCount: len(candidates),
		IssueCount:     len(issues),
	}
	for _, c := range candidates {
		switch {
		case c.Confidence >= models.HighConfidenceThreshold:
			stats.HighConfidenceCount++
		case c.Confidence < models.LowConfidenceThreshold:
			stats.LowConfidenceCount++
		}

		if !c.IsImportable() {
			continue
		}
		if minutes, ok := validation.EffectiveDuration(c); ok {
			stats.TotalMinutesEstimated += minutes
		}
		if c.Date == nil {
			continue
		}
		date := *c.Date
		if stats.DateMin == nil || date < *stats.DateMin {
			stats.DateMin = models.StringPtr(date)
		}
		if stats.DateMax == nil || date > *stats.DateMax {
			stats.DateMax = models.StringPtr(date)
		}
	}
	return stats
}
