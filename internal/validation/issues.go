package validation

import (
	"fmt"

	"github.com/benvon/time-import/internal/models"
	"github.com/google/uuid"
)

var issueTypes = map[models.Flag]models.IssueType{
	models.FlagMissingDate:      models.IssueMissingDate,
	models.FlagMissingDuration:  models.IssueMissingDuration,
	models.FlagInvalidTime:      models.IssueInvalidTime,
	models.FlagExtremeDuration:  models.IssueExtremeDuration,
	models.FlagUnknownCategory:  models.IssueUnknownCategory,
	models.FlagOverlaps:         models.IssueOverlap,
	models.FlagDuplicateSuspect: models.IssueDuplicate,
	models.FlagHandwritten:      models.IssueHandwritten,
	models.FlagSummaryRow:       models.IssueSummaryRow,
}

var issueSummaries = map[models.IssueType]string{
	models.IssueMissingDate:     "%d %s without a valid date",
	models.IssueMissingDuration: "%d %s without a usable duration",
	models.IssueInvalidTime:     "%d %s with an invalid time or implausible duration",
	models.IssueExtremeDuration: "%d %s longer than 12 hours",
	models.IssueUnknownCategory: "%d %s with an unknown category",
	models.IssueOverlap:         "%d %s overlapping another entry on the same day",
	models.IssueDuplicate:       "%d %s that may already exist",
	models.IssueHandwritten:     "%d %s read from handwriting",
	models.IssueSummaryRow:      "%d %s that look like total rows",
}

// SeverityFor maps an issue type to its severity
func SeverityFor(t models.IssueType) models.Severity {
	switch t {
	case models.IssueMissingDate, models.IssueMissingDuration, models.IssueInvalidTime:
		return models.SeverityError
	default:
		return models.SeverityWarning
	}
}

// BuildIssues groups candidate ids per flag, in flag order. hard_block is not an issue of
// its own.
func BuildIssues(candidates []*models.Candidate) []models.Issue {
	issues := make([]models.Issue, 0)
	for _, flag := range models.AllFlags {
		issueType, ok := issueTypes[flag]
		if !ok {
			continue
		}
		var ids []uuid.UUID
		for _, c := range candidates {
			if c.HasFlag(flag) {
				ids = append(ids, c.ID)
			}
		}
		if len(ids) == 0 {
			continue
		}
		issues = append(issues, models.Issue{
			Type:         issueType,
			Severity:     SeverityFor(issueType),
			Summary:      fmt.Sprintf(issueSummaries[issueType], len(ids), entryNoun(len(ids))),
			CandidateIDs: ids,
		})
	}
	return issues
}

func entryNoun(n int) string {
	if n == 1 {
		return "entry"
	}
	return "entries"
}
