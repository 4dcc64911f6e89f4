package duplicates

import (
	"github.com/benvon/time-import/internal/models"
)

// Result counts the candidates flagged by each pass
type Result struct {
	InBatch int
	Stored  int
}

// Detect runs both passes and flags candidates with duplicate_suspect. The flag is soft.
func Detect(candidates []*models.Candidate, stored []models.StoredEntry) Result {
	return Result{
		InBatch: MarkInBatch(candidates),
		Stored:  MarkStored(candidates, stored),
	}
}

// MarkInBatch leaves the first occurrence of each fingerprint unflagged and flags every
// later one. Returns the number of flagged candidates.
func MarkInBatch(candidates []*models.Candidate) int {
	seen := make(map[string]struct{}, len(candidates))
	flagged := 0
	for _, c := range candidates {
		fp := CandidateFingerprint(c)
		if _, dup := seen[fp]; dup {
			c.AddFlag(models.FlagDuplicateSuspect)
			flagged++
			continue
		}
		seen[fp] = struct{}{}
	}
	return flagged
}

// MarkStored flags candidates matching a stored entry. Returns the number of matches.
func MarkStored(candidates []*models.Candidate, stored []models.StoredEntry) int {
	if len(stored) == 0 {
		return 0
	}
	known := make(map[string]struct{}, len(stored))
	for _, e := range stored {
		known[EntryFingerprint(e)] = struct{}{}
	}
	matched := 0
	for _, c := range candidates {
		if _, ok := known[StoredComparableFingerprint(c)]; ok {
			c.AddFlag(models.FlagDuplicateSuspect)
			matched++
		}
	}
	return matched
}
