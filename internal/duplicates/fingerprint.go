// Package duplicates flags candidates that repeat each other or an already stored entry.
package duplicates

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/benvon/time-import/internal/models"
	"github.com/google/uuid"
)

// Fingerprint hashes, in this order and joined by "|":
//
//	date | start time | end time | duration minutes | note | category id
//
// The note is lower-cased with whitespace runs collapsed to one space. Absent values are
// empty strings. The result is the lower-case hex SHA-256 digest.
func Fingerprint(date, start, end string, durationMinutes *int, note string, categoryID *uuid.UUID) string {
	duration := ""
	if durationMinutes != nil {
		duration = strconv.Itoa(*durationMinutes)
	}
	category := ""
	if categoryID != nil {
		category = categoryID.String()
	}
	joined := strings.Join([]string{
		date,
		start,
		end,
		duration,
		NormalizeNote(note),
		category,
	}, "|")
	sum := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(sum[:])
}

// NormalizeNote lower-cases and collapses whitespace
func NormalizeNote(note string) string {
	return strings.Join(strings.Fields(strings.ToLower(note)), " ")
}

// CandidateFingerprint is the in-batch fingerprint of c
func CandidateFingerprint(c *models.Candidate) string {
	return Fingerprint(deref(c.Date), c.StartTime, c.EndTime, c.DurationMinutes, c.Note, c.CategoryID)
}

// StoredComparableFingerprint fingerprints c the way stored entries are fingerprinted: stored
// entries carry start/end only, so the duration component is empty on both sides.
func StoredComparableFingerprint(c *models.Candidate) string {
	return Fingerprint(deref(c.Date), c.StartTime, c.EndTime, nil, c.Note, c.CategoryID)
}

// EntryFingerprint fingerprints a stored entry
func EntryFingerprint(e models.StoredEntry) string {
	return Fingerprint(e.Date, e.StartTime, e.EndTime, nil, e.Description, e.CategoryID)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
