package models

import (
	"github.com/google/uuid"
)

// Confidence thresholds used for statistics
const (
	HighConfidenceThreshold = 0.8
	LowConfidenceThreshold  = 0.5
)

// SourceRef points at the place in a source that produced a candidate
type SourceRef struct {
	SourceID uuid.UUID `json:"source_id" yaml:"source_id"`
	Filename string    `json:"filename" yaml:"filename"`
	Sheet    string    `json:"sheet,omitempty" yaml:"sheet,omitempty"`
	Row      int       `json:"row,omitempty" yaml:"row,omitempty"`
	Line     int       `json:"line,omitempty" yaml:"line,omitempty"`
}

// Candidate is a prospective time entry produced by the pipeline
type Candidate struct {
	ID              uuid.UUID  `json:"id" yaml:"id"`
	Date            *string    `json:"date" yaml:"date"`
	StartTime       string     `json:"start_time,omitempty" yaml:"start_time,omitempty"`
	EndTime         string     `json:"end_time,omitempty" yaml:"end_time,omitempty"`
	DurationMinutes *int       `json:"duration_minutes" yaml:"duration_minutes"`
	CategoryGuess   string     `json:"category_guess,omitempty" yaml:"category_guess,omitempty"`
	CategoryID      *uuid.UUID `json:"category_id,omitempty" yaml:"category_id,omitempty"`
	Note            string     `json:"note,omitempty" yaml:"note,omitempty"`
	SourceRef       SourceRef  `json:"source_ref" yaml:"source_ref"`
	Confidence      float64    `json:"confidence" yaml:"confidence"`
	Flags           FlagSet    `json:"flags" yaml:"flags"`
	Selected        bool       `json:"selected" yaml:"selected"`
	Edited          bool       `json:"edited" yaml:"edited"`
}

// NewCandidate creates a selected candidate with no flags
func NewCandidate(ref SourceRef, confidence float64) *Candidate {
	c := &Candidate{
		ID:        uuid.New(),
		SourceRef: ref,
		Selected:  true,
	}
	c.SetConfidence(confidence)
	return c
}

// SetConfidence stores confidence clamped to [0,1]
func (c *Candidate) SetConfidence(v float64) {
	c.Confidence = ClampConfidence(v)
}

// AddFlag appends a flag. Flags are never removed.
func (c *Candidate) AddFlag(f Flag) {
	c.Flags = c.Flags.With(f)
}

// HasFlag reports whether the candidate carries f
func (c *Candidate) HasFlag(f Flag) bool {
	return c.Flags.Has(f)
}

// IsImportable reports whether nothing blocks the candidate from being committed
func (c *Candidate) IsImportable() bool {
	return !c.Flags.Has(FlagHardBlock)
}

// CountImportable counts selected candidates without a hard block
func CountImportable(candidates []*Candidate) int {
	n := 0
	for _, c := range candidates {
		if c.Selected && c.IsImportable() {
			n++
		}
	}
	return n
}

// ClampConfidence bounds v to [0,1]
func ClampConfidence(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}

// IntPtr returns a pointer to n
func IntPtr(n int) *int {
	return &n
}
