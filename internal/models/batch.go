package models

import (
	"time"

	"github.com/google/uuid"
)

// BatchStatus is the review state of a batch
type BatchStatus string

const (
	BatchStatusDraft     BatchStatus = "draft"
	BatchStatusReviewed  BatchStatus = "reviewed"
	BatchStatusCommitted BatchStatus = "committed"
)

// Severity of an issue
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// IssueType mirrors the candidate flag a batch issue aggregates
type IssueType string

const (
	IssueMissingDate     IssueType = "missing_date"
	IssueMissingDuration IssueType = "missing_duration"
	IssueInvalidTime     IssueType = "invalid_time"
	IssueExtremeDuration IssueType = "extreme_duration"
	IssueUnknownCategory IssueType = "unknown_category"
	IssueOverlap         IssueType = "overlap"
	IssueDuplicate       IssueType = "duplicate"
	IssueHandwritten     IssueType = "handwritten"
	IssueSummaryRow      IssueType = "summary_row"
)

// Issue aggregates the candidates sharing one problem
type Issue struct {
	Type         IssueType   `json:"type" yaml:"type"`
	Severity     Severity    `json:"severity" yaml:"severity"`
	Summary      string      `json:"summary" yaml:"summary"`
	CandidateIDs []uuid.UUID `json:"candidate_ids" yaml:"candidate_ids"`
}

// Stats summarizes a batch
type Stats struct {
	CandidateCount        int     `json:"candidate_count" yaml:"candidate_count"`
	DateMin               *string `json:"date_min" yaml:"date_min"`
	DateMax               *string `json:"date_max" yaml:"date_max"`
	TotalMinutesEstimated int     `json:"total_minutes_estimated" yaml:"total_minutes_estimated"`
	IssueCount            int     `json:"issue_count" yaml:"issue_count"`
	HighConfidenceCount   int     `json:"high_confidence_count" yaml:"high_confidence_count"`
	LowConfidenceCount    int     `json:"low_confidence_count" yaml:"low_confidence_count"`
}

// MappingOrigin records where a column mapping came from
type MappingOrigin string

const (
	MappingOriginKnownSchema  MappingOrigin = "known_schema"
	MappingOriginCaller       MappingOrigin = "caller"
	MappingOriginAuto         MappingOrigin = "auto"
	MappingOriginCollaborator MappingOrigin = "collaborator"
	MappingOriginNone         MappingOrigin = "none"
)

// SourceReport holds per-source diagnostics for a run
type SourceReport struct {
	SourceID       uuid.UUID     `json:"source_id" yaml:"source_id"`
	Filename       string        `json:"filename" yaml:"filename"`
	Type           SourceType    `json:"type" yaml:"type"`
	CandidateCount int           `json:"candidate_count" yaml:"candidate_count"`
	SkippedRows    int           `json:"skipped_rows" yaml:"skipped_rows"`
	UnparsedLines  []string      `json:"unparsed_lines,omitempty" yaml:"unparsed_lines,omitempty"`
	Mapping        ColumnMapping `json:"mapping,omitempty" yaml:"mapping,omitempty"`
	MappingOrigin  MappingOrigin `json:"mapping_origin,omitempty" yaml:"mapping_origin,omitempty"`
	Error          string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Batch is the full result of one pipeline run
type Batch struct {
	ID            uuid.UUID      `json:"id" yaml:"id"`
	CreatedAt     time.Time      `json:"created_at" yaml:"created_at"`
	UserID        uuid.UUID      `json:"user_id" yaml:"user_id"`
	Sources       []Source       `json:"sources" yaml:"sources"`
	Candidates    []*Candidate   `json:"candidates" yaml:"candidates"`
	Issues        []Issue        `json:"issues" yaml:"issues"`
	Stats         Stats          `json:"stats" yaml:"stats"`
	Status        BatchStatus    `json:"status" yaml:"status"`
	SourceReports []SourceReport `json:"source_reports" yaml:"source_reports"`
}

// WithoutSourceContent returns a shallow copy of the batch whose sources keep their
// metadata and hash but not their content
func (b *Batch) WithoutSourceContent() *Batch {
	stripped := *b
	stripped.Sources = make([]Source, len(b.Sources))
	for i, src := range b.Sources {
		src.Content = ""
		stripped.Sources[i] = src
	}
	return &stripped
}

// StoredEntry is an already persisted time entry, as returned by the storage collaborator
type StoredEntry struct {
	Date        string     `json:"date" yaml:"date"`
	StartTime   string     `json:"start_time" yaml:"start_time"`
	EndTime     string     `json:"end_time" yaml:"end_time"`
	Description string     `json:"description" yaml:"description"`
	CategoryID  *uuid.UUID `json:"category_id,omitempty" yaml:"category_id,omitempty"`
}

// Stage of a pipeline run
type Stage string

const (
	StageParsing            Stage = "parsing"
	StageValidating         Stage = "validating"
	StageCheckingDuplicates Stage = "checking_duplicates"
	StageDone               Stage = "done"
)

// Progress is reported at each stage of a run
type Progress struct {
	Stage    Stage  `json:"stage"`
	Current  int    `json:"current"`
	Total    int    `json:"total"`
	Filename string `json:"filename,omitempty"`
}

// ImportState tracks an import request from submission to a stored draft batch
type ImportState string

const (
	ImportStateQueued     ImportState = "queued"
	ImportStateProcessing ImportState = "processing"
	ImportStateReady      ImportState = "ready"
	ImportStateFailed     ImportState = "failed"
)

// ImportRecord is a persisted import request. Batch is set once State is ready.
type ImportRecord struct {
	ID        uuid.UUID   `json:"id" yaml:"id"`
	UserID    uuid.UUID   `json:"user_id" yaml:"user_id"`
	State     ImportState `json:"state" yaml:"state"`
	Error     string      `json:"error,omitempty" yaml:"error,omitempty"`
	Batch     *Batch      `json:"batch,omitempty" yaml:"batch,omitempty"`
	CreatedAt time.Time   `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" yaml:"updated_at"`
}
