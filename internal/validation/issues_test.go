package validation

import (
	"testing"
	"time"

	"github.com/benvon/time-import/internal/models"
	"github.com/google/uuid"
)

func TestBuildIssues(t *testing.T) {
	t.Parallel()

	noDate := candidate("", "", "", models.IntPtr(60))
	overlapA := candidate("2024-01-15", "09:00", "10:30", nil)
	overlapB := candidate("2024-01-15", "10:00", "11:00", nil)
	clean := candidate("2024-01-16", "", "", models.IntPtr(30))

	cands := []*models.Candidate{noDate, overlapA, overlapB, clean}
	NewValidator(nil).ValidateBatch(cands)

	issues := BuildIssues(cands)
	if len(issues) != 2 {
		t.Fatalf("len(issues) = %d, want 2: %+v", len(issues), issues)
	}

	if issues[0].Type != models.IssueMissingDate || issues[0].Severity != models.SeverityError {
		t.Errorf("first issue = %s/%s, want missing_date/error", issues[0].Type, issues[0].Severity)
	}
	if len(issues[0].CandidateIDs) != 1 || issues[0].CandidateIDs[0] != noDate.ID {
		t.Errorf("missing_date ids = %v", issues[0].CandidateIDs)
	}
	if issues[0].Summary != "1 entry without a valid date" {
		t.Errorf("summary = %q", issues[0].Summary)
	}

	if issues[1].Type != models.IssueOverlap || issues[1].Severity != models.SeverityWarning {
		t.Errorf("second issue = %s/%s, want overlap/warning", issues[1].Type, issues[1].Severity)
	}
	if len(issues[1].CandidateIDs) != 2 {
		t.Errorf("overlap ids = %v, want 2", issues[1].CandidateIDs)
	}
}

func TestBuildIssuesEmpty(t *testing.T) {
	t.Parallel()

	issues := BuildIssues(nil)
	if issues == nil || len(issues) != 0 {
		t.Errorf("BuildIssues(nil) = %v, want empty non-nil slice", issues)
	}
}

func TestSeverityFor(t *testing.T) {
	t.Parallel()

	errorsWanted := map[models.IssueType]bool{
		models.IssueMissingDate:     true,
		models.IssueMissingDuration: true,
		models.IssueInvalidTime:     true,
	}
	for _, typ := range []models.IssueType{
		models.IssueMissingDate, models.IssueMissingDuration, models.IssueInvalidTime,
		models.IssueExtremeDuration, models.IssueUnknownCategory, models.IssueOverlap,
		models.IssueDuplicate, models.IssueHandwritten, models.IssueSummaryRow,
	} {
		want := models.SeverityWarning
		if errorsWanted[typ] {
			want = models.SeverityError
		}
		if got := SeverityFor(typ); got != want {
			t.Errorf("SeverityFor(%s) = %s, want %s", typ, got, want)
		}
	}
}

func TestValidateSource(t *testing.T) {
	t.Parallel()

	now := time.Now()
	valid := models.NewSource("hours.csv", []byte("Datum;Dauer\n"), now)
	if err := ValidateSource(valid); err != nil {
		t.Errorf("ValidateSource(valid) error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*models.Source)
	}{
		{name: "unknown type", mutate: func(s *models.Source) { s.Type = "fax" }},
		{name: "missing id", mutate: func(s *models.Source) { s.ID = uuid.Nil }},
		{name: "missing filename", mutate: func(s *models.Source) { s.Filename = "" }},
		{name: "bad encoding", mutate: func(s *models.Source) { s.ContentEncoding = "rot13" }},
		{name: "binary as text", mutate: func(s *models.Source) { s.Type = models.SourceTypeImage }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			src := valid
			tt.mutate(&src)
			if err := ValidateSource(src); err == nil {
				t.Error("expected error")
			}
		})
	}
}
