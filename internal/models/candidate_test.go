package models

import (
	"math"
	"testing"
)

func TestCountImportable(t *testing.T) {
	t.Parallel()

	selected := NewCandidate(SourceRef{}, 0.9)
	deselected := NewCandidate(SourceRef{}, 0.9)
	deselected.Selected = false
	blocked := NewCandidate(SourceRef{}, 0.9)
	blocked.AddFlag(FlagMissingDate)
	blocked.AddFlag(FlagHardBlock)

	if got := CountImportable([]*Candidate{selected, deselected, blocked}); got != 1 {
		t.Errorf("CountImportable() = %d, want 1", got)
	}
	if blocked.IsImportable() {
		t.Error("hard blocked candidate should not be importable")
	}
}

func TestClampConfidence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{name: "in range", in: 0.42, want: 0.42},
		{name: "negative", in: -1, want: 0},
		{name: "above one", in: 1.7, want: 1},
		{name: "nan", in: math.NaN(), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ClampConfidence(tt.in); got != tt.want {
				t.Errorf("ClampConfidence(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
