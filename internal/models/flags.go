package models

import (
	"encoding/json"
	"fmt"
)

// Flag is a quality marker attached to a candidate
type Flag string

const (
	FlagMissingDate      Flag = "missing_date"
	FlagMissingDuration  Flag = "missing_duration"
	FlagInvalidTime      Flag = "invalid_time"
	FlagExtremeDuration  Flag = "extreme_duration"
	FlagUnknownCategory  Flag = "unknown_category"
	FlagOverlaps         Flag = "overlaps"
	FlagDuplicateSuspect Flag = "duplicate_suspect"
	FlagHandwritten      Flag = "handwritten"
	FlagSummaryRow       Flag = "summary_row"
	// FlagHardBlock is derived: it accompanies missing_date, missing_duration and invalid_time.
	FlagHardBlock Flag = "hard_block"
)

// AllFlags is the flag enumeration in its canonical order
var AllFlags = []Flag{
	FlagMissingDate,
	FlagMissingDuration,
	FlagInvalidTime,
	FlagExtremeDuration,
	FlagUnknownCategory,
	FlagOverlaps,
	FlagDuplicateSuspect,
	FlagHandwritten,
	FlagSummaryRow,
	FlagHardBlock,
}

func flagBit(f Flag) (FlagSet, bool) {
	for i, known := range AllFlags {
		if known == f {
			return FlagSet(1) << uint(i), true
		}
	}
	return 0, false
}

// FlagSet is a set of flags. Iteration and encoding follow AllFlags order.
type FlagSet uint16

// NewFlagSet builds a set from flags; unknown flags are ignored
func NewFlagSet(flags ...Flag) FlagSet {
	var s FlagSet
	for _, f := range flags {
		s = s.With(f)
	}
	return s
}

// With returns the set with f added
func (s FlagSet) With(f Flag) FlagSet {
	bit, ok := flagBit(f)
	if !ok {
		return s
	}
	return s | bit
}

// Has reports whether f is in the set
func (s FlagSet) Has(f Flag) bool {
	bit, ok := flagBit(f)
	return ok && s&bit != 0
}

// Len returns the number of flags in the set
func (s FlagSet) Len() int {
	n := 0
	for v := s; v != 0; v &= v - 1 {
		n++
	}
	return n
}

// IsEmpty reports whether no flag is set
func (s FlagSet) IsEmpty() bool {
	return s == 0
}

// Flags returns the flags in canonical order
func (s FlagSet) Flags() []Flag {
	out := make([]Flag, 0, s.Len())
	for i, f := range AllFlags {
		if s&(FlagSet(1)<<uint(i)) != 0 {
			out = append(out, f)
		}
	}
	return out
}

// MarshalJSON encodes the set as an ordered array of flag names
func (s FlagSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Flags())
}

// UnmarshalJSON decodes an array of flag names
func (s *FlagSet) UnmarshalJSON(data []byte) error {
	var names []Flag
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	var out FlagSet
	for _, name := range names {
		bit, ok := flagBit(name)
		if !ok {
			return fmt.Errorf("unknown flag: %s", name)
		}
		out |= bit
	}
	*s = out
	return nil
}

// MarshalYAML encodes the set as a list of flag names
func (s FlagSet) MarshalYAML() (any, error) {
	names := make([]string, 0, s.Len())
	for _, f := range s.Flags() {
		names = append(names, string(f))
	}
	return names, nil
}
