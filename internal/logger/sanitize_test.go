package logger

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hours.csv", "hours.csv"},
		{"unix path", "/home/me/exports/hours.csv", "hours.csv"},
		{"windows path", `C:\Users\me\Stunden.xlsx`, "Stunden.xlsx"},
		{"newline injection", "a.csv\n{\"level\":\"error\"}", "a.csv {\"level\":\"error\"}"},
		{"control characters", "scan\x00\x07.png", "scan.png"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeFilename(tt.in); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeStringTruncatesOnRuneBoundary(t *testing.T) {
	t.Parallel()

	got := SanitizeString(strings.Repeat("ä", 10), 5)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated string is not valid UTF-8: %q", got)
	}
	if got != "ää..." {
		t.Errorf("SanitizeString() = %q, want %q", got, "ää...")
	}
}

func TestSanitizeError(t *testing.T) {
	t.Parallel()

	if SanitizeError(nil) != "" {
		t.Error("nil error should sanitize to empty string")
	}
	long := errors.New(strings.Repeat("x", MaxErrorMessageLength+10))
	if got := SanitizeError(long); len(got) != MaxErrorMessageLength+3 {
		t.Errorf("len(SanitizeError()) = %d, want %d", len(got), MaxErrorMessageLength+3)
	}
}

func TestSanitizeString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"keeps whitespace", "a\tb\nc", 0, "a\tb\nc"},
		{"drops control runes", "a\x1b[31mb", 0, "a[31mb"},
		{"drops invalid utf8", "ok\xff", 0, "ok"},
		{"short enough", "abc", 3, "abc"},
		{"cut", "abcdef", 3, "abc..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeString(tt.in, tt.max); got != tt.want {
				t.Errorf("SanitizeString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}
