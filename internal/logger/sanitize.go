package logger

import (
	"path"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Length caps applied before values reach a log line
const (
	MaxPathLength         = 500
	MaxFilenameLength     = 255
	MaxErrorMessageLength = 1000
	MaxFieldLength        = 2000
)

var whitespaceFlattener = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ")

// SanitizePath prepares a request path for logging
func SanitizePath(urlPath string) string {
	return SanitizeString(urlPath, MaxPathLength)
}

// SanitizeFilename reduces a client-supplied file name to its last element on one line.
// Both slash styles are treated as separators since uploads come from any OS.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if base := path.Base(name); base != "." && base != "/" {
		name = base
	}
	return SanitizeString(whitespaceFlattener.Replace(name), MaxFilenameLength)
}

// SanitizeError renders err for logging; nil renders as ""
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error(), MaxErrorMessageLength)
}

// SanitizeString drops invalid UTF-8 and non-printable runes (whitespace is kept) and cuts
// s to maxLength bytes on a rune boundary, marking the cut with "...".
// A maxLength of zero or less means MaxFieldLength.
func SanitizeString(s string, maxLength int) string {
	if s == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = MaxFieldLength
	}
	return truncate(printable(s), maxLength)
}

func printable(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1
	}, s)
}

func truncate(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	cut := maxLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
