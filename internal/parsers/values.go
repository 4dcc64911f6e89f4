package parsers

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

var (
	isoDatePattern      = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})(?:[T ].*)?$`)
	regionalDatePattern = regexp.MustCompile(`^(\d{1,2})[./-](\d{1,2})[./-](\d{4})$`)
	clockPattern        = regexp.MustCompile(`^(\d{1,2})[:.](\d{2})(?::(\d{2}))?$`)
	hoursPattern        = regexp.MustCompile(`(?i)^(\d+(?:[.,]\d+)?)\s*(?:h|hrs?|hours?|std\.?|stunden?)$`)
	minutesPattern      = regexp.MustCompile(`(?i)^(\d+)\s*(?:m|min\.?|mins|minutes?|minuten)$`)
	colonPattern        = regexp.MustCompile(`^(\d{1,3}):(\d{2})$`)
	numberPattern       = regexp.MustCompile(`^\d+(?:[.,]\d+)?$`)
)

// ParseDate accepts ISO (YYYY-MM-DD) and DD.MM.YYYY, DD/MM/YYYY, DD-MM-YYYY and returns an ISO date
func ParseDate(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	var year, month, day int
	if m := isoDatePattern.FindStringSubmatch(s); m != nil {
		year, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		day, _ = strconv.Atoi(m[3])
	} else if m := regionalDatePattern.FindStringSubmatch(s); m != nil {
		day, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		year, _ = strconv.Atoi(m[3])
	} else {
		return "", false
	}

	return normalizeDate(year, month, day)
}

// IsValidISODate reports whether s is a real calendar date in YYYY-MM-DD form
func IsValidISODate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func normalizeDate(year, month, day int) (string, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow such as 31.02.; reject those
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

// ParseClock accepts H:MM or HH:MM with optional seconds and returns zero-padded HH:MM
func ParseClock(raw string) (string, bool) {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", false
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return "", false
	}
	if m[3] != "" {
		if sec, _ := strconv.Atoi(m[3]); sec > 59 {
			return "", false
		}
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), true
}

// ClockMinutes converts a strict HH:MM value in [00:00,23:59] to minutes since midnight
func ClockMinutes(hhmm string) (int, bool) {
	if len(hhmm) != 5 || hhmm[2] != ':' {
		return 0, false
	}
	hour, err := strconv.Atoi(hhmm[:2])
	if err != nil {
		return 0, false
	}
	minute, err := strconv.Atoi(hhmm[3:])
	if err != nil {
		return 0, false
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}

// MinutesBetween returns end-start in minutes, wrapping past midnight when negative
func MinutesBetween(start, end string) (int, bool) {
	s, ok := ClockMinutes(start)
	if !ok {
		return 0, false
	}
	e, ok := ClockMinutes(end)
	if !ok {
		return 0, false
	}
	diff := e - s
	if diff < 0 {
		diff += minutesPerDay
	}
	return diff, true
}

// ParseDuration reads "2.5h", "2,5 Std", "45m", "1:30" or a bare number. Bare numbers up
// to 24 are hours, larger ones are already minutes.
func ParseDuration(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	if m := hoursPattern.FindStringSubmatch(s); m != nil {
		hours, ok := parseDecimal(m[1])
		if !ok {
			return 0, false
		}
		return roundMinutes(hours * 60), true
	}
	if m := minutesPattern.FindStringSubmatch(s); m != nil {
		minutes, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		return minutes, true
	}
	if m := colonPattern.FindStringSubmatch(s); m != nil {
		hours, _ := strconv.Atoi(m[1])
		minutes, _ := strconv.Atoi(m[2])
		if minutes > 59 {
			return 0, false
		}
		return hours*60 + minutes, true
	}
	if numberPattern.MatchString(s) {
		value, ok := parseDecimal(s)
		if !ok {
			return 0, false
		}
		if value <= 24 {
			return roundMinutes(value * 60), true
		}
		return roundMinutes(value), true
	}
	return 0, false
}

// ParseMinutes reads a plain minute count, as written by the export format
func ParseMinutes(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if !numberPattern.MatchString(s) {
		return ParseDuration(s)
	}
	value, ok := parseDecimal(s)
	if !ok {
		return 0, false
	}
	return roundMinutes(value), true
}

func parseDecimal(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func roundMinutes(v float64) int {
	return int(math.Round(v))
}
