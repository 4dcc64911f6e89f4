package parsers

import (
	"reflect"
	"testing"
)

func TestDetectSeparator(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
		want rune
	}{
		{name: "commas", line: "a,b,c", want: ','},
		{name: "semicolons", line: "a;b;c", want: ';'},
		{name: "tie goes to comma", line: "a;b,c", want: ','},
		{name: "quoted commas ignored", line: `"1,5";"2,5";x`, want: ';'},
		{name: "no separator", line: "single", want: ','},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := DetectSeparator(tt.line); got != tt.want {
				t.Errorf("DetectSeparator(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestSplitLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
		want []string
	}{
		{name: "plain", line: "a,b,c", want: []string{"a", "b", "c"}},
		{name: "semicolon", line: "15.01.2024;09:00;Meeting", want: []string{"15.01.2024", "09:00", "Meeting"}},
		{name: "quoted separator", line: `"Review, final",2h`, want: []string{"Review, final", "2h"}},
		{name: "escaped quote", line: `"say ""hi""",x`, want: []string{`say "hi"`, "x"}},
		{name: "empty fields", line: "a,,c,", want: []string{"a", "", "c", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SplitLine(tt.line); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitLine(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestFormatLineRoundTrip(t *testing.T) {
	t.Parallel()

	rows := [][]string{
		{"2024-01-15", "09:00", "Meeting"},
		{"a,b", `quote "here"`, " padded "},
		{"x;y", "", "plain"},
		{"only"},
	}

	for _, sep := range []rune{',', ';'} {
		for _, fields := range rows {
			line := FormatLine(fields, sep)
			if got := SplitLine(line); !reflect.DeepEqual(got, fields) {
				t.Errorf("round trip with %q: FormatLine(%q) = %q, SplitLine gave %q", sep, fields, line, got)
			}
		}
	}
}

func TestParseDelimited(t *testing.T) {
	t.Parallel()

	text := "\ufeffDatum;Dauer;Notiz\r\n\r\n15.01.2024;2h;Planning\r\n16.01.2024;1,5;Review\r\n"
	table := ParseDelimited(text)

	wantHeaders := []string{"Datum", "Dauer", "Notiz"}
	if !reflect.DeepEqual(table.Headers, wantHeaders) {
		t.Fatalf("Headers = %q, want %q", table.Headers, wantHeaders)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2", len(table.Rows))
	}
	if table.Rows[0].Number != 3 {
		t.Errorf("first row Number = %d, want 3", table.Rows[0].Number)
	}
	if table.Rows[1].Cells[1] != "1,5" {
		t.Errorf("decimal comma cell = %q, want 1,5", table.Rows[1].Cells[1])
	}
}
