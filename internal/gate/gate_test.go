package gate

import (
	"testing"

	"qgate/internal/fileset"
)

func TestResultConstructors(t *testing.T) {
	tests := []struct {
		name    string
		result  Result
		status  Status
		message string
	}{
		{"pass", Pass(), StatusPass, ""},
		{"warn", Warn("found console.log"), StatusWarn, "found console.log"},
		{"fail", Fail("lint errors"), StatusFail, "lint errors"},
		{"skip", Skip("no matching files"), StatusSkip, "no matching files"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.result.Status != tc.status {
				t.Errorf("Status = %s, expected %s", tc.result.Status, tc.status)
			}
			if tc.result.Message != tc.message {
				t.Errorf("Message = %q, expected %q", tc.result.Message, tc.message)
			}
		})
	}
}

func TestFilePatternApplicability(t *testing.T) {
	tests := []struct {
		name       string
		files      []string
		patterns   []string
		applies    bool
		skipReason string
	}{
		{
			name:       "empty fileset never applies",
			files:      nil,
			patterns:   []string{"*.ts"},
			applies:    false,
			skipReason: "no files selected",
		},
		{
			name:     "no patterns applies when files exist",
			files:    []string{"main.go"},
			patterns: nil,
			applies:  true,
		},
		{
			name:       "pattern with no match",
			files:      []string{"main.go"},
			patterns:   []string{"*.ts"},
			applies:    false,
			skipReason: "no matching files",
		},
		{
			name:     "pattern with match",
			files:    []string{"src/a.ts", "main.go"},
			patterns: []string{"*.ts"},
			applies:  true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gc := &Context{Files: fileset.New(tc.files)}
			applies, reason := FilePatternApplicability(tc.patterns)(gc)
			if applies != tc.applies {
				t.Errorf("applies = %v, expected %v", applies, tc.applies)
			}
			if !applies && reason != tc.skipReason {
				t.Errorf("reason = %q, expected %q", reason, tc.skipReason)
			}
		})
	}
}
