package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestGateErrorError(t *testing.T) {
	tests := []struct {
		name     string
		err      *GateError
		contains []string
	}{
		{
			name:     "without cause",
			err:      New(ToolMissing, "eslint not found", nil, nil),
			contains: []string{"TOOL_MISSING", "eslint not found"},
		},
		{
			name:     "with cause",
			err:      New(RepoStateInvalid, "cannot resolve range", fmt.Errorf("exit status 128"), nil),
			contains: []string{"REPO_STATE_INVALID", "cannot resolve range", "exit status 128"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg := tc.err.Error()
			for _, want := range tc.contains {
				if !strings.Contains(msg, want) {
					t.Errorf("Error() = %q, expected it to contain %q", msg, want)
				}
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("underlying")
	err := New(InternalError, "wrapped", cause, nil)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause through Unwrap")
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorCode
	}{
		{
			name:     "direct GateError",
			err:      New(GateTimeout, "timed out", nil, nil),
			expected: GateTimeout,
		},
		{
			name:     "wrapped GateError",
			err:      fmt.Errorf("gate failed: %w", New(ToolMissing, "missing", nil, nil)),
			expected: ToolMissing,
		},
		{
			name:     "plain error",
			err:      fmt.Errorf("something"),
			expected: InternalError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if code := CodeOf(tc.err); code != tc.expected {
				t.Errorf("CodeOf() = %s, expected %s", code, tc.expected)
			}
		})
	}
}

func TestWithDetails(t *testing.T) {
	err := New(ConfigInvalid, "bad config", nil, nil).WithDetails(map[string]string{"field": "gates"})
	if err.Details == nil {
		t.Error("Details should be set")
	}
}
