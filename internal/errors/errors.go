package errors

import (
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// RepoStateInvalid indicates the diff range or repository state cannot be resolved
	RepoStateInvalid ErrorCode = "REPO_STATE_INVALID"
	// ToolMissing indicates an external tool binary could not be found
	ToolMissing ErrorCode = "TOOL_MISSING"
	// ToolFailed indicates an external tool ran and reported violations
	ToolFailed ErrorCode = "TOOL_FAILED"
	// GateTimeout indicates a gate exceeded its wall-clock budget
	GateTimeout ErrorCode = "GATE_TIMEOUT"
	// ConfigInvalid indicates the configuration file could not be used
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// TrendStoreError indicates the complexity history database failed
	TrendStoreError ErrorCode = "TREND_STORE_ERROR"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
	// InstallTool suggests installing a tool
	InstallTool FixActionType = "install-tool"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
	Tool        string        `json:"tool,omitempty"`
}

// GateError represents a qgate error with code, message, and suggestions
type GateError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new GateError
func New(code ErrorCode, message string, cause error, suggestedFixes []FixAction) *GateError {
	return &GateError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: suggestedFixes,
	}
}

// Error implements the error interface
func (e *GateError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *GateError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *GateError) WithDetails(details interface{}) *GateError {
	e.Details = details
	return e
}

// CodeOf extracts the ErrorCode from an error chain, or InternalError if none.
func CodeOf(err error) ErrorCode {
	for err != nil {
		if ge, ok := err.(*GateError); ok {
			return ge.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return InternalError
}
