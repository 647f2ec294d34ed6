// Package core provides the business logic for turning exported CSV sources
// into relational records.
//
// # Error Codes Reference
//
// This file defines operator-facing error messages with codes. A failed run
// logs both the technical error and the coded message, so an operator can
// look the code up here before reading the full log.
//
// Error codes are grouped by category:
//
// # Configuration Errors (CFG001-CFG099)
//
//	CFG001 - Missing configuration: FTP host, user or password is not set
//	         Action: Set FTP_HOST, FTP_USER and FTP_PASS in the environment or .env
//	         Patterns: "missing required configuration"
//
//	CFG002 - Invalid configuration: A setting has an invalid value
//	         Action: Check the listed variables
//	         Patterns: "config validation", "config load"
//
// # Schema Errors (SCH001-SCH099)
//
//	SCH001 - Column not found: A required column could not be matched
//	         Action: Compare the logged headers with the candidate names
//	         Patterns: "column not found"
//
//	SCH002 - Unknown source: No definition is registered for the source
//	         Patterns: "unknown source"
//
//	SCH003 - Field type mismatch: A definition declares a field with the wrong type
//	         Patterns: "field type mismatch"
//
// # Source Errors (SRC001-SRC099)
//
//	SRC001 - Source unreadable: The compressed source could not be opened
//	         Action: Check that the file exists and is a gzip CSV export
//	         Patterns: "open source"
//
//	SRC002 - Source corrupt: The source stopped parsing partway through
//	         Action: Re-export the source file
//	         Patterns: "read source"
//
// # Transfer Errors (XFR001-XFR099, INT001-INT099)
//
//	INT001 - Size mismatch: The published file differs from the local file
//	         Action: Re-run; the remote copy was removed or flagged stale
//	         Patterns: "size mismatch"
//
//	XFR001 - Transfer failed: A remote operation failed
//	         Action: Check connectivity and credentials, then re-run
//	         Patterns: "transfer failed"
//
// # Store Errors (DB001-DB099)
//
//	DB001 - Store error: The SQLite build failed
//	        Action: Check free disk space in OUTPUT_DIR
//	        Patterns: "store:"
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - Cancelled: The run was interrupted
//	         Patterns: "context canceled"
//
//	RUN002 - Timeout: The run exceeded its deadline
//	         Patterns: "context deadline exceeded"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Check the log for the technical error
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns are
// defined before general ones.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides operator-facing error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Error code for reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so order matters.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Configuration (CFG001-CFG002)
	// =========================================================================
	{
		pattern: "missing required configuration",
		msg: UserMessage{
			Message: "Remote connection settings are missing",
			Action:  "Set FTP_HOST, FTP_USER and FTP_PASS in the environment or .env",
			Code:    "CFG001",
		},
	},
	{
		pattern: "config validation",
		msg: UserMessage{
			Message: "Configuration is invalid",
			Action:  "Check the variables listed in the log",
			Code:    "CFG002",
		},
	},
	{
		pattern: "config load",
		msg: UserMessage{
			Message: "Configuration is invalid",
			Action:  "Check the variables listed in the log",
			Code:    "CFG002",
		},
	},
	// =========================================================================
	// Schema (SCH001-SCH003)
	// =========================================================================
	{
		pattern: "column not found",
		msg: UserMessage{
			Message: "A required column could not be found in the source",
			Action:  "Compare the logged headers with the expected column names",
			Code:    "SCH001",
		},
	},
	{
		pattern: "unknown source",
		msg: UserMessage{
			Message: "Source type is not configured",
			Action:  "This source type is not registered",
			Code:    "SCH002",
		},
	},
	{
		pattern: "field type mismatch",
		msg: UserMessage{
			Message: "Source definition does not match the output layout",
			Action:  "Fix the field types in the source definition",
			Code:    "SCH003",
		},
	},
	// =========================================================================
	// Transfer (INT001, XFR001)
	// INT001 comes first: a size mismatch is reported during a publish.
	// =========================================================================
	{
		pattern: "size mismatch",
		msg: UserMessage{
			Message: "Published file size does not match the local file",
			Action:  "Re-run the export; the remote copy was removed or flagged stale",
			Code:    "INT001",
		},
	},
	{
		pattern: "transfer failed",
		msg: UserMessage{
			Message: "A remote transfer failed",
			Action:  "Check connectivity and credentials, then re-run",
			Code:    "XFR001",
		},
	},
	// =========================================================================
	// Source (SRC001-SRC002)
	// =========================================================================
	{
		pattern: "open source",
		msg: UserMessage{
			Message: "Source file could not be opened",
			Action:  "Check that the file exists and is a gzip-compressed CSV export",
			Code:    "SRC001",
		},
	},
	{
		pattern: "read source",
		msg: UserMessage{
			Message: "Source file is corrupt",
			Action:  "Re-export the source file",
			Code:    "SRC002",
		},
	},
	// =========================================================================
	// Store (DB001)
	// =========================================================================
	{
		pattern: "store:",
		msg: UserMessage{
			Message: "Building the database failed",
			Action:  "Check free disk space in the output directory",
			Code:    "DB001",
		},
	},
	// =========================================================================
	// Run (RUN001-RUN002)
	// =========================================================================
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The run was cancelled",
			Action:  "Start a new run when ready",
			Code:    "RUN001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The run timed out",
			Action:  "Try again later",
			Code:    "RUN002",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the log for the technical error",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-facing message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
//
// Example:
//
//	err := errors.New("source inventory: field CodigoBarra: column not found: ...")
//	msg := MapError(err)
//	// msg.Code == "SCH001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its mapped message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // Message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
