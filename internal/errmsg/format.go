// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Library operations
	OpLibraryFetch   Op = "fetch library"
	OpLibraryRebuild Op = "rebuild library index"
	OpAuthorize      Op = "authorize music source"

	// Queue operations
	OpQueueReplace Op = "replace playback queue"
	OpQueueAppend  Op = "append to playback queue"

	// Playback operations
	OpPlaybackStart  Op = "start playback"
	OpPlaybackToggle Op = "toggle playback"
	OpPlaybackSkip   Op = "skip track"
	OpPlaybackSeek   Op = "seek"
	OpRepeatSet      Op = "set repeat mode"

	// State persistence
	OpStateOpen Op = "open state database"
	OpStateLoad Op = "load saved state"
	OpStateSave Op = "save state"

	// Widget export
	OpWidgetWrite Op = "write now-playing widget"

	// Initialization
	OpInitialize Op = "initialize application"
	OpConnect    Op = "connect to music server"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}
