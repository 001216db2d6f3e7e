package internal

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/types"
)

// Exit code constants for the CLI
const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitError indicates a general error
	ExitError = 1
	// ExitNoPlan indicates goals were abandoned or no plan could be found
	ExitNoPlan = 2
	// ExitTimeout indicates the operation timed out
	ExitTimeout = 3
	// ExitCancelled indicates the operation was cancelled
	ExitCancelled = 4
	// ExitConfigError indicates a configuration error
	ExitConfigError = 10
	// ExitModelError indicates an invalid action set or goal
	ExitModelError = 11
)

// CLIError represents a CLI-specific error with an exit code
type CLIError struct {
	Code    int
	Message string
	Cause   error
}

// Error implements the error interface
func (e *CLIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *CLIError) Unwrap() error {
	return e.Cause
}

// WrapError creates a new CLIError wrapping an existing error
func WrapError(code int, message string, err error) *CLIError {
	return &CLIError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// NewCLIError creates a new CLIError with the given code and message
func NewCLIError(code int, message string) *CLIError {
	return &CLIError{
		Code:    code,
		Message: message,
	}
}

// HandleError handles an error and returns the appropriate exit code.
// It also prints the error message to the command's error output.
func HandleError(cmd *cobra.Command, err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Check for context cancellation
	if errors.Is(err, context.Canceled) {
		cmd.PrintErrln("Operation cancelled")
		return ExitCancelled
	}

	// Check for context deadline exceeded
	if errors.Is(err, context.DeadlineExceeded) {
		cmd.PrintErrln("Operation timed out")
		return ExitTimeout
	}

	// Check for CLIError
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		cmd.PrintErrln("Error:", cliErr.Message)
		if cliErr.Cause != nil {
			verboseFlag := cmd.Flag("verbose")
			if verboseFlag != nil && verboseFlag.Changed {
				cmd.PrintErrln("Cause:", cliErr.Cause)
			}
		}
		return cliErr.Code
	}

	// Check for AgentError from the core packages
	var agentErr *types.AgentError
	if errors.As(err, &agentErr) {
		exitCode := mapAgentErrorToExitCode(agentErr)
		cmd.PrintErrln("Error:", agentErr.Error())

		// Print diagnostic context in verbose mode
		verboseFlag := cmd.Flag("verbose")
		if verboseFlag != nil && verboseFlag.Changed && len(agentErr.Context) > 0 {
			cmd.PrintErrln("Context:")
			for k, v := range agentErr.Context {
				cmd.PrintErrf("  %s: %v\n", k, v)
			}
		}

		return exitCode
	}

	// Generic error
	cmd.PrintErrln("Error:", err)
	return ExitError
}

// mapAgentErrorToExitCode maps AgentError codes to CLI exit codes
func mapAgentErrorToExitCode(err *types.AgentError) int {
	switch err.Code {
	case types.CONFIG_LOAD_FAILED,
		types.CONFIG_PARSE_FAILED,
		types.CONFIG_VALIDATION_FAILED,
		types.CONFIG_NOT_FOUND:
		return ExitConfigError
	case types.MODEL_INVALID,
		types.MALFORMED_GOAL:
		return ExitModelError
	case types.PLAN_NOT_FOUND,
		types.REPAIR_EXHAUSTED,
		types.CIRCUIT_BREAKER_TRIPPED:
		return ExitNoPlan
	case types.GATEWAY_TIMEOUT:
		return ExitTimeout
	case types.ACTION_CANCELLED:
		return ExitCancelled
	default:
		return ExitError
	}
}

// IsVerbose checks if verbose mode is enabled via environment variable or flag.
// This is used for panic recovery to determine if stack traces should be shown.
func IsVerbose() bool {
	// Check environment variable
	if os.Getenv("BOTCORE_VERBOSE") != "" {
		return true
	}

	// Check common verbose flag patterns
	for _, arg := range os.Args {
		if arg == "-v" || arg == "--verbose" {
			return true
		}
	}

	return false
}
