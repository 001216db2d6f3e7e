package internal

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/types"
)

func TestCLIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *CLIError
		expected string
	}{
		{
			name: "error without cause",
			err: &CLIError{
				Code:    ExitError,
				Message: "something went wrong",
			},
			expected: "something went wrong",
		},
		{
			name: "error with cause",
			err: &CLIError{
				Code:    ExitError,
				Message: "operation failed",
				Cause:   errors.New("underlying error"),
			},
			expected: "operation failed: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, tt.err.Error())
			}
		})
	}
}

func TestCLIError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := WrapError(ExitConfigError, "wrapper", cause)

	if err.Unwrap() != cause {
		t.Errorf("expected unwrapped error to be %v, got %v", cause, err.Unwrap())
	}
	if NewCLIError(ExitTimeout, "no cause").Unwrap() != nil {
		t.Error("expected Unwrap to return nil for error without cause")
	}
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
		wantOutput   string
	}{
		{
			name:         "nil error",
			err:          nil,
			expectedCode: ExitSuccess,
		},
		{
			name:         "context canceled",
			err:          context.Canceled,
			expectedCode: ExitCancelled,
			wantOutput:   "Operation cancelled",
		},
		{
			name:         "context deadline exceeded",
			err:          context.DeadlineExceeded,
			expectedCode: ExitTimeout,
			wantOutput:   "Operation timed out",
		},
		{
			name:         "CLI error",
			err:          NewCLIError(ExitConfigError, "invalid config"),
			expectedCode: ExitConfigError,
			wantOutput:   "Error: invalid config",
		},
		{
			name:         "agent config error",
			err:          types.NewError(types.CONFIG_NOT_FOUND, "no such scenario"),
			expectedCode: ExitConfigError,
			wantOutput:   "CONFIG_NOT_FOUND",
		},
		{
			name:         "agent model error",
			err:          types.NewError(types.MODEL_INVALID, "duplicate action"),
			expectedCode: ExitModelError,
			wantOutput:   "MODEL_INVALID",
		},
		{
			name:         "wrapped agent error",
			err:          types.WrapError(types.PLAN_NOT_FOUND, "budget exhausted", errors.New("20ms elapsed")),
			expectedCode: ExitNoPlan,
			wantOutput:   "PLAN_NOT_FOUND",
		},
		{
			name:         "generic error",
			err:          errors.New("unknown error"),
			expectedCode: ExitError,
			wantOutput:   "Error: unknown error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			cmd := &cobra.Command{}
			cmd.SetErr(buf)

			exitCode := HandleError(cmd, tt.err)
			if exitCode != tt.expectedCode {
				t.Errorf("expected exit code %d, got %d", tt.expectedCode, exitCode)
			}
			if tt.wantOutput != "" && !strings.Contains(buf.String(), tt.wantOutput) {
				t.Errorf("expected output containing %q, got %q", tt.wantOutput, buf.String())
			}
		})
	}
}

func TestMapAgentErrorToExitCode(t *testing.T) {
	tests := []struct {
		code         types.ErrorCode
		expectedExit int
	}{
		{types.CONFIG_LOAD_FAILED, ExitConfigError},
		{types.CONFIG_PARSE_FAILED, ExitConfigError},
		{types.CONFIG_VALIDATION_FAILED, ExitConfigError},
		{types.CONFIG_NOT_FOUND, ExitConfigError},
		{types.MODEL_INVALID, ExitModelError},
		{types.MALFORMED_GOAL, ExitModelError},
		{types.PLAN_NOT_FOUND, ExitNoPlan},
		{types.REPAIR_EXHAUSTED, ExitNoPlan},
		{types.CIRCUIT_BREAKER_TRIPPED, ExitNoPlan},
		{types.GATEWAY_TIMEOUT, ExitTimeout},
		{types.ACTION_CANCELLED, ExitCancelled},
		{types.ACTION_FAILED, ExitError},
		{types.GATEWAY_BUSY, ExitError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := types.NewError(tt.code, "test error")
			if got := mapAgentErrorToExitCode(err); got != tt.expectedExit {
				t.Errorf("expected exit code %d for %s, got %d", tt.expectedExit, tt.code, got)
			}
		})
	}
}

func TestExitCodeConstants(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		expected int
	}{
		{"ExitSuccess", ExitSuccess, 0},
		{"ExitError", ExitError, 1},
		{"ExitNoPlan", ExitNoPlan, 2},
		{"ExitTimeout", ExitTimeout, 3},
		{"ExitCancelled", ExitCancelled, 4},
		{"ExitConfigError", ExitConfigError, 10},
		{"ExitModelError", ExitModelError, 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.code != tt.expected {
				t.Errorf("expected %s=%d, got %d", tt.name, tt.expected, tt.code)
			}
		})
	}
}
