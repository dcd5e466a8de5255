package errors

import (
	"fmt"
	"strings"
)

// Fatal is implemented by every error of the run taxonomy. None of them
// is retried: the first one raised ends the run.
type Fatal interface {
	error
	Cause() error
	Category() string
}

type InvalidArgumentError struct {
	Argument string
	Reason   string
}

func NewInvalidArgument(argument, reason string, args ...any) *InvalidArgumentError {
	return &InvalidArgumentError{Argument: argument, Reason: fmt.Sprintf(reason, args...)}
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Argument, e.Reason)
}
func (e *InvalidArgumentError) Cause() error     { return nil }
func (e *InvalidArgumentError) Category() string { return "InvalidArgument" }

// InvalidConfigurationError reports a run parameter or catalog entry that
// is outside of its accepted values. Allowed is empty when the field is not
// an enumeration.
type InvalidConfigurationError struct {
	Field   string
	Value   string
	Allowed []string
	Reason  string
}

func NewInvalidValue(field, value string, allowed ...string) *InvalidConfigurationError {
	return &InvalidConfigurationError{Field: field, Value: value, Allowed: allowed}
}

func NewInvalidConfiguration(field, reason string, args ...any) *InvalidConfigurationError {
	return &InvalidConfigurationError{Field: field, Reason: fmt.Sprintf(reason, args...)}
}

func (e *InvalidConfigurationError) Error() string {
	if len(e.Allowed) != 0 {
		return fmt.Sprintf("invalid configuration: %s %q is not one of [%s]", e.Field, e.Value, strings.Join(e.Allowed, ", "))
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}
func (e *InvalidConfigurationError) Cause() error     { return nil }
func (e *InvalidConfigurationError) Category() string { return "InvalidConfiguration" }

type MissingInputFileError struct {
	Path  string
	inner error
}

func NewMissingInputFile(path string, inner error) *MissingInputFileError {
	return &MissingInputFileError{Path: path, inner: inner}
}

func (e *MissingInputFileError) Error() string {
	return fmt.Sprintf("input file %q does not exist", e.Path)
}
func (e *MissingInputFileError) Cause() error     { return e.inner }
func (e *MissingInputFileError) Unwrap() error    { return e.inner }
func (e *MissingInputFileError) Category() string { return "MissingInputFile" }

type BackendSubmissionError struct {
	Backend string
	JobID   string
	inner   error
}

func NewBackendSubmission(backend, jobID string, inner error) *BackendSubmissionError {
	return &BackendSubmissionError{Backend: backend, JobID: jobID, inner: inner}
}

func (e *BackendSubmissionError) Error() string {
	if e.JobID != "" {
		return fmt.Sprintf("%s submission of job %q failed: %s", e.Backend, e.JobID, e.inner)
	}
	return fmt.Sprintf("%s submission failed: %s", e.Backend, e.inner)
}
func (e *BackendSubmissionError) Cause() error     { return e.inner }
func (e *BackendSubmissionError) Unwrap() error    { return e.inner }
func (e *BackendSubmissionError) Category() string { return "BackendSubmissionFailed" }

type BackendPollError struct {
	Backend string
	Command string
	inner   error
}

func NewBackendPoll(backend, command string, inner error) *BackendPollError {
	return &BackendPollError{Backend: backend, Command: command, inner: inner}
}

func (e *BackendPollError) Error() string {
	return fmt.Sprintf("%s poll %q failed: %s", e.Backend, e.Command, e.inner)
}
func (e *BackendPollError) Cause() error     { return e.inner }
func (e *BackendPollError) Unwrap() error    { return e.inner }
func (e *BackendPollError) Category() string { return "BackendPollFailed" }

// ExternalCommandError is raised when a command exits with a non-zero
// status. Stage names the step of the run that invoked it.
type ExternalCommandError struct {
	Stage    string
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExternalCommandError) Error() string {
	msg := fmt.Sprintf("%s: command %q exited with code %d", e.Stage, e.Command, e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + lastLine(stderr)
	}
	return msg
}
func (e *ExternalCommandError) Cause() error     { return nil }
func (e *ExternalCommandError) Category() string { return "ExternalCommandFailed" }

func lastLine(in string) string {
	if idx := strings.LastIndexByte(in, '\n'); idx >= 0 {
		return in[idx+1:]
	}
	return in
}
