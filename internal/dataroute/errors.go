package dataroute

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is. Every error returned by a Route matches exactly one.
var (
	ErrValidation = errors.New("invalid request")
	ErrBuild      = errors.New("statement rejected")
	ErrExecution  = errors.New("statement failed")
)

// ValidationError reports a missing or malformed request parameter.
type ValidationError struct {
	Param   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Param, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// BuildError reports a statement that could not be built or that policy
// refuses to run.
type BuildError struct {
	Op      string
	Message string
	Err     error
}

func (e *BuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

func (e *BuildError) Is(target error) bool {
	return target == ErrBuild
}

// ExecutionError carries a driver failure. Its message is the driver's.
type ExecutionError struct {
	Op  string
	Err error
}

func (e *ExecutionError) Error() string {
	return e.Err.Error()
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecution
}

func missingParam(name string) error {
	return &ValidationError{Param: name, Message: "missing required parameter"}
}
