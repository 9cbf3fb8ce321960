package types

import (
	"errors"
	"fmt"
)

var (
	ErrPatternNotFound  = errors.New("required structural pattern missing")
	ErrPrecondition     = errors.New("precondition violated")
	ErrIndexNotFound    = errors.New("index not found in extracted data")
	ErrSandboxExecution = errors.New("sandbox execution failed")
	ErrDecode           = errors.New("decode failed")
)

// Pattern names used in PatternError.
const (
	PatternIndexLocator = "index-locator"
	PatternLegendTable  = "legend-table"
	PatternItemList     = "item-list"
)

// Assumptions checked before selective execution and assembly.
const (
	AssumeWrapperStatement = "wrapper-statement"
	AssumeWrapperCall      = "wrapper-call"
	AssumeWrapperBody      = "wrapper-body"
	AssumeIndexPresent     = "index-present"
)

type PatternError struct {
	Pattern string
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("%s: %s", ErrPatternNotFound, e.Pattern)
}

func (e *PatternError) Unwrap() error { return ErrPatternNotFound }

// PreconditionError reports which structural assumption did not hold.
type PreconditionError struct {
	Assumption string
	Detail     string
}

func (e *PreconditionError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", ErrPrecondition, e.Assumption)
	}
	return fmt.Sprintf("%s: %s: %s", ErrPrecondition, e.Assumption, e.Detail)
}

func (e *PreconditionError) Unwrap() []error {
	if e.Assumption == AssumeIndexPresent {
		return []error{ErrPrecondition, ErrIndexNotFound}
	}
	return []error{ErrPrecondition}
}

// ExecutionError wraps a failure of a fragment that must not fail.
type ExecutionError struct {
	Category string
	Source   string
	Err      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %s fragment: %v", ErrSandboxExecution, e.Category, e.Err)
}

func (e *ExecutionError) Unwrap() []error {
	return []error{ErrSandboxExecution, e.Err}
}
