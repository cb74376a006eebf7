package function

import (
	"errors"
	"fmt"

	"github.com/reoring/gomodel"
	"github.com/reoring/gomodel/security"
)

// Faults. They are returned as errors from Apply and never reach clients as
// business errors.
var (
	ErrReservedName      = errors.New("function: reserved name")
	ErrInvalidDefinition = errors.New("function: invalid definition")
	ErrUndeclaredError   = errors.New("function: undeclared error")
	ErrMissingDependency = errors.New("function: missing dependency")
)

// MaxSelectionDepthError rejects a retrieve spec nested deeper than allowed.
type MaxSelectionDepthError struct {
	Depth int
	Max   int
}

func (e *MaxSelectionDepthError) Error() string {
	return fmt.Sprintf("max selection depth reached: requested selection have a depth of %d. The maximum is %d", e.Depth, e.Max)
}

// InvalidOutputError reports a result that does not conform to the output
// (or declared error) type of a function.
type InvalidOutputError struct {
	Function string
	Errors   gomodel.Errors
}

func (e *InvalidOutputError) Error() string {
	return fmt.Sprintf("invalid output on function %s: %v", e.Function, e.Errors)
}

func (e *InvalidOutputError) Unwrap() error { return e.Errors }

// UnauthorizedAccessError is the fault raised by policy violations when the
// function does not declare security.UnauthorizedAccess.
type UnauthorizedAccessError struct {
	Violations security.Violations
}

func (e *UnauthorizedAccessError) Error() string { return e.Violations.Error() }

func (e *UnauthorizedAccessError) Unwrap() error { return e.Violations }
