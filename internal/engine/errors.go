package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/reactors/internal/graph"
)

// ErrSchedulerTerminated is returned by AsyncLink sends after the scheduler
// has terminated. Termination racing with async sends is expected, so this
// is a plain result rather than a fault.
var ErrSchedulerTerminated = errors.New("scheduler terminated")

// ErrProgramReused is returned when a Program is run a second time. Port
// cells and action values belong to one run.
var ErrProgramReused = errors.New("program already ran")

// AssemblyErrorCode categorizes assembly errors.
type AssemblyErrorCode string

const (
	// ErrCodeCyclicDependency indicates a cycle in the dependency graph.
	ErrCodeCyclicDependency AssemblyErrorCode = "CYCLIC_DEPENDENCY"

	// ErrCodePortTypeMismatch indicates a binding between ports of different
	// element types.
	ErrCodePortTypeMismatch AssemblyErrorCode = "PORT_TYPE_MISMATCH"

	// ErrCodeBadWidth indicates a non-positive bank/multiport width or a
	// width mismatch in a multiport binding.
	ErrCodeBadWidth AssemblyErrorCode = "BAD_WIDTH"

	// ErrCodeCannotBind indicates a downstream port that already has an
	// upstream.
	ErrCodeCannotBind AssemblyErrorCode = "CANNOT_BIND"

	// ErrCodeDuplicateName indicates two components or children sharing a
	// name within one reactor.
	ErrCodeDuplicateName AssemblyErrorCode = "DUPLICATE_NAME"

	// ErrCodeBuildFailed wraps an error returned by a user build function.
	ErrCodeBuildFailed AssemblyErrorCode = "BUILD_FAILED"
)

// AssemblyError is returned when a program cannot be assembled. The engine
// refuses to start; the only recovery is fixing the network.
type AssemblyError struct {
	// Code identifies the error category.
	Code AssemblyErrorCode

	// Message is a human-readable description.
	Message string

	// Reactor is the path of the reactor being assembled.
	Reactor string

	// Reactions names the reactions involved (cycle errors).
	Reactions []string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *AssemblyError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.Reactor != "" {
		fmt.Fprintf(&b, " (reactor=%s)", e.Reactor)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *AssemblyError) Unwrap() error {
	return e.Err
}

// IsAssemblyError returns true if err is or wraps an *AssemblyError.
func IsAssemblyError(err error) bool {
	var ae *AssemblyError
	return errors.As(err, &ae)
}

// IsCycleError returns true if err is an assembly error for a dependency
// cycle. Uses errors.As to handle wrapped errors.
func IsCycleError(err error) bool {
	var ae *AssemblyError
	if errors.As(err, &ae) {
		return ae.Code == ErrCodeCyclicDependency
	}
	return false
}

// AssemblyErrorCodeOf returns the code of the *AssemblyError in err's chain,
// or "" if there is none.
func AssemblyErrorCodeOf(err error) AssemblyErrorCode {
	var ae *AssemblyError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

func newAssemblyError(code AssemblyErrorCode, reactor, format string, args ...any) *AssemblyError {
	return &AssemblyError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Reactor: reactor,
	}
}

func newCycleError(reactor string, ce *graph.CycleError) *AssemblyError {
	return &AssemblyError{
		Code:      ErrCodeCyclicDependency,
		Message:   ce.Error(),
		Reactor:   reactor,
		Reactions: ce.Reactions,
		Err:       ce,
	}
}

// FaultCode categorizes runtime faults.
type FaultCode string

const (
	// FaultUndeclaredEffect indicates a write to a component the reaction did
	// not declare as an effect.
	FaultUndeclaredEffect FaultCode = "UNDECLARED_EFFECT"

	// FaultUndeclaredUse indicates a read of a component the reaction did not
	// declare as a trigger, use or effect.
	FaultUndeclaredUse FaultCode = "UNDECLARED_USE"

	// FaultWriteToBoundPort indicates a write to a port fed by an upstream.
	FaultWriteToBoundPort FaultCode = "WRITE_TO_BOUND_PORT"

	// FaultScheduleFromWrongContext indicates a physical action scheduled
	// through a reaction context instead of an AsyncLink.
	FaultScheduleFromWrongContext FaultCode = "SCHEDULE_FROM_WRONG_CONTEXT"

	// FaultContextEscaped indicates a reaction context used after its
	// reaction returned.
	FaultContextEscaped FaultCode = "CONTEXT_ESCAPED"

	// FaultNegativeDelay indicates an offset with a negative delay.
	FaultNegativeDelay FaultCode = "NEGATIVE_DELAY"
)

// RuntimeFault is a programmer usage violation detected while a reaction
// runs. It is raised with panic: continuing would silently break
// determinism.
type RuntimeFault struct {
	Code     FaultCode
	Message  string
	Reaction string
}

// Error implements the error interface.
func (f *RuntimeFault) Error() string {
	return fmt.Sprintf("%s: %s (reaction=%s)", f.Code, f.Message, f.Reaction)
}

// AsRuntimeFault reports whether a recovered panic value is a *RuntimeFault.
func AsRuntimeFault(v any) (*RuntimeFault, bool) {
	err, ok := v.(error)
	if !ok {
		return nil, false
	}
	var f *RuntimeFault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

func fault(code FaultCode, reaction, format string, args ...any) {
	panic(&RuntimeFault{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Reaction: reaction,
	})
}
