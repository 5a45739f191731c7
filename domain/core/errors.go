package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Constraint evaluation errors
	ErrInconsistent = errors.New("constraint set inconsistent")
	ErrInput        = errors.New("invalid input")
	ErrTree         = errors.New("malformed tree structure")
	ErrIllegalNode  = errors.New("operation not defined for node kind")

	// Capacity errors
	ErrTooFewAlts    = errors.New("too few alternatives")
	ErrTooManyAlts   = errors.New("too many alternatives")
	ErrTooManyCons   = errors.New("too many consequence nodes")
	ErrTooManyStmts  = errors.New("too many statements")
	ErrTooNarrowStmt = errors.New("statement interval too narrow")

	// Lifecycle errors
	ErrCorrupted = errors.New("frame corrupted")
	ErrAttached  = errors.New("frame already attached")
	ErrDetached  = errors.New("frame not attached")

	// Storage errors
	ErrNotFound        = errors.New("resource not found")
	ErrNoFile          = fmt.Errorf("%w: problem file", ErrNotFound)
	ErrFrameNotFound   = fmt.Errorf("%w: frame", ErrNotFound)
	ErrProblemNotFound = fmt.Errorf("%w: problem", ErrNotFound)
)

// Error constructors with context
func NewInputError(what string, detail string) error {
	return fmt.Errorf("%w: %s: %s", ErrInput, what, detail)
}

func NewNodeRangeError(alt, node int) error {
	return fmt.Errorf("%w: node %d of alternative %d out of range", ErrInput, node, alt)
}

func NewStatementRangeError(number int) error {
	return fmt.Errorf("%w: statement %d out of range", ErrInput, number)
}

func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// Error checking helpers
func IsInconsistentError(err error) bool {
	return errors.Is(err, ErrInconsistent)
}

func IsInputError(err error) bool {
	return errors.Is(err, ErrInput) ||
		errors.Is(err, ErrTree) ||
		errors.Is(err, ErrIllegalNode)
}

func IsCapacityError(err error) bool {
	return errors.Is(err, ErrTooFewAlts) ||
		errors.Is(err, ErrTooManyAlts) ||
		errors.Is(err, ErrTooManyCons) ||
		errors.Is(err, ErrTooManyStmts) ||
		errors.Is(err, ErrTooNarrowStmt)
}

func IsLifecycleError(err error) bool {
	return errors.Is(err, ErrCorrupted) ||
		errors.Is(err, ErrAttached) ||
		errors.Is(err, ErrDetached)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrNoFile)
}
