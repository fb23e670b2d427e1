package puzzle

import (
	"errors"
	"fmt"
)

var (
	// ErrDigitOrderViolation is returned when the digits of a candidate, with
	// every other character removed, differ from the puzzle digits.
	ErrDigitOrderViolation = errors.New("digit order violation")

	// ErrParse is matched by every *ParseError.
	ErrParse = errors.New("parse error")

	// ErrArithmetic is matched by every *ArithmeticError.
	ErrArithmetic = errors.New("arithmetic error")

	// ErrUnsolvableAfterRetries means the generator exhausted its attempts
	// without proving a candidate solvable. It never reaches players: the
	// generator falls back to the curated pool.
	ErrUnsolvableAfterRetries = errors.New("puzzle unsolvable after retries")
)

// ParseError describes malformed candidate input.
type ParseError struct {
	Pos int    // byte offset in the normalized input
	Msg string // what was wrong
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Pos, e.Msg)
}

// Is reports whether target is ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// ArithmeticError describes an evaluation that cannot produce a finite value.
type ArithmeticError struct {
	Op  string
	Msg string
}

func (e *ArithmeticError) Error() string {
	return fmt.Sprintf("arithmetic error in %s: %s", e.Op, e.Msg)
}

// Is reports whether target is ErrArithmetic.
func (e *ArithmeticError) Is(target error) bool {
	return target == ErrArithmetic
}
