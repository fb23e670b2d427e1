package duel

import "errors"

var (
	// ErrMatchNotFound is returned for unknown or evicted match ids.
	ErrMatchNotFound = errors.New("match not found")

	// ErrMatchFull is returned when a third participant tries to join.
	ErrMatchFull = errors.New("match is full")

	// ErrOutOfTurn is returned when a turn-based move comes from the
	// participant not holding the turn.
	ErrOutOfTurn = errors.New("not your turn")

	// ErrMatchNotActive is returned for moves, submissions and joins in a
	// state that does not allow them.
	ErrMatchNotActive = errors.New("match is not active")

	// ErrNotParticipant is returned when a non-participant acts on a match.
	ErrNotParticipant = errors.New("not a participant")

	// ErrWrongVariant is returned for an operation the match variant does
	// not support, e.g. a submission on a turn-based match.
	ErrWrongVariant = errors.New("operation not supported by match variant")

	// ErrAlreadyParticipant is returned when a participant asks to spectate
	// their own match.
	ErrAlreadyParticipant = errors.New("already a participant")

	// ErrMatchExists is returned by Store.Create on an id collision.
	ErrMatchExists = errors.New("match already exists")
)
