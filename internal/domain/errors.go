package domain

import "errors"

// Common domain errors that can occur while building a leaderboard.
var (
	// ErrEmptyRecord indicates that an aggregate was requested from a record
	// with no scored rounds. Callers must check ParticipationCount first;
	// hitting this error is a programming-contract violation, not a
	// recoverable input condition.
	ErrEmptyRecord = errors.New("record has no scored rounds")

	// ErrResetOrder indicates that the reset-cadence check received
	// out-of-order post timestamps. Posts are merged oldest to newest, so
	// this is an internal invariant violation.
	ErrResetOrder = errors.New("reset check received out-of-order timestamps")

	// ErrUnknownCadence indicates an unrecognized reset cadence value.
	ErrUnknownCadence = errors.New("unknown reset cadence")
)
