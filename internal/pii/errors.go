package pii

import (
	"errors"
	"fmt"
)

var (
	// ErrDetectorUnavailable signals that a detector's external
	// dependency is missing or unreachable. Recoverable: the engine
	// degrades or aborts depending on strict mode.
	ErrDetectorUnavailable = errors.New("detector unavailable")

	// ErrDetectorTimeout signals that an external call exceeded its
	// budget. Treated as unavailable for that call.
	ErrDetectorTimeout = errors.New("detector timeout")

	// ErrUnsupportedMethod signals an unknown anonymization method
	// name. Fatal for the call; no partial transformation is applied.
	ErrUnsupportedMethod = errors.New("unsupported anonymization method")

	// ErrTextTooLarge signals that input exceeds the configured
	// maximum text length.
	ErrTextTooLarge = errors.New("text exceeds maximum length")
)

// InvalidCandidateError describes a zero-width or out-of-range span
// produced by a misbehaving detector. Such candidates are dropped with
// a diagnostic; processing continues.
type InvalidCandidateError struct {
	Candidate Candidate
	Reason    string
}

func (e *InvalidCandidateError) Error() string {
	return fmt.Sprintf("invalid candidate %s [%d,%d) from %s: %s",
		e.Candidate.Type, e.Candidate.Start, e.Candidate.End, e.Candidate.Source, e.Reason)
}
