package core

import "errors"

// Stable, user-facing error kinds. Services wrap these with %w so callers
// can match via errors.Is while still getting a contextual message.
// Everything here is recoverable for the caller; ErrStaleState is the only
// kind worth an automatic retry (re-fetch the booking and resubmit).
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrInvalidPin         = errors.New("invalid security pin")
	ErrMissingProof       = errors.New("proof image required")
	ErrMissingExtraReason = errors.New("reason required for amount above quote")
	ErrDuplicateReview    = errors.New("booking already reviewed")
	ErrInvalidRating      = errors.New("rating out of range")
	ErrNotCompleted       = errors.New("booking is not completed")
	ErrStaleState         = errors.New("booking was modified concurrently")
)
