package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrRateLimited    = errors.New("rate limited")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrLockHeld       = errors.New("lock already held")
	ErrUnknownChannel = errors.New("unknown channel")
	ErrInvalidCommand = errors.New("invalid command")

	// Selection failures. The seller treats these as "nothing left to list
	// this tick" rather than as errors.
	ErrNoCandidates     = errors.New("candidate set is empty")
	ErrNoWeight         = errors.New("all missing counts are zero")
	ErrWeightsMismatch  = errors.New("categories and weights must have the same non-zero length")
	ErrUnsupportedGrade = errors.New("item quality not supported")

	// ErrBidNotHigher is returned by a ledger when an update would not raise
	// the current bid.
	ErrBidNotHigher = errors.New("bid does not exceed current bid")
)
