package models

import "errors"

// Domain error taxonomy. Callers match with errors.Is; the HTTP layer
// maps these onto status codes.
var (
	ErrMarketNotFound  = errors.New("market not found")
	ErrOutcomeNotFound = errors.New("outcome not found")
	ErrBetNotFound     = errors.New("bet not found")
	ErrUserNotFound    = errors.New("user not found")

	ErrInvalidState    = errors.New("invalid market state for operation")
	ErrAlreadyResolved = errors.New("market already resolved")
	ErrDuplicateBet    = errors.New("user already has a bet on this market")

	// ErrInsufficientConfidence: the external source answered but below
	// the minimum confidence floor (e.g. too few reviews).
	// ErrDataUnavailable: the source had no answer at all. Both route to
	// manual resolution rather than failing a scan.
	ErrInsufficientConfidence = errors.New("external data below confidence threshold")
	ErrDataUnavailable        = errors.New("external data unavailable")

	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientFunds = errors.New("insufficient balance")
)
