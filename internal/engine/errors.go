package engine

import "errors"

// Sentinel errors returned by trading and settlement operations. Every
// precondition or arithmetic guard fails the whole operation with none of
// its effects applied; callers match with errors.Is and decide whether to
// retry with different parameters.
var (
	// ErrMarketNotFound is returned when no market exists for the ID.
	ErrMarketNotFound = errors.New("engine: market not found")

	// ErrMarketClosed is returned when a trade targets a market that is
	// resolved or past its end time.
	ErrMarketClosed = errors.New("engine: market closed for trading")

	// ErrAlreadyResolved is returned when resolving a market twice.
	ErrAlreadyResolved = errors.New("engine: market already resolved")

	// ErrNotYetClosed is returned when resolving before the end time or
	// claiming before resolution.
	ErrNotYetClosed = errors.New("engine: market not yet closed")

	// ErrInsufficientFunds covers zero or uncovered payments, selling more
	// shares than held, and claiming with no winning shares.
	ErrInsufficientFunds = errors.New("engine: insufficient funds")

	// ErrPositionNotFound is returned when the caller holds no position in
	// the market.
	ErrPositionNotFound = errors.New("engine: position not found")

	// ErrCalculation covers division guards, overflow guards, and a drained
	// winning pool.
	ErrCalculation = errors.New("engine: calculation error")

	// ErrInvalidOutcome is returned for an outcome other than YES or NO.
	ErrInvalidOutcome = errors.New("engine: invalid outcome")
)
