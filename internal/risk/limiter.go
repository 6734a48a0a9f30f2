// Package risk implements per-user position limits that account for
// correlation between markets in the same category.
//
// A user buying YES across twenty POLITICS markets on the same election
// cycle holds correlated risk. This package enforces a per-market share
// cap and an aggregate cap across all of a user's markets sharing the
// target market's category.
package risk

import (
	"errors"
)

var (
	// ErrPerMarketLimitExceeded is returned when a trade would push a
	// user's holdings in a single market beyond the per-market maximum.
	ErrPerMarketLimitExceeded = errors.New("risk: per-market position limit exceeded")

	// ErrCorrelatedLimitExceeded is returned when a trade would push the
	// aggregate holdings across same-category markets beyond the
	// correlated maximum.
	ErrCorrelatedLimitExceeded = errors.New("risk: correlated exposure limit exceeded")
)

// Exposure is a user's existing holdings in one market.
type Exposure struct {
	MarketID uint64
	Category string
	Shares   uint64 // yes + no holdings
}

// Limiter enforces position limits with category correlation awareness.
type Limiter struct {
	// MaxPerMarket is the maximum total shares a user may hold in any
	// single market.
	MaxPerMarket uint64

	// MaxCorrelated is the maximum aggregate shares across all of a
	// user's markets in the same category.
	MaxCorrelated uint64
}

// NewLimiter creates a limiter with the given per-market and correlated
// caps.
func NewLimiter(maxPerMarket, maxCorrelated uint64) *Limiter {
	return &Limiter{
		MaxPerMarket:  maxPerMarket,
		MaxCorrelated: maxCorrelated,
	}
}

// CheckLimit validates whether a buy respects position limits.
//
// Parameters:
//   - targetMarket, targetCategory: the market being traded
//   - newShares: the user's post-trade total holdings in the target market
//   - existing: the user's current holdings across all markets
//
// Holdings exactly at a limit are allowed; the first share beyond is not.
func (l *Limiter) CheckLimit(
	targetMarket uint64,
	targetCategory string,
	newShares uint64,
	existing []Exposure,
) error {
	if newShares > l.MaxPerMarket {
		return ErrPerMarketLimitExceeded
	}

	totalCorrelated := newShares
	for _, e := range existing {
		if e.MarketID == targetMarket {
			continue // already counted via newShares above
		}
		if e.Category == targetCategory {
			totalCorrelated += e.Shares
		}
	}

	if totalCorrelated > l.MaxCorrelated {
		return ErrCorrelatedLimitExceeded
	}
	return nil
}
