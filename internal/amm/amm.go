// Package amm implements the price-impact and share arithmetic for binary
// outcome markets.
//
// Price impact is a bounded, liquidity-damped linear rule rather than a
// continuous cost curve: a trade shifts both sides' prices by
//
//	impact = amount * 1000 / (liquidity + VirtualLiquidity)
//
// capped at MaxImpact. The virtual-liquidity floor in the denominator damps
// swings on thin markets and keeps the division always defined.
//
// All multiply-then-divide steps use shopspring/decimal as the wide
// intermediate — never raw uint64 products, which overflow for the legal
// input range.
package amm

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

const (
	// VirtualLiquidity is the constant floor added to the impact
	// denominator.
	VirtualLiquidity uint64 = 1_000_000_000

	// DefaultImpact is the impact in basis points applied to the first
	// trade against an empty pool, where the ratio rule is undefined.
	DefaultImpact uint64 = 500

	// MaxImpact caps the basis-point shift a single trade can cause.
	MaxImpact uint64 = 2000

	// impactScale converts the trade/liquidity ratio to basis points.
	impactScale = 1000
)

var (
	// ErrDivisionByZero is returned by MulDiv when the divisor is zero.
	ErrDivisionByZero = errors.New("amm: division by zero")

	// ErrOverflow is returned by MulDiv when the quotient does not fit in
	// a uint64.
	ErrOverflow = errors.New("amm: result exceeds uint64 range")
)

var (
	impactScaleDec      = decimal.NewFromInt(impactScale)
	virtualLiquidityDec = decimal.NewFromUint64(VirtualLiquidity)
	maxImpactDec        = decimal.NewFromUint64(MaxImpact)
	maxUint64Dec        = decimal.NewFromUint64(math.MaxUint64)
)

// Impact computes the basis-point price shift caused by a trade of the
// given size against the given pre-trade total liquidity. Pure and
// deterministic with no failure modes: the virtual-liquidity floor keeps
// the divisor positive, and the result is clamped to MaxImpact.
func Impact(tradeAmount, totalLiquidity uint64) uint64 {
	if totalLiquidity == 0 {
		return DefaultImpact
	}

	num := decimal.NewFromUint64(tradeAmount).Mul(impactScaleDec)
	den := decimal.NewFromUint64(totalLiquidity).Add(virtualLiquidityDec)

	q, _ := num.QuoRem(den, 0)
	if q.GreaterThan(maxImpactDec) {
		return MaxImpact
	}
	return uint64(q.IntPart())
}

// MulDiv returns floor(a * b / div) computed with a wide intermediate.
// Used for share issuance (payment * 10000 / price), redemption
// (shares * price / 10000), and proportional payout math.
func MulDiv(a, b, div uint64) (uint64, error) {
	if div == 0 {
		return 0, ErrDivisionByZero
	}

	q, _ := decimal.NewFromUint64(a).
		Mul(decimal.NewFromUint64(b)).
		QuoRem(decimal.NewFromUint64(div), 0)

	if q.GreaterThan(maxUint64Dec) {
		return 0, ErrOverflow
	}
	return q.BigInt().Uint64(), nil
}
