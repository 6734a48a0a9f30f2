// Package model defines the core domain types shared across the prediction
// engine. Prices are unsigned integers in basis points; pool balances and
// share counts are unsigned integers in base units.
package model

import (
	"fmt"
	"time"
)

// Side identifies one of the two binary outcomes.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// Valid reports whether s is one of the two supported outcomes.
func (s Side) Valid() bool {
	return s == SideYes || s == SideNo
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

// Market status values. A market is created Active and moves to Resolved
// exactly once; there is no transition out of Resolved.
const (
	StatusActive   = "active"
	StatusResolved = "resolved"
)

// Price bounds in basis points.
const (
	// PriceScale is full probability: 10000 bp = 100%.
	PriceScale uint64 = 10000

	// PriceCeiling and PriceFloor are the hard clamp targets applied when a
	// single trade's impact would exceed the remaining headroom on one side.
	PriceCeiling uint64 = 9900
	PriceFloor   uint64 = 100
)

// Market represents the state of one binary prediction market.
type Market struct {
	ID        uint64    `json:"id" db:"id"`
	Ticker    string    `json:"ticker" db:"ticker"`
	Question  string    `json:"question" db:"question"`
	Creator   string    `json:"creator" db:"creator"`
	EndTime   time.Time `json:"end_time" db:"end_time"`
	YesPrice  uint64    `json:"yes_price" db:"yes_price"`       // basis points
	NoPrice   uint64    `json:"no_price" db:"no_price"`         // basis points
	Status    string    `json:"status" db:"status"`             // "active" or "resolved"
	Outcome   Side      `json:"outcome,omitempty" db:"outcome"` // empty until resolved
	YesShares uint64    `json:"yes_shares" db:"yes_shares"`
	NoShares  uint64    `json:"no_shares" db:"no_shares"`
	YesPool   uint64    `json:"yes_pool" db:"yes_pool"`
	NoPool    uint64    `json:"no_pool" db:"no_pool"`
	// TotalLiquidity is always recomputed from the pools, never tracked
	// incrementally.
	TotalLiquidity uint64    `json:"total_liquidity" db:"total_liquidity"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Price returns the current price of the given side in basis points.
func (m *Market) Price(side Side) uint64 {
	if side == SideYes {
		return m.YesPrice
	}
	return m.NoPrice
}

// Pool returns the value balance backing the given side.
func (m *Market) Pool(side Side) uint64 {
	if side == SideYes {
		return m.YesPool
	}
	return m.NoPool
}

// Shares returns the cumulative outstanding shares on the given side.
func (m *Market) Shares(side Side) uint64 {
	if side == SideYes {
		return m.YesShares
	}
	return m.NoShares
}

// AddPool credits amount to the given side's pool.
func (m *Market) AddPool(side Side, amount uint64) {
	if side == SideYes {
		m.YesPool += amount
	} else {
		m.NoPool += amount
	}
}

// SubPool debits amount from the given side's pool.
func (m *Market) SubPool(side Side, amount uint64) {
	if side == SideYes {
		m.YesPool -= amount
	} else {
		m.NoPool -= amount
	}
}

// AddShares increases the cumulative share counter on the given side.
func (m *Market) AddShares(side Side, amount uint64) {
	if side == SideYes {
		m.YesShares += amount
	} else {
		m.NoShares += amount
	}
}

// SubShares decreases the cumulative share counter on the given side.
func (m *Market) SubShares(side Side, amount uint64) {
	if side == SideYes {
		m.YesShares -= amount
	} else {
		m.NoShares -= amount
	}
}

// ShiftToward moves prices toward side by delta basis points: the bought
// side gains delta, the opposite side loses delta. When delta meets or
// exceeds the opposite side's remaining price, both sides are instead
// clamped hard to 9900/100 favoring the bought side. The threshold is
// deliberately >=, not >.
func (m *Market) ShiftToward(side Side, delta uint64) {
	other := m.Price(side.Opposite())
	if delta >= other {
		m.setPrices(side, PriceCeiling, PriceFloor)
		return
	}
	m.setPrices(side, m.Price(side)+delta, other-delta)
}

// ShiftAway moves prices away from side by delta basis points: the sold
// side loses delta, the opposite side gains delta. When delta meets or
// exceeds the sold side's remaining price, the sold side is clamped to 100
// and the opposite side to 9900.
func (m *Market) ShiftAway(side Side, delta uint64) {
	sold := m.Price(side)
	if delta >= sold {
		m.setPrices(side, PriceFloor, PriceCeiling)
		return
	}
	m.setPrices(side, sold-delta, m.Price(side.Opposite())+delta)
}

func (m *Market) setPrices(side Side, own, other uint64) {
	if side == SideYes {
		m.YesPrice, m.NoPrice = own, other
	} else {
		m.NoPrice, m.YesPrice = own, other
	}
}

// RecomputeLiquidity derives TotalLiquidity from the actual pool balances.
// Called after every pool mutation so the total can never drift from the
// ledger truth.
func (m *Market) RecomputeLiquidity() {
	m.TotalLiquidity = m.YesPool + m.NoPool
}

// AssertConsistent panics if a structural invariant is broken. These
// conditions are unreachable by construction; a violation is a defect in
// the engine, not a recoverable error.
func (m *Market) AssertConsistent() {
	if m.YesPrice+m.NoPrice != PriceScale {
		panic(fmt.Sprintf("market %d: prices %d+%d != %d",
			m.ID, m.YesPrice, m.NoPrice, PriceScale))
	}
	if m.TotalLiquidity != m.YesPool+m.NoPool {
		panic(fmt.Sprintf("market %d: total liquidity %d != pool sum %d",
			m.ID, m.TotalLiquidity, m.YesPool+m.NoPool))
	}
}

// UserPosition is a trader's holdings in one market. A position with zero
// shares on both sides must not exist as a stored entry.
type UserPosition struct {
	User      string `json:"user" db:"user_id"`
	MarketID  uint64 `json:"market_id" db:"market_id"`
	YesShares uint64 `json:"yes_shares" db:"yes_shares"`
	NoShares  uint64 `json:"no_shares" db:"no_shares"`
}

// Shares returns the holdings on the given side.
func (p *UserPosition) Shares(side Side) uint64 {
	if side == SideYes {
		return p.YesShares
	}
	return p.NoShares
}

// AddShares credits holdings on the given side.
func (p *UserPosition) AddShares(side Side, amount uint64) {
	if side == SideYes {
		p.YesShares += amount
	} else {
		p.NoShares += amount
	}
}

// SubShares debits holdings on the given side.
func (p *UserPosition) SubShares(side Side, amount uint64) {
	if side == SideYes {
		p.YesShares -= amount
	} else {
		p.NoShares -= amount
	}
}

// Empty reports whether both sides are zero.
func (p *UserPosition) Empty() bool {
	return p.YesShares == 0 && p.NoShares == 0
}
