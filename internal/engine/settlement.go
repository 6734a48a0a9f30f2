package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lastone-games/prediction-engine/internal/amm"
	"github.com/lastone-games/prediction-engine/internal/metrics"
	"github.com/lastone-games/prediction-engine/internal/model"
	"github.com/lastone-games/prediction-engine/internal/notify"
	"github.com/lastone-games/prediction-engine/internal/store"
)

// Resolve settles a market on the given outcome. The entire losing-side
// pool merges into the winning-side pool in this step — the merge is what
// funds later claims. Requires an admin token and that trading has closed.
// Terminal: no trading or re-resolution afterwards.
func (e *Engine) Resolve(ctx context.Context, token string, marketID uint64, outcome model.Side, now time.Time) error {
	if err := e.authz.Authorize(ctx, token); err != nil {
		return err
	}
	if !outcome.Valid() {
		return ErrInvalidOutcome
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.GetMarket(ctx, marketID)
	if err != nil {
		return err
	}
	if m.Status != model.StatusActive {
		return ErrAlreadyResolved
	}
	if now.Before(m.EndTime) {
		return ErrNotYetClosed
	}

	m.Status = model.StatusResolved
	m.Outcome = outcome

	// Merge: winners collectively receive both pools, losers nothing.
	// Total liquidity is unchanged, being the sum of both pools.
	losing := outcome.Opposite()
	losingBalance := m.Pool(losing)
	m.SubPool(losing, losingBalance)
	m.AddPool(outcome, losingBalance)
	m.RecomputeLiquidity()
	m.AssertConsistent()

	if err := e.store.UpdateMarket(ctx, m); err != nil {
		return fmt.Errorf("persist market: %w", err)
	}

	metrics.MarketsResolved.WithLabelValues(string(outcome)).Inc()
	metrics.ActiveMarkets.Dec()

	slog.Info("market resolved",
		"market_id", m.ID,
		"outcome", outcome,
		"winning_pool", m.Pool(outcome),
		"total_liquidity", m.TotalLiquidity,
	)

	ev := notify.NewEvent(notify.TypeMarketResolved, m.ID)
	ev.Outcome = outcome
	e.publish(ev)

	return nil
}

// Claim pays out a user's winning shares from a resolved market and
// removes their position. The payout is the user's proportional slice of
// the market's current total liquidity against the frozen winning-share
// denominator, clamped to the remaining winning pool to absorb
// floor-division dust across sequential claims.
//
// The position is consumed by the act of claiming: a holder of only
// losing-side shares gets ErrInsufficientFunds and their record is still
// cleared (forfeiture).
func (e *Engine) Claim(ctx context.Context, marketID uint64, user string) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.GetMarket(ctx, marketID)
	if err != nil {
		return 0, err
	}
	if m.Status != model.StatusResolved {
		return 0, ErrNotYetClosed
	}

	pos, err := e.store.GetPosition(ctx, user, marketID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrPositionNotFound
		}
		return 0, err
	}

	// Both sides of the position are consumed in one step; there is no
	// partial claim.
	if err := e.store.DeletePosition(ctx, user, marketID); err != nil {
		return 0, fmt.Errorf("remove position: %w", err)
	}

	winningShares := pos.Shares(m.Outcome)
	if winningShares == 0 {
		slog.Info("losing position forfeited", "market_id", m.ID, "user", user)
		return 0, ErrInsufficientFunds
	}

	totalWinningShares := m.Shares(m.Outcome) // frozen since resolution
	winningPool := m.Pool(m.Outcome)
	if winningPool == 0 {
		return 0, fmt.Errorf("%w: winning pool drained", ErrCalculation)
	}

	payout, err := amm.MulDiv(m.TotalLiquidity, winningShares, totalWinningShares)
	if err != nil {
		return 0, fmt.Errorf("%w: payout: %v", ErrCalculation, err)
	}
	// The last claimant may find rounding has exhausted the pool;
	// accepted slippage, not an error.
	if payout > winningPool {
		payout = winningPool
	}

	m.SubPool(m.Outcome, payout)
	m.RecomputeLiquidity()
	m.AssertConsistent()

	if err := e.treasury.Pay(ctx, user, payout); err != nil {
		return 0, fmt.Errorf("pay claim: %w", err)
	}
	if err := e.store.UpdateMarket(ctx, m); err != nil {
		return 0, fmt.Errorf("persist market: %w", err)
	}

	metrics.ClaimsTotal.Inc()

	slog.Info("claim paid",
		"market_id", m.ID,
		"user", user,
		"winning_shares", winningShares,
		"payout", payout,
		"remaining_pool", m.Pool(m.Outcome),
	)

	return payout, nil
}
