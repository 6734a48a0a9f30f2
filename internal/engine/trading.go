package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/lastone-games/prediction-engine/internal/amm"
	"github.com/lastone-games/prediction-engine/internal/metrics"
	"github.com/lastone-games/prediction-engine/internal/model"
	"github.com/lastone-games/prediction-engine/internal/notify"
	"github.com/lastone-games/prediction-engine/internal/store"
)

// Buy spends payment on shares of the given side. Shares are issued at the
// pre-trade price, the payment is added to the side's pool, and prices
// shift toward the bought side by the liquidity-damped impact. Returns the
// number of shares bought.
func (e *Engine) Buy(ctx context.Context, marketID uint64, user string, side model.Side, payment uint64, now time.Time) (uint64, error) {
	if !side.Valid() {
		return 0, ErrInvalidOutcome
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.getActiveMarket(ctx, marketID, now)
	if err != nil {
		return 0, err
	}
	if payment == 0 {
		return 0, ErrInsufficientFunds
	}

	// Shares are issued at the pre-trade price. A zero price cannot occur
	// given the 100 bp floor, but the division must still be guarded.
	price := m.Price(side)
	if price == 0 {
		return 0, fmt.Errorf("%w: zero %s price", ErrCalculation, side)
	}
	shares, err := amm.MulDiv(payment, model.PriceScale, price)
	if err != nil {
		return 0, fmt.Errorf("%w: shares: %v", ErrCalculation, err)
	}
	if payment > math.MaxUint64-m.Pool(side) || shares > math.MaxUint64-m.Shares(side) {
		return 0, fmt.Errorf("%w: pool overflow", ErrCalculation)
	}

	pos, err := e.store.GetPosition(ctx, user, marketID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return 0, err
		}
		pos = &model.UserPosition{User: user, MarketID: marketID}
	}

	if e.limiter != nil {
		newShares := pos.YesShares + pos.NoShares + shares
		if err := e.checkExposure(ctx, user, m, newShares); err != nil {
			metrics.LimitRejections.Inc()
			return 0, err
		}
	}

	// Impact reflects the market's depth before this trade's own deposit.
	delta := amm.Impact(payment, m.TotalLiquidity)

	// All validation done; collecting the payment is the first effect.
	if err := e.treasury.Collect(ctx, user, payment); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
	}

	m.AddPool(side, payment)
	m.ShiftToward(side, delta)
	m.RecomputeLiquidity()
	m.AddShares(side, shares)
	m.AssertConsistent()

	pos.AddShares(side, shares)

	if err := e.store.UpdateMarket(ctx, m); err != nil {
		return 0, fmt.Errorf("persist market: %w", err)
	}
	if err := e.store.SavePosition(ctx, pos); err != nil {
		return 0, fmt.Errorf("persist position: %w", err)
	}

	metrics.TradesTotal.WithLabelValues("buy", string(side)).Inc()
	metrics.TradeVolume.WithLabelValues("buy", string(side)).Add(float64(payment))

	slog.Info("buy executed",
		"market_id", m.ID,
		"user", user,
		"side", side,
		"payment", payment,
		"shares", shares,
		"impact_bp", delta,
		"yes_price", m.YesPrice,
		"no_price", m.NoPrice,
	)

	ev := notify.NewEvent(notify.TypePositionOpened, m.ID)
	ev.User = user
	ev.Side = side
	ev.Amount = payment
	ev.Shares = shares
	ev.YesPrice = m.YesPrice
	ev.NoPrice = m.NoPrice
	e.publish(ev)

	return shares, nil
}

// Sell redeems shares of the given side at the pre-trade price. The
// proceeds leave the side's pool, prices shift away from the sold side,
// and an emptied position is garbage-collected. Returns the value paid
// out.
func (e *Engine) Sell(ctx context.Context, marketID uint64, user string, side model.Side, shares uint64, now time.Time) (uint64, error) {
	if !side.Valid() {
		return 0, ErrInvalidOutcome
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.getActiveMarket(ctx, marketID, now)
	if err != nil {
		return 0, err
	}
	if shares == 0 {
		return 0, ErrInsufficientFunds
	}

	pos, err := e.store.GetPosition(ctx, user, marketID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrPositionNotFound
		}
		return 0, err
	}
	if shares > pos.Shares(side) {
		return 0, ErrInsufficientFunds
	}

	ret, err := amm.MulDiv(shares, m.Price(side), model.PriceScale)
	if err != nil {
		return 0, fmt.Errorf("%w: return: %v", ErrCalculation, err)
	}
	// The sold side's pool must cover the redemption after prior price
	// movement.
	if ret > m.Pool(side) {
		return 0, ErrInsufficientFunds
	}

	pos.SubShares(side, shares)
	m.SubShares(side, shares)

	// Impact is measured against liquidity before the proceeds leave.
	delta := amm.Impact(ret, m.TotalLiquidity)
	m.ShiftAway(side, delta)
	m.SubPool(side, ret)
	m.RecomputeLiquidity()
	m.AssertConsistent()

	if err := e.treasury.Pay(ctx, user, ret); err != nil {
		return 0, fmt.Errorf("pay proceeds: %w", err)
	}

	if err := e.store.UpdateMarket(ctx, m); err != nil {
		return 0, fmt.Errorf("persist market: %w", err)
	}
	if pos.Empty() {
		if err := e.store.DeletePosition(ctx, user, marketID); err != nil {
			return 0, fmt.Errorf("remove position: %w", err)
		}
	} else {
		if err := e.store.SavePosition(ctx, pos); err != nil {
			return 0, fmt.Errorf("persist position: %w", err)
		}
	}

	metrics.TradesTotal.WithLabelValues("sell", string(side)).Inc()
	metrics.TradeVolume.WithLabelValues("sell", string(side)).Add(float64(ret))

	slog.Info("sell executed",
		"market_id", m.ID,
		"user", user,
		"side", side,
		"shares", shares,
		"returned", ret,
		"impact_bp", delta,
		"yes_price", m.YesPrice,
		"no_price", m.NoPrice,
	)

	ev := notify.NewEvent(notify.TypePositionClosed, m.ID)
	ev.User = user
	ev.Side = side
	ev.Amount = ret
	ev.Shares = shares
	ev.YesPrice = m.YesPrice
	ev.NoPrice = m.NoPrice
	e.publish(ev)

	return ret, nil
}

// QuoteSharesForPayment returns the shares a payment would currently buy,
// without committing a trade.
func (e *Engine) QuoteSharesForPayment(ctx context.Context, marketID uint64, side model.Side, payment uint64) (uint64, error) {
	if !side.Valid() {
		return 0, ErrInvalidOutcome
	}
	m, err := e.GetMarket(ctx, marketID)
	if err != nil {
		return 0, err
	}
	price := m.Price(side)
	if price == 0 {
		return 0, fmt.Errorf("%w: zero %s price", ErrCalculation, side)
	}
	shares, err := amm.MulDiv(payment, model.PriceScale, price)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCalculation, err)
	}
	return shares, nil
}

// QuotePaymentForShares returns the value selling shares would currently
// return, without committing a trade.
func (e *Engine) QuotePaymentForShares(ctx context.Context, marketID uint64, side model.Side, shares uint64) (uint64, error) {
	if !side.Valid() {
		return 0, ErrInvalidOutcome
	}
	m, err := e.GetMarket(ctx, marketID)
	if err != nil {
		return 0, err
	}
	ret, err := amm.MulDiv(shares, m.Price(side), model.PriceScale)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCalculation, err)
	}
	return ret, nil
}
