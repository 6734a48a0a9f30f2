// Package engine implements the pricing and settlement core: buy/sell
// trade execution against the AMM, market resolution, and proportional
// claim payouts.
//
// Every mutating operation runs inside a single critical section and is
// all-or-nothing: validations and arithmetic complete before the first
// externally visible effect. Time is always an explicit argument; the
// engine never reads a wall clock.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lastone-games/prediction-engine/internal/auth"
	"github.com/lastone-games/prediction-engine/internal/bank"
	"github.com/lastone-games/prediction-engine/internal/metrics"
	"github.com/lastone-games/prediction-engine/internal/model"
	"github.com/lastone-games/prediction-engine/internal/notify"
	"github.com/lastone-games/prediction-engine/internal/risk"
	"github.com/lastone-games/prediction-engine/internal/store"
	"github.com/lastone-games/prediction-engine/internal/ticker"
)

// Engine orchestrates trading and settlement over the shared market and
// position ledger. A mutex serializes mutations (single-instance); for
// horizontal scaling, replace with distributed locking or database-level
// optimistic concurrency.
type Engine struct {
	store    store.Store
	treasury bank.Treasury
	authz    auth.Authorizer
	limiter  *risk.Limiter // optional; nil disables exposure checks
	sink     notify.Sink   // optional; nil disables notifications
	mu       sync.Mutex
}

// New creates an engine. Pass nil for limiter to disable position limits
// and nil for sink to disable notifications.
func New(st store.Store, treasury bank.Treasury, authz auth.Authorizer, limiter *risk.Limiter, sink notify.Sink) *Engine {
	return &Engine{
		store:    st,
		treasury: treasury,
		authz:    authz,
		limiter:  limiter,
		sink:     sink,
	}
}

// InitialPrice is the starting price of both sides at market creation.
const InitialPrice = model.PriceScale / 2

// CreateMarket validates the ticker and persists a fresh market at even
// odds. Trading closes at the ticker's close time.
func (e *Engine) CreateMarket(ctx context.Context, creator, symbol, question string, now time.Time) (*model.Market, error) {
	tk, err := ticker.Parse(symbol)
	if err != nil {
		return nil, err
	}

	m := &model.Market{
		Ticker:    tk.Symbol,
		Question:  question,
		Creator:   creator,
		EndTime:   tk.CloseTime,
		YesPrice:  InitialPrice,
		NoPrice:   InitialPrice,
		Status:    model.StatusActive,
		CreatedAt: now,
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.CreateMarket(ctx, m); err != nil {
		return nil, err
	}

	metrics.ActiveMarkets.Inc()

	ev := notify.NewEvent(notify.TypeMarketCreated, m.ID)
	ev.User = creator
	e.publish(ev)

	return m, nil
}

// ListMarkets returns all markets, newest first.
func (e *Engine) ListMarkets(ctx context.Context) ([]model.Market, error) {
	return e.store.ListMarkets(ctx)
}

// GetMarket returns one market by ID.
func (e *Engine) GetMarket(ctx context.Context, marketID uint64) (*model.Market, error) {
	m, err := e.store.GetMarket(ctx, marketID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrMarketNotFound
		}
		return nil, err
	}
	return m, nil
}

// Prices is the read-only price snapshot of one market.
type Prices struct {
	YesPrice       uint64 `json:"yes_price"`
	NoPrice        uint64 `json:"no_price"`
	TotalLiquidity uint64 `json:"total_liquidity"`
}

// GetPrices returns the current prices and total liquidity of a market.
func (e *Engine) GetPrices(ctx context.Context, marketID uint64) (Prices, error) {
	m, err := e.GetMarket(ctx, marketID)
	if err != nil {
		return Prices{}, err
	}
	return Prices{
		YesPrice:       m.YesPrice,
		NoPrice:        m.NoPrice,
		TotalLiquidity: m.TotalLiquidity,
	}, nil
}

// GetPosition returns a user's holdings in a market. An absent position
// is zero holdings, not an error.
func (e *Engine) GetPosition(ctx context.Context, marketID uint64, user string) (yesShares, noShares uint64, err error) {
	p, err := e.store.GetPosition(ctx, user, marketID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, 0, nil
		}
		return 0, 0, err
	}
	return p.YesShares, p.NoShares, nil
}

// ListPositions returns all of a user's positions across markets.
func (e *Engine) ListPositions(ctx context.Context, user string) ([]model.UserPosition, error) {
	return e.store.ListUserPositions(ctx, user)
}

// publish sends an event if a sink is configured.
func (e *Engine) publish(ev notify.Event) {
	if e.sink != nil {
		e.sink.Publish(ev)
	}
}

// getActiveMarket loads a market and checks it is open for trading at now.
func (e *Engine) getActiveMarket(ctx context.Context, marketID uint64, now time.Time) (*model.Market, error) {
	m, err := e.GetMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if m.Status != model.StatusActive {
		return nil, ErrMarketClosed
	}
	if !now.Before(m.EndTime) {
		return nil, ErrMarketClosed
	}
	return m, nil
}

// categoryOf extracts the ticker category for correlation grouping.
// Markets are only created through ticker validation, so parse failures
// fall back to the raw symbol rather than erroring a trade.
func categoryOf(symbol string) string {
	tk, err := ticker.Parse(symbol)
	if err != nil {
		return symbol
	}
	return tk.Category
}

// checkExposure enforces position limits against the user's holdings
// across all markets, grouped by ticker category.
func (e *Engine) checkExposure(ctx context.Context, user string, target *model.Market, newShares uint64) error {
	positions, err := e.store.ListUserPositions(ctx, user)
	if err != nil {
		return fmt.Errorf("load exposures: %w", err)
	}

	exposures := make([]risk.Exposure, 0, len(positions))
	for _, p := range positions {
		if p.MarketID == target.ID {
			continue
		}
		pm, err := e.store.GetMarket(ctx, p.MarketID)
		if err != nil {
			return fmt.Errorf("load exposure market %d: %w", p.MarketID, err)
		}
		exposures = append(exposures, risk.Exposure{
			MarketID: p.MarketID,
			Category: categoryOf(pm.Ticker),
			Shares:   p.YesShares + p.NoShares,
		})
	}

	return e.limiter.CheckLimit(target.ID, categoryOf(target.Ticker), newShares, exposures)
}
