package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lastone-games/prediction-engine/internal/auth"
	"github.com/lastone-games/prediction-engine/internal/engine"
	"github.com/lastone-games/prediction-engine/internal/model"
)

// --- Resolve ---

func TestResolve_MergesLosingPool(t *testing.T) {
	e, _, tr := newTestEngine(t)
	m := seedMarket(t, e, tr, "SPORTS-TEST-A-20250815", "alice", "bob")
	ctx := context.Background()

	if _, err := e.Buy(ctx, m.ID, "alice", model.SideYes, 1_000_000_000, tradeTime); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if _, err := e.Buy(ctx, m.ID, "bob", model.SideNo, 1_000_000_000, tradeTime); err != nil {
		t.Fatalf("buy failed: %v", err)
	}

	if err := e.Resolve(ctx, adminToken, m.ID, model.SideYes, closeTime); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	got := mustMarket(t, e, m.ID)
	if got.Status != model.StatusResolved || got.Outcome != model.SideYes {
		t.Errorf("expected resolved YES, got status=%q outcome=%q", got.Status, got.Outcome)
	}
	if got.NoPool != 0 {
		t.Errorf("losing pool must be empty, got %d", got.NoPool)
	}
	if got.YesPool != 2_000_000_000 {
		t.Errorf("winning pool must hold both deposits, got %d", got.YesPool)
	}
	if got.TotalLiquidity != 2_000_000_000 {
		t.Errorf("resolution must not change total liquidity, got %d", got.TotalLiquidity)
	}
	assertInvariants(t, got)
}

func TestResolve_RequiresAdminToken(t *testing.T) {
	e, _, tr := newTestEngine(t)
	m := seedMarket(t, e, tr, "SPORTS-TEST-A-20250815")

	err := e.Resolve(context.Background(), "wrong-token", m.ID, model.SideYes, closeTime)
	if !errors.Is(err, auth.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestResolve_InvalidOutcome(t *testing.T) {
	e, _, tr := newTestEngine(t)
	m := seedMarket(t, e, tr, "SPORTS-TEST-A-20250815")

	err := e.Resolve(context.Background(), adminToken, m.ID, model.Side("DRAW"), closeTime)
	if !errors.Is(err, engine.ErrInvalidOutcome) {
		t.Errorf("expected ErrInvalidOutcome, got %v", err)
	}
}

func TestResolve_BeforeEndTime(t *testing.T) {
	e, _, tr := newTestEngine(t)
	m := seedMarket(t, e, tr, "SPORTS-TEST-A-20250815")

	err := e.Resolve(context.Background(), adminToken, m.ID, model.SideYes, closeTime.Add(-time.Second))
	if !errors.Is(err, engine.ErrNotYetClosed) {
		t.Errorf("expected ErrNotYetClosed, got %v", err)
	}

	// Exactly at the end time is resolvable.
	if err := e.Resolve(context.Background(), adminToken, m.ID, model.SideYes, closeTime); err != nil {
		t.Errorf("resolve at end time should pass, got %v", err)
	}
}

func TestResolve_Twice(t *testing.T) {
	e, _, tr := newTestEngine(t)
	m := seedMarket(t, e, tr, "SPORTS-TEST-A-20250815")
	ctx := context.Background()

	if err := e.Resolve(ctx, adminToken, m.ID, model.SideYes, closeTime); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	err := e.Resolve(ctx, adminToken, m.ID, model.SideNo, closeTime)
	if !errors.Is(err, engine.ErrAlreadyResolved) {
		t.Errorf("expected ErrAlreadyResolved, got %v", err)
	}

	if got := mustMarket(t, e, m.ID); got.Outcome != model.SideYes {
		t.Errorf("outcome must not change on re-resolution, got %q", got.Outcome)
	}
}

func TestResolve_MarketNotFound(t *testing.T) {
	e, _, _ := newTestEngine(t)

	err := e.Resolve(context.Background(), adminToken, 99, model.SideYes, closeTime)
	if !errors.Is(err, engine.ErrMarketNotFound) {
		t.Errorf("expected ErrMarketNotFound, got %v", err)
	}
}

func TestResolve_BlocksFurtherTrading(t *testing.T) {
	e, _, tr := newTestEngine(t)
	m := seedMarket(t, e, tr, "SPORTS-TEST-A-20250815", "alice")
	ctx := context.Background()

	if err := e.Resolve(ctx, adminToken, m.ID, model.SideYes, closeTime); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	_, err := e.Buy(ctx, m.ID, "alice", model.SideYes, 100, closeTime.Add(time.Hour))
	if !errors.Is(err, engine.ErrMarketClosed) {
		t.Errorf("expected ErrMarketClosed after resolution, got %v", err)
	}
}

// --- Claim ---

func TestClaim_WinnerTakesMergedPool(t *testing.T) {
	e, ms, tr := newTestEngine(t)
	m := seedMarket(t, e, tr, "SPORTS-TEST-A-20250815", "alice", "bob")
	ctx := context.Background()

	if _, err := e.Buy(ctx, m.ID, "alice", model.SideYes, 1_000_000_000, tradeTime); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if _, err := e.Buy(ctx, m.ID, "bob", model.SideNo, 1_000_000_000, tradeTime); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if err := e.Resolve(ctx, adminToken, m.ID, model.SideYes, closeTime); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	before := tr.Balance("alice")

	// Sole winner: the payout is the entire merged liquidity.
	payout, err := e.Claim(ctx, m.ID, "alice")
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if payout != 2_000_000_000 {
		t.Errorf("expected payout 2000000000, got %d", payout)
	}

	credited := tr.Balance("alice").Sub(before)
	if !credited.Equal(decimal.NewFromUint64(payout)) {
		t.Errorf("treasury credited %s, payout was %d", credited, payout)
	}

	got := mustMarket(t, e, m.ID)
	if got.YesPool != 0 || got.TotalLiquidity != 0 {
		t.Errorf("pool must be drained after the sole claim: pool=%d total=%d",
			got.YesPool, got.TotalLiquidity)
	}

	// The losing side forfeits: claim consumes the record either way.
	_, err = e.Claim(ctx, m.ID, "bob")
	if !errors.Is(err, engine.ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds for the losing side, got %v", err)
	}
	if ms.HasUserRecord("bob") {
		t.Error("forfeited position must be removed")
	}
}

func TestClaim_BeforeResolution(t *testing.T) {
	e, _, tr := newTestEngine(t)
	m := seedMarket(t, e, tr, "SPORTS-TEST-A-20250815", "alice")
	ctx := context.Background()

	if _, err := e.Buy(ctx, m.ID, "alice", model.SideYes, 1_000_000, tradeTime); err != nil {
		t.Fatalf("buy failed: %v", err)
	}

	_, err := e.Claim(ctx, m.ID, "alice")
	if !errors.Is(err, engine.ErrNotYetClosed) {
		t.Errorf("expected ErrNotYetClosed, got %v", err)
	}
}

func TestClaim_WithoutPosition(t *testing.T) {
	e, _, tr := newTestEngine(t)
	m := seedMarket(t, e, tr, "SPORTS-TEST-A-20250815")
	ctx := context.Background()

	if err := e.Resolve(ctx, adminToken, m.ID, model.SideYes, closeTime); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	_, err := e.Claim(ctx, m.ID, "nobody")
	if !errors.Is(err, engine.ErrPositionNotFound) {
		t.Errorf("expected ErrPositionNotFound, got %v", err)
	}
}

func TestClaim_Twice(t *testing.T) {
	e, _, tr := newTestEngine(t)
	m := seedMarket(t, e, tr, "SPORTS-TEST-A-20250815", "alice")
	ctx := context.Background()

	if _, err := e.Buy(ctx, m.ID, "alice", model.SideYes, 1_000_000, tradeTime); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if err := e.Resolve(ctx, adminToken, m.ID, model.SideYes, closeTime); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if _, err := e.Claim(ctx, m.ID, "alice"); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}

	_, err := e.Claim(ctx, m.ID, "alice")
	if !errors.Is(err, engine.ErrPositionNotFound) {
		t.Errorf("second claim must fail with ErrPositionNotFound, got %v", err)
	}
}

func TestClaim_MixedPositionPaysWinningSideOnly(t *testing.T) {
	e, _, tr := newTestEngine(t)
	m := seedMarket(t, e, tr, "SPORTS-TEST-A-20250815", "alice")
	ctx := context.Background()

	// Alice holds both sides.
	if _, err := e.Buy(ctx, m.ID, "alice", model.SideYes, 1_000_000_000, tradeTime); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if _, err := e.Buy(ctx, m.ID, "alice", model.SideNo, 1_000_000_000, tradeTime); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if err := e.Resolve(ctx, adminToken, m.ID, model.SideYes, closeTime); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	// She is the only YES holder, so she collects the full liquidity;
	// her NO shares pay nothing.
	payout, err := e.Claim(ctx, m.ID, "alice")
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if payout != 2_000_000_000 {
		t.Errorf("expected payout 2000000000, got %d", payout)
	}

	if yes, no, _ := e.GetPosition(ctx, m.ID, "alice"); yes != 0 || no != 0 {
		t.Errorf("claim must consume both sides, got %d/%d", yes, no)
	}
}

func TestClaim_SequentialWinnersNeverOverdrawPool(t *testing.T) {
	e, _, tr := newTestEngine(t)
	m := seedMarket(t, e, tr, "SPORTS-TEST-A-20250815", "u1", "u2", "u3")
	ctx := context.Background()

	// Two YES buyers at different prices, one NO buyer funding the pot.
	if _, err := e.Buy(ctx, m.ID, "u1", model.SideYes, 1_000_000_000, tradeTime); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if _, err := e.Buy(ctx, m.ID, "u2", model.SideYes, 1_000_000_000, tradeTime); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if _, err := e.Buy(ctx, m.ID, "u3", model.SideNo, 1_000_000_000, tradeTime); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if err := e.Resolve(ctx, adminToken, m.ID, model.SideYes, closeTime); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	liquidityAtResolution := mustMarket(t, e, m.ID).TotalLiquidity
	if liquidityAtResolution != 3_000_000_000 {
		t.Fatalf("expected liquidity 3e9 at resolution, got %d", liquidityAtResolution)
	}

	p1, err := e.Claim(ctx, m.ID, "u1")
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	p2, err := e.Claim(ctx, m.ID, "u2")
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	if p1 == 0 || p2 == 0 {
		t.Errorf("winners must receive non-zero payouts, got %d and %d", p1, p2)
	}
	// u1 bought at the better price and claimed first.
	if p1 <= p2 {
		t.Errorf("earlier, cheaper entry should pay more: p1=%d p2=%d", p1, p2)
	}
	if p1+p2 > liquidityAtResolution {
		t.Errorf("claims %d+%d overdraw liquidity %d", p1, p2, liquidityAtResolution)
	}

	got := mustMarket(t, e, m.ID)
	if got.YesPool != liquidityAtResolution-p1-p2 {
		t.Errorf("remaining pool %d != %d - claims", got.YesPool, liquidityAtResolution)
	}
	assertInvariants(t, got)
}

// Full lifecycle: even market, opposing bets, YES resolution, winner paid,
// loser forfeits.
func TestLifecycle_OpposingBets(t *testing.T) {
	e, _, tr := newTestEngine(t)
	m := seedMarket(t, e, tr, "POLITICS-ELECTION-20250815", "yes-bettor", "no-bettor")
	ctx := context.Background()

	if m.YesPrice != 5000 || m.NoPrice != 5000 {
		t.Fatalf("fresh market must open at even odds, got %d/%d", m.YesPrice, m.NoPrice)
	}

	if _, err := e.Buy(ctx, m.ID, "yes-bettor", model.SideYes, 1_000_000_000, tradeTime); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	mid := mustMarket(t, e, m.ID)
	if mid.YesPrice <= 5000 || mid.NoPrice >= 5000 {
		t.Errorf("YES buy must move prices toward YES, got %d/%d", mid.YesPrice, mid.NoPrice)
	}
	assertInvariants(t, mid)

	if _, err := e.Buy(ctx, m.ID, "no-bettor", model.SideNo, 1_000_000_000, tradeTime); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if err := e.Resolve(ctx, adminToken, m.ID, model.SideYes, closeTime.Add(time.Hour)); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	payout, err := e.Claim(ctx, m.ID, "yes-bettor")
	if err != nil {
		t.Fatalf("winner claim failed: %v", err)
	}
	if payout == 0 {
		t.Error("winner payout must be non-zero")
	}

	_, err = e.Claim(ctx, m.ID, "no-bettor")
	if !errors.Is(err, engine.ErrInsufficientFunds) {
		t.Errorf("loser claim must fail with ErrInsufficientFunds, got %v", err)
	}
}
