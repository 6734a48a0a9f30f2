package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lastone-games/prediction-engine/internal/model"
)

func seedMarket(t *testing.T, s *MemoryStore, ticker string) *model.Market {
	t.Helper()
	m := &model.Market{
		Ticker:    ticker,
		Question:  "test question",
		Creator:   "creator",
		EndTime:   time.Now().Add(24 * time.Hour).UTC(),
		YesPrice:  5000,
		NoPrice:   5000,
		Status:    model.StatusActive,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.CreateMarket(context.Background(), m); err != nil {
		t.Fatalf("failed to seed market: %v", err)
	}
	return m
}

func TestCreateMarket_AssignsSequentialIDs(t *testing.T) {
	s := NewMemoryStore()

	m1 := seedMarket(t, s, "SPORTS-A-20250815")
	m2 := seedMarket(t, s, "SPORTS-B-20250815")

	if m1.ID != 1 || m2.ID != 2 {
		t.Errorf("expected sequential IDs 1,2; got %d,%d", m1.ID, m2.ID)
	}
}

func TestCreateMarket_DuplicateTicker(t *testing.T) {
	s := NewMemoryStore()
	seedMarket(t, s, "SPORTS-A-20250815")

	m := &model.Market{Ticker: "SPORTS-A-20250815", Status: model.StatusActive}
	if err := s.CreateMarket(context.Background(), m); !errors.Is(err, ErrDuplicateTicker) {
		t.Errorf("expected ErrDuplicateTicker, got %v", err)
	}
}

func TestGetMarket_CopiesOut(t *testing.T) {
	s := NewMemoryStore()
	m := seedMarket(t, s, "SPORTS-A-20250815")

	got, err := s.GetMarket(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Mutating the returned copy must not affect stored state.
	got.YesPrice = 9000
	again, _ := s.GetMarket(context.Background(), m.ID)
	if again.YesPrice != 5000 {
		t.Errorf("stored market mutated through returned copy: %d", again.YesPrice)
	}
}

func TestGetMarket_NotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.GetMarket(context.Background(), 99)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateMarket_Missing(t *testing.T) {
	s := NewMemoryStore()
	err := s.UpdateMarket(context.Background(), &model.Market{ID: 7})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListMarkets_NewestFirst(t *testing.T) {
	s := NewMemoryStore()
	seedMarket(t, s, "SPORTS-A-20250815")
	seedMarket(t, s, "SPORTS-B-20250815")

	markets, err := s.ListMarkets(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(markets) != 2 {
		t.Fatalf("expected 2 markets, got %d", len(markets))
	}
	if markets[0].ID != 2 || markets[1].ID != 1 {
		t.Errorf("expected newest first, got IDs %d,%d", markets[0].ID, markets[1].ID)
	}
}

func TestPositions_LifecycleAndUserRecordGC(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.GetPosition(ctx, "alice", 1)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for absent position, got %v", err)
	}

	if err := s.SavePosition(ctx, &model.UserPosition{User: "alice", MarketID: 1, YesShares: 100}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := s.SavePosition(ctx, &model.UserPosition{User: "alice", MarketID: 2, NoShares: 50}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	positions, _ := s.ListUserPositions(ctx, "alice")
	if len(positions) != 2 {
		t.Fatalf("expected 2 positions, got %d", len(positions))
	}

	if err := s.DeletePosition(ctx, "alice", 1); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !s.HasUserRecord("alice") {
		t.Error("user record must survive while a position remains")
	}

	if err := s.DeletePosition(ctx, "alice", 2); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if s.HasUserRecord("alice") {
		t.Error("user record must be dropped with its last position")
	}
}

func TestDeletePosition_Missing(t *testing.T) {
	s := NewMemoryStore()
	err := s.DeletePosition(context.Background(), "nobody", 1)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
