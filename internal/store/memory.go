package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lastone-games/prediction-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing and
// development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  uint64
	markets map[uint64]*model.Market
	// positions is keyed user → market ID. A user key with no markets is
	// never kept around.
	positions map[string]map[uint64]*model.UserPosition
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:    1,
		markets:   make(map[uint64]*model.Market),
		positions: make(map[string]map[uint64]*model.UserPosition),
	}
}

func (s *MemoryStore) CreateMarket(_ context.Context, m *model.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.markets {
		if existing.Ticker == m.Ticker {
			return fmt.Errorf("market for ticker %s: %w", m.Ticker, ErrDuplicateTicker)
		}
	}

	m.ID = s.nextID
	s.nextID++

	// Store a copy to avoid external mutation.
	copy := *m
	s.markets[m.ID] = &copy
	return nil
}

func (s *MemoryStore) GetMarket(_ context.Context, id uint64) (*model.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.markets[id]
	if !ok {
		return nil, fmt.Errorf("market %d: %w", id, ErrNotFound)
	}
	copy := *m
	return &copy, nil
}

func (s *MemoryStore) ListMarkets(_ context.Context) ([]model.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	markets := make([]model.Market, 0, len(s.markets))
	for _, m := range s.markets {
		markets = append(markets, *m)
	}
	sort.Slice(markets, func(i, j int) bool { return markets[i].ID > markets[j].ID })
	return markets, nil
}

func (s *MemoryStore) UpdateMarket(_ context.Context, m *model.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.markets[m.ID]; !ok {
		return fmt.Errorf("market %d: %w", m.ID, ErrNotFound)
	}
	copy := *m
	s.markets[m.ID] = &copy
	return nil
}

func (s *MemoryStore) GetPosition(_ context.Context, user string, marketID uint64) (*model.UserPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.positions[user][marketID]
	if !ok {
		return nil, fmt.Errorf("position %s/%d: %w", user, marketID, ErrNotFound)
	}
	copy := *p
	return &copy, nil
}

func (s *MemoryStore) SavePosition(_ context.Context, p *model.UserPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byMarket, ok := s.positions[p.User]
	if !ok {
		byMarket = make(map[uint64]*model.UserPosition)
		s.positions[p.User] = byMarket
	}
	copy := *p
	byMarket[p.MarketID] = &copy
	return nil
}

func (s *MemoryStore) DeletePosition(_ context.Context, user string, marketID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byMarket, ok := s.positions[user]
	if _, exists := byMarket[marketID]; !ok || !exists {
		return fmt.Errorf("position %s/%d: %w", user, marketID, ErrNotFound)
	}

	delete(byMarket, marketID)
	if len(byMarket) == 0 {
		delete(s.positions, user)
	}
	return nil
}

func (s *MemoryStore) ListUserPositions(_ context.Context, user string) ([]model.UserPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byMarket := s.positions[user]
	positions := make([]model.UserPosition, 0, len(byMarket))
	for _, p := range byMarket {
		positions = append(positions, *p)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].MarketID < positions[j].MarketID })
	return positions, nil
}

// HasUserRecord reports whether any position entry remains for the user.
// Exposed for tests asserting ledger-record garbage collection.
func (s *MemoryStore) HasUserRecord(user string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.positions[user]
	return ok
}
