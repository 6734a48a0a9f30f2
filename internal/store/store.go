// Package store defines the persistence interface for the prediction
// engine. Implementations include PostgreSQL (source of truth), Redis
// (read-through cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"

	"github.com/lastone-games/prediction-engine/internal/model"
)

// ErrNotFound is returned when a market or position does not exist.
// Implementations wrap it with context; callers match with errors.Is.
var ErrNotFound = errors.New("store: not found")

// ErrDuplicateTicker is returned when creating a market whose ticker is
// already taken.
var ErrDuplicateTicker = errors.New("store: duplicate ticker")

// Store is the persistence interface. Markets and positions are owned
// exclusively by the store; callers mutate copies and commit them back
// through UpdateMarket/SavePosition.
type Store interface {
	// --- Market operations ---

	// CreateMarket persists a new market and assigns its sequential ID.
	CreateMarket(ctx context.Context, market *model.Market) error

	// GetMarket retrieves a market by ID.
	GetMarket(ctx context.Context, id uint64) (*model.Market, error)

	// ListMarkets returns all markets, newest first.
	ListMarkets(ctx context.Context) ([]model.Market, error)

	// UpdateMarket overwrites a market's mutable state.
	UpdateMarket(ctx context.Context, market *model.Market) error

	// --- Position operations ---

	// GetPosition retrieves one user's position in one market.
	GetPosition(ctx context.Context, user string, marketID uint64) (*model.UserPosition, error)

	// SavePosition creates or overwrites a position entry.
	SavePosition(ctx context.Context, position *model.UserPosition) error

	// DeletePosition removes a position entry. Removing a user's last
	// position drops their ledger record entirely.
	DeletePosition(ctx context.Context, user string, marketID uint64) error

	// ListUserPositions returns all of a user's positions across markets.
	ListUserPositions(ctx context.Context, user string) ([]model.UserPosition, error)
}
