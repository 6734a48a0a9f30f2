package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lastone-games/prediction-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// Pool balances and share counters are stored as NUMERIC(20,0) and moved
// through the wire as text, preserving the full uint64 range.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Schema is the DDL for the two tables the store owns. Market IDs come
// from a BIGSERIAL so creation order matches ID order.
const Schema = `
CREATE TABLE IF NOT EXISTS markets (
	id              BIGSERIAL PRIMARY KEY,
	ticker          TEXT NOT NULL UNIQUE,
	question        TEXT NOT NULL,
	creator         TEXT NOT NULL,
	end_time        TIMESTAMPTZ NOT NULL,
	yes_price       NUMERIC(20,0) NOT NULL,
	no_price        NUMERIC(20,0) NOT NULL,
	status          TEXT NOT NULL,
	outcome         TEXT NOT NULL DEFAULT '',
	yes_shares      NUMERIC(20,0) NOT NULL DEFAULT 0,
	no_shares       NUMERIC(20,0) NOT NULL DEFAULT 0,
	yes_pool        NUMERIC(20,0) NOT NULL DEFAULT 0,
	no_pool         NUMERIC(20,0) NOT NULL DEFAULT 0,
	total_liquidity NUMERIC(20,0) NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
	user_id    TEXT NOT NULL,
	market_id  BIGINT NOT NULL REFERENCES markets(id),
	yes_shares NUMERIC(20,0) NOT NULL DEFAULT 0,
	no_shares  NUMERIC(20,0) NOT NULL DEFAULT 0,
	PRIMARY KEY (user_id, market_id)
);
`

// Init creates the schema if it does not exist.
func (s *PostgresStore) Init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}

const marketColumns = `id, ticker, question, creator, end_time,
	yes_price::TEXT, no_price::TEXT, status, outcome,
	yes_shares::TEXT, no_shares::TEXT,
	yes_pool::TEXT, no_pool::TEXT, total_liquidity::TEXT, created_at`

func (s *PostgresStore) CreateMarket(ctx context.Context, m *model.Market) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO markets (ticker, question, creator, end_time,
		        yes_price, no_price, status, outcome,
		        yes_shares, no_shares, yes_pool, no_pool, total_liquidity, created_at)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7, $8,
		        $9::NUMERIC, $10::NUMERIC, $11::NUMERIC, $12::NUMERIC, $13::NUMERIC, $14)
		 RETURNING id`,
		m.Ticker, m.Question, m.Creator, m.EndTime,
		u64(m.YesPrice), u64(m.NoPrice), m.Status, string(m.Outcome),
		u64(m.YesShares), u64(m.NoShares),
		u64(m.YesPool), u64(m.NoPool), u64(m.TotalLiquidity), m.CreatedAt,
	).Scan(&m.ID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("market for ticker %s: %w", m.Ticker, ErrDuplicateTicker)
	}
	return err
}

func (s *PostgresStore) GetMarket(ctx context.Context, id uint64) (*model.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketColumns+` FROM markets WHERE id = $1`, id)

	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("market %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get market %d: %w", id, err)
	}
	return m, nil
}

func (s *PostgresStore) ListMarkets(ctx context.Context) ([]model.Market, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+marketColumns+` FROM markets ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var markets []model.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, err
		}
		markets = append(markets, *m)
	}
	return markets, rows.Err()
}

func (s *PostgresStore) UpdateMarket(ctx context.Context, m *model.Market) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE markets
		 SET yes_price = $2::NUMERIC, no_price = $3::NUMERIC,
		     status = $4, outcome = $5,
		     yes_shares = $6::NUMERIC, no_shares = $7::NUMERIC,
		     yes_pool = $8::NUMERIC, no_pool = $9::NUMERIC,
		     total_liquidity = $10::NUMERIC
		 WHERE id = $1`,
		m.ID,
		u64(m.YesPrice), u64(m.NoPrice), m.Status, string(m.Outcome),
		u64(m.YesShares), u64(m.NoShares),
		u64(m.YesPool), u64(m.NoPool), u64(m.TotalLiquidity),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("market %d: %w", m.ID, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) GetPosition(ctx context.Context, user string, marketID uint64) (*model.UserPosition, error) {
	var p model.UserPosition
	var yesS, noS string

	err := s.pool.QueryRow(ctx,
		`SELECT user_id, market_id, yes_shares::TEXT, no_shares::TEXT
		 FROM positions WHERE user_id = $1 AND market_id = $2`, user, marketID).
		Scan(&p.User, &p.MarketID, &yesS, &noS)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("position %s/%d: %w", user, marketID, ErrNotFound)
		}
		return nil, fmt.Errorf("get position %s/%d: %w", user, marketID, err)
	}

	p.YesShares = parseU64(yesS)
	p.NoShares = parseU64(noS)
	return &p, nil
}

func (s *PostgresStore) SavePosition(ctx context.Context, p *model.UserPosition) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO positions (user_id, market_id, yes_shares, no_shares)
		 VALUES ($1, $2, $3::NUMERIC, $4::NUMERIC)
		 ON CONFLICT (user_id, market_id)
		 DO UPDATE SET yes_shares = EXCLUDED.yes_shares, no_shares = EXCLUDED.no_shares`,
		p.User, p.MarketID, u64(p.YesShares), u64(p.NoShares),
	)
	return err
}

func (s *PostgresStore) DeletePosition(ctx context.Context, user string, marketID uint64) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM positions WHERE user_id = $1 AND market_id = $2`, user, marketID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("position %s/%d: %w", user, marketID, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) ListUserPositions(ctx context.Context, user string) ([]model.UserPosition, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, market_id, yes_shares::TEXT, no_shares::TEXT
		 FROM positions WHERE user_id = $1 ORDER BY market_id`, user)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []model.UserPosition
	for rows.Next() {
		var p model.UserPosition
		var yesS, noS string
		if err := rows.Scan(&p.User, &p.MarketID, &yesS, &noS); err != nil {
			return nil, err
		}
		p.YesShares = parseU64(yesS)
		p.NoShares = parseU64(noS)
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// scanMarket reads one markets row.
func scanMarket(row pgx.Row) (*model.Market, error) {
	var m model.Market
	var outcome string
	var yesPrice, noPrice, yesShares, noShares, yesPool, noPool, total string

	err := row.Scan(&m.ID, &m.Ticker, &m.Question, &m.Creator, &m.EndTime,
		&yesPrice, &noPrice, &m.Status, &outcome,
		&yesShares, &noShares, &yesPool, &noPool, &total, &m.CreatedAt)
	if err != nil {
		return nil, err
	}

	m.Outcome = model.Side(outcome)
	m.YesPrice = parseU64(yesPrice)
	m.NoPrice = parseU64(noPrice)
	m.YesShares = parseU64(yesShares)
	m.NoShares = parseU64(noShares)
	m.YesPool = parseU64(yesPool)
	m.NoPool = parseU64(noPool)
	m.TotalLiquidity = parseU64(total)
	return &m, nil
}

func u64(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func parseU64(s string) uint64 {
	v, _ := strconv.ParseUint(s, 10, 64)
	return v
}
