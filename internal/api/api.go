// Package api provides the HTTP handlers for creating markets, executing
// trades, resolving outcomes, and querying positions.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lastone-games/prediction-engine/internal/auth"
	"github.com/lastone-games/prediction-engine/internal/bank"
	"github.com/lastone-games/prediction-engine/internal/clock"
	"github.com/lastone-games/prediction-engine/internal/engine"
	"github.com/lastone-games/prediction-engine/internal/model"
	"github.com/lastone-games/prediction-engine/internal/notify"
	"github.com/lastone-games/prediction-engine/internal/risk"
	"github.com/lastone-games/prediction-engine/internal/store"
	"github.com/lastone-games/prediction-engine/internal/ticker"
)

// AdminTokenHeader carries the token for privileged operations.
const AdminTokenHeader = "X-Admin-Token"

// Server exposes the engine over HTTP.
type Server struct {
	engine *engine.Engine
	clock  clock.Clock
	ledger *bank.LedgerTreasury // optional; enables faucet/balance endpoints
	hub    *notify.Hub          // optional; enables the /ws endpoint
}

// NewServer creates an HTTP server over the engine. Pass nil for ledger
// or hub to disable the corresponding endpoints.
func NewServer(e *engine.Engine, clk clock.Clock, ledger *bank.LedgerTreasury, hub *notify.Hub) *Server {
	return &Server{engine: e, clock: clk, ledger: ledger, hub: hub}
}

// Routes mounts every endpoint on a fresh router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/markets", s.CreateMarket)
		r.Get("/markets", s.ListMarkets)
		r.Get("/markets/{marketID}", s.GetMarket)
		r.Get("/markets/{marketID}/price", s.GetPrice)
		r.Get("/markets/{marketID}/quote", s.GetQuote)
		r.Post("/markets/{marketID}/resolve", s.ResolveMarket)
		r.Post("/markets/{marketID}/claim", s.Claim)
		r.Post("/trade", s.ExecuteTrade)
		r.Get("/positions/{userID}", s.GetPortfolio)
		r.Get("/positions/{userID}/{marketID}", s.GetPosition)
		if s.ledger != nil {
			r.Post("/faucet", s.Faucet)
			r.Get("/balance/{userID}", s.GetBalance)
		}
	})
	if s.hub != nil {
		r.Get("/ws", s.hub.HandleWS)
	}
	return r
}

// --- Request/Response types ---

// CreateMarketRequest is the JSON body for market creation.
type CreateMarketRequest struct {
	Creator  string `json:"creator"`
	Ticker   string `json:"ticker"` // {CATEGORY}-{SLUG}-{YYYYMMDD}
	Question string `json:"question"`
}

// TradeRequest is the JSON body for POST /api/v1/trade.
type TradeRequest struct {
	UserID   string `json:"user_id"`
	MarketID uint64 `json:"market_id"`
	Side     string `json:"side"`   // "YES" or "NO"
	Action   string `json:"action"` // "buy" or "sell"
	Amount   uint64 `json:"amount"` // payment for buys, shares for sells
}

// TradeResponse is the JSON body returned from POST /api/v1/trade.
type TradeResponse struct {
	UserID   string `json:"user_id"`
	MarketID uint64 `json:"market_id"`
	Side     string `json:"side"`
	Action   string `json:"action"`
	Amount   uint64 `json:"amount"`
	Filled   uint64 `json:"filled"` // shares bought or value returned
	YesPrice uint64 `json:"yes_price"`
	NoPrice  uint64 `json:"no_price"`
}

// ResolveRequest is the JSON body for market resolution.
type ResolveRequest struct {
	Outcome string `json:"outcome"`
}

// ClaimRequest is the JSON body for claiming a settled position.
type ClaimRequest struct {
	UserID string `json:"user_id"`
}

// ClaimResponse is the JSON body returned from a successful claim.
type ClaimResponse struct {
	UserID   string `json:"user_id"`
	MarketID uint64 `json:"market_id"`
	Payout   uint64 `json:"payout"`
}

// PositionResponse is a user's holdings in one market.
type PositionResponse struct {
	UserID    string `json:"user_id"`
	MarketID  uint64 `json:"market_id"`
	YesShares uint64 `json:"yes_shares"`
	NoShares  uint64 `json:"no_shares"`
}

// FaucetRequest is the JSON body for test-environment deposits.
type FaucetRequest struct {
	UserID string `json:"user_id"`
	Amount uint64 `json:"amount"`
}

// --- HTTP Handlers ---

// CreateMarket handles POST /api/v1/markets
func (s *Server) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req CreateMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Creator == "" {
		writeError(w, "creator is required", http.StatusBadRequest)
		return
	}

	m, err := s.engine.CreateMarket(r.Context(), req.Creator, req.Ticker, req.Question, s.clock.Now())
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, m)
}

// ListMarkets handles GET /api/v1/markets
func (s *Server) ListMarkets(w http.ResponseWriter, r *http.Request) {
	markets, err := s.engine.ListMarkets(r.Context())
	if err != nil {
		writeError(w, "failed to list markets", http.StatusInternalServerError)
		return
	}
	if markets == nil {
		markets = []model.Market{}
	}
	writeJSON(w, http.StatusOK, markets)
}

// GetMarket handles GET /api/v1/markets/{marketID}
func (s *Server) GetMarket(w http.ResponseWriter, r *http.Request) {
	id, ok := marketID(w, r)
	if !ok {
		return
	}
	m, err := s.engine.GetMarket(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// GetPrice handles GET /api/v1/markets/{marketID}/price
func (s *Server) GetPrice(w http.ResponseWriter, r *http.Request) {
	id, ok := marketID(w, r)
	if !ok {
		return
	}
	p, err := s.engine.GetPrices(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetQuote handles GET /api/v1/markets/{marketID}/quote
//
// Exactly one of ?payment= (shares a payment buys) or ?shares= (value a
// sale returns) must be given, with ?side=YES|NO.
func (s *Server) GetQuote(w http.ResponseWriter, r *http.Request) {
	id, ok := marketID(w, r)
	if !ok {
		return
	}
	side := model.Side(r.URL.Query().Get("side"))
	if !side.Valid() {
		writeError(w, "side must be YES or NO", http.StatusBadRequest)
		return
	}

	payment := r.URL.Query().Get("payment")
	shares := r.URL.Query().Get("shares")

	switch {
	case payment != "" && shares == "":
		amount, err := strconv.ParseUint(payment, 10, 64)
		if err != nil {
			writeError(w, "invalid payment", http.StatusBadRequest)
			return
		}
		quoted, err := s.engine.QuoteSharesForPayment(r.Context(), id, side, amount)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]uint64{"shares": quoted})
	case shares != "" && payment == "":
		amount, err := strconv.ParseUint(shares, 10, 64)
		if err != nil {
			writeError(w, "invalid shares", http.StatusBadRequest)
			return
		}
		quoted, err := s.engine.QuotePaymentForShares(r.Context(), id, side, amount)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]uint64{"payment": quoted})
	default:
		writeError(w, "exactly one of payment or shares is required", http.StatusBadRequest)
	}
}

// ExecuteTrade handles POST /api/v1/trade
func (s *Server) ExecuteTrade(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		writeError(w, "user_id is required", http.StatusBadRequest)
		return
	}
	side := model.Side(req.Side)
	if !side.Valid() {
		writeError(w, "side must be YES or NO", http.StatusBadRequest)
		return
	}
	if req.Amount == 0 {
		writeError(w, "amount must be positive", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	now := s.clock.Now()

	var filled uint64
	var err error
	switch req.Action {
	case "buy":
		filled, err = s.engine.Buy(ctx, req.MarketID, req.UserID, side, req.Amount, now)
	case "sell":
		filled, err = s.engine.Sell(ctx, req.MarketID, req.UserID, side, req.Amount, now)
	default:
		writeError(w, "action must be buy or sell", http.StatusBadRequest)
		return
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}

	p, err := s.engine.GetPrices(ctx, req.MarketID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TradeResponse{
		UserID:   req.UserID,
		MarketID: req.MarketID,
		Side:     req.Side,
		Action:   req.Action,
		Amount:   req.Amount,
		Filled:   filled,
		YesPrice: p.YesPrice,
		NoPrice:  p.NoPrice,
	})
}

// ResolveMarket handles POST /api/v1/markets/{marketID}/resolve
// Requires the admin token in the X-Admin-Token header.
func (s *Server) ResolveMarket(w http.ResponseWriter, r *http.Request) {
	id, ok := marketID(w, r)
	if !ok {
		return
	}
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	token := r.Header.Get(AdminTokenHeader)
	if err := s.engine.Resolve(r.Context(), token, id, model.Side(req.Outcome), s.clock.Now()); err != nil {
		writeEngineError(w, err)
		return
	}

	m, err := s.engine.GetMarket(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Claim handles POST /api/v1/markets/{marketID}/claim
func (s *Server) Claim(w http.ResponseWriter, r *http.Request) {
	id, ok := marketID(w, r)
	if !ok {
		return
	}
	var req ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		writeError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	payout, err := s.engine.Claim(r.Context(), id, req.UserID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ClaimResponse{
		UserID:   req.UserID,
		MarketID: id,
		Payout:   payout,
	})
}

// GetPosition handles GET /api/v1/positions/{userID}/{marketID}
func (s *Server) GetPosition(w http.ResponseWriter, r *http.Request) {
	id, ok := marketID(w, r)
	if !ok {
		return
	}
	user := chi.URLParam(r, "userID")

	yes, no, err := s.engine.GetPosition(r.Context(), id, user)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PositionResponse{
		UserID:    user,
		MarketID:  id,
		YesShares: yes,
		NoShares:  no,
	})
}

// GetPortfolio handles GET /api/v1/positions/{userID}
func (s *Server) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "userID")

	positions, err := s.engine.ListPositions(r.Context(), user)
	if err != nil {
		writeError(w, "failed to load positions", http.StatusInternalServerError)
		return
	}
	if positions == nil {
		positions = []model.UserPosition{}
	}
	writeJSON(w, http.StatusOK, positions)
}

// Faucet handles POST /api/v1/faucet — test-environment deposits into the
// in-process ledger.
func (s *Server) Faucet(w http.ResponseWriter, r *http.Request) {
	var req FaucetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.Amount == 0 {
		writeError(w, "user_id and positive amount are required", http.StatusBadRequest)
		return
	}

	s.ledger.Deposit(req.UserID, req.Amount)
	writeJSON(w, http.StatusOK, map[string]string{
		"user_id": req.UserID,
		"balance": s.ledger.Balance(req.UserID).String(),
	})
}

// GetBalance handles GET /api/v1/balance/{userID}
func (s *Server) GetBalance(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "userID")
	writeJSON(w, http.StatusOK, map[string]string{
		"user_id": user,
		"balance": s.ledger.Balance(user).String(),
	})
}

// --- helpers ---

func marketID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "marketID"), 10, 64)
	if err != nil {
		writeError(w, "invalid market id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeEngineError maps engine errors onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrMarketNotFound),
		errors.Is(err, engine.ErrPositionNotFound):
		writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, engine.ErrMarketClosed),
		errors.Is(err, engine.ErrAlreadyResolved),
		errors.Is(err, engine.ErrNotYetClosed),
		errors.Is(err, risk.ErrPerMarketLimitExceeded),
		errors.Is(err, risk.ErrCorrelatedLimitExceeded),
		errors.Is(err, store.ErrDuplicateTicker):
		writeError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, engine.ErrInsufficientFunds):
		writeError(w, err.Error(), http.StatusPaymentRequired)
	case errors.Is(err, engine.ErrInvalidOutcome),
		errors.Is(err, ticker.ErrInvalidTicker),
		errors.Is(err, ticker.ErrInvalidCategory):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, err.Error(), http.StatusUnauthorized)
	default:
		writeError(w, err.Error(), http.StatusInternalServerError)
	}
}
