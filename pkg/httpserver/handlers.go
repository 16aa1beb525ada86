package httpserver

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/microarena/duelcore/internal/duel"
	"github.com/microarena/duelcore/internal/ledger"
	"github.com/microarena/duelcore/pkg/cache"
	"github.com/microarena/duelcore/pkg/types"
	"go.uber.org/zap"
)

// engineHandler maps HTTP requests onto the engine operations and the error
// taxonomy onto status codes.
type engineHandler struct {
	registry       *duel.Registry
	book           *duel.Book
	ledger         *ledger.Ledger
	duelCache      cache.Cache
	duelCacheTTL   time.Duration
	openingBalance int64
	logger         *zap.Logger
}

func newEngineHandler(cfg *Config) *engineHandler {
	return &engineHandler{
		registry:       cfg.Registry,
		book:           cfg.Book,
		ledger:         cfg.Ledger,
		duelCache:      cfg.DuelCache,
		duelCacheTTL:   cfg.DuelCacheTTL,
		openingBalance: cfg.OpeningBalance,
		logger:         cfg.Logger,
	}
}

// ErrorResponse is the HTTP error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusFor maps the engine error taxonomy onto HTTP status codes:
// validation 400, state conflicts 409, insufficient funds 402, not found 404,
// everything else (including integrity violations) 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, types.ErrIllegalTransition),
		errors.Is(err, types.ErrDuelNotAcceptingBets):
		return http.StatusConflict
	case errors.Is(err, types.ErrInvalidAmount),
		errors.Is(err, types.ErrInvalidParticipants),
		errors.Is(err, types.ErrUnknownParticipant):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *engineHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *engineHandler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request-failed", zap.Error(err))
	}
	h.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func (h *engineHandler) invalidateDuel(duelID string) {
	if h.duelCache != nil {
		h.duelCache.Delete("duel:" + duelID)
	}
}

// CreateAccountRequest binds an external identity to a ledger account.
type CreateAccountRequest struct {
	ID             string `json:"id"`
	DisplayName    string `json:"display_name"`
	OpeningBalance *int64 `json:"opening_balance,omitempty"`
}

func (h *engineHandler) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	opening := h.openingBalance
	if req.OpeningBalance != nil {
		opening = *req.OpeningBalance
	}

	account, err := h.ledger.CreateAccount(r.Context(), req.ID, req.DisplayName, opening)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, account)
}

func (h *engineHandler) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.ledger.GetAccount(r.Context(), chi.URLParam(r, "accountID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, account)
}

// CreateDuelRequest creates a duel in waiting status.
type CreateDuelRequest struct {
	Type         types.DuelType      `json:"type"`
	Participants []types.Participant `json:"participants"`
	MarketEvent  string              `json:"market_event"`
}

func (h *engineHandler) handleCreateDuel(w http.ResponseWriter, r *http.Request) {
	var req CreateDuelRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	created, err := h.registry.Create(r.Context(), req.Type, req.Participants, req.MarketEvent)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *engineHandler) handleListDuels(w http.ResponseWriter, r *http.Request) {
	status := types.DuelStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = types.DuelStatusActive
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	duels, err := h.registry.ListByStatus(r.Context(), status, limit)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, duels)
}

func (h *engineHandler) handleGetDuel(w http.ResponseWriter, r *http.Request) {
	duelID := chi.URLParam(r, "duelID")
	cacheKey := "duel:" + duelID

	if h.duelCache != nil {
		if cached, found := h.duelCache.Get(cacheKey); found {
			if snapshot, ok := cached.(*types.Duel); ok {
				h.writeJSON(w, http.StatusOK, snapshot)
				return
			}
		}
	}

	snapshot, err := h.registry.Get(r.Context(), duelID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if h.duelCache != nil {
		h.duelCache.Set(cacheKey, snapshot, h.duelCacheTTL)
	}
	h.writeJSON(w, http.StatusOK, snapshot)
}

func (h *engineHandler) handleStartDuel(w http.ResponseWriter, r *http.Request) {
	duelID := chi.URLParam(r, "duelID")

	err := h.registry.Start(r.Context(), duelID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.invalidateDuel(duelID)
	w.WriteHeader(http.StatusNoContent)
}

// ResolveDuelRequest names the winning participant.
type ResolveDuelRequest struct {
	WinnerID string `json:"winner_id"`
}

func (h *engineHandler) handleResolveDuel(w http.ResponseWriter, r *http.Request) {
	duelID := chi.URLParam(r, "duelID")

	var req ResolveDuelRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	err = h.registry.Resolve(r.Context(), duelID, req.WinnerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.invalidateDuel(duelID)
	w.WriteHeader(http.StatusNoContent)
}

// CancelDuelRequest carries the abort reason.
type CancelDuelRequest struct {
	Reason string `json:"reason"`
}

func (h *engineHandler) handleCancelDuel(w http.ResponseWriter, r *http.Request) {
	duelID := chi.URLParam(r, "duelID")

	var req CancelDuelRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	err = h.registry.Cancel(r.Context(), duelID, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.invalidateDuel(duelID)
	w.WriteHeader(http.StatusNoContent)
}

// handleUpdateExternalState stores the raw request body as the duel's opaque
// external state blob; the engine never validates it.
func (h *engineHandler) handleUpdateExternalState(w http.ResponseWriter, r *http.Request) {
	duelID := chi.URLParam(r, "duelID")

	blob, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "unreadable request body"})
		return
	}

	err = h.registry.UpdateExternalState(r.Context(), duelID, blob)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.invalidateDuel(duelID)
	w.WriteHeader(http.StatusNoContent)
}

// PlaceBetRequest places a stake on one of the duel's participants.
type PlaceBetRequest struct {
	BettorAccountID string `json:"bettor_account_id"`
	Amount          int64  `json:"amount"`
	Prediction      string `json:"prediction"`
}

func (h *engineHandler) handlePlaceBet(w http.ResponseWriter, r *http.Request) {
	duelID := chi.URLParam(r, "duelID")

	var req PlaceBetRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	bet, err := h.book.PlaceBet(r.Context(), duelID, req.BettorAccountID, req.Amount, req.Prediction)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, bet)
}

func (h *engineHandler) handleListBets(w http.ResponseWriter, r *http.Request) {
	bets, err := h.book.ListBets(r.Context(), chi.URLParam(r, "duelID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if bets == nil {
		bets = []*types.Bet{}
	}
	h.writeJSON(w, http.StatusOK, bets)
}
