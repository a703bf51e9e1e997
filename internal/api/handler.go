package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/samber/lo"

	"github.com/mtlprog/coinfolio/internal/domain"
)

// Coins lists the tracked assets.
type Coins interface {
	List(ctx context.Context) ([]domain.AssetRecord, error)
}

// Prices resolves the current quote of one symbol.
type Prices interface {
	GetPrice(ctx context.Context, symbol string) (domain.PriceQuote, error)
}

// Handler provides HTTP endpoints for coins and prices.
type Handler struct {
	coins  Coins
	prices Prices
}

// NewHandler creates a new API handler.
func NewHandler(coins Coins, prices Prices) *Handler {
	return &Handler{coins: coins, prices: prices}
}

// ListCoins handles GET /coins.
func (h *Handler) ListCoins(w http.ResponseWriter, r *http.Request) {
	records, err := h.coins.List(r.Context())
	if err != nil {
		slog.Error("failed to list coins", "error", err)
		writeError(w, http.StatusInternalServerError, "coin listing unavailable")
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(records, func(rec domain.AssetRecord, _ int) domain.CoinSummary {
		return rec.Summary()
	}))
}

// GetPrice handles GET /price/{symbol}.
func (h *Handler) GetPrice(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	q, err := h.prices.GetPrice(r.Context(), symbol)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			slog.Warn("failed to get price", "symbol", symbol, "error", err)
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
