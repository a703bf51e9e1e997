package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mtlprog/coinfolio/internal/domain"
)

const maxBodyBytes = 1 << 16

// Holdings is the mutable holdings list.
type Holdings interface {
	List() []domain.Holding
	Upsert(ctx context.Context, symbol string, amount float64) ([]domain.Holding, error)
	Remove(ctx context.Context, symbol string) (bool, []domain.Holding, error)
}

// Valuer prices the holdings list.
type Valuer interface {
	Valuate(ctx context.Context) domain.Valuation
}

// PortfolioHandler provides HTTP endpoints for the holdings list.
type PortfolioHandler struct {
	holdings Holdings
	valuer   Valuer
}

// NewPortfolioHandler creates a new portfolio handler. valuer may be nil,
// in which case the valuation route is not registered.
func NewPortfolioHandler(holdings Holdings, valuer Valuer) *PortfolioHandler {
	return &PortfolioHandler{holdings: holdings, valuer: valuer}
}

type upsertRequest struct {
	Symbol string   `json:"symbol"`
	Amount *float64 `json:"amount"`
}

// List handles GET /portfolio.
func (h *PortfolioHandler) List(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.holdings.List())
}

// Upsert handles POST /portfolio.
func (h *PortfolioHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Amount == nil {
		writeError(w, http.StatusBadRequest, "amount is required")
		return
	}

	updated, err := h.holdings.Upsert(r.Context(), req.Symbol, *req.Amount)
	if err != nil {
		h.fail(w, "upsert", req.Symbol, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Remove handles DELETE /portfolio/{symbol}.
func (h *PortfolioHandler) Remove(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	removed, updated, err := h.holdings.Remove(r.Context(), symbol)
	if err != nil {
		h.fail(w, "remove", symbol, err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "asset not in portfolio")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Valuation handles GET /portfolio/valuation.
func (h *PortfolioHandler) Valuation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.valuer.Valuate(r.Context()))
}

func (h *PortfolioHandler) fail(w http.ResponseWriter, op, symbol string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("portfolio update failed", "op", op, "symbol", symbol, "error", err)
		writeError(w, status, "failed to save portfolio")
		return
	}
	writeError(w, status, err.Error())
}
