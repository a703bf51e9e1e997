package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/coinfolio/internal/domain"
	"github.com/mtlprog/coinfolio/internal/holdings"
)

type mockCoins struct {
	records []domain.AssetRecord
	err     error
}

func (m *mockCoins) List(_ context.Context) ([]domain.AssetRecord, error) {
	return m.records, m.err
}

type mockPrices struct {
	quotes map[string]domain.PriceQuote
	err    error
}

func (m *mockPrices) GetPrice(_ context.Context, symbol string) (domain.PriceQuote, error) {
	if m.err != nil {
		return domain.PriceQuote{}, m.err
	}
	sym, err := domain.ParseSymbol(symbol)
	if err != nil {
		return domain.PriceQuote{}, err
	}
	q, ok := m.quotes[string(sym)]
	if !ok {
		return domain.PriceQuote{}, fmt.Errorf("price for %s: %w", sym, domain.ErrNotFound)
	}
	return q, nil
}

type mockValuer struct{}

func (mockValuer) Valuate(_ context.Context) domain.Valuation {
	return domain.Valuation{Currency: "usd", Total: decimal.NewFromInt(42), Complete: true, Holdings: []domain.HoldingValuation{}}
}

type failingPersister struct{}

func (failingPersister) Save(_ context.Context, _ []domain.Holding) error {
	return errors.New("disk full")
}

func newTestRouter(coins *mockCoins, prices *mockPrices, store Holdings) http.Handler {
	if store == nil {
		store = holdings.NewStore(nil, nil)
	}
	return NewRouter(NewHandler(coins, prices), NewPortfolioHandler(store, mockValuer{}), "*")
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeHoldings(t *testing.T, w *httptest.ResponseRecorder) []domain.Holding {
	t.Helper()
	var got []domain.Holding
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding body %q: %v", w.Body.String(), err)
	}
	return got
}

func TestListCoins(t *testing.T) {
	coins := &mockCoins{records: []domain.AssetRecord{
		{ID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", Image: "https://img/btc.png", CurrentPrice: 60000},
		{ID: "ethereum", Symbol: "ETH", Name: "Ethereum"},
	}}
	w := do(t, newTestRouter(coins, &mockPrices{}, nil), http.MethodGet, "/coins", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("coins = %d, want 2", len(got))
	}
	if got[0]["symbol"] != "BTC" || got[0]["id"] != "bitcoin" || got[0]["name"] != "Bitcoin" {
		t.Errorf("coins[0] = %v", got[0])
	}
	if _, ok := got[0]["currentPrice"]; ok {
		t.Error("summary should not expose price fields")
	}
}

func TestListCoinsFailure(t *testing.T) {
	coins := &mockCoins{err: fmt.Errorf("fetching listing: %w", domain.ErrUpstreamUnavailable)}
	w := do(t, newTestRouter(coins, &mockPrices{}, nil), http.MethodGet, "/coins", "")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestGetPrice(t *testing.T) {
	prices := &mockPrices{quotes: map[string]domain.PriceQuote{
		"BTC": {Symbol: "BTC", ID: "bitcoin", Price: 60000, Change24h: -1.2, Currency: "usd", FetchedAt: time.Now()},
	}}
	w := do(t, newTestRouter(&mockCoins{}, prices, nil), http.MethodGet, "/price/btc", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var q domain.PriceQuote
	if err := json.Unmarshal(w.Body.Bytes(), &q); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if q.Symbol != "BTC" || q.Price != 60000 || q.Change24h != -1.2 {
		t.Errorf("quote = %+v", q)
	}
}

func TestGetPriceErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		err    error
		status int
	}{
		{"invalid symbol", "/price/b$c", nil, http.StatusBadRequest},
		{"unknown symbol", "/price/nope", nil, http.StatusNotFound},
		{"upstream down", "/price/btc", fmt.Errorf("price for BTC: %w", domain.ErrUpstreamUnavailable), http.StatusServiceUnavailable},
		{"unexpected", "/price/btc", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prices := &mockPrices{err: tt.err}
			w := do(t, newTestRouter(&mockCoins{}, prices, nil), http.MethodGet, tt.path, "")
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.status, w.Body.String())
			}
			var body map[string]string
			json.Unmarshal(w.Body.Bytes(), &body)
			if body["error"] == "" {
				t.Error("expected error message in body")
			}
		})
	}
}

func TestPortfolioAddRemoveScenario(t *testing.T) {
	router := newTestRouter(&mockCoins{}, &mockPrices{}, nil)

	w := do(t, router, http.MethodPost, "/portfolio", `{"symbol":"sol","amount":10}`)
	if w.Code != http.StatusOK {
		t.Fatalf("POST status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	got := decodeHoldings(t, w)
	if len(got) != 1 || got[0].Symbol != "SOL" || got[0].Amount != 10 {
		t.Errorf("after POST = %+v, want [{SOL 10}]", got)
	}

	w = do(t, router, http.MethodDelete, "/portfolio/SOL", "")
	if w.Code != http.StatusOK {
		t.Fatalf("DELETE status = %d, want 200", w.Code)
	}
	if got := decodeHoldings(t, w); len(got) != 0 {
		t.Errorf("after DELETE = %+v, want []", got)
	}
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("body = %q, want []", w.Body.String())
	}

	w = do(t, router, http.MethodDelete, "/portfolio/SOL", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("second DELETE status = %d, want 404", w.Code)
	}
}

func TestPortfolioUpsertReplaces(t *testing.T) {
	router := newTestRouter(&mockCoins{}, &mockPrices{}, nil)

	do(t, router, http.MethodPost, "/portfolio", `{"symbol":"ETH","amount":1}`)
	w := do(t, router, http.MethodPost, "/portfolio", `{"symbol":"eth","amount":2}`)

	got := decodeHoldings(t, w)
	if len(got) != 1 || got[0].Amount != 2 {
		t.Errorf("holdings = %+v, want single ETH with amount 2", got)
	}

	w = do(t, router, http.MethodGet, "/portfolio", "")
	if got := decodeHoldings(t, w); len(got) != 1 {
		t.Errorf("GET holdings = %+v, want 1 entry", got)
	}
}

func TestPortfolioUpsertValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"symbol":`},
		{"missing amount", `{"symbol":"BTC"}`},
		{"zero amount", `{"symbol":"BTC","amount":0}`},
		{"negative amount", `{"symbol":"BTC","amount":-3}`},
		{"string amount", `{"symbol":"BTC","amount":"ten"}`},
		{"empty symbol", `{"symbol":"","amount":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&mockCoins{}, &mockPrices{}, nil)
			w := do(t, router, http.MethodPost, "/portfolio", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestPortfolioPersistenceFailure(t *testing.T) {
	store := holdings.NewStore(failingPersister{}, []domain.Holding{{Symbol: "BTC", Amount: 1}})
	router := newTestRouter(&mockCoins{}, &mockPrices{}, store)

	w := do(t, router, http.MethodPost, "/portfolio", `{"symbol":"ETH","amount":1}`)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("POST status = %d, want 500", w.Code)
	}
	w = do(t, router, http.MethodDelete, "/portfolio/BTC", "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("DELETE status = %d, want 500", w.Code)
	}
	if got := store.List(); len(got) != 1 || got[0].Symbol != "BTC" {
		t.Errorf("holdings = %+v, want unchanged [BTC]", got)
	}
}

func TestPortfolioValuation(t *testing.T) {
	w := do(t, newTestRouter(&mockCoins{}, &mockPrices{}, nil), http.MethodGet, "/portfolio/valuation", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var v struct {
		Currency string `json:"currency"`
		Total    string `json:"total"`
		Complete bool   `json:"complete"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if v.Currency != "usd" || v.Total != "42" || !v.Complete {
		t.Errorf("valuation = %+v", v)
	}
}

func TestHealth(t *testing.T) {
	w := do(t, newTestRouter(&mockCoins{}, &mockPrices{}, nil), http.MethodGet, "/healthz", "")

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("body = %q", w.Body.String())
	}
}
