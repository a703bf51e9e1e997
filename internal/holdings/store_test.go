package holdings

import (
	"context"
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"

	"github.com/mtlprog/coinfolio/internal/domain"
)

type mockPersister struct {
	mu    sync.Mutex
	saved [][]domain.Holding
	err   error
}

func (m *mockPersister) Save(_ context.Context, holdings []domain.Holding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, holdings)
	return nil
}

func (m *mockPersister) last() []domain.Holding {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.saved) == 0 {
		return nil
	}
	return m.saved[len(m.saved)-1]
}

func TestUpsertAddsCanonicalSymbol(t *testing.T) {
	p := &mockPersister{}
	s := NewStore(p, nil)

	got, err := s.Upsert(context.Background(), "sol", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []domain.Holding{{Symbol: "SOL", Amount: 10}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("holdings = %+v, want %+v", got, want)
	}
	if !reflect.DeepEqual(p.last(), want) {
		t.Errorf("persisted = %+v, want %+v", p.last(), want)
	}
}

func TestUpsertReplacesAmount(t *testing.T) {
	s := NewStore(&mockPersister{}, nil)

	if _, err := s.Upsert(context.Background(), "ETH", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := s.Upsert(context.Background(), "eth", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []domain.Holding{{Symbol: "ETH", Amount: 2}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("holdings = %+v, want %+v", got, want)
	}
}

func TestUpsertKeepsInsertionOrder(t *testing.T) {
	s := NewStore(nil, nil)
	ctx := context.Background()

	s.Upsert(ctx, "BTC", 1)
	s.Upsert(ctx, "ETH", 2)
	s.Upsert(ctx, "SOL", 3)
	s.Upsert(ctx, "BTC", 4)

	want := []domain.Holding{
		{Symbol: "BTC", Amount: 4},
		{Symbol: "ETH", Amount: 2},
		{Symbol: "SOL", Amount: 3},
	}
	if got := s.List(); !reflect.DeepEqual(got, want) {
		t.Errorf("holdings = %+v, want %+v", got, want)
	}
}

func TestUpsertValidation(t *testing.T) {
	tests := []struct {
		name   string
		symbol string
		amount float64
	}{
		{"zero amount", "BTC", 0},
		{"negative amount", "BTC", -1},
		{"nan amount", "BTC", math.NaN()},
		{"infinite amount", "BTC", math.Inf(1)},
		{"empty symbol", "", 1},
		{"bad symbol", "BTC/USD", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mockPersister{}
			s := NewStore(p, nil)
			_, err := s.Upsert(context.Background(), tt.symbol, tt.amount)
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
			if len(s.List()) != 0 {
				t.Error("invalid upsert should not change holdings")
			}
			if len(p.saved) != 0 {
				t.Error("invalid upsert should not persist")
			}
		})
	}
}

func TestRemove(t *testing.T) {
	p := &mockPersister{}
	s := NewStore(p, []domain.Holding{{Symbol: "BTC", Amount: 1}, {Symbol: "ETH", Amount: 2}, {Symbol: "SOL", Amount: 3}})

	removed, got, err := s.Remove(context.Background(), "eth")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !removed {
		t.Fatal("expected removed = true")
	}
	want := []domain.Holding{{Symbol: "BTC", Amount: 1}, {Symbol: "SOL", Amount: 3}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("holdings = %+v, want %+v", got, want)
	}

	// Index stays consistent after the shift.
	got, _ = s.Upsert(context.Background(), "SOL", 5)
	want = []domain.Holding{{Symbol: "BTC", Amount: 1}, {Symbol: "SOL", Amount: 5}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("holdings after upsert = %+v, want %+v", got, want)
	}
}

func TestRemoveAbsent(t *testing.T) {
	p := &mockPersister{}
	s := NewStore(p, nil)

	removed, got, err := s.Remove(context.Background(), "DOGE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed {
		t.Error("expected removed = false")
	}
	if len(got) != 0 {
		t.Errorf("holdings = %+v, want empty", got)
	}
	if len(p.saved) != 0 {
		t.Error("no-op remove should not persist")
	}
}

func TestUpsertPersistenceFailureRollsBack(t *testing.T) {
	p := &mockPersister{}
	s := NewStore(p, []domain.Holding{{Symbol: "BTC", Amount: 1}})
	p.err = errors.New("disk full")

	_, err := s.Upsert(context.Background(), "BTC", 9)
	if !errors.Is(err, domain.ErrPersistence) {
		t.Errorf("error = %v, want ErrPersistence", err)
	}
	_, err = s.Upsert(context.Background(), "ETH", 2)
	if !errors.Is(err, domain.ErrPersistence) {
		t.Errorf("error = %v, want ErrPersistence", err)
	}

	want := []domain.Holding{{Symbol: "BTC", Amount: 1}}
	if got := s.List(); !reflect.DeepEqual(got, want) {
		t.Errorf("holdings after failed writes = %+v, want %+v", got, want)
	}
}

func TestRemovePersistenceFailureRollsBack(t *testing.T) {
	p := &mockPersister{}
	initial := []domain.Holding{{Symbol: "BTC", Amount: 1}, {Symbol: "ETH", Amount: 2}, {Symbol: "SOL", Amount: 3}}
	s := NewStore(p, initial)
	p.err = errors.New("read-only filesystem")

	removed, _, err := s.Remove(context.Background(), "ETH")
	if !errors.Is(err, domain.ErrPersistence) {
		t.Errorf("error = %v, want ErrPersistence", err)
	}
	if removed {
		t.Error("failed remove should report removed = false")
	}
	if got := s.List(); !reflect.DeepEqual(got, initial) {
		t.Errorf("holdings = %+v, want restored %+v", got, initial)
	}

	p.err = nil
	if _, err := s.Upsert(context.Background(), "SOL", 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.List()[2]; got.Symbol != "SOL" || got.Amount != 7 {
		t.Errorf("holdings[2] = %+v, want SOL 7 (index restored)", got)
	}
}

func TestNewStoreNormalizesInitial(t *testing.T) {
	s := NewStore(nil, []domain.Holding{
		{Symbol: "btc", Amount: 1},
		{Symbol: "BTC", Amount: 2},
		{Symbol: "eth", Amount: -1},
		{Symbol: "", Amount: 3},
	})

	want := []domain.Holding{{Symbol: "BTC", Amount: 2}}
	if got := s.List(); !reflect.DeepEqual(got, want) {
		t.Errorf("holdings = %+v, want %+v", got, want)
	}
	if got := s.Symbols(); !reflect.DeepEqual(got, []domain.Symbol{"BTC"}) {
		t.Errorf("Symbols = %v, want [BTC]", got)
	}
}

func TestListReturnsCopy(t *testing.T) {
	s := NewStore(nil, []domain.Holding{{Symbol: "BTC", Amount: 1}})

	list := s.List()
	list[0].Amount = 100

	if got := s.List()[0].Amount; got != 1 {
		t.Errorf("store mutated through List copy: amount = %v", got)
	}
}

func TestConcurrentUpserts(t *testing.T) {
	s := NewStore(&mockPersister{}, nil)
	symbols := []string{"BTC", "ETH", "SOL", "XLM"}

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Upsert(context.Background(), symbols[i%len(symbols)], float64(i+1))
		}()
	}
	wg.Wait()

	if got := len(s.List()); got != len(symbols) {
		t.Errorf("holdings = %d, want %d (one per symbol)", got, len(symbols))
	}
}
