// Package holdings keeps the user's holdings list in memory and delegates
// durability to a Persister.
package holdings

import (
	"context"
	"fmt"
	"sync"

	"github.com/mtlprog/coinfolio/internal/domain"
)

// Persister durably stores the full holdings list.
type Persister interface {
	Save(ctx context.Context, holdings []domain.Holding) error
}

// Store is an ordered collection with at most one Holding per symbol.
// Mutations are serialized; each successful mutation is persisted before
// the call returns, and a failed persist rolls the mutation back.
type Store struct {
	mu        sync.Mutex
	items     []domain.Holding
	index     map[domain.Symbol]int
	persister Persister
}

// NewStore creates a store seeded with initial. Later duplicates of a
// symbol replace earlier amounts; invalid entries are dropped.
func NewStore(persister Persister, initial []domain.Holding) *Store {
	s := &Store{
		index:     make(map[domain.Symbol]int),
		persister: persister,
	}
	for _, h := range initial {
		sym, err := domain.ParseSymbol(string(h.Symbol))
		if err != nil || domain.ValidateAmount(h.Amount) != nil {
			continue
		}
		s.set(sym, h.Amount)
	}
	return s
}

// List returns a copy of the holdings in insertion order.
func (s *Store) List() []domain.Holding {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Len returns the number of holdings.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Symbols returns the held symbols in insertion order.
func (s *Store) Symbols() []domain.Symbol {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Symbol, len(s.items))
	for i, h := range s.items {
		out[i] = h.Symbol
	}
	return out
}

// Upsert sets the amount held for symbol, adding it at the end when new.
// It returns the updated list.
func (s *Store) Upsert(ctx context.Context, symbol string, amount float64) ([]domain.Holding, error) {
	sym, err := domain.ParseSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.amount(sym)
	s.set(sym, amount)

	if err := s.persist(ctx); err != nil {
		if existed {
			s.set(sym, prev)
		} else {
			s.delete(sym)
		}
		return nil, err
	}
	return s.snapshot(), nil
}

// Remove deletes the holding for symbol. It reports false when the symbol
// is not held, in which case nothing is persisted.
func (s *Store) Remove(ctx context.Context, symbol string) (bool, []domain.Holding, error) {
	sym := domain.NormalizeSymbol(symbol)

	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[sym]
	if !ok {
		return false, s.snapshot(), nil
	}
	removed := s.items[pos]
	s.delete(sym)

	if err := s.persist(ctx); err != nil {
		s.insertAt(pos, removed)
		return false, nil, err
	}
	return true, s.snapshot(), nil
}

func (s *Store) persist(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	if err := s.persister.Save(ctx, s.snapshot()); err != nil {
		return fmt.Errorf("%w: saving holdings: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (s *Store) snapshot() []domain.Holding {
	out := make([]domain.Holding, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) amount(sym domain.Symbol) (float64, bool) {
	pos, ok := s.index[sym]
	if !ok {
		return 0, false
	}
	return s.items[pos].Amount, true
}

func (s *Store) set(sym domain.Symbol, amount float64) {
	if pos, ok := s.index[sym]; ok {
		s.items[pos].Amount = amount
		return
	}
	s.index[sym] = len(s.items)
	s.items = append(s.items, domain.Holding{Symbol: sym, Amount: amount})
}

func (s *Store) delete(sym domain.Symbol) {
	pos, ok := s.index[sym]
	if !ok {
		return
	}
	s.items = append(s.items[:pos], s.items[pos+1:]...)
	delete(s.index, sym)
	s.reindex(pos)
}

func (s *Store) insertAt(pos int, h domain.Holding) {
	s.items = append(s.items, domain.Holding{})
	copy(s.items[pos+1:], s.items[pos:])
	s.items[pos] = h
	s.reindex(pos)
}

// reindex refreshes index positions from pos onward.
func (s *Store) reindex(from int) {
	for i := from; i < len(s.items); i++ {
		s.index[s.items[i].Symbol] = i
	}
}
