package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"panelprofits/internal/store"
)

// Store is an in-memory implementation of store.Store.
// Assets are listed in insertion order.
type Store struct {
	mu sync.RWMutex

	assets     map[string]store.Asset
	assetOrder []string
	symbols    map[string]string // symbol -> asset id
	prices     map[string]store.AssetPrice

	traders     map[string]store.NpcTrader
	traderOrder []string

	portfolios map[string]store.Portfolio // keyed by user id
	orders     []store.Order

	now func() time.Time
}

func New() *Store {
	return &Store{
		assets:     make(map[string]store.Asset),
		symbols:    make(map[string]string),
		prices:     make(map[string]store.AssetPrice),
		traders:    make(map[string]store.NpcTrader),
		portfolios: make(map[string]store.Portfolio),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

var _ store.Store = (*Store)(nil)

func (s *Store) CreateAsset(_ context.Context, a store.Asset) (store.Asset, error) {
	if a.Symbol == "" || a.Name == "" {
		return store.Asset{}, store.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if _, ok := s.assets[a.ID]; ok {
		return store.Asset{}, store.ErrDuplicateKey
	}
	if _, ok := s.symbols[a.Symbol]; ok {
		return store.Asset{}, store.ErrDuplicateKey
	}
	now := s.now()
	a.CreatedAt, a.UpdatedAt = now, now
	a = cloneAsset(a)
	s.assets[a.ID] = a
	s.assetOrder = append(s.assetOrder, a.ID)
	s.symbols[a.Symbol] = a.ID
	return cloneAsset(a), nil
}

func (s *Store) GetAsset(_ context.Context, id string) (store.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[id]
	if !ok {
		return store.Asset{}, store.ErrNotFound
	}
	return cloneAsset(a), nil
}

func (s *Store) GetAssetBySymbol(_ context.Context, symbol string) (store.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.symbols[symbol]
	if !ok {
		return store.Asset{}, store.ErrNotFound
	}
	return cloneAsset(s.assets[id]), nil
}

func (s *Store) ListAssets(_ context.Context, f store.AssetFilter) ([]store.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Asset, 0)
	skipped := 0
	for _, id := range s.assetOrder {
		a := s.assets[id]
		if f.Type != "" && a.Type != f.Type {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		out = append(out, cloneAsset(a))
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) UpdateAssetSymbol(_ context.Context, id, symbol string) error {
	if symbol == "" {
		return store.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assets[id]
	if !ok {
		return store.ErrNotFound
	}
	if owner, taken := s.symbols[symbol]; taken && owner != id {
		return store.ErrDuplicateKey
	}
	delete(s.symbols, a.Symbol)
	a.Symbol = symbol
	a.UpdatedAt = s.now()
	s.assets[id] = a
	s.symbols[symbol] = id
	return nil
}

func (s *Store) CurrentPrice(_ context.Context, assetID string) (store.AssetPrice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prices[assetID]
	if !ok {
		return store.AssetPrice{}, store.ErrNotFound
	}
	return p, nil
}

func (s *Store) SetPrice(_ context.Context, p store.AssetPrice) error {
	if !p.Price.IsPositive() {
		return store.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[p.AssetID]; !ok {
		return store.ErrNotFound
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = s.now()
	}
	s.prices[p.AssetID] = p
	return nil
}

func (s *Store) CreateNpcTrader(_ context.Context, t store.NpcTrader) (store.NpcTrader, error) {
	if t.Name == "" || t.TraderType == "" {
		return store.NpcTrader{}, store.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if _, ok := s.traders[t.ID]; ok {
		return store.NpcTrader{}, store.ErrDuplicateKey
	}
	t = cloneTrader(t)
	s.traders[t.ID] = t
	s.traderOrder = append(s.traderOrder, t.ID)
	return cloneTrader(t), nil
}

func (s *Store) GetNpcTrader(_ context.Context, id string) (store.NpcTrader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.traders[id]
	if !ok {
		return store.NpcTrader{}, store.ErrNotFound
	}
	return cloneTrader(t), nil
}

func (s *Store) ListNpcTraders(_ context.Context, f store.TraderFilter) ([]store.NpcTrader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.NpcTrader, 0, len(s.traderOrder))
	for _, id := range s.traderOrder {
		t := s.traders[id]
		if f.ActiveOnly && !t.Active {
			continue
		}
		out = append(out, cloneTrader(t))
	}
	return out, nil
}

func (s *Store) UpdateNpcTrader(_ context.Context, id string, patch store.TraderPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.traders[id]
	if !ok {
		return store.ErrNotFound
	}
	s.traders[id] = patch.Apply(t)
	return nil
}

func (s *Store) PortfolioByUser(_ context.Context, userID string) (store.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.portfolios[userID]
	if !ok {
		return store.Portfolio{}, store.ErrNotFound
	}
	return p, nil
}

func (s *Store) CreatePortfolio(_ context.Context, p store.Portfolio) (store.Portfolio, error) {
	if p.UserID == "" {
		return store.Portfolio{}, store.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.portfolios[p.UserID]; ok {
		return store.Portfolio{}, store.ErrDuplicateKey
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = s.now()
	s.portfolios[p.UserID] = p
	return p, nil
}

func (s *Store) CreateOrder(_ context.Context, o store.Order) (store.Order, error) {
	if o.UserID == "" || o.AssetID == "" || o.Quantity <= 0 {
		return store.Order{}, store.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[o.AssetID]; !ok {
		return store.Order{}, store.ErrNotFound
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = "pending"
	}
	o.CreatedAt = s.now()
	s.orders = append(s.orders, o)
	return o, nil
}

func (s *Store) ListOrdersByUser(_ context.Context, userID string) ([]store.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Order, 0)
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func cloneAsset(a store.Asset) store.Asset {
	a.Metadata = slices.Clone(a.Metadata)
	return a
}

func cloneTrader(t store.NpcTrader) store.NpcTrader {
	t.PreferredAssetTypes = slices.Clone(t.PreferredAssetTypes)
	t.AvoidedAssetTypes = slices.Clone(t.AvoidedAssetTypes)
	if t.LastTradeTime != nil {
		ts := *t.LastTradeTime
		t.LastTradeTime = &ts
	}
	return t
}
