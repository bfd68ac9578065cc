package symbols

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"panelprofits/internal/store"
)

const (
	DefaultTypeLimit = 100
	DefaultBatchSize = 500

	// createAttempts bounds retries when a concurrent writer takes the
	// resolved symbol between the check and the insert.
	createAttempts = 3
)

// AssetStore is the storage the symbol service reads and writes.
type AssetStore interface {
	CreateAsset(ctx context.Context, a store.Asset) (store.Asset, error)
	GetAsset(ctx context.Context, id string) (store.Asset, error)
	GetAssetBySymbol(ctx context.Context, symbol string) (store.Asset, error)
	ListAssets(ctx context.Context, f store.AssetFilter) ([]store.Asset, error)
	UpdateAssetSymbol(ctx context.Context, id, symbol string) error
}

// Service assigns tickers to stored assets.
type Service struct {
	reg   *Registry
	store AssetStore
	log   *slog.Logger
}

func NewService(reg *Registry, st AssetStore, logger *slog.Logger) *Service {
	if reg == nil {
		reg = New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{reg: reg, store: st, log: logger}
}

func (s *Service) Registry() *Registry { return s.reg }

// Exists reports whether any asset owns symbol.
func (s *Service) Exists(ctx context.Context, symbol string) (bool, error) {
	return s.ownedByOther(ctx, symbol, "")
}

// Generate resolves a unique ticker for p against the stored assets.
func (s *Service) Generate(ctx context.Context, p Params) (string, error) {
	return s.reg.Generate(ctx, p, s.Exists)
}

type NewAsset struct {
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// CreateAsset generates a ticker from the asset's type and metadata and
// inserts it.
func (s *Service) CreateAsset(ctx context.Context, in NewAsset) (store.Asset, error) {
	if in.Name == "" {
		return store.Asset{}, fmt.Errorf("%w: asset name is required", ErrInvalidParams)
	}
	p, err := decodeWithName(in.Type, in.Name, in.Metadata)
	if err != nil {
		return store.Asset{}, err
	}
	var lastErr error
	for range createAttempts {
		symbol, err := s.Generate(ctx, p)
		if err != nil {
			return store.Asset{}, err
		}
		a, err := s.store.CreateAsset(ctx, store.Asset{
			Symbol:   symbol,
			Name:     in.Name,
			Type:     string(ParseAssetType(in.Type)),
			Metadata: in.Metadata,
		})
		if errors.Is(err, store.ErrDuplicateKey) {
			lastErr = err
			continue
		}
		if err != nil {
			return store.Asset{}, fmt.Errorf("create asset: %w", err)
		}
		s.log.Info("asset created", "asset_id", a.ID, "symbol", a.Symbol, "type", a.Type)
		return a, nil
	}
	return store.Asset{}, fmt.Errorf("create asset %q: %w", in.Name, lastErr)
}

// Result describes one asset's regeneration.
type Result struct {
	AssetID   string `json:"asset_id"`
	Name      string `json:"name,omitempty"`
	Type      string `json:"type,omitempty"`
	OldSymbol string `json:"old_symbol,omitempty"`
	NewSymbol string `json:"new_symbol,omitempty"`
	Changed   bool   `json:"changed"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

type Report struct {
	DryRun    bool     `json:"dry_run"`
	Processed int      `json:"processed"`
	Changed   int      `json:"changed"`
	Unchanged int      `json:"unchanged"`
	Failed    int      `json:"failed"`
	Results   []Result `json:"results,omitempty"`
}

func (r *Report) add(res Result, keep bool) {
	r.Processed++
	switch {
	case !res.Success:
		r.Failed++
	case res.Changed:
		r.Changed++
	default:
		r.Unchanged++
	}
	if keep {
		r.Results = append(r.Results, res)
	}
}

// run tracks symbols claimed earlier in the same pass so a dry run reports
// the same tickers a real run would assign.
type run struct {
	svc     *Service
	dryRun  bool
	claimed map[string]string
}

func (s *Service) newRun(dryRun bool) *run {
	return &run{svc: s, dryRun: dryRun, claimed: map[string]string{}}
}

// RegenerateByIDs recomputes the tickers of the given assets. Missing assets
// and assets whose metadata cannot produce a ticker are reported per result.
func (s *Service) RegenerateByIDs(ctx context.Context, ids []string, dryRun bool) (Report, error) {
	rep := Report{DryRun: dryRun, Results: []Result{}}
	r := s.newRun(dryRun)
	for _, id := range ids {
		a, err := s.store.GetAsset(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			rep.add(Result{AssetID: id, Error: "asset not found"}, true)
			continue
		}
		if err != nil {
			return rep, fmt.Errorf("get asset %s: %w", id, err)
		}
		res, err := r.regenerate(ctx, a)
		if err != nil {
			return rep, err
		}
		rep.add(res, true)
	}
	s.logReport("symbols regenerated", rep)
	return rep, nil
}

// RegenerateByType recomputes up to limit assets of one type.
func (s *Service) RegenerateByType(ctx context.Context, assetType string, limit int, dryRun bool) (Report, error) {
	if limit <= 0 {
		limit = DefaultTypeLimit
	}
	t := string(ParseAssetType(assetType))
	if t == "" {
		return Report{}, fmt.Errorf("%w: asset type is required", ErrInvalidParams)
	}
	assets, err := s.store.ListAssets(ctx, store.AssetFilter{Type: t, Limit: limit})
	if err != nil {
		return Report{}, fmt.Errorf("list %s assets: %w", t, err)
	}
	rep := Report{DryRun: dryRun, Results: []Result{}}
	r := s.newRun(dryRun)
	for _, a := range assets {
		res, err := r.regenerate(ctx, a)
		if err != nil {
			return rep, err
		}
		rep.add(res, true)
	}
	s.logReport("symbols regenerated", rep, "type", t)
	return rep, nil
}

// RegenerateAll walks every asset in pages of batchSize. Only counts are
// reported.
func (s *Service) RegenerateAll(ctx context.Context, batchSize int, dryRun bool) (Report, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	rep := Report{DryRun: dryRun}
	r := s.newRun(dryRun)
	for offset := 0; ; offset += batchSize {
		assets, err := s.store.ListAssets(ctx, store.AssetFilter{Limit: batchSize, Offset: offset})
		if err != nil {
			return rep, fmt.Errorf("list assets at offset %d: %w", offset, err)
		}
		for _, a := range assets {
			res, err := r.regenerate(ctx, a)
			if err != nil {
				return rep, err
			}
			rep.add(res, false)
		}
		s.log.Debug("symbol batch done", "offset", offset, "size", len(assets))
		if len(assets) < batchSize {
			break
		}
	}
	s.logReport("all symbols regenerated", rep)
	return rep, nil
}

func (r *run) exists(assetID string) ExistsFunc {
	return func(ctx context.Context, symbol string) (bool, error) {
		if owner, ok := r.claimed[symbol]; ok && owner != assetID {
			return true, nil
		}
		return r.svc.ownedByOther(ctx, symbol, assetID)
	}
}

// regenerate returns an error only for storage failures; bad metadata is
// reported on the result.
func (r *run) regenerate(ctx context.Context, a store.Asset) (Result, error) {
	res := Result{AssetID: a.ID, Name: a.Name, Type: a.Type, OldSymbol: a.Symbol}

	p, err := decodeWithName(a.Type, a.Name, a.Metadata)
	if err != nil {
		res.Error = err.Error()
		return res, nil
	}
	symbol, err := r.svc.reg.Generate(ctx, p, r.exists(a.ID))
	if err != nil {
		if isParamError(err) {
			res.Error = err.Error()
			return res, nil
		}
		return res, fmt.Errorf("generate symbol for %s: %w", a.ID, err)
	}
	r.claimed[symbol] = a.ID
	res.NewSymbol = symbol
	res.Changed = symbol != a.Symbol
	res.Success = true

	if res.Changed && !r.dryRun {
		if err := r.svc.store.UpdateAssetSymbol(ctx, a.ID, symbol); err != nil {
			return res, fmt.Errorf("update symbol for %s: %w", a.ID, err)
		}
		r.svc.log.Info("asset symbol updated", "asset_id", a.ID, "old", a.Symbol, "new", symbol)
	}
	return res, nil
}

func (s *Service) ownedByOther(ctx context.Context, symbol, assetID string) (bool, error) {
	a, err := s.store.GetAssetBySymbol(ctx, symbol)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return a.ID != assetID, nil
}

func (s *Service) logReport(msg string, rep Report, attrs ...any) {
	attrs = append(attrs,
		"dry_run", rep.DryRun,
		"processed", rep.Processed,
		"changed", rep.Changed,
		"unchanged", rep.Unchanged,
		"failed", rep.Failed,
	)
	s.log.Info(msg, attrs...)
}

func isParamError(err error) bool {
	return errors.Is(err, ErrInvalidParams) ||
		errors.Is(err, ErrInvalidExpiry) ||
		errors.Is(err, ErrInvalidStrike) ||
		errors.Is(err, ErrSymbolSpaceExhausted)
}
