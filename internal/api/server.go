package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"panelprofits/internal/config"
	"panelprofits/internal/engine"
	"panelprofits/internal/npc"
	"panelprofits/internal/store"
	"panelprofits/internal/symbols"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
)

// regenerateByTypePreview caps the per-asset results returned by the by-type route.
const regenerateByTypePreview = 20

type Server struct {
	cfg      config.APIConfig
	log      *slog.Logger
	store    store.Store
	symbols  *symbols.Service
	cycle    *npc.Cycle
	sessions map[string]engine.MarketSession
	codes    []string
	metrics  http.Handler
	now      func() time.Time
	mux      *chi.Mux
}

type Option func(*Server)

func WithCycle(c *npc.Cycle) Option {
	return func(s *Server) { s.cycle = c }
}

func WithRegistry(r *symbols.Registry) Option {
	return func(s *Server) { s.symbols = symbols.NewService(r, s.store, s.log) }
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

func New(cfg config.APIConfig, logger *slog.Logger, st store.Store, sessions []engine.MarketSession, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		log:      logger,
		store:    st,
		sessions: make(map[string]engine.MarketSession, len(sessions)),
		now:      time.Now,
		mux:      chi.NewRouter(),
	}
	for _, sess := range sessions {
		code := strings.ToUpper(sess.Code)
		if _, dup := s.sessions[code]; !dup {
			s.codes = append(s.codes, code)
		}
		s.sessions[code] = sess
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.symbols == nil {
		s.symbols = symbols.NewService(symbols.New(), st, logger)
	}
	if s.cycle == nil {
		s.cycle = npc.NewCycle(st, logger)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/options/price", s.handleOptionPrice)
		r.Post("/options/implied-volatility", s.handleImpliedVolatility)

		r.Get("/markets", s.handleMarketsList)
		r.Get("/markets/{code}", s.handleMarketDetail)
		r.Get("/markets/{primary}/cross/{trading}", s.handleCrossMarket)

		r.Post("/vault/scarcity", s.handleVaultScarcity)
		r.Post("/vault/trigger", s.handleVaultTrigger)
		r.Post("/vault/fee", s.handleVaultFee)
		r.Post("/vault/shares", s.handleVaultShares)

		r.Post("/firms/bonus", s.handleFirmBonus)
		r.Post("/firms/reputation", s.handleFirmReputation)

		r.Get("/tiers/{tier}", s.handleTier)

		r.Post("/npc/decision", s.handleNpcDecision)
		r.Post("/npc/cycle", s.handleNpcCycle)
		r.Post("/npc/traders", s.handleCreateTrader)
		r.Get("/npc/traders", s.handleTradersList)
		r.Post("/npc/traders/{id}/performance", s.handleTraderPerformance)

		r.Post("/assets", s.handleCreateAsset)
		r.Get("/assets", s.handleAssetsList)
		r.Get("/assets/{id}", s.handleAssetDetail)
		r.Put("/assets/{id}/price", s.handleSetPrice)

		r.Post("/symbols/generate", s.handleGenerateSymbol)
		r.Post("/symbols/regenerate", s.handleRegenerate)
		r.Post("/symbols/regenerate-by-type", s.handleRegenerateByType)
		r.Post("/symbols/regenerate-all", s.handleRegenerateAll)
	})
}

func (s *Server) riskFreeRate(override *float64) float64 {
	if override != nil {
		return *override
	}
	return s.cfg.RiskFreeRate
}

func (s *Server) handleOptionPrice(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Underlying float64  `json:"underlying"`
		Strike     float64  `json:"strike"`
		Years      float64  `json:"years"`
		Rate       *float64 `json:"rate"`
		Volatility float64  `json:"volatility"`
		Type       string   `json:"type"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	greeks, err := engine.PriceOption(engine.OptionContract{
		Underlying: in.Underlying,
		Strike:     in.Strike,
		Years:      in.Years,
		Rate:       s.riskFreeRate(in.Rate),
		Volatility: in.Volatility,
		Type:       engine.OptionType(strings.ToLower(strings.TrimSpace(in.Type))),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, greeks)
}

func (s *Server) handleImpliedVolatility(w http.ResponseWriter, r *http.Request) {
	var in struct {
		MarketPrice float64  `json:"market_price"`
		Underlying  float64  `json:"underlying"`
		Strike      float64  `json:"strike"`
		Years       float64  `json:"years"`
		Rate        *float64 `json:"rate"`
		Type        string   `json:"type"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	iv, err := engine.ImpliedVolatility(in.MarketPrice, in.Underlying, in.Strike, in.Years, s.riskFreeRate(in.Rate),
		engine.OptionType(strings.ToLower(strings.TrimSpace(in.Type))))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"implied_volatility": iv})
}

type marketStatus struct {
	Session  engine.MarketSession `json:"session"`
	Open     bool                 `json:"open"`
	Phase    engine.SessionPhase  `json:"phase"`
	NextOpen time.Time            `json:"next_open"`
}

func (s *Server) marketStatus(sess engine.MarketSession, at time.Time) (marketStatus, error) {
	open, err := engine.IsMarketOpen(sess, at)
	if err != nil {
		return marketStatus{}, err
	}
	phase, err := engine.CurrentPhase(sess, at)
	if err != nil {
		return marketStatus{}, err
	}
	next, err := engine.NextMarketOpen(sess, at)
	if err != nil {
		return marketStatus{}, err
	}
	return marketStatus{Session: sess, Open: open, Phase: phase, NextOpen: next}, nil
}

func (s *Server) handleMarketsList(w http.ResponseWriter, r *http.Request) {
	at, err := s.queryTime(r, "at")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out := make([]marketStatus, 0, len(s.codes))
	for _, code := range s.codes {
		st, err := s.marketStatus(s.sessions[code], at)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		out = append(out, st)
	}
	writeJSON(w, http.StatusOK, map[string]any{"markets": out, "at": at})
}

func (s *Server) handleMarketDetail(w http.ResponseWriter, r *http.Request) {
	at, err := s.queryTime(r, "at")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, ok := s.session(chi.URLParam(r, "code"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown market "+chi.URLParam(r, "code"))
		return
	}
	st, err := s.marketStatus(sess, at)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleCrossMarket(w http.ResponseWriter, r *http.Request) {
	at, err := s.queryTime(r, "at")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	primary, ok := s.session(chi.URLParam(r, "primary"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown market "+chi.URLParam(r, "primary"))
		return
	}
	trading, ok := s.session(chi.URLParam(r, "trading"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown market "+chi.URLParam(r, "trading"))
		return
	}
	adj, err := engine.CrossMarketAdjustment(primary, trading, at)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"primary":    primary.Code,
		"trading":    trading.Code,
		"adjustment": adj,
		"fee":        trading.CrossTradingFee,
		"at":         at,
	})
}

func (s *Server) session(code string) (engine.MarketSession, bool) {
	sess, ok := s.sessions[strings.ToUpper(strings.TrimSpace(code))]
	return sess, ok
}

func (s *Server) handleVaultScarcity(w http.ResponseWriter, r *http.Request) {
	var in engine.VaultSettings
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := in.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"multiplier": engine.ScarcityMultiplier(in)})
}

func (s *Server) handleVaultTrigger(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Settings    engine.VaultSettings `json:"settings"`
		Price       float64              `json:"price"`
		MarketCap   float64              `json:"market_cap"`
		VolumeRatio float64              `json:"volume_ratio"`
		At          *time.Time           `json:"at"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := in.Settings.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}
	at := s.now()
	if in.At != nil {
		at = *in.At
	}
	trigger := engine.ShouldTriggerVaulting(in.Settings, in.Price, in.MarketCap, in.VolumeRatio, at)
	writeJSON(w, http.StatusOK, map[string]any{"trigger": trigger})
}

func (s *Server) handleVaultFee(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Settings engine.VaultSettings `json:"settings"`
		Shares   int64                `json:"shares"`
		Price    float64              `json:"price"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.Shares < 0 || in.Price < 0 {
		writeError(w, http.StatusBadRequest, "shares and price must be >= 0")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fee": engine.VaultingFee(in.Settings, in.Shares, in.Price)})
}

func (s *Server) handleVaultShares(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Settings engine.VaultSettings `json:"settings"`
		Shares   int64                `json:"shares"`
		At       *time.Time           `json:"at"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	at := s.now()
	if in.At != nil {
		at = *in.At
	}
	out, err := engine.VaultShares(in.Settings, in.Shares, at)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"settings":   out,
		"multiplier": engine.ScarcityMultiplier(out),
	})
}

func (s *Server) handleFirmBonus(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Firm      engine.TradingFirm `json:"firm"`
		AssetType string             `json:"asset_type"`
		TradeSize float64            `json:"trade_size"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, engine.FirmBonus(in.Firm, in.AssetType, in.TradeSize))
}

func (s *Server) handleFirmReputation(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Firm        engine.TradingFirm      `json:"firm"`
		Performance engine.TradePerformance `json:"performance"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reputation": engine.ReputationImpact(in.Firm, in.Performance)})
}

func (s *Server) handleTier(w http.ResponseWriter, r *http.Request) {
	tier := engine.ParseTier(chi.URLParam(r, "tier"))
	out := map[string]any{
		"tier":               tier,
		"news_delay_minutes": engine.NewsDelay(tier).Minutes(),
		"analysis":           engine.AnalysisQualityFor(tier),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("published_at")); raw != "" {
		published, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "published_at must be RFC3339")
			return
		}
		at, err := s.queryTime(r, "at")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		article := engine.ReleaseSchedule(r.URL.Query().Get("headline"), published)
		out["article"] = article
		out["has_access"] = engine.HasNewsAccess(tier, article, at)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleNpcDecision(w http.ResponseWriter, r *http.Request) {
	var in struct {
		TraderID      string           `json:"trader_id"`
		Trader        *store.NpcTrader `json:"trader"`
		Price         float64          `json:"price"`
		History       []float64        `json:"history"`
		Sentiment     float64          `json:"sentiment"`
		VolumeProfile *float64         `json:"volume_profile"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var trader store.NpcTrader
	switch {
	case in.Trader != nil:
		trader = *in.Trader
	case in.TraderID != "":
		t, err := s.store.GetNpcTrader(r.Context(), in.TraderID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		trader = t
	default:
		writeError(w, http.StatusBadRequest, "trader or trader_id is required")
		return
	}
	volume := 1.0
	if in.VolumeProfile != nil {
		volume = *in.VolumeProfile
	}
	writeJSON(w, http.StatusOK, npc.Decide(trader, in.Price, in.History, in.Sentiment, volume))
}

func (s *Server) handleNpcCycle(w http.ResponseWriter, r *http.Request) {
	res := s.cycle.Run(r.Context())
	status := http.StatusOK
	if res.Failed {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, res)
}

func (s *Server) handleCreateTrader(w http.ResponseWriter, r *http.Request) {
	var in store.NpcTrader
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.TraderType) == "" {
		writeError(w, http.StatusBadRequest, "name and trader_type are required")
		return
	}
	out, err := s.store.CreateNpcTrader(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.log.Info("npc trader created", "trader_id", out.ID, "trader_type", out.TraderType)
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleTradersList(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "1"
	out, err := s.store.ListNpcTraders(r.Context(), store.TraderFilter{ActiveOnly: activeOnly})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"traders": out})
}

func (s *Server) handleTraderPerformance(w http.ResponseWriter, r *http.Request) {
	var in npc.TradeResult
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	trader, err := s.store.GetNpcTrader(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	patch := npc.UpdatePerformance(trader, in, s.now())
	if err := s.store.UpdateNpcTrader(r.Context(), id, patch); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, patch.Apply(trader))
}

func (s *Server) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	var in symbols.NewAsset
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.symbols.CreateAsset(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleAssetsList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := queryInt(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	offset, err := queryInt(q.Get("offset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "offset must be an integer")
		return
	}
	filter := store.AssetFilter{Limit: limit, Offset: offset}
	if t := strings.TrimSpace(q.Get("type")); t != "" {
		filter.Type = string(symbols.ParseAssetType(t))
	}
	out, err := s.store.ListAssets(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assets": out})
}

func (s *Server) handleAssetDetail(w http.ResponseWriter, r *http.Request) {
	asset, err := s.store.GetAsset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := map[string]any{"asset": asset}
	price, err := s.store.CurrentPrice(r.Context(), asset.ID)
	switch {
	case err == nil:
		out["price"] = price
	case !errors.Is(err, store.ErrNotFound):
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSetPrice(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Price decimal.Decimal `json:"price"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := s.store.GetAsset(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	p := store.AssetPrice{AssetID: id, Price: in.Price}
	if err := s.store.SetPrice(r.Context(), p); err != nil {
		writeDomainError(w, err)
		return
	}
	out, err := s.store.CurrentPrice(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGenerateSymbol(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Type   string          `json:"type"`
		Params json.RawMessage `json:"params"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(in.Type) == "" {
		writeError(w, http.StatusBadRequest, "type is required")
		return
	}
	p, err := symbols.DecodeParams(in.Type, in.Params)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	base, err := s.symbols.Registry().Symbol(p)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	symbol, err := symbols.Resolve(r.Context(), base, s.symbols.Exists)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"type":        p.AssetType(),
		"symbol":      symbol,
		"base_symbol": base,
		"collision":   symbol != base,
	})
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	var in struct {
		AssetIDs []string `json:"asset_ids"`
		DryRun   *bool    `json:"dry_run"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(in.AssetIDs) == 0 {
		writeError(w, http.StatusBadRequest, "asset_ids must be a non-empty array")
		return
	}
	rep, err := s.symbols.RegenerateByIDs(r.Context(), in.AssetIDs, boolOr(in.DryRun, true))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleRegenerateByType(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Type   string `json:"type"`
		Limit  int    `json:"limit"`
		DryRun *bool  `json:"dry_run"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(in.Type) == "" {
		writeError(w, http.StatusBadRequest, "type is required")
		return
	}
	rep, err := s.symbols.RegenerateByType(r.Context(), in.Type, in.Limit, boolOr(in.DryRun, true))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if len(rep.Results) > regenerateByTypePreview {
		rep.Results = rep.Results[:regenerateByTypePreview]
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleRegenerateAll(w http.ResponseWriter, r *http.Request) {
	var in struct {
		BatchSize int   `json:"batch_size"`
		DryRun    *bool `json:"dry_run"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rep, err := s.symbols.RegenerateAll(r.Context(), in.BatchSize, boolOr(in.DryRun, false))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) queryTime(r *http.Request, key string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return s.now(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be RFC3339", key)
	}
	return t, nil
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrDuplicateKey), errors.Is(err, symbols.ErrSymbolSpaceExhausted):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrInvalidInput),
		errors.Is(err, engine.ErrInvalidOptionInput),
		errors.Is(err, engine.ErrInvalidSession),
		errors.Is(err, engine.ErrInvalidVault),
		errors.Is(err, symbols.ErrInvalidParams),
		errors.Is(err, symbols.ErrInvalidExpiry),
		errors.Is(err, symbols.ErrInvalidStrike):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func queryInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid integer %q", raw)
	}
	return n, nil
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
