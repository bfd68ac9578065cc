package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"panelprofits/internal/db"
	"panelprofits/internal/store"
)

//go:embed schema.sql
var Schema string

// Store implements store.Store on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ store.Store = (*Store)(nil)

// ApplySchema creates the tables if they do not exist.
func (s *Store) ApplySchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const assetColumns = `id::text, symbol, name, type, metadata, created_at, updated_at`

func (s *Store) CreateAsset(ctx context.Context, a store.Asset) (store.Asset, error) {
	if a.Symbol == "" || a.Name == "" {
		return store.Asset{}, store.ErrInvalidInput
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	} else if _, err := uuid.Parse(a.ID); err != nil {
		return store.Asset{}, fmt.Errorf("%w: asset id must be a uuid", store.ErrInvalidInput)
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO assets (id, symbol, name, type, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+assetColumns,
		a.ID, a.Symbol, a.Name, a.Type, nullJSON(a.Metadata),
	)
	out, err := scanAsset(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return store.Asset{}, store.ErrDuplicateKey
		}
		return store.Asset{}, fmt.Errorf("insert asset: %w", err)
	}
	return out, nil
}

func (s *Store) GetAsset(ctx context.Context, id string) (store.Asset, error) {
	if _, err := uuid.Parse(id); err != nil {
		return store.Asset{}, store.ErrNotFound
	}
	row := s.pool.QueryRow(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = $1`, id)
	a, err := scanAsset(row)
	if err != nil {
		if db.IsNoRows(err) {
			return store.Asset{}, store.ErrNotFound
		}
		return store.Asset{}, fmt.Errorf("get asset: %w", err)
	}
	return a, nil
}

func (s *Store) GetAssetBySymbol(ctx context.Context, symbol string) (store.Asset, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+assetColumns+` FROM assets WHERE symbol = $1`, symbol)
	a, err := scanAsset(row)
	if err != nil {
		if db.IsNoRows(err) {
			return store.Asset{}, store.ErrNotFound
		}
		return store.Asset{}, fmt.Errorf("get asset by symbol: %w", err)
	}
	return a, nil
}

func (s *Store) ListAssets(ctx context.Context, f store.AssetFilter) ([]store.Asset, error) {
	var limit any
	if f.Limit > 0 {
		limit = f.Limit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+assetColumns+`
		FROM assets
		WHERE ($1 = '' OR type = $1)
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3
	`, f.Type, limit, max(f.Offset, 0))
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	out := make([]store.Asset, 0)
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateAssetSymbol(ctx context.Context, id, symbol string) error {
	if symbol == "" {
		return store.ErrInvalidInput
	}
	if _, err := uuid.Parse(id); err != nil {
		return store.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `UPDATE assets SET symbol = $2, updated_at = now() WHERE id = $1`, id, symbol)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return store.ErrDuplicateKey
		}
		return fmt.Errorf("update asset symbol: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CurrentPrice(ctx context.Context, assetID string) (store.AssetPrice, error) {
	if _, err := uuid.Parse(assetID); err != nil {
		return store.AssetPrice{}, store.ErrNotFound
	}
	var p store.AssetPrice
	err := s.pool.QueryRow(ctx, `
		SELECT asset_id::text, price, updated_at
		FROM asset_prices
		WHERE asset_id = $1
	`, assetID).Scan(&p.AssetID, &p.Price, &p.UpdatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return store.AssetPrice{}, store.ErrNotFound
		}
		return store.AssetPrice{}, fmt.Errorf("get current price: %w", err)
	}
	return p, nil
}

func (s *Store) SetPrice(ctx context.Context, p store.AssetPrice) error {
	if !p.Price.IsPositive() {
		return store.ErrInvalidInput
	}
	if _, err := uuid.Parse(p.AssetID); err != nil {
		return store.ErrNotFound
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO asset_prices (asset_id, price, updated_at)
		SELECT id, $2, $3 FROM assets WHERE id = $1
		ON CONFLICT (asset_id) DO UPDATE
		SET price = EXCLUDED.price, updated_at = EXCLUDED.updated_at
	`, p.AssetID, p.Price, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("set price: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

const traderColumns = `
	id::text, name, trader_type, personality, preferred_asset_types, avoided_asset_types,
	available_capital, max_position_size, max_daily_volume,
	aggressiveness, intelligence, emotionality, adaptability,
	trades_per_day, min_minutes_between_trades,
	total_trades, win_rate, avg_trade_return, total_pnl,
	last_trade_time, is_active`

func (s *Store) CreateNpcTrader(ctx context.Context, t store.NpcTrader) (store.NpcTrader, error) {
	if t.Name == "" || t.TraderType == "" {
		return store.NpcTrader{}, store.ErrInvalidInput
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO npc_traders (
			id, name, trader_type, personality, preferred_asset_types, avoided_asset_types,
			available_capital, max_position_size, max_daily_volume,
			aggressiveness, intelligence, emotionality, adaptability,
			trades_per_day, min_minutes_between_trades,
			total_trades, win_rate, avg_trade_return, total_pnl,
			last_trade_time, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING `+traderColumns,
		t.ID, t.Name, t.TraderType, t.Personality, nonNil(t.PreferredAssetTypes), nonNil(t.AvoidedAssetTypes),
		t.AvailableCapital, t.MaxPositionSize, t.MaxDailyVolume,
		t.Aggressiveness, t.Intelligence, t.Emotionality, t.Adaptability,
		t.TradesPerDay, t.MinMinutesBetweenTrades,
		t.TotalTrades, t.WinRate, t.AvgTradeReturn, t.TotalPnL,
		t.LastTradeTime, t.Active,
	)
	out, err := scanTrader(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return store.NpcTrader{}, store.ErrDuplicateKey
		}
		return store.NpcTrader{}, fmt.Errorf("insert npc trader: %w", err)
	}
	return out, nil
}

func (s *Store) GetNpcTrader(ctx context.Context, id string) (store.NpcTrader, error) {
	if _, err := uuid.Parse(id); err != nil {
		return store.NpcTrader{}, store.ErrNotFound
	}
	t, err := scanTrader(s.pool.QueryRow(ctx, `SELECT `+traderColumns+` FROM npc_traders WHERE id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return store.NpcTrader{}, store.ErrNotFound
		}
		return store.NpcTrader{}, fmt.Errorf("get npc trader: %w", err)
	}
	return t, nil
}

func (s *Store) ListNpcTraders(ctx context.Context, f store.TraderFilter) ([]store.NpcTrader, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+traderColumns+`
		FROM npc_traders
		WHERE (NOT $1 OR is_active)
		ORDER BY created_at ASC, id ASC
	`, f.ActiveOnly)
	if err != nil {
		return nil, fmt.Errorf("list npc traders: %w", err)
	}
	defer rows.Close()

	out := make([]store.NpcTrader, 0)
	for rows.Next() {
		t, err := scanTrader(rows)
		if err != nil {
			return nil, fmt.Errorf("scan npc trader: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list npc traders: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateNpcTrader(ctx context.Context, id string, p store.TraderPatch) error {
	if _, err := uuid.Parse(id); err != nil {
		return store.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE npc_traders SET
			total_trades     = COALESCE($2::bigint, total_trades),
			win_rate         = COALESCE($3::double precision, win_rate),
			avg_trade_return = COALESCE($4::double precision, avg_trade_return),
			total_pnl        = COALESCE($5::numeric, total_pnl),
			last_trade_time  = COALESCE($6::timestamptz, last_trade_time),
			is_active        = COALESCE($7::boolean, is_active)
		WHERE id = $1
	`, id, p.TotalTrades, p.WinRate, p.AvgTradeReturn, p.TotalPnL, p.LastTradeTime, p.Active)
	if err != nil {
		return fmt.Errorf("update npc trader: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

const portfolioColumns = `id::text, user_id, name, total_value, cash_balance, initial_cash_allocation, created_at`

func (s *Store) PortfolioByUser(ctx context.Context, userID string) (store.Portfolio, error) {
	p, err := scanPortfolio(s.pool.QueryRow(ctx, `SELECT `+portfolioColumns+` FROM portfolios WHERE user_id = $1`, userID))
	if err != nil {
		if db.IsNoRows(err) {
			return store.Portfolio{}, store.ErrNotFound
		}
		return store.Portfolio{}, fmt.Errorf("get portfolio: %w", err)
	}
	return p, nil
}

func (s *Store) CreatePortfolio(ctx context.Context, p store.Portfolio) (store.Portfolio, error) {
	if p.UserID == "" {
		return store.Portfolio{}, store.ErrInvalidInput
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	out, err := scanPortfolio(s.pool.QueryRow(ctx, `
		INSERT INTO portfolios (id, user_id, name, total_value, cash_balance, initial_cash_allocation)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+portfolioColumns,
		p.ID, p.UserID, p.Name, p.TotalValue, p.CashBalance, p.InitialCashAllocation,
	))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return store.Portfolio{}, store.ErrDuplicateKey
		}
		return store.Portfolio{}, fmt.Errorf("insert portfolio: %w", err)
	}
	return out, nil
}

const orderColumns = `id::text, user_id, portfolio_id::text, asset_id::text, side, order_type, quantity, price, total_value, status, metadata, created_at`

func (s *Store) CreateOrder(ctx context.Context, o store.Order) (store.Order, error) {
	if o.UserID == "" || o.AssetID == "" || o.Quantity <= 0 {
		return store.Order{}, store.ErrInvalidInput
	}
	if _, err := uuid.Parse(o.AssetID); err != nil {
		return store.Order{}, store.ErrNotFound
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = "pending"
	}
	out, err := scanOrder(s.pool.QueryRow(ctx, `
		INSERT INTO orders (id, user_id, portfolio_id, asset_id, side, order_type, quantity, price, total_value, status, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+orderColumns,
		o.ID, o.UserID, o.PortfolioID, o.AssetID, string(o.Side), string(o.Type),
		o.Quantity, o.Price, o.TotalValue, o.Status, o.Metadata,
	))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return store.Order{}, store.ErrDuplicateKey
		}
		return store.Order{}, fmt.Errorf("insert order: %w", err)
	}
	return out, nil
}

func (s *Store) ListOrdersByUser(ctx context.Context, userID string) ([]store.Order, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := make([]store.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return out, nil
}

func scanAsset(row pgx.Row) (store.Asset, error) {
	var a store.Asset
	var meta []byte
	if err := row.Scan(&a.ID, &a.Symbol, &a.Name, &a.Type, &meta, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return store.Asset{}, err
	}
	if len(meta) > 0 {
		a.Metadata = json.RawMessage(meta)
	}
	return a, nil
}

func scanTrader(row pgx.Row) (store.NpcTrader, error) {
	var t store.NpcTrader
	err := row.Scan(
		&t.ID, &t.Name, &t.TraderType, &t.Personality, &t.PreferredAssetTypes, &t.AvoidedAssetTypes,
		&t.AvailableCapital, &t.MaxPositionSize, &t.MaxDailyVolume,
		&t.Aggressiveness, &t.Intelligence, &t.Emotionality, &t.Adaptability,
		&t.TradesPerDay, &t.MinMinutesBetweenTrades,
		&t.TotalTrades, &t.WinRate, &t.AvgTradeReturn, &t.TotalPnL,
		&t.LastTradeTime, &t.Active,
	)
	return t, err
}

func scanPortfolio(row pgx.Row) (store.Portfolio, error) {
	var p store.Portfolio
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.TotalValue, &p.CashBalance, &p.InitialCashAllocation, &p.CreatedAt)
	return p, err
}

func scanOrder(row pgx.Row) (store.Order, error) {
	var o store.Order
	var side, typ string
	err := row.Scan(&o.ID, &o.UserID, &o.PortfolioID, &o.AssetID, &side, &typ,
		&o.Quantity, &o.Price, &o.TotalValue, &o.Status, &o.Metadata, &o.CreatedAt)
	o.Side, o.Type = store.OrderSide(side), store.OrderType(typ)
	return o, err
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
