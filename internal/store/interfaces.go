package store

import "context"

// AssetStore provides access to tradable assets and their latest prices.
type AssetStore interface {
	// CreateAsset inserts a new asset. Returns ErrDuplicateKey if the symbol is taken.
	CreateAsset(ctx context.Context, a Asset) (Asset, error)

	// GetAsset returns ErrNotFound if the asset does not exist.
	GetAsset(ctx context.Context, id string) (Asset, error)

	// GetAssetBySymbol returns ErrNotFound if no asset owns symbol.
	GetAssetBySymbol(ctx context.Context, symbol string) (Asset, error)

	// ListAssets returns assets ordered by creation time then id.
	ListAssets(ctx context.Context, f AssetFilter) ([]Asset, error)

	// UpdateAssetSymbol returns ErrDuplicateKey if another asset owns symbol.
	UpdateAssetSymbol(ctx context.Context, id, symbol string) error

	// CurrentPrice returns ErrNotFound if the asset has never been priced.
	CurrentPrice(ctx context.Context, assetID string) (AssetPrice, error)

	SetPrice(ctx context.Context, p AssetPrice) error
}

// TraderStore provides access to NPC traders.
type TraderStore interface {
	CreateNpcTrader(ctx context.Context, t NpcTrader) (NpcTrader, error)
	GetNpcTrader(ctx context.Context, id string) (NpcTrader, error)
	ListNpcTraders(ctx context.Context, f TraderFilter) ([]NpcTrader, error)
	UpdateNpcTrader(ctx context.Context, id string, patch TraderPatch) error
}

// PortfolioStore holds one portfolio per user.
type PortfolioStore interface {
	// PortfolioByUser returns ErrNotFound if the user has no portfolio.
	PortfolioByUser(ctx context.Context, userID string) (Portfolio, error)

	// CreatePortfolio returns ErrDuplicateKey if the user already has one.
	CreatePortfolio(ctx context.Context, p Portfolio) (Portfolio, error)
}

type OrderStore interface {
	CreateOrder(ctx context.Context, o Order) (Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]Order, error)
}

// Store is the full storage collaborator used by the api and worker.
type Store interface {
	AssetStore
	TraderStore
	PortfolioStore
	OrderStore
}
