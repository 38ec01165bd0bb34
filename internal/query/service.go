package query

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"coinwatch-go/internal/models"
	"coinwatch-go/internal/store"
	"coinwatch-go/internal/syncer"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultLimit  = 20
	maxLimit      = 100
	moversTopN    = 10
	defaultSortBy = "market_cap_rank"
)

// External IDs of the dominance reference assets.
const (
	btcExternalID = "bitcoin"
	ethExternalID = "ethereum"
)

// sortColumns whitelists API sort keys and maps them to store columns.
var sortColumns = map[string]string{
	"market_cap_rank":             "market_cap_rank",
	"current_price":               "current_price",
	"market_cap":                  "market_cap",
	"total_volume":                "total_volume",
	"price_change_percentage_24h": "price_change_pct24h",
	"price_change_percentage_7d":  "price_change_pct7d",
	"name":                        "name",
	"symbol":                      "symbol",
	"created_at":                  "created_at",
}

// Service answers read-only derived views over the catalog. Every
// aggregate is computed fresh per call; caching, if any, lives at the
// transport boundary.
type Service struct {
	logger      *zap.Logger
	catalog     *store.Catalog
	coordinator *syncer.Coordinator
}

// NewService creates a query service.
func NewService(logger *zap.Logger, catalog *store.Catalog, coordinator *syncer.Coordinator) *Service {
	return &Service{
		logger:      logger,
		catalog:     catalog,
		coordinator: coordinator,
	}
}

// List returns a filtered, sorted page of assets.
func (s *Service) List(params ListParams) (*PagedAssets, error) {
	f, sort, page, limit, err := s.validate(params)
	if err != nil {
		return nil, err
	}

	assets, total, err := s.catalog.FindMany(f, sort, (page-1)*limit, limit)
	if err != nil {
		return nil, s.storeFailure("list assets", err)
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return &PagedAssets{
		Data:       assets,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1 && total > 0,
	}, nil
}

// GetByExternalID returns a single asset by the provider's key.
func (s *Service) GetByExternalID(externalID string) (*models.CryptoAsset, error) {
	asset, err := s.catalog.FindByExternalID(externalID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: asset %q", ErrNotFound, externalID)
	}
	if err != nil {
		return nil, s.storeFailure("get asset", err)
	}
	return asset, nil
}

// GetByID returns a single asset by database identifier.
func (s *Service) GetByID(id uint) (*models.CryptoAsset, error) {
	asset, err := s.catalog.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: asset id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, s.storeFailure("get asset", err)
	}
	return asset, nil
}

// Compare returns the active assets matching the given tickers, ordered
// by rank ascending. Tickers are matched case-insensitively and are not
// unique keys, so the result may hold more rows than input symbols;
// callers must not deduplicate.
func (s *Service) Compare(symbols []string) ([]models.CryptoAsset, error) {
	trimmed := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if t := strings.TrimSpace(sym); t != "" {
			trimmed = append(trimmed, t)
		}
	}
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: no symbols given", ErrInvalidQuery)
	}

	assets, err := s.catalog.FindBySymbols(trimmed)
	if err != nil {
		return nil, s.storeFailure("compare assets", err)
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("%w: no assets match %v", ErrNotFound, trimmed)
	}
	return assets, nil
}

// MarketStats computes the market rollup over active assets.
func (s *Service) MarketStats() (*MarketStats, error) {
	agg, err := s.catalog.Aggregate()
	if err != nil {
		return nil, s.storeFailure("aggregate market stats", err)
	}

	stats := &MarketStats{
		TotalCount:     agg.Count,
		TotalMarketCap: agg.TotalMarketCap,
		TotalVolume24h: agg.TotalVolume24h,
		AvgChange24h:   round2(agg.AvgChange24h),
		Gainers24h:     agg.Gainers24h,
		Losers24h:      agg.Losers24h,
	}
	stats.BTCDominance = s.dominance(btcExternalID, agg.TotalMarketCap)
	stats.ETHDominance = s.dominance(ethExternalID, agg.TotalMarketCap)
	return stats, nil
}

// dominance is the reference asset's share of the total market cap. An
// absent or inactive reference simply contributes zero.
func (s *Service) dominance(externalID string, totalCap float64) float64 {
	if totalCap <= 0 {
		return 0
	}
	asset, err := s.catalog.FindByExternalID(externalID)
	if err != nil || !asset.IsActive {
		return 0
	}
	return round2(asset.MarketCap / totalCap * 100)
}

// TopMovers returns the top gainers, losers and most volatile assets of
// the last 24 hours.
func (s *Service) TopMovers() (*Movers, error) {
	gainers, err := s.catalog.TopByChange24h(moversTopN, true)
	if err != nil {
		return nil, s.storeFailure("rank gainers", err)
	}
	losers, err := s.catalog.TopByChange24h(moversTopN, false)
	if err != nil {
		return nil, s.storeFailure("rank losers", err)
	}
	volatile, err := s.catalog.TopByVolatility(moversTopN)
	if err != nil {
		return nil, s.storeFailure("rank volatility", err)
	}
	return &Movers{Gainers: gainers, Losers: losers, MostVolatile: volatile}, nil
}

// SyncStatus projects the coordinator's state.
func (s *Service) SyncStatus() syncer.Snapshot {
	return s.coordinator.Status()
}

// History returns the most recent price points for an asset, newest
// first.
func (s *Service) History(externalID string, limit int) ([]models.PricePoint, error) {
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	asset, err := s.GetByExternalID(externalID)
	if err != nil {
		return nil, err
	}
	points, err := s.catalog.RecentPricePoints(asset.ID, limit)
	if err != nil {
		return nil, s.storeFailure("load history", err)
	}
	return points, nil
}

// Health reports service liveness: degraded once syncs start failing.
func (s *Service) Health() (*Health, error) {
	total, err := s.catalog.Count(false)
	if err != nil {
		return nil, s.storeFailure("count assets", err)
	}
	snap := s.coordinator.Status()
	status := "healthy"
	if snap.ConsecutiveErrors > 0 {
		status = "degraded"
	}
	return &Health{
		Status:      status,
		LastSync:    snap.LastCompletedAt,
		TotalAssets: total,
	}, nil
}

// validate normalizes ListParams and rejects malformed combinations
// rather than letting them silently return empty results.
func (s *Service) validate(p ListParams) (store.Filter, store.Sort, int, int, error) {
	var f store.Filter
	var sort store.Sort

	sortBy := p.SortBy
	if sortBy == "" {
		sortBy = defaultSortBy
	}
	column, ok := sortColumns[sortBy]
	if !ok {
		return f, sort, 0, 0, fmt.Errorf("%w: unknown sort field %q", ErrInvalidQuery, p.SortBy)
	}
	switch p.Order {
	case "", "asc":
	case "desc":
		sort.Desc = true
	default:
		return f, sort, 0, 0, fmt.Errorf("%w: order must be asc or desc", ErrInvalidQuery)
	}
	sort.Column = column

	page := p.Page
	if page == 0 {
		page = 1
	}
	if page < 1 {
		return f, sort, 0, 0, fmt.Errorf("%w: page must be positive", ErrInvalidQuery)
	}
	limit := p.Limit
	if limit == 0 {
		limit = defaultLimit
	}
	if limit < 1 || limit > maxLimit {
		return f, sort, 0, 0, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidQuery, maxLimit)
	}

	if p.MinRank != nil && p.MaxRank != nil && *p.MinRank > *p.MaxRank {
		return f, sort, 0, 0, fmt.Errorf("%w: min_rank greater than max_rank", ErrInvalidQuery)
	}
	if p.MinPrice != nil && p.MaxPrice != nil && *p.MinPrice > *p.MaxPrice {
		return f, sort, 0, 0, fmt.Errorf("%w: min_price greater than max_price", ErrInvalidQuery)
	}
	if p.MinChange24h != nil && p.MaxChange24h != nil && *p.MinChange24h > *p.MaxChange24h {
		return f, sort, 0, 0, fmt.Errorf("%w: min_change_24h greater than max_change_24h", ErrInvalidQuery)
	}

	f = store.Filter{
		Search:       p.Search,
		Category:     p.Category,
		MinRank:      p.MinRank,
		MaxRank:      p.MaxRank,
		MinPrice:     p.MinPrice,
		MaxPrice:     p.MaxPrice,
		MinChange24h: p.MinChange24h,
		MaxChange24h: p.MaxChange24h,
		ActiveOnly:   p.ActiveOnly,
	}
	return f, sort, page, limit, nil
}

func (s *Service) storeFailure(op string, err error) error {
	s.logger.Error("Catalog store access failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%w: %s", ErrServiceUnavailable, op)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
