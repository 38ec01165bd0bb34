package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"coinwatch-go/internal/models"
	"gorm.io/gorm"
)

// UpsertOutcome tags what an upsert actually did.
type UpsertOutcome int

const (
	OutcomeInserted UpsertOutcome = iota
	OutcomeUpdated
)

// Filter narrows a catalog listing. Nil range bounds are open.
type Filter struct {
	Search       string
	Category     string
	MinRank      *int
	MaxRank      *int
	MinPrice     *float64
	MaxPrice     *float64
	MinChange24h *float64
	MaxChange24h *float64
	ActiveOnly   bool
}

// Sort names a column and direction for a listing. Column must already be
// validated against the sortable whitelist by the caller.
type Sort struct {
	Column string
	Desc   bool
}

// MarketAggregate is one fresh rollup over the active catalog.
type MarketAggregate struct {
	Count          int64
	TotalMarketCap float64
	TotalVolume24h float64
	AvgChange24h   float64
	Gainers24h     int64
	Losers24h      int64
}

// Catalog is the durable keyed collection of tracked assets. The sync
// engine is the only writer of market fields; query paths are read-only.
type Catalog struct {
	db *gorm.DB
}

// NewCatalog wraps a database handle in the catalog store.
func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

// FindByExternalID looks an asset up by the provider's stable key.
func (c *Catalog) FindByExternalID(externalID string) (*models.CryptoAsset, error) {
	var asset models.CryptoAsset
	if err := c.db.First(&asset, "external_id = ?", externalID).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

// FindByID looks an asset up by its database identifier.
func (c *Catalog) FindByID(id uint) (*models.CryptoAsset, error) {
	var asset models.CryptoAsset
	if err := c.db.First(&asset, id).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

// Upsert inserts or updates one asset keyed by ExternalID and reports
// which it did. On update only feed-owned market fields are overwritten;
// IsActive is left alone so a soft-excluded asset stays excluded no
// matter what the feed sends.
func (c *Catalog) Upsert(incoming *models.CryptoAsset) (UpsertOutcome, error) {
	existing, err := c.FindByExternalID(incoming.ExternalID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := c.db.Create(incoming).Error; err != nil {
			return 0, fmt.Errorf("failed to insert asset %s: %w", incoming.ExternalID, err)
		}
		return OutcomeInserted, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up asset %s: %w", incoming.ExternalID, err)
	}

	existing.Symbol = incoming.Symbol
	existing.Name = incoming.Name
	existing.CurrentPrice = incoming.CurrentPrice
	existing.MarketCap = incoming.MarketCap
	existing.MarketCapRank = incoming.MarketCapRank
	existing.TotalVolume = incoming.TotalVolume
	existing.High24h = incoming.High24h
	existing.Low24h = incoming.Low24h
	existing.PriceChangePct24h = incoming.PriceChangePct24h
	existing.PriceChangePct7d = incoming.PriceChangePct7d
	existing.PriceChangePct30d = incoming.PriceChangePct30d
	existing.CirculatingSupply = incoming.CirculatingSupply
	existing.TotalSupply = incoming.TotalSupply
	existing.MaxSupply = incoming.MaxSupply
	existing.AllTimeHigh = incoming.AllTimeHigh
	existing.AllTimeHighDate = incoming.AllTimeHighDate
	existing.AllTimeLow = incoming.AllTimeLow
	existing.AllTimeLowDate = incoming.AllTimeLowDate
	existing.Image = incoming.Image
	existing.LastSyncedAt = incoming.LastSyncedAt

	if err := c.db.Save(existing).Error; err != nil {
		return 0, fmt.Errorf("failed to update asset %s: %w", incoming.ExternalID, err)
	}
	incoming.ID = existing.ID
	return OutcomeUpdated, nil
}

// FindMany returns one page of assets matching the filter plus the total
// match count. Sort ties fall back to external_id ascending so paging is
// deterministic.
func (c *Catalog) FindMany(f Filter, s Sort, offset, limit int) ([]models.CryptoAsset, int64, error) {
	q := c.applyFilter(c.db.Model(&models.CryptoAsset{}), f).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count assets: %w", err)
	}

	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	var assets []models.CryptoAsset
	err := q.Order(fmt.Sprintf("%s %s, external_id ASC", s.Column, dir)).
		Offset(offset).Limit(limit).
		Find(&assets).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list assets: %w", err)
	}
	return assets, total, nil
}

// FindBySymbols returns all active assets whose ticker is in the given
// set, ordered by market-cap rank ascending. Tickers are not unique, so
// this can legitimately return more rows than input symbols.
func (c *Catalog) FindBySymbols(symbols []string) ([]models.CryptoAsset, error) {
	upper := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			upper = append(upper, s)
		}
	}

	var assets []models.CryptoAsset
	err := c.db.
		Where("UPPER(symbol) IN ? AND is_active = ?", upper, true).
		Order("market_cap_rank ASC, external_id ASC").
		Find(&assets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find assets by symbols: %w", err)
	}
	return assets, nil
}

// Aggregate computes a fresh market rollup over active assets.
func (c *Catalog) Aggregate() (MarketAggregate, error) {
	var agg MarketAggregate
	active := c.db.Model(&models.CryptoAsset{}).Where("is_active = ?", true)

	row := struct {
		Count     int64
		SumCap    float64
		SumVolume float64
		AvgChange float64
	}{}
	err := active.Session(&gorm.Session{}).
		Select("COUNT(*) AS count, COALESCE(SUM(market_cap), 0) AS sum_cap, COALESCE(SUM(total_volume), 0) AS sum_volume, COALESCE(AVG(price_change_pct24h), 0) AS avg_change").
		Scan(&row).Error
	if err != nil {
		return agg, fmt.Errorf("failed to aggregate market stats: %w", err)
	}
	agg.Count = row.Count
	agg.TotalMarketCap = row.SumCap
	agg.TotalVolume24h = row.SumVolume
	agg.AvgChange24h = row.AvgChange

	if err := active.Session(&gorm.Session{}).Where("price_change_pct24h > 0").Count(&agg.Gainers24h).Error; err != nil {
		return agg, fmt.Errorf("failed to count gainers: %w", err)
	}
	if err := active.Session(&gorm.Session{}).Where("price_change_pct24h < 0").Count(&agg.Losers24h).Error; err != nil {
		return agg, fmt.Errorf("failed to count losers: %w", err)
	}
	return agg, nil
}

// TopByChange24h returns the active assets with the largest (desc) or
// smallest (asc) 24h change.
func (c *Catalog) TopByChange24h(limit int, desc bool) ([]models.CryptoAsset, error) {
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	var assets []models.CryptoAsset
	err := c.db.
		Where("is_active = ?", true).
		Order(fmt.Sprintf("price_change_pct24h %s, external_id ASC", dir)).
		Limit(limit).
		Find(&assets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to rank 24h movers: %w", err)
	}
	return assets, nil
}

// TopByVolatility ranks active assets by intraday range relative to the
// current price. Rows without a usable high/low/price are excluded.
func (c *Catalog) TopByVolatility(limit int) ([]models.CryptoAsset, error) {
	var assets []models.CryptoAsset
	err := c.db.
		Where("is_active = ? AND current_price > 0 AND high24h > 0 AND low24h > 0", true).
		Order("(high24h - low24h) / current_price DESC, external_id ASC").
		Limit(limit).
		Find(&assets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to rank volatility: %w", err)
	}
	return assets, nil
}

// Count returns the number of assets, optionally active only.
func (c *Catalog) Count(activeOnly bool) (int64, error) {
	q := c.db.Model(&models.CryptoAsset{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count assets: %w", err)
	}
	return n, nil
}

// AppendPricePoint records one historical observation for an asset.
func (c *Catalog) AppendPricePoint(assetID uint, price, marketCap, volume float64, at time.Time) error {
	point := models.PricePoint{
		AssetID:   assetID,
		Price:     price,
		MarketCap: marketCap,
		Volume:    volume,
		Timestamp: at,
	}
	if err := c.db.Create(&point).Error; err != nil {
		return fmt.Errorf("failed to append price point: %w", err)
	}
	return nil
}

// RecentPricePoints returns up to limit observations for an asset,
// newest first.
func (c *Catalog) RecentPricePoints(assetID uint, limit int) ([]models.PricePoint, error) {
	var points []models.PricePoint
	err := c.db.
		Where("asset_id = ?", assetID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&points).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load price history: %w", err)
	}
	return points, nil
}

func (c *Catalog) applyFilter(q *gorm.DB, f Filter) *gorm.DB {
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if f.Search != "" {
		pattern := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(symbol) LIKE ? OR LOWER(external_id) LIKE ?", pattern, pattern, pattern)
	}
	if f.Category != "" {
		// Categories are stored as a JSON array; match the quoted element.
		q = q.Where(`categories LIKE ?`, `%"`+f.Category+`"%`)
	}
	if f.MinRank != nil {
		q = q.Where("market_cap_rank >= ?", *f.MinRank)
	}
	if f.MaxRank != nil {
		q = q.Where("market_cap_rank <= ?", *f.MaxRank)
	}
	if f.MinPrice != nil {
		q = q.Where("current_price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("current_price <= ?", *f.MaxPrice)
	}
	if f.MinChange24h != nil {
		q = q.Where("price_change_pct24h >= ?", *f.MinChange24h)
	}
	if f.MaxChange24h != nil {
		q = q.Where("price_change_pct24h <= ?", *f.MaxChange24h)
	}
	return q
}
