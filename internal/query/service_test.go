package query

import (
	"path/filepath"
	"testing"
	"time"

	"coinwatch-go/internal/config"
	"coinwatch-go/internal/database"
	"coinwatch-go/internal/models"
	"coinwatch-go/internal/store"
	"coinwatch-go/internal/syncer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *store.Catalog, *gorm.DB) {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	catalog := store.NewCatalog(db)
	cfg := config.Config{Sync: config.Sync{IntervalMinutes: 60, DataSource: "testfeed"}}
	coordinator := syncer.NewCoordinator(zap.NewNop(), nil, catalog, &cfg)
	return NewService(zap.NewNop(), catalog, coordinator), catalog, db
}

func seed(t *testing.T, c *store.Catalog, assets ...models.CryptoAsset) {
	t.Helper()
	for i := range assets {
		if assets[i].Name == "" {
			assets[i].Name = assets[i].ExternalID
		}
		assets[i].LastSyncedAt = time.Now()
		_, err := c.Upsert(&assets[i])
		require.NoError(t, err)
	}
}

func deactivate(t *testing.T, db *gorm.DB, externalID string) {
	t.Helper()
	err := db.Model(&models.CryptoAsset{}).
		Where("external_id = ?", externalID).
		Update("is_active", false).Error
	require.NoError(t, err)
}

func TestListValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	one, ten := 1, 10
	minP, maxP := 5.0, 1.0
	cases := map[string]ListParams{
		"UnknownSortField":  {SortBy: "profit"},
		"BadOrder":          {Order: "sideways"},
		"NegativePage":      {Page: -1},
		"OversizedLimit":    {Limit: 500},
		"RankRangeInverted": {MinRank: &ten, MaxRank: &one},
		"PriceRangeInverted": {
			MinPrice: &minP, MaxPrice: &maxP,
		},
	}
	for name, params := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.List(params)
			assert.ErrorIs(t, err, ErrInvalidQuery)
		})
	}
}

func TestListRankWindow(t *testing.T) {
	svc, catalog, _ := newTestService(t)
	fixture := make([]models.CryptoAsset, 0, 20)
	for i := 1; i <= 20; i++ {
		fixture = append(fixture, models.CryptoAsset{
			ExternalID:    string(rune('a'+i-1)) + "-coin",
			Symbol:        "S",
			MarketCapRank: i,
			CurrentPrice:  float64(i),
			IsActive:      true,
		})
	}
	seed(t, catalog, fixture...)

	one, ten := 1, 10
	page, err := svc.List(ListParams{
		MinRank:    &one,
		MaxRank:    &ten,
		SortBy:     "market_cap_rank",
		Order:      "asc",
		ActiveOnly: true,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(10), page.Total)
	require.Len(t, page.Data, 10)
	for i, a := range page.Data {
		assert.Equal(t, i+1, a.MarketCapRank)
	}
	assert.Equal(t, 1, page.TotalPages)
	assert.False(t, page.HasNext)
	assert.False(t, page.HasPrev)
}

func TestListPaginationEnvelope(t *testing.T) {
	svc, catalog, _ := newTestService(t)
	fixture := make([]models.CryptoAsset, 0, 25)
	for i := 1; i <= 25; i++ {
		fixture = append(fixture, models.CryptoAsset{
			ExternalID:    string(rune('a'+i%26)) + string(rune('a'+i/26)) + "-coin",
			Symbol:        "S",
			MarketCapRank: i,
			IsActive:      true,
		})
	}
	seed(t, catalog, fixture...)

	page, err := svc.List(ListParams{Page: 2, Limit: 10, ActiveOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(25), page.Total)
	assert.Len(t, page.Data, 10)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.HasNext)
	assert.True(t, page.HasPrev)
	assert.Equal(t, 11, page.Data[0].MarketCapRank)
}

func TestGetByExternalID(t *testing.T) {
	svc, catalog, _ := newTestService(t)
	seed(t, catalog, models.CryptoAsset{ExternalID: "bitcoin", Symbol: "btc", IsActive: true})

	asset, err := svc.GetByExternalID("bitcoin")
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", asset.ExternalID)

	_, err = svc.GetByExternalID("no-such-coin")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompare(t *testing.T) {
	svc, catalog, db := newTestService(t)
	seed(t, catalog,
		models.CryptoAsset{ExternalID: "bitcoin", Symbol: "btc", MarketCapRank: 1, IsActive: true},
		models.CryptoAsset{ExternalID: "bitcoin-bep2", Symbol: "BTC", MarketCapRank: 300, IsActive: true},
		models.CryptoAsset{ExternalID: "ethereum", Symbol: "eth", MarketCapRank: 2, IsActive: true},
		models.CryptoAsset{ExternalID: "old-coin", Symbol: "old", MarketCapRank: 900, IsActive: true},
	)
	deactivate(t, db, "old-coin")

	t.Run("DuplicateTickerReturnsAllRows", func(t *testing.T) {
		// Symbol is not a unique key; both BTC rows come back, rank asc.
		assets, err := svc.Compare([]string{"btc"})
		require.NoError(t, err)
		require.Len(t, assets, 2)
		assert.Equal(t, "bitcoin", assets[0].ExternalID)
		assert.Equal(t, "bitcoin-bep2", assets[1].ExternalID)
	})

	t.Run("CaseInsensitiveMultiSymbol", func(t *testing.T) {
		assets, err := svc.Compare([]string{"BTC", "Eth"})
		require.NoError(t, err)
		assert.Len(t, assets, 3)
		assert.Equal(t, "bitcoin", assets[0].ExternalID)
	})

	t.Run("InactiveExcluded", func(t *testing.T) {
		_, err := svc.Compare([]string{"old"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("NoSymbols", func(t *testing.T) {
		_, err := svc.Compare([]string{" ", ""})
		assert.ErrorIs(t, err, ErrInvalidQuery)
	})

	t.Run("NoMatches", func(t *testing.T) {
		_, err := svc.Compare([]string{"xyz"})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMarketStats(t *testing.T) {
	svc, catalog, db := newTestService(t)
	seed(t, catalog,
		models.CryptoAsset{ExternalID: "bitcoin", Symbol: "btc", MarketCapRank: 1, MarketCap: 600, TotalVolume: 60, PriceChangePct24h: 2, IsActive: true},
		models.CryptoAsset{ExternalID: "ethereum", Symbol: "eth", MarketCapRank: 2, MarketCap: 250, TotalVolume: 25, PriceChangePct24h: -1, IsActive: true},
		models.CryptoAsset{ExternalID: "tether", Symbol: "usdt", MarketCapRank: 3, MarketCap: 150, TotalVolume: 90, PriceChangePct24h: 0, IsActive: true},
		models.CryptoAsset{ExternalID: "ghost", Symbol: "gst", MarketCapRank: 4, MarketCap: 1e9, IsActive: true},
	)
	deactivate(t, db, "ghost")

	stats, err := svc.MarketStats()
	require.NoError(t, err)

	// Inactive assets contribute nothing.
	assert.Equal(t, int64(3), stats.TotalCount)
	assert.Equal(t, 1000.0, stats.TotalMarketCap)
	assert.Equal(t, 175.0, stats.TotalVolume24h)
	assert.Equal(t, 60.0, stats.BTCDominance)
	assert.Equal(t, 25.0, stats.ETHDominance)
	assert.InDelta(t, 0.33, stats.AvgChange24h, 0.01)
	assert.Equal(t, int64(1), stats.Gainers24h)
	assert.Equal(t, int64(1), stats.Losers24h)

	// Dominance shares can never exceed the whole market.
	assert.LessOrEqual(t, stats.BTCDominance+stats.ETHDominance, 100.0+1e-9)
}

func TestTopMovers(t *testing.T) {
	svc, catalog, _ := newTestService(t)
	fixture := make([]models.CryptoAsset, 0, 12)
	for i := 1; i <= 12; i++ {
		fixture = append(fixture, models.CryptoAsset{
			ExternalID:        string(rune('a'+i-1)) + "-coin",
			Symbol:            "S",
			MarketCapRank:     i,
			CurrentPrice:      100,
			High24h:           100 + float64(i),
			Low24h:            100 - float64(i),
			PriceChangePct24h: float64(i) - 6,
			IsActive:          true,
		})
	}
	// No usable price: excluded from the volatility ranking only.
	fixture = append(fixture, models.CryptoAsset{
		ExternalID: "broken-feed-coin", Symbol: "bfc", MarketCapRank: 999,
		PriceChangePct24h: 50, IsActive: true,
	})
	seed(t, catalog, fixture...)

	movers, err := svc.TopMovers()
	require.NoError(t, err)

	require.Len(t, movers.Gainers, 10)
	assert.Equal(t, "broken-feed-coin", movers.Gainers[0].ExternalID)
	assert.Equal(t, 6.0, movers.Gainers[1].PriceChangePct24h)

	require.Len(t, movers.Losers, 10)
	assert.Equal(t, -5.0, movers.Losers[0].PriceChangePct24h)

	require.Len(t, movers.MostVolatile, 10)
	assert.Equal(t, "l-coin", movers.MostVolatile[0].ExternalID)
	for _, a := range movers.MostVolatile {
		assert.NotEqual(t, "broken-feed-coin", a.ExternalID)
	}
}

func TestSyncStatusProjection(t *testing.T) {
	svc, _, _ := newTestService(t)

	snap := svc.SyncStatus()
	assert.False(t, snap.InProgress)
	assert.Equal(t, "testfeed", snap.DataSource)
}

func TestHistory(t *testing.T) {
	svc, catalog, _ := newTestService(t)
	seed(t, catalog, models.CryptoAsset{ExternalID: "bitcoin", Symbol: "btc", IsActive: true})
	asset, err := svc.GetByExternalID("bitcoin")
	require.NoError(t, err)

	base := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, catalog.AppendPricePoint(asset.ID, 60000+float64(i), 0, 0, base.Add(time.Duration(i)*time.Minute)))
	}

	points, err := svc.History("bitcoin", 2)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 60002.0, points[0].Price)

	_, err = svc.History("no-such-coin", 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHealth(t *testing.T) {
	svc, catalog, _ := newTestService(t)
	seed(t, catalog,
		models.CryptoAsset{ExternalID: "bitcoin", Symbol: "btc", IsActive: true},
		models.CryptoAsset{ExternalID: "ethereum", Symbol: "eth", IsActive: true},
	)

	health, err := svc.Health()
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, int64(2), health.TotalAssets)
}
