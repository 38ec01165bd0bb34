package query

import (
	"time"

	"coinwatch-go/internal/models"
)

// ListParams carries filtering, sorting and pagination for a listing.
// Zero values mean "not filtered"; nil range bounds are open.
type ListParams struct {
	Search       string
	Category     string
	MinRank      *int
	MaxRank      *int
	MinPrice     *float64
	MaxPrice     *float64
	MinChange24h *float64
	MaxChange24h *float64
	ActiveOnly   bool
	SortBy       string
	Order        string
	Page         int
	Limit        int
}

// PagedAssets is one page of a listing plus its pagination envelope.
type PagedAssets struct {
	Data       []models.CryptoAsset `json:"data"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	Limit      int                  `json:"limit"`
	TotalPages int                  `json:"total_pages"`
	HasNext    bool                 `json:"has_next"`
	HasPrev    bool                 `json:"has_prev"`
}

// MarketStats is a fresh rollup over active assets.
type MarketStats struct {
	TotalCount     int64   `json:"total_count"`
	TotalMarketCap float64 `json:"total_market_cap"`
	TotalVolume24h float64 `json:"total_volume_24h"`
	BTCDominance   float64 `json:"btc_dominance"`
	ETHDominance   float64 `json:"eth_dominance"`
	AvgChange24h   float64 `json:"avg_change_24h"`
	Gainers24h     int64   `json:"gainers_24h"`
	Losers24h      int64   `json:"losers_24h"`
}

// Movers groups the day's notable assets.
type Movers struct {
	Gainers      []models.CryptoAsset `json:"gainers"`
	Losers       []models.CryptoAsset `json:"losers"`
	MostVolatile []models.CryptoAsset `json:"most_volatile"`
}

// Health is the service's liveness view.
type Health struct {
	Status      string    `json:"status"`
	LastSync    time.Time `json:"last_sync"`
	TotalAssets int64     `json:"total_assets"`
}
