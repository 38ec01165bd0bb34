package models

import (
	"time"

	"gorm.io/gorm"
)

// CryptoAsset represents one tracked cryptocurrency.
//
// ExternalID is the provider's stable key and the only safe join key
// against the feed. Symbol is indexed but deliberately not unique: the
// feed assigns the same ticker to distinct assets, so symbol lookups
// are multi-result by design.
type CryptoAsset struct {
	gorm.Model
	ExternalID string `gorm:"uniqueIndex;not null" json:"external_id"`
	Symbol     string `gorm:"index;not null" json:"symbol"`
	Name       string `gorm:"not null" json:"name"`

	CurrentPrice      float64   `json:"current_price"`
	MarketCap         float64   `json:"market_cap"`
	MarketCapRank     int       `gorm:"index" json:"market_cap_rank"`
	TotalVolume       float64   `json:"total_volume"`
	High24h           float64   `json:"high_24h"`
	Low24h            float64   `json:"low_24h"`
	PriceChangePct24h float64   `json:"price_change_percentage_24h"`
	PriceChangePct7d  float64   `json:"price_change_percentage_7d"`
	PriceChangePct30d float64   `json:"price_change_percentage_30d"`
	CirculatingSupply float64   `json:"circulating_supply"`
	TotalSupply       float64   `json:"total_supply"`
	MaxSupply         float64   `json:"max_supply"`
	AllTimeHigh       float64   `json:"all_time_high"`
	AllTimeHighDate   time.Time `json:"all_time_high_date"`
	AllTimeLow        float64   `json:"all_time_low"`
	AllTimeLowDate    time.Time `json:"all_time_low_date"`

	Image       string   `json:"image"`
	Description string   `json:"description,omitempty"`
	Homepage    string   `json:"homepage,omitempty"`
	Categories  []string `gorm:"serializer:json" json:"categories,omitempty"`

	// IsActive soft-excludes an asset from public views without deleting
	// it, preserving foreign references. Sync never flips this on absence
	// from the fetched rank window.
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	LastSyncedAt time.Time `json:"last_synced_at"`
}
