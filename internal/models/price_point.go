package models

import (
	"time"

	"gorm.io/gorm"
)

// PricePoint is one historical price observation for an asset, appended
// during each successful sync pass.
type PricePoint struct {
	gorm.Model
	AssetID   uint      `gorm:"index:idx_asset_ts;not null" json:"asset_id"`
	Price     float64   `json:"price"`
	MarketCap float64   `json:"market_cap"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `gorm:"index:idx_asset_ts" json:"timestamp"`
}
