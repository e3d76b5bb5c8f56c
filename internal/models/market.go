package models

import "time"

// Asset categories supported by the marketplace.
const (
	AssetCategoryCrop      = "cultivo"
	AssetCategoryLand      = "tierra"
	AssetCategoryLivestock = "ganaderia"
)

// Asset is a tokenized agricultural asset listed by a seller. Buyers acquire
// fractions of it; each buyer/asset pair can hold one chat thread.
type Asset struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Title           string    `gorm:"size:120;not null" json:"title"`
	Category        string    `gorm:"size:32;not null" json:"category"`
	Description     string    `gorm:"type:text" json:"description"`
	Location        string    `gorm:"size:80" json:"location"`
	PricePerToken   float64   `gorm:"not null" json:"price_per_token"`
	TotalTokens     int       `gorm:"not null" json:"total_tokens"`
	AvailableTokens int       `gorm:"not null" json:"available_tokens"`
	ExpectedYield   string    `gorm:"size:80" json:"expected_yield"`
	SellerID        string    `gorm:"size:64;not null;index" json:"seller_id"`
	SellerName      string    `gorm:"size:120;not null" json:"seller_name"`
	ImageURL        string    `gorm:"size:512" json:"image_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Purchase records one buy operation against an asset.
type Purchase struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	AssetID       uint      `gorm:"not null;index" json:"asset_id"`
	BuyerID       string    `gorm:"size:64;not null;index" json:"buyer_id"`
	BuyerName     string    `gorm:"size:120;not null" json:"buyer_name"`
	SellerID      string    `gorm:"size:64;not null;index" json:"seller_id"`
	Quantity      int       `gorm:"not null" json:"quantity"`
	PricePerToken float64   `gorm:"not null" json:"price_per_token"`
	TotalPaid     float64   `gorm:"not null" json:"total_paid"`
	PurchasedAt   time.Time `json:"purchased_at"`
}
