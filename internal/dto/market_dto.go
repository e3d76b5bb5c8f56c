package dto

import (
	"time"

	"github.com/terra-capital/market-api/internal/models"
)

// CreateAssetRequest lists a new tokenized asset for sale.
type CreateAssetRequest struct {
	Title         string  `json:"title" validate:"required,max=120"`
	Category      string  `json:"category" validate:"required,oneof=cultivo tierra ganaderia"`
	Description   string  `json:"description" validate:"required,max=500"`
	Location      string  `json:"location" validate:"required,max=80"`
	PricePerToken float64 `json:"price_per_token" validate:"required,gt=0"`
	TotalTokens   int     `json:"total_tokens" validate:"required,gt=0"`
	ExpectedYield string  `json:"expected_yield" validate:"required,max=80"`
	ImageURL      string  `json:"image_url" validate:"omitempty,url"`
}

// BuyAssetRequest purchases a quantity of tokens from a listed asset.
type BuyAssetRequest struct {
	AssetID  uint `json:"asset_id" validate:"required"`
	Quantity int  `json:"quantity" validate:"required,gt=0"`
}

// AssetResponse is the serialized representation of a listed asset.
type AssetResponse struct {
	ID              uint      `json:"id"`
	Title           string    `json:"title"`
	Category        string    `json:"category"`
	Description     string    `json:"description"`
	Location        string    `json:"location"`
	PricePerToken   float64   `json:"price_per_token"`
	TotalTokens     int       `json:"total_tokens"`
	AvailableTokens int       `json:"available_tokens"`
	ExpectedYield   string    `json:"expected_yield"`
	SellerID        string    `json:"seller_id"`
	SellerName      string    `json:"seller_name"`
	ImageURL        string    `json:"image_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// PurchaseResponse is the serialized representation of a completed purchase.
type PurchaseResponse struct {
	ID            uint      `json:"id"`
	AssetID       uint      `json:"asset_id"`
	BuyerID       string    `json:"buyer_id"`
	BuyerName     string    `json:"buyer_name"`
	SellerID      string    `json:"seller_id"`
	Quantity      int       `json:"quantity"`
	PricePerToken float64   `json:"price_per_token"`
	TotalPaid     float64   `json:"total_paid"`
	PurchasedAt   time.Time `json:"purchased_at"`
}

// MarketStateResponse is the full snapshot clients poll: listings, the
// caller's purchases, their threads and the messages visible to them.
type MarketStateResponse struct {
	Assets    []AssetResponse    `json:"assets"`
	Purchases []PurchaseResponse `json:"purchases"`
	Threads   []ThreadResponse   `json:"threads"`
	Messages  []MessageResponse  `json:"messages"`
}

// NewAssetResponse converts an asset model into a DTO.
func NewAssetResponse(asset models.Asset) AssetResponse {
	return AssetResponse{
		ID:              asset.ID,
		Title:           asset.Title,
		Category:        asset.Category,
		Description:     asset.Description,
		Location:        asset.Location,
		PricePerToken:   asset.PricePerToken,
		TotalTokens:     asset.TotalTokens,
		AvailableTokens: asset.AvailableTokens,
		ExpectedYield:   asset.ExpectedYield,
		SellerID:        asset.SellerID,
		SellerName:      asset.SellerName,
		ImageURL:        asset.ImageURL,
		CreatedAt:       asset.CreatedAt,
	}
}

// NewAssetResponseSlice converts a slice of asset models into DTOs.
func NewAssetResponseSlice(assets []models.Asset) []AssetResponse {
	out := make([]AssetResponse, 0, len(assets))
	for _, asset := range assets {
		out = append(out, NewAssetResponse(asset))
	}
	return out
}

// NewPurchaseResponse converts a purchase model into a DTO.
func NewPurchaseResponse(purchase models.Purchase) PurchaseResponse {
	return PurchaseResponse{
		ID:            purchase.ID,
		AssetID:       purchase.AssetID,
		BuyerID:       purchase.BuyerID,
		BuyerName:     purchase.BuyerName,
		SellerID:      purchase.SellerID,
		Quantity:      purchase.Quantity,
		PricePerToken: purchase.PricePerToken,
		TotalPaid:     purchase.TotalPaid,
		PurchasedAt:   purchase.PurchasedAt,
	}
}

// NewPurchaseResponseSlice converts a slice of purchase models into DTOs.
func NewPurchaseResponseSlice(purchases []models.Purchase) []PurchaseResponse {
	out := make([]PurchaseResponse, 0, len(purchases))
	for _, purchase := range purchases {
		out = append(out, NewPurchaseResponse(purchase))
	}
	return out
}
