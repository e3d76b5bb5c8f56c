package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/terra-capital/market-api/internal/models"
)

// ErrInsufficientTokens is returned when a purchase asks for more tokens than
// the asset still has available.
var ErrInsufficientTokens = errors.New("not enough tokens available")

// AssetRepository persists marketplace listings and purchases.
type AssetRepository interface {
	Create(ctx context.Context, asset *models.Asset) error
	FindByID(ctx context.Context, id uint) (models.Asset, error)
	List(ctx context.Context) ([]models.Asset, error)
	Buy(ctx context.Context, assetID uint, buyerID, buyerName string, quantity int) (models.Purchase, error)
	ListPurchasesByBuyer(ctx context.Context, buyerID string) ([]models.Purchase, error)
	ListPurchasesBySeller(ctx context.Context, sellerID string, since time.Time) ([]models.Purchase, error)
}

type assetRepository struct {
	db *gorm.DB
}

// NewAssetRepository constructs an asset repository backed by GORM.
func NewAssetRepository(db *gorm.DB) AssetRepository {
	return &assetRepository{db: db}
}

func (r *assetRepository) Create(ctx context.Context, asset *models.Asset) error {
	return r.db.WithContext(ctx).Create(asset).Error
}

func (r *assetRepository) FindByID(ctx context.Context, id uint) (models.Asset, error) {
	var asset models.Asset
	if err := r.db.WithContext(ctx).First(&asset, id).Error; err != nil {
		return models.Asset{}, err
	}
	return asset, nil
}

func (r *assetRepository) List(ctx context.Context) ([]models.Asset, error) {
	var assets []models.Asset
	if err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}

// Buy decrements availability and records the purchase in one transaction.
// The asset row is locked so concurrent purchases cannot oversell.
func (r *assetRepository) Buy(ctx context.Context, assetID uint, buyerID, buyerName string, quantity int) (models.Purchase, error) {
	var purchase models.Purchase

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var asset models.Asset
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&asset, assetID).Error; err != nil {
			return err
		}

		if asset.AvailableTokens < quantity {
			return ErrInsufficientTokens
		}

		if err := tx.Model(&models.Asset{}).
			Where("id = ?", asset.ID).
			Update("available_tokens", gorm.Expr("available_tokens - ?", quantity)).Error; err != nil {
			return err
		}

		purchase = models.Purchase{
			AssetID:       asset.ID,
			BuyerID:       buyerID,
			BuyerName:     buyerName,
			SellerID:      asset.SellerID,
			Quantity:      quantity,
			PricePerToken: asset.PricePerToken,
			TotalPaid:     asset.PricePerToken * float64(quantity),
			PurchasedAt:   time.Now().UTC(),
		}

		return tx.Create(&purchase).Error
	})
	if err != nil {
		return models.Purchase{}, err
	}

	return purchase, nil
}

func (r *assetRepository) ListPurchasesByBuyer(ctx context.Context, buyerID string) ([]models.Purchase, error) {
	var purchases []models.Purchase
	if err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("purchased_at DESC, id DESC").
		Find(&purchases).Error; err != nil {
		return nil, err
	}
	return purchases, nil
}

// ListPurchasesBySeller returns sales against the seller's listings since the
// given instant. Feeds the notification bell.
func (r *assetRepository) ListPurchasesBySeller(ctx context.Context, sellerID string, since time.Time) ([]models.Purchase, error) {
	query := r.db.WithContext(ctx).Where("seller_id = ?", sellerID)
	if !since.IsZero() {
		query = query.Where("purchased_at > ?", since)
	}

	var purchases []models.Purchase
	if err := query.Order("purchased_at DESC, id DESC").Find(&purchases).Error; err != nil {
		return nil, err
	}
	return purchases, nil
}
