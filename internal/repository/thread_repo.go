package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/terra-capital/market-api/internal/models"
)

// ThreadRepository persists buyer/seller conversations.
type ThreadRepository interface {
	Ensure(ctx context.Context, thread *models.Thread) error
	FindByID(ctx context.Context, id uint) (models.Thread, error)
	ListByUser(ctx context.Context, userID string) ([]models.Thread, error)
}

type threadRepository struct {
	db *gorm.DB
}

// NewThreadRepository constructs a thread repository backed by GORM.
func NewThreadRepository(db *gorm.DB) ThreadRepository {
	return &threadRepository{db: db}
}

// Ensure upserts on the (asset, buyer, seller) triple. Repeated calls return
// the same canonical thread; display names are refreshed on conflict so
// renames propagate.
func (r *threadRepository) Ensure(ctx context.Context, thread *models.Thread) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "asset_id"},
				{Name: "buyer_id"},
				{Name: "seller_id"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"buyer_name", "seller_name"}),
		}).
		Create(thread).Error
	if err != nil {
		return err
	}

	// The upsert does not report the surviving row's id on conflict, so
	// fetch the canonical row explicitly.
	var canonical models.Thread
	if err := r.db.WithContext(ctx).
		Where("asset_id = ? AND buyer_id = ? AND seller_id = ?", thread.AssetID, thread.BuyerID, thread.SellerID).
		First(&canonical).Error; err != nil {
		return err
	}

	*thread = canonical
	return nil
}

func (r *threadRepository) FindByID(ctx context.Context, id uint) (models.Thread, error) {
	var thread models.Thread
	if err := r.db.WithContext(ctx).First(&thread, id).Error; err != nil {
		return models.Thread{}, err
	}
	return thread, nil
}

func (r *threadRepository) ListByUser(ctx context.Context, userID string) ([]models.Thread, error) {
	var threads []models.Thread
	if err := r.db.WithContext(ctx).
		Where("buyer_id = ? OR seller_id = ?", userID, userID).
		Order("updated_at DESC, id DESC").
		Find(&threads).Error; err != nil {
		return nil, err
	}
	return threads, nil
}
