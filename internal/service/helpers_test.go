package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/terra-capital/market-api/internal/models"
	"github.com/terra-capital/market-api/internal/repository"
)

var (
	errNotFound     = gorm.ErrRecordNotFound
	errInsufficient = repository.ErrInsufficientTokens
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator() *validator.Validate {
	return validator.New()
}

// threadRepoStub keeps threads in a slice and fakes the upsert semantics.
type threadRepoStub struct {
	threads []models.Thread
	nextID  uint
}

func (s *threadRepoStub) Ensure(ctx context.Context, thread *models.Thread) error {
	for _, existing := range s.threads {
		if existing.AssetID == thread.AssetID && existing.BuyerID == thread.BuyerID && existing.SellerID == thread.SellerID {
			thread.ID = existing.ID
			thread.CreatedAt = existing.CreatedAt
			return nil
		}
	}

	s.nextID++
	thread.ID = s.nextID
	thread.CreatedAt = time.Now()
	thread.UpdatedAt = thread.CreatedAt
	s.threads = append(s.threads, *thread)
	return nil
}

func (s *threadRepoStub) FindByID(ctx context.Context, id uint) (models.Thread, error) {
	for _, thread := range s.threads {
		if thread.ID == id {
			return thread, nil
		}
	}
	return models.Thread{}, errNotFound
}

func (s *threadRepoStub) ListByUser(ctx context.Context, userID string) ([]models.Thread, error) {
	var out []models.Thread
	for _, thread := range s.threads {
		if thread.BuyerID == userID || thread.SellerID == userID {
			out = append(out, thread)
		}
	}
	return out, nil
}

// assetRepoStub holds listings and purchases in memory.
type assetRepoStub struct {
	assets    []models.Asset
	purchases []models.Purchase
	nextID    uint
}

func (s *assetRepoStub) Create(ctx context.Context, asset *models.Asset) error {
	s.nextID++
	asset.ID = s.nextID
	asset.CreatedAt = time.Now()
	s.assets = append(s.assets, *asset)
	return nil
}

func (s *assetRepoStub) FindByID(ctx context.Context, id uint) (models.Asset, error) {
	for _, asset := range s.assets {
		if asset.ID == id {
			return asset, nil
		}
	}
	return models.Asset{}, errNotFound
}

func (s *assetRepoStub) List(ctx context.Context) ([]models.Asset, error) {
	return s.assets, nil
}

func (s *assetRepoStub) Buy(ctx context.Context, assetID uint, buyerID, buyerName string, quantity int) (models.Purchase, error) {
	for i, asset := range s.assets {
		if asset.ID != assetID {
			continue
		}
		if asset.AvailableTokens < quantity {
			return models.Purchase{}, errInsufficient
		}
		s.assets[i].AvailableTokens -= quantity
		purchase := models.Purchase{
			ID:            uint(len(s.purchases) + 1),
			AssetID:       assetID,
			BuyerID:       buyerID,
			BuyerName:     buyerName,
			SellerID:      asset.SellerID,
			Quantity:      quantity,
			PricePerToken: asset.PricePerToken,
			TotalPaid:     asset.PricePerToken * float64(quantity),
			PurchasedAt:   time.Now().UTC(),
		}
		s.purchases = append(s.purchases, purchase)
		return purchase, nil
	}
	return models.Purchase{}, errNotFound
}

func (s *assetRepoStub) ListPurchasesByBuyer(ctx context.Context, buyerID string) ([]models.Purchase, error) {
	var out []models.Purchase
	for _, purchase := range s.purchases {
		if purchase.BuyerID == buyerID {
			out = append(out, purchase)
		}
	}
	return out, nil
}

func (s *assetRepoStub) ListPurchasesBySeller(ctx context.Context, sellerID string, since time.Time) ([]models.Purchase, error) {
	var out []models.Purchase
	for _, purchase := range s.purchases {
		if purchase.SellerID == sellerID && (since.IsZero() || purchase.PurchasedAt.After(since)) {
			out = append(out, purchase)
		}
	}
	return out, nil
}

// messageRepoStub records appended messages and canned lifecycle results.
type messageRepoStub struct {
	appended   []models.Message
	unread     []models.Message
	visible    []models.Message
	readCount  int64
	hidden     []uint
	deleted    []uint
	notAllowed []uint
	hideArgs   []uint
	deleteArgs []uint
	nextID     uint
}

func (s *messageRepoStub) Append(ctx context.Context, message *models.Message) error {
	s.nextID++
	message.ID = s.nextID
	message.CreatedAt = time.Now().UTC()
	s.appended = append(s.appended, *message)
	return nil
}

func (s *messageRepoStub) ListByThread(ctx context.Context, threadID uint, viewerID string) ([]models.Message, error) {
	var out []models.Message
	for _, message := range s.appended {
		if message.ThreadID == threadID {
			out = append(out, message)
		}
	}
	return out, nil
}

func (s *messageRepoStub) ListVisibleForUser(ctx context.Context, userID string) ([]models.Message, error) {
	return s.visible, nil
}

func (s *messageRepoStub) ListUnreadForUser(ctx context.Context, userID string) ([]models.Message, error) {
	return s.unread, nil
}

func (s *messageRepoStub) MarkRead(ctx context.Context, threadID uint, readerRole string) (int64, error) {
	return s.readCount, nil
}

func (s *messageRepoStub) HideForUser(ctx context.Context, threadID uint, messageIDs []uint, userID string) ([]uint, error) {
	s.hideArgs = append([]uint(nil), messageIDs...)
	return s.hidden, nil
}

func (s *messageRepoStub) DeleteForEveryone(ctx context.Context, threadID uint, messageIDs []uint, actorID string) ([]uint, []uint, error) {
	s.deleteArgs = append([]uint(nil), messageIDs...)
	return s.deleted, s.notAllowed, nil
}
