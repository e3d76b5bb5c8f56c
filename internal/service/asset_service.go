package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/terra-capital/market-api/internal/dto"
	"github.com/terra-capital/market-api/internal/models"
	"github.com/terra-capital/market-api/internal/observability"
	"github.com/terra-capital/market-api/internal/repository"
)

// AssetService manages listings, purchases and the polled market snapshot.
type AssetService interface {
	CreateAsset(ctx context.Context, actor Identity, req dto.CreateAssetRequest) (dto.AssetResponse, error)
	BuyAsset(ctx context.Context, actor Identity, req dto.BuyAssetRequest) (dto.PurchaseResponse, error)
	State(ctx context.Context, actor Identity) (dto.MarketStateResponse, error)
}

type assetService struct {
	assets    repository.AssetRepository
	threads   repository.ThreadRepository
	messages  repository.MessageRepository
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	sanitizer *bluemonday.Policy
}

// NewAssetService constructs the asset service.
func NewAssetService(assets repository.AssetRepository, threads repository.ThreadRepository, messages repository.MessageRepository, validate *validator.Validate, logger zerolog.Logger) AssetService {
	return &assetService{
		assets:    assets,
		threads:   threads,
		messages:  messages,
		validator: validate,
		logger:    logger.With().Str("component", "asset_service").Logger(),
		tracer:    otel.Tracer("github.com/terra-capital/market-api/internal/service/asset"),
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (s *assetService) CreateAsset(ctx context.Context, actor Identity, req dto.CreateAssetRequest) (dto.AssetResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AssetResponse{}, err
	}

	asset := models.Asset{
		Title:           strings.TrimSpace(s.sanitizer.Sanitize(req.Title)),
		Category:        req.Category,
		Description:     strings.TrimSpace(s.sanitizer.Sanitize(req.Description)),
		Location:        strings.TrimSpace(s.sanitizer.Sanitize(req.Location)),
		PricePerToken:   req.PricePerToken,
		TotalTokens:     req.TotalTokens,
		AvailableTokens: req.TotalTokens,
		ExpectedYield:   strings.TrimSpace(req.ExpectedYield),
		SellerID:        actor.ID,
		SellerName:      actor.Name,
		ImageURL:        req.ImageURL,
	}
	if err := s.assets.Create(ctx, &asset); err != nil {
		return dto.AssetResponse{}, err
	}

	s.logger.Info().Uint("asset_id", asset.ID).Str("seller_id", actor.ID).Str("category", asset.Category).Msg("asset listed")

	return dto.NewAssetResponse(asset), nil
}

// BuyAsset records the purchase and opens the buyer/seller thread so the
// conversation is ready the moment the purchase completes.
func (s *assetService) BuyAsset(ctx context.Context, actor Identity, req dto.BuyAssetRequest) (dto.PurchaseResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.PurchaseResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "asset.buy", trace.WithAttributes(
		attribute.Int("asset.id", int(req.AssetID)),
		attribute.String("buyer.id", actor.ID),
		attribute.Int("quantity", req.Quantity),
	))
	defer span.End()

	asset, err := s.assets.FindByID(spanCtx, req.AssetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PurchaseResponse{}, ErrAssetNotFound
		}
		span.RecordError(err)
		return dto.PurchaseResponse{}, err
	}

	if asset.SellerID == actor.ID {
		return dto.PurchaseResponse{}, ErrOwnAsset
	}

	purchase, err := s.assets.Buy(spanCtx, asset.ID, actor.ID, actor.Name, req.Quantity)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PurchaseResponse{}, ErrAssetNotFound
		}
		span.RecordError(err)
		return dto.PurchaseResponse{}, err
	}

	thread := models.Thread{
		AssetID:    asset.ID,
		BuyerID:    actor.ID,
		BuyerName:  actor.Name,
		SellerID:   asset.SellerID,
		SellerName: asset.SellerName,
	}
	if err := s.threads.Ensure(spanCtx, &thread); err != nil {
		// The purchase stands even if the thread upsert hiccups; the buyer
		// can still open the conversation explicitly.
		s.logger.Warn().Err(err).Uint("asset_id", asset.ID).Msg("failed to open thread after purchase")
	}

	observability.Purchases().Inc()
	s.logger.Info().Uint("asset_id", asset.ID).Str("buyer_id", actor.ID).Int("quantity", req.Quantity).Msg("purchase completed")

	return dto.NewPurchaseResponse(purchase), nil
}

// State assembles the snapshot polled by clients: all listings plus the
// caller's purchases, threads and visible messages.
func (s *assetService) State(ctx context.Context, actor Identity) (dto.MarketStateResponse, error) {
	assets, err := s.assets.List(ctx)
	if err != nil {
		return dto.MarketStateResponse{}, err
	}

	purchases, err := s.assets.ListPurchasesByBuyer(ctx, actor.ID)
	if err != nil {
		return dto.MarketStateResponse{}, err
	}

	threads, err := s.threads.ListByUser(ctx, actor.ID)
	if err != nil {
		return dto.MarketStateResponse{}, err
	}

	messages, err := s.messages.ListVisibleForUser(ctx, actor.ID)
	if err != nil {
		return dto.MarketStateResponse{}, err
	}

	return dto.MarketStateResponse{
		Assets:    dto.NewAssetResponseSlice(assets),
		Purchases: dto.NewPurchaseResponseSlice(purchases),
		Threads:   dto.NewThreadResponseSlice(threads),
		Messages:  dto.NewMessageResponseSlice(messages),
	}, nil
}
