package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/terra-capital/market-api/internal/dto"
	"github.com/terra-capital/market-api/internal/models"
	"github.com/terra-capital/market-api/internal/repository"
)

// ThreadService resolves and lists buyer/seller conversations.
type ThreadService interface {
	EnsureThread(ctx context.Context, actor Identity, req dto.EnsureThreadRequest) (dto.ThreadResponse, error)
	ListThreads(ctx context.Context, actor Identity) ([]dto.ThreadResponse, error)
}

type threadService struct {
	threads   repository.ThreadRepository
	assets    repository.AssetRepository
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewThreadService constructs the thread service.
func NewThreadService(threads repository.ThreadRepository, assets repository.AssetRepository, validate *validator.Validate, logger zerolog.Logger) ThreadService {
	return &threadService{
		threads:   threads,
		assets:    assets,
		validator: validate,
		logger:    logger.With().Str("component", "thread_service").Logger(),
		tracer:    otel.Tracer("github.com/terra-capital/market-api/internal/service/thread"),
	}
}

// EnsureThread returns the canonical thread between the acting buyer and the
// asset's seller, creating it on first contact. The caller is always the
// buyer side; sellers reach the same thread from their inbox.
func (s *threadService) EnsureThread(ctx context.Context, actor Identity, req dto.EnsureThreadRequest) (dto.ThreadResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ThreadResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "thread.ensure", trace.WithAttributes(
		attribute.Int("asset.id", int(req.AssetID)),
		attribute.String("buyer.id", actor.ID),
	))
	defer span.End()

	asset, err := s.assets.FindByID(spanCtx, req.AssetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ThreadResponse{}, ErrAssetNotFound
		}
		span.RecordError(err)
		return dto.ThreadResponse{}, err
	}

	if asset.SellerID == actor.ID {
		return dto.ThreadResponse{}, ErrSelfChat
	}

	thread := models.Thread{
		AssetID:    asset.ID,
		BuyerID:    actor.ID,
		BuyerName:  actor.Name,
		SellerID:   asset.SellerID,
		SellerName: asset.SellerName,
	}
	if err := s.threads.Ensure(spanCtx, &thread); err != nil {
		span.RecordError(err)
		return dto.ThreadResponse{}, err
	}

	s.logger.Debug().Uint("thread_id", thread.ID).Uint("asset_id", asset.ID).Str("buyer_id", actor.ID).Msg("thread resolved")

	return dto.NewThreadResponse(thread), nil
}

func (s *threadService) ListThreads(ctx context.Context, actor Identity) ([]dto.ThreadResponse, error) {
	threads, err := s.threads.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	return dto.NewThreadResponseSlice(threads), nil
}

// participantRole maps the actor onto their side of the thread, or reports
// that they do not belong to it.
func participantRole(thread models.Thread, actorID string) (string, error) {
	switch actorID {
	case thread.BuyerID:
		return models.RoleBuyer, nil
	case thread.SellerID:
		return models.RoleSeller, nil
	default:
		return "", ErrNotParticipant
	}
}
