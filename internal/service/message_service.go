package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/terra-capital/market-api/internal/dto"
	"github.com/terra-capital/market-api/internal/models"
	"github.com/terra-capital/market-api/internal/observability"
	"github.com/terra-capital/market-api/internal/repository"
)

// MessageService implements the message lifecycle: send, list, read receipts
// and the two deletion modes.
type MessageService interface {
	Send(ctx context.Context, actor Identity, req dto.SendMessageRequest) (dto.MessageResponse, error)
	ListMessages(ctx context.Context, actor Identity, threadID uint) ([]dto.MessageResponse, error)
	MarkRead(ctx context.Context, actor Identity, req dto.MarkReadRequest) (dto.MarkReadResponse, error)
	DeleteMessages(ctx context.Context, actor Identity, req dto.DeleteMessagesRequest) (dto.DeleteMessagesResponse, error)
}

type messageService struct {
	messages  repository.MessageRepository
	threads   repository.ThreadRepository
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	sanitizer *bluemonday.Policy
}

// NewMessageService constructs the message service. Chat text is plain, so
// the sanitizer strips every HTML element rather than allowing a UGC subset.
func NewMessageService(messages repository.MessageRepository, threads repository.ThreadRepository, validate *validator.Validate, logger zerolog.Logger) MessageService {
	return &messageService{
		messages:  messages,
		threads:   threads,
		validator: validate,
		logger:    logger.With().Str("component", "message_service").Logger(),
		tracer:    otel.Tracer("github.com/terra-capital/market-api/internal/service/message"),
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (s *messageService) Send(ctx context.Context, actor Identity, req dto.SendMessageRequest) (dto.MessageResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.MessageResponse{}, err
	}

	clean := strings.TrimSpace(s.sanitizer.Sanitize(req.Text))
	if clean == "" && req.Attachment == nil {
		return dto.MessageResponse{}, ErrEmptyMessage
	}

	kind := models.MessageKindText
	var attachmentJSON datatypes.JSON
	if req.Attachment != nil {
		if err := req.Attachment.Validate(); err != nil {
			return dto.MessageResponse{}, err
		}
		kind = req.Attachment.Kind()

		raw, err := json.Marshal(req.Attachment)
		if err != nil {
			return dto.MessageResponse{}, err
		}
		attachmentJSON = raw
	}

	spanCtx, span := s.tracer.Start(ctx, "message.send", trace.WithAttributes(
		attribute.Int("thread.id", int(req.ThreadID)),
		attribute.String("sender.id", actor.ID),
		attribute.String("message.kind", kind),
	))
	defer span.End()

	thread, err := s.threads.FindByID(spanCtx, req.ThreadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MessageResponse{}, ErrThreadNotFound
		}
		span.RecordError(err)
		return dto.MessageResponse{}, err
	}

	role, err := participantRole(thread, actor.ID)
	if err != nil {
		return dto.MessageResponse{}, err
	}

	message := models.Message{
		ThreadID:   thread.ID,
		SenderID:   actor.ID,
		SenderName: actor.Name,
		SenderRole: role,
		Text:       clean,
		Kind:       kind,
		Status:     models.MessageStatusSent,
		Attachment: attachmentJSON,
	}
	if err := s.messages.Append(spanCtx, &message); err != nil {
		span.RecordError(err)
		return dto.MessageResponse{}, err
	}

	observability.MessagesSent().WithLabelValues(kind).Inc()
	if req.Attachment != nil {
		observability.AttachmentBytes().Observe(float64(req.Attachment.Size))
	}

	s.logger.Debug().Uint("thread_id", thread.ID).Uint("message_id", message.ID).Str("kind", kind).Msg("message stored")

	return dto.NewMessageResponse(message), nil
}

func (s *messageService) ListMessages(ctx context.Context, actor Identity, threadID uint) ([]dto.MessageResponse, error) {
	thread, err := s.threads.FindByID(ctx, threadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrThreadNotFound
		}
		return nil, err
	}

	if _, err := participantRole(thread, actor.ID); err != nil {
		return nil, err
	}

	messages, err := s.messages.ListByThread(ctx, threadID, actor.ID)
	if err != nil {
		return nil, err
	}

	return dto.NewMessageResponseSlice(messages), nil
}

func (s *messageService) MarkRead(ctx context.Context, actor Identity, req dto.MarkReadRequest) (dto.MarkReadResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.MarkReadResponse{}, err
	}

	thread, err := s.threads.FindByID(ctx, req.ThreadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MarkReadResponse{}, ErrThreadNotFound
		}
		return dto.MarkReadResponse{}, err
	}

	role, err := participantRole(thread, actor.ID)
	if err != nil {
		return dto.MarkReadResponse{}, err
	}

	changed, err := s.messages.MarkRead(ctx, thread.ID, role)
	if err != nil {
		return dto.MarkReadResponse{}, err
	}

	if changed > 0 {
		observability.ReadReceipts().Add(float64(changed))
		s.logger.Debug().Uint("thread_id", thread.ID).Int64("changed", changed).Msg("messages marked read")
	}

	return dto.MarkReadResponse{Changed: changed}, nil
}

// DeleteMessages applies one of the two deletion modes. "me" hides rows for
// the actor only and always succeeds for rows that exist in the thread.
// "everyone" tombstones eligible rows and reports the rest as refused; a
// partially refused batch is not an error.
func (s *messageService) DeleteMessages(ctx context.Context, actor Identity, req dto.DeleteMessagesRequest) (dto.DeleteMessagesResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.DeleteMessagesResponse{}, err
	}

	thread, err := s.threads.FindByID(ctx, req.ThreadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.DeleteMessagesResponse{}, ErrThreadNotFound
		}
		return dto.DeleteMessagesResponse{}, err
	}

	if _, err := participantRole(thread, actor.ID); err != nil {
		return dto.DeleteMessagesResponse{}, err
	}

	// Clients may repeat an id within a batch; each id is decided once.
	ids := dedupeIDs(req.MessageIDs)

	var result dto.DeleteMessagesResponse
	switch req.Mode {
	case dto.DeleteModeMe:
		hidden, err := s.messages.HideForUser(ctx, thread.ID, ids, actor.ID)
		if err != nil {
			return dto.DeleteMessagesResponse{}, err
		}
		result.DeletedIDs = hidden
		result.NotAllowedIDs = missingIDs(ids, hidden)
	case dto.DeleteModeEveryone:
		deleted, notAllowed, err := s.messages.DeleteForEveryone(ctx, thread.ID, ids, actor.ID)
		if err != nil {
			return dto.DeleteMessagesResponse{}, err
		}
		result.DeletedIDs = deleted
		result.NotAllowedIDs = notAllowed
	default:
		return dto.DeleteMessagesResponse{}, ErrUnknownAction
	}

	if len(result.DeletedIDs) > 0 {
		observability.MessagesDeleted().WithLabelValues(req.Mode).Add(float64(len(result.DeletedIDs)))
	}

	s.logger.Debug().
		Uint("thread_id", thread.ID).
		Str("mode", req.Mode).
		Int("deleted", len(result.DeletedIDs)).
		Int("refused", len(result.NotAllowedIDs)).
		Msg("delete batch processed")

	return result, nil
}

// dedupeIDs drops repeated ids while preserving first-seen order.
func dedupeIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func missingIDs(requested, granted []uint) []uint {
	grantedSet := make(map[uint]struct{}, len(granted))
	for _, id := range granted {
		grantedSet[id] = struct{}{}
	}

	missing := make([]uint, 0)
	for _, id := range requested {
		if _, ok := grantedSet[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
