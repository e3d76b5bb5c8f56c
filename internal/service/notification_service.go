package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/terra-capital/market-api/internal/dto"
	"github.com/terra-capital/market-api/internal/repository"
)

const lastSeenKeyPrefix = "notif:last_seen:"

// NotificationService builds the bell summary. Unread chat messages are
// always surfaced while unread; sale notifications are gated by the user's
// last-seen mark so acknowledging the bell clears them.
type NotificationService interface {
	Summary(ctx context.Context, actor Identity) (dto.NotificationSummaryResponse, error)
	MarkSeen(ctx context.Context, actor Identity) error
}

type notificationService struct {
	messages repository.MessageRepository
	assets   repository.AssetRepository
	redis    *redis.Client
	logger   zerolog.Logger
}

// NewNotificationService constructs the notification service.
func NewNotificationService(messages repository.MessageRepository, assets repository.AssetRepository, redisClient *redis.Client, logger zerolog.Logger) NotificationService {
	return &notificationService{
		messages: messages,
		assets:   assets,
		redis:    redisClient,
		logger:   logger.With().Str("component", "notification_service").Logger(),
	}
}

func (s *notificationService) Summary(ctx context.Context, actor Identity) (dto.NotificationSummaryResponse, error) {
	unreadMessages, err := s.messages.ListUnreadForUser(ctx, actor.ID)
	if err != nil {
		return dto.NotificationSummaryResponse{}, err
	}

	grouped := make(map[uint]*dto.ThreadUnread)
	order := make([]uint, 0)
	for _, message := range unreadMessages {
		entry, ok := grouped[message.ThreadID]
		if !ok {
			entry = &dto.ThreadUnread{ThreadID: message.ThreadID, From: message.SenderName}
			grouped[message.ThreadID] = entry
			order = append(order, message.ThreadID)
		}
		entry.Count++
		entry.From = message.SenderName
		if message.CreatedAt.After(entry.LatestAt) {
			entry.LatestAt = message.CreatedAt
		}
	}

	unread := make([]dto.ThreadUnread, 0, len(order))
	for _, threadID := range order {
		unread = append(unread, *grouped[threadID])
	}
	sort.Slice(unread, func(i, j int) bool {
		return unread[i].LatestAt.After(unread[j].LatestAt)
	})

	items := make([]dto.NotificationItem, 0, len(unread))
	for _, entry := range unread {
		text := fmt.Sprintf("%s sent you %d new message(s)", entry.From, entry.Count)
		if entry.Count == 1 {
			text = fmt.Sprintf("%s sent you a new message", entry.From)
		}
		items = append(items, dto.NotificationItem{
			ID:        fmt.Sprintf("msg-%d", entry.ThreadID),
			Type:      dto.NotificationTypeMessage,
			Text:      text,
			ThreadID:  entry.ThreadID,
			CreatedAt: entry.LatestAt,
		})
	}

	lastSeen := s.lastSeen(ctx, actor.ID)
	sales, err := s.assets.ListPurchasesBySeller(ctx, actor.ID, lastSeen)
	if err != nil {
		return dto.NotificationSummaryResponse{}, err
	}
	for _, sale := range sales {
		items = append(items, dto.NotificationItem{
			ID:        fmt.Sprintf("sale-%d", sale.ID),
			Type:      dto.NotificationTypePurchase,
			Text:      fmt.Sprintf("%s bought %d token(s)", sale.BuyerName, sale.Quantity),
			CreatedAt: sale.PurchasedAt,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	totalUnread := 0
	for _, entry := range unread {
		totalUnread += entry.Count
	}

	return dto.NotificationSummaryResponse{
		Items:       items,
		Unread:      unread,
		UnreadCount: totalUnread,
	}, nil
}

// MarkSeen stamps the user's last-seen mark. Message items are unaffected;
// they clear through read receipts instead.
func (s *notificationService) MarkSeen(ctx context.Context, actor Identity) error {
	if s.redis == nil {
		return nil
	}

	key := lastSeenKeyPrefix + actor.ID
	if err := s.redis.Set(ctx, key, time.Now().UTC().Format(time.RFC3339Nano), 0).Err(); err != nil {
		return fmt.Errorf("failed to store last-seen mark: %w", err)
	}
	return nil
}

func (s *notificationService) lastSeen(ctx context.Context, userID string) time.Time {
	if s.redis == nil {
		return time.Time{}
	}

	raw, err := s.redis.Get(ctx, lastSeenKeyPrefix+userID).Result()
	if err != nil {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		s.logger.Warn().Str("user_id", userID).Msg("invalid last-seen mark, ignoring")
		return time.Time{}
	}
	return parsed
}
