package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/terra-capital/market-api/internal/dto"
	"github.com/terra-capital/market-api/internal/models"
)

func TestNotificationServiceSummaryGroupsUnread(t *testing.T) {
	now := time.Now().UTC()
	messages := &messageRepoStub{unread: []models.Message{
		{ID: 1, ThreadID: 5, SenderName: "Marta", CreatedAt: now.Add(-2 * time.Minute)},
		{ID: 2, ThreadID: 5, SenderName: "Marta", CreatedAt: now.Add(-time.Minute)},
		{ID: 3, ThreadID: 9, SenderName: "Jose", CreatedAt: now},
	}}

	svc := NewNotificationService(messages, &assetRepoStub{}, nil, testLogger())

	summary, err := svc.Summary(context.Background(), Identity{ID: "buyer-1"})
	require.NoError(t, err)
	require.Equal(t, 3, summary.UnreadCount)
	require.Len(t, summary.Unread, 2)
	require.Equal(t, uint(9), summary.Unread[0].ThreadID, "most recent thread first")
	require.Equal(t, 2, summary.Unread[1].Count)

	require.Len(t, summary.Items, 2)
	require.Equal(t, dto.NotificationTypeMessage, summary.Items[0].Type)
}

func TestNotificationServiceMarkSeenGatesSales(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer redisClient.Close()

	assets := &assetRepoStub{purchases: []models.Purchase{{
		ID:          1,
		AssetID:     3,
		BuyerName:   "Luis",
		SellerID:    "seller-1",
		Quantity:    4,
		PurchasedAt: time.Now().UTC().Add(-time.Minute),
	}}}

	svc := NewNotificationService(&messageRepoStub{}, assets, redisClient, testLogger())
	actor := Identity{ID: "seller-1", Name: "Marta"}

	summary, err := svc.Summary(context.Background(), actor)
	require.NoError(t, err)
	require.Len(t, summary.Items, 1)
	require.Equal(t, dto.NotificationTypePurchase, summary.Items[0].Type)

	require.NoError(t, svc.MarkSeen(context.Background(), actor))

	summary, err = svc.Summary(context.Background(), actor)
	require.NoError(t, err)
	require.Empty(t, summary.Items, "acknowledged sales drop off the bell")
}

func TestNotificationServiceUnreadSurvivesMarkSeen(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer redisClient.Close()

	messages := &messageRepoStub{unread: []models.Message{
		{ID: 1, ThreadID: 2, SenderName: "Marta", CreatedAt: time.Now().UTC()},
	}}

	svc := NewNotificationService(messages, &assetRepoStub{}, redisClient, testLogger())
	actor := Identity{ID: "buyer-1"}

	require.NoError(t, svc.MarkSeen(context.Background(), actor))

	summary, err := svc.Summary(context.Background(), actor)
	require.NoError(t, err)
	require.Equal(t, 1, summary.UnreadCount, "message items only clear via read receipts")
	require.Len(t, summary.Items, 1)
}
