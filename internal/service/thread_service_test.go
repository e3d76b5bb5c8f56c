package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/terra-capital/market-api/internal/dto"
	"github.com/terra-capital/market-api/internal/models"
)

func TestThreadServiceEnsureThread(t *testing.T) {
	assets := &assetRepoStub{}
	threads := &threadRepoStub{}

	asset := models.Asset{
		Title: "Finca", Category: models.AssetCategoryCrop,
		PricePerToken: 10, TotalTokens: 100, AvailableTokens: 100,
		SellerID: "seller-1", SellerName: "Marta",
	}
	require.NoError(t, assets.Create(context.Background(), &asset))

	svc := NewThreadService(threads, assets, testValidator(), testLogger())
	actor := Identity{ID: "buyer-1", Name: "Luis"}

	first, err := svc.EnsureThread(context.Background(), actor, dto.EnsureThreadRequest{AssetID: asset.ID})
	require.NoError(t, err)
	require.NotZero(t, first.ID)
	require.Equal(t, "seller-1", first.SellerID)

	second, err := svc.EnsureThread(context.Background(), actor, dto.EnsureThreadRequest{AssetID: asset.ID})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID, "repeat calls return the canonical thread")
}

func TestThreadServiceEnsureThreadRejectsSelfChat(t *testing.T) {
	assets := &assetRepoStub{}
	threads := &threadRepoStub{}

	asset := models.Asset{
		Title: "Lote", Category: models.AssetCategoryLand,
		PricePerToken: 5, TotalTokens: 10, AvailableTokens: 10,
		SellerID: "seller-1", SellerName: "Marta",
	}
	require.NoError(t, assets.Create(context.Background(), &asset))

	svc := NewThreadService(threads, assets, testValidator(), testLogger())

	_, err := svc.EnsureThread(context.Background(), Identity{ID: "seller-1", Name: "Marta"}, dto.EnsureThreadRequest{AssetID: asset.ID})
	require.ErrorIs(t, err, ErrSelfChat)
}

func TestThreadServiceEnsureThreadUnknownAsset(t *testing.T) {
	svc := NewThreadService(&threadRepoStub{}, &assetRepoStub{}, testValidator(), testLogger())

	_, err := svc.EnsureThread(context.Background(), Identity{ID: "buyer-1"}, dto.EnsureThreadRequest{AssetID: 42})
	require.ErrorIs(t, err, ErrAssetNotFound)
}

func TestThreadServiceListThreads(t *testing.T) {
	threads := &threadRepoStub{}
	buyerThread := models.Thread{AssetID: 1, BuyerID: "buyer-1", BuyerName: "Luis", SellerID: "seller-1", SellerName: "Marta"}
	otherThread := models.Thread{AssetID: 2, BuyerID: "buyer-2", BuyerName: "Ana", SellerID: "seller-2", SellerName: "Jose"}
	require.NoError(t, threads.Ensure(context.Background(), &buyerThread))
	require.NoError(t, threads.Ensure(context.Background(), &otherThread))

	svc := NewThreadService(threads, &assetRepoStub{}, testValidator(), testLogger())

	listed, err := svc.ListThreads(context.Background(), Identity{ID: "buyer-1"})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, buyerThread.ID, listed[0].ID)
}
