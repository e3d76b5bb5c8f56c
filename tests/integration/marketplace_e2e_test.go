package integration_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/terra-capital/market-api/internal/config"
	"github.com/terra-capital/market-api/internal/dto"
	"github.com/terra-capital/market-api/internal/handler"
	"github.com/terra-capital/market-api/internal/middleware"
	"github.com/terra-capital/market-api/internal/models"
	"github.com/terra-capital/market-api/internal/repository"
	"github.com/terra-capital/market-api/internal/router"
	"github.com/terra-capital/market-api/internal/service"
)

const testSecret = "integration-secret"

func setupMarketApp(t *testing.T) *fiber.App {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Asset{},
		&models.Purchase{},
		&models.Thread{},
		&models.Message{},
		&models.MessageHide{},
	))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	assetRepo := repository.NewAssetRepository(db)
	threadRepo := repository.NewThreadRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	assetService := service.NewAssetService(assetRepo, threadRepo, messageRepo, validate, logger)
	threadService := service.NewThreadService(threadRepo, assetRepo, validate, logger)
	messageService := service.NewMessageService(messageRepo, threadRepo, validate, logger)
	notificationService := service.NewNotificationService(messageRepo, assetRepo, nil, logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})

	router.Register(app, config.Config{AppName: "Test", AppEnv: "test", JWTSecret: testSecret}, router.Dependencies{
		MarketplaceHandler:  handler.NewMarketplaceHandler(assetService, threadService, messageService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger),
		JWTMiddleware:       middleware.JWTProtected(testSecret),
	})

	return app
}

func signToken(t *testing.T, userID, name string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"name": name,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, payload interface{}) *http.Response {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func TestMarketplaceEndToEnd(t *testing.T) {
	app := setupMarketApp(t)

	seller := signToken(t, "seller-e2e", "Marta")
	buyer := signToken(t, "buyer-e2e", "Luis")

	// Unauthenticated requests are rejected outright.
	resp := doJSON(t, app, http.MethodGet, "/api/v1/marketplace/state", "", nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// Seller lists an asset.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/marketplace", seller, fiber.Map{
		"action":          "createAsset",
		"title":           "Finca El Roble",
		"category":        "cultivo",
		"description":     "Cafetal en producción",
		"location":        "Huila",
		"price_per_token": 12.5,
		"total_tokens":    200,
		"expected_yield":  "9% anual",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created struct {
		OK    bool              `json:"ok"`
		Asset dto.AssetResponse `json:"asset"`
	}
	decode(t, resp, &created)
	require.True(t, created.OK)
	assetID := created.Asset.ID

	// Buyer purchases tokens; the conversation opens automatically.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/marketplace", buyer, fiber.Map{
		"action":   "buyAsset",
		"asset_id": assetID,
		"quantity": 8,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var bought struct {
		OK       bool                 `json:"ok"`
		Purchase dto.PurchaseResponse `json:"purchase"`
	}
	decode(t, resp, &bought)
	require.Equal(t, float64(100), bought.Purchase.TotalPaid)

	// ensureThread resolves to the thread the purchase opened.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/marketplace", buyer, fiber.Map{
		"action":   "ensureThread",
		"asset_id": assetID,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var ensured struct {
		OK     bool               `json:"ok"`
		Thread dto.ThreadResponse `json:"thread"`
	}
	decode(t, resp, &ensured)
	threadID := ensured.Thread.ID
	require.NotZero(t, threadID)

	// Seller cannot open a thread against their own listing.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/marketplace", seller, fiber.Map{
		"action":   "ensureThread",
		"asset_id": assetID,
	})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Buyer and seller exchange messages.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/marketplace", buyer, fiber.Map{
		"action":    "sendMessage",
		"thread_id": threadID,
		"text":      "¿Sigue disponible?",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var sent struct {
		OK      bool                `json:"ok"`
		Message dto.MessageResponse `json:"message"`
	}
	decode(t, resp, &sent)
	require.Equal(t, models.MessageStatusSent, sent.Message.Status)
	buyerMessageID := sent.Message.ID

	resp = doJSON(t, app, http.MethodPost, "/api/v1/marketplace", seller, fiber.Map{
		"action":    "sendMessage",
		"thread_id": threadID,
		"text":      "Sí, quedan tokens.",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	decode(t, resp, &sent)

	// Seller has one unread message from the buyer.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/notifications/summary", seller, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var bell struct {
		OK      bool                            `json:"ok"`
		Summary dto.NotificationSummaryResponse `json:"summary"`
	}
	decode(t, resp, &bell)
	require.Equal(t, 1, bell.Summary.UnreadCount)

	// Seller reads the thread; the buyer's message flips to read.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/marketplace", seller, fiber.Map{
		"action":    "markRead",
		"thread_id": threadID,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var read struct {
		OK      bool  `json:"ok"`
		Changed int64 `json:"changed"`
	}
	decode(t, resp, &read)
	require.Equal(t, int64(1), read.Changed)

	// Deleting the already-read message for everyone is refused; sending a
	// fresh one and deleting it before it is read succeeds.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/marketplace", buyer, fiber.Map{
		"action":      "deleteMessages",
		"thread_id":   threadID,
		"message_ids": []uint{buyerMessageID},
		"mode":        "everyone",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var deletion struct {
		OK            bool   `json:"ok"`
		DeletedIDs    []uint `json:"deleted_ids"`
		NotAllowedIDs []uint `json:"not_allowed_ids"`
	}
	decode(t, resp, &deletion)
	require.Empty(t, deletion.DeletedIDs)
	require.Equal(t, []uint{buyerMessageID}, deletion.NotAllowedIDs)

	resp = doJSON(t, app, http.MethodPost, "/api/v1/marketplace", buyer, fiber.Map{
		"action":    "sendMessage",
		"thread_id": threadID,
		"text":      "me arrepentí",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	decode(t, resp, &sent)
	regretted := sent.Message.ID

	resp = doJSON(t, app, http.MethodPost, "/api/v1/marketplace", buyer, fiber.Map{
		"action":      "deleteMessages",
		"thread_id":   threadID,
		"message_ids": []uint{regretted},
		"mode":        "everyone",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decode(t, resp, &deletion)
	require.Equal(t, []uint{regretted}, deletion.DeletedIDs)

	// The tombstone is visible to both sides with no content.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/marketplace/state", seller, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var snapshot struct {
		OK    bool                    `json:"ok"`
		State dto.MarketStateResponse `json:"state"`
	}
	decode(t, resp, &snapshot)

	var tombstone *dto.MessageResponse
	for i := range snapshot.State.Messages {
		if snapshot.State.Messages[i].ID == regretted {
			tombstone = &snapshot.State.Messages[i]
		}
	}
	require.NotNil(t, tombstone)
	require.True(t, tombstone.DeletedForEveryone)
	require.Empty(t, tombstone.Text)
	require.Nil(t, tombstone.Attachment)
}
