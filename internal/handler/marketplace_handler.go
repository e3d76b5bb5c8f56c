package handler

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/terra-capital/market-api/internal/dto"
	"github.com/terra-capital/market-api/internal/middleware"
	"github.com/terra-capital/market-api/internal/service"
	"github.com/terra-capital/market-api/internal/utils"
)

// MarketplaceHandler exposes the polled state snapshot and the single
// command endpoint that dispatches on the request's action field.
type MarketplaceHandler struct {
	assets   service.AssetService
	threads  service.ThreadService
	messages service.MessageService
	logger   zerolog.Logger
}

// NewMarketplaceHandler constructs the marketplace handler.
func NewMarketplaceHandler(assets service.AssetService, threads service.ThreadService, messages service.MessageService, logger zerolog.Logger) *MarketplaceHandler {
	return &MarketplaceHandler{
		assets:   assets,
		threads:  threads,
		messages: messages,
		logger:   logger.With().Str("component", "marketplace_handler").Logger(),
	}
}

// Register wires marketplace routes.
func (h *MarketplaceHandler) Register(router fiber.Router) {
	router.Get("/state", h.state)
	router.Get("/threads/:id/messages", h.threadMessages)
	router.Post("", h.command)
}

func (h *MarketplaceHandler) state(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	state, err := h.assets.State(c.UserContext(), actor)
	if err != nil {
		if handled, respErr := sendDomainError(c, err); handled {
			return respErr
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to build market state")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load state")
	}

	return utils.SendOK(c, fiber.Map{"state": state})
}

func (h *MarketplaceHandler) threadMessages(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	threadID, err := c.ParamsInt("id")
	if err != nil || threadID <= 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid thread id")
	}

	messages, err := h.messages.ListMessages(c.UserContext(), actor, uint(threadID))
	if err != nil {
		if handled, respErr := sendDomainError(c, err); handled {
			return respErr
		}
		requestLogger(h.logger, c).Error().Err(err).Int("thread_id", threadID).Msg("failed to list messages")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load messages")
	}

	return utils.SendOK(c, fiber.Map{"messages": messages})
}

// command decodes the action discriminator first, then the action-specific
// payload from the same body.
func (h *MarketplaceHandler) command(c *fiber.Ctx) error {
	body := c.Body()

	var envelope dto.CommandEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	actor := middleware.ActorFromContext(c)
	ctx := c.UserContext()

	switch envelope.Action {
	case dto.ActionCreateAsset:
		var req dto.CreateAssetRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
		asset, err := h.assets.CreateAsset(ctx, actor, req)
		if err != nil {
			return h.fail(c, err, "createAsset")
		}
		return utils.SendOKWithStatus(c, fiber.StatusCreated, fiber.Map{"asset": asset})

	case dto.ActionBuyAsset:
		var req dto.BuyAssetRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
		purchase, err := h.assets.BuyAsset(ctx, actor, req)
		if err != nil {
			return h.fail(c, err, "buyAsset")
		}
		return utils.SendOKWithStatus(c, fiber.StatusCreated, fiber.Map{"purchase": purchase})

	case dto.ActionEnsureThread:
		var req dto.EnsureThreadRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
		thread, err := h.threads.EnsureThread(ctx, actor, req)
		if err != nil {
			return h.fail(c, err, "ensureThread")
		}
		return utils.SendOK(c, fiber.Map{"thread": thread})

	case dto.ActionSendMessage:
		var req dto.SendMessageRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
		message, err := h.messages.Send(ctx, actor, req)
		if err != nil {
			return h.fail(c, err, "sendMessage")
		}
		return utils.SendOKWithStatus(c, fiber.StatusCreated, fiber.Map{"message": message})

	case dto.ActionMarkRead:
		var req dto.MarkReadRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
		result, err := h.messages.MarkRead(ctx, actor, req)
		if err != nil {
			return h.fail(c, err, "markRead")
		}
		return utils.SendOK(c, fiber.Map{"changed": result.Changed})

	case dto.ActionDeleteMessages:
		var req dto.DeleteMessagesRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
		result, err := h.messages.DeleteMessages(ctx, actor, req)
		if err != nil {
			return h.fail(c, err, "deleteMessages")
		}
		return utils.SendOK(c, fiber.Map{
			"deleted_ids":     result.DeletedIDs,
			"not_allowed_ids": result.NotAllowedIDs,
		})

	default:
		return utils.SendError(c, fiber.StatusBadRequest, "unknown action")
	}
}

func (h *MarketplaceHandler) fail(c *fiber.Ctx, err error, action string) error {
	if handled, respErr := sendDomainError(c, err); handled {
		return respErr
	}
	requestLogger(h.logger, c).Error().Err(err).Str("action", action).Msg("command failed")
	return utils.SendError(c, fiber.StatusInternalServerError, "command failed")
}
