package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/terra-capital/market-api/internal/middleware"
	"github.com/terra-capital/market-api/internal/service"
	"github.com/terra-capital/market-api/internal/utils"
)

type qrCreateRequest struct {
	ThreadID uint `json:"thread_id"`
}

// QRLinkHandler issues and resolves QR handoff sessions.
type QRLinkHandler struct {
	sessions service.QRLinkService
	logger   zerolog.Logger
}

// NewQRLinkHandler constructs the QR link handler.
func NewQRLinkHandler(sessions service.QRLinkService, logger zerolog.Logger) *QRLinkHandler {
	return &QRLinkHandler{
		sessions: sessions,
		logger:   logger.With().Str("component", "qrlink_handler").Logger(),
	}
}

// Register wires QR link routes.
func (h *QRLinkHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Get("/:id", h.resolve)
}

func (h *QRLinkHandler) create(c *fiber.Ctx) error {
	var payload qrCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	actor := middleware.ActorFromContext(c)
	session := h.sessions.Create(actor, payload.ThreadID)

	return utils.SendOKWithStatus(c, fiber.StatusCreated, fiber.Map{"session": session})
}

func (h *QRLinkHandler) resolve(c *fiber.Ctx) error {
	session, err := h.sessions.Resolve(c.Params("id"))
	if err != nil {
		if handled, respErr := sendDomainError(c, err); handled {
			return respErr
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to resolve qr session")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to resolve session")
	}

	return utils.SendOK(c, fiber.Map{"session": session})
}
