package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/terra-capital/market-api/internal/middleware"
	"github.com/terra-capital/market-api/internal/service"
	"github.com/terra-capital/market-api/internal/utils"
)

// NotificationHandler serves the bell summary and last-seen acknowledgement.
type NotificationHandler struct {
	notifications service.NotificationService
	logger        zerolog.Logger
}

// NewNotificationHandler constructs the notification handler.
func NewNotificationHandler(notifications service.NotificationService, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		logger:        logger.With().Str("component", "notification_handler").Logger(),
	}
}

// Register wires notification routes.
func (h *NotificationHandler) Register(router fiber.Router) {
	router.Get("/summary", h.summary)
	router.Post("/seen", h.markSeen)
}

func (h *NotificationHandler) summary(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	summary, err := h.notifications.Summary(c.UserContext(), actor)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to build notification summary")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load notifications")
	}

	return utils.SendOK(c, fiber.Map{"summary": summary})
}

func (h *NotificationHandler) markSeen(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	if err := h.notifications.MarkSeen(c.UserContext(), actor); err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to store last-seen mark")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to acknowledge notifications")
	}

	return utils.SendOK(c, fiber.Map{})
}
