package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/terra-capital/market-api/internal/middleware"
	"github.com/terra-capital/market-api/internal/repository"
	"github.com/terra-capital/market-api/internal/service"
	"github.com/terra-capital/market-api/internal/utils"
	"github.com/terra-capital/market-api/pkg/attachment"
)

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// sendDomainError maps service errors onto HTTP statuses. Anything unmapped
// is a 500 and gets logged by the caller.
func sendDomainError(c *fiber.Ctx, err error) (bool, error) {
	switch {
	case isValidationError(err):
		return true, utils.SendError(c, fiber.StatusBadRequest, "validation failed: "+err.Error())
	case errors.Is(err, service.ErrAssetNotFound),
		errors.Is(err, service.ErrThreadNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true, utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotParticipant):
		return true, utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, repository.ErrInsufficientTokens):
		return true, utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrSelfChat),
		errors.Is(err, service.ErrOwnAsset),
		errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, service.ErrUnknownAction),
		errors.Is(err, attachment.ErrEmpty),
		errors.Is(err, attachment.ErrTooLarge),
		errors.Is(err, attachment.ErrMalformed):
		return true, utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		return false, nil
	}
}
