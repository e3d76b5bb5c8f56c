package utils

import "github.com/gofiber/fiber/v2"

// SendOK writes a success envelope. Payload keys are merged next to the ok
// flag so callers read fields like "thread" or "message" at the top level.
func SendOK(c *fiber.Ctx, payload fiber.Map) error {
	return SendOKWithStatus(c, fiber.StatusOK, payload)
}

// SendOKWithStatus writes a success envelope with an explicit HTTP status.
func SendOKWithStatus(c *fiber.Ctx, status int, payload fiber.Map) error {
	if status == 0 {
		status = fiber.StatusOK
	}

	body := fiber.Map{"ok": true}
	for key, value := range payload {
		if key == "ok" {
			continue
		}
		body[key] = value
	}

	return c.Status(status).JSON(body)
}

// SendError writes a failure envelope with the given status code.
func SendError(c *fiber.Ctx, status int, message string) error {
	if message == "" {
		message = "error"
	}

	return c.Status(status).JSON(fiber.Map{
		"ok":      false,
		"message": message,
	})
}
