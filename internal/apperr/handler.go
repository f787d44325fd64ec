package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"restoran-pos/internal/logging"
)

// Handler is the app-wide Fiber ErrorHandler. Every failure carries a "message"; outside
// production the wrapped cause and validation fields are added for debugging.
func Handler(production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
		}

		var ae *Error
		if !errors.As(err, &ae) {
			ae = &Error{Kind: KindInternal, Message: "internal server error", Err: err}
		}

		status := ae.Status()
		body := fiber.Map{"message": ae.Message}

		if status >= fiber.StatusInternalServerError {
			logging.Ctx(c).Error().Err(ae.Err).Str("path", c.Path()).Msg(ae.Message)
			if production {
				body["message"] = "internal server error"
			}
		}

		if !production {
			if ae.Err != nil {
				body["error"] = ae.Err.Error()
			}
			if len(ae.Fields) > 0 {
				body["validation"] = ae.Fields
			}
		}
		return c.Status(status).JSON(body)
	}
}
