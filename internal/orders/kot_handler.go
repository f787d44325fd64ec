package orders

import (
	"github.com/gofiber/fiber/v2"

	"restoran-pos/internal/models"
	"restoran-pos/internal/validation"
)

type printRequest struct {
	Reason string `json:"reason" validate:"max=255"`
}

// POST /kot/:orderId/print
func PrintKOTHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "orderId")
		if err != nil {
			return err
		}
		var body printRequest
		if len(c.Body()) > 0 {
			if err := validation.BindJSON(c, &body); err != nil {
				return err
			}
		}
		res, err := svc.PrintKOT(c.UserContext(), actor, id, body.Reason)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"kotNumber": res.Order.KOT.Number,
			"isReprint": res.Reprint,
			"order":     res.Order,
		})
	}
}

// GET /kot/queue?status=preparing
func KOTQueueHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := svc.KOTQueue(c.UserContext(), models.OrderStatus(c.Query("status")))
		if err != nil {
			return err
		}
		if list == nil {
			list = []models.Order{}
		}
		return c.JSON(fiber.Map{"orders": list, "count": len(list)})
	}
}

// PATCH /kot/:orderId/items/:itemIndex/status
func UpdateKOTItemHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "orderId")
		if err != nil {
			return err
		}
		idx, err := paramIndex(c)
		if err != nil {
			return err
		}
		var body itemStatusRequest
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}
		o, err := svc.UpdateKOTItem(c.UserContext(), actor, id, idx, models.ItemStatus(body.Status))
		if err != nil {
			return err
		}
		return c.JSON(o)
	}
}

// PATCH /kot/:orderId/complete
func CompleteKOTHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "orderId")
		if err != nil {
			return err
		}
		o, err := svc.CompleteKOT(c.UserContext(), actor, id)
		if err != nil {
			return err
		}
		return c.JSON(o)
	}
}
