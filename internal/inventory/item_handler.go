// Package inventory serves stock items, their movement ledger and purchase orders.
package inventory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/audit"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/database"
	"restoran-pos/internal/events"
	"restoran-pos/internal/models"
	"restoran-pos/internal/stock"
	"restoran-pos/internal/validation"
)

type CreateItemRequest struct {
	Name         string          `json:"name" validate:"required,max=150"`
	SKU          string          `json:"sku" validate:"required,max=50"`
	Unit         string          `json:"unit" validate:"required,max=20"`
	CurrentStock float64         `json:"currentStock" validate:"gte=0"`
	ReorderLevel float64         `json:"reorderLevel" validate:"gte=0"`
	MinimumStock float64         `json:"minimumStock" validate:"gte=0"`
	UnitCost     decimal.Decimal `json:"unitCost"`
	Supplier     string          `json:"supplier" validate:"omitempty,max=150"`
}

type MovementRequest struct {
	Type      string           `json:"type" validate:"required,movement"`
	Quantity  float64          `json:"quantity" validate:"required"`
	UnitCost  *decimal.Decimal `json:"unitCost"`
	Reference string           `json:"reference" validate:"omitempty,max=50"`
	Note      string           `json:"note" validate:"omitempty,max=255"`
}

// toChange signs the quantity for the movement type. Consumption and waste always remove,
// purchases and returns always add.
func (r MovementRequest) toChange(itemID uint, by uint) (stock.Change, error) {
	typ := models.MovementType(r.Type)
	qty, err := stock.Signed(typ, r.Quantity)
	if err != nil {
		return stock.Change{}, err
	}
	ch := stock.Change{
		ItemID:    itemID,
		Type:      typ,
		Quantity:  qty,
		UnitCost:  r.UnitCost,
		Reference: strings.TrimSpace(r.Reference),
		Note:      strings.TrimSpace(r.Note),
	}
	if by != 0 {
		ch.PerformedBy = &by
	}
	return ch, nil
}

func itemID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid inventory item id")
	}
	return uint(id), nil
}

// GET /inventory?lowStock=true&search=bun
func ListItemsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.WithContext(c.UserContext()).Order("name ASC")
		if c.QueryBool("lowStock") {
			q = q.Where("current_stock <= reorder_level")
		}
		if c.Query("active") != "" {
			q = q.Where("is_active = ?", c.QueryBool("active"))
		}
		if s := strings.TrimSpace(c.Query("search")); s != "" {
			q = q.Where("name ILIKE ? OR sku ILIKE ?", "%"+s+"%", "%"+s+"%")
		}

		var items []models.InventoryItem
		if err := q.Find(&items).Error; err != nil {
			return apperr.Wrap(err, "list inventory")
		}
		return c.JSON(items)
	}
}

// GET /inventory/:id
func GetItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := itemID(c)
		if err != nil {
			return err
		}
		var item models.InventoryItem
		err = database.DB.WithContext(c.UserContext()).First(&item, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("inventory item not found")
		}
		if err != nil {
			return apperr.Wrap(err, "load inventory item")
		}
		return c.JSON(item)
	}
}

// POST /inventory. An opening stock is recorded as a purchase movement so the ledger
// explains every unit.
func CreateItemHandler(pub events.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateItemRequest
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}
		if body.UnitCost.IsNegative() {
			return apperr.Validation("unit cost cannot be negative")
		}

		uid, uname := auth.ActorOf(c)
		item := models.InventoryItem{
			Name:         strings.TrimSpace(body.Name),
			SKU:          strings.ToUpper(strings.TrimSpace(body.SKU)),
			Unit:         strings.TrimSpace(body.Unit),
			ReorderLevel: body.ReorderLevel,
			MinimumStock: body.MinimumStock,
			UnitCost:     body.UnitCost.Round(2),
			Supplier:     strings.TrimSpace(body.Supplier),
			IsActive:     true,
		}

		err := database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			if body.CurrentStock == 0 {
				return nil
			}
			ch := stock.Change{ItemID: item.ID, Type: models.MovementPurchase, Quantity: body.CurrentStock, Note: "opening stock"}
			if uid != 0 {
				ch.PerformedBy = &uid
			}
			updated, _, err := stock.ApplyTx(c.UserContext(), tx, ch)
			if err != nil {
				return err
			}
			item = *updated
			return nil
		})
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Conflict(fmt.Sprintf("SKU %s already exists", item.SKU))
		}
		if err != nil {
			return apperr.Wrap(err, "create inventory item")
		}

		if item.IsLow() {
			events.Emit(c.UserContext(), pub, events.New(events.LowStockAlert, events.LowStock(&item)))
		}
		audit.Record(audit.LogOptions{
			UserID:      uid,
			UserName:    uname,
			EntityType:  "inventory_item",
			EntityID:    item.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Inventory item %s (%s) created", item.Name, item.SKU),
			After:       item,
		})
		return c.Status(fiber.StatusCreated).JSON(item)
	}
}

// POST /inventory/:id/movements
func AddMovementHandler(pub events.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := itemID(c)
		if err != nil {
			return err
		}
		var body MovementRequest
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}
		uid, uname := auth.ActorOf(c)
		ch, err := body.toChange(id, uid)
		if err != nil {
			return err
		}

		var item *models.InventoryItem
		var movement *models.StockMovement
		err = database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var err error
			item, movement, err = stock.ApplyTx(c.UserContext(), tx, ch)
			return err
		})
		if err != nil {
			return apperr.Wrap(err, "record stock movement")
		}

		if ch.Quantity < 0 && item.IsLow() {
			events.Emit(c.UserContext(), pub, events.New(events.LowStockAlert, events.LowStock(item)))
		}
		audit.Record(audit.LogOptions{
			UserID:      uid,
			UserName:    uname,
			EntityType:  "inventory_item",
			EntityID:    item.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("%s of %.3f %s on %s", movement.Type, movement.Quantity, item.Unit, item.Name),
			Before:      fiber.Map{"currentStock": movement.PreviousStock},
			After:       fiber.Map{"currentStock": movement.NewStock},
		})
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"item":     item,
			"movement": movement,
		})
	}
}

// GET /inventory/:id/movements?type=waste&limit=100
func ListMovementsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := itemID(c)
		if err != nil {
			return err
		}
		q := database.DB.WithContext(c.UserContext()).
			Where("inventory_item_id = ?", id).
			Order("created_at DESC, id DESC")
		if typ := c.Query("type"); typ != "" {
			if _, err := stock.Signed(models.MovementType(typ), 1); err != nil {
				return err
			}
			q = q.Where("type = ?", typ)
		}
		limit := c.QueryInt("limit", 100)
		if limit < 1 || limit > 500 {
			limit = 100
		}

		var movements []models.StockMovement
		if err := q.Limit(limit).Find(&movements).Error; err != nil {
			return apperr.Wrap(err, "list stock movements")
		}
		return c.JSON(movements)
	}
}
