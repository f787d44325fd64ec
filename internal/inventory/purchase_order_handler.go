package inventory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/audit"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/database"
	"restoran-pos/internal/models"
	"restoran-pos/internal/stock"
	"restoran-pos/internal/validation"
)

type PurchaseOrderLine struct {
	InventoryItemID uint            `json:"inventoryItemId" validate:"required"`
	Quantity        float64         `json:"quantity" validate:"gt=0"`
	UnitCost        decimal.Decimal `json:"unitCost"`
}

type CreatePurchaseOrderRequest struct {
	Supplier string              `json:"supplier" validate:"required,max=150"`
	Items    []PurchaseOrderLine `json:"items" validate:"required,min=1,dive"`
	Notes    string              `json:"notes" validate:"omitempty,max=500"`
}

// buildPurchaseOrder validates the lines and totals them. Repeated items are merged when
// their unit cost matches.
func buildPurchaseOrder(req CreatePurchaseOrderRequest) (models.PurchaseOrder, error) {
	po := models.PurchaseOrder{
		Supplier: strings.TrimSpace(req.Supplier),
		Status:   models.POOrdered,
		Notes:    strings.TrimSpace(req.Notes),
	}
	total := decimal.Zero
	index := make(map[uint]int)
	for _, l := range req.Items {
		if l.UnitCost.IsNegative() {
			return models.PurchaseOrder{}, apperr.Validationf("negative unit cost for item %d", l.InventoryItemID)
		}
		cost := l.UnitCost.Round(2)
		if i, ok := index[l.InventoryItemID]; ok {
			if !po.Items[i].UnitCost.Equal(cost) {
				return models.PurchaseOrder{}, apperr.Validationf("item %d is listed twice with different costs", l.InventoryItemID)
			}
			po.Items[i].Quantity += l.Quantity
		} else {
			index[l.InventoryItemID] = len(po.Items)
			po.Items = append(po.Items, models.PurchaseOrderItem{
				InventoryItemID: l.InventoryItemID,
				Quantity:        l.Quantity,
				UnitCost:        cost,
			})
		}
		total = total.Add(cost.Mul(decimal.NewFromFloat(l.Quantity)))
	}
	po.TotalAmount = total.Round(2)
	return po, nil
}

func purchaseOrderID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid purchase order id")
	}
	return uint(id), nil
}

// POST /inventory/purchase-orders
func CreatePurchaseOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreatePurchaseOrderRequest
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}
		po, err := buildPurchaseOrder(body)
		if err != nil {
			return err
		}
		uid, uname := auth.ActorOf(c)
		po.CreatedByID = uid

		ctx := c.UserContext()
		err = database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			ids := make([]uint, 0, len(po.Items))
			for _, it := range po.Items {
				ids = append(ids, it.InventoryItemID)
			}
			var n int64
			if err := tx.Model(&models.InventoryItem{}).Where("id IN ?", ids).Count(&n).Error; err != nil {
				return err
			}
			if int(n) != len(ids) {
				return apperr.Validation("purchase order references an unknown inventory item")
			}

			now := time.Now()
			seq, err := database.NextSequence(ctx, tx, database.ScopePurchaseOrder, now)
			if err != nil {
				return err
			}
			po.PONumber = database.FormatNumber("PO", now, seq)
			return tx.Create(&po).Error
		})
		if err != nil {
			return apperr.Wrap(err, "create purchase order")
		}

		audit.Record(audit.LogOptions{
			UserID:      uid,
			UserName:    uname,
			EntityType:  "purchase_order",
			EntityID:    po.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Purchase order %s for %s (%s)", po.PONumber, po.Supplier, po.TotalAmount.StringFixed(2)),
			After:       po,
		})
		return c.Status(fiber.StatusCreated).JSON(po)
	}
}

// GET /inventory/purchase-orders?status=ordered
func ListPurchaseOrdersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.WithContext(c.UserContext()).Preload("Items").Order("created_at DESC, id DESC")
		if status := c.Query("status"); status != "" {
			q = q.Where("status = ?", status)
		}
		if supplier := c.Query("supplier"); supplier != "" {
			q = q.Where("supplier ILIKE ?", "%"+supplier+"%")
		}
		var pos []models.PurchaseOrder
		if err := q.Find(&pos).Error; err != nil {
			return apperr.Wrap(err, "list purchase orders")
		}
		return c.JSON(pos)
	}
}

// POST /inventory/purchase-orders/:id/receive books one purchase movement per line. A
// purchase order can be received once.
func ReceivePurchaseOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := purchaseOrderID(c)
		if err != nil {
			return err
		}
		uid, uname := auth.ActorOf(c)
		ctx := c.UserContext()

		var po models.PurchaseOrder
		err = database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&po, id).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("purchase order not found")
			}
			if err != nil {
				return err
			}
			if po.Status != models.POOrdered && po.Status != models.PODraft {
				return apperr.Validationf("purchase order %s is already %s", po.PONumber, po.Status)
			}
			if err := tx.Where("purchase_order_id = ?", po.ID).Order("id ASC").Find(&po.Items).Error; err != nil {
				return err
			}

			for _, line := range po.Items {
				cost := line.UnitCost
				ch := stock.Change{
					ItemID:    line.InventoryItemID,
					Type:      models.MovementPurchase,
					Quantity:  line.Quantity,
					UnitCost:  &cost,
					Reference: po.PONumber,
					Note:      "received from " + po.Supplier,
				}
				if uid != 0 {
					ch.PerformedBy = &uid
				}
				if _, _, err := stock.ApplyTx(ctx, tx, ch); err != nil {
					return err
				}
			}

			now := time.Now()
			po.Status = models.POReceived
			po.ReceivedAt = &now
			return tx.Model(&po).Updates(map[string]interface{}{
				"status":      po.Status,
				"received_at": now,
			}).Error
		})
		if err != nil {
			return apperr.Wrap(err, "receive purchase order")
		}

		audit.Record(audit.LogOptions{
			UserID:      uid,
			UserName:    uname,
			EntityType:  "purchase_order",
			EntityID:    po.ID,
			Action:      models.AuditActionStatus,
			Description: fmt.Sprintf("Purchase order %s received", po.PONumber),
			After:       po,
		})
		return c.JSON(po)
	}
}
