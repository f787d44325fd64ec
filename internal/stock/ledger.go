// Package stock applies inventory movements. Every change to an item's CurrentStock is paired
// with exactly one StockMovement, and no movement may take the stock below zero.
package stock

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/models"
)

type Change struct {
	ItemID uint
	Type   models.MovementType
	// Quantity is the signed delta applied to CurrentStock.
	Quantity float64
	// UnitCost defaults to the item's current unit cost.
	UnitCost    *decimal.Decimal
	Reference   string
	Note        string
	PerformedBy *uint
}

// Signed turns a caller-supplied quantity into the delta for typ. Purchases and returns
// add, consumption and waste remove, adjustments keep their sign.
func Signed(typ models.MovementType, qty float64) (float64, error) {
	if qty == 0 {
		return 0, apperr.Validation("quantity must not be zero")
	}
	switch typ {
	case models.MovementPurchase, models.MovementReturn:
		return math.Abs(qty), nil
	case models.MovementConsumption, models.MovementWaste:
		return -math.Abs(qty), nil
	case models.MovementAdjustment:
		return qty, nil
	}
	return 0, apperr.Validationf("unknown movement type %q", typ)
}

// Apply updates item in place and returns the movement to persist. On error item is
// left untouched.
func Apply(item *models.InventoryItem, ch Change) (*models.StockMovement, error) {
	if ch.Quantity == 0 {
		return nil, apperr.Validation("quantity must not be zero")
	}

	next := round3(item.CurrentStock + ch.Quantity)
	if next < 0 {
		return nil, apperr.InsufficientStock(item.Name, item.CurrentStock, math.Abs(ch.Quantity))
	}

	cost := item.UnitCost
	if ch.UnitCost != nil {
		if ch.UnitCost.IsNegative() {
			return nil, apperr.Validation("unit cost cannot be negative")
		}
		cost = *ch.UnitCost
	}

	m := &models.StockMovement{
		InventoryItemID: item.ID,
		Type:            ch.Type,
		Quantity:        ch.Quantity,
		PreviousStock:   item.CurrentStock,
		NewStock:        next,
		UnitCost:        cost,
		TotalCost:       cost.Mul(decimal.NewFromFloat(math.Abs(ch.Quantity))).Round(2),
		Reference:       ch.Reference,
		Note:            ch.Note,
		PerformedByID:   ch.PerformedBy,
	}

	item.CurrentStock = next
	if ch.Type == models.MovementPurchase && ch.UnitCost != nil {
		item.UnitCost = cost
	}
	return m, nil
}

// ApplyTx locks the item row, applies ch and writes both the item and the movement on tx.
func ApplyTx(ctx context.Context, tx *gorm.DB, ch Change) (*models.InventoryItem, *models.StockMovement, error) {
	var item models.InventoryItem
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, ch.ItemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, apperr.NotFound(fmt.Sprintf("inventory item %d not found", ch.ItemID))
	}
	if err != nil {
		return nil, nil, apperr.Wrap(err, "load inventory item")
	}

	m, err := Apply(&item, ch)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.WithContext(ctx).Model(&item).Updates(map[string]interface{}{
		"current_stock": item.CurrentStock,
		"unit_cost":     item.UnitCost,
	}).Error; err != nil {
		return nil, nil, apperr.Wrap(err, "update stock")
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		return nil, nil, apperr.Wrap(err, "record stock movement")
	}
	return &item, m, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
