package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type InventoryItem struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Name         string          `gorm:"size:150;not null" json:"name"`
	SKU          string          `gorm:"size:50;not null;uniqueIndex" json:"sku"`
	Unit         string          `gorm:"size:20;not null" json:"unit"` // kg, lt, pcs
	CurrentStock float64         `gorm:"not null;default:0" json:"currentStock"`
	ReorderLevel float64         `gorm:"not null;default:0" json:"reorderLevel"`
	MinimumStock float64         `gorm:"not null;default:0" json:"minimumStock"`
	UnitCost     decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"unitCost"`
	Supplier     string          `gorm:"size:150" json:"supplier,omitempty"`
	IsActive     bool            `gorm:"not null;default:true" json:"isActive"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// IsLow reports the reorder condition. It drives notifications only.
func (i *InventoryItem) IsLow() bool {
	return i.CurrentStock <= i.ReorderLevel
}

type MovementType string

const (
	MovementPurchase    MovementType = "purchase"
	MovementConsumption MovementType = "consumption"
	MovementAdjustment  MovementType = "adjustment"
	MovementWaste       MovementType = "waste"
	MovementReturn      MovementType = "return"
)

// StockMovement is the immutable ledger line paired with every CurrentStock change.
type StockMovement struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	InventoryItemID uint            `gorm:"index;not null" json:"inventoryItemId"`
	Type            MovementType    `gorm:"size:20;not null;index" json:"type"`
	Quantity        float64         `gorm:"not null" json:"quantity"` // signed
	PreviousStock   float64         `gorm:"not null" json:"previousStock"`
	NewStock        float64         `gorm:"not null" json:"newStock"`
	UnitCost        decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"unitCost"`
	TotalCost       decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"totalCost"`
	Reference       string          `gorm:"size:50;index" json:"reference,omitempty"`
	Note            string          `gorm:"size:255" json:"note,omitempty"`
	PerformedByID   *uint           `json:"performedBy"`
	CreatedAt       time.Time       `gorm:"index" json:"createdAt"`
}

type PurchaseOrderStatus string

const (
	PODraft     PurchaseOrderStatus = "draft"
	POOrdered   PurchaseOrderStatus = "ordered"
	POReceived  PurchaseOrderStatus = "received"
	POCancelled PurchaseOrderStatus = "cancelled"
)

type PurchaseOrder struct {
	ID          uint                `gorm:"primaryKey" json:"id"`
	PONumber    string              `gorm:"size:30;not null;uniqueIndex" json:"poNumber"`
	Supplier    string              `gorm:"size:150;not null" json:"supplier"`
	Status      PurchaseOrderStatus `gorm:"size:20;not null;default:ordered" json:"status"`
	Items       []PurchaseOrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	TotalAmount decimal.Decimal     `gorm:"type:numeric(14,2);not null" json:"totalAmount"`
	Notes       string              `gorm:"size:500" json:"notes,omitempty"`
	ReceivedAt  *time.Time          `json:"receivedAt,omitempty"`
	CreatedByID uint                `json:"createdBy"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

type PurchaseOrderItem struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	PurchaseOrderID uint            `gorm:"index;not null" json:"-"`
	InventoryItemID uint            `gorm:"index;not null" json:"inventoryItemId"`
	Quantity        float64         `gorm:"not null" json:"quantity"`
	UnitCost        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unitCost"`
}
