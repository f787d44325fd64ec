package events

import (
	"time"

	"github.com/shopspring/decimal"

	"restoran-pos/internal/models"
)

type ItemSummary struct {
	Index               int               `json:"index"`
	Name                string            `json:"name"`
	Quantity            int               `json:"quantity"`
	Variant             string            `json:"variant,omitempty"`
	SpecialInstructions string            `json:"specialInstructions,omitempty"`
	Status              models.ItemStatus `json:"status"`
}

func Items(items []models.OrderItem) []ItemSummary {
	out := make([]ItemSummary, 0, len(items))
	for i, it := range items {
		out = append(out, ItemSummary{
			Index:               i,
			Name:                it.Name,
			Quantity:            it.Quantity,
			Variant:             it.Variant,
			SpecialInstructions: it.SpecialInstructions,
			Status:              it.Status,
		})
	}
	return out
}

type NewOrderPayload struct {
	OrderID     uint               `json:"orderId"`
	OrderNumber string             `json:"orderNumber"`
	OrderType   models.OrderType   `json:"orderType"`
	Table       *uint              `json:"table"`
	Waiter      *uint              `json:"waiter"`
	Items       []ItemSummary      `json:"items"`
	TotalAmount decimal.Decimal    `json:"totalAmount"`
	Status      models.OrderStatus `json:"status"`
	CreatedAt   time.Time          `json:"createdAt"`
}

type OrderStatusPayload struct {
	OrderID        uint               `json:"orderId"`
	OrderNumber    string             `json:"orderNumber"`
	Status         models.OrderStatus `json:"status"`
	PreviousStatus models.OrderStatus `json:"previousStatus"`
	Table          *uint              `json:"table"`
	Waiter         *uint              `json:"waiter"`
	UpdatedBy      uint               `json:"updatedBy"`
	Timestamp      time.Time          `json:"timestamp"`
}

type KOTPrintedPayload struct {
	OrderID     uint          `json:"orderId"`
	OrderNumber string        `json:"orderNumber"`
	KOTNumber   string        `json:"kotNumber"`
	Table       *uint         `json:"table"`
	Items       []ItemSummary `json:"items"`
	IsReprint   bool          `json:"isReprint"`
	Reason      string        `json:"reason,omitempty"`
	PrintedBy   uint          `json:"printedBy"`
	PrintedAt   time.Time     `json:"printedAt"`
}

type KOTItemPayload struct {
	OrderID     uint               `json:"orderId"`
	OrderNumber string             `json:"orderNumber"`
	KOTNumber   string             `json:"kotNumber,omitempty"`
	ItemIndex   int                `json:"itemIndex"`
	ItemStatus  models.ItemStatus  `json:"itemStatus"`
	OrderStatus models.OrderStatus `json:"orderStatus"`
	UpdatedBy   uint               `json:"updatedBy"`
	Timestamp   time.Time          `json:"timestamp"`
}

// ReadyPayload backs both order-ready and kot-completed.
type ReadyPayload struct {
	OrderID          uint       `json:"orderId"`
	OrderNumber      string     `json:"orderNumber"`
	KOTNumber        string     `json:"kotNumber,omitempty"`
	Table            *uint      `json:"table"`
	Waiter           *uint      `json:"waiter"`
	StartedAt        *time.Time `json:"startedAt"`
	CompletedAt      *time.Time `json:"completedAt"`
	ActualMinutes    *int       `json:"actualMinutes"`
	EstimatedMinutes int        `json:"estimatedMinutes"`
}

type LowStockPayload struct {
	ItemID       uint    `json:"itemId"`
	Name         string  `json:"name"`
	SKU          string  `json:"sku"`
	Unit         string  `json:"unit"`
	CurrentStock float64 `json:"currentStock"`
	ReorderLevel float64 `json:"reorderLevel"`
}

type PaymentPayload struct {
	OrderID       uint                 `json:"orderId"`
	OrderNumber   string               `json:"orderNumber"`
	Amount        decimal.Decimal      `json:"amount"`
	Method        string               `json:"method"`
	TotalPaid     decimal.Decimal      `json:"totalPaid"`
	TotalAmount   decimal.Decimal      `json:"totalAmount"`
	PaymentStatus models.PaymentStatus `json:"paymentStatus"`
	OrderStatus   models.OrderStatus   `json:"orderStatus"`
	ReceivedBy    uint                 `json:"receivedBy"`
}

type TablePayload struct {
	TableID        uint               `json:"tableId"`
	Number         string             `json:"number"`
	Status         models.TableStatus `json:"status"`
	CurrentOrder   *uint              `json:"currentOrder"`
	AssignedWaiter *uint              `json:"assignedWaiter"`
	UpdatedBy      uint               `json:"updatedBy"`
	Timestamp      time.Time          `json:"timestamp"`
}

func TableChanged(t *models.Table, by uint) TablePayload {
	return TablePayload{
		TableID:        t.ID,
		Number:         t.Number,
		Status:         t.Status,
		CurrentOrder:   t.CurrentOrderID,
		AssignedWaiter: t.AssignedWaiterID,
		UpdatedBy:      by,
		Timestamp:      time.Now().UTC(),
	}
}

func LowStock(item *models.InventoryItem) LowStockPayload {
	return LowStockPayload{
		ItemID:       item.ID,
		Name:         item.Name,
		SKU:          item.SKU,
		Unit:         item.Unit,
		CurrentStock: item.CurrentStock,
		ReorderLevel: item.ReorderLevel,
	}
}

type SettingsPayload struct {
	Category  string    `json:"category,omitempty"`
	Value     any       `json:"value,omitempty"`
	UpdatedBy uint      `json:"updatedBy"`
	Timestamp time.Time `json:"timestamp"`
}

type BackupPayload struct {
	BackupID   string    `json:"backupId"`
	Categories int       `json:"categories"`
	CreatedBy  uint      `json:"createdBy"`
	CreatedAt  time.Time `json:"createdAt"`
}
