package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderType string

const (
	OrderDineIn   OrderType = "dine_in"
	OrderTakeaway OrderType = "takeaway"
	OrderDelivery OrderType = "delivery"
	OrderOnline   OrderType = "online"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderServed    OrderStatus = "served"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

type ItemStatus string

const (
	ItemPending   ItemStatus = "pending"
	ItemPreparing ItemStatus = "preparing"
	ItemReady     ItemStatus = "ready"
	ItemServed    ItemStatus = "served"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPartial  PaymentStatus = "partial"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type Order struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	OrderNumber string `gorm:"size:30;not null;uniqueIndex" json:"orderNumber"`
	// IdempotencyKey is unique when present; Postgres allows many NULLs.
	IdempotencyKey *string   `gorm:"size:100;uniqueIndex" json:"idempotencyKey,omitempty"`
	OrderType      OrderType `gorm:"size:20;not null;index" json:"orderType"`

	TableID        *uint  `gorm:"index" json:"table"`
	WaiterID       *uint  `gorm:"index" json:"waiter"`
	CustomerUserID *uint  `gorm:"index" json:"customerUser"`
	CustomerName   string `gorm:"size:100" json:"customerName,omitempty"`
	CustomerPhone  string `gorm:"size:30" json:"customerPhone,omitempty"`
	CustomerEmail  string `gorm:"size:100" json:"customerEmail,omitempty"`

	DeliveryAddress string `gorm:"size:500" json:"deliveryAddress,omitempty"`

	Items []OrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`

	Subtotal       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	Tax            TaxLine         `gorm:"embedded;embeddedPrefix:tax_" json:"tax"`
	Discount       DiscountLine    `gorm:"embedded;embeddedPrefix:discount_" json:"discount"`
	ServiceCharge  ChargeLine      `gorm:"embedded;embeddedPrefix:service_charge_" json:"serviceCharge"`
	DeliveryCharge decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"deliveryCharge"`
	TotalAmount    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"totalAmount"`

	Status        OrderStatus   `gorm:"size:20;not null;index" json:"status"`
	PaymentStatus PaymentStatus `gorm:"size:20;not null;default:pending" json:"paymentStatus"`
	Payments      []Payment     `gorm:"constraint:OnDelete:CASCADE" json:"payments"`

	KOT         KOTInfo      `gorm:"embedded;embeddedPrefix:kot_" json:"kot"`
	KOTReprints []KOTReprint `gorm:"constraint:OnDelete:CASCADE" json:"kotReprints"`

	PreparationTime PrepTiming `gorm:"embedded;embeddedPrefix:prep_" json:"preparationTime"`

	Notes       string     `gorm:"type:text" json:"notes,omitempty"`
	CreatedByID uint       `json:"createdBy"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type TaxLine struct {
	Rate   decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"rate"`
	Amount decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"amount"`
}

type DiscountLine struct {
	Type   DiscountType    `gorm:"size:20" json:"type,omitempty"`
	Value  decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"value"`
	Amount decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"amount"`
	Reason string          `gorm:"size:255" json:"reason,omitempty"`
}

type ChargeLine struct {
	Rate   decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"rate"`
	Amount decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"amount"`
}

type KOTInfo struct {
	Number    *string    `gorm:"size:30;uniqueIndex" json:"number"`
	PrintedAt *time.Time `json:"printedAt"`
}

type PrepTiming struct {
	Estimated   int        `gorm:"not null;default:0" json:"estimated"`
	Actual      *int       `json:"actual"`
	StartedAt   *time.Time `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt"`
}

type OrderItem struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	OrderID    uint   `gorm:"index;not null" json:"-"`
	Position   int    `gorm:"not null" json:"position"`
	MenuItemID uint   `gorm:"index;not null" json:"menuItem"`
	Name       string `gorm:"size:150;not null" json:"name"`
	Quantity   int    `gorm:"not null" json:"quantity"`
	Variant    string `gorm:"size:100" json:"variant,omitempty"`
	// Price is the resolved unit price; LineTotal includes add-ons.
	Price               decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	LineTotal           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"lineTotal"`
	AddOns              []OrderAddOn    `gorm:"serializer:json;type:jsonb" json:"addOns"`
	SpecialInstructions string          `gorm:"size:500" json:"specialInstructions,omitempty"`
	Status              ItemStatus      `gorm:"size:20;not null;default:pending" json:"status"`
	PreparedAt          *time.Time      `json:"preparedAt,omitempty"`
	ServedAt            *time.Time      `json:"servedAt,omitempty"`
}

type OrderAddOn struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type Payment struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	OrderID       uint            `gorm:"index;not null" json:"-"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Method        string          `gorm:"size:20;not null" json:"method"`
	TransactionID string          `gorm:"size:100" json:"transactionId,omitempty"`
	PaidAt        time.Time       `gorm:"not null" json:"paidAt"`
	Status        string          `gorm:"size:20;not null;default:completed" json:"status"`
	ReceivedByID  *uint           `json:"receivedBy,omitempty"`
}

type KOTReprint struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	OrderID     uint      `gorm:"index;not null" json:"-"`
	PrintedAt   time.Time `gorm:"not null" json:"printedAt"`
	Reason      string    `gorm:"size:255" json:"reason"`
	PrintedByID *uint     `json:"printedBy"`
}

// PaidTotal sums the completed payments.
func (o *Order) PaidTotal() decimal.Decimal {
	total := decimal.Zero
	for _, p := range o.Payments {
		if p.Status == "" || p.Status == "completed" {
			total = total.Add(p.Amount)
		}
	}
	return total
}

// Requester identifies who asked for the order.
type Requester interface {
	requester()
}

// GuestRequester is an anonymous customer known only by contact details.
type GuestRequester struct {
	Name  string
	Phone string
	Email string
}

// RegisteredRequester is a customer account.
type RegisteredRequester struct {
	UserID uint
}

func (GuestRequester) requester()      {}
func (RegisteredRequester) requester() {}

func (o *Order) Requester() Requester {
	if o.CustomerUserID != nil {
		return RegisteredRequester{UserID: *o.CustomerUserID}
	}
	return GuestRequester{Name: o.CustomerName, Phone: o.CustomerPhone, Email: o.CustomerEmail}
}
