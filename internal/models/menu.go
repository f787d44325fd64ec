package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Description string    `gorm:"size:255" json:"description,omitempty"`
	SortOrder   int       `gorm:"not null;default:0" json:"sortOrder"`
	IsActive    bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type MenuItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CategoryID  uint            `gorm:"index;not null" json:"categoryId"`
	Category    *Category       `json:"category,omitempty"`
	Name        string          `gorm:"size:150;not null;index" json:"name"`
	Description string          `gorm:"size:500" json:"description,omitempty"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	IsAvailable bool            `gorm:"not null;default:true;index" json:"isAvailable"`
	// PreparationTime is the kitchen estimate in minutes.
	PreparationTime int                  `gorm:"not null;default:15" json:"preparationTime"`
	Variants        []MenuItemVariant    `gorm:"constraint:OnDelete:CASCADE" json:"variants"`
	AddOns          []MenuItemAddOn      `gorm:"constraint:OnDelete:CASCADE" json:"addOns"`
	Ingredients     []MenuItemIngredient `gorm:"constraint:OnDelete:CASCADE" json:"ingredients"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

type MenuItemVariant struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	MenuItemID uint            `gorm:"index;not null" json:"-"`
	Name       string          `gorm:"size:100;not null" json:"name"`
	Price      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
}

type MenuItemAddOn struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	MenuItemID uint            `gorm:"index;not null" json:"-"`
	Name       string          `gorm:"size:100;not null" json:"name"`
	Price      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
}

// MenuItemIngredient is one recipe line: Quantity units of the inventory item per portion.
type MenuItemIngredient struct {
	ID              uint    `gorm:"primaryKey" json:"id"`
	MenuItemID      uint    `gorm:"index;not null" json:"-"`
	InventoryItemID uint    `gorm:"index;not null" json:"inventoryItemId"`
	Quantity        float64 `gorm:"not null" json:"quantity"`
}
