package models

import "time"

type TableStatus string

const (
	TableAvailable  TableStatus = "available"
	TableOccupied   TableStatus = "occupied"
	TableReserved   TableStatus = "reserved"
	TableCleaning   TableStatus = "cleaning"
	TableOutOfOrder TableStatus = "out_of_order"
)

func (s TableStatus) Valid() bool {
	switch s {
	case TableAvailable, TableOccupied, TableReserved, TableCleaning, TableOutOfOrder:
		return true
	}
	return false
}

// Table is a physical seating unit. CurrentOrderID is set only while Status is occupied.
type Table struct {
	ID               uint        `gorm:"primaryKey" json:"id"`
	Number           string      `gorm:"size:20;not null;uniqueIndex" json:"number"`
	Capacity         int         `gorm:"not null;default:4" json:"capacity"`
	Location         string      `gorm:"size:50" json:"location,omitempty"`
	Status           TableStatus `gorm:"size:20;not null;default:available;index" json:"status"`
	CurrentOrderID   *uint       `json:"currentOrder"`
	AssignedWaiterID *uint       `gorm:"index" json:"assignedWaiter"`
	OccupiedAt       *time.Time  `json:"occupiedAt,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// Occupy links an order to the table.
func (t *Table) Occupy(orderID uint, at time.Time) {
	t.Status = TableOccupied
	t.CurrentOrderID = &orderID
	t.OccupiedAt = &at
}

// Release moves the table out of occupied and clears the order link.
func (t *Table) Release(next TableStatus) {
	t.Status = next
	t.CurrentOrderID = nil
	t.OccupiedAt = nil
}

// HoldsOpenOrder reports whether another order currently owns the table.
func (t *Table) HoldsOpenOrder() bool {
	return t.Status == TableOccupied && t.CurrentOrderID != nil
}
