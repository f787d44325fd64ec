package models

import (
	"strings"
	"time"
)

type UserRole string

const (
	RoleAdmin        UserRole = "admin"
	RoleManager      UserRole = "manager"
	RoleCashier      UserRole = "cashier"
	RoleWaiter       UserRole = "waiter"
	RoleKitchenStaff UserRole = "kitchen_staff"
	RoleCustomer     UserRole = "customer"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleCashier, RoleWaiter, RoleKitchenStaff, RoleCustomer:
		return true
	}
	return false
}

// IsStaff reports whether the role works inside the restaurant.
func (r UserRole) IsStaff() bool {
	return r.Valid() && r != RoleCustomer
}

type User struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	Name         string           `gorm:"size:100;not null" json:"name"`
	Email        string           `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Phone        string           `gorm:"size:30" json:"phone,omitempty"`
	PasswordHash string           `gorm:"size:255;not null" json:"-"`
	Role         UserRole         `gorm:"size:20;not null;index" json:"role"`
	IsActive     bool             `gorm:"not null;default:true" json:"isActive"`
	Permissions  []UserPermission `gorm:"constraint:OnDelete:CASCADE" json:"permissions"`
	LastLogin    *time.Time       `json:"lastLogin,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// UserPermission grants actions on one module, overriding the role policy for that module.
type UserPermission struct {
	ID     uint   `gorm:"primaryKey" json:"-"`
	UserID uint   `gorm:"index;not null" json:"-"`
	Module string `gorm:"size:50;not null" json:"module"`
	// Actions is stored comma separated: "read,create,update".
	Actions string `gorm:"size:255;not null" json:"actions"`
}

func (p UserPermission) ActionList() []string {
	var out []string
	for _, a := range strings.Split(p.Actions, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func (p UserPermission) Allows(action string) bool {
	for _, a := range p.ActionList() {
		if a == action || a == "*" {
			return true
		}
	}
	return false
}
