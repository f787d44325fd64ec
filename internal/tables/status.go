// Package tables manages the floor plan: table records, their status and waiter assignment.
package tables

import (
	"restoran-pos/internal/apperr"
	"restoran-pos/internal/models"
)

// ChangeStatus applies a manual status change. Only order creation may occupy a table, and
// leaving occupied drops the order link so CurrentOrderID stays set exactly while occupied.
// It reports whether anything changed.
func ChangeStatus(t *models.Table, to models.TableStatus) (bool, error) {
	switch to {
	case models.TableAvailable, models.TableReserved, models.TableCleaning, models.TableOutOfOrder:
	case models.TableOccupied:
		if t.Status == models.TableOccupied {
			return false, nil
		}
		return false, apperr.Validation("a table becomes occupied only when an order is placed on it")
	default:
		return false, apperr.Validationf("invalid table status %q", to)
	}

	if t.Status == to {
		return false, nil
	}
	if t.Status == models.TableOccupied {
		t.Release(to)
		return true, nil
	}
	t.Status = to
	return true, nil
}
