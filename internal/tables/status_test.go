package tables

import (
	"testing"
	"time"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/models"
)

func occupied() *models.Table {
	t := &models.Table{ID: 1, Number: "T1"}
	t.Occupy(42, time.Now())
	return t
}

func TestChangeStatus(t *testing.T) {
	tests := []struct {
		name        string
		table       *models.Table
		to          models.TableStatus
		wantChanged bool
		wantErr     bool
		wantStatus  models.TableStatus
	}{
		{"available to reserved", &models.Table{Status: models.TableAvailable}, models.TableReserved, true, false, models.TableReserved},
		{"cleaning to available", &models.Table{Status: models.TableCleaning}, models.TableAvailable, true, false, models.TableAvailable},
		{"same status", &models.Table{Status: models.TableCleaning}, models.TableCleaning, false, false, models.TableCleaning},
		{"manual occupy", &models.Table{Status: models.TableAvailable}, models.TableOccupied, false, true, models.TableAvailable},
		{"occupied stays occupied", occupied(), models.TableOccupied, false, false, models.TableOccupied},
		{"occupied to cleaning", occupied(), models.TableCleaning, true, false, models.TableCleaning},
		{"unknown status", &models.Table{Status: models.TableAvailable}, "broken", false, true, models.TableAvailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed, err := ChangeStatus(tt.table, tt.to)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if err != nil && !apperr.Is(err, apperr.KindValidation) {
				t.Errorf("err kind = %v, want validation", apperr.KindOf(err))
			}
			if changed != tt.wantChanged || tt.table.Status != tt.wantStatus {
				t.Errorf("changed %v status %s, want %v %s", changed, tt.table.Status, tt.wantChanged, tt.wantStatus)
			}
			if (tt.table.Status == models.TableOccupied) != (tt.table.CurrentOrderID != nil) {
				t.Errorf("status %s with currentOrder %v", tt.table.Status, tt.table.CurrentOrderID)
			}
		})
	}
}
