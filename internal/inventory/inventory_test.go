package inventory

import (
	"testing"

	"github.com/shopspring/decimal"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/models"
)

func TestMovementRequestToChange(t *testing.T) {
	tests := []struct {
		name    string
		req     MovementRequest
		want    float64
		wantErr bool
	}{
		{"purchase adds", MovementRequest{Type: "purchase", Quantity: 5}, 5, false},
		{"negative purchase still adds", MovementRequest{Type: "purchase", Quantity: -5}, 5, false},
		{"waste removes", MovementRequest{Type: "waste", Quantity: 2}, -2, false},
		{"consumption removes", MovementRequest{Type: "consumption", Quantity: 1.5}, -1.5, false},
		{"adjustment keeps sign", MovementRequest{Type: "adjustment", Quantity: -0.5}, -0.5, false},
		{"return adds", MovementRequest{Type: "return", Quantity: 1}, 1, false},
		{"zero", MovementRequest{Type: "adjustment", Quantity: 0}, 0, true},
		{"unknown type", MovementRequest{Type: "theft", Quantity: 1}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, err := tt.req.toChange(3, 9)
			if tt.wantErr {
				if !apperr.Is(err, apperr.KindValidation) {
					t.Fatalf("err = %v, want validation", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if ch.Quantity != tt.want || ch.ItemID != 3 || ch.PerformedBy == nil || *ch.PerformedBy != 9 {
				t.Errorf("change = %+v", ch)
			}
		})
	}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestBuildPurchaseOrder(t *testing.T) {
	po, err := buildPurchaseOrder(CreatePurchaseOrderRequest{
		Supplier: " Fresh Farms ",
		Items: []PurchaseOrderLine{
			{InventoryItemID: 1, Quantity: 10, UnitCost: d("0.35")},
			{InventoryItemID: 2, Quantity: 2.5, UnitCost: d("1.20")},
			{InventoryItemID: 1, Quantity: 5, UnitCost: d("0.35")},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if po.Supplier != "Fresh Farms" || po.Status != models.POOrdered {
		t.Errorf("po = %q %s", po.Supplier, po.Status)
	}
	if len(po.Items) != 2 || po.Items[0].Quantity != 15 {
		t.Errorf("items = %+v", po.Items)
	}
	if !po.TotalAmount.Equal(d("8.25")) {
		t.Errorf("total = %s, want 8.25", po.TotalAmount)
	}
}

func TestBuildPurchaseOrderRejects(t *testing.T) {
	tests := []struct {
		name  string
		items []PurchaseOrderLine
	}{
		{"negative cost", []PurchaseOrderLine{{InventoryItemID: 1, Quantity: 1, UnitCost: d("-1")}}},
		{"conflicting costs", []PurchaseOrderLine{
			{InventoryItemID: 1, Quantity: 1, UnitCost: d("1")},
			{InventoryItemID: 1, Quantity: 1, UnitCost: d("2")},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := buildPurchaseOrder(CreatePurchaseOrderRequest{Supplier: "x", Items: tt.items}); !apperr.Is(err, apperr.KindValidation) {
				t.Errorf("err = %v", err)
			}
		})
	}
}
