package reports

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"restoran-pos/internal/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func order(typ models.OrderType, status models.OrderStatus, total string) models.Order {
	return models.Order{OrderType: typ, Status: status, TotalAmount: d(total)}
}

func TestSummarize(t *testing.T) {
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	dine := order(models.OrderDineIn, models.OrderCompleted, "110.00")
	dine.Tax.Amount = d("8.00")
	dine.ServiceCharge.Amount = d("2.00")
	dine.Items = []models.OrderItem{
		{MenuItemID: 1, Name: "Burger", Quantity: 2, LineTotal: d("60.00")},
		{MenuItemID: 2, Name: "Fries", Quantity: 1, LineTotal: d("40.00")},
	}
	dine.Payments = []models.Payment{
		{Method: "cash", Amount: d("50.00")},
		{Method: "cash", Amount: d("20.00"), Status: "completed"},
		{Method: "card", Amount: d("40.00")},
		{Method: "card", Amount: d("99.00"), Status: "refunded"},
	}

	takeaway := order(models.OrderTakeaway, models.OrderServed, "30.00")
	takeaway.Discount.Amount = d("5.00")
	takeaway.Items = []models.OrderItem{{MenuItemID: 2, Name: "Fries", Quantity: 3, LineTotal: d("30.00")}}
	takeaway.Payments = []models.Payment{{Method: "upi", Amount: d("30.00")}}

	cancelled := order(models.OrderDineIn, models.OrderCancelled, "500.00")
	cancelled.Items = []models.OrderItem{{MenuItemID: 3, Name: "Steak", Quantity: 9, LineTotal: d("500.00")}}
	cancelled.Payments = []models.Payment{{Method: "card", Amount: d("500.00")}}

	got := Summarize(day, []models.Order{dine, takeaway, cancelled})

	if got.Date != "2026-03-14" {
		t.Errorf("date = %s", got.Date)
	}
	if got.Orders != 2 || got.CancelledOrders != 1 {
		t.Errorf("orders = %d cancelled = %d", got.Orders, got.CancelledOrders)
	}
	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"revenue", got.Revenue, "140"},
		{"tax", got.Tax, "8"},
		{"service charge", got.ServiceCharge, "2"},
		{"discounts", got.Discounts, "5"},
		{"collected", got.Collected, "140"},
		{"average ticket", got.AverageTicket, "70"},
	}
	for _, c := range checks {
		if !c.got.Equal(d(c.want)) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}

	if len(got.ByOrderType) != 2 || got.ByOrderType[0].Key != "dine_in" {
		t.Fatalf("by order type = %+v", got.ByOrderType)
	}

	methods := map[string]Breakdown{}
	for _, b := range got.ByPaymentMethod {
		methods[b.Key] = b
	}
	if cash := methods["cash"]; cash.Orders != 1 || !cash.Revenue.Equal(d("70")) {
		t.Errorf("cash = %+v", cash)
	}
	if card := methods["card"]; card.Orders != 1 || !card.Revenue.Equal(d("40")) {
		t.Errorf("card = %+v", card)
	}

	if len(got.TopItems) != 2 {
		t.Fatalf("top items = %+v", got.TopItems)
	}
	if top := got.TopItems[0]; top.MenuItemID != 2 || top.Quantity != 4 || !top.Revenue.Equal(d("70")) {
		t.Errorf("top item = %+v", top)
	}
}

func TestSummarizeEmptyDay(t *testing.T) {
	got := Summarize(time.Now(), nil)
	if got.Orders != 0 || !got.AverageTicket.IsZero() {
		t.Errorf("got %+v", got)
	}
	if got.ByOrderType == nil || got.TopItems == nil {
		t.Error("breakdowns should encode as empty arrays")
	}
}

func TestTopItemsLimit(t *testing.T) {
	m := map[uint]*ItemSales{}
	for i := uint(1); i <= 15; i++ {
		m[i] = &ItemSales{MenuItemID: i, Quantity: int(i)}
	}
	got := topItems(m, topItemsLimit)
	if len(got) != topItemsLimit {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].MenuItemID != 15 || got[9].MenuItemID != 6 {
		t.Errorf("order = %d..%d", got[0].MenuItemID, got[9].MenuItemID)
	}
}
