// Package reports aggregates orders into sales figures and spreadsheet exports.
package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"restoran-pos/internal/models"
)

type Breakdown struct {
	Key     string          `json:"key"`
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

type DailySales struct {
	Date            string          `json:"date"`
	Orders          int             `json:"orders"`
	CancelledOrders int             `json:"cancelledOrders"`
	Revenue         decimal.Decimal `json:"revenue"`
	Tax             decimal.Decimal `json:"tax"`
	ServiceCharge   decimal.Decimal `json:"serviceCharge"`
	Discounts       decimal.Decimal `json:"discounts"`
	Collected       decimal.Decimal `json:"collected"`
	AverageTicket   decimal.Decimal `json:"averageTicket"`
	ByOrderType     []Breakdown     `json:"byOrderType"`
	ByPaymentMethod []Breakdown     `json:"byPaymentMethod"`
	TopItems        []ItemSales     `json:"topItems"`
}

type ItemSales struct {
	MenuItemID uint            `json:"menuItemId"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	Revenue    decimal.Decimal `json:"revenue"`
}

const topItemsLimit = 10

// Summarize aggregates one day of orders. Cancelled orders are counted but contribute no
// revenue, and their payments are left out of the method breakdown.
func Summarize(day time.Time, orders []models.Order) DailySales {
	out := DailySales{
		Date:          day.Format("2006-01-02"),
		Revenue:       decimal.Zero,
		Tax:           decimal.Zero,
		ServiceCharge: decimal.Zero,
		Discounts:     decimal.Zero,
		Collected:     decimal.Zero,
		AverageTicket: decimal.Zero,
	}

	byType := make(map[string]*Breakdown)
	byMethod := make(map[string]*Breakdown)
	items := make(map[uint]*ItemSales)

	for i := range orders {
		o := &orders[i]
		if o.Status == models.OrderCancelled {
			out.CancelledOrders++
			continue
		}
		out.Orders++
		out.Revenue = out.Revenue.Add(o.TotalAmount)
		out.Tax = out.Tax.Add(o.Tax.Amount)
		out.ServiceCharge = out.ServiceCharge.Add(o.ServiceCharge.Amount)
		out.Discounts = out.Discounts.Add(o.Discount.Amount)

		bump(byType, string(o.OrderType), o.TotalAmount)

		seen := make(map[string]bool)
		for _, p := range o.Payments {
			if p.Status != "" && p.Status != "completed" {
				continue
			}
			out.Collected = out.Collected.Add(p.Amount)
			b := bump(byMethod, p.Method, p.Amount)
			if seen[p.Method] {
				b.Orders--
			}
			seen[p.Method] = true
		}

		for _, it := range o.Items {
			s, ok := items[it.MenuItemID]
			if !ok {
				s = &ItemSales{MenuItemID: it.MenuItemID, Name: it.Name, Revenue: decimal.Zero}
				items[it.MenuItemID] = s
			}
			s.Quantity += it.Quantity
			s.Revenue = s.Revenue.Add(it.LineTotal)
		}
	}

	if out.Orders > 0 {
		out.AverageTicket = out.Revenue.Div(decimal.NewFromInt(int64(out.Orders))).Round(2)
	}
	out.ByOrderType = sorted(byType)
	out.ByPaymentMethod = sorted(byMethod)
	out.TopItems = topItems(items, topItemsLimit)
	return out
}

func bump(m map[string]*Breakdown, key string, amount decimal.Decimal) *Breakdown {
	b, ok := m[key]
	if !ok {
		b = &Breakdown{Key: key, Revenue: decimal.Zero}
		m[key] = b
	}
	b.Orders++
	b.Revenue = b.Revenue.Add(amount)
	return b
}

func sorted(m map[string]*Breakdown) []Breakdown {
	out := make([]Breakdown, 0, len(m))
	for _, b := range m {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Revenue.Cmp(out[j].Revenue); c != 0 {
			return c > 0
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func topItems(m map[uint]*ItemSales, n int) []ItemSales {
	out := make([]ItemSales, 0, len(m))
	for _, s := range m {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		return out[i].MenuItemID < out[j].MenuItemID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
