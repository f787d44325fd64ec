package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"restoran-pos/internal/models"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }

func testCatalog() Catalog {
	return Catalog{
		1: {ID: 1, Name: "Burger", Price: dec("10.00"), IsAvailable: true, PreparationTime: 12},
		2: {ID: 2, Name: "Soup", Price: dec("5.00"), IsAvailable: true, PreparationTime: 8},
		3: {ID: 3, Name: "Tea", Price: dec("3.00"), IsAvailable: true, PreparationTime: 3},
		4: {ID: 4, Name: "Special", Price: dec("20.00"), IsAvailable: false},
		5: {
			ID: 5, Name: "Pizza", Price: dec("8.00"), IsAvailable: true, PreparationTime: 20,
			Variants: []models.MenuItemVariant{{Name: "Large", Price: dec("12.00")}},
			AddOns:   []models.MenuItemAddOn{{Name: "Cheese", Price: dec("1.50")}},
		},
	}
}

func assertAmount(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Errorf("%s = %s, want %s", name, got.StringFixed(2), want)
	}
}

func TestCalculateTotals(t *testing.T) {
	tests := []struct {
		name     string
		in       Input
		subtotal string
		tax      string
		service  string
		discount string
		total    string
	}{
		{
			name: "two items with tax and service",
			in: Input{
				OrderType:         models.OrderTakeaway,
				Lines:             []Line{{MenuItemID: 1, Quantity: 2}},
				TaxRate:           dec("10"),
				ServiceChargeRate: dec("5"),
			},
			subtotal: "20.00", tax: "2.00", service: "1.00", discount: "0", total: "23.00",
		},
		{
			name: "dine-in scenario",
			in: Input{
				OrderType:         models.OrderDineIn,
				TableID:           ptr(uint(7)),
				Lines:             []Line{{MenuItemID: 2, Quantity: 2}, {MenuItemID: 3, Quantity: 1}},
				TaxRate:           dec("8"),
				ServiceChargeRate: dec("10"),
			},
			subtotal: "13.00", tax: "1.04", service: "1.30", discount: "0", total: "15.34",
		},
		{
			name: "percentage discount and delivery",
			in: Input{
				OrderType:      models.OrderDelivery,
				Lines:          []Line{{MenuItemID: 1, Quantity: 1}},
				Discount:       &Discount{Type: models.DiscountPercentage, Value: dec("15")},
				DeliveryCharge: dec("2.50"),
			},
			subtotal: "10.00", tax: "0", service: "0", discount: "1.50", total: "11.00",
		},
		{
			name: "fixed discount",
			in: Input{
				OrderType: models.OrderTakeaway,
				Lines:     []Line{{MenuItemID: 3, Quantity: 3}},
				Discount:  &Discount{Type: models.DiscountFixed, Value: dec("1")},
				TaxRate:   dec("5"),
			},
			subtotal: "9.00", tax: "0.45", service: "0", discount: "1.00", total: "8.45",
		},
		{
			name: "variant with catalog add-on",
			in: Input{
				OrderType: models.OrderTakeaway,
				Lines: []Line{{
					MenuItemID: 5, Quantity: 2, Variant: "large",
					AddOns: []AddOn{{Name: "cheese", Quantity: 2}},
				}},
			},
			// (12.00 + 1.50*2) * 2
			subtotal: "30.00", tax: "0", service: "0", discount: "0", total: "30.00",
		},
		{
			name: "override price and caller priced add-on",
			in: Input{
				OrderType: models.OrderTakeaway,
				Lines: []Line{{
					MenuItemID: 1, Quantity: 1, Price: ptr(dec("7.25")),
					AddOns: []AddOn{{Name: "Extra sauce", Price: ptr(dec("0.75"))}},
				}},
				TaxRate: dec("7.5"),
			},
			subtotal: "8.00", tax: "0.60", service: "0", discount: "0", total: "8.60",
		},
		{
			name: "rounding half up",
			in: Input{
				OrderType: models.OrderTakeaway,
				Lines:     []Line{{MenuItemID: 1, Quantity: 1, Price: ptr(dec("0.25"))}},
				TaxRate:   dec("10"),
			},
			// 0.025 rounds to 0.03
			subtotal: "0.25", tax: "0.03", service: "0", discount: "0", total: "0.28",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Calculate(tt.in, testCatalog())
			if err != nil {
				t.Fatalf("Calculate: %v", err)
			}
			assertAmount(t, "subtotal", got.Subtotal, tt.subtotal)
			assertAmount(t, "tax", got.Tax.Amount, tt.tax)
			assertAmount(t, "service", got.ServiceCharge.Amount, tt.service)
			assertAmount(t, "discount", got.Discount.Amount, tt.discount)
			assertAmount(t, "total", got.Total, tt.total)

			sum := got.Subtotal.Add(got.Tax.Amount).Add(got.ServiceCharge.Amount).Add(got.DeliveryCharge).Sub(got.Discount.Amount)
			if !sum.Equal(got.Total) {
				t.Errorf("total %s != components %s", got.Total, sum)
			}
		})
	}
}

func TestCalculateDeterministic(t *testing.T) {
	in := Input{
		OrderType:         models.OrderTakeaway,
		Lines:             []Line{{MenuItemID: 1, Quantity: 3}, {MenuItemID: 5, Quantity: 1, AddOns: []AddOn{{Name: "Cheese"}}}},
		TaxRate:           dec("12.5"),
		ServiceChargeRate: dec("3.3"),
		Discount:          &Discount{Type: models.DiscountPercentage, Value: dec("7")},
	}
	first, err := Calculate(in, testCatalog())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := Calculate(in, testCatalog())
		if err != nil {
			t.Fatal(err)
		}
		if !again.Total.Equal(first.Total) {
			t.Fatalf("run %d total %s, want %s", i, again.Total, first.Total)
		}
	}
}

func TestCalculateEstimatedMinutes(t *testing.T) {
	got, err := Calculate(Input{
		OrderType: models.OrderTakeaway,
		Lines:     []Line{{MenuItemID: 3, Quantity: 1}, {MenuItemID: 5, Quantity: 1}, {MenuItemID: 1, Quantity: 1}},
	}, testCatalog())
	if err != nil {
		t.Fatal(err)
	}
	if got.EstimatedMinutes != 20 {
		t.Errorf("EstimatedMinutes = %d, want 20", got.EstimatedMinutes)
	}
}

func TestCalculateErrors(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want error
	}{
		{
			name: "unknown menu item",
			in:   Input{OrderType: models.OrderTakeaway, Lines: []Line{{MenuItemID: 99, Quantity: 1}}},
			want: ErrInvalidReference,
		},
		{
			name: "unavailable item",
			in:   Input{OrderType: models.OrderTakeaway, Lines: []Line{{MenuItemID: 4, Quantity: 1}}},
			want: ErrItemUnavailable,
		},
		{
			name: "dine-in without table",
			in:   Input{OrderType: models.OrderDineIn, Lines: []Line{{MenuItemID: 1, Quantity: 1}}},
			want: ErrMissingTable,
		},
		{
			name: "no items",
			in:   Input{OrderType: models.OrderTakeaway},
			want: ErrInvalidInput,
		},
		{
			name: "zero quantity",
			in:   Input{OrderType: models.OrderTakeaway, Lines: []Line{{MenuItemID: 1}}},
			want: ErrInvalidInput,
		},
		{
			name: "unknown variant",
			in:   Input{OrderType: models.OrderTakeaway, Lines: []Line{{MenuItemID: 5, Quantity: 1, Variant: "Huge"}}},
			want: ErrInvalidInput,
		},
		{
			name: "unpriced add-on",
			in:   Input{OrderType: models.OrderTakeaway, Lines: []Line{{MenuItemID: 1, Quantity: 1, AddOns: []AddOn{{Name: "Mystery"}}}}},
			want: ErrInvalidInput,
		},
		{
			name: "tax rate above 100",
			in:   Input{OrderType: models.OrderTakeaway, Lines: []Line{{MenuItemID: 1, Quantity: 1}}, TaxRate: dec("101")},
			want: ErrInvalidInput,
		},
		{
			name: "discount larger than total",
			in: Input{
				OrderType: models.OrderTakeaway,
				Lines:     []Line{{MenuItemID: 3, Quantity: 1}},
				Discount:  &Discount{Type: models.DiscountFixed, Value: dec("50")},
			},
			want: ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Calculate(tt.in, testCatalog())
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLineErrorCarriesIndex(t *testing.T) {
	_, err := Calculate(Input{
		OrderType: models.OrderTakeaway,
		Lines:     []Line{{MenuItemID: 1, Quantity: 1}, {MenuItemID: 4, Quantity: 1}},
	}, testCatalog())

	var le *LineError
	if !errors.As(err, &le) {
		t.Fatalf("err = %v, want *LineError", err)
	}
	if le.Index != 1 || le.MenuItemID != 4 {
		t.Errorf("LineError = %+v, want index 1 item 4", le)
	}
}
