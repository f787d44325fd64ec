// Package pricing turns a cart into a priced order snapshot. It has no side effects: the
// caller supplies the catalog snapshot and gets back amounts rounded to cents, with
//
//	total = subtotal + tax + serviceCharge + deliveryCharge - discount
//
// holding exactly on the rounded values.
package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"restoran-pos/internal/models"
)

var (
	ErrInvalidReference = errors.New("menu item not found")
	ErrItemUnavailable  = errors.New("menu item is not available")
	ErrMissingTable     = errors.New("dine-in orders require a table")
	ErrInvalidInput     = errors.New("invalid pricing input")
)

var hundred = decimal.NewFromInt(100)

// LineError ties a failure to one cart line.
type LineError struct {
	Index      int
	MenuItemID uint
	Err        error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("items[%d]: %v (menu item %d)", e.Index, e.Err, e.MenuItemID)
}

func (e *LineError) Unwrap() error { return e.Err }

type AddOn struct {
	Name string
	// Price is used only when the menu item has no add-on of that name.
	Price    *decimal.Decimal
	Quantity int
}

type Line struct {
	MenuItemID uint
	Quantity   int
	Variant    string
	// Price overrides the catalog price when set.
	Price               *decimal.Decimal
	AddOns              []AddOn
	SpecialInstructions string
}

type Discount struct {
	Type   models.DiscountType
	Value  decimal.Decimal
	Reason string
}

type Input struct {
	OrderType         models.OrderType
	TableID           *uint
	Lines             []Line
	Discount          *Discount
	TaxRate           decimal.Decimal
	ServiceChargeRate decimal.Decimal
	DeliveryCharge    decimal.Decimal
}

// Catalog is the menu snapshot the calculator prices against.
type Catalog map[uint]models.MenuItem

type PricedLine struct {
	MenuItem            models.MenuItem
	Quantity            int
	Variant             string
	UnitPrice           decimal.Decimal
	AddOns              []models.OrderAddOn
	LineTotal           decimal.Decimal
	SpecialInstructions string
}

type Priced struct {
	Lines          []PricedLine
	Subtotal       decimal.Decimal
	Tax            models.TaxLine
	Discount       models.DiscountLine
	ServiceCharge  models.ChargeLine
	DeliveryCharge decimal.Decimal
	Total          decimal.Decimal
	// EstimatedMinutes is the slowest line's preparation time.
	EstimatedMinutes int
}

func Calculate(in Input, catalog Catalog) (*Priced, error) {
	if in.OrderType == models.OrderDineIn && in.TableID == nil {
		return nil, ErrMissingTable
	}
	if len(in.Lines) == 0 {
		return nil, fmt.Errorf("%w: no items", ErrInvalidInput)
	}
	if err := checkRate("tax rate", in.TaxRate); err != nil {
		return nil, err
	}
	if err := checkRate("service charge rate", in.ServiceChargeRate); err != nil {
		return nil, err
	}
	if in.DeliveryCharge.IsNegative() {
		return nil, fmt.Errorf("%w: delivery charge cannot be negative", ErrInvalidInput)
	}

	out := &Priced{Lines: make([]PricedLine, 0, len(in.Lines))}
	subtotal := decimal.Zero

	for i, line := range in.Lines {
		item, ok := catalog[line.MenuItemID]
		if !ok {
			return nil, &LineError{Index: i, MenuItemID: line.MenuItemID, Err: ErrInvalidReference}
		}
		if !item.IsAvailable {
			return nil, &LineError{Index: i, MenuItemID: line.MenuItemID, Err: ErrItemUnavailable}
		}
		priced, err := priceLine(line, item)
		if err != nil {
			return nil, &LineError{Index: i, MenuItemID: line.MenuItemID, Err: err}
		}
		subtotal = subtotal.Add(priced.LineTotal)
		if item.PreparationTime > out.EstimatedMinutes {
			out.EstimatedMinutes = item.PreparationTime
		}
		out.Lines = append(out.Lines, priced)
	}

	out.Subtotal = cents(subtotal)
	out.Tax = models.TaxLine{Rate: in.TaxRate, Amount: percentOf(out.Subtotal, in.TaxRate)}
	out.ServiceCharge = models.ChargeLine{Rate: in.ServiceChargeRate, Amount: percentOf(out.Subtotal, in.ServiceChargeRate)}
	out.DeliveryCharge = cents(in.DeliveryCharge)

	discount, err := applyDiscount(in.Discount, out.Subtotal)
	if err != nil {
		return nil, err
	}
	out.Discount = discount

	gross := out.Subtotal.Add(out.Tax.Amount).Add(out.ServiceCharge.Amount).Add(out.DeliveryCharge)
	if out.Discount.Amount.GreaterThan(gross) {
		return nil, fmt.Errorf("%w: discount %s exceeds order total %s", ErrInvalidInput, out.Discount.Amount.StringFixed(2), gross.StringFixed(2))
	}
	out.Total = gross.Sub(out.Discount.Amount)
	return out, nil
}

func priceLine(line Line, item models.MenuItem) (PricedLine, error) {
	if line.Quantity < 1 {
		return PricedLine{}, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
	}

	unit := item.Price
	if line.Variant != "" {
		v, ok := findVariant(item, line.Variant)
		if !ok {
			return PricedLine{}, fmt.Errorf("%w: unknown variant %q", ErrInvalidInput, line.Variant)
		}
		unit = v.Price
	}
	if line.Price != nil {
		if line.Price.IsNegative() {
			return PricedLine{}, fmt.Errorf("%w: price cannot be negative", ErrInvalidInput)
		}
		unit = *line.Price
	}

	qty := decimal.NewFromInt(int64(line.Quantity))
	total := unit.Mul(qty)

	addOns := make([]models.OrderAddOn, 0, len(line.AddOns))
	for _, a := range line.AddOns {
		price, err := addOnPrice(item, a)
		if err != nil {
			return PricedLine{}, err
		}
		n := a.Quantity
		if n == 0 {
			n = 1
		}
		if n < 0 {
			return PricedLine{}, fmt.Errorf("%w: add-on %q quantity cannot be negative", ErrInvalidInput, a.Name)
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(n))).Mul(qty))
		addOns = append(addOns, models.OrderAddOn{Name: a.Name, Price: price, Quantity: n})
	}

	return PricedLine{
		MenuItem:            item,
		Quantity:            line.Quantity,
		Variant:             line.Variant,
		UnitPrice:           unit,
		AddOns:              addOns,
		LineTotal:           cents(total),
		SpecialInstructions: line.SpecialInstructions,
	}, nil
}

func findVariant(item models.MenuItem, name string) (models.MenuItemVariant, bool) {
	for _, v := range item.Variants {
		if strings.EqualFold(v.Name, name) {
			return v, true
		}
	}
	return models.MenuItemVariant{}, false
}

func addOnPrice(item models.MenuItem, a AddOn) (decimal.Decimal, error) {
	for _, known := range item.AddOns {
		if strings.EqualFold(known.Name, a.Name) {
			return known.Price, nil
		}
	}
	if a.Price == nil {
		return decimal.Zero, fmt.Errorf("%w: add-on %q has no price", ErrInvalidInput, a.Name)
	}
	if a.Price.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: add-on %q price cannot be negative", ErrInvalidInput, a.Name)
	}
	return *a.Price, nil
}

func applyDiscount(d *Discount, subtotal decimal.Decimal) (models.DiscountLine, error) {
	if d == nil || d.Type == "" {
		return models.DiscountLine{}, nil
	}
	line := models.DiscountLine{Type: d.Type, Value: d.Value, Reason: d.Reason}
	if d.Value.IsNegative() {
		return line, fmt.Errorf("%w: discount value cannot be negative", ErrInvalidInput)
	}
	switch d.Type {
	case models.DiscountPercentage:
		if d.Value.GreaterThan(hundred) {
			return line, fmt.Errorf("%w: percentage discount above 100", ErrInvalidInput)
		}
		line.Amount = percentOf(subtotal, d.Value)
	case models.DiscountFixed:
		line.Amount = cents(d.Value)
	default:
		return line, fmt.Errorf("%w: unknown discount type %q", ErrInvalidInput, d.Type)
	}
	return line, nil
}

func checkRate(name string, rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return fmt.Errorf("%w: %s must be between 0 and 100", ErrInvalidInput, name)
	}
	return nil
}

func percentOf(amount, rate decimal.Decimal) decimal.Decimal {
	return cents(amount.Mul(rate).Div(hundred))
}

func cents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
