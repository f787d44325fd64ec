package orders

import (
	"fmt"
	"strings"
	"time"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/models"
)

// Allowed explicit status changes. completed and cancelled are terminal.
var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPending:   {models.OrderConfirmed, models.OrderCancelled},
	models.OrderConfirmed: {models.OrderPreparing, models.OrderCancelled},
	models.OrderPreparing: {models.OrderReady, models.OrderCancelled},
	models.OrderReady:     {models.OrderServed, models.OrderCompleted, models.OrderCancelled},
	models.OrderServed:    {models.OrderCompleted, models.OrderCancelled},
}

func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func IsTerminal(s models.OrderStatus) bool {
	return s == models.OrderCompleted || s == models.OrderCancelled
}

var itemRank = map[models.ItemStatus]int{
	models.ItemPending:   0,
	models.ItemPreparing: 1,
	models.ItemReady:     2,
	models.ItemServed:    3,
}

// CanAdvanceItem reports whether an item may move from one status to another. Items only
// move forward; skipping steps is allowed.
func CanAdvanceItem(from, to models.ItemStatus) bool {
	rf, ok := itemRank[from]
	if !ok {
		return false
	}
	rt, ok := itemRank[to]
	return ok && rt > rf
}

// PrepMinutes is the elapsed preparation time rounded up to whole minutes.
func PrepMinutes(started, completed time.Time) int {
	d := completed.Sub(started)
	if d <= 0 {
		return 0
	}
	return int((d + time.Minute - 1) / time.Minute)
}

// RollUp selects which item statuses count as done when deciding the order is ready.
type RollUp int

const (
	// RollUpReady is the kitchen view: every item ready.
	RollUpReady RollUp = iota
	// RollUpReadyOrServed is the floor view: every item ready or already served.
	RollUpReadyOrServed
)

func (r RollUp) done(s models.ItemStatus) bool {
	if r == RollUpReadyOrServed {
		return s == models.ItemReady || s == models.ItemServed
	}
	return s == models.ItemReady
}

// setStatus moves o to `to` and stamps the derived timestamps. Legality is the caller's job.
func setStatus(o *models.Order, to models.OrderStatus, now time.Time) {
	switch to {
	case models.OrderPreparing:
		if o.PreparationTime.StartedAt == nil {
			o.PreparationTime.StartedAt = &now
		}
	case models.OrderReady:
		o.PreparationTime.CompletedAt = &now
		mins := PrepMinutes(prepStart(o), now)
		o.PreparationTime.Actual = &mins
	case models.OrderCompleted:
		o.CompletedAt = &now
	case models.OrderCancelled:
		o.CancelledAt = &now
	}
	o.Status = to
}

// prepStart falls back to the KOT print time, then the creation time, when the order
// never passed through preparing.
func prepStart(o *models.Order) time.Time {
	if o.PreparationTime.StartedAt != nil {
		return *o.PreparationTime.StartedAt
	}
	if o.KOT.PrintedAt != nil {
		return *o.KOT.PrintedAt
	}
	return o.CreatedAt
}

// transitionTo validates and applies an explicit status change.
func transitionTo(o *models.Order, to models.OrderStatus, now time.Time) error {
	if !CanTransition(o.Status, to) {
		return apperr.Validationf("cannot change order status from %s to %s", o.Status, to)
	}
	setStatus(o, to, now)
	return nil
}

// advanceItem moves one item forward and rolls the change up into the order. It reports
// whether the order status changed.
func advanceItem(o *models.Order, index int, to models.ItemStatus, mode RollUp, now time.Time) (bool, error) {
	if IsTerminal(o.Status) {
		return false, apperr.Validationf("cannot update items of a %s order", o.Status)
	}
	if index < 0 || index >= len(o.Items) {
		return false, apperr.Validationf("item index %d out of range (order has %d items)", index, len(o.Items))
	}

	item := &o.Items[index]
	if !CanAdvanceItem(item.Status, to) {
		return false, apperr.Validationf("item cannot move from %s to %s", item.Status, to)
	}
	item.Status = to
	if itemRank[to] >= itemRank[models.ItemReady] && item.PreparedAt == nil {
		item.PreparedAt = &now
	}
	if to == models.ItemServed {
		item.ServedAt = &now
	}

	prev := o.Status
	if to == models.ItemPreparing && o.Status == models.OrderConfirmed {
		setStatus(o, models.OrderPreparing, now)
	}
	if allItems(o, mode) && awaitingKitchen(o.Status) {
		setStatus(o, models.OrderReady, now)
	}
	return o.Status != prev, nil
}

func allItems(o *models.Order, mode RollUp) bool {
	if len(o.Items) == 0 {
		return false
	}
	for _, it := range o.Items {
		if !mode.done(it.Status) {
			return false
		}
	}
	return true
}

// awaitingKitchen is true while the order has not yet been reported ready.
func awaitingKitchen(s models.OrderStatus) bool {
	return s == models.OrderPending || s == models.OrderConfirmed || s == models.OrderPreparing
}

// completeKitchen marks every unfinished item ready and the order ready.
func completeKitchen(o *models.Order, now time.Time) error {
	if !awaitingKitchen(o.Status) {
		return apperr.Validationf("cannot complete the kitchen ticket of a %s order", o.Status)
	}
	for i := range o.Items {
		it := &o.Items[i]
		if itemRank[it.Status] < itemRank[models.ItemReady] {
			it.Status = models.ItemReady
			it.PreparedAt = &now
		}
	}
	setStatus(o, models.OrderReady, now)
	return nil
}

// applyPayment appends p and recomputes the payment status. A fully paid order that is
// ready or served is completed. It reports whether the order status changed.
func applyPayment(o *models.Order, p models.Payment, now time.Time) bool {
	o.Payments = append(o.Payments, p)
	paid := o.PaidTotal()

	switch {
	case paid.GreaterThanOrEqual(o.TotalAmount):
		o.PaymentStatus = models.PaymentPaid
		if o.Status == models.OrderReady || o.Status == models.OrderServed {
			setStatus(o, models.OrderCompleted, now)
			return true
		}
	case paid.IsPositive():
		o.PaymentStatus = models.PaymentPartial
	}
	return false
}

func cancelOrder(o *models.Order, reason string, now time.Time) error {
	if IsTerminal(o.Status) {
		return apperr.Validationf("order is already %s", o.Status)
	}
	setStatus(o, models.OrderCancelled, now)
	note := fmt.Sprintf("Cancelled: %s", reason)
	if strings.TrimSpace(o.Notes) == "" {
		o.Notes = note
	} else {
		o.Notes = o.Notes + "\n" + note
	}
	return nil
}

// preparationStarted reports whether the kitchen has begun work, after which consumed
// stock is not returned on cancellation.
func preparationStarted(prev models.OrderStatus) bool {
	return prev != models.OrderPending && prev != models.OrderConfirmed
}
