package orders

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/models"
)

var t0 = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.OrderStatus
		want     bool
	}{
		{models.OrderPending, models.OrderConfirmed, true},
		{models.OrderPending, models.OrderPreparing, false},
		{models.OrderConfirmed, models.OrderPreparing, true},
		{models.OrderPreparing, models.OrderReady, true},
		{models.OrderReady, models.OrderServed, true},
		{models.OrderReady, models.OrderCompleted, true},
		{models.OrderServed, models.OrderCompleted, true},
		{models.OrderServed, models.OrderReady, false},
		{models.OrderCompleted, models.OrderCancelled, false},
		{models.OrderCancelled, models.OrderPending, false},
		{models.OrderPending, models.OrderCancelled, true},
		{models.OrderServed, models.OrderCancelled, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanAdvanceItem(t *testing.T) {
	tests := []struct {
		from, to models.ItemStatus
		want     bool
	}{
		{models.ItemPending, models.ItemPreparing, true},
		{models.ItemPending, models.ItemReady, true},
		{models.ItemPending, models.ItemServed, true},
		{models.ItemReady, models.ItemPreparing, false},
		{models.ItemServed, models.ItemServed, false},
		{models.ItemPreparing, "burnt", false},
	}
	for _, tt := range tests {
		if got := CanAdvanceItem(tt.from, tt.to); got != tt.want {
			t.Errorf("CanAdvanceItem(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestPrepMinutesRoundsUp(t *testing.T) {
	tests := []struct {
		elapsed time.Duration
		want    int
	}{
		{12*time.Minute + 12*time.Second, 13},
		{12 * time.Minute, 12},
		{time.Second, 1},
		{0, 0},
		{-time.Minute, 0},
	}
	for _, tt := range tests {
		if got := PrepMinutes(t0, t0.Add(tt.elapsed)); got != tt.want {
			t.Errorf("PrepMinutes(%v) = %d, want %d", tt.elapsed, got, tt.want)
		}
	}
}

func newOrder(status models.OrderStatus, items ...models.ItemStatus) *models.Order {
	o := &models.Order{
		ID:          1,
		Status:      status,
		TotalAmount: decimal.RequireFromString("15.34"),
		CreatedAt:   t0,
	}
	for i, s := range items {
		o.Items = append(o.Items, models.OrderItem{Position: i, Name: "item", Quantity: 1, Status: s})
	}
	return o
}

func TestKitchenRollUp(t *testing.T) {
	o := newOrder(models.OrderConfirmed, models.ItemPending, models.ItemPending)

	changed, err := advanceItem(o, 0, models.ItemPreparing, RollUpReady, t0)
	if err != nil {
		t.Fatal(err)
	}
	if !changed || o.Status != models.OrderPreparing {
		t.Fatalf("status = %s, changed %v; want preparing", o.Status, changed)
	}
	if o.PreparationTime.StartedAt == nil || !o.PreparationTime.StartedAt.Equal(t0) {
		t.Errorf("StartedAt = %v", o.PreparationTime.StartedAt)
	}

	if _, err := advanceItem(o, 0, models.ItemReady, RollUpReady, t0.Add(5*time.Minute)); err != nil {
		t.Fatal(err)
	}
	if o.Status != models.OrderPreparing {
		t.Fatalf("order ready with an item still pending")
	}

	done := t0.Add(12*time.Minute + 12*time.Second)
	changed, err = advanceItem(o, 1, models.ItemReady, RollUpReady, done)
	if err != nil {
		t.Fatal(err)
	}
	if !changed || o.Status != models.OrderReady {
		t.Fatalf("status = %s, want ready", o.Status)
	}
	if o.PreparationTime.Actual == nil || *o.PreparationTime.Actual != 13 {
		t.Errorf("Actual = %v, want 13", o.PreparationTime.Actual)
	}
	if o.PreparationTime.CompletedAt == nil || !o.PreparationTime.CompletedAt.Equal(done) {
		t.Errorf("CompletedAt = %v", o.PreparationTime.CompletedAt)
	}

	// A later item change does not re-enter ready.
	changed, err = advanceItem(o, 0, models.ItemServed, RollUpReady, done.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if changed || o.Status != models.OrderReady || !o.PreparationTime.CompletedAt.Equal(done) {
		t.Errorf("ready fired twice: status %s, completed %v", o.Status, o.PreparationTime.CompletedAt)
	}
}

func TestKitchenRollUpIgnoresServedItems(t *testing.T) {
	o := newOrder(models.OrderPreparing, models.ItemServed, models.ItemPreparing)

	changed, err := advanceItem(o, 1, models.ItemReady, RollUpReady, t0)
	if err != nil {
		t.Fatal(err)
	}
	if changed || o.Status != models.OrderPreparing {
		t.Fatalf("kitchen route counted a served item: status %s", o.Status)
	}

	o = newOrder(models.OrderPreparing, models.ItemServed, models.ItemPreparing)
	changed, err = advanceItem(o, 1, models.ItemReady, RollUpReadyOrServed, t0)
	if err != nil {
		t.Fatal(err)
	}
	if !changed || o.Status != models.OrderReady {
		t.Errorf("floor route status = %s, want ready", o.Status)
	}
}

func TestFloorRollUpCountsServed(t *testing.T) {
	o := newOrder(models.OrderPreparing, models.ItemServed, models.ItemPreparing)

	if _, err := advanceItem(o, 1, models.ItemReady, RollUpReady, t0); err != nil {
		t.Fatal(err)
	}
	if o.Status != models.OrderPreparing {
		t.Errorf("kitchen view treated served as ready")
	}

	o = newOrder(models.OrderPreparing, models.ItemServed, models.ItemPreparing)
	if _, err := advanceItem(o, 1, models.ItemReady, RollUpReadyOrServed, t0); err != nil {
		t.Fatal(err)
	}
	if o.Status != models.OrderReady {
		t.Errorf("status = %s, want ready", o.Status)
	}
}

func TestReadyFallsBackToKOTPrintTime(t *testing.T) {
	o := newOrder(models.OrderConfirmed, models.ItemPending)
	printed := t0.Add(2 * time.Minute)
	o.KOT.PrintedAt = &printed

	if _, err := advanceItem(o, 0, models.ItemReady, RollUpReady, printed.Add(4*time.Minute+time.Second)); err != nil {
		t.Fatal(err)
	}
	if o.Status != models.OrderReady || *o.PreparationTime.Actual != 5 {
		t.Errorf("status %s, actual %v; want ready, 5", o.Status, *o.PreparationTime.Actual)
	}
}

func TestAdvanceItemErrors(t *testing.T) {
	tests := []struct {
		name  string
		order *models.Order
		index int
		to    models.ItemStatus
	}{
		{"terminal order", newOrder(models.OrderCompleted, models.ItemServed), 0, models.ItemServed},
		{"cancelled order", newOrder(models.OrderCancelled, models.ItemPending), 0, models.ItemReady},
		{"index out of range", newOrder(models.OrderPending, models.ItemPending), 3, models.ItemReady},
		{"negative index", newOrder(models.OrderPending, models.ItemPending), -1, models.ItemReady},
		{"backwards", newOrder(models.OrderPreparing, models.ItemReady), 0, models.ItemPreparing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := *tt.order
			_, err := advanceItem(tt.order, tt.index, tt.to, RollUpReady, t0)
			if !apperr.Is(err, apperr.KindValidation) {
				t.Fatalf("err = %v, want validation", err)
			}
			if tt.order.Status != before.Status {
				t.Errorf("status changed to %s", tt.order.Status)
			}
		})
	}
}

func TestTransitionTo(t *testing.T) {
	o := newOrder(models.OrderPending)
	if err := transitionTo(o, models.OrderReady, t0); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("pending -> ready err = %v", err)
	}
	if o.Status != models.OrderPending {
		t.Fatal("rejected transition changed the status")
	}
	for _, to := range []models.OrderStatus{models.OrderConfirmed, models.OrderPreparing, models.OrderReady, models.OrderServed, models.OrderCompleted} {
		if err := transitionTo(o, to, t0.Add(time.Minute)); err != nil {
			t.Fatalf("-> %s: %v", to, err)
		}
	}
	if o.CompletedAt == nil {
		t.Error("CompletedAt not stamped")
	}
}

func TestApplyPayment(t *testing.T) {
	o := newOrder(models.OrderReady)

	if applyPayment(o, models.Payment{Amount: decimal.RequireFromString("10")}, t0) {
		t.Fatal("partial payment completed the order")
	}
	if o.PaymentStatus != models.PaymentPartial {
		t.Errorf("PaymentStatus = %s, want partial", o.PaymentStatus)
	}

	if !applyPayment(o, models.Payment{Amount: decimal.RequireFromString("5.34")}, t0) {
		t.Fatal("full payment did not complete a ready order")
	}
	if o.PaymentStatus != models.PaymentPaid || o.Status != models.OrderCompleted || o.CompletedAt == nil {
		t.Errorf("order = %s/%s", o.Status, o.PaymentStatus)
	}

	pending := newOrder(models.OrderPreparing)
	if applyPayment(pending, models.Payment{Amount: decimal.RequireFromString("20")}, t0) {
		t.Error("prepaid order completed before the kitchen finished")
	}
	if pending.PaymentStatus != models.PaymentPaid || pending.Status != models.OrderPreparing {
		t.Errorf("order = %s/%s, want preparing/paid", pending.Status, pending.PaymentStatus)
	}
}

func TestCancelOrder(t *testing.T) {
	o := newOrder(models.OrderPreparing)
	o.Notes = "no onions"
	if err := cancelOrder(o, "customer left", t0); err != nil {
		t.Fatal(err)
	}
	if o.Status != models.OrderCancelled || o.CancelledAt == nil {
		t.Fatalf("status = %s", o.Status)
	}
	if o.Notes != "no onions\nCancelled: customer left" {
		t.Errorf("Notes = %q", o.Notes)
	}

	notes := o.Notes
	if err := cancelOrder(o, "again", t0); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("second cancel err = %v", err)
	}
	if o.Notes != notes {
		t.Error("rejected cancel changed the notes")
	}
}

func TestCompleteKitchen(t *testing.T) {
	o := newOrder(models.OrderConfirmed, models.ItemPending, models.ItemServed)
	if err := completeKitchen(o, t0.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	if o.Status != models.OrderReady {
		t.Fatalf("status = %s", o.Status)
	}
	if o.Items[0].Status != models.ItemReady || o.Items[1].Status != models.ItemServed {
		t.Errorf("items = %s, %s", o.Items[0].Status, o.Items[1].Status)
	}
	if err := completeKitchen(o, t0); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("completing a ready ticket err = %v", err)
	}
}
