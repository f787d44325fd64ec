//go:build integration

package orders_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/database/dbtest"
	"restoran-pos/internal/events/eventstest"
	"restoran-pos/internal/models"
	"restoran-pos/internal/orders"
	"restoran-pos/internal/pricing"
)

func TestGormStoreLifecycle(t *testing.T) {
	db := dbtest.Postgres(t)
	ctx := context.Background()

	bun := models.InventoryItem{Name: "Bun", SKU: "BUN", Unit: "pcs", CurrentStock: 3, ReorderLevel: 1, IsActive: true}
	if err := db.Create(&bun).Error; err != nil {
		t.Fatal(err)
	}
	cat := models.Category{Name: "Mains", IsActive: true}
	if err := db.Create(&cat).Error; err != nil {
		t.Fatal(err)
	}
	burger := models.MenuItem{
		CategoryID:      cat.ID,
		Name:            "Burger",
		Price:           decimal.RequireFromString("10.00"),
		IsAvailable:     true,
		PreparationTime: 15,
		Ingredients:     []models.MenuItemIngredient{{InventoryItemID: bun.ID, Quantity: 1}},
	}
	if err := db.Create(&burger).Error; err != nil {
		t.Fatal(err)
	}
	table := models.Table{Number: "T1", Capacity: 2, Status: models.TableAvailable}
	if err := db.Create(&table).Error; err != nil {
		t.Fatal(err)
	}

	store := orders.NewGormStore(db)
	rec := &eventstest.Recorder{}
	svc := orders.NewService(store, rec)
	actor := orders.Actor{UserID: 1, Name: "Mara", Role: models.RoleManager}

	in := orders.CreateInput{
		IdempotencyKey: "it-1",
		OrderType:      models.OrderDineIn,
		TableID:        &table.ID,
		Items:          []pricing.Line{{MenuItemID: burger.ID, Quantity: 2}},
	}

	var wg sync.WaitGroup
	results := make([]*orders.CreateResult, 4)
	errs := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Create(ctx, actor, in)
		}(i)
	}
	wg.Wait()

	var created int
	for i, err := range errs {
		if err != nil {
			t.Fatalf("creator %d: %v", i, err)
		}
		if !results[i].Replayed {
			created++
		}
		if results[i].Order.ID != results[0].Order.ID {
			t.Fatalf("creators returned different orders")
		}
	}
	if created != 1 {
		t.Errorf("%d creators inserted, want 1", created)
	}

	var stock models.InventoryItem
	db.First(&stock, bun.ID)
	if stock.CurrentStock != 1 {
		t.Errorf("bun stock = %v, want 1", stock.CurrentStock)
	}

	id := results[0].Order.ID
	if _, err := svc.PrintKOT(ctx, actor, id, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CompleteKOT(ctx, actor, id); err != nil {
		t.Fatal(err)
	}
	o, err := svc.AddPayment(ctx, actor, id, orders.PaymentInput{Amount: results[0].Order.TotalAmount, Method: "cash"})
	if err != nil {
		t.Fatal(err)
	}
	if o.Status != models.OrderCompleted {
		t.Fatalf("status = %s", o.Status)
	}

	reloaded, err := store.Order(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Status != models.OrderCompleted || len(reloaded.Payments) != 1 || reloaded.Items[0].Status != models.ItemReady {
		t.Errorf("reloaded = %s, %d payments, item %s", reloaded.Status, len(reloaded.Payments), reloaded.Items[0].Status)
	}
	if reloaded.KOT.Number == nil || reloaded.PreparationTime.Actual == nil {
		t.Errorf("kitchen fields not persisted: %+v / %+v", reloaded.KOT, reloaded.PreparationTime)
	}

	var tbl models.Table
	db.First(&tbl, table.ID)
	if tbl.Status != models.TableCleaning || tbl.CurrentOrderID != nil {
		t.Errorf("table = %s / %v", tbl.Status, tbl.CurrentOrderID)
	}

	// Two more burgers would need 2 buns; only 1 is left.
	tbl.Status = models.TableAvailable
	db.Save(&tbl)
	in.IdempotencyKey = ""
	_, err = svc.Create(ctx, actor, in)
	if !apperr.Is(err, apperr.KindInsufficientStock) {
		t.Fatalf("err = %v, want insufficient stock", err)
	}
	var count int64
	db.Model(&models.Order{}).Count(&count)
	if count != 1 {
		t.Errorf("orders = %d, want 1", count)
	}
}

func TestNextSequenceIsAtomic(t *testing.T) {
	db := dbtest.Postgres(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	const n = 20
	seen := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := orders.NewGormStore(db).NextSequence(ctx, "order", day)
			if err != nil {
				t.Error(err)
				return
			}
			seen <- v
		}()
	}
	wg.Wait()
	close(seen)

	got := map[int]bool{}
	for v := range seen {
		if got[v] {
			t.Errorf("sequence %d handed out twice", v)
		}
		got[v] = true
	}
	for i := 1; i <= n; i++ {
		if !got[i] {
			t.Errorf("sequence %d missing", i)
		}
	}

	if _, err := orders.NewGormStore(db).Order(ctx, 12345); !errors.Is(err, orders.ErrNotFound) {
		t.Errorf("missing order err = %v", err)
	}
}
