// Package orders owns the order lifecycle: idempotent creation, the status state machine,
// item roll-up, payments, cancellation and the kitchen ticket (KOT).
//
// Every operation runs its Order, Table and Inventory writes in one Store transaction and
// publishes realtime events only after that transaction commits.
package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/audit"
	"restoran-pos/internal/database"
	"restoran-pos/internal/events"
	"restoran-pos/internal/metrics"
	"restoran-pos/internal/models"
	"restoran-pos/internal/pricing"
	"restoran-pos/internal/stock"
)

// Actor is the authenticated user performing an operation.
type Actor struct {
	UserID uint
	Name   string
	Role   models.UserRole
}

// RatesFunc supplies the default tax and service charge percentages.
type RatesFunc func(ctx context.Context) (tax, serviceCharge decimal.Decimal, err error)

type Service struct {
	store  Store
	events events.Publisher
	rates  RatesFunc
	audit  func(audit.LogOptions)
	now    func() time.Time
}

type Option func(*Service)

func WithRates(fn RatesFunc) Option { return func(s *Service) { s.rates = fn } }

func WithAudit(fn func(audit.LogOptions)) Option { return func(s *Service) { s.audit = fn } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(store Store, pub events.Publisher, opts ...Option) *Service {
	s := &Service{
		store:  store,
		events: pub,
		rates: func(context.Context) (decimal.Decimal, decimal.Decimal, error) {
			return decimal.Zero, decimal.Zero, nil
		},
		audit: func(audit.LogOptions) {},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.events == nil {
		s.events = events.Discard
	}
	return s
}

type Customer struct {
	Name  string
	Phone string
	Email string
}

type CreateInput struct {
	IdempotencyKey    string
	OrderType         models.OrderType
	TableID           *uint
	WaiterID          *uint
	Customer          *Customer
	Items             []pricing.Line
	Discount          *pricing.Discount
	TaxRate           *decimal.Decimal
	ServiceChargeRate *decimal.Decimal
	DeliveryCharge    decimal.Decimal
	DeliveryAddress   string
	Notes             string
}

type CreateResult struct {
	Order *models.Order
	// Replayed is true when the idempotency key matched an existing order.
	Replayed bool
}

// Create prices and persists a new order. A repeated idempotency key returns the order that
// owns it, including when a concurrent request won the insert race, provided actor may see
// that order.
func (s *Service) Create(ctx context.Context, actor Actor, in CreateInput) (*CreateResult, error) {
	if err := checkPriceOverrides(actor, in); err != nil {
		return nil, err
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		existing, err := s.store.OrderByIdempotencyKey(ctx, key)
		if err == nil {
			return replay(actor, existing)
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, apperr.Wrap(err, "look up idempotency key")
		}
	}

	catalog, err := s.store.Catalog(ctx, menuItemIDs(in.Items))
	if err != nil {
		return nil, apperr.Wrap(err, "load menu")
	}
	priceIn, err := s.pricingInput(ctx, in)
	if err != nil {
		return nil, err
	}
	priced, err := pricing.Calculate(priceIn, catalog)
	if err != nil {
		return nil, pricingError(err)
	}

	var (
		order    *models.Order
		table    *models.Table
		lowStock []*models.InventoryItem
	)
	err = s.store.InTx(ctx, func(tx Tx) error {
		table, lowStock = nil, nil
		now := s.now()

		if in.OrderType == models.OrderDineIn {
			t, err := tx.LockTable(ctx, *in.TableID)
			if errors.Is(err, ErrNotFound) {
				return apperr.NotFound(fmt.Sprintf("table %d not found", *in.TableID))
			}
			if err != nil {
				return err
			}
			if t.HoldsOpenOrder() || t.Status == models.TableOccupied {
				return apperr.Conflict(fmt.Sprintf("table %s already has an open order", t.Number))
			}
			if t.Status == models.TableOutOfOrder {
				return apperr.Conflict(fmt.Sprintf("table %s is out of order", t.Number))
			}
			table = t
		}

		seq, err := tx.NextSequence(ctx, database.ScopeOrder, now)
		if err != nil {
			return err
		}

		o := buildOrder(actor, in, priced, table, now)
		o.OrderNumber = database.FormatNumber("ORD", now, seq)
		if key != "" {
			o.IdempotencyKey = &key
		}
		if err := tx.CreateOrder(ctx, o); err != nil {
			return err
		}

		lowStock, err = consumeStock(ctx, tx, o, priced, actor)
		if err != nil {
			return err
		}

		if table != nil {
			table.Occupy(o.ID, now)
			if err := tx.SaveTable(ctx, table); err != nil {
				return err
			}
		}
		order = o
		return nil
	})

	// A concurrent request with the same key may have committed first. Depending on timing the
	// loser sees the unique violation or the table that winner just occupied.
	if err != nil && key != "" {
		if winner, ferr := s.store.OrderByIdempotencyKey(ctx, key); ferr == nil {
			return replay(actor, winner)
		}
	}
	if err != nil {
		return nil, apperr.Wrap(err, "create order")
	}

	metrics.OrdersCreated.WithLabelValues(string(order.OrderType)).Inc()

	evs := []events.Event{events.New(events.NewOrder, events.NewOrderPayload{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		OrderType:   order.OrderType,
		Table:       order.TableID,
		Waiter:      order.WaiterID,
		Items:       events.Items(order.Items),
		TotalAmount: order.TotalAmount,
		Status:      order.Status,
		CreatedAt:   order.CreatedAt,
	})}
	if table != nil {
		evs = append(evs, events.New(events.TableStatusUpdate, events.TableChanged(table, actor.UserID)))
	}
	for _, item := range lowStock {
		evs = append(evs, events.New(events.LowStockAlert, events.LowStock(item)))
	}
	events.Emit(ctx, s.events, evs...)

	s.audit(audit.LogOptions{
		UserID:      actor.UserID,
		UserName:    actor.Name,
		EntityType:  "order",
		EntityID:    order.ID,
		Action:      models.AuditActionCreate,
		Description: fmt.Sprintf("Order %s created", order.OrderNumber),
		After:       order,
	})
	return &CreateResult{Order: order}, nil
}

func replay(actor Actor, existing *models.Order) (*CreateResult, error) {
	if !canView(actor, existing) {
		return nil, apperr.Conflict("idempotency key already used")
	}
	metrics.OrderIdempotentReplays.Inc()
	return &CreateResult{Order: existing, Replayed: true}, nil
}

// checkPriceOverrides keeps customers on catalog prices and configured rates.
func checkPriceOverrides(actor Actor, in CreateInput) error {
	if actor.Role != models.RoleCustomer {
		return nil
	}
	if in.Discount != nil {
		return apperr.Validation("customers cannot apply discounts")
	}
	if in.TaxRate != nil || in.ServiceChargeRate != nil {
		return apperr.Validation("customers cannot set tax or service charge rates")
	}
	for i, line := range in.Items {
		if line.Price != nil {
			return apperr.Validationf("items[%d]: customers cannot set prices", i)
		}
		for _, a := range line.AddOns {
			if a.Price != nil {
				return apperr.Validationf("items[%d]: customers cannot set add-on prices", i)
			}
		}
	}
	return nil
}

func (s *Service) pricingInput(ctx context.Context, in CreateInput) (pricing.Input, error) {
	tax, service, err := s.rates(ctx)
	if err != nil {
		return pricing.Input{}, apperr.Wrap(err, "load tax settings")
	}
	// Default service charge applies to dine-in only; an explicit rate applies to any type.
	if in.OrderType != models.OrderDineIn {
		service = decimal.Zero
	}
	if in.TaxRate != nil {
		tax = *in.TaxRate
	}
	if in.ServiceChargeRate != nil {
		service = *in.ServiceChargeRate
	}
	return pricing.Input{
		OrderType:         in.OrderType,
		TableID:           in.TableID,
		Lines:             in.Items,
		Discount:          in.Discount,
		TaxRate:           tax,
		ServiceChargeRate: service,
		DeliveryCharge:    in.DeliveryCharge,
	}, nil
}

func buildOrder(actor Actor, in CreateInput, p *pricing.Priced, table *models.Table, now time.Time) *models.Order {
	o := &models.Order{
		OrderType:       in.OrderType,
		TableID:         in.TableID,
		WaiterID:        resolveWaiter(in.WaiterID, table, actor),
		DeliveryAddress: in.DeliveryAddress,
		Subtotal:        p.Subtotal,
		Tax:             p.Tax,
		Discount:        p.Discount,
		ServiceCharge:   p.ServiceCharge,
		DeliveryCharge:  p.DeliveryCharge,
		TotalAmount:     p.Total,
		Status:          models.OrderPending,
		PaymentStatus:   models.PaymentPending,
		PreparationTime: models.PrepTiming{Estimated: p.EstimatedMinutes},
		Notes:           strings.TrimSpace(in.Notes),
		CreatedByID:     actor.UserID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if in.OrderType != models.OrderDineIn {
		o.TableID = nil
	}
	if actor.Role == models.RoleCustomer {
		uid := actor.UserID
		o.CustomerUserID = &uid
	}
	if in.Customer != nil {
		o.CustomerName = strings.TrimSpace(in.Customer.Name)
		o.CustomerPhone = strings.TrimSpace(in.Customer.Phone)
		o.CustomerEmail = strings.TrimSpace(in.Customer.Email)
	}

	o.Items = make([]models.OrderItem, 0, len(p.Lines))
	for i, line := range p.Lines {
		o.Items = append(o.Items, models.OrderItem{
			Position:            i,
			MenuItemID:          line.MenuItem.ID,
			Name:                line.MenuItem.Name,
			Quantity:            line.Quantity,
			Variant:             line.Variant,
			Price:               line.UnitPrice,
			LineTotal:           line.LineTotal,
			AddOns:              line.AddOns,
			SpecialInstructions: line.SpecialInstructions,
			Status:              models.ItemPending,
		})
	}
	return o
}

// resolveWaiter picks the explicit waiter, else the table's assigned waiter, else the
// acting user when that user is a waiter.
func resolveWaiter(explicit *uint, table *models.Table, actor Actor) *uint {
	if explicit != nil {
		return explicit
	}
	if table != nil && table.AssignedWaiterID != nil {
		id := *table.AssignedWaiterID
		return &id
	}
	if actor.Role == models.RoleWaiter {
		id := actor.UserID
		return &id
	}
	return nil
}

// consumeStock books the recipe ingredients of every line against inventory. Items are
// processed in id order so concurrent orders lock rows consistently.
func consumeStock(ctx context.Context, tx Tx, o *models.Order, p *pricing.Priced, actor Actor) ([]*models.InventoryItem, error) {
	need := map[uint]float64{}
	for _, line := range p.Lines {
		for _, ing := range line.MenuItem.Ingredients {
			need[ing.InventoryItemID] += ing.Quantity * float64(line.Quantity)
		}
	}
	ids := make([]uint, 0, len(need))
	for id := range need {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	by := actor.UserID
	var low []*models.InventoryItem
	for _, id := range ids {
		if need[id] <= 0 {
			continue
		}
		item, err := tx.ApplyStock(ctx, stock.Change{
			ItemID:      id,
			Type:        models.MovementConsumption,
			Quantity:    -need[id],
			Reference:   o.OrderNumber,
			Note:        "order consumption",
			PerformedBy: &by,
		})
		if err != nil {
			return nil, err
		}
		if item.IsLow() {
			low = append(low, item)
		}
	}
	return low, nil
}

// returnStock reverses the consumption booked for o.
func returnStock(ctx context.Context, tx Tx, o *models.Order, actor Actor) ([]*models.InventoryItem, error) {
	movements, err := tx.StockMovements(ctx, o.OrderNumber)
	if err != nil {
		return nil, err
	}
	by := actor.UserID
	var touched []*models.InventoryItem
	for _, m := range movements {
		if m.Type != models.MovementConsumption {
			continue
		}
		item, err := tx.ApplyStock(ctx, stock.Change{
			ItemID:      m.InventoryItemID,
			Type:        models.MovementReturn,
			Quantity:    -m.Quantity,
			UnitCost:    &m.UnitCost,
			Reference:   o.OrderNumber,
			Note:        "order cancelled",
			PerformedBy: &by,
		})
		if err != nil {
			return nil, err
		}
		touched = append(touched, item)
	}
	return touched, nil
}

func menuItemIDs(lines []pricing.Line) []uint {
	seen := make(map[uint]bool, len(lines))
	ids := make([]uint, 0, len(lines))
	for _, l := range lines {
		if !seen[l.MenuItemID] {
			seen[l.MenuItemID] = true
			ids = append(ids, l.MenuItemID)
		}
	}
	return ids
}

func pricingError(err error) error {
	var le *pricing.LineError
	switch {
	case errors.Is(err, pricing.ErrMissingTable):
		return apperr.Validation("table is required for dine-in orders")
	case errors.As(err, &le) && errors.Is(err, pricing.ErrInvalidReference):
		e := apperr.Validationf("menu item %d not found", le.MenuItemID)
		e.Fields = map[string]string{fmt.Sprintf("items[%d].menuItem", le.Index): "menu item not found"}
		return e
	case errors.As(err, &le) && errors.Is(err, pricing.ErrItemUnavailable):
		e := apperr.Validationf("menu item %d is not available", le.MenuItemID)
		e.Fields = map[string]string{fmt.Sprintf("items[%d].menuItem", le.Index): "menu item is not available"}
		return e
	case errors.Is(err, pricing.ErrInvalidInput):
		return apperr.Validation(err.Error())
	}
	return apperr.Wrap(err, "price order")
}

// releaseTable frees the order's table when it still points at o.
func releaseTable(ctx context.Context, tx Tx, o *models.Order, next models.TableStatus) (*models.Table, error) {
	if o.TableID == nil {
		return nil, nil
	}
	t, err := tx.LockTable(ctx, *o.TableID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if t.CurrentOrderID == nil || *t.CurrentOrderID != o.ID {
		return nil, nil
	}
	t.Release(next)
	if err := tx.SaveTable(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) lockOrder(ctx context.Context, tx Tx, id uint) (*models.Order, error) {
	o, err := tx.LockOrder(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound(fmt.Sprintf("order %d not found", id))
	}
	return o, err
}

func statusEvent(o *models.Order, prev models.OrderStatus, actor Actor) events.Event {
	return events.New(events.OrderStatusUpdate, events.OrderStatusPayload{
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber,
		Status:         o.Status,
		PreviousStatus: prev,
		Table:          o.TableID,
		Waiter:         o.WaiterID,
		UpdatedBy:      actor.UserID,
		Timestamp:      o.UpdatedAt,
	})
}

func readyPayload(o *models.Order) events.ReadyPayload {
	p := events.ReadyPayload{
		OrderID:          o.ID,
		OrderNumber:      o.OrderNumber,
		Table:            o.TableID,
		Waiter:           o.WaiterID,
		StartedAt:        o.PreparationTime.StartedAt,
		CompletedAt:      o.PreparationTime.CompletedAt,
		ActualMinutes:    o.PreparationTime.Actual,
		EstimatedMinutes: o.PreparationTime.Estimated,
	}
	if o.KOT.Number != nil {
		p.KOTNumber = *o.KOT.Number
	}
	return p
}

// UpdateStatus applies an explicit status change checked against the transition table.
func (s *Service) UpdateStatus(ctx context.Context, actor Actor, id uint, to models.OrderStatus, reason string) (*models.Order, error) {
	if to == models.OrderCancelled {
		if strings.TrimSpace(reason) == "" {
			reason = "status changed to cancelled"
		}
		return s.Cancel(ctx, actor, id, reason)
	}

	var (
		order *models.Order
		prev  models.OrderStatus
		table *models.Table
	)
	err := s.store.InTx(ctx, func(tx Tx) error {
		o, err := s.lockOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		now := s.now()
		prev = o.Status
		if err := transitionTo(o, to, now); err != nil {
			return err
		}
		o.UpdatedAt = now
		if err := tx.SaveOrder(ctx, o); err != nil {
			return err
		}
		if to == models.OrderCompleted {
			if table, err = releaseTable(ctx, tx, o, models.TableCleaning); err != nil {
				return err
			}
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(err, "update order status")
	}

	metrics.RecordTransition(string(prev), string(to))
	evs := []events.Event{statusEvent(order, prev, actor)}
	if to == models.OrderReady {
		evs = append(evs, events.New(events.OrderReady, readyPayload(order)))
	}
	if table != nil {
		evs = append(evs, events.New(events.TableStatusUpdate, events.TableChanged(table, actor.UserID)))
	}
	events.Emit(ctx, s.events, evs...)

	s.audit(audit.LogOptions{
		UserID:      actor.UserID,
		UserName:    actor.Name,
		EntityType:  "order",
		EntityID:    order.ID,
		Action:      models.AuditActionStatus,
		Description: fmt.Sprintf("Order %s: %s -> %s", order.OrderNumber, prev, to),
	})
	return order, nil
}

// UpdateItemStatus moves one item forward and rolls the result up into the order.
func (s *Service) UpdateItemStatus(ctx context.Context, actor Actor, id uint, index int, to models.ItemStatus, mode RollUp) (*models.Order, error) {
	var (
		order   *models.Order
		prev    models.OrderStatus
		changed bool
	)
	err := s.store.InTx(ctx, func(tx Tx) error {
		o, err := s.lockOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		now := s.now()
		prev = o.Status
		if changed, err = advanceItem(o, index, to, mode, now); err != nil {
			return err
		}
		o.UpdatedAt = now
		if err := tx.SaveOrder(ctx, o); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(err, "update item status")
	}

	item := events.KOTItemPayload{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		ItemIndex:   index,
		ItemStatus:  to,
		OrderStatus: order.Status,
		UpdatedBy:   actor.UserID,
		Timestamp:   order.UpdatedAt,
	}
	if order.KOT.Number != nil {
		item.KOTNumber = *order.KOT.Number
	}
	evs := []events.Event{events.New(events.KOTItemStatusUpdate, item)}
	if changed {
		metrics.RecordTransition(string(prev), string(order.Status))
		evs = append(evs, statusEvent(order, prev, actor))
		if order.Status == models.OrderReady {
			evs = append(evs, events.New(events.OrderReady, readyPayload(order)))
		}
	}
	events.Emit(ctx, s.events, evs...)
	return order, nil
}

type PaymentInput struct {
	Amount        decimal.Decimal
	Method        string
	TransactionID string
}

// AddPayment appends to the payment ledger and settles the order when fully paid.
func (s *Service) AddPayment(ctx context.Context, actor Actor, id uint, in PaymentInput) (*models.Order, error) {
	amount := in.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, apperr.Validation("payment amount must be greater than zero")
	}

	var (
		order     *models.Order
		prev      models.OrderStatus
		completed bool
		table     *models.Table
	)
	err := s.store.InTx(ctx, func(tx Tx) error {
		o, err := s.lockOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		if o.Status == models.OrderCancelled {
			return apperr.Validation("cannot add a payment to a cancelled order")
		}
		if o.PaymentStatus == models.PaymentPaid {
			return apperr.Validation("order is already fully paid")
		}

		now := s.now()
		by := actor.UserID
		p := models.Payment{
			OrderID:       o.ID,
			Amount:        amount,
			Method:        in.Method,
			TransactionID: strings.TrimSpace(in.TransactionID),
			PaidAt:        now,
			Status:        "completed",
			ReceivedByID:  &by,
		}
		if err := tx.AddPayment(ctx, &p); err != nil {
			return err
		}

		prev = o.Status
		completed = applyPayment(o, p, now)
		o.UpdatedAt = now
		if err := tx.SaveOrder(ctx, o); err != nil {
			return err
		}
		if completed {
			if table, err = releaseTable(ctx, tx, o, models.TableCleaning); err != nil {
				return err
			}
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(err, "add payment")
	}

	evs := []events.Event{events.New(events.PaymentReceived, events.PaymentPayload{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Amount:        amount,
		Method:        in.Method,
		TotalPaid:     order.PaidTotal(),
		TotalAmount:   order.TotalAmount,
		PaymentStatus: order.PaymentStatus,
		OrderStatus:   order.Status,
		ReceivedBy:    actor.UserID,
	})}
	if completed {
		metrics.RecordTransition(string(prev), string(order.Status))
		evs = append(evs, statusEvent(order, prev, actor))
	}
	if table != nil {
		evs = append(evs, events.New(events.TableStatusUpdate, events.TableChanged(table, actor.UserID)))
	}
	events.Emit(ctx, s.events, evs...)

	s.audit(audit.LogOptions{
		UserID:      actor.UserID,
		UserName:    actor.Name,
		EntityType:  "order",
		EntityID:    order.ID,
		Action:      models.AuditActionUpdate,
		Description: fmt.Sprintf("Payment %s (%s) on order %s", amount.StringFixed(2), in.Method, order.OrderNumber),
	})
	return order, nil
}

// Cancel moves a non-terminal order to cancelled, frees its table and, when the kitchen has
// not started, returns the consumed stock.
func (s *Service) Cancel(ctx context.Context, actor Actor, id uint, reason string) (*models.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("cancellation reason is required")
	}

	var (
		order    *models.Order
		prev     models.OrderStatus
		table    *models.Table
		restored []*models.InventoryItem
	)
	err := s.store.InTx(ctx, func(tx Tx) error {
		o, err := s.lockOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		now := s.now()
		prev = o.Status
		if err := cancelOrder(o, reason, now); err != nil {
			return err
		}
		o.UpdatedAt = now
		if err := tx.SaveOrder(ctx, o); err != nil {
			return err
		}
		if table, err = releaseTable(ctx, tx, o, models.TableAvailable); err != nil {
			return err
		}
		if !preparationStarted(prev) {
			if restored, err = returnStock(ctx, tx, o, actor); err != nil {
				return err
			}
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(err, "cancel order")
	}

	metrics.RecordTransition(string(prev), string(models.OrderCancelled))
	evs := []events.Event{statusEvent(order, prev, actor)}
	if table != nil {
		evs = append(evs, events.New(events.TableStatusUpdate, events.TableChanged(table, actor.UserID)))
	}
	events.Emit(ctx, s.events, evs...)

	s.audit(audit.LogOptions{
		UserID:      actor.UserID,
		UserName:    actor.Name,
		EntityType:  "order",
		EntityID:    order.ID,
		Action:      models.AuditActionStatus,
		Description: fmt.Sprintf("Order %s cancelled: %s (%d stock lines returned)", order.OrderNumber, reason, len(restored)),
	})
	return order, nil
}

// canView applies the ownership rule: waiters see orders they serve or created, customers
// see their own, other staff see everything.
func canView(actor Actor, o *models.Order) bool {
	switch actor.Role {
	case models.RoleWaiter:
		return (o.WaiterID != nil && *o.WaiterID == actor.UserID) || o.CreatedByID == actor.UserID
	case models.RoleCustomer:
		r, ok := o.Requester().(models.RegisteredRequester)
		return ok && r.UserID == actor.UserID
	}
	return actor.Role.IsStaff()
}

func (s *Service) Get(ctx context.Context, actor Actor, id uint) (*models.Order, error) {
	o, err := s.store.Order(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound(fmt.Sprintf("order %d not found", id))
	}
	if err != nil {
		return nil, apperr.Wrap(err, "load order")
	}
	if !canView(actor, o) {
		return nil, apperr.Forbidden("you do not have access to this order")
	}
	return o, nil
}

// List returns one page of orders visible to actor.
func (s *Service) List(ctx context.Context, actor Actor, f ListFilter) ([]models.Order, int64, error) {
	switch actor.Role {
	case models.RoleWaiter:
		uid := actor.UserID
		f.StaffID = &uid
	case models.RoleCustomer:
		uid := actor.UserID
		f.CustomerUserID = &uid
	}
	out, total, err := s.store.ListOrders(ctx, f)
	if err != nil {
		return nil, 0, apperr.Wrap(err, "list orders")
	}
	return out, total, nil
}
