// Package orderstest provides an in-memory orders.Store for service and handler tests.
package orderstest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/models"
	"restoran-pos/internal/orders"
	"restoran-pos/internal/pricing"
	"restoran-pos/internal/stock"
)

// Store keeps committed state in maps. Transactions are serialized and roll back by
// restoring a snapshot.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	st   state

	// AfterLookup, when set, runs after every idempotency key lookup. Tests use it to line up
	// concurrent creators behind the same miss.
	AfterLookup func()
}

type state struct {
	orders    map[uint]*models.Order
	tables    map[uint]*models.Table
	menu      map[uint]models.MenuItem
	inventory map[uint]*models.InventoryItem
	movements []models.StockMovement
	seq       map[string]int
	ids       map[string]uint
}

func New() *Store {
	return &Store{st: state{
		orders:    map[uint]*models.Order{},
		tables:    map[uint]*models.Table{},
		menu:      map[uint]models.MenuItem{},
		inventory: map[uint]*models.InventoryItem{},
		seq:       map[string]int{},
		ids:       map[string]uint{},
	}}
}

func (st *state) nextID(kind string) uint {
	st.ids[kind]++
	return st.ids[kind]
}

func (st state) clone() state {
	out := state{
		orders:    make(map[uint]*models.Order, len(st.orders)),
		tables:    make(map[uint]*models.Table, len(st.tables)),
		menu:      make(map[uint]models.MenuItem, len(st.menu)),
		inventory: make(map[uint]*models.InventoryItem, len(st.inventory)),
		movements: append([]models.StockMovement(nil), st.movements...),
		seq:       make(map[string]int, len(st.seq)),
		ids:       make(map[string]uint, len(st.ids)),
	}
	for k, v := range st.orders {
		out.orders[k] = cloneOrder(v)
	}
	for k, v := range st.tables {
		t := *v
		out.tables[k] = &t
	}
	for k, v := range st.menu {
		out.menu[k] = v
	}
	for k, v := range st.inventory {
		i := *v
		out.inventory[k] = &i
	}
	for k, v := range st.seq {
		out.seq[k] = v
	}
	for k, v := range st.ids {
		out.ids[k] = v
	}
	return out
}

func cloneOrder(o *models.Order) *models.Order {
	c := *o
	c.Items = make([]models.OrderItem, len(o.Items))
	for i, it := range o.Items {
		it.AddOns = append([]models.OrderAddOn(nil), it.AddOns...)
		c.Items[i] = it
	}
	c.Payments = append([]models.Payment(nil), o.Payments...)
	c.KOTReprints = append([]models.KOTReprint(nil), o.KOTReprints...)
	return &c
}

// Seed helpers.

func (s *Store) AddMenuItem(m models.MenuItem) models.MenuItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == 0 {
		m.ID = s.st.nextID("menu")
	}
	s.st.menu[m.ID] = m
	return m
}

func (s *Store) AddTable(t models.Table) models.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == 0 {
		t.ID = s.st.nextID("table")
	}
	if t.Status == "" {
		t.Status = models.TableAvailable
	}
	s.st.tables[t.ID] = &t
	return t
}

func (s *Store) AddInventory(i models.InventoryItem) models.InventoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i.ID == 0 {
		i.ID = s.st.nextID("inventory")
	}
	s.st.inventory[i.ID] = &i
	return i
}

func (s *Store) Inventory(id uint) models.InventoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.st.inventory[id]; ok {
		return *i
	}
	return models.InventoryItem{}
}

func (s *Store) TableState(id uint) models.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.st.tables[id]; ok {
		return *t
	}
	return models.Table{}
}

func (s *Store) Movements() []models.StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.StockMovement(nil), s.st.movements...)
}

func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.orders)
}

// Reader.

func (s *Store) Order(_ context.Context, id uint) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.st.orders[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (s *Store) OrderByIdempotencyKey(_ context.Context, key string) (*models.Order, error) {
	s.mu.Lock()
	var found *models.Order
	for _, o := range s.st.orders {
		if o.IdempotencyKey != nil && *o.IdempotencyKey == key {
			found = cloneOrder(o)
			break
		}
	}
	s.mu.Unlock()

	if s.AfterLookup != nil {
		s.AfterLookup()
	}
	if found == nil {
		return nil, orders.ErrNotFound
	}
	return found, nil
}

func (s *Store) ListOrders(_ context.Context, f orders.ListFilter) ([]models.Order, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Order
	for _, o := range s.st.orders {
		if matches(o, f) {
			out = append(out, *cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if f.OldestFirst {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if f.OldestFirst {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})

	total := int64(len(out))
	if f.Limit > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * f.Limit
		if start > len(out) {
			start = len(out)
		}
		end := start + f.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	return out, total, nil
}

func matches(o *models.Order, f orders.ListFilter) bool {
	if len(f.Statuses) > 0 {
		ok := false
		for _, st := range f.Statuses {
			if o.Status == st {
				ok = true
			}
		}
		if !ok {
			return false
		}
	}
	eq := func(p *uint, v uint) bool { return p != nil && *p == v }
	switch {
	case f.OrderType != "" && o.OrderType != f.OrderType:
		return false
	case f.TableID != nil && !eq(o.TableID, *f.TableID):
		return false
	case f.WaiterID != nil && !eq(o.WaiterID, *f.WaiterID):
		return false
	case f.StaffID != nil && !eq(o.WaiterID, *f.StaffID) && o.CreatedByID != *f.StaffID:
		return false
	case f.CustomerUserID != nil && !eq(o.CustomerUserID, *f.CustomerUserID):
		return false
	case f.From != nil && o.CreatedAt.Before(*f.From):
		return false
	case f.To != nil && !o.CreatedAt.Before(*f.To):
		return false
	}
	return true
}

func (s *Store) Catalog(_ context.Context, ids []uint) (pricing.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(pricing.Catalog, len(ids))
	for _, id := range ids {
		if m, ok := s.st.menu[id]; ok {
			out[id] = m
		}
	}
	return out, nil
}

func (s *Store) Table(_ context.Context, id uint) (*models.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.st.tables[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (s *Store) InTx(_ context.Context, fn func(tx orders.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	if err := fn(tx{s}); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// tx runs against the live maps; InTx restores the snapshot on failure.
type tx struct{ *Store }

func (t tx) LockOrder(ctx context.Context, id uint) (*models.Order, error) {
	return t.Order(ctx, id)
}

func (t tx) LockTable(ctx context.Context, id uint) (*models.Table, error) {
	return t.Table(ctx, id)
}

func (t tx) NextSequence(_ context.Context, scope string, day time.Time) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := scope + ":" + day.Format("20060102")
	t.st.seq[key]++
	return t.st.seq[key], nil
}

func (t tx) CreateOrder(_ context.Context, o *models.Order) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, existing := range t.st.orders {
		if o.IdempotencyKey != nil && existing.IdempotencyKey != nil && *existing.IdempotencyKey == *o.IdempotencyKey {
			return fmt.Errorf("%w: %s", orders.ErrDuplicate, *o.IdempotencyKey)
		}
		if existing.OrderNumber == o.OrderNumber {
			return fmt.Errorf("order number %s already exists", o.OrderNumber)
		}
	}
	o.ID = t.st.nextID("order")
	for i := range o.Items {
		o.Items[i].ID = t.st.nextID("item")
		o.Items[i].OrderID = o.ID
	}
	t.st.orders[o.ID] = cloneOrder(o)
	return nil
}

// SaveOrder keeps the stored payments and reprints, which are written only by their own
// append methods.
func (t tx) SaveOrder(_ context.Context, o *models.Order) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	stored, ok := t.st.orders[o.ID]
	if !ok {
		return orders.ErrNotFound
	}
	c := cloneOrder(o)
	c.Payments = stored.Payments
	c.KOTReprints = stored.KOTReprints
	t.st.orders[o.ID] = c
	return nil
}

func (t tx) AddPayment(_ context.Context, p *models.Payment) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.st.orders[p.OrderID]
	if !ok {
		return orders.ErrNotFound
	}
	p.ID = t.st.nextID("payment")
	o.Payments = append(o.Payments, *p)
	return nil
}

func (t tx) AddReprint(_ context.Context, r *models.KOTReprint) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.st.orders[r.OrderID]
	if !ok {
		return orders.ErrNotFound
	}
	r.ID = t.st.nextID("reprint")
	o.KOTReprints = append(o.KOTReprints, *r)
	return nil
}

func (t tx) SaveTable(_ context.Context, tbl *models.Table) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.st.tables[tbl.ID]; !ok {
		return orders.ErrNotFound
	}
	c := *tbl
	t.st.tables[tbl.ID] = &c
	return nil
}

func (t tx) ApplyStock(_ context.Context, ch stock.Change) (*models.InventoryItem, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	stored, ok := t.st.inventory[ch.ItemID]
	if !ok {
		return nil, apperr.NotFound(fmt.Sprintf("inventory item %d not found", ch.ItemID))
	}
	item := *stored
	m, err := stock.Apply(&item, ch)
	if err != nil {
		return nil, err
	}
	m.ID = t.st.nextID("movement")
	m.CreatedAt = time.Now()
	t.st.movements = append(t.st.movements, *m)
	t.st.inventory[item.ID] = &item
	out := item
	return &out, nil
}

func (t tx) StockMovements(_ context.Context, reference string) ([]models.StockMovement, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []models.StockMovement
	for _, m := range t.st.movements {
		if m.Reference == reference {
			out = append(out, m)
		}
	}
	return out, nil
}
