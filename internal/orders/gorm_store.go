package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"restoran-pos/internal/database"
	"restoran-pos/internal/models"
	"restoran-pos/internal/pricing"
	"restoran-pos/internal/stock"
)

// GormStore implements Store and Tx on Postgres.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func withChildren(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("KOTReprints", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *GormStore) Order(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	if err := withChildren(s.db.WithContext(ctx)).First(&o, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (s *GormStore) OrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var o models.Order
	if err := withChildren(s.db.WithContext(ctx)).Where("idempotency_key = ?", key).First(&o).Error; err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (s *GormStore) ListOrders(ctx context.Context, f ListFilter) ([]models.Order, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Order{})

	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.OrderType != "" {
		q = q.Where("order_type = ?", f.OrderType)
	}
	if f.TableID != nil {
		q = q.Where("table_id = ?", *f.TableID)
	}
	if f.WaiterID != nil {
		q = q.Where("waiter_id = ?", *f.WaiterID)
	}
	if f.StaffID != nil {
		q = q.Where("waiter_id = ? OR created_by_id = ?", *f.StaffID, *f.StaffID)
	}
	if f.CustomerUserID != nil {
		q = q.Where("customer_user_id = ?", *f.CustomerUserID)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	if f.OldestFirst {
		q = q.Order("created_at ASC").Order("id ASC")
	} else {
		q = q.Order("created_at DESC").Order("id DESC")
	}
	if f.Limit > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		q = q.Offset((page - 1) * f.Limit).Limit(f.Limit)
	}

	var out []models.Order
	if err := withChildren(q).Find(&out).Error; err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return out, total, nil
}

func (s *GormStore) Catalog(ctx context.Context, ids []uint) (pricing.Catalog, error) {
	catalog := make(pricing.Catalog, len(ids))
	if len(ids) == 0 {
		return catalog, nil
	}
	var items []models.MenuItem
	err := s.db.WithContext(ctx).
		Preload("Variants").
		Preload("AddOns").
		Preload("Ingredients").
		Where("id IN ?", ids).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("load menu items: %w", err)
	}
	for _, it := range items {
		catalog[it.ID] = it
	}
	return catalog, nil
}

func (s *GormStore) Table(ctx context.Context, id uint) (*models.Table, error) {
	var t models.Table
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (s *GormStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) LockOrder(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	err := withChildren(s.db.WithContext(ctx)).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&o, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (s *GormStore) LockTable(ctx context.Context, id uint) (*models.Table, error) {
	var t models.Table
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&t, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (s *GormStore) NextSequence(ctx context.Context, scope string, day time.Time) (int, error) {
	return database.NextSequence(ctx, s.db, scope, day)
}

func (s *GormStore) CreateOrder(ctx context.Context, o *models.Order) error {
	err := s.db.WithContext(ctx).Create(o).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func (s *GormStore) SaveOrder(ctx context.Context, o *models.Order) error {
	db := s.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Save(o).Error; err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	for i := range o.Items {
		it := &o.Items[i]
		err := db.Model(it).
			Select("status", "prepared_at", "served_at").
			Updates(map[string]interface{}{
				"status":      it.Status,
				"prepared_at": it.PreparedAt,
				"served_at":   it.ServedAt,
			}).Error
		if err != nil {
			return fmt.Errorf("save order item %d: %w", it.ID, err)
		}
	}
	return nil
}

func (s *GormStore) AddPayment(ctx context.Context, p *models.Payment) error {
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *GormStore) AddReprint(ctx context.Context, r *models.KOTReprint) error {
	return s.db.WithContext(ctx).Create(r).Error
}

func (s *GormStore) SaveTable(ctx context.Context, t *models.Table) error {
	return s.db.WithContext(ctx).Save(t).Error
}

func (s *GormStore) ApplyStock(ctx context.Context, ch stock.Change) (*models.InventoryItem, error) {
	item, _, err := stock.ApplyTx(ctx, s.db, ch)
	return item, err
}

func (s *GormStore) StockMovements(ctx context.Context, reference string) ([]models.StockMovement, error) {
	var out []models.StockMovement
	err := s.db.WithContext(ctx).
		Where("reference = ?", reference).
		Order("id ASC").
		Find(&out).Error
	return out, err
}
