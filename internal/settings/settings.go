// Package settings stores restaurant configuration as one JSON document per category.
package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/models"
	"restoran-pos/internal/validation"
)

const (
	CategoryGeneral       = "general"
	CategoryTax           = "tax"
	CategoryKOT           = "kot"
	CategoryNotifications = "notifications"
)

type General struct {
	RestaurantName string `json:"restaurantName" validate:"required,max=150"`
	Currency       string `json:"currency" validate:"required,len=3"`
	Timezone       string `json:"timezone" validate:"required,max=64"`
	Address        string `json:"address" validate:"max=255"`
	Phone          string `json:"phone" validate:"max=30"`
}

type Tax struct {
	TaxRate           float64 `json:"taxRate" validate:"gte=0,lte=100"`
	ServiceChargeRate float64 `json:"serviceChargeRate" validate:"gte=0,lte=100"`
}

type KOT struct {
	AutoPrint   bool   `json:"autoPrint"`
	PrinterName string `json:"printerName" validate:"max=100"`
	Copies      int    `json:"copies" validate:"gte=1,lte=5"`
}

type Notifications struct {
	LowStockAlerts bool `json:"lowStockAlerts"`
	OrderReady     bool `json:"orderReady"`
	NewOrderSound  bool `json:"newOrderSound"`
}

// Defaults seeds every category. Tax rates come from configuration.
type Defaults struct {
	TaxRate           float64
	ServiceChargeRate float64
	RestaurantName    string
}

func (d Defaults) values() map[string]any {
	name := d.RestaurantName
	if name == "" {
		name = "Restaurant"
	}
	return map[string]any{
		CategoryGeneral:       &General{RestaurantName: name, Currency: "USD", Timezone: "UTC"},
		CategoryTax:           &Tax{TaxRate: d.TaxRate, ServiceChargeRate: d.ServiceChargeRate},
		CategoryKOT:           &KOT{Copies: 1},
		CategoryNotifications: &Notifications{LowStockAlerts: true, OrderReady: true, NewOrderSound: true},
	}
}

// Categories lists the known categories in a stable order.
func Categories() []string {
	return []string{CategoryGeneral, CategoryKOT, CategoryNotifications, CategoryTax}
}

func known(category string) bool {
	switch category {
	case CategoryGeneral, CategoryTax, CategoryKOT, CategoryNotifications:
		return true
	}
	return false
}

type Service struct {
	db       *gorm.DB
	defaults Defaults
	now      func() time.Time
}

func NewService(db *gorm.DB, defaults Defaults) *Service {
	return &Service{db: db, defaults: defaults, now: time.Now}
}

func unknownCategory(category string) error {
	return apperr.NotFound(fmt.Sprintf("unknown settings category %q", category))
}

// decode overlays raw on the default document for category.
func (s *Service) decode(category string, raw []byte) (any, error) {
	v, ok := s.defaults.values()[category]
	if !ok {
		return nil, unknownCategory(category)
	}
	if len(raw) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, fmt.Errorf("decode %s settings: %w", category, err)
	}
	return v, nil
}

// All returns every category, stored values layered over defaults.
func (s *Service) All(ctx context.Context) (map[string]any, error) {
	var rows []models.Setting
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, apperr.Wrap(err, "load settings")
	}
	stored := make(map[string][]byte, len(rows))
	for _, r := range rows {
		stored[r.Category] = r.Value
	}

	out := make(map[string]any, len(Categories()))
	for _, cat := range Categories() {
		v, err := s.decode(cat, stored[cat])
		if err != nil {
			return nil, apperr.Wrap(err, "load settings")
		}
		out[cat] = v
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, category string) (any, error) {
	if !known(category) {
		return nil, unknownCategory(category)
	}
	var row models.Setting
	err := s.db.WithContext(ctx).First(&row, "category = ?", category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.decode(category, nil)
	}
	if err != nil {
		return nil, apperr.Wrap(err, "load settings")
	}
	v, err := s.decode(category, row.Value)
	if err != nil {
		return nil, apperr.Wrap(err, "load settings")
	}
	return v, nil
}

// Update merges patch into the current document of category, validates the result and
// stores it. Fields absent from patch keep their value.
func (s *Service) Update(ctx context.Context, category string, patch []byte, by uint) (any, error) {
	if !known(category) {
		return nil, unknownCategory(category)
	}
	var result any
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.Setting
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "category = ?", category).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		current, err := s.merge(category, row.Value, patch)
		if err != nil {
			return err
		}
		result = current
		return s.save(tx, category, current, by)
	})
	if err != nil {
		return nil, apperr.Wrap(err, "update settings")
	}
	return result, nil
}

// merge applies patch on top of the stored document and validates the result.
func (s *Service) merge(category string, stored, patch []byte) (any, error) {
	var probe map[string]any
	if err := json.Unmarshal(patch, &probe); err != nil || probe == nil {
		return nil, apperr.Validation("settings body must be a JSON object")
	}
	current, err := s.decode(category, stored)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(patch, current); err != nil {
		return nil, apperr.Validationf("invalid %s settings: %v", category, err)
	}
	if err := validation.Struct(current); err != nil {
		return nil, err
	}
	return current, nil
}

func (s *Service) save(tx *gorm.DB, category string, v any, by uint) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	row := models.Setting{Category: category, Value: datatypes.JSON(raw), UpdatedAt: s.now()}
	if by != 0 {
		row.UpdatedByID = &by
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "category"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by_id", "updated_at"}),
	}).Create(&row).Error
}

// Reset writes the defaults for every category.
func (s *Service) Reset(ctx context.Context, by uint) (map[string]any, error) {
	defaults := s.defaults.values()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, cat := range Categories() {
			if err := s.save(tx, cat, defaults[cat], by); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(err, "reset settings")
	}
	return defaults, nil
}

// Backup stores a snapshot of every category.
func (s *Service) Backup(ctx context.Context, by uint) (*models.SettingsBackup, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(all)
	if err != nil {
		return nil, apperr.Wrap(err, "encode settings backup")
	}
	b := &models.SettingsBackup{
		ID:          uuid.New(),
		Payload:     datatypes.JSON(raw),
		Categories:  len(all),
		CreatedByID: by,
		CreatedAt:   s.now(),
	}
	if err := s.db.WithContext(ctx).Create(b).Error; err != nil {
		return nil, apperr.Wrap(err, "store settings backup")
	}
	return b, nil
}

func (s *Service) Backups(ctx context.Context, limit int) ([]models.SettingsBackup, error) {
	var out []models.SettingsBackup
	err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&out).Error
	if err != nil {
		return nil, apperr.Wrap(err, "list settings backups")
	}
	return out, nil
}

// Rates feeds order pricing with the configured tax and service charge percentages.
func (s *Service) Rates(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	v, err := s.Get(ctx, CategoryTax)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	t := v.(*Tax)
	return decimal.NewFromFloat(t.TaxRate), decimal.NewFromFloat(t.ServiceChargeRate), nil
}
