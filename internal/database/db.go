package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"restoran-pos/internal/config"
	"restoran-pos/internal/logging"
	"restoran-pos/internal/models"
)

var DB *gorm.DB

// Init opens the Postgres connection and migrates the schema.
func Init(cfg *config.Config) error {
	db, err := Open(cfg.DatabaseDSN, cfg.IsProduction())
	if err != nil {
		return err
	}
	if err := Migrate(db); err != nil {
		return err
	}
	DB = db
	logging.Info().Msg("database connected, migration complete")
	return nil
}

func Open(dsn string, production bool) (*gorm.DB, error) {
	level := logger.Warn
	if production {
		level = logger.Error
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		// Unique violations surface as gorm.ErrDuplicatedKey.
		TranslateError: true,
		Logger:         logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.UserPermission{},
		&models.Category{},
		&models.MenuItem{},
		&models.MenuItemVariant{},
		&models.MenuItemAddOn{},
		&models.MenuItemIngredient{},
		&models.Table{},
		&models.InventoryItem{},
		&models.StockMovement{},
		&models.PurchaseOrder{},
		&models.PurchaseOrderItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.KOTReprint{},
		&models.Setting{},
		&models.SettingsBackup{},
		&models.SequenceCounter{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	// Stock can never go below zero, whatever path writes it.
	return db.Exec(`DO $$ BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_inventory_items_stock_non_negative') THEN
			ALTER TABLE inventory_items ADD CONSTRAINT chk_inventory_items_stock_non_negative CHECK (current_stock >= 0);
		END IF;
	END $$;`).Error
}

// Sequence scopes for NextSequence.
const (
	ScopeOrder         = "order"
	ScopeKOT           = "kot"
	ScopePurchaseOrder = "po"
)

// NextSequence atomically increments the (scope, day) counter and returns the new value.
// Run it on the transaction that persists the numbered row so an aborted insert
// gives the number back.
func NextSequence(ctx context.Context, tx *gorm.DB, scope string, day time.Time) (int, error) {
	counter := models.SequenceCounter{Scope: scope, Day: day.Format("20060102"), Value: 1}
	err := tx.WithContext(ctx).
		Clauses(
			clause.OnConflict{
				Columns:   []clause.Column{{Name: "scope"}, {Name: "day"}},
				DoUpdates: clause.Assignments(map[string]interface{}{"value": gorm.Expr("sequence_counters.value + 1")}),
			},
			clause.Returning{Columns: []clause.Column{{Name: "value"}}},
		).
		Create(&counter).Error
	if err != nil {
		return 0, fmt.Errorf("next %s sequence: %w", scope, err)
	}
	return counter.Value, nil
}

// FormatNumber renders PREFIX-YYYYMMDD-NNNN.
func FormatNumber(prefix string, day time.Time, seq int) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, day.Format("20060102"), seq)
}
