// Package audit keeps the append-only change log for orders, tables, menu, inventory,
// settings and users.
package audit

import (
	"fmt"

	"github.com/goccy/go-json"

	"restoran-pos/internal/database"
	"restoran-pos/internal/logging"
	"restoran-pos/internal/models"
)

type LogOptions struct {
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// Entry builds the row for opts. jsonb columns get a JSON null instead of an empty string.
func Entry(opts LogOptions) models.AuditLog {
	return models.AuditLog{
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: truncate(opts.Description, 255),
		BeforeData:  encode(opts.Before),
		AfterData:   encode(opts.After),
	}
}

func encode(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func WriteLog(opts LogOptions) error {
	log := Entry(opts)
	if err := database.DB.Create(&log).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// Record writes opts and logs a failure instead of returning it. The audited change has
// already committed by the time it is called.
func Record(opts LogOptions) {
	if err := WriteLog(opts); err != nil {
		logging.Warn().Err(err).
			Str("entity_type", opts.EntityType).
			Uint("entity_id", opts.EntityID).
			Msg("audit log dropped")
	}
}
