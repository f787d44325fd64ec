package settings

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"restoran-pos/internal/audit"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/events"
	"restoran-pos/internal/models"
)

// GET /settings
func ListHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		all, err := svc.All(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(all)
	}
}

// GET /settings/:category
func GetHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		v, err := svc.Get(c.UserContext(), c.Params("category"))
		if err != nil {
			return err
		}
		return c.JSON(v)
	}
}

// PUT /settings/:category
func UpdateHandler(svc *Service, pub events.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		category := c.Params("category")
		uid, uname := auth.ActorOf(c)

		before, err := svc.Get(c.UserContext(), category)
		if err != nil {
			return err
		}
		v, err := svc.Update(c.UserContext(), category, c.Body(), uid)
		if err != nil {
			return err
		}

		events.Emit(c.UserContext(), pub, events.New(events.SettingsUpdated, events.SettingsPayload{
			Category:  category,
			Value:     v,
			UpdatedBy: uid,
			Timestamp: time.Now().UTC(),
		}))
		audit.Record(audit.LogOptions{
			UserID:      uid,
			UserName:    uname,
			EntityType:  "settings",
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Settings %s updated", category),
			Before:      before,
			After:       v,
		})
		return c.JSON(v)
	}
}

// POST /settings/reset
func ResetHandler(svc *Service, pub events.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, uname := auth.ActorOf(c)
		all, err := svc.Reset(c.UserContext(), uid)
		if err != nil {
			return err
		}

		events.Emit(c.UserContext(), pub, events.New(events.SettingsReset, events.SettingsPayload{
			Value:     all,
			UpdatedBy: uid,
			Timestamp: time.Now().UTC(),
		}))
		audit.Record(audit.LogOptions{
			UserID:      uid,
			UserName:    uname,
			EntityType:  "settings",
			Action:      models.AuditActionUpdate,
			Description: "Settings reset to defaults",
			After:       all,
		})
		return c.JSON(all)
	}
}

// POST /settings/backup
func BackupHandler(svc *Service, pub events.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, uname := auth.ActorOf(c)
		b, err := svc.Backup(c.UserContext(), uid)
		if err != nil {
			return err
		}

		events.Emit(c.UserContext(), pub, events.New(events.BackupCreated, events.BackupPayload{
			BackupID:   b.ID.String(),
			Categories: b.Categories,
			CreatedBy:  uid,
			CreatedAt:  b.CreatedAt,
		}))
		audit.Record(audit.LogOptions{
			UserID:      uid,
			UserName:    uname,
			EntityType:  "settings",
			Action:      models.AuditActionCreate,
			Description: "Settings backup " + b.ID.String(),
		})
		return c.Status(fiber.StatusCreated).JSON(b)
	}
}

// GET /settings/backups?limit=20
func ListBackupsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 20)
		if limit < 1 || limit > 100 {
			limit = 20
		}
		backups, err := svc.Backups(c.UserContext(), limit)
		if err != nil {
			return err
		}
		return c.JSON(backups)
	}
}
