package tables

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/audit"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/database"
	"restoran-pos/internal/events"
	"restoran-pos/internal/models"
	"restoran-pos/internal/validation"
)

type CreateTableRequest struct {
	Number   string `json:"number" validate:"required,max=20"`
	Capacity int    `json:"capacity" validate:"omitempty,min=1,max=50"`
	Location string `json:"location" validate:"omitempty,max=50"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,tablestatus"`
}

type assignRequest struct {
	// WaiterID nil clears the assignment.
	WaiterID *uint `json:"waiterId"`
}

func tableID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid table id")
	}
	return uint(id), nil
}

func loadTable(tx *gorm.DB, id uint, lock bool) (*models.Table, error) {
	if lock {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var t models.Table
	err := tx.First(&t, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("table not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err, "load table")
	}
	return &t, nil
}

// GET /tables?status=available&location=terrace
func ListTablesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.WithContext(c.UserContext()).Order("number ASC")
		if status := c.Query("status"); status != "" {
			if !models.TableStatus(status).Valid() {
				return apperr.Validationf("invalid table status %q", status)
			}
			q = q.Where("status = ?", status)
		}
		if loc := c.Query("location"); loc != "" {
			q = q.Where("location = ?", loc)
		}

		var tables []models.Table
		if err := q.Find(&tables).Error; err != nil {
			return apperr.Wrap(err, "list tables")
		}
		return c.JSON(tables)
	}
}

// GET /tables/:id
func GetTableHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := tableID(c)
		if err != nil {
			return err
		}
		t, err := loadTable(database.DB.WithContext(c.UserContext()), id, false)
		if err != nil {
			return err
		}
		return c.JSON(t)
	}
}

// POST /tables
func CreateTableHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateTableRequest
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}
		if body.Capacity == 0 {
			body.Capacity = 4
		}

		t := models.Table{
			Number:   strings.TrimSpace(body.Number),
			Capacity: body.Capacity,
			Location: strings.TrimSpace(body.Location),
			Status:   models.TableAvailable,
		}
		err := database.DB.WithContext(c.UserContext()).Create(&t).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Conflict(fmt.Sprintf("table %s already exists", t.Number))
		}
		if err != nil {
			return apperr.Wrap(err, "create table")
		}

		uid, uname := auth.ActorOf(c)
		audit.Record(audit.LogOptions{
			UserID:      uid,
			UserName:    uname,
			EntityType:  "table",
			EntityID:    t.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Table %s created", t.Number),
			After:       t,
		})
		return c.Status(fiber.StatusCreated).JSON(t)
	}
}

// PATCH /tables/:id/status
func UpdateStatusHandler(pub events.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := tableID(c)
		if err != nil {
			return err
		}
		var body statusRequest
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}

		var t *models.Table
		var before models.Table
		var changed bool
		err = database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var err error
			if t, err = loadTable(tx, id, true); err != nil {
				return err
			}
			before = *t
			if changed, err = ChangeStatus(t, models.TableStatus(body.Status)); err != nil || !changed {
				return err
			}
			return tx.Select("status", "current_order_id", "occupied_at").Save(t).Error
		})
		if err != nil {
			return apperr.Wrap(err, "update table status")
		}

		if changed {
			uid, uname := auth.ActorOf(c)
			events.Emit(c.UserContext(), pub, events.New(events.TableStatusUpdate, events.TableChanged(t, uid)))
			audit.Record(audit.LogOptions{
				UserID:      uid,
				UserName:    uname,
				EntityType:  "table",
				EntityID:    t.ID,
				Action:      models.AuditActionStatus,
				Description: fmt.Sprintf("Table %s: %s -> %s", t.Number, before.Status, t.Status),
				Before:      before,
				After:       t,
			})
		}
		return c.JSON(t)
	}
}

// PATCH /tables/:id/assign
func AssignWaiterHandler(pub events.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := tableID(c)
		if err != nil {
			return err
		}
		var body assignRequest
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}

		var t *models.Table
		err = database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if body.WaiterID != nil {
				var waiter models.User
				err := tx.First(&waiter, *body.WaiterID).Error
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("waiter not found")
				}
				if err != nil {
					return err
				}
				if waiter.Role != models.RoleWaiter || !waiter.IsActive {
					return apperr.Validation("tables can only be assigned to active waiters")
				}
			}

			var err error
			if t, err = loadTable(tx, id, true); err != nil {
				return err
			}
			t.AssignedWaiterID = body.WaiterID
			return tx.Model(t).Update("assigned_waiter_id", body.WaiterID).Error
		})
		if err != nil {
			return apperr.Wrap(err, "assign waiter")
		}

		uid, uname := auth.ActorOf(c)
		events.Emit(c.UserContext(), pub, events.New(events.TableAssignment, events.TableChanged(t, uid)))
		audit.Record(audit.LogOptions{
			UserID:      uid,
			UserName:    uname,
			EntityType:  "table",
			EntityID:    t.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Table %s waiter assignment changed", t.Number),
			After:       t,
		})
		return c.JSON(t)
	}
}
