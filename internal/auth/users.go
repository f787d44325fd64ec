package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/audit"
	"restoran-pos/internal/database"
	"restoran-pos/internal/models"
	"restoran-pos/internal/validation"
)

type PermissionRequest struct {
	Module  string   `json:"module" validate:"required,max=50"`
	Actions []string `json:"actions" validate:"required,min=1,dive,required"`
}

type CreateUserRequest struct {
	Name        string              `json:"name" validate:"required,max=100"`
	Email       string              `json:"email" validate:"required,email"`
	Password    string              `json:"password" validate:"required,min=6"`
	Phone       string              `json:"phone" validate:"omitempty,max=30"`
	Role        string              `json:"role" validate:"required,role"`
	Permissions []PermissionRequest `json:"permissions" validate:"omitempty,dive"`
}

type UpdateUserRequest struct {
	Name        *string              `json:"name" validate:"omitempty,max=100"`
	Phone       *string              `json:"phone" validate:"omitempty,max=30"`
	Role        *string              `json:"role" validate:"omitempty,role"`
	IsActive    *bool                `json:"isActive"`
	Password    *string              `json:"password" validate:"omitempty,min=6"`
	Permissions *[]PermissionRequest `json:"permissions" validate:"omitempty,dive"`
}

func toPermissions(reqs []PermissionRequest) []models.UserPermission {
	out := make([]models.UserPermission, 0, len(reqs))
	for _, p := range reqs {
		actions := make([]string, 0, len(p.Actions))
		for _, a := range p.Actions {
			if a = strings.TrimSpace(a); a != "" {
				actions = append(actions, a)
			}
		}
		out = append(out, models.UserPermission{
			Module:  strings.TrimSpace(p.Module),
			Actions: strings.Join(actions, ","),
		})
	}
	return out
}

// ActorOf returns the id and name of the authenticated user for audit entries.
func ActorOf(c *fiber.Ctx) (uint, string) {
	if u, ok := CurrentUser(c); ok {
		return u.ID, u.Name
	}
	return 0, ""
}

// GET /users?role=waiter&active=true
func ListUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.WithContext(c.UserContext()).Preload("Permissions").Order("id ASC")
		if role := c.Query("role"); role != "" {
			q = q.Where("role = ?", role)
		}
		if active := c.Query("active"); active != "" {
			q = q.Where("is_active = ?", c.QueryBool("active"))
		}

		var users []models.User
		if err := q.Find(&users).Error; err != nil {
			return apperr.Wrap(err, "list users")
		}
		out := make([]UserResponse, 0, len(users))
		for i := range users {
			out = append(out, ToResponse(&users[i]))
		}
		return c.JSON(out)
	}
}

// POST /users creates staff accounts with any role.
func CreateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateUserRequest
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}

		hash, err := hashPassword(body.Password)
		if err != nil {
			return err
		}
		user := models.User{
			Name:         strings.TrimSpace(body.Name),
			Email:        normalizeEmail(body.Email),
			Phone:        strings.TrimSpace(body.Phone),
			PasswordHash: hash,
			Role:         models.UserRole(body.Role),
			IsActive:     true,
			Permissions:  toPermissions(body.Permissions),
		}

		err = database.DB.WithContext(c.UserContext()).Create(&user).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Conflict("email is already registered")
		}
		if err != nil {
			return apperr.Wrap(err, "create user")
		}

		uid, uname := ActorOf(c)
		audit.Record(audit.LogOptions{
			UserID:      uid,
			UserName:    uname,
			EntityType:  "user",
			EntityID:    user.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("User %s created with role %s", user.Email, user.Role),
			After:       ToResponse(&user),
		})
		return c.Status(fiber.StatusCreated).JSON(ToResponse(&user))
	}
}

// PATCH /users/:id updates profile, role, activation and the permission overrides.
func UpdateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return apperr.Validation("invalid user id")
		}
		var body UpdateUserRequest
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}

		var user models.User
		var before UserResponse
		err = database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Preload("Permissions").First(&user, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("user not found")
				}
				return err
			}
			before = ToResponse(&user)

			if body.Name != nil {
				user.Name = strings.TrimSpace(*body.Name)
			}
			if body.Phone != nil {
				user.Phone = strings.TrimSpace(*body.Phone)
			}
			if body.Role != nil {
				user.Role = models.UserRole(*body.Role)
			}
			if body.IsActive != nil {
				user.IsActive = *body.IsActive
			}
			if body.Password != nil {
				hash, err := hashPassword(*body.Password)
				if err != nil {
					return err
				}
				user.PasswordHash = hash
			}
			if err := tx.Omit("Permissions").Save(&user).Error; err != nil {
				return err
			}

			if body.Permissions != nil {
				if err := tx.Where("user_id = ?", user.ID).Delete(&models.UserPermission{}).Error; err != nil {
					return err
				}
				perms := toPermissions(*body.Permissions)
				for i := range perms {
					perms[i].UserID = user.ID
				}
				if len(perms) > 0 {
					if err := tx.Create(&perms).Error; err != nil {
						return err
					}
				}
				user.Permissions = perms
			}
			return nil
		})
		if err != nil {
			return apperr.Wrap(err, "update user")
		}

		uid, uname := ActorOf(c)
		audit.Record(audit.LogOptions{
			UserID:      uid,
			UserName:    uname,
			EntityType:  "user",
			EntityID:    user.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("User %s updated", user.Email),
			Before:      before,
			After:       ToResponse(&user),
		})
		return c.JSON(ToResponse(&user))
	}
}
