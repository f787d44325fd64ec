package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/config"
	"restoran-pos/internal/database"
	"restoran-pos/internal/models"
	"restoran-pos/internal/validation"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone" validate:"omitempty,max=30"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID          uint                    `json:"id"`
	Name        string                  `json:"name"`
	Email       string                  `json:"email"`
	Phone       string                  `json:"phone,omitempty"`
	Role        models.UserRole         `json:"role"`
	IsActive    bool                    `json:"isActive"`
	Permissions []models.UserPermission `json:"permissions"`
	LastLogin   *time.Time              `json:"lastLogin,omitempty"`
}

func ToResponse(u *models.User) UserResponse {
	perms := u.Permissions
	if perms == nil {
		perms = []models.UserPermission{}
	}
	return UserResponse{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Phone:       u.Phone,
		Role:        u.Role,
		IsActive:    u.IsActive,
		Permissions: perms,
		LastLogin:   u.LastLogin,
	}
}

func normalizeEmail(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

func hashPassword(pw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", apperr.Wrap(err, "hash password")
	}
	return string(hash), nil
}

// RegisterHandler creates an account. The very first account becomes the admin; every later
// self-registration is a customer.
func RegisterHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}
		body.Email = normalizeEmail(body.Email)

		hash, err := hashPassword(body.Password)
		if err != nil {
			return err
		}

		user := models.User{
			Name:         strings.TrimSpace(body.Name),
			Email:        body.Email,
			Phone:        strings.TrimSpace(body.Phone),
			PasswordHash: hash,
			Role:         models.RoleCustomer,
			IsActive:     true,
		}

		err = database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var count int64
			if err := tx.Model(&models.User{}).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				user.Role = models.RoleAdmin
			}
			return tx.Create(&user).Error
		})
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Conflict("email is already registered")
		}
		if err != nil {
			return apperr.Wrap(err, "create user")
		}

		token, err := GenerateToken(cfg.JWTSecret, cfg.JWTTTL, &user)
		if err != nil {
			return apperr.Wrap(err, "sign token")
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"token": token,
			"user":  ToResponse(&user),
		})
	}
}

func LoginHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}
		body.Email = normalizeEmail(body.Email)

		var user models.User
		err := database.DB.WithContext(c.UserContext()).
			Preload("Permissions").
			Where("email = ?", body.Email).
			First(&user).Error
		if err != nil {
			return apperr.Unauthorized("invalid email or password")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return apperr.Unauthorized("invalid email or password")
		}
		if !user.IsActive {
			return apperr.Unauthorized("account is deactivated")
		}

		now := time.Now()
		user.LastLogin = &now
		_ = database.DB.Model(&user).UpdateColumn("last_login", now).Error

		token, err := GenerateToken(cfg.JWTSecret, cfg.JWTTTL, &user)
		if err != nil {
			return apperr.Wrap(err, "sign token")
		}
		return c.JSON(fiber.Map{
			"token": token,
			"user":  ToResponse(&user),
		})
	}
}

func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			return apperr.Unauthorized("not authenticated")
		}
		return c.JSON(ToResponse(user))
	}
}
