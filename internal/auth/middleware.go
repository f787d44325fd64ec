package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/models"
)

const (
	CtxUserKey     = "user"
	CtxUserIDKey   = "user_id"
	CtxUserRoleKey = "user_role"
)

var ErrUserNotFound = errors.New("user not found")

// UserLoader fetches the current state of a user, permissions included.
type UserLoader func(ctx context.Context, id uint) (*models.User, error)

// DBUserLoader loads users from db.
func DBUserLoader(db *gorm.DB) UserLoader {
	return func(ctx context.Context, id uint) (*models.User, error) {
		var user models.User
		err := db.WithContext(ctx).Preload("Permissions").First(&user, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		if err != nil {
			return nil, err
		}
		return &user, nil
	}
}

// JWTMiddleware resolves the bearer token to a live user. Deactivated or deleted accounts are
// rejected even while their token is still valid.
func JWTMiddleware(secret string, load UserLoader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return apperr.Unauthorized("missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return apperr.Unauthorized("authorization header must be 'Bearer <token>'")
		}

		claims, err := ParseToken(secret, strings.TrimSpace(parts[1]))
		if err != nil {
			return apperr.Unauthorized("invalid or expired token")
		}

		user, err := load(c.UserContext(), claims.UserID)
		if errors.Is(err, ErrUserNotFound) {
			return apperr.Unauthorized("user no longer exists")
		}
		if err != nil {
			return apperr.Wrap(err, "load user")
		}
		if !user.IsActive {
			return apperr.Unauthorized("account is deactivated")
		}

		c.Locals(CtxUserKey, user)
		c.Locals(CtxUserIDKey, user.ID)
		c.Locals(CtxUserRoleKey, user.Role)
		return c.Next()
	}
}

// CurrentUser returns the user set by JWTMiddleware.
func CurrentUser(c *fiber.Ctx) (*models.User, bool) {
	u, ok := c.Locals(CtxUserKey).(*models.User)
	return u, ok && u != nil
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
		if !ok {
			return apperr.Forbidden("role missing from request")
		}

		for _, r := range allowedRoles {
			if r == role {
				return c.Next()
			}
		}
		return apperr.Forbidden("you are not allowed to perform this action")
	}
}
