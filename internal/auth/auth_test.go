package auth

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/models"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenRoundTrip(t *testing.T) {
	user := &models.User{ID: 7, Email: "chef@example.com", Role: models.RoleKitchenStaff}
	tok, err := GenerateToken(testSecret, time.Hour, user)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := ParseToken(testSecret, tok)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != 7 || claims.Role != models.RoleKitchenStaff || claims.Email != user.Email {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := ParseToken("another-secret-another-secret-xx", tok); err == nil {
		t.Error("token accepted with the wrong secret")
	}
}

func newApp(load UserLoader, extra ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: apperr.Handler(false)})
	handlers := append([]fiber.Handler{JWTMiddleware(testSecret, load)}, extra...)
	handlers = append(handlers, func(c *fiber.Ctx) error {
		u, ok := CurrentUser(c)
		if !ok {
			return fiber.ErrInternalServerError
		}
		return c.SendString(u.Email)
	})
	app.Get("/", handlers...)
	return app
}

func TestJWTMiddleware(t *testing.T) {
	users := map[uint]*models.User{
		1: {ID: 1, Email: "admin@example.com", Role: models.RoleAdmin, IsActive: true},
		2: {ID: 2, Email: "gone@example.com", Role: models.RoleWaiter, IsActive: false},
	}
	load := func(_ context.Context, id uint) (*models.User, error) {
		if u, ok := users[id]; ok {
			return u, nil
		}
		return nil, ErrUserNotFound
	}
	token := func(id uint, role models.UserRole) string {
		tok, err := GenerateToken(testSecret, time.Hour, &models.User{ID: id, Role: role})
		if err != nil {
			t.Fatal(err)
		}
		return "Bearer " + tok
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", fiber.StatusUnauthorized},
		{"wrong scheme", "Basic abc", fiber.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", fiber.StatusUnauthorized},
		{"active user", token(1, models.RoleAdmin), fiber.StatusOK},
		{"deactivated user", token(2, models.RoleWaiter), fiber.StatusUnauthorized},
		{"deleted user", token(9, models.RoleWaiter), fiber.StatusUnauthorized},
	}
	app := newApp(load)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	users := map[uint]*models.User{
		1: {ID: 1, Role: models.RoleManager, IsActive: true},
		2: {ID: 2, Role: models.RoleWaiter, IsActive: true},
	}
	load := func(_ context.Context, id uint) (*models.User, error) { return users[id], nil }
	app := newApp(load, RequireRole(models.RoleAdmin, models.RoleManager))

	for id, want := range map[uint]int{1: fiber.StatusOK, 2: fiber.StatusForbidden} {
		tok, _ := GenerateToken(testSecret, time.Hour, users[id])
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != want {
			t.Errorf("user %d: status = %d, want %d", id, resp.StatusCode, want)
		}
	}
}

func TestToPermissions(t *testing.T) {
	got := toPermissions([]PermissionRequest{{Module: " orders ", Actions: []string{"read", " create", ""}}})
	if len(got) != 1 || got[0].Module != "orders" || got[0].Actions != "read,create" {
		t.Fatalf("toPermissions = %+v", got)
	}
	if !got[0].Allows("create") || got[0].Allows("delete") {
		t.Error("Allows mismatch")
	}
}
