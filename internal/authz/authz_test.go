package authz

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/models"
)

func newAuthorizer(t *testing.T) *Authorizer {
	t.Helper()
	a, err := New("")
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestAuthorizeRolePolicy(t *testing.T) {
	a := newAuthorizer(t)
	tests := []struct {
		role   models.UserRole
		module string
		action string
		want   bool
	}{
		{models.RoleAdmin, "settings", ActionDelete, true},
		{models.RoleManager, "orders", ActionDelete, true},
		{models.RoleManager, "users", ActionCreate, false},
		{models.RoleCashier, "orders", ActionUpdate, true},
		{models.RoleCashier, "orders", ActionCreate, false},
		{models.RoleWaiter, "orders", ActionCreate, true},
		{models.RoleWaiter, "inventory", ActionRead, false},
		{models.RoleKitchenStaff, "kot", ActionUpdate, true},
		{models.RoleKitchenStaff, "orders", ActionCreate, false},
		{models.RoleCustomer, "orders", ActionCreate, true},
		{models.RoleCustomer, "kot", ActionRead, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+tt.module+"/"+tt.action, func(t *testing.T) {
			u := &models.User{ID: 1, Role: tt.role, IsActive: true}
			if got := a.Authorize(u, tt.module, tt.action); got != tt.want {
				t.Errorf("Authorize = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUserPermissionsOverrideRole(t *testing.T) {
	a := newAuthorizer(t)
	u := &models.User{
		ID:       3,
		Role:     models.RoleWaiter,
		IsActive: true,
		Permissions: []models.UserPermission{
			{Module: "inventory", Actions: "read"},
			{Module: "orders", Actions: "read"},
		},
	}
	if !a.Authorize(u, "inventory", ActionRead) {
		t.Error("grant did not apply")
	}
	if a.Authorize(u, "orders", ActionCreate) {
		t.Error("override should narrow the role policy for orders")
	}
	if !a.Authorize(u, "menu", ActionRead) {
		t.Error("modules without an override keep the role policy")
	}

	u.IsActive = false
	if a.Authorize(u, "menu", ActionRead) {
		t.Error("inactive users are never authorized")
	}
}

func TestRequirePermission(t *testing.T) {
	a := newAuthorizer(t)
	app := fiber.New(fiber.Config{ErrorHandler: apperr.Handler(false)})
	app.Get("/inventory",
		func(c *fiber.Ctx) error {
			role := models.UserRole(c.Get("X-Role"))
			if role != "" {
				c.Locals(auth.CtxUserKey, &models.User{ID: 1, Role: role, IsActive: true})
			}
			return c.Next()
		},
		a.RequirePermission("inventory", ActionRead),
		func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) },
	)

	for role, want := range map[string]int{
		"":              fiber.StatusUnauthorized,
		"waiter":        fiber.StatusForbidden,
		"kitchen_staff": fiber.StatusNoContent,
	} {
		req := httptest.NewRequest("GET", "/inventory", nil)
		req.Header.Set("X-Role", role)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != want {
			t.Errorf("role %q: status = %d, want %d", role, resp.StatusCode, want)
		}
	}
}
