package main

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/authz"
	"restoran-pos/internal/config"
	"restoran-pos/internal/events"
	"restoran-pos/internal/models"
)

const testSecret = "route-table-secret-route-table-secret"

func newTestApp(t *testing.T, users map[uint]*models.User) *fiber.App {
	t.Helper()
	a, err := authz.New("")
	if err != nil {
		t.Fatal(err)
	}
	app := fiber.New(fiber.Config{ErrorHandler: apperr.Handler(false)})
	registerRoutes(app, routeDeps{
		cfg:   &config.Config{JWTSecret: testSecret, JWTTTL: time.Hour},
		authz: a,
		users: func(_ context.Context, id uint) (*models.User, error) {
			if u, ok := users[id]; ok {
				return u, nil
			}
			return nil, auth.ErrUserNotFound
		},
		pub: events.Discard,
	})
	return app
}

func TestRouteGuards(t *testing.T) {
	users := map[uint]*models.User{
		1: {ID: 1, Email: "waiter@example.com", Role: models.RoleWaiter, IsActive: true},
		2: {ID: 2, Email: "cashier@example.com", Role: models.RoleCashier, IsActive: true},
		3: {ID: 3, Email: "chef@example.com", Role: models.RoleKitchenStaff, IsActive: true},
	}
	app := newTestApp(t, users)

	token := func(id uint) string {
		tok, err := auth.GenerateToken(testSecret, time.Hour, users[id])
		if err != nil {
			t.Fatal(err)
		}
		return tok
	}

	tests := []struct {
		name   string
		method string
		path   string
		user   uint
		want   int
	}{
		{"no token", "GET", "/api/orders", 0, fiber.StatusUnauthorized},
		{"waiter cannot read reports", "GET", "/api/reports/sales/daily", 1, fiber.StatusForbidden},
		{"waiter cannot cancel orders", "DELETE", "/api/orders/1", 1, fiber.StatusForbidden},
		{"cashier cannot read audit log", "GET", "/api/audit-logs", 2, fiber.StatusForbidden},
		{"cashier cannot change settings", "PUT", "/api/settings/tax", 2, fiber.StatusForbidden},
		{"kitchen cannot create tables", "POST", "/api/tables", 3, fiber.StatusForbidden},
		{"kitchen cannot import stock", "POST", "/api/inventory/import", 3, fiber.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.user != 0 {
				req.Header.Set("Authorization", "Bearer "+token(tt.user))
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

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t, nil)
	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
