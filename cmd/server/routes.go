package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/audit"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/authz"
	"restoran-pos/internal/config"
	"restoran-pos/internal/database"
	"restoran-pos/internal/events"
	"restoran-pos/internal/inventory"
	"restoran-pos/internal/menu"
	"restoran-pos/internal/orders"
	"restoran-pos/internal/reports"
	"restoran-pos/internal/settings"
	"restoran-pos/internal/tables"
)

type routeDeps struct {
	cfg      *config.Config
	authz    *authz.Authorizer
	users    auth.UserLoader
	pub      events.Publisher
	orders   *orders.Service
	settings *settings.Service
}

const (
	read   = authz.ActionRead
	create = authz.ActionCreate
	update = authz.ActionUpdate
	remove = authz.ActionDelete
)

func registerRoutes(app *fiber.App, d routeDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		sqlDB, err := database.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return apperr.Wrap(err, "database unreachable")
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register", auth.RegisterHandler(d.cfg))
	api.Post("/auth/login", auth.LoginHandler(d.cfg))

	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(d.cfg.JWTSecret, d.users))
	protected.Get("/auth/me", auth.MeHandler())

	perm := d.authz.RequirePermission

	// Users
	protected.Get("/users", perm("users", read), auth.ListUsersHandler())
	protected.Post("/users", perm("users", create), auth.CreateUserHandler())
	protected.Patch("/users/:id", perm("users", update), auth.UpdateUserHandler())

	// Orders
	protected.Post("/orders", perm("orders", create), orders.CreateHandler(d.orders))
	protected.Get("/orders", perm("orders", read), orders.ListHandler(d.orders))
	protected.Get("/orders/:id", perm("orders", read), orders.GetHandler(d.orders))
	protected.Patch("/orders/:id/status", perm("orders", update), orders.UpdateStatusHandler(d.orders))
	protected.Patch("/orders/:id/items/:itemIndex/status", perm("orders", update), orders.UpdateItemStatusHandler(d.orders))
	protected.Post("/orders/:id/payments", perm("orders", update), orders.AddPaymentHandler(d.orders))
	protected.Delete("/orders/:id", perm("orders", remove), orders.CancelHandler(d.orders))

	// Kitchen tickets
	protected.Post("/kot/:orderId/print", perm("kot", create), orders.PrintKOTHandler(d.orders))
	protected.Get("/kot/queue", perm("kot", read), orders.KOTQueueHandler(d.orders))
	protected.Patch("/kot/:orderId/items/:itemIndex/status", perm("kot", update), orders.UpdateKOTItemHandler(d.orders))
	protected.Patch("/kot/:orderId/complete", perm("kot", update), orders.CompleteKOTHandler(d.orders))

	// Tables
	protected.Get("/tables", perm("tables", read), tables.ListTablesHandler())
	protected.Get("/tables/:id", perm("tables", read), tables.GetTableHandler())
	protected.Post("/tables", perm("tables", create), tables.CreateTableHandler())
	protected.Patch("/tables/:id/status", perm("tables", update), tables.UpdateStatusHandler(d.pub))
	protected.Patch("/tables/:id/assign", perm("tables", update), tables.AssignWaiterHandler(d.pub))

	// Menu
	protected.Get("/menu/categories", perm("menu", read), menu.ListCategoriesHandler())
	protected.Post("/menu/categories", perm("menu", create), menu.CreateCategoryHandler())
	protected.Put("/menu/categories/:id", perm("menu", update), menu.UpdateCategoryHandler())
	protected.Get("/menu/items", perm("menu", read), menu.ListItemsHandler())
	protected.Get("/menu/items/:id", perm("menu", read), menu.GetItemHandler())
	protected.Post("/menu/items", perm("menu", create), menu.CreateItemHandler())
	protected.Put("/menu/items/:id", perm("menu", update), menu.UpdateItemHandler())
	protected.Patch("/menu/items/:id/availability", perm("menu", update), menu.SetAvailabilityHandler())

	// Inventory; static paths go before /inventory/:id
	protected.Get("/inventory/purchase-orders", perm("inventory", read), inventory.ListPurchaseOrdersHandler())
	protected.Post("/inventory/purchase-orders", perm("inventory", create), inventory.CreatePurchaseOrderHandler())
	protected.Post("/inventory/purchase-orders/:id/receive", perm("inventory", update), inventory.ReceivePurchaseOrderHandler())
	protected.Post("/inventory/import", perm("inventory", update), inventory.ImportStockHandler())
	protected.Get("/inventory", perm("inventory", read), inventory.ListItemsHandler())
	protected.Post("/inventory", perm("inventory", create), inventory.CreateItemHandler(d.pub))
	protected.Get("/inventory/:id", perm("inventory", read), inventory.GetItemHandler())
	protected.Post("/inventory/:id/movements", perm("inventory", update), inventory.AddMovementHandler(d.pub))
	protected.Get("/inventory/:id/movements", perm("inventory", read), inventory.ListMovementsHandler())

	// Settings
	protected.Get("/settings", perm("settings", read), settings.ListHandler(d.settings))
	protected.Get("/settings/backups", perm("settings", read), settings.ListBackupsHandler(d.settings))
	protected.Post("/settings/reset", perm("settings", update), settings.ResetHandler(d.settings, d.pub))
	protected.Post("/settings/backup", perm("settings", create), settings.BackupHandler(d.settings, d.pub))
	protected.Get("/settings/:category", perm("settings", read), settings.GetHandler(d.settings))
	protected.Put("/settings/:category", perm("settings", update), settings.UpdateHandler(d.settings, d.pub))

	// Reports
	protected.Get("/reports/sales/daily", perm("reports", read), reports.DailySalesHandler())
	protected.Get("/reports/sales/chart", perm("reports", read), reports.SalesChartHandler())
	protected.Get("/reports/orders/export", perm("reports", read), reports.ExportOrdersHandler())

	// Audit
	protected.Get("/audit-logs", perm("audit", read), audit.ListAuditLogsHandler())
}
