package reports

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/database"
	"restoran-pos/internal/models"
)

const maxExportDays = 92

func parseDay(v string, fallback time.Time) (time.Time, error) {
	if v == "" {
		return time.Date(fallback.Year(), fallback.Month(), fallback.Day(), 0, 0, 0, 0, fallback.Location()), nil
	}
	d, err := time.ParseInLocation("2006-01-02", v, time.Local)
	if err != nil {
		return time.Time{}, apperr.Validationf("invalid date %q, want YYYY-MM-DD", v)
	}
	return d, nil
}

// GET /reports/sales/daily?date=2026-03-14
func DailySalesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		day, err := parseDay(c.Query("date"), time.Now())
		if err != nil {
			return err
		}

		var orders []models.Order
		err = database.DB.WithContext(c.UserContext()).
			Preload("Items").Preload("Payments").
			Where("created_at >= ? AND created_at < ?", day, day.AddDate(0, 0, 1)).
			Find(&orders).Error
		if err != nil {
			return apperr.Wrap(err, "load orders for report")
		}
		return c.JSON(Summarize(day, orders))
	}
}

// GET /reports/sales/chart?period=daily&count=7
func SalesChartHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		period := Period(c.Query("period", string(PeriodDaily)))
		start, end, err := Window(period, c.QueryInt("count", 0), time.Now())
		if err != nil {
			return err
		}

		var rows []chartRow
		err = database.DB.WithContext(c.UserContext()).Raw(`
			SELECT date_trunc(?, p.paid_at) AS bucket,
			       p.method AS method,
			       SUM(p.amount) AS total
			FROM payments p
			JOIN orders o ON o.id = p.order_id
			WHERE o.status <> ? AND p.status = 'completed' AND p.paid_at >= ? AND p.paid_at < ?
			GROUP BY bucket, p.method
			ORDER BY bucket ASC`,
			truncUnit[period], models.OrderCancelled, start, end,
		).Scan(&rows).Error
		if err != nil {
			return apperr.Wrap(err, "aggregate payments")
		}

		return c.JSON(fiber.Map{
			"period": period,
			"from":   start.Format("2006-01-02"),
			"to":     end.AddDate(0, 0, -1).Format("2006-01-02"),
			"points": series(period, start, end, rows),
		})
	}
}

// GET /reports/orders/export?from=2026-03-01&to=2026-03-31 returns an xlsx workbook. Both
// dates are inclusive.
func ExportOrdersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		now := time.Now()
		to, err := parseDay(c.Query("to"), now)
		if err != nil {
			return err
		}
		from, err := parseDay(c.Query("from"), to)
		if err != nil {
			return err
		}
		if to.Before(from) {
			return apperr.Validation("to must not be before from")
		}
		if to.Sub(from) > maxExportDays*24*time.Hour {
			return apperr.Validationf("export range is limited to %d days", maxExportDays)
		}

		db := database.DB.WithContext(c.UserContext())
		q := db.Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
			Preload("Payments").
			Where("created_at >= ? AND created_at < ?", from, to.AddDate(0, 0, 1)).
			Order("created_at ASC")
		if status := c.Query("status"); status != "" {
			q = q.Where("status = ?", status)
		}

		var orders []models.Order
		if err := q.Find(&orders).Error; err != nil {
			return apperr.Wrap(err, "load orders for export")
		}

		tableNumbers := make(map[uint]string)
		var tables []models.Table
		if err := db.Select("id", "number").Find(&tables).Error; err != nil {
			return apperr.Wrap(err, "load tables for export")
		}
		for _, t := range tables {
			tableNumbers[t.ID] = t.Number
		}

		var buf bytes.Buffer
		if err := WriteOrdersWorkbook(&buf, orders, tableNumbers); err != nil {
			return apperr.Wrap(err, "render workbook")
		}

		name := fmt.Sprintf("orders_%s_%s.xlsx", from.Format("20060102"), to.Format("20060102"))
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, name))
		return c.Send(buf.Bytes())
	}
}
