package audit

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/database"
	"restoran-pos/internal/models"
)

type AuditLogResponse struct {
	ID          uint               `json:"id"`
	CreatedAt   time.Time          `json:"createdAt"`
	UserID      uint               `json:"userId"`
	UserName    string             `json:"userName"`
	EntityType  string             `json:"entityType"`
	EntityID    uint               `json:"entityId"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
	Before      json.RawMessage    `json:"before"`
	After       json.RawMessage    `json:"after"`
}

func toResponse(l models.AuditLog) AuditLogResponse {
	return AuditLogResponse{
		ID:          l.ID,
		CreatedAt:   l.CreatedAt,
		UserID:      l.UserID,
		UserName:    l.UserName,
		EntityType:  l.EntityType,
		EntityID:    l.EntityID,
		Action:      l.Action,
		Description: l.Description,
		Before:      rawOrNull(l.BeforeData),
		After:       rawOrNull(l.AfterData),
	}
}

func rawOrNull(s string) json.RawMessage {
	if s == "" {
		return json.RawMessage("null")
	}
	return json.RawMessage(s)
}

// GET /audit-logs?entity_type=order&entity_id=1&user_id=2&page=1&limit=50
func ListAuditLogsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.WithContext(c.UserContext()).Model(&models.AuditLog{})

		if entityType := c.Query("entity_type"); entityType != "" {
			q = q.Where("entity_type = ?", entityType)
		}
		if v := c.Query("entity_id"); v != "" {
			id := c.QueryInt("entity_id")
			if id <= 0 {
				return apperr.Validation("invalid entity_id")
			}
			q = q.Where("entity_id = ?", id)
		}
		if v := c.Query("user_id"); v != "" {
			id := c.QueryInt("user_id")
			if id <= 0 {
				return apperr.Validation("invalid user_id")
			}
			q = q.Where("user_id = ?", id)
		}

		page := c.QueryInt("page", 1)
		if page < 1 {
			page = 1
		}
		limit := c.QueryInt("limit", 50)
		if limit < 1 || limit > 200 {
			limit = 50
		}

		var total int64
		if err := q.Count(&total).Error; err != nil {
			return apperr.Wrap(err, "count audit logs")
		}

		var logs []models.AuditLog
		if err := q.Order("created_at DESC, id DESC").Offset((page - 1) * limit).Limit(limit).Find(&logs).Error; err != nil {
			return apperr.Wrap(err, "list audit logs")
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, l := range logs {
			resp = append(resp, toResponse(l))
		}
		return c.JSON(fiber.Map{
			"logs":  resp,
			"total": total,
			"page":  page,
			"limit": limit,
		})
	}
}
