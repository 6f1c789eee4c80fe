package audit

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/medvault/medvault/internal/models"
	"github.com/medvault/medvault/internal/response"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// List is admin-only forensics: most recent events first.
func (h *Handler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 100)
	if limit < 1 || limit > 500 {
		limit = 100
	}

	query := h.db.Order("created_at DESC").Limit(limit)
	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}
	if actorID := c.QueryInt("actor_id", 0); actorID > 0 {
		query = query.Where("actor_id = ?", actorID)
	}

	var events []models.AuditEvent
	if err := query.Find(&events).Error; err != nil {
		return response.InternalError(c, "Failed to list audit events")
	}

	return response.Success(c, events, "")
}
