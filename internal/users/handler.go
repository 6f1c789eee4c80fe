package users

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/medvault/medvault/internal/auth"
	"github.com/medvault/medvault/internal/models"
	"github.com/medvault/medvault/internal/response"
)

// Handler is the admin view over accounts: listing, role changes and
// removal. Self-service signup lives in the auth package.
type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

func (h *Handler) List(c *fiber.Ctx) error {
	query := h.db.Order("created_at DESC")

	if role := c.Query("role"); role != "" {
		if !models.ValidRole(role) {
			return response.BadRequest(c, "Unknown role", nil)
		}
		query = query.Where("role = ?", role)
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		pattern := "%" + q + "%"
		query = query.Where("name LIKE ? OR email LIKE ?", pattern, pattern)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return response.InternalError(c, "Failed to fetch users")
	}

	return response.Success(c, users, "")
}

func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid user ID", nil)
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "User")
		}
		return response.InternalError(c, "Failed to fetch user")
	}

	return response.Success(c, user, "")
}

type updateRoleBody struct {
	Role string `json:"role"`
}

// UpdateRole moves an account to another role. The role set is closed;
// anything outside it is rejected up front.
func (h *Handler) UpdateRole(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid user ID", nil)
	}

	var body updateRoleBody
	if err := c.BodyParser(&body); err != nil || !models.ValidRole(body.Role) {
		return response.ValidationError(c, map[string]string{
			"role": "role must be one of patient, doctor, admin",
		})
	}

	admin := auth.CurrentUser(c)
	if uint(id) == admin.ID {
		return response.BadRequest(c, "Cannot change your own role", nil)
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "User")
		}
		return response.InternalError(c, "Failed to fetch user")
	}

	if err := h.db.Model(&user).Update("role", body.Role).Error; err != nil {
		return response.InternalError(c, "Failed to update role")
	}

	return response.Success(c, user, "Role updated")
}

func (h *Handler) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid user ID", nil)
	}

	admin := auth.CurrentUser(c)
	if uint(id) == admin.ID {
		return response.BadRequest(c, "Cannot delete your own account", nil)
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "User")
		}
		return response.InternalError(c, "Failed to fetch user")
	}

	if err := h.db.Delete(&user).Error; err != nil {
		return response.InternalError(c, "Failed to delete user")
	}

	return response.NoContent(c)
}
