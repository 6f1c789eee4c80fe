package records

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/medvault/medvault/internal/auth"
	"github.com/medvault/medvault/internal/models"
	"github.com/medvault/medvault/internal/response"
)

type searchParams struct {
	Query    string
	FromDate string
	ToDate   string
	Page     int
	Limit    int
	SortBy   string
	OrderBy  string
}

type searchResult struct {
	Records    []models.MedicalRecord `json:"records"`
	Total      int64                  `json:"total"`
	Page       int                    `json:"page"`
	Limit      int                    `json:"limit"`
	TotalPages int64                  `json:"total_pages"`
}

// Search filters the caller's own records by text and upload date. Scope
// never widens past the owner, whatever the parameters say.
func (h *Handler) Search(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	params := searchParams{
		Query:    c.Query("q", ""),
		FromDate: c.Query("from", ""),
		ToDate:   c.Query("to", ""),
		Page:     c.QueryInt("page", 1),
		Limit:    c.QueryInt("limit", 10),
		SortBy:   c.Query("sort_by", "created_at"),
		OrderBy:  c.Query("order_by", "desc"),
	}

	result, err := h.searchRecords(user.ID, params)
	if err != nil {
		return response.InternalError(c, "Search failed")
	}

	return response.Success(c, result, "")
}

func (h *Handler) searchRecords(patientID uint, params searchParams) (*searchResult, error) {
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Limit <= 0 {
		params.Limit = 10
	}
	if params.Limit > 100 {
		params.Limit = 100
	}

	query := h.db.Model(&models.MedicalRecord{}).Where("patient_id = ?", patientID)

	if q := strings.TrimSpace(params.Query); q != "" {
		pattern := "%" + q + "%"
		query = query.Where("title LIKE ? OR notes LIKE ? OR file_name LIKE ?", pattern, pattern, pattern)
	}

	if params.FromDate != "" {
		if from, err := time.Parse("2006-01-02", params.FromDate); err == nil {
			query = query.Where("created_at >= ?", from)
		}
	}
	if params.ToDate != "" {
		if to, err := time.Parse("2006-01-02", params.ToDate); err == nil {
			// Inclusive of the whole end day.
			query = query.Where("created_at < ?", to.Add(24*time.Hour))
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	query = applySorting(query, params)
	query = query.Offset((params.Page - 1) * params.Limit).Limit(params.Limit)

	var records []models.MedicalRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}

	totalPages := total / int64(params.Limit)
	if total%int64(params.Limit) > 0 {
		totalPages++
	}

	return &searchResult{
		Records:    records,
		Total:      total,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: totalPages,
	}, nil
}

func applySorting(query *gorm.DB, params searchParams) *gorm.DB {
	orderBy := strings.ToLower(params.OrderBy)
	if orderBy != "asc" && orderBy != "desc" {
		orderBy = "desc"
	}

	switch params.SortBy {
	case "title":
		return query.Order("title " + orderBy)
	case "size":
		return query.Order("size " + orderBy)
	case "updated_at":
		return query.Order("updated_at " + orderBy)
	default:
		return query.Order("created_at " + orderBy)
	}
}
