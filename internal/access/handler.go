package access

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/medvault/medvault/internal/audit"
	"github.com/medvault/medvault/internal/auth"
	"github.com/medvault/medvault/internal/config"
	"github.com/medvault/medvault/internal/models"
	"github.com/medvault/medvault/internal/response"
	"github.com/medvault/medvault/internal/utils"
)

type Handler struct {
	db    *gorm.DB
	audit *audit.Recorder
	cfg   *config.Config
}

func NewHandler(db *gorm.DB, rec *audit.Recorder, cfg *config.Config) *Handler {
	return &Handler{db: db, audit: rec, cfg: cfg}
}

type createRequestBody struct {
	PatientEmail string `json:"patient_email"`
	Message      string `json:"message"`
}

// CreateRequest: a doctor asks a patient for access.
func (h *Handler) CreateRequest(c *fiber.Ctx) error {
	doctor := auth.CurrentUser(c)

	var body createRequestBody
	if err := c.BodyParser(&body); err != nil || body.PatientEmail == "" {
		return response.ValidationError(c, map[string]string{
			"patient_email": "patient_email is required",
		})
	}

	var patient models.User
	err := h.db.Where("email = ? AND role = ?", body.PatientEmail, models.RolePatient).
		First(&patient).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Patient")
		}
		return response.InternalError(c, "Failed to look up patient")
	}

	request := models.AccessRequest{
		DoctorID:  doctor.ID,
		PatientID: patient.ID,
		Message:   body.Message,
		Status:    models.RequestPending,
	}
	if err := h.db.Create(&request).Error; err != nil {
		return response.InternalError(c, "Failed to create access request")
	}

	return response.Created(c, request, "Access request created")
}

// ListRequests returns the caller's side of the request ledger.
func (h *Handler) ListRequests(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	var requests []models.AccessRequest
	query := h.db.Order("created_at DESC")
	if user.Role == models.RoleDoctor {
		query = query.Where("doctor_id = ?", user.ID).Preload("Patient")
	} else {
		query = query.Where("patient_id = ?", user.ID).Preload("Doctor")
	}
	if err := query.Find(&requests).Error; err != nil {
		return response.InternalError(c, "Failed to list access requests")
	}

	return response.Success(c, requests, "")
}

type approveRequestBody struct {
	DurationHours int    `json:"duration_hours"`
	RecordIDs     []uint `json:"record_ids"`
}

// ApproveRequest: the patient opens a window, optionally scoped to
// specific records. Empty record_ids means everything.
func (h *Handler) ApproveRequest(c *fiber.Ctx) error {
	patient := auth.CurrentUser(c)

	requestID, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid request id", nil)
	}

	var body approveRequestBody
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", nil)
	}
	if body.DurationHours <= 0 {
		body.DurationHours = 24
	}

	var request models.AccessRequest
	err = h.db.Where("id = ? AND patient_id = ?", requestID, patient.ID).First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Access request")
		}
		return response.InternalError(c, "Failed to load access request")
	}
	if request.Status != models.RequestPending {
		return response.Conflict(c, "Request already resolved")
	}

	expiresAt := time.Now().Add(time.Duration(body.DurationHours) * time.Hour)
	updates := map[string]interface{}{
		"status":     models.RequestApproved,
		"expires_at": expiresAt,
	}
	if len(body.RecordIDs) > 0 {
		raw, _ := json.Marshal(body.RecordIDs)
		updates["record_ids"] = datatypes.JSON(raw)
	}
	if err := h.db.Model(&request).Updates(updates).Error; err != nil {
		return response.InternalError(c, "Failed to approve request")
	}

	h.audit.Record(patient.ID, audit.ActionAccessGrant, "access_request", map[string]interface{}{
		"request_id": request.ID,
		"doctor_id":  request.DoctorID,
		"expires_at": expiresAt,
	})

	return response.Success(c, request, "Access request approved")
}

func (h *Handler) DenyRequest(c *fiber.Ctx) error {
	patient := auth.CurrentUser(c)

	requestID, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid request id", nil)
	}

	var request models.AccessRequest
	err = h.db.Where("id = ? AND patient_id = ?", requestID, patient.ID).First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Access request")
		}
		return response.InternalError(c, "Failed to load access request")
	}
	if request.Status != models.RequestPending {
		return response.Conflict(c, "Request already resolved")
	}

	if err := h.db.Model(&request).Update("status", models.RequestDenied).Error; err != nil {
		return response.InternalError(c, "Failed to deny request")
	}

	h.audit.Record(patient.ID, audit.ActionAccessDeny, "access_request", map[string]interface{}{
		"request_id": request.ID,
		"doctor_id":  request.DoctorID,
	})

	return response.Success(c, request, "Access request denied")
}

// CreateShareCode mints a 6-digit code the patient can read out to a
// doctor. Only its hash is stored.
func (h *Handler) CreateShareCode(c *fiber.Ctx) error {
	patient := auth.CurrentUser(c)

	code, err := utils.RandomDigits(6)
	if err != nil {
		return response.InternalError(c, "Failed to generate share code")
	}

	share := models.ShareCode{
		PatientID: patient.ID,
		CodeHash:  utils.HashToken(code),
		ExpiresAt: time.Now().Add(h.cfg.ShareCodeTTL),
	}
	if err := h.db.Create(&share).Error; err != nil {
		return response.InternalError(c, "Failed to save share code")
	}

	return response.Created(c, fiber.Map{
		"code":       code,
		"expires_at": share.ExpiresAt,
	}, "Share code created")
}

type redeemCodeBody struct {
	Code string `json:"code"`
}

// RedeemShareCode binds an unclaimed, unexpired code to the redeeming
// doctor; from then until expiry the row is a live grant.
func (h *Handler) RedeemShareCode(c *fiber.Ctx) error {
	doctor := auth.CurrentUser(c)

	var body redeemCodeBody
	if err := c.BodyParser(&body); err != nil || body.Code == "" {
		return response.ValidationError(c, map[string]string{
			"code": "code is required",
		})
	}

	var share models.ShareCode
	err := h.db.Where("code_hash = ? AND doctor_id IS NULL AND expires_at > ?",
		utils.HashToken(body.Code), time.Now()).First(&share).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.BadRequest(c, "Invalid or expired code", nil)
		}
		return response.InternalError(c, "Failed to look up share code")
	}

	if err := h.db.Model(&share).Update("doctor_id", doctor.ID).Error; err != nil {
		return response.InternalError(c, "Failed to redeem share code")
	}

	h.audit.Record(doctor.ID, audit.ActionCodeRedeemed, "share_code", map[string]interface{}{
		"share_code_id": share.ID,
		"patient_id":    share.PatientID,
	})

	return response.Success(c, fiber.Map{
		"patient_id": share.PatientID,
		"expires_at": share.ExpiresAt,
	}, "Share code redeemed")
}
