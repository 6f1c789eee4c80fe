package records

import (
	"errors"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"

	"github.com/medvault/medvault/internal/access"
	"github.com/medvault/medvault/internal/audit"
	"github.com/medvault/medvault/internal/auth"
	"github.com/medvault/medvault/internal/models"
	"github.com/medvault/medvault/internal/response"
	"github.com/medvault/medvault/internal/storage"
)

const maxUploadSize = 25 * 1024 * 1024 // 25MB

var policy = bluemonday.StrictPolicy()

type Handler struct {
	db     *gorm.DB
	blobs  storage.BlobStore
	grants *access.GrantChecker
	audit  *audit.Recorder
}

func NewHandler(db *gorm.DB, blobs storage.BlobStore, grants *access.GrantChecker, rec *audit.Recorder) *Handler {
	return &Handler{db: db, blobs: blobs, grants: grants, audit: rec}
}

// Upload stores the file in the blob store and the metadata row in one go.
// Patients only; title and notes are sanitized before persisting.
func (h *Handler) Upload(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	file, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "File is required", nil)
	}
	if file.Size > maxUploadSize {
		return response.BadRequest(c, "File too large", map[string]interface{}{
			"max_size_mb":  maxUploadSize / (1024 * 1024),
			"file_size_mb": file.Size / (1024 * 1024),
		})
	}

	title := policy.Sanitize(c.FormValue("title", file.Filename))
	notes := policy.Sanitize(c.FormValue("notes", ""))

	src, err := file.Open()
	if err != nil {
		return response.InternalError(c, "Failed to read uploaded file")
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	key, err := h.blobs.Put(src, file.Size, contentType, filepath.Ext(file.Filename))
	if err != nil {
		return response.InternalError(c, "Failed to store file")
	}

	record := models.MedicalRecord{
		PatientID:   user.ID,
		Title:       title,
		Notes:       notes,
		FileName:    file.Filename,
		BlobKey:     key,
		ContentType: contentType,
		Size:        file.Size,
	}
	if err := h.db.Create(&record).Error; err != nil {
		// Keep the blob store consistent with the table.
		_ = h.blobs.Delete(key)
		return response.InternalError(c, "Failed to save record")
	}

	return response.Created(c, record, "Record uploaded")
}

func (h *Handler) List(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	var records []models.MedicalRecord
	if err := h.db.Where("patient_id = ?", user.ID).Order("created_at DESC").Find(&records).Error; err != nil {
		return response.InternalError(c, "Failed to list records")
	}

	return response.Success(c, records, "")
}

// Download streams the blob to the owner, or to a doctor holding a live
// grant for it.
func (h *Handler) Download(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	recordID, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid record id", nil)
	}

	var record models.MedicalRecord
	if err := h.db.First(&record, recordID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Record")
		}
		return response.InternalError(c, "Failed to load record")
	}

	if record.PatientID != user.ID {
		allowed := false
		if user.Role == models.RoleDoctor {
			allowed, err = h.grants.CanAccess(user.ID, record.PatientID, record.ID)
			if err != nil {
				return response.InternalError(c, "Failed to check access")
			}
		}
		if !allowed {
			return response.Forbidden(c, "You don't have access to this record")
		}
		h.audit.Record(user.ID, audit.ActionRecordViewed, "medical_record", map[string]interface{}{
			"record_id":  record.ID,
			"patient_id": record.PatientID,
		})
	}

	blob, err := h.blobs.Get(record.BlobKey)
	if err != nil {
		return response.InternalError(c, "Failed to fetch file")
	}

	c.Set("Content-Type", record.ContentType)
	c.Set("Content-Disposition", `attachment; filename="`+record.FileName+`"`)
	return c.SendStream(blob)
}

func (h *Handler) Delete(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	recordID, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid record id", nil)
	}

	var record models.MedicalRecord
	if err := h.db.Where("id = ? AND patient_id = ?", recordID, user.ID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Record")
		}
		return response.InternalError(c, "Failed to load record")
	}

	if err := h.blobs.Delete(record.BlobKey); err != nil {
		return response.InternalError(c, "Failed to delete file")
	}
	if err := h.db.Delete(&record).Error; err != nil {
		return response.InternalError(c, "Failed to delete record")
	}

	return response.Success(c, nil, "Record deleted")
}
