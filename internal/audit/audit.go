package audit

import (
	"encoding/json"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/medvault/medvault/internal/models"
)

const (
	ActionTokenReuse   = "token_reuse_detected"
	ActionAccessGrant  = "access_granted"
	ActionAccessDeny   = "access_denied"
	ActionCodeRedeemed = "share_code_redeemed"
	ActionRecordViewed = "record_viewed"
)

// Recorder appends audit events. Auditing is best-effort: a failed write
// is logged and dropped, never surfaced to the request that triggered it.
type Recorder struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewRecorder(db *gorm.DB, log *zap.Logger) *Recorder {
	return &Recorder{db: db, log: log}
}

func (r *Recorder) Record(actorID uint, action, subject string, meta map[string]interface{}) {
	event := models.AuditEvent{
		ActorID: actorID,
		Action:  action,
		Subject: subject,
	}
	if meta != nil {
		if raw, err := json.Marshal(meta); err == nil {
			event.Metadata = datatypes.JSON(raw)
		}
	}

	if err := r.db.Create(&event).Error; err != nil {
		r.log.Error("failed to record audit event",
			zap.String("action", action),
			zap.Uint("actor_id", actorID),
			zap.Error(err))
	}
}
