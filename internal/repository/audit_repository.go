package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuditModel is the GORM persistence model for the audit_logs table.
type AuditModel struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Action       string     `gorm:"type:varchar(30);not null;index"`
	UserID       *uuid.UUID `gorm:"type:uuid;index"`
	MembershipID *uuid.UUID `gorm:"type:uuid;index"`
	Metadata     []byte     `gorm:"type:jsonb"`
	CreatedAt    time.Time  `gorm:"type:timestamptz;not null;index"`
}

func (AuditModel) TableName() string { return "audit_logs" }

// GormAuditRepository appends audit rows. Audit failures are logged and
// swallowed so they never fail the cashier's operation.
type GormAuditRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormAuditRepository creates an audit repository.
func NewGormAuditRepository(db *gorm.DB, logger *zap.Logger) *GormAuditRepository {
	return &GormAuditRepository{db: db, logger: logger}
}

// Record appends one audit entry.
func (r *GormAuditRepository) Record(ctx context.Context, action string, userID, membershipID *uuid.UUID, metadata map[string]interface{}) {
	raw, err := json.Marshal(metadata)
	if err != nil {
		r.logger.Error("failed to marshal audit metadata", zap.Error(err))
		raw = []byte("{}")
	}

	model := AuditModel{
		ID:           uuid.New(),
		Action:       action,
		UserID:       userID,
		MembershipID: membershipID,
		Metadata:     raw,
		CreatedAt:    time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		r.logger.Error("failed to write audit log",
			zap.String("action", action), zap.Error(err))
	}
}
