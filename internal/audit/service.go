package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"restoran-pos/internal/logger"
	"restoran-pos/internal/models"

	"gorm.io/gorm"
)

type LogOptions struct {
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Metadata    any
}

// Recorder is the audit sink seen by business services. Record never fails
// from the caller's point of view.
type Recorder interface {
	Record(ctx context.Context, opts LogOptions)
}

type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewService(db *gorm.DB, log *logger.Logger) *Service {
	return &Service{db: db, log: log}
}

func (s *Service) WriteLog(ctx context.Context, opts LogOptions) error {
	// jsonb needs a JSON document, not an empty string
	metadata := "null"
	if opts.Metadata != nil {
		if b, err := json.Marshal(opts.Metadata); err == nil {
			metadata = string(b)
		}
	}

	userName := opts.UserName
	if userName == "" && opts.UserID != 0 {
		var user models.User
		if err := s.db.WithContext(ctx).Select("name").First(&user, opts.UserID).Error; err == nil {
			userName = user.Name
		}
	}

	entry := models.AuditLog{
		UserID:      opts.UserID,
		UserName:    userName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		Metadata:    metadata,
	}

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("audit log could not be saved: %w", err)
	}
	return nil
}

// Record writes the entry and swallows any failure after logging it.
func (s *Service) Record(ctx context.Context, opts LogOptions) {
	if err := s.WriteLog(ctx, opts); err != nil {
		s.log.Warnf("AUDIT", "%s %s#%d not recorded: %v", opts.Action, opts.EntityType, opts.EntityID, err)
	}
}

type ListFilter struct {
	UserID     uint
	EntityType string
	EntityID   uint
	Action     models.AuditAction
	Limit      int
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]models.AuditLog, error) {
	q := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != 0 {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var logs []models.AuditLog
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, LogOptions) {}
