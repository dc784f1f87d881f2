package db

import (
	"context"
	"fmt"
	"lab_borrow_portal/models"
)

func (r *Repo) LogTransition(ctx context.Context, entry models.AuditLog) error {
	if err := r.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("insert audit log: %w", mapErr(err))
	}
	return nil
}

func (r *Repo) ListAudit(ctx context.Context, requestID string) ([]models.AuditLog, error) {
	var out []models.AuditLog
	err := r.DB.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at ASC").Order("id ASC").
		Find(&out).Error
	return out, mapErr(err)
}
