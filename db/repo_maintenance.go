package db

import (
	"context"

	"lab_borrow_portal/models"

	"gorm.io/gorm"
)

func (r *Repo) CreateMaintenance(ctx context.Context, m *models.Maintenance) error {
	return mapErr(r.DB.WithContext(ctx).Create(m).Error)
}

func (r *Repo) ListMaintenance(ctx context.Context, status models.MaintenanceStatus) ([]models.Maintenance, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Maintenance{})
	if status != "" {
		tx = tx.Where("status = ?", status)
	}
	var out []models.Maintenance
	err := tx.Order("request_date DESC").Find(&out).Error
	return out, mapErr(err)
}

func (r *Repo) UpdateMaintenanceStatus(ctx context.Context, id string, status models.MaintenanceStatus) (*models.Maintenance, error) {
	res := r.DB.WithContext(ctx).Model(&models.Maintenance{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return nil, mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, mapErr(gorm.ErrRecordNotFound)
	}
	var m models.Maintenance
	if err := r.DB.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &m, nil
}
