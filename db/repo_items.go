package db

import (
	"context"
	"strings"

	"lab_borrow_portal/models"

	"gorm.io/gorm"
)

// Items

func (r *Repo) CreateItem(ctx context.Context, it *models.Item) error {
	return mapErr(r.DB.WithContext(ctx).Create(it).Error)
}

func (r *Repo) FindItemByID(ctx context.Context, id string) (*models.Item, error) {
	var it models.Item
	if err := r.DB.WithContext(ctx).First(&it, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &it, nil
}

// ListItems q 模糊匹配名称，status 为空时不过滤
func (r *Repo) ListItems(ctx context.Context, q string, status models.ItemStatus) ([]models.Item, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Item{})
	if s := strings.TrimSpace(q); s != "" {
		tx = tx.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	if status != "" {
		tx = tx.Where("status = ?", status)
	}
	var items []models.Item
	err := tx.Order("name ASC").Find(&items).Error
	return items, mapErr(err)
}

func (r *Repo) UpdateItem(ctx context.Context, it *models.Item) error {
	res := r.DB.WithContext(ctx).Model(&models.Item{}).
		Where("id = ?", it.ID).
		Select("name", "description", "condition", "quantity", "status", "image_path").
		Updates(it)
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return mapErr(gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *Repo) DeleteItem(ctx context.Context, id string) error {
	res := r.DB.WithContext(ctx).Delete(&models.Item{}, "id = ?", id)
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return mapErr(gorm.ErrRecordNotFound)
	}
	return nil
}
