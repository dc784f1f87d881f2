package db

import (
	"context"
	"fmt"

	"lab_borrow_portal/lifecycle"
	"lab_borrow_portal/models"
)

var _ lifecycle.Store = (*Repo)(nil)

func (r *Repo) CreateRequest(ctx context.Context, req *models.BorrowRequest) error {
	return mapErr(r.DB.WithContext(ctx).Create(req).Error)
}

func (r *Repo) GetRequest(ctx context.Context, id string) (models.BorrowRequest, error) {
	var req models.BorrowRequest
	if err := r.DB.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		return models.BorrowRequest{}, mapErr(err)
	}
	return req, nil
}

func (r *Repo) QueryRequests(ctx context.Context, q lifecycle.Query) ([]models.BorrowRequest, error) {
	tx := r.DB.WithContext(ctx).Model(&models.BorrowRequest{})
	if q.RequesterID != "" {
		tx = tx.Where("requester_id = ?", q.RequesterID)
	}
	if q.TeacherID != "" {
		tx = tx.Where("teacher_id = ?", q.TeacherID)
	}
	if q.AdminStage {
		tx = tx.Where("(teacher_id = '' OR teacher_approved_at IS NOT NULL)")
	}
	if len(q.Statuses) > 0 {
		tx = tx.Where("status IN ?", q.Statuses)
	}

	switch q.Order {
	case lifecycle.OrderBorrowDateDesc:
		tx = tx.Order("borrow_date DESC").Order("created_at DESC").Order("id")
	default:
		tx = tx.Order("created_at DESC").Order("id")
	}
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var out []models.BorrowRequest
	if err := tx.Find(&out).Error; err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

// UpdateRequest 条件更新：WHERE id = ? AND status = ?，0 行时再查一次区分不存在和冲突
func (r *Repo) UpdateRequest(ctx context.Context, req models.BorrowRequest, expected models.Status) (models.BorrowRequest, error) {
	res := r.DB.WithContext(ctx).Model(&models.BorrowRequest{}).
		Where("id = ? AND status = ?", req.ID, expected).
		Select("*").
		Omit("id", "requester_id", "created_at").
		Updates(&req)
	if res.Error != nil {
		return models.BorrowRequest{}, mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		cur, err := r.GetRequest(ctx, req.ID)
		if err != nil {
			return models.BorrowRequest{}, err
		}
		return models.BorrowRequest{}, fmt.Errorf("%w: status is %s, expected %s", lifecycle.ErrConflict, cur.Status, expected)
	}
	// 读回主库上的最新记录
	return r.GetRequest(ctx, req.ID)
}

func (r *Repo) DeleteRequest(ctx context.Context, id string) error {
	res := r.DB.WithContext(ctx).Delete(&models.BorrowRequest{}, "id = ?", id)
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return lifecycle.ErrNotFound
	}
	// 审计记录跟着删
	return mapErr(r.DB.WithContext(ctx).Where("request_id = ?", id).Delete(&models.AuditLog{}).Error)
}
