package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"lab_borrow_portal/models"
)

var ErrInviteUsed = errors.New("invite already used or not found")

func (r *Repo) CreateInvite(ctx context.Context, email string, role models.Role, token string, expiresAt time.Time, createdBy string) (*models.Invite, error) {
	inv := &models.Invite{
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Role:      role,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedBy: createdBy,
	}
	return inv, mapErr(r.DB.WithContext(ctx).Create(inv).Error)
}

func (r *Repo) GetInviteByToken(ctx context.Context, token string) (*models.Invite, error) {
	var inv models.Invite
	if err := r.DB.WithContext(ctx).Where("token = ?", token).First(&inv).Error; err != nil {
		return nil, mapErr(err)
	}
	return &inv, nil
}

func (r *Repo) MarkInviteUsed(ctx context.Context, token string) error {
	now := time.Now()
	res := r.DB.WithContext(ctx).Model(&models.Invite{}).
		Where("token = ? AND used_at IS NULL", token).
		Update("used_at", &now)
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInviteUsed
	}
	return nil
}
