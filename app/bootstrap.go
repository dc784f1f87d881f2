// app/bootstrap.go
package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"lab_borrow_portal/config"
	"lab_borrow_portal/models"
)

type AdminBootstrapper interface {
	CountAdmins(ctx context.Context) (int64, error)
	CreateInvite(ctx context.Context, email string, role models.Role, token string, expiresAt time.Time, createdBy string) (*models.Invite, error)
}

// BootstrapFirstAdmin 没有管理员时给 BOOTSTRAP_EMAIL 生成一次性管理员邀请，返回注册链接
func BootstrapFirstAdmin(ctx context.Context, cfg config.Config, repo AdminBootstrapper) string {
	if cfg.BootstrapEmail == "" {
		return ""
	}
	n, err := repo.CountAdmins(ctx)
	if err != nil {
		log.Printf("bootstrap: count admins: %v", err)
		return ""
	}
	if n > 0 {
		return "" // 已经有管理员，跳过
	}

	// 生成一次性邀请
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Printf("bootstrap: token: %v", err)
		return ""
	}
	token := hex.EncodeToString(buf)

	if _, err := repo.CreateInvite(ctx, cfg.BootstrapEmail, models.RoleAdmin, token, time.Now().Add(24*time.Hour), "bootstrap"); err != nil {
		log.Printf("bootstrap invite failed: %v", err)
		return ""
	}

	// 打印邀请链接（直接点开注册）
	link := fmt.Sprintf("%s/register?inviteToken=%s", cfg.WebOrigin, token)
	log.Printf("[BOOTSTRAP] No admin found, created an admin invite for %s", cfg.BootstrapEmail)
	log.Printf("[BOOTSTRAP] Open this URL to register the first admin: %s", link)
	return link
}
