// controllers/srv.go
package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"lab_borrow_portal/app"
	"lab_borrow_portal/config"
	"lab_borrow_portal/db"
	"lab_borrow_portal/lifecycle"
	"lab_borrow_portal/models"
	"lab_borrow_portal/notify"
	"lab_borrow_portal/session"
)

type Srv struct {
	Repo     *db.Repo
	Manager  *lifecycle.Manager
	Sessions *session.Issuer
	Notifier *notify.Redis
	Cfg      config.Config
}

func GetSrv(a *app.App) *Srv {
	return &Srv{
		Repo:     a.Repo,
		Manager:  a.Manager,
		Sessions: a.Sessions,
		Notifier: a.Notifier,
		Cfg:      a.Config,
	}
}

// --- helpers ---

// 统一设置业务会话 Cookie（也会在响应体里返回 token，供 Bearer 使用）
func (s *Srv) setAppCookie(w http.ResponseWriter, token string, maxAge time.Duration) {
	secure := strings.HasPrefix(s.Cfg.WebOrigin, "https://")
	http.SetCookie(w, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
		MaxAge:   int(maxAge / time.Second),
	})
}

// 登录成功：签发 token + 登记会话 + 登录快照
func (s *Srv) issueSession(ctx context.Context, w http.ResponseWriter, u *models.User, ip, ua string) (string, error) {
	_ = s.Repo.TouchUserLogin(ctx, u.ID, ip, ua) // 不阻塞

	role := u.Role
	if s.Cfg.IsAdminEmail(u.Email) {
		role = models.RoleAdmin
	}
	tok, _, err := s.Sessions.Issue(ctx, u.ID, u.Email, string(role))
	if err != nil {
		return "", err
	}
	s.setAppCookie(w, tok, s.Cfg.SessionTTL)
	return tok, nil
}
