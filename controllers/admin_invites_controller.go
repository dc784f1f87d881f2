package controllers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"lab_borrow_portal/app"
	"lab_borrow_portal/config"
	"lab_borrow_portal/models"
)

type InviteController struct{ *Srv }

func GetInviteController(s *Srv) *InviteController { return &InviteController{Srv: s} }

// POST /admin/invites
func (ic *InviteController) CreateInvite(c *gin.Context) {
	var in struct {
		Email   string `json:"email" binding:"required,email"`
		Role    string `json:"role"`
		Expires int    `json:"expiresDays"` // 默认 1 天
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	if in.Expires <= 0 {
		in.Expires = 1
	}
	role := models.RoleStudent
	if in.Role != "" {
		r, err := models.ParseRole(in.Role)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		role = r
	}

	// 生成一次性 token
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		writeErr(c, err)
		return
	}
	token := hex.EncodeToString(buf)

	// 落库
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	inv, err := ic.Repo.CreateInvite(
		ctx,
		in.Email,
		role,
		token,
		time.Now().AddDate(0, 0, in.Expires),
		app.ActorFrom(c).ID,
	)
	if err != nil {
		writeErr(c, err)
		return
	}

	// 拼邀请链接（前端注册页带 inviteToken）
	link := strings.TrimRight(ic.Cfg.WebOrigin, "/") + "/register?inviteToken=" + token

	// 发邮件（若未配置 SMTP，打印日志但不报错）
	if err := sendInviteMail(ic.Cfg.SMTP, in.Email, role, link, in.Expires); err != nil {
		log.Printf("[invite email] send failed: %v", err)
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":  token,
		"link":   link, // 方便开发环境直接点
		"invite": inv,
	})
}

// -------------------- 邮件发送 --------------------

func sendInviteMail(conf config.SMTP, toEmail string, role models.Role, link string, expiresDays int) error {
	// 未配置 SMTP → 开发模式：打印即可，不报错
	if !conf.Enabled() {
		log.Printf("[DEV] Invite link for %s (%s): %s (expires in %d day(s))", toEmail, role, link, expiresDays)
		return nil
	}

	subject := fmt.Sprintf("%s Invitation", conf.FromName)
	htmlBody := fmt.Sprintf(`
<div style="font-family:Arial,sans-serif; font-size:14px; color:#222">
  <p>Hello,</p>
  <p>You have been invited to join <b>%s</b> as <b>%s</b>. Click the button below to set your password and sign in:</p>
  <p>
    <a href="%s" style="display:inline-block; padding:10px 16px; background:#2563EB; color:#fff; text-decoration:none; border-radius:6px;">
      Accept Invitation
    </a>
  </p>
  <p>Or open this link directly:</p>
  <p><a href="%s">%s</a></p>
  <p>This invitation will expire in %d day(s).</p>
  <hr/>
  <p style="color:#666">If you did not expect this email, you can safely ignore it.</p>
</div>
`, conf.FromName, role, link, link, link, expiresDays)

	msg := buildMIMEWithFromName(conf.FromName, conf.From, toEmail, subject, htmlBody)

	var auth smtp.Auth
	if conf.User != "" {
		auth = smtp.PlainAuth("", conf.User, conf.Pass, conf.Host)
	}
	addr := conf.Host + ":" + conf.Port
	return smtp.SendMail(addr, auth, conf.From, []string{toEmail}, []byte(msg))
}

func buildMIMEWithFromName(fromName, fromAddr, to, subject, html string) string {
	headers := []string{
		fmt.Sprintf("From: %s <%s>", fromName, fromAddr),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
	}
	return strings.Join(headers, "\r\n") + "\r\n\r\n" + html
}
