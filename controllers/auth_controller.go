package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"lab_borrow_portal/app"
	"lab_borrow_portal/db"
	"lab_borrow_portal/lifecycle"
	"lab_borrow_portal/models"
)

const minPasswordLen = 8

type AuthController struct{ *Srv }

func GetAuthController(s *Srv) *AuthController { return &AuthController{Srv: s} }

// POST /auth/login
func (ac *AuthController) Login(c *gin.Context) {
	var in struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}

	u, err := ac.Repo.FindUserByEmail(c.Request.Context(), in.Email)
	if err != nil {
		if errors.Is(err, lifecycle.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		writeErr(c, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	tok, err := ac.issueSession(c.Request.Context(), c.Writer, u, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tok, "user": u})
}

// POST /auth/register 凭邀请注册
func (ac *AuthController) Register(c *gin.Context) {
	var in struct {
		InviteToken string `json:"inviteToken" binding:"required"`
		Password    string `json:"password" binding:"required"`
		FirstName   string `json:"firstName" binding:"required"`
		LastName    string `json:"lastName" binding:"required"`
		Course      string `json:"course"`
		Year        string `json:"year"`
		Department  string `json:"department"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	if len(in.Password) < minPasswordLen {
		badRequest(c, "password must be at least 8 characters")
		return
	}

	ctx := c.Request.Context()
	inv, err := ac.Repo.GetInviteByToken(ctx, in.InviteToken)
	if err != nil {
		if errors.Is(err, lifecycle.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invite"})
			return
		}
		writeErr(c, err)
		return
	}
	if inv.UsedAt != nil || time.Now().After(inv.ExpiresAt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invite expired or already used"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		writeErr(c, err)
		return
	}

	// 先占用邀请，防止同一个 token 并发注册两次
	if err := ac.Repo.MarkInviteUsed(ctx, inv.Token); err != nil {
		if errors.Is(err, db.ErrInviteUsed) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		writeErr(c, err)
		return
	}

	u := &models.User{
		ID:           uuid.NewString(),
		Email:        inv.Email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         inv.Role,
		PasswordHash: string(hash),
		Course:       in.Course,
		Year:         in.Year,
		Department:   in.Department,
	}
	if err := ac.Repo.CreateUser(ctx, u); err != nil {
		writeErr(c, err)
		return
	}

	tok, err := ac.issueSession(ctx, c.Writer, u, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": tok, "user": u})
}

// POST /auth/logout 撤销当前会话，Cookie 置空
func (ac *AuthController) Logout(c *gin.Context) {
	if cl := app.ClaimsFrom(c); cl != nil {
		_ = ac.Sessions.Revoke(c.Request.Context(), cl)
	}
	ac.setAppCookie(c.Writer, "", -time.Second)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GET /auth/whoami
func (ac *AuthController) WhoAmI(c *gin.Context) {
	u := app.UserFrom(c)
	if u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u, "role": app.ActorFrom(c).Role})
}
