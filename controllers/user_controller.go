package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"lab_borrow_portal/app"
	"lab_borrow_portal/config"
	"lab_borrow_portal/db"
	"lab_borrow_portal/models"
	"lab_borrow_portal/session"
)

type UserController struct {
	repo     *db.Repo
	sessions *session.Issuer
	cfg      config.Config
}

func GetUserController(repo *db.Repo, sessions *session.Issuer, cfg config.Config) *UserController {
	return &UserController{repo: repo, sessions: sessions, cfg: cfg}
}

// GET /api/users?q=alice&page=1&size=20
func (uc *UserController) ListUsers(c *gin.Context) {
	q := c.Query("q")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	res, err := uc.repo.ListUsers(c.Request.Context(), q, page, size)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"total": res.Total,
		"users": res.Users,
	})
}

// GET /api/users/teachers 申请表的老师下拉框
func (uc *UserController) ListTeachers(c *gin.Context) {
	ts, err := uc.repo.ListTeachers(c.Request.Context())
	if err != nil {
		writeErr(c, err)
		return
	}
	out := make([]app.H, 0, len(ts))
	for _, t := range ts {
		out = append(out, app.H{"id": t.ID, "name": t.FullName(), "email": t.Email})
	}
	c.JSON(http.StatusOK, app.H{"teachers": out})
}

// GET /api/users/:id
func (uc *UserController) GetUser(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		badRequest(c, "invalid uuid")
		return
	}
	user, err := uc.repo.FindUserByID(c.Request.Context(), id)
	if err != nil {
		writeErr(c, err)
		return
	}
	active, _ := uc.sessions.ActiveSessions(c.Request.Context(), id) // 查不到按 0
	c.JSON(http.StatusOK, app.H{"user": user, "activeSessions": active})
}

// PUT /api/users/:id/role
func (uc *UserController) SetRole(c *gin.Context) {
	id := c.Param("id")
	var in struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	role, err := models.ParseRole(in.Role)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	// 不允许给自己降级，避免最后一个管理员把自己锁在外面
	if app.ActorFrom(c).ID == id && role != models.RoleAdmin {
		badRequest(c, "cannot change your own role")
		return
	}
	if err := uc.repo.SetUserRole(c.Request.Context(), id, role); err != nil {
		writeErr(c, err)
		return
	}
	// 角色变化后旧 token 里的角色快照作废
	_ = uc.sessions.RevokeAllForUser(c.Request.Context(), id)
	c.JSON(http.StatusOK, app.H{"ok": true, "role": role})
}

// DELETE /api/users/:id
func (uc *UserController) DeleteUser(c *gin.Context) {
	id := c.Param("id")

	// 不允许删除自己，避免锁死
	if app.ActorFrom(c).ID == id {
		badRequest(c, "cannot delete yourself")
		return
	}

	target, err := uc.repo.FindUserByID(c.Request.Context(), id)
	if err != nil {
		writeErr(c, err)
		return
	}
	if uc.cfg.IsAdminEmail(target.Email) {
		c.JSON(http.StatusForbidden, app.H{"error": "cannot delete an admin"})
		return
	}

	if err := uc.repo.DeleteUserByID(c.Request.Context(), id); err != nil {
		writeErr(c, err)
		return
	}
	// 撤销该用户的所有登录会话
	_ = uc.sessions.RevokeAllForUser(c.Request.Context(), id)
	c.JSON(http.StatusOK, app.H{"ok": true})
}
