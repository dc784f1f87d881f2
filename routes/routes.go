package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lab_borrow_portal/app"
	"lab_borrow_portal/controllers"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	// 控制器与依赖
	s := controllers.GetSrv(a)
	authCtl := controllers.GetAuthController(s)
	inviteCtl := controllers.GetInviteController(s)
	uc := controllers.GetUserController(s.Repo, s.Sessions, s.Cfg)
	itemCtl := controllers.GetItemController(s)
	mtCtl := controllers.GetMaintenanceController(s)
	reqCtl := controllers.GetRequestController(s.Manager, s.Repo, s.Notifier, s.Repo)

	// 复用的中间件
	authMW := app.AuthRequired(s.Sessions, s.Repo, s.Cfg)
	adminMW := app.AdminOnly()
	staffMW := app.StaffOnly()
	seenMW := app.TouchLastSeen(s.Repo, a.RDB, 5*time.Minute)

	r.GET("/healthz", func(c *app.Ctx) { c.JSON(http.StatusOK, app.H{"ok": true}) })

	// ------------------------------
	// 登录 / 注册（公开+受保护）
	// ------------------------------
	auth := r.Group("/auth")
	{
		auth.POST("/login", authCtl.Login)
		auth.POST("/register", authCtl.Register)
	}
	authed := auth.Group("", authMW, seenMW)
	{
		authed.GET("/whoami", authCtl.WhoAmI)
		authed.POST("/logout", authCtl.Logout)
	}

	// ------------------------------
	// 邀请（仅管理员）
	// ------------------------------
	admin := r.Group("/admin", authMW, adminMW)
	{
		admin.POST("/invites", inviteCtl.CreateInvite)
	}

	// ------------------------------
	// 用户
	// ------------------------------
	users := r.Group("/api/users", authMW, seenMW)
	{
		users.GET("/teachers", uc.ListTeachers)
		users.GET("/:id/history", reqCtl.History)             // 本人或管理端
		users.GET("/:id/assigned-requests", reqCtl.ByTeacher) // 老师本人或管理端
		users.GET("", adminMW, uc.ListUsers)                  // ?q=&page=&size=
		users.GET("/:id", adminMW, uc.GetUser)
		users.PUT("/:id/role", adminMW, uc.SetRole)
		users.DELETE("/:id", adminMW, uc.DeleteUser)
	}

	// ------------------------------
	// 库存
	// ------------------------------
	items := r.Group("/api/items", authMW, seenMW)
	{
		items.GET("", itemCtl.List)
		items.GET("/:id", itemCtl.Get)
		items.POST("", adminMW, itemCtl.Create)
		items.PUT("/:id", adminMW, itemCtl.Update)
		items.DELETE("/:id", adminMW, itemCtl.Delete)
	}

	// ------------------------------
	// 维修单
	// ------------------------------
	mt := r.Group("/api/maintenance", authMW, seenMW)
	{
		mt.GET("", staffMW, mtCtl.List)
		mt.POST("", staffMW, mtCtl.Create)
		mt.PUT("/:id/status", staffMW, mtCtl.UpdateStatus)
	}

	// ------------------------------
	// 借用申请
	// ------------------------------
	reqs := r.Group("/api/requests", authMW, seenMW)
	{
		reqs.POST("", reqCtl.Create)
		reqs.GET("", reqCtl.List) // ?status=&grouped=1
		reqs.GET("/mine", reqCtl.Mine)
		reqs.GET("/events", reqCtl.Events)
		reqs.GET("/:id", reqCtl.Get)
		reqs.GET("/:id/audit", staffMW, reqCtl.Audit)
		reqs.POST("/:id/transitions", reqCtl.Transition)
		reqs.DELETE("/:id", adminMW, reqCtl.Purge)
	}
}
