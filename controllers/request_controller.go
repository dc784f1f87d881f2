package controllers

import (
	"context"
	"errors"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"lab_borrow_portal/app"
	"lab_borrow_portal/lifecycle"
	"lab_borrow_portal/models"
)

const sseHeartbeat = 25 * time.Second

type AuditLister interface {
	ListAudit(ctx context.Context, requestID string) ([]models.AuditLog, error)
}

type ChangeSubscriber interface {
	Subscribe(ctx context.Context) (<-chan lifecycle.Change, error)
}

type RequestController struct {
	mgr    *lifecycle.Manager
	audit  AuditLister
	events ChangeSubscriber
	users  app.UserLookup
}

func GetRequestController(mgr *lifecycle.Manager, audit AuditLister, events ChangeSubscriber, users app.UserLookup) *RequestController {
	return &RequestController{mgr: mgr, audit: audit, events: events, users: users}
}

// ?status=Approved,Returned 或 ?status=Approved&status=Returned
func parseStatuses(c *gin.Context) ([]models.Status, error) {
	var out []models.Status
	for _, raw := range c.QueryArray("status") {
		for _, s := range strings.Split(raw, ",") {
			if strings.TrimSpace(s) == "" {
				continue
			}
			st, err := models.ParseStatus(s)
			if err != nil {
				return nil, &lifecycle.ValidationError{Problems: []string{err.Error()}}
			}
			out = append(out, st)
		}
	}
	return out, nil
}

func (rc *RequestController) respondList(c *gin.Context, it iter.Seq2[models.BorrowRequest, error], err error) {
	if err != nil {
		writeErr(c, err)
		return
	}
	reqs, err := lifecycle.CollectAll(it)
	if err != nil {
		writeErr(c, err)
		return
	}
	if c.Query("grouped") == "1" {
		c.JSON(http.StatusOK, gin.H{
			"groups": lifecycle.GroupByCreationDay(reqs, rc.mgr.Now(), rc.mgr.Location()),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs})
}

// POST /api/requests
func (rc *RequestController) Create(c *gin.Context) {
	var p lifecycle.CreatePayload
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err.Error())
		return
	}
	a := app.ActorFrom(c)
	id, err := rc.mgr.CreateRequest(c.Request.Context(), a, p)
	if err != nil {
		writeErr(c, err)
		return
	}
	r, err := rc.mgr.Get(c.Request.Context(), a, id)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "request": r})
}

// GET /api/requests?status=&grouped=1
func (rc *RequestController) List(c *gin.Context) {
	statuses, err := parseStatuses(c)
	if err != nil {
		writeErr(c, err)
		return
	}
	it, err := rc.mgr.ListByRole(c.Request.Context(), app.ActorFrom(c), statuses...)
	rc.respondList(c, it, err)
}

// GET /api/requests/mine
func (rc *RequestController) Mine(c *gin.Context) {
	a := app.ActorFrom(c)
	it, err := rc.mgr.ListByRequester(c.Request.Context(), a, a.ID)
	rc.respondList(c, it, err)
}

// GET /api/users/:id/assigned-requests?status= 指定给某位老师审批的申请
func (rc *RequestController) ByTeacher(c *gin.Context) {
	statuses, err := parseStatuses(c)
	if err != nil {
		writeErr(c, err)
		return
	}
	it, err := rc.mgr.ListByTeacher(c.Request.Context(), app.ActorFrom(c), c.Param("id"), statuses...)
	rc.respondList(c, it, err)
}

// GET /api/requests/:id
func (rc *RequestController) Get(c *gin.Context) {
	r, err := rc.mgr.Get(c.Request.Context(), app.ActorFrom(c), c.Param("id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": r})
}

// POST /api/requests/:id/transitions {"event":"approve"}
func (rc *RequestController) Transition(c *gin.Context) {
	var in struct {
		Event string `json:"event" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	ev, err := lifecycle.ParseEvent(in.Event)
	if err != nil {
		writeErr(c, err)
		return
	}
	r, err := rc.mgr.ApplyTransition(c.Request.Context(), c.Param("id"), ev, app.ActorFrom(c))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": r})
}

// DELETE /api/requests/:id 管理员直接删除，不走状态机
func (rc *RequestController) Purge(c *gin.Context) {
	if err := rc.mgr.Purge(c.Request.Context(), app.ActorFrom(c), c.Param("id")); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GET /api/requests/:id/audit
func (rc *RequestController) Audit(c *gin.Context) {
	if rc.audit == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "audit log not configured"})
		return
	}
	id := c.Param("id")
	if _, err := rc.mgr.Get(c.Request.Context(), app.ActorFrom(c), id); err != nil {
		writeErr(c, err)
		return
	}
	logs, err := rc.audit.ListAudit(c.Request.Context(), id)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audit": logs})
}

// GET /api/users/:id/history
func (rc *RequestController) History(c *gin.Context) {
	userID := c.Param("id")
	h, err := rc.mgr.BorrowHistory(c.Request.Context(), app.ActorFrom(c), userID)
	if err != nil {
		writeErr(c, err)
		return
	}
	body := gin.H{"history": h}

	// 用户表里的计数（可能包含已清理的旧申请）
	if rc.users != nil {
		u, err := rc.users.FindUserByID(c.Request.Context(), userID)
		switch {
		case err == nil:
			body["lateReturnCount"] = u.LateReturnCount
			body["lastLateReturnAt"] = u.LastLateReturnAt
		case !errors.Is(err, lifecycle.ErrNotFound):
			writeErr(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, body)
}

// GET /api/requests/events  Server-Sent Events，只推送当前用户能看到的申请
func (rc *RequestController) Events(c *gin.Context) {
	if rc.events == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "change stream not configured"})
		return
	}
	a := app.ActorFrom(c)
	ctx := c.Request.Context()
	changes, err := rc.events.Subscribe(ctx)
	if err != nil {
		writeErr(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	hb := time.NewTicker(sseHeartbeat)
	defer hb.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-hb.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		case ch, ok := <-changes:
			if !ok {
				return false
			}
			if lifecycle.Visible(ch.Request, a) {
				c.SSEvent("change", ch)
			}
			return true
		}
	})
}
