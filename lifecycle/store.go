package lifecycle

import (
	"context"
	"time"

	"lab_borrow_portal/models"
)

type Order int

const (
	// OrderCreatedDesc 创建时间新的在前
	OrderCreatedDesc Order = iota
	// OrderBorrowDateDesc 借用日期新的在前，相同再按创建时间
	OrderBorrowDateDesc
)

// Query 各条件取交集，零值不过滤
type Query struct {
	RequesterID string
	TeacherID   string
	Statuses    []models.Status

	// AdminStage 只保留没有指定老师或老师已批准的申请
	AdminStage bool

	Order  Order
	Offset int
	Limit  int
}

// Match 对单条记录应用 q，没有查询语言的存储用它
func (q Query) Match(r models.BorrowRequest) bool {
	if q.RequesterID != "" && r.RequesterID != q.RequesterID {
		return false
	}
	if q.TeacherID != "" && r.TeacherID != q.TeacherID {
		return false
	}
	if q.AdminStage && !r.ReachedAdminStage() {
		return false
	}
	if len(q.Statuses) > 0 {
		ok := false
		for _, s := range q.Statuses {
			if r.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// Less 按 q.Order 比较两条记录
func (q Query) Less(a, b models.BorrowRequest) bool {
	if q.Order == OrderBorrowDateDesc && a.BorrowDate != b.BorrowDate {
		return a.BorrowDate > b.BorrowDate
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}

// Store 保存借用申请。UpdateRequest 是条件写入：只有存储中的状态仍等于 expected 才写入
// 否则返回 ErrConflict，记录不存在返回 ErrNotFound，返回值是写入后的记录
// 驱动把超时包装成 ErrTransient
type Store interface {
	CreateRequest(ctx context.Context, r *models.BorrowRequest) error
	GetRequest(ctx context.Context, id string) (models.BorrowRequest, error)
	QueryRequests(ctx context.Context, q Query) ([]models.BorrowRequest, error)
	UpdateRequest(ctx context.Context, r models.BorrowRequest, expected models.Status) (models.BorrowRequest, error)
	DeleteRequest(ctx context.Context, id string) error
}

// Change 在状态转换提交后发布
type Change struct {
	RequestID string               `json:"requestId"`
	Event     string               `json:"event"`
	From      models.Status        `json:"from,omitempty"`
	To        models.Status        `json:"to"`
	ActorID   string               `json:"actorId"`
	At        time.Time            `json:"at"`
	Request   models.BorrowRequest `json:"request"`
}

type Notifier interface {
	Publish(ctx context.Context, c Change) error
}

type AuditRecorder interface {
	LogTransition(ctx context.Context, entry models.AuditLog) error
}

// ProfileLookup 创建申请时读取学生的课程和年级
type ProfileLookup interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
}

type LateReturnRecorder interface {
	RecordLateReturn(ctx context.Context, userID string, at time.Time) error
}
