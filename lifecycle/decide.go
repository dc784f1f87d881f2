package lifecycle

import (
	"fmt"
	"time"

	"lab_borrow_portal/models"
)

type transitionKey struct {
	from  models.Status
	event Event
}

type transition struct {
	to      models.Status
	allowed func(req models.BorrowRequest, a Actor) bool
	apply   func(req *models.BorrowRequest, a Actor, now time.Time, loc *time.Location)
}

// transitions 就是整个状态机，没列出来的组合都不合法
var transitions = map[transitionKey]transition{
	{models.StatusPendingTeacher, EventApprove}: {
		to:      models.StatusPendingAdmin,
		allowed: assignedTeacherOrAdmin,
		apply: func(req *models.BorrowRequest, a Actor, now time.Time, _ *time.Location) {
			req.TeacherApprovedBy = a.label()
			req.TeacherApprovedAt = &now
		},
	},
	{models.StatusPendingTeacher, EventDeny}: {
		to:      models.StatusDenied,
		allowed: assignedTeacherOrAdmin,
		apply:   decide,
	},
	{models.StatusPendingAdmin, EventApprove}: {
		to:      models.StatusApproved,
		allowed: staffOnly,
		apply: func(req *models.BorrowRequest, a Actor, now time.Time, loc *time.Location) {
			decide(req, a, now, loc)
			req.AdminApprovedBy = a.label()
			req.AdminApprovedAt = &now
		},
	},
	{models.StatusPendingAdmin, EventDeny}: {
		to:      models.StatusDenied,
		allowed: staffOnly,
		apply:   decide,
	},
	{models.StatusApproved, EventReturn}: {
		to:      models.StatusReturned,
		allowed: returnDesk,
		apply: func(req *models.BorrowRequest, a Actor, now time.Time, loc *time.Location) {
			req.ReturnTime = &now
			req.ReturnedBy = a.label()
			// decisionTime 只在 Approved/Denied 上保留，adminApprovedAt 记住管理员批准的时刻
			req.DecisionTime = nil
			req.DecidedBy = ""
			l := ComputeLateness(*req, now, loc)
			req.IsLate, req.DaysLate, req.HoursLate = l.IsLate, l.DaysLate, l.HoursLate
		},
	},
	{models.StatusPendingTeacher, EventCancel}: {
		to:      models.StatusCancelled,
		allowed: ownerStudent,
	},
	{models.StatusPendingAdmin, EventCancel}: {
		to:      models.StatusCancelled,
		allowed: ownerStudent,
	},
}

func decide(req *models.BorrowRequest, a Actor, now time.Time, _ *time.Location) {
	req.DecisionTime = &now
	req.DecidedBy = a.label()
}

func assignedTeacherOrAdmin(req models.BorrowRequest, a Actor) bool {
	if a.Role == models.RoleAdmin {
		return true
	}
	return a.Role == models.RoleTeacher && req.TeacherID != "" && a.ID == req.TeacherID
}

func staffOnly(_ models.BorrowRequest, a Actor) bool {
	return a.Role.IsStaff()
}

func returnDesk(_ models.BorrowRequest, a Actor) bool {
	return a.Role.IsStaff() || a.Role == models.RoleTeacher
}

func ownerStudent(req models.BorrowRequest, a Actor) bool {
	return a.Role == models.RoleStudent && a.ID == req.RequesterID
}

func lookup(req models.BorrowRequest, a Actor, ev Event) (transition, error) {
	from, err := models.ParseStatus(string(req.Status))
	if err != nil {
		return transition{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	t, ok := transitions[transitionKey{from, ev}]
	if !ok {
		return transition{}, fmt.Errorf("%w: cannot %s a request in status %s", ErrInvalidTransition, ev, from)
	}
	if a.IsZero() {
		return transition{}, ErrUnauthenticated
	}
	if !t.allowed(req, a) {
		return transition{}, fmt.Errorf("%w: %s may not %s this request", ErrForbidden, a.Role, ev)
	}
	return t, nil
}

// CanTransition 判断 actor 现在能否对 req 执行 ev
func CanTransition(req models.BorrowRequest, a Actor, ev Event) bool {
	_, err := lookup(req, a, ev)
	return err == nil
}

// AllowedEvents 按固定顺序列出 actor 可以对 req 执行的事件
func AllowedEvents(req models.BorrowRequest, a Actor) []Event {
	var out []Event
	for _, ev := range []Event{EventApprove, EventDeny, EventReturn, EventCancel} {
		if CanTransition(req, a, ev) {
			out = append(out, ev)
		}
	}
	return out
}

// Decide 返回执行 ev 之后记录应有的样子，不碰存储
// 先检查 (状态, 事件) 是否合法再检查操作人，已结束的申请一律返回 ErrInvalidTransition
func Decide(req models.BorrowRequest, a Actor, ev Event, now time.Time, loc *time.Location) (models.BorrowRequest, error) {
	t, err := lookup(req, a, ev)
	if err != nil {
		return models.BorrowRequest{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	next := req.Clone()
	next.Status = t.to
	next.UpdatedAt = now
	if t.apply != nil {
		t.apply(&next, a, now, loc)
	}
	return next, nil
}
