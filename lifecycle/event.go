package lifecycle

import (
	"fmt"
	"strings"

	"lab_borrow_portal/models"
)

// Event 是调用方请求的动作，目标状态由服务端推出，客户端不能指定
type Event string

const (
	EventApprove Event = "approve"
	EventDeny    Event = "deny"
	EventReturn  Event = "return"
	EventCancel  Event = "cancel"
)

func ParseEvent(s string) (Event, error) {
	switch e := Event(strings.ToLower(strings.TrimSpace(s))); e {
	case EventApprove, EventDeny, EventReturn, EventCancel:
		return e, nil
	}
	return "", &ValidationError{Problems: []string{fmt.Sprintf("unknown event %q", s)}}
}

// Actor 是已登录的调用方，每个操作都显式传入
type Actor struct {
	ID   string
	Role models.Role
	Name string
}

func (a Actor) IsZero() bool { return a.ID == "" }

func (a Actor) label() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}
