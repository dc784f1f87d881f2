package models

import (
	"errors"
	"fmt"
	"strings"
)

// Status 借用申请的状态，只允许下面六个值
type Status string

const (
	StatusPendingTeacher Status = "Pending-Teacher"
	StatusPendingAdmin   Status = "Pending-Admin"
	StatusApproved       Status = "Approved"
	StatusDenied         Status = "Denied"
	StatusReturned       Status = "Returned"
	StatusCancelled      Status = "Cancelled"

	// 旧数据里的 "Pending" 等同于 Pending-Admin
	statusPendingAlias = "Pending"
)

var ErrInvalidStatus = errors.New("invalid status")

var AllStatuses = []Status{
	StatusPendingTeacher,
	StatusPendingAdmin,
	StatusApproved,
	StatusDenied,
	StatusReturned,
	StatusCancelled,
}

func ParseStatus(s string) (Status, error) {
	s = strings.TrimSpace(s)
	if s == statusPendingAlias {
		return StatusPendingAdmin, nil
	}
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil && s != statusPendingAlias
}

// IsTerminal: Returned / Denied / Cancelled 之后不能再流转
func (s Status) IsTerminal() bool {
	return s == StatusReturned || s == StatusDenied || s == StatusCancelled
}

// IsPending 仍在审批中（老师或管理员阶段）
func (s Status) IsPending() bool {
	return s == StatusPendingTeacher || s == StatusPendingAdmin
}

// UnmarshalText 在 JSON 边界上拒绝非法状态
func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
