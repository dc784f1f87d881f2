package models

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleStudent      Role = "student"
	RoleTeacher      Role = "teacher"
	RoleLabAssistant Role = "lab_assistant"
	RoleAdmin        Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleStudent, RoleTeacher, RoleLabAssistant, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("invalid role %q", s)
}

// IsStaff 管理员和实验室助理共享管理端的视图
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleLabAssistant
}

type User struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	Email        string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	FirstName    string `gorm:"size:120" json:"firstName"`
	LastName     string `gorm:"size:120" json:"lastName"`
	Role         Role   `gorm:"size:20;index;not null;default:'student'" json:"role"`
	PasswordHash string `gorm:"size:100;not null" json:"-"`

	// 学生资料，可选
	Course     string `gorm:"size:120" json:"course,omitempty"`
	Year       string `gorm:"size:20" json:"year,omitempty"`
	Department string `gorm:"size:120" json:"department,omitempty"`

	LateReturnCount  int        `gorm:"not null;default:0" json:"lateReturnCount"`
	LastLateReturnAt *time.Time `json:"lastLateReturnAt,omitempty"`

	LastLoginAt *time.Time `gorm:"index" json:"lastLoginAt,omitempty"`
	LastSeenAt  *time.Time `gorm:"index" json:"lastSeenAt,omitempty"`
	LoginCount  int64      `gorm:"not null;default:0" json:"loginCount"`
	LastLoginIP string     `gorm:"size:45" json:"-"`
	LastLoginUA string     `gorm:"size:255" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "lsb_users"
}

func (u User) FullName() string {
	n := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if n == "" {
		return u.Email
	}
	return n
}
