package models

import "time"

// AuditLog 每次成功提交的状态流转写一行
type AuditLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RequestID  string    `gorm:"type:uuid;index;not null" json:"requestId"`
	ActorID    string    `gorm:"size:64;index" json:"actorId"`
	ActorRole  Role      `gorm:"size:20" json:"actorRole"`
	Event      string    `gorm:"size:20;not null" json:"event"`
	FromStatus Status    `gorm:"size:20" json:"fromStatus"`
	ToStatus   Status    `gorm:"size:20;not null" json:"toStatus"`
	CreatedAt  time.Time `gorm:"index" json:"createdAt"`
}

func (AuditLog) TableName() string {
	return "lsb_request_audit"
}
