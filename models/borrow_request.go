// models/borrow_request.go
package models

import "time"

const BorrowRequestTable = "lsb_borrow_requests"

// RequestItem 一条申请里的一行物品；整张申请只有一个状态，不存在按行审批
type RequestItem struct {
	ItemID   string `json:"id" bson:"id"`
	Name     string `json:"name" bson:"name"`
	Quantity int    `json:"quantity" bson:"quantity"`
}

type BorrowRequest struct {
	ID            string `gorm:"type:uuid;primaryKey" json:"id" bson:"_id"`
	RequesterID   string `gorm:"size:64;index;not null" json:"requesterId" bson:"requesterId"`
	RequesterName string `gorm:"size:255" json:"requesterName" bson:"requesterName"`

	// 创建时从学生资料拷贝的快照，之后改资料不影响旧申请
	RequesterCourse string `gorm:"size:120" json:"requesterCourse,omitempty" bson:"requesterCourse,omitempty"`
	RequesterYear   string `gorm:"size:20" json:"requesterYear,omitempty" bson:"requesterYear,omitempty"`

	Items []RequestItem `gorm:"serializer:json;type:jsonb;not null" json:"items" bson:"items"`

	BorrowDate string `gorm:"size:10;index;not null" json:"borrowDate" bson:"borrowDate"` // YYYY-MM-DD
	StartTime  string `gorm:"size:5;not null" json:"startTime" bson:"startTime"`           // HH:MM
	EndTime    string `gorm:"size:5;not null" json:"endTime" bson:"endTime"`               // HH:MM
	TimeRange  string `gorm:"size:40" json:"timeRange" bson:"timeRange"`                   // "3:00 PM - 4:30 PM"

	Reason       string   `gorm:"type:text;not null" json:"reason" bson:"reason"`
	GroupMembers []string `gorm:"serializer:json;type:jsonb" json:"groupMembers,omitempty" bson:"groupMembers,omitempty"`

	TeacherID   string `gorm:"size:64;index;not null;default:''" json:"teacherId,omitempty" bson:"teacherId"`
	TeacherName string `gorm:"size:255" json:"teacherName,omitempty" bson:"teacherName,omitempty"`

	Status Status `gorm:"size:20;index;not null" json:"status" bson:"status"`

	TeacherApprovedBy string     `gorm:"size:255" json:"teacherApprovedBy,omitempty" bson:"teacherApprovedBy,omitempty"`
	TeacherApprovedAt *time.Time `gorm:"index" json:"teacherApprovedAt,omitempty" bson:"teacherApprovedAt"`
	AdminApprovedBy   string     `gorm:"size:255" json:"adminApprovedBy,omitempty" bson:"adminApprovedBy,omitempty"`
	AdminApprovedAt   *time.Time `json:"adminApprovedAt,omitempty" bson:"adminApprovedAt"`

	// 仅在 Approved / Denied 时有值
	DecisionTime *time.Time `json:"decisionTime,omitempty" bson:"decisionTime"`
	DecidedBy    string     `gorm:"size:255" json:"decidedBy,omitempty" bson:"decidedBy,omitempty"`

	// 仅在 Returned 时有值
	ReturnTime *time.Time `gorm:"index" json:"returnTime,omitempty" bson:"returnTime"`
	ReturnedBy string     `gorm:"size:255" json:"returnedBy,omitempty" bson:"returnedBy,omitempty"`

	IsLate    bool `gorm:"not null;default:false" json:"isLate" bson:"isLate"`
	DaysLate  int  `gorm:"not null;default:0" json:"daysLate" bson:"daysLate"`
	HoursLate int  `gorm:"not null;default:0" json:"hoursLate" bson:"hoursLate"`

	CreatedAt time.Time `gorm:"index;not null" json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false" json:"updatedAt" bson:"updatedAt"`
}

func (BorrowRequest) TableName() string { return BorrowRequestTable }

// TotalQuantity 所有行的数量之和（不和库存比对）
func (r BorrowRequest) TotalQuantity() int {
	n := 0
	for _, it := range r.Items {
		n += it.Quantity
	}
	return n
}

// ReachedAdminStage 没有指定老师，或老师已批准
func (r BorrowRequest) ReachedAdminStage() bool {
	return r.TeacherID == "" || r.TeacherApprovedAt != nil
}

// Clone 深拷贝切片，内存存储返回副本用
func (r BorrowRequest) Clone() BorrowRequest {
	c := r
	if r.Items != nil {
		c.Items = append([]RequestItem(nil), r.Items...)
	}
	if r.GroupMembers != nil {
		c.GroupMembers = append([]string(nil), r.GroupMembers...)
	}
	return c
}
