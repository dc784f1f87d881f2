package models

import "time"

type ItemStatus string

const (
	ItemAvailable ItemStatus = "Available"
	ItemBorrowed  ItemStatus = "Borrowed"
)

// Item 库存物品；审批不会扣减 Quantity
type Item struct {
	ID          string     `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string     `gorm:"size:255;index;not null" json:"name"`
	Description string     `gorm:"type:text" json:"description"`
	Condition   string     `gorm:"size:64" json:"condition"`
	Quantity    int        `gorm:"not null;default:0" json:"quantity"`
	Status      ItemStatus `gorm:"size:20;not null;default:'Available'" json:"status"`
	ImagePath   string     `gorm:"size:500" json:"imagePath,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (Item) TableName() string {
	return "lsb_items"
}
