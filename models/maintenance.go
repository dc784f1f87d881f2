package models

import (
	"fmt"
	"time"
)

type MaintenanceStatus string

const (
	MaintenancePending    MaintenanceStatus = "Pending"
	MaintenanceInProgress MaintenanceStatus = "In-Progress"
	MaintenanceCompleted  MaintenanceStatus = "Completed"
)

func ParseMaintenanceStatus(s string) (MaintenanceStatus, error) {
	switch v := MaintenanceStatus(s); v {
	case MaintenancePending, MaintenanceInProgress, MaintenanceCompleted:
		return v, nil
	}
	return "", fmt.Errorf("invalid maintenance status %q", s)
}

type Maintenance struct {
	ID            string            `gorm:"type:uuid;primaryKey" json:"id"`
	ItemID        *string           `gorm:"type:uuid;index" json:"itemId,omitempty"`
	EquipmentName string            `gorm:"size:255;not null" json:"equipmentName"`
	Issue         string            `gorm:"type:text" json:"issue"`
	Status        MaintenanceStatus `gorm:"size:20;index;not null;default:'Pending'" json:"status"`
	RequestedBy   string            `gorm:"size:255" json:"requestedBy"`
	RequestDate   time.Time         `json:"requestDate"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

func (Maintenance) TableName() string {
	return "lsb_maintenance"
}
