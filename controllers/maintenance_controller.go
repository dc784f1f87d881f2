package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"lab_borrow_portal/app"
	"lab_borrow_portal/models"
)

type MaintenanceController struct{ *Srv }

func GetMaintenanceController(s *Srv) *MaintenanceController {
	return &MaintenanceController{Srv: s}
}

// GET /api/maintenance?status=
func (mc *MaintenanceController) List(c *gin.Context) {
	var status models.MaintenanceStatus
	if s := c.Query("status"); s != "" {
		v, err := models.ParseMaintenanceStatus(s)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		status = v
	}
	out, err := mc.Repo.ListMaintenance(c.Request.Context(), status)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": out})
}

// POST /api/maintenance
func (mc *MaintenanceController) Create(c *gin.Context) {
	var in struct {
		ItemID        string `json:"itemId"`
		EquipmentName string `json:"equipmentName" binding:"required"`
		Issue         string `json:"issue"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}

	now := time.Now()
	m := &models.Maintenance{
		ID:            uuid.NewString(),
		EquipmentName: strings.TrimSpace(in.EquipmentName),
		Issue:         in.Issue,
		Status:        models.MaintenancePending,
		RequestedBy:   app.ActorFrom(c).Name,
		RequestDate:   now,
	}
	if in.ItemID != "" {
		if _, err := uuid.Parse(in.ItemID); err != nil {
			badRequest(c, "invalid itemId")
			return
		}
		m.ItemID = &in.ItemID
	}
	if err := mc.Repo.CreateMaintenance(c.Request.Context(), m); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ticket": m})
}

// PUT /api/maintenance/:id/status
func (mc *MaintenanceController) UpdateStatus(c *gin.Context) {
	var in struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	st, err := models.ParseMaintenanceStatus(in.Status)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	m, err := mc.Repo.UpdateMaintenanceStatus(c.Request.Context(), c.Param("id"), st)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": m})
}
