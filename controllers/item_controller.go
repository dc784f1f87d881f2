package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"lab_borrow_portal/models"
)

type ItemController struct{ *Srv }

func GetItemController(s *Srv) *ItemController { return &ItemController{Srv: s} }

type itemInput struct {
	Name        string            `json:"name" binding:"required"`
	Description string            `json:"description"`
	Condition   string            `json:"condition"`
	Quantity    int               `json:"quantity" binding:"gte=0"`
	Status      models.ItemStatus `json:"status"`
	ImagePath   string            `json:"imagePath"`
}

func (in itemInput) apply(it *models.Item) {
	it.Name = strings.TrimSpace(in.Name)
	it.Description = in.Description
	it.Condition = in.Condition
	it.Quantity = in.Quantity
	it.Status = in.Status
	if it.Status == "" {
		it.Status = models.ItemAvailable
	}
	it.ImagePath = in.ImagePath
}

func validItemStatus(s models.ItemStatus) bool {
	return s == "" || s == models.ItemAvailable || s == models.ItemBorrowed
}

// GET /api/items?q=&status=
func (ic *ItemController) List(c *gin.Context) {
	status := models.ItemStatus(c.Query("status"))
	if !validItemStatus(status) {
		badRequest(c, "invalid item status")
		return
	}
	items, err := ic.Repo.ListItems(c.Request.Context(), c.Query("q"), status)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GET /api/items/:id
func (ic *ItemController) Get(c *gin.Context) {
	it, err := ic.Repo.FindItemByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": it})
}

// POST /api/items
func (ic *ItemController) Create(c *gin.Context) {
	var in itemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	if !validItemStatus(in.Status) {
		badRequest(c, "invalid item status")
		return
	}
	it := &models.Item{ID: uuid.NewString()}
	in.apply(it)
	if err := ic.Repo.CreateItem(c.Request.Context(), it); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"item": it})
}

// PUT /api/items/:id
func (ic *ItemController) Update(c *gin.Context) {
	var in itemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	if !validItemStatus(in.Status) {
		badRequest(c, "invalid item status")
		return
	}
	it := &models.Item{ID: c.Param("id")}
	in.apply(it)
	if err := ic.Repo.UpdateItem(c.Request.Context(), it); err != nil {
		writeErr(c, err)
		return
	}
	got, err := ic.Repo.FindItemByID(c.Request.Context(), it.ID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": got})
}

// DELETE /api/items/:id
func (ic *ItemController) Delete(c *gin.Context) {
	if err := ic.Repo.DeleteItem(c.Request.Context(), c.Param("id")); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
