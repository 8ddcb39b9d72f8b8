package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/farellandr/lanzalife/internal/helpers"
	"github.com/farellandr/lanzalife/internal/models"
)

type ActivityRequest struct {
	Name string `json:"name" binding:"required,max=128"`
}

func ListActivities(c *gin.Context) {
	db, ok := requestDB(c)
	if !ok {
		return
	}

	var activities []models.Activity
	if err := db.Order("name").Find(&activities).Error; err != nil {
		helpers.RespondWithServerError(c, err, "Error retrieving activities.")
		return
	}
	c.JSON(http.StatusOK, activities)
}

func CreateActivity(c *gin.Context) {
	var req ActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		helpers.RespondWithError(c, http.StatusBadRequest, "Activity name is required.")
		return
	}

	db, ok := requestDB(c)
	if !ok {
		return
	}

	activity := models.Activity{Name: strings.TrimSpace(req.Name)}
	if err := db.Create(&activity).Error; err != nil {
		helpers.RespondWithServerError(c, err, "Failed to create activity.")
		return
	}
	c.JSON(http.StatusCreated, activity)
}

func UpdateActivity(c *gin.Context) {
	id, err := helpers.ParseID(c, "id")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid activity ID.")
		return
	}

	var req ActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		helpers.RespondWithError(c, http.StatusBadRequest, "Activity name is required.")
		return
	}

	db, ok := requestDB(c)
	if !ok {
		return
	}

	var activity models.Activity
	if err := db.First(&activity, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Activity not found.")
			return
		}
		helpers.RespondWithServerError(c, err, "Error retrieving activity.")
		return
	}

	activity.Name = strings.TrimSpace(req.Name)
	if err := db.Save(&activity).Error; err != nil {
		helpers.RespondWithServerError(c, err, "Failed to update activity.")
		return
	}
	c.JSON(http.StatusOK, activity)
}

// DeleteActivity refuses to remove an activity that still has events.
func DeleteActivity(c *gin.Context) {
	id, err := helpers.ParseID(c, "id")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid activity ID.")
		return
	}

	db, ok := requestDB(c)
	if !ok {
		return
	}

	var activity models.Activity
	if err := db.First(&activity, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Activity not found.")
			return
		}
		helpers.RespondWithServerError(c, err, "Error retrieving activity.")
		return
	}

	var inUse int64
	if err := db.Model(&models.Event{}).Where("activity_id = ?", activity.ID).Count(&inUse).Error; err != nil {
		helpers.RespondWithServerError(c, err, "Error checking activity usage.")
		return
	}
	if inUse > 0 {
		helpers.RespondWithError(c, http.StatusConflict, "Activity is still used by scheduled events.")
		return
	}

	if err := db.Delete(&activity).Error; err != nil {
		helpers.RespondWithServerError(c, err, "Failed to delete activity.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Activity deleted successfully."})
}
