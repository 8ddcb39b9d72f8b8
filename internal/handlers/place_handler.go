package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/farellandr/lanzalife/internal/helpers"
	"github.com/farellandr/lanzalife/internal/logging"
	"github.com/farellandr/lanzalife/internal/models"
	"github.com/farellandr/lanzalife/internal/search"
)

type PlaceRequest struct {
	Name        string   `json:"name" binding:"required"`
	Address     string   `json:"address" binding:"required"`
	Area        string   `json:"area" binding:"required"`
	Latitude    *float64 `json:"latitude" binding:"required,gte=-90,lte=90"`
	Longitude   *float64 `json:"longitude" binding:"required,gte=-180,lte=180"`
	Description *string  `json:"description"`
	UserID      *uint    `json:"user_id"`
}

func bindPlace(c *gin.Context) (PlaceRequest, bool) {
	var req PlaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return req, false
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Address = strings.TrimSpace(req.Address)
	if req.Name == "" || req.Address == "" {
		helpers.RespondWithError(c, http.StatusBadRequest, "Name and address are required.")
		return req, false
	}
	if !models.IsValidArea(req.Area) {
		helpers.RespondWithError(c, http.StatusBadRequest, "Unknown area. Allowed: "+strings.Join(models.Areas, ", ")+".")
		return req, false
	}
	return req, true
}

// loadManagedPlace fetches the place named by the :id parameter and checks
// that the caller may modify it.
func loadManagedPlace(c *gin.Context, db *gorm.DB) (*models.Place, bool) {
	id, err := helpers.ParseID(c, "id")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid place ID.")
		return nil, false
	}
	identity, ok := requestIdentity(c)
	if !ok {
		return nil, false
	}

	var place models.Place
	if err := db.First(&place, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Place not found.")
			return nil, false
		}
		helpers.RespondWithServerError(c, err, "Error retrieving place.")
		return nil, false
	}

	if !canManage(identity, &place) {
		helpers.RespondWithError(c, http.StatusForbidden, "You do not have permission to manage this place.")
		return nil, false
	}
	return &place, true
}

// SearchPlaces is the public place search: area, activity, day and nearMe
// filters, each place with its matching events attached.
func SearchPlaces(c *gin.Context) {
	filter, err := search.ParseFilter(c.Request.URL.Query())
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	db, ok := requestDB(c)
	if !ok {
		return
	}

	places, err := search.FindPlaces(c.Request.Context(), db, filter)
	if err != nil {
		helpers.RespondWithServerError(c, err, "Error retrieving places.")
		return
	}
	c.JSON(http.StatusOK, places)
}

func GetPlace(c *gin.Context) {
	id, err := helpers.ParseID(c, "id")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid place ID.")
		return
	}

	db, ok := requestDB(c)
	if !ok {
		return
	}

	var place models.Place
	err = db.Preload("Events", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("start_time")
	}).Preload("Events.Activity").First(&place, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Place not found.")
			return
		}
		helpers.RespondWithServerError(c, err, "Error retrieving place.")
		return
	}
	c.JSON(http.StatusOK, place)
}

func CreatePlace(c *gin.Context) {
	req, ok := bindPlace(c)
	if !ok {
		return
	}
	identity, ok := requestIdentity(c)
	if !ok {
		return
	}
	db, ok := requestDB(c)
	if !ok {
		return
	}

	ownerID := identity.UserID
	if identity.Role == models.RoleAdmin && req.UserID != nil {
		var owner models.User
		if err := db.First(&owner, *req.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				helpers.RespondWithError(c, http.StatusBadRequest, "Owner not found.")
				return
			}
			helpers.RespondWithServerError(c, err, "Error retrieving owner.")
			return
		}
		ownerID = owner.ID
	}

	place := models.Place{
		Name:        req.Name,
		Address:     req.Address,
		Area:        req.Area,
		Latitude:    *req.Latitude,
		Longitude:   *req.Longitude,
		Description: req.Description,
		UserID:      &ownerID,
	}
	if err := db.Create(&place).Error; err != nil {
		helpers.RespondWithServerError(c, err, "Failed to create place.")
		return
	}

	c.JSON(http.StatusCreated, place)
}

func UpdatePlace(c *gin.Context) {
	req, ok := bindPlace(c)
	if !ok {
		return
	}
	db, ok := requestDB(c)
	if !ok {
		return
	}
	place, ok := loadManagedPlace(c, db)
	if !ok {
		return
	}
	identity, _ := requestIdentity(c)

	place.Name = req.Name
	place.Address = req.Address
	place.Area = req.Area
	place.Latitude = *req.Latitude
	place.Longitude = *req.Longitude
	place.Description = req.Description
	if identity.Role == models.RoleAdmin && req.UserID != nil {
		var owner models.User
		if err := db.First(&owner, *req.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				helpers.RespondWithError(c, http.StatusBadRequest, "Owner not found.")
				return
			}
			helpers.RespondWithServerError(c, err, "Error retrieving owner.")
			return
		}
		place.UserID = &owner.ID
	}

	if err := db.Save(place).Error; err != nil {
		helpers.RespondWithServerError(c, err, "Failed to update place.")
		return
	}
	c.JSON(http.StatusOK, place)
}

// DeletePlace removes the place, its events and its uploaded image.
func DeletePlace(c *gin.Context) {
	db, ok := requestDB(c)
	if !ok {
		return
	}
	cfg, ok := requestConfig(c)
	if !ok {
		return
	}
	place, ok := loadManagedPlace(c, db)
	if !ok {
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("place_id = ?", place.ID).Delete(&models.Event{}).Error; err != nil {
			return err
		}
		return tx.Delete(place).Error
	})
	if err != nil {
		helpers.RespondWithServerError(c, err, "Failed to delete place.")
		return
	}

	if err := helpers.DeleteFile(cfg.UploadDir, place.ImagePath); err != nil {
		logging.FromContext(c).Warn().Err(err).Str("image", place.ImagePath).Msg("Failed to remove place image")
	}
	c.JSON(http.StatusOK, gin.H{"message": "Place deleted successfully."})
}

// UploadPlaceImage stores the multipart "image" field and replaces the
// previous image of the place.
func UploadPlaceImage(c *gin.Context) {
	db, ok := requestDB(c)
	if !ok {
		return
	}
	cfg, ok := requestConfig(c)
	if !ok {
		return
	}
	place, ok := loadManagedPlace(c, db)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Image file is required.")
		return
	}

	uploadConfig := helpers.DefaultImageUploadConfig
	uploadConfig.UploadBasePath = cfg.UploadDir
	imagePath, err := helpers.UploadFile(c, fileHeader, "places", uploadConfig)
	if err != nil {
		if errors.Is(err, helpers.ErrFileTooLarge) || errors.Is(err, helpers.ErrInvalidFileType) {
			helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		helpers.RespondWithServerError(c, err, "Failed to store image.")
		return
	}

	previous := place.ImagePath
	if err := db.Model(place).Update("image_path", imagePath).Error; err != nil {
		_ = helpers.DeleteFile(cfg.UploadDir, imagePath)
		helpers.RespondWithServerError(c, err, "Failed to update place.")
		return
	}
	if err := helpers.DeleteFile(cfg.UploadDir, previous); err != nil {
		logging.FromContext(c).Warn().Err(err).Str("image", previous).Msg("Failed to remove previous place image")
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Image uploaded successfully.",
		"image_path": imagePath,
		"url":        "/uploads/" + imagePath,
	})
}

// ListAdminPlaces pages through the places the caller manages: every place
// for an Admin, their own for a Place Owner.
func ListAdminPlaces(c *gin.Context) {
	page, err := helpers.ParsePage(c)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	identity, ok := requestIdentity(c)
	if !ok {
		return
	}
	db, ok := requestDB(c)
	if !ok {
		return
	}

	managed := func(tx *gorm.DB) *gorm.DB {
		if identity.Role != models.RoleAdmin {
			return tx.Where("user_id = ?", identity.UserID)
		}
		return tx
	}

	var total int64
	if err := db.Model(&models.Place{}).Scopes(managed).Count(&total).Error; err != nil {
		helpers.RespondWithServerError(c, err, "Error counting places.")
		return
	}

	var places []models.Place
	err = db.Scopes(managed).Preload("Events", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("start_time")
	}).Preload("Events.Activity").
		Order("name").Order("id").
		Offset(page.Offset()).Limit(page.Limit).
		Find(&places).Error
	if err != nil {
		helpers.RespondWithServerError(c, err, "Error retrieving places.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"places":      places,
		"total":       total,
		"page":        page.Page,
		"limit":       page.Limit,
		"total_pages": page.TotalPages(total),
	})
}
