package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/farellandr/lanzalife/internal/auth"
	"github.com/farellandr/lanzalife/internal/helpers"
	"github.com/farellandr/lanzalife/internal/models"
)

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=128"`
	Password string `json:"password" binding:"required,min=6"`
	RoleName string `json:"role_name"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates a Guest or Place Owner account. Admins are only created
// from the command line.
func Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.RoleName == "" {
		req.RoleName = models.RoleGuest
	}

	switch req.RoleName {
	case models.RoleGuest, models.RolePlaceOwner:
	case models.RoleAdmin:
		helpers.RespondWithError(c, http.StatusForbidden, "Admin accounts cannot be self-registered.")
		return
	default:
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid role.")
		return
	}

	db, ok := requestDB(c)
	if !ok {
		return
	}

	var role models.Role
	if err := db.Where("name = ?", req.RoleName).First(&role).Error; err != nil {
		helpers.RespondWithServerError(c, err, "Role lookup failed.")
		return
	}

	taken, err := usernameTaken(db, req.Username)
	if err != nil {
		helpers.RespondWithServerError(c, err, "Failed to check username.")
		return
	}
	if taken {
		helpers.RespondWithError(c, http.StatusConflict, "User already exists.")
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		helpers.RespondWithServerError(c, err, "Failed to hash the password.")
		return
	}

	user := models.User{
		Username: req.Username,
		Password: hashedPassword,
		RoleID:   role.ID,
	}
	if err := db.Create(&user).Error; err != nil {
		// A concurrent registration may have claimed the name since the check.
		if taken, checkErr := usernameTaken(db, req.Username); checkErr == nil && taken {
			helpers.RespondWithError(c, http.StatusConflict, "User already exists.")
			return
		}
		helpers.RespondWithServerError(c, err, "Failed to create user.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully.",
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"role":     role.Name,
		},
	})
}

func usernameTaken(db *gorm.DB, username string) (bool, error) {
	var count int64
	err := db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	db, ok := requestDB(c)
	if !ok {
		return
	}
	cfg, ok := requestConfig(c)
	if !ok {
		return
	}

	var user models.User
	err := db.Preload("Role").Where("username = ?", strings.TrimSpace(req.Username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials.")
		return
	}
	if err != nil {
		helpers.RespondWithServerError(c, err, "Failed to look up user.")
		return
	}

	if !auth.CheckPassword(user.Password, req.Password) {
		helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials.")
		return
	}

	token, expiresAt, err := auth.GenerateToken(cfg.JWTSecret, auth.Identity{UserID: user.ID, Role: user.Role.Name}, cfg.TokenTTL)
	if err != nil {
		helpers.RespondWithServerError(c, err, "Failed to generate token.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role.Name,
		},
	})
}

// Me returns the authenticated user.
func Me(c *gin.Context) {
	identity, ok := requestIdentity(c)
	if !ok {
		return
	}
	db, ok := requestDB(c)
	if !ok {
		return
	}

	var user models.User
	err := db.Preload("Role").First(&user, identity.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		helpers.RespondWithError(c, http.StatusNotFound, "User not found.")
		return
	}
	if err != nil {
		helpers.RespondWithServerError(c, err, "Failed to load user.")
		return
	}

	c.JSON(http.StatusOK, user)
}
