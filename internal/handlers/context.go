package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/farellandr/lanzalife/config"
	"github.com/farellandr/lanzalife/internal/auth"
	"github.com/farellandr/lanzalife/internal/helpers"
	"github.com/farellandr/lanzalife/internal/middleware"
	"github.com/farellandr/lanzalife/internal/models"
)

// now is the scheduling clock. Tests replace it.
var now = time.Now

// requestDB returns the shared connection bound to the request context.
func requestDB(c *gin.Context) (*gorm.DB, bool) {
	db, ok := middleware.GetDB(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return nil, false
	}
	return db.WithContext(c.Request.Context()), true
}

func requestConfig(c *gin.Context) (*config.Config, bool) {
	cfg := middleware.GetConfig(c)
	if cfg == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Configuration not found.")
		return nil, false
	}
	return cfg, true
}

func requestIdentity(c *gin.Context) (auth.Identity, bool) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return auth.Identity{}, false
	}
	return identity, true
}

// canManage reports whether identity may modify place.
func canManage(identity auth.Identity, place *models.Place) bool {
	return identity.Role == models.RoleAdmin || place.OwnedBy(identity.UserID)
}
