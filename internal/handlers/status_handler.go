package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/farellandr/lanzalife/internal/helpers"
	"github.com/farellandr/lanzalife/internal/models"
)

func ListAreas(c *gin.Context) {
	c.JSON(http.StatusOK, models.Areas)
}

// Status reports row counts, which doubles as a database health check.
func Status(c *gin.Context) {
	db, ok := requestDB(c)
	if !ok {
		return
	}

	var places, activities, events int64
	for _, count := range []struct {
		model any
		dest  *int64
	}{
		{&models.Place{}, &places},
		{&models.Activity{}, &activities},
		{&models.Event{}, &events},
	} {
		if err := db.Model(count.model).Count(count.dest).Error; err != nil {
			helpers.RespondWithServerError(c, err, "Database unavailable.")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"places":     places,
		"activities": activities,
		"events":     events,
	})
}
