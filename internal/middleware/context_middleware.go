package middleware

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/farellandr/lanzalife/config"
	"github.com/farellandr/lanzalife/internal/queue"
)

const (
	dbKey        = "db"
	configKey    = "config"
	publisherKey = "publisher"
)

func DatabaseMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(dbKey, db)
		c.Next()
	}
}

func GetDB(c *gin.Context) (*gorm.DB, bool) {
	db, exists := c.Get(dbKey)
	if !exists {
		return nil, false
	}
	gormDB, ok := db.(*gorm.DB)
	return gormDB, ok
}

func ConfigMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(configKey, cfg)
		c.Next()
	}
}

func GetConfig(c *gin.Context) *config.Config {
	cfg, exists := c.Get(configKey)
	if !exists {
		return nil
	}
	return cfg.(*config.Config)
}

func PublisherMiddleware(publisher queue.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(publisherKey, publisher)
		c.Next()
	}
}

// GetPublisher never returns nil; without a configured publisher it returns a
// no-op one.
func GetPublisher(c *gin.Context) queue.Publisher {
	publisher, exists := c.Get(publisherKey)
	if !exists {
		return queue.NoopPublisher{}
	}
	return publisher.(queue.Publisher)
}
