package config

import (
	"fmt"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/farellandr/lanzalife/internal/logging"
	"github.com/farellandr/lanzalife/internal/models"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

func dialector(cfg *Config) (gorm.Dialector, error) {
	switch cfg.DBDriver {
	case DriverPostgres:
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
		)
		return postgres.Open(dsn), nil
	case DriverMySQL:
		return mysql.Open(mysqlDSN(cfg)), nil
	case DriverSQLite:
		return sqlite.Open(sqliteDSN(cfg.DBPath)), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

func mysqlDSN(cfg *Config) string {
	port := cfg.DBPort
	if port == "" {
		port = "3306"
	}
	dc := mysqldriver.NewConfig()
	dc.User = cfg.DBUser
	dc.Passwd = cfg.DBPassword
	dc.Net = "tcp"
	dc.Addr = cfg.DBHost + ":" + port
	dc.DBName = cfg.DBName
	dc.ParseTime = true
	dc.Loc = time.UTC
	dc.Params = map[string]string{"charset": "utf8mb4"}
	return dc.FormatDSN()
}

// sqliteDSN turns on foreign key enforcement, which SQLite leaves off per
// connection unless asked.
func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path + "&_foreign_keys=on"
	}
	return path + "?_foreign_keys=on"
}

func InitDatabase(cfg *Config, logger zerolog.Logger) (*gorm.DB, error) {
	dial, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dial, &gorm.Config{
		Logger: logging.NewGormLogger(logger, 200*time.Millisecond),
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates the schema and makes sure the built-in roles
// exist.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(&models.Role{}, &models.User{}, &models.Activity{}, &models.Place{}, &models.Event{})
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return seedRoles(db)
}

func seedRoles(db *gorm.DB) error {
	for _, name := range models.SeedRoleNames {
		var role models.Role
		if err := db.Where(models.Role{Name: name}).FirstOrCreate(&role).Error; err != nil {
			return fmt.Errorf("seed role %q: %w", name, err)
		}
	}
	return nil
}
