package models

import (
	"time"
)

const (
	RoleAdmin      = "Admin"
	RoleGuest      = "Guest"
	RolePlaceOwner = "Place Owner"
)

// SeedRoleNames are created at startup when missing.
var SeedRoleNames = []string{RoleAdmin, RoleGuest, RolePlaceOwner}

type Role struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:64;unique;not null" json:"name"`
	Users     []User    `json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
