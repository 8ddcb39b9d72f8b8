package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:128;unique;not null" json:"username"`
	Password  string    `gorm:"not null" json:"-"`
	RoleID    uint      `gorm:"not null;index" json:"role_id"`
	Role      Role      `json:"role"`
	Places    []Place   `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (user *User) BeforeSave(tx *gorm.DB) (err error) {
	user.Username = strings.TrimSpace(user.Username)
	return
}
