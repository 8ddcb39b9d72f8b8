package models

import (
	"slices"
	"time"
)

// Areas is the fixed list of regions places are grouped by.
var Areas = []string{
	"Costa Teguise",
	"Puerto Del Carmen",
	"Puerto Calero",
	"Playa Blanca",
}

func IsValidArea(area string) bool {
	return slices.Contains(Areas, area)
}

type Place struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Address     string    `gorm:"not null" json:"address"`
	Area        string    `gorm:"size:64;not null;index" json:"area"`
	Latitude    float64   `gorm:"type:decimal(10,8);not null" json:"latitude"`
	Longitude   float64   `gorm:"type:decimal(11,8);not null" json:"longitude"`
	Description *string   `gorm:"type:text" json:"description"`
	ImagePath   string    `json:"image_path,omitempty"`
	UserID      *uint     `gorm:"index" json:"user_id"`
	User        *User     `json:"-"`
	Events      []Event   `gorm:"constraint:OnDelete:CASCADE" json:"events,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// DistanceKm is filled by "near me" searches with coordinates.
	DistanceKm *float64 `gorm:"-" json:"distance_km,omitempty"`
}

// OwnedBy reports whether userID manages the place.
func (place *Place) OwnedBy(userID uint) bool {
	return place.UserID != nil && *place.UserID == userID
}
