package models

import "time"

// Activity is a named kind of happening, e.g. "Bingo" or "Quiz Night".
type Activity struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	Events    []Event   `json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
