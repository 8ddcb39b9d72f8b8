package models

import (
	"time"

	"gorm.io/gorm"
)

// Event is one dated occurrence of an Activity at a Place.
//
// DayOfWeek mirrors StartTime.Weekday() (0=Sunday..6=Saturday) in the
// location StartTime carries. It is maintained by BeforeSave and is the only
// place the weekday of a stored event is derived, so searches compare against
// the same 0-based convention the API accepts.
type Event struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PlaceID     uint      `gorm:"not null;index" json:"place_id"`
	Place       *Place    `json:"place,omitempty"`
	ActivityID  uint      `gorm:"not null;index" json:"activity_id"`
	Activity    *Activity `json:"activity,omitempty"`
	StartTime   time.Time `gorm:"not null" json:"start_time"`
	EndTime     time.Time `gorm:"not null" json:"end_time"`
	DayOfWeek   int       `gorm:"not null;index" json:"day_of_week"`
	Description *string   `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (event *Event) BeforeSave(tx *gorm.DB) (err error) {
	if !event.StartTime.Before(event.EndTime) {
		return ErrEventTimeRange
	}
	event.DayOfWeek = int(event.StartTime.Weekday())
	return
}
