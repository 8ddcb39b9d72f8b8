package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/farellandr/lanzalife/internal/auth"
	"github.com/farellandr/lanzalife/internal/helpers"
	"github.com/farellandr/lanzalife/internal/logging"
	"github.com/farellandr/lanzalife/internal/middleware"
	"github.com/farellandr/lanzalife/internal/models"
	"github.com/farellandr/lanzalife/internal/queue"
	"github.com/farellandr/lanzalife/internal/schedule"
	"github.com/farellandr/lanzalife/internal/search"
)

// EventRequest schedules an activity at a place on one or more weekdays
// (0=Sunday..6=Saturday). day_of_week and days_of_week are merged.
type EventRequest struct {
	PlaceID     uint    `json:"place_id" binding:"required"`
	ActivityID  uint    `json:"activity_id" binding:"required"`
	DayOfWeek   *int    `json:"day_of_week"`
	DaysOfWeek  []int   `json:"days_of_week"`
	StartTime   string  `json:"start_time" binding:"required"`
	EndTime     string  `json:"end_time" binding:"required"`
	Description *string `json:"description"`
}

func (req EventRequest) weekdays() ([]time.Weekday, error) {
	raw := req.DaysOfWeek
	if req.DayOfWeek != nil {
		raw = append([]int{*req.DayOfWeek}, raw...)
	}
	days := make([]time.Weekday, 0, len(raw))
	for _, n := range raw {
		day, err := schedule.WeekdayFromInt(n)
		if err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	return days, nil
}

func (req EventRequest) clocks() (schedule.Clock, schedule.Clock, error) {
	start, err := schedule.ParseClock(req.StartTime)
	if err != nil {
		return schedule.Clock{}, schedule.Clock{}, err
	}
	end, err := schedule.ParseClock(req.EndTime)
	if err != nil {
		return schedule.Clock{}, schedule.Clock{}, err
	}
	return start, end, nil
}

// scheduleTargets loads the place and activity named by req and checks the
// caller may schedule at the place.
func scheduleTargets(c *gin.Context, db *gorm.DB, identity auth.Identity, req EventRequest) (*models.Place, *models.Activity, bool) {
	var place models.Place
	if err := db.First(&place, req.PlaceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Place not found.")
			return nil, nil, false
		}
		helpers.RespondWithServerError(c, err, "Error retrieving place.")
		return nil, nil, false
	}
	if !canManage(identity, &place) {
		helpers.RespondWithError(c, http.StatusForbidden, "You do not have permission to schedule events at this place.")
		return nil, nil, false
	}

	var activity models.Activity
	if err := db.First(&activity, req.ActivityID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Activity not found.")
			return nil, nil, false
		}
		helpers.RespondWithServerError(c, err, "Error retrieving activity.")
		return nil, nil, false
	}
	return &place, &activity, true
}

// publishScheduled announces new or moved events. Failures are logged only.
func publishScheduled(c *gin.Context, identity auth.Identity, place *models.Place, activity *models.Activity, events []models.Event, rescheduled bool) {
	msg := queue.EventsScheduled{
		PlaceID:      place.ID,
		PlaceName:    place.Name,
		ActivityID:   activity.ID,
		ActivityName: activity.Name,
		Rescheduled:  rescheduled,
		ScheduledBy:  identity.UserID,
		ScheduledAt:  time.Now().UTC(),
	}
	for _, event := range events {
		msg.Events = append(msg.Events, queue.ScheduledEvent{
			ID:        event.ID,
			DayOfWeek: event.DayOfWeek,
			StartTime: event.StartTime,
			EndTime:   event.EndTime,
		})
	}

	if err := middleware.GetPublisher(c).PublishEventsScheduled(c.Request.Context(), msg); err != nil {
		logging.FromContext(c).Warn().Err(err).Uint("place_id", place.ID).Msg("Failed to publish schedule notification")
	}
}

func scheduleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, schedule.ErrInvalidClock),
		errors.Is(err, schedule.ErrInvalidWeekday),
		errors.Is(err, schedule.ErrEmptySlot),
		errors.Is(err, schedule.ErrNoDays),
		errors.Is(err, models.ErrEventTimeRange):
		helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
	default:
		helpers.RespondWithServerError(c, err, "Failed to schedule event.")
	}
}

// SearchEvents is the public event search, using the same filters as the
// place search.
func SearchEvents(c *gin.Context) {
	filter, err := search.ParseFilter(c.Request.URL.Query())
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	db, ok := requestDB(c)
	if !ok {
		return
	}

	events, err := search.FindEvents(c.Request.Context(), db, filter)
	if err != nil {
		helpers.RespondWithServerError(c, err, "Error retrieving events.")
		return
	}
	c.JSON(http.StatusOK, events)
}

// CreateEvent stores one event per requested weekday, each dated to that
// weekday's next occurrence in the venue time zone. All rows are written in
// one transaction.
func CreateEvent(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}
	days, err := req.weekdays()
	if err != nil {
		scheduleError(c, err)
		return
	}
	start, end, err := req.clocks()
	if err != nil {
		scheduleError(c, err)
		return
	}

	identity, ok := requestIdentity(c)
	if !ok {
		return
	}
	cfg, ok := requestConfig(c)
	if !ok {
		return
	}
	db, ok := requestDB(c)
	if !ok {
		return
	}

	slots, err := schedule.Weekly(now(), cfg.Location, days, start, end)
	if err != nil {
		scheduleError(c, err)
		return
	}

	place, activity, ok := scheduleTargets(c, db, identity, req)
	if !ok {
		return
	}

	events := make([]models.Event, len(slots))
	for i, slot := range slots {
		events[i] = models.Event{
			PlaceID:     place.ID,
			ActivityID:  activity.ID,
			StartTime:   slot.Start,
			EndTime:     slot.End,
			Description: req.Description,
		}
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		for i := range events {
			if err := tx.Create(&events[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		scheduleError(c, err)
		return
	}

	publishScheduled(c, identity, place, activity, events, false)

	for i := range events {
		events[i].Activity = activity
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Events created successfully.",
		"events":  events,
	})
}

// UpdateEvent moves an event to the next occurrence of a single weekday,
// optionally changing its place, activity and description.
func UpdateEvent(c *gin.Context) {
	id, err := helpers.ParseID(c, "id")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid event ID.")
		return
	}

	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}
	days, err := req.weekdays()
	if err != nil {
		scheduleError(c, err)
		return
	}
	if len(days) != 1 {
		helpers.RespondWithError(c, http.StatusBadRequest, "Exactly one day of week is required.")
		return
	}
	start, end, err := req.clocks()
	if err != nil {
		scheduleError(c, err)
		return
	}

	identity, ok := requestIdentity(c)
	if !ok {
		return
	}
	cfg, ok := requestConfig(c)
	if !ok {
		return
	}
	db, ok := requestDB(c)
	if !ok {
		return
	}

	var event models.Event
	if err := db.Preload("Place").First(&event, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Event not found.")
			return
		}
		helpers.RespondWithServerError(c, err, "Error retrieving event.")
		return
	}
	if event.Place == nil || !canManage(identity, event.Place) {
		helpers.RespondWithError(c, http.StatusForbidden, "You do not have permission to manage this event.")
		return
	}

	slot, err := schedule.NextOccurrence(now(), cfg.Location, days[0], start, end)
	if err != nil {
		scheduleError(c, err)
		return
	}

	place, activity, ok := scheduleTargets(c, db, identity, req)
	if !ok {
		return
	}

	event.Place = nil
	event.PlaceID = place.ID
	event.ActivityID = activity.ID
	event.StartTime = slot.Start
	event.EndTime = slot.End
	event.Description = req.Description
	if err := db.Omit("Place", "Activity").Save(&event).Error; err != nil {
		scheduleError(c, err)
		return
	}

	publishScheduled(c, identity, place, activity, []models.Event{event}, true)

	event.Activity = activity
	c.JSON(http.StatusOK, event)
}

func DeleteEvent(c *gin.Context) {
	id, err := helpers.ParseID(c, "id")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid event ID.")
		return
	}
	identity, ok := requestIdentity(c)
	if !ok {
		return
	}
	db, ok := requestDB(c)
	if !ok {
		return
	}

	var event models.Event
	if err := db.Preload("Place").First(&event, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Event not found.")
			return
		}
		helpers.RespondWithServerError(c, err, "Error retrieving event.")
		return
	}
	if event.Place == nil || !canManage(identity, event.Place) {
		helpers.RespondWithError(c, http.StatusForbidden, "You do not have permission to manage this event.")
		return
	}

	if err := db.Delete(&models.Event{}, event.ID).Error; err != nil {
		helpers.RespondWithServerError(c, err, "Failed to delete event.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Event deleted successfully."})
}

// ListAdminEvents pages through the events the caller manages: all events
// for an Admin, those at their own places for a Place Owner.
func ListAdminEvents(c *gin.Context) {
	page, err := helpers.ParsePage(c)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	identity, ok := requestIdentity(c)
	if !ok {
		return
	}
	db, ok := requestDB(c)
	if !ok {
		return
	}

	managed := func(tx *gorm.DB) *gorm.DB {
		if identity.Role != models.RoleAdmin {
			owned := db.Model(&models.Place{}).Select("id").Where("user_id = ?", identity.UserID)
			return tx.Where("place_id IN (?)", owned)
		}
		return tx
	}

	var total int64
	if err := db.Model(&models.Event{}).Scopes(managed).Count(&total).Error; err != nil {
		helpers.RespondWithServerError(c, err, "Error counting events.")
		return
	}

	var events []models.Event
	err = db.Scopes(managed).
		Preload("Place").Preload("Activity").
		Order("start_time").Order("id").
		Offset(page.Offset()).Limit(page.Limit).
		Find(&events).Error
	if err != nil {
		helpers.RespondWithServerError(c, err, "Error retrieving events.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events":      events,
		"total":       total,
		"page":        page.Page,
		"limit":       page.Limit,
		"total_pages": page.TotalPages(total),
	})
}
