package search

import (
	"context"
	"sort"

	"gorm.io/gorm"

	"github.com/farellandr/lanzalife/internal/models"
)

// eventConditions applies the event-level criteria to a query over events.
func eventConditions(tx *gorm.DB, f Filter) *gorm.DB {
	if f.ActivityID != 0 {
		tx = tx.Where("events.activity_id = ?", f.ActivityID)
	}
	if f.Day != nil {
		tx = tx.Where("events.day_of_week = ?", int(*f.Day))
	}
	return tx
}

// FindPlaces returns the places matching f with their matching events and
// each event's activity attached. When an event criterion is set, places
// without a matching event are left out.
func FindPlaces(ctx context.Context, db *gorm.DB, f Filter) ([]models.Place, error) {
	query := db.WithContext(ctx).Model(&models.Place{})

	if f.areaApplies() {
		query = query.Where("places.area = ?", f.Area)
	}
	if f.filtersEvents() {
		matching := eventConditions(db.WithContext(ctx).Model(&models.Event{}).Select("events.place_id"), f)
		query = query.Where("places.id IN (?)", matching)
	}

	var places []models.Place
	err := query.
		Preload("Events", func(tx *gorm.DB) *gorm.DB {
			return eventConditions(tx, f).Order("events.start_time")
		}).
		Preload("Events.Activity").
		Order("places.name").
		Find(&places).Error
	if err != nil {
		return nil, err
	}

	if f.nearby() {
		places = placesWithin(places, *f.Origin, f.RadiusKm)
	}
	return places, nil
}

// FindEvents returns the events matching f with place and activity attached,
// ordered by start time.
func FindEvents(ctx context.Context, db *gorm.DB, f Filter) ([]models.Event, error) {
	query := eventConditions(db.WithContext(ctx).Model(&models.Event{}), f)

	if f.areaApplies() {
		inArea := db.WithContext(ctx).Model(&models.Place{}).Select("places.id").Where("places.area = ?", f.Area)
		query = query.Where("events.place_id IN (?)", inArea)
	}

	var events []models.Event
	err := query.
		Preload("Place").
		Preload("Activity").
		Order("events.start_time").
		Order("events.id").
		Find(&events).Error
	if err != nil {
		return nil, err
	}

	if f.nearby() {
		events = eventsWithin(events, *f.Origin, f.RadiusKm)
	}
	return events, nil
}

func placesWithin(places []models.Place, origin Point, radiusKm float64) []models.Place {
	kept := places[:0]
	for _, place := range places {
		d := DistanceKm(origin, Point{Lat: place.Latitude, Lng: place.Longitude})
		if d > radiusKm {
			continue
		}
		place.DistanceKm = &d
		kept = append(kept, place)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return *kept[i].DistanceKm < *kept[j].DistanceKm
	})
	return kept
}

func eventsWithin(events []models.Event, origin Point, radiusKm float64) []models.Event {
	kept := events[:0]
	for _, event := range events {
		if event.Place == nil {
			continue
		}
		d := DistanceKm(origin, Point{Lat: event.Place.Latitude, Lng: event.Place.Longitude})
		if d > radiusKm {
			continue
		}
		event.Place.DistanceKm = &d
		kept = append(kept, event)
	}
	return kept
}
