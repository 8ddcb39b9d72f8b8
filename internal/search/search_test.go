package search

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/farellandr/lanzalife/config"
	"github.com/farellandr/lanzalife/internal/models"
)

type fixture struct {
	db         *gorm.DB
	bingo      models.Activity
	quiz       models.Activity
	music      models.Activity
	hotSpot    models.Place
	irishRover models.Place
	square     models.Place
	chiringo   models.Place
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	// Every new connection to :memory: is a new database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := config.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

// Dates below are in October 2026: the 18th and 25th are Sundays.
func at(day, hour int) time.Time {
	return time.Date(2026, time.October, day, hour, 0, 0, 0, time.UTC)
}

func setupFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{db: setupTestDB(t)}

	f.bingo = models.Activity{Name: "Bingo"}
	f.quiz = models.Activity{Name: "Quiz Night"}
	f.music = models.Activity{Name: "Live Music"}
	for _, a := range []*models.Activity{&f.bingo, &f.quiz, &f.music} {
		if err := f.db.Create(a).Error; err != nil {
			t.Fatalf("create activity: %v", err)
		}
	}

	f.hotSpot = models.Place{Name: "Hot Spot", Address: "Puerto del Carmen", Area: "Puerto Del Carmen", Latitude: 28.9203, Longitude: -13.6454}
	f.irishRover = models.Place{Name: "Irish Rover", Address: "Calle Timanfaya, 1", Area: "Puerto Del Carmen", Latitude: 28.9200, Longitude: -13.6600}
	f.square = models.Place{Name: "The Square", Address: "Calle Gran Canaria, 10", Area: "Costa Teguise", Latitude: 28.9900, Longitude: -13.5300}
	f.chiringo = models.Place{Name: "El Chiringuito", Address: "Playa Dorada", Area: "Playa Blanca", Latitude: 28.8600, Longitude: -13.8200}
	for _, p := range []*models.Place{&f.hotSpot, &f.irishRover, &f.square, &f.chiringo} {
		if err := f.db.Create(p).Error; err != nil {
			t.Fatalf("create place: %v", err)
		}
	}

	events := []models.Event{
		{PlaceID: f.hotSpot.ID, ActivityID: f.bingo.ID, StartTime: at(20, 19), EndTime: at(20, 21)},   // Tuesday
		{PlaceID: f.hotSpot.ID, ActivityID: f.quiz.ID, StartTime: at(18, 20), EndTime: at(18, 22)},    // Sunday
		{PlaceID: f.irishRover.ID, ActivityID: f.music.ID, StartTime: at(23, 21), EndTime: at(23, 23)}, // Friday
		{PlaceID: f.square.ID, ActivityID: f.quiz.ID, StartTime: at(21, 20), EndTime: at(21, 22)},     // Wednesday
		{PlaceID: f.square.ID, ActivityID: f.quiz.ID, StartTime: at(25, 20), EndTime: at(25, 22)},     // Sunday
	}
	if err := f.db.Create(&events).Error; err != nil {
		t.Fatalf("create events: %v", err)
	}
	return f
}

func placeNames(places []models.Place) []string {
	names := make([]string, 0, len(places))
	for _, p := range places {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func weekday(d time.Weekday) *time.Weekday { return &d }

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    Filter
		wantErr bool
	}{
		{name: "empty", query: "", want: Filter{RadiusKm: DefaultRadiusKm}},
		{name: "area", query: "area=Costa+Teguise", want: Filter{Area: "Costa Teguise", RadiusKm: DefaultRadiusKm}},
		{name: "day zero is sunday", query: "day=0", want: Filter{Day: weekday(time.Sunday), RadiusKm: DefaultRadiusKm}},
		{name: "near me with origin", query: "nearMe=true&lat=28.9&lng=-13.6&radius=3", want: Filter{NearMe: true, Origin: &Point{Lat: 28.9, Lng: -13.6}, RadiusKm: 3}},
		{name: "unknown area", query: "area=Atlantis", wantErr: true},
		{name: "bad activity", query: "activity=bingo", wantErr: true},
		{name: "zero activity", query: "activity=0", wantErr: true},
		{name: "day out of range", query: "day=7", wantErr: true},
		{name: "bad nearMe", query: "nearMe=perhaps", wantErr: true},
		{name: "lat without lng", query: "lat=28.9", wantErr: true},
		{name: "negative radius", query: "radius=-1", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q, err := url.ParseQuery(tc.query)
			if err != nil {
				t.Fatalf("parse query: %v", err)
			}
			got, err := ParseFilter(q)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidFilter) {
					t.Fatalf("ParseFilter(%q) error = %v, want ErrInvalidFilter", tc.query, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFilter(%q) unexpected error: %v", tc.query, err)
			}
			if got.Area != tc.want.Area || got.ActivityID != tc.want.ActivityID || got.NearMe != tc.want.NearMe || got.RadiusKm != tc.want.RadiusKm {
				t.Errorf("ParseFilter(%q) = %+v, want %+v", tc.query, got, tc.want)
			}
			if (got.Day == nil) != (tc.want.Day == nil) || (got.Day != nil && *got.Day != *tc.want.Day) {
				t.Errorf("ParseFilter(%q) day = %v, want %v", tc.query, got.Day, tc.want.Day)
			}
			if (got.Origin == nil) != (tc.want.Origin == nil) || (got.Origin != nil && *got.Origin != *tc.want.Origin) {
				t.Errorf("ParseFilter(%q) origin = %v, want %v", tc.query, got.Origin, tc.want.Origin)
			}
		})
	}
}

func TestFindPlaces(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "no criteria", filter: Filter{}, want: []string{"El Chiringuito", "Hot Spot", "Irish Rover", "The Square"}},
		{name: "area only", filter: Filter{Area: "Puerto Del Carmen"}, want: []string{"Hot Spot", "Irish Rover"}},
		{name: "activity only", filter: Filter{ActivityID: f.quiz.ID}, want: []string{"Hot Spot", "The Square"}},
		{name: "area and activity intersect", filter: Filter{Area: "Puerto Del Carmen", ActivityID: f.quiz.ID}, want: []string{"Hot Spot"}},
		{name: "sunday", filter: Filter{Day: weekday(time.Sunday)}, want: []string{"Hot Spot", "The Square"}},
		{name: "tuesday", filter: Filter{Day: weekday(time.Tuesday)}, want: []string{"Hot Spot"}},
		{name: "monday has nothing", filter: Filter{Day: weekday(time.Monday)}, want: []string{}},
		{name: "near me ignores area and needs events", filter: Filter{Area: "Playa Blanca", NearMe: true}, want: []string{"Hot Spot", "Irish Rover", "The Square"}},
		{name: "activity and day", filter: Filter{ActivityID: f.quiz.ID, Day: weekday(time.Wednesday)}, want: []string{"The Square"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			places, err := FindPlaces(ctx, f.db, tc.filter)
			if err != nil {
				t.Fatalf("FindPlaces() error = %v", err)
			}
			if got := placeNames(places); !equalStrings(got, tc.want) {
				t.Errorf("FindPlaces() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFindPlacesAttachesMatchingEventsOnly(t *testing.T) {
	f := setupFixture(t)

	places, err := FindPlaces(context.Background(), f.db, Filter{ActivityID: f.quiz.ID, Area: "Puerto Del Carmen"})
	if err != nil {
		t.Fatalf("FindPlaces() error = %v", err)
	}
	if len(places) != 1 {
		t.Fatalf("len(places) = %d, want 1", len(places))
	}
	events := places[0].Events
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want only the quiz event", len(events))
	}
	if events[0].Activity == nil || events[0].Activity.Name != "Quiz Night" {
		t.Errorf("event activity = %+v, want Quiz Night attached", events[0].Activity)
	}
	if events[0].DayOfWeek != int(time.Sunday) {
		t.Errorf("event day_of_week = %d, want 0", events[0].DayOfWeek)
	}
}

func TestFindPlacesUnfilteredKeepsAllEvents(t *testing.T) {
	f := setupFixture(t)

	places, err := FindPlaces(context.Background(), f.db, Filter{Area: "Puerto Del Carmen"})
	if err != nil {
		t.Fatalf("FindPlaces() error = %v", err)
	}
	for _, p := range places {
		if p.Name == "Hot Spot" && len(p.Events) != 2 {
			t.Errorf("Hot Spot has %d events, want 2", len(p.Events))
		}
		for _, e := range p.Events {
			if e.Activity == nil {
				t.Errorf("event %d has no activity attached", e.ID)
			}
		}
	}
}

func TestFindPlacesNearby(t *testing.T) {
	f := setupFixture(t)

	origin := Point{Lat: 28.9205, Lng: -13.6450}
	places, err := FindPlaces(context.Background(), f.db, Filter{NearMe: true, Origin: &origin, RadiusKm: 5})
	if err != nil {
		t.Fatalf("FindPlaces() error = %v", err)
	}
	if len(places) != 2 {
		t.Fatalf("FindPlaces() = %v, want Hot Spot and Irish Rover", placeNames(places))
	}
	if places[0].Name != "Hot Spot" || places[1].Name != "Irish Rover" {
		t.Errorf("order = [%s %s], want nearest first", places[0].Name, places[1].Name)
	}
	for _, p := range places {
		if p.DistanceKm == nil || *p.DistanceKm > 5 {
			t.Errorf("%s distance = %v, want within 5km", p.Name, p.DistanceKm)
		}
	}
}

func TestFindEvents(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	t.Run("area", func(t *testing.T) {
		events, err := FindEvents(ctx, f.db, Filter{Area: "Costa Teguise"})
		if err != nil {
			t.Fatalf("FindEvents() error = %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("len(events) = %d, want 2", len(events))
		}
		for _, e := range events {
			if e.Place == nil || e.Place.Name != "The Square" {
				t.Errorf("event %d place = %+v, want The Square", e.ID, e.Place)
			}
			if e.Activity == nil {
				t.Errorf("event %d has no activity attached", e.ID)
			}
		}
		if !events[0].StartTime.Before(events[1].StartTime) {
			t.Errorf("events not ordered by start time")
		}
	})

	t.Run("sunday", func(t *testing.T) {
		events, err := FindEvents(ctx, f.db, Filter{Day: weekday(time.Sunday)})
		if err != nil {
			t.Fatalf("FindEvents() error = %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("len(events) = %d, want 2", len(events))
		}
		for _, e := range events {
			if e.StartTime.Weekday() != time.Sunday {
				t.Errorf("event %d starts on %v", e.ID, e.StartTime.Weekday())
			}
		}
	})

	t.Run("activity", func(t *testing.T) {
		events, err := FindEvents(ctx, f.db, Filter{ActivityID: f.music.ID})
		if err != nil {
			t.Fatalf("FindEvents() error = %v", err)
		}
		if len(events) != 1 || events[0].PlaceID != f.irishRover.ID {
			t.Fatalf("FindEvents() = %+v, want the Irish Rover music event", events)
		}
	})
}

func TestDistanceKm(t *testing.T) {
	if d := DistanceKm(Point{28.92, -13.66}, Point{28.92, -13.66}); d != 0 {
		t.Errorf("distance to self = %v, want 0", d)
	}
	// Arrecife to Playa Blanca, about 30km in a straight line.
	d := DistanceKm(Point{28.963, -13.548}, Point{28.862, -13.829})
	if d < 28 || d > 32 {
		t.Errorf("DistanceKm() = %.1f, want about 29.5km", d)
	}
}
