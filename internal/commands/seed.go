package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/farellandr/lanzalife/internal/models"
	"github.com/farellandr/lanzalife/internal/schedule"
)

var everyDay = []time.Weekday{
	time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
	time.Thursday, time.Friday, time.Saturday,
}

type seedPlace struct {
	Name        string
	Address     string
	Area        string
	Latitude    float64
	Longitude   float64
	Description string
}

type seedEvent struct {
	Place       string
	Activity    string
	Days        []time.Weekday
	Start, End  schedule.Clock
	Description string
}

var seedActivities = []string{
	"Bingo", "Quiz Night", "Live Music", "Breakfast", "Lunch", "Dinner", "Happy Hour",
}

var seedPlaces = []seedPlace{
	{"The Hot Spot Bar", "Puerto del Carmen", "Puerto Del Carmen", 28.920298329660845, -13.645361489015826, "Popular bar with breakfast, quiz nights, and bingo."},
	{"The Irish Rover", "Calle Timanfaya, 1", "Puerto Del Carmen", 28.9200, -13.6600, "Traditional Irish pub with live music."},
	{"La Casita", "Avenida de las Playas, 50", "Puerto Del Carmen", 28.9150, -13.6700, "Cozy restaurant with great breakfast."},
	{"The Square", "Calle Gran Canaria, 10", "Costa Teguise", 28.9900, -13.5300, "Lively bar with quiz nights."},
	{"El Chiringuito", "Playa Dorada, s/n", "Playa Blanca", 28.8600, -13.8200, "Beach bar with stunning views."},
}

var seedEvents = []seedEvent{
	{"The Hot Spot Bar", "Breakfast", everyDay, schedule.Clock{Hour: 8}, schedule.Clock{Hour: 11}, "Breakfast served daily from 8:00 AM to 11:00 AM"},
	{"The Hot Spot Bar", "Quiz Night", []time.Weekday{time.Friday, time.Saturday, time.Sunday, time.Wednesday}, schedule.Clock{Hour: 20}, schedule.Clock{Hour: 22}, "Quiz Night at 8:00 PM"},
	{"The Hot Spot Bar", "Bingo", []time.Weekday{time.Tuesday, time.Thursday}, schedule.Clock{Hour: 19}, schedule.Clock{Hour: 21}, "Bingo Night at 7:00 PM"},
	{"The Irish Rover", "Live Music", everyDay, schedule.Clock{Hour: 21}, schedule.Clock{Hour: 0}, "Live music every night!"},
	{"La Casita", "Breakfast", everyDay, schedule.Clock{Hour: 8, Minute: 30}, schedule.Clock{Hour: 11, Minute: 30}, "Delicious breakfast served daily."},
	{"The Square", "Quiz Night", []time.Weekday{time.Thursday}, schedule.Clock{Hour: 20, Minute: 30}, schedule.Clock{Hour: 22, Minute: 30}, "Test your knowledge!"},
}

// SeedResult counts the rows written by Seed.
type SeedResult struct {
	Activities int
	Places     int
	Events     int
	Skipped    bool
}

// Seed loads the sample activities, places and weekly events, dating each
// event to its next occurrence after now in loc. Without reset it does
// nothing when places already exist.
func Seed(ctx context.Context, db *gorm.DB, loc *time.Location, now time.Time, reset bool) (SeedResult, error) {
	var result SeedResult
	db = db.WithContext(ctx)

	err := db.Transaction(func(tx *gorm.DB) error {
		if reset {
			for _, model := range []any{&models.Event{}, &models.Place{}, &models.Activity{}} {
				if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
					return fmt.Errorf("clear %T: %w", model, err)
				}
			}
		} else {
			var existing int64
			if err := tx.Model(&models.Place{}).Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				result.Skipped = true
				return nil
			}
		}

		activities := make(map[string]uint, len(seedActivities))
		for _, name := range seedActivities {
			activity := models.Activity{Name: name}
			if err := tx.Create(&activity).Error; err != nil {
				return fmt.Errorf("create activity %q: %w", name, err)
			}
			activities[name] = activity.ID
			result.Activities++
		}

		places := make(map[string]uint, len(seedPlaces))
		for _, p := range seedPlaces {
			description := p.Description
			place := models.Place{
				Name:        p.Name,
				Address:     p.Address,
				Area:        p.Area,
				Latitude:    p.Latitude,
				Longitude:   p.Longitude,
				Description: &description,
			}
			if err := tx.Create(&place).Error; err != nil {
				return fmt.Errorf("create place %q: %w", p.Name, err)
			}
			places[p.Name] = place.ID
			result.Places++
		}

		for _, e := range seedEvents {
			slots, err := schedule.Weekly(now, loc, e.Days, e.Start, e.End)
			if err != nil {
				return fmt.Errorf("schedule %s at %s: %w", e.Activity, e.Place, err)
			}
			for _, slot := range slots {
				description := e.Description
				event := models.Event{
					PlaceID:     places[e.Place],
					ActivityID:  activities[e.Activity],
					StartTime:   slot.Start,
					EndTime:     slot.End,
					Description: &description,
				}
				if err := tx.Create(&event).Error; err != nil {
					return fmt.Errorf("create event %s at %s: %w", e.Activity, e.Place, err)
				}
				result.Events++
			}
		}
		return nil
	})
	return result, err
}

// RunSeed handles the seed subcommand.
func RunSeed(args []string, logger zerolog.Logger) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	reset := fs.Bool("reset", false, "Delete existing activities, places and events first")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, db, err := openDatabase(logger)
	if err != nil {
		return err
	}

	result, err := Seed(context.Background(), db, cfg.Location, time.Now(), *reset)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if result.Skipped {
		logger.Info().Msg("Places already exist, nothing seeded (use -reset to reload)")
		return nil
	}
	logger.Info().
		Int("activities", result.Activities).
		Int("places", result.Places).
		Int("events", result.Events).
		Msg("Sample data seeded")
	return nil
}
