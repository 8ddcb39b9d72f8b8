// Package search composes the public place and event filters into gorm
// queries.
package search

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/farellandr/lanzalife/internal/models"
	"github.com/farellandr/lanzalife/internal/schedule"
)

var ErrInvalidFilter = errors.New("invalid filter")

const DefaultRadiusKm = 10.0

// Filter holds the optional criteria of a search. Set criteria are combined
// with AND.
type Filter struct {
	Area       string
	ActivityID uint
	Day        *time.Weekday
	NearMe     bool
	Origin     *Point
	RadiusKm   float64
}

// ParseFilter reads area, activity, day, nearMe, lat, lng and radius.
// Empty values are treated as absent.
func ParseFilter(q url.Values) (Filter, error) {
	var f Filter

	if area := strings.TrimSpace(q.Get("area")); area != "" {
		if !models.IsValidArea(area) {
			return Filter{}, fmt.Errorf("%w: unknown area %q", ErrInvalidFilter, area)
		}
		f.Area = area
	}

	if s := strings.TrimSpace(q.Get("activity")); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil || id == 0 {
			return Filter{}, fmt.Errorf("%w: activity must be a positive id", ErrInvalidFilter)
		}
		f.ActivityID = uint(id)
	}

	if s := strings.TrimSpace(q.Get("day")); s != "" {
		day, err := schedule.ParseWeekday(s)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
		f.Day = &day
	}

	if s := strings.TrimSpace(q.Get("nearMe")); s != "" {
		near, err := strconv.ParseBool(s)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: nearMe must be true or false", ErrInvalidFilter)
		}
		f.NearMe = near
	}

	lat, lng := strings.TrimSpace(q.Get("lat")), strings.TrimSpace(q.Get("lng"))
	if lat != "" || lng != "" {
		p, err := parsePoint(lat, lng)
		if err != nil {
			return Filter{}, err
		}
		f.Origin = &p
	}

	f.RadiusKm = DefaultRadiusKm
	if s := strings.TrimSpace(q.Get("radius")); s != "" {
		r, err := strconv.ParseFloat(s, 64)
		if err != nil || r <= 0 {
			return Filter{}, fmt.Errorf("%w: radius must be a positive number of km", ErrInvalidFilter)
		}
		f.RadiusKm = r
	}

	return f, nil
}

func parsePoint(lat, lng string) (Point, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil || la < -90 || la > 90 {
		return Point{}, fmt.Errorf("%w: lat must be between -90 and 90", ErrInvalidFilter)
	}
	lo, err := strconv.ParseFloat(lng, 64)
	if err != nil || lo < -180 || lo > 180 {
		return Point{}, fmt.Errorf("%w: lng must be between -180 and 180", ErrInvalidFilter)
	}
	return Point{Lat: la, Lng: lo}, nil
}

// areaApplies reports whether the area criterion is in effect. "Near me"
// overrides it.
func (f Filter) areaApplies() bool {
	return f.Area != "" && !f.NearMe
}

// filtersEvents reports whether any criterion restricts events, which in
// turn restricts places to those having a matching event.
func (f Filter) filtersEvents() bool {
	return f.ActivityID != 0 || f.Day != nil || f.NearMe
}

// nearby reports whether results are cut to a radius around Origin.
func (f Filter) nearby() bool {
	return f.NearMe && f.Origin != nil
}
