package models

import "errors"

var ErrEventTimeRange = errors.New("event start time must be before end time")
