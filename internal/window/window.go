package window

import (
	"strings"
	"time"

	"github.com/xaenox/daily-summarizer/internal/apperr"
	"github.com/xaenox/daily-summarizer/internal/models"
)

const DayLayout = "2006-01-02"

const dayLength = 24*60*60 - 1

// Resolve converts a YYYY-MM-DD day into the window 00:00:00..23:59:59 in loc.
// A nil loc means the process local time. The window always spans 86399
// seconds from local midnight, including on DST transition days.
func Resolve(day string, loc *time.Location) (models.TimeWindow, error) {
	if loc == nil {
		loc = time.Local
	}
	d, err := time.ParseInLocation(DayLayout, strings.TrimSpace(day), loc)
	if err != nil {
		return models.TimeWindow{}, apperr.InvalidInput("day %q is not a YYYY-MM-DD date", day)
	}
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc).Unix()
	return models.TimeWindow{Start: start, End: start + dayLength}, nil
}

// Today returns the current day in loc as YYYY-MM-DD.
func Today(loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return time.Now().In(loc).Format(DayLayout)
}

// Neighbours returns the days before and after day.
func Neighbours(day string) (prev, next string, err error) {
	d, err := time.Parse(DayLayout, strings.TrimSpace(day))
	if err != nil {
		return "", "", apperr.InvalidInput("day %q is not a YYYY-MM-DD date", day)
	}
	return d.AddDate(0, 0, -1).Format(DayLayout), d.AddDate(0, 0, 1).Format(DayLayout), nil
}

// LoadLocation resolves a configured timezone name. Empty and "Local" map to time.Local.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, apperr.InvalidInput("unknown timezone %q", name)
	}
	return loc, nil
}
