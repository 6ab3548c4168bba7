package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseCron parses a cron expression that have 5 fields
// or a descriptor like @daily. Returns error if it fails
func ParseCron(expr string) (cron.Schedule, error) {
	e := strings.TrimSpace(expr)
	if e == "" {
		return nil, fmt.Errorf("empty cron expression")
	}
	return cronParser.Parse(e)
}

// NextRun returns the first activation of expr strictly after now, evaluated in loc.
func NextRun(expr string, now time.Time, loc *time.Location) (time.Time, error) {
	schedule, err := ParseCron(expr)
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	return schedule.Next(now.In(loc)), nil
}
