package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// CronSpec is a parsed standard 5-field cron expression, evaluated in UTC.
type CronSpec struct {
	expr  string
	sched cron.Schedule
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

func ParseCronSpec(expr string) (CronSpec, error) {
	expr = strings.TrimSpace(expr)
	if len(strings.Fields(expr)) != 5 {
		return CronSpec{}, fmt.Errorf("expected 5 fields")
	}

	sched, err := parser.Parse(expr)
	if err != nil {
		return CronSpec{}, err
	}
	return CronSpec{expr: expr, sched: sched}, nil
}

func (s CronSpec) String() string { return s.expr }

// Next returns the first activation strictly after t.
func (s CronSpec) Next(t time.Time) time.Time {
	return s.sched.Next(t.UTC())
}

// Schedule exposes the underlying cron.Schedule for cron.Cron.Schedule.
func (s CronSpec) Schedule() cron.Schedule {
	return utcSchedule{s.sched}
}

type utcSchedule struct {
	inner cron.Schedule
}

func (u utcSchedule) Next(t time.Time) time.Time {
	return u.inner.Next(t.UTC())
}
