package ics

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"weekposter/internal/model"
)

var uidSpace = uuid.MustParse("6f1c5f4e-3b9e-4f55-9d0b-7a1e2c6a9b10")

// ExportOptions place the weekly schedule on a real calendar.
type ExportOptions struct {
	// Location is the zone item times are written in; UTC when nil.
	Location *time.Location
	// WeekOf selects the week (Monday-based) of the first occurrence.
	WeekOf time.Time
	// Weekdays maps each day column to a weekday. Defaults to Monday
	// onward.
	Weekdays []time.Weekday
	// Name becomes X-WR-CALNAME; the schedule title when empty.
	Name string
	// Stamp is written as DTSTAMP; the current time when zero.
	Stamp time.Time
}

var rruleDays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// WeekStart returns Monday 00:00 of the week containing t, in loc.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return d.AddDate(0, 0, -((int(d.Weekday()) + 6) % 7))
}

// Export writes one weekly recurring VEVENT per item.
func Export(data *model.ScheduleData, opts ExportOptions) ([]byte, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	weekdays := opts.Weekdays
	if len(weekdays) == 0 {
		for i := range data.Days {
			weekdays = append(weekdays, time.Weekday((1+i)%7))
		}
	}
	if len(weekdays) < len(data.Days) {
		return nil, model.Invalid("weekdays", "%d weekdays for %d days", len(weekdays), len(data.Days))
	}
	stamp := opts.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}
	name := opts.Name
	if name == "" {
		name = data.Title
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//weekposter//schedule//EN")
	if name != "" {
		cal.SetXWRCalName(name)
	}

	monday := WeekStart(opts.WeekOf, loc)
	for i, it := range data.Items {
		start, _ := model.ParseClock(it.Start)
		end, _ := model.ParseClock(it.End)
		wd := weekdays[it.DayIndex]
		date := monday.AddDate(0, 0, (int(wd)+6)%7)

		key := fmt.Sprintf("%d|%d|%s|%s|%s|%s", i, it.DayIndex, it.Start, it.End, it.Title, it.Subtitle)
		ev := cal.AddEvent(uuid.NewSHA1(uidSpace, []byte(key)).String() + "@weekposter")
		ev.SetDtStampTime(stamp)
		setTime(ev, ical.ComponentPropertyDtStart, date.Add(time.Duration(start)*time.Minute), loc)
		setTime(ev, ical.ComponentPropertyDtEnd, date.Add(time.Duration(end)*time.Minute), loc)
		ev.SetSummary(it.Title)
		if it.Subtitle != "" {
			ev.SetDescription(it.Subtitle)
		}
		if it.Color != "" {
			ev.SetProperty(ical.ComponentProperty("COLOR"), strings.TrimSpace(it.Color))
		}

		rule := rrule.ROption{Freq: rrule.WEEKLY, Byweekday: []rrule.Weekday{rruleDays[wd]}}
		ev.AddRrule(rule.RRuleString())
	}
	return []byte(cal.Serialize()), nil
}

// setTime writes a UTC value, or a local value with TZID so weekly
// recurrences keep their wall-clock time across DST.
func setTime(ev *ical.VEvent, prop ical.ComponentProperty, t time.Time, loc *time.Location) {
	if loc == time.UTC {
		ev.SetProperty(prop, t.UTC().Format("20060102T150405Z"))
		return
	}
	ev.SetProperty(prop, t.In(loc).Format("20060102T150405"),
		&ical.KeyValues{Key: string(ical.ParameterTzid), Value: []string{loc.String()}})
}
