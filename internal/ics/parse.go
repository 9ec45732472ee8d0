// Package ics moves schedules in and out of iCalendar: a weekly recurring
// export of poster items and an import path (file or URL) that expands a
// reference week back into items.
package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "weekposter/internal/log"
)

// Source identifies where a calendar came from, for logging.
type Source struct {
	ID  string
	URL string
}

// Event is a normalized VEVENT. Recurrences are kept raw; Expand turns them
// into occurrences.
type Event struct {
	UID         string
	Summary     string
	Description string
	Location    string
	Color       string

	Start  time.Time
	End    time.Time
	AllDay bool

	RRule   string
	ExDates []time.Time
	// RecurrenceID is set on an override of one recurring instance.
	RecurrenceID *time.Time
}

// Parse reads every VEVENT of body. Events without a UID or start are
// skipped and logged; a body that is not a calendar is an error.
func Parse(src Source, body []byte) ([]Event, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("ics: empty body")
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, err
	}

	var events []Event
	for _, ve := range cal.Events() {
		ev, err := parseEvent(ve)
		if err != nil {
			appLog.Warn("ics vevent skipped", "err", err, "id", src.ID)
			continue
		}
		events = append(events, ev)
	}
	appLog.Info("ics parsed", "id", src.ID, "url", redactURL(src.URL), "events", len(events))
	return events, nil
}

func propValue(ve *ical.VEvent, name ical.ComponentProperty) string {
	if p := ve.GetProperty(name); p != nil {
		return p.Value
	}
	return ""
}

func param(p *ical.IANAProperty, key string) string {
	if p == nil || p.ICalParameters == nil {
		return ""
	}
	if vs := p.ICalParameters[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func parseEvent(ve *ical.VEvent) (Event, error) {
	ev := Event{
		UID:         propValue(ve, ical.ComponentPropertyUniqueId),
		Summary:     propValue(ve, ical.ComponentPropertySummary),
		Description: propValue(ve, ical.ComponentPropertyDescription),
		Location:    propValue(ve, ical.ComponentPropertyLocation),
		Color:       propValue(ve, ical.ComponentProperty("COLOR")),
		RRule:       propValue(ve, ical.ComponentPropertyRrule),
	}
	if ev.UID == "" {
		return ev, errors.New("missing UID")
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return ev, errors.New("missing DTSTART")
	}
	ev.AllDay = strings.EqualFold(param(dtStart, "VALUE"), "DATE") || !strings.Contains(dtStart.Value, "T")

	start, err := ve.GetStartAt()
	if err != nil {
		return ev, err
	}
	ev.Start = start
	if end, err := ve.GetEndAt(); err == nil {
		ev.End = end
	}
	if ev.End.IsZero() || !ev.End.After(ev.Start) {
		if ev.AllDay {
			ev.End = ev.Start.AddDate(0, 0, 1)
		} else {
			ev.End = ev.Start
		}
	}

	loc := ev.Start.Location()
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		ploc := zone(param(p, "TZID"), loc)
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseTime(part, ploc); err == nil {
				ev.ExDates = append(ev.ExDates, t)
			}
		}
	}
	if p := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); p != nil {
		if t, err := parseTime(p.Value, zone(param(p, "TZID"), loc)); err == nil {
			ev.RecurrenceID = &t
		}
	}
	return ev, nil
}

func zone(tzid string, fallback *time.Location) *time.Location {
	if tzid == "" {
		return fallback
	}
	if loc, err := time.LoadLocation(tzid); err == nil {
		return loc
	}
	return fallback
}

// parseTime reads DATE, floating DATE-TIME and UTC DATE-TIME values.
func parseTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
