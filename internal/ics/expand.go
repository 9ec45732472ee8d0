package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "weekposter/internal/log"
)

const defaultMaxPerEvent = 500

// Window bounds an expansion. Occurrences are reported in Location
// (time.Local when nil).
type Window struct {
	Start, End  time.Time
	Location    *time.Location
	MaxPerEvent int
}

// Occurrence is one concrete instance of an event.
type Occurrence struct {
	UID         string
	Summary     string
	Description string
	Location    string
	Color       string
	Start, End  time.Time
	AllDay      bool
}

// Expand turns events into the occurrences overlapping w, applying RRULE,
// EXDATE and RECURRENCE-ID overrides. Results are sorted by start.
func Expand(events []Event, w Window) ([]Occurrence, error) {
	if w.End.Before(w.Start) {
		return nil, errors.New("ics: window end before start")
	}
	if w.Location == nil {
		w.Location = time.Local
	}
	if w.MaxPerEvent <= 0 {
		w.MaxPerEvent = defaultMaxPerEvent
	}

	overrides := make(map[string][]Event)
	var bases []Event
	for _, ev := range events {
		if ev.RecurrenceID != nil {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		bases = append(bases, ev)
	}

	var out []Occurrence
	for _, ev := range bases {
		out = append(out, expandOne(ev, overrides[ev.UID], w)...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func expandOne(ev Event, overrides []Event, w Window) []Occurrence {
	var starts []time.Time
	if ev.RRule == "" {
		starts = []time.Time{ev.Start}
	} else {
		r, err := rrule.StrToRRule(ev.RRule)
		if err != nil {
			appLog.Error("ics rrule parse failed", err, "uid", ev.UID, "rrule", ev.RRule)
			return nil
		}
		r.DTStart(ev.Start)
		var set rrule.Set
		set.RRule(r)
		for _, ex := range ev.ExDates {
			set.ExDate(ex.In(ev.Start.Location()))
		}
		// widen by the event length so instances already running at w.Start count
		dur := ev.End.Sub(ev.Start)
		starts = set.Between(w.Start.Add(-dur).In(ev.Start.Location()), w.End.In(ev.Start.Location()), true)
		if len(starts) > w.MaxPerEvent {
			appLog.Warn("ics occurrences truncated", "uid", ev.UID, "cap", w.MaxPerEvent)
			starts = starts[:w.MaxPerEvent]
		}
	}

	var out []Occurrence
	for _, s := range starts {
		inst := ev
		inst.Start, inst.End = s, s.Add(ev.End.Sub(ev.Start))
		for _, o := range overrides {
			if o.RecurrenceID.Equal(s) {
				inst = o
				break
			}
		}
		if !overlaps(inst.Start, inst.End, w.Start, w.End) {
			continue
		}
		out = append(out, Occurrence{
			UID:         inst.UID,
			Summary:     inst.Summary,
			Description: inst.Description,
			Location:    inst.Location,
			Color:       inst.Color,
			Start:       inst.Start.In(w.Location),
			End:         inst.End.In(w.Location),
			AllDay:      inst.AllDay,
		})
	}
	return out
}

// overlaps treats [aStart, aEnd) and [bStart, bEnd) as half-open; a
// zero-length a counts when it lies inside b.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aEnd.Equal(aStart) {
		return !aStart.Before(bStart) && aStart.Before(bEnd)
	}
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
