package model

import "fmt"

// Validate reports the first structural problem in d as an InvalidInput
// error. A nil return guarantees Intervals and LunchInterval succeed.
func (d *ScheduleData) Validate() error {
	if d == nil {
		return Invalid("", "schedule data is nil")
	}
	if len(d.Days) == 0 {
		return Invalid("days", "at least one day is required")
	}
	if d.TickStepMin < 0 {
		return Invalid("tickStepMin", "must be positive, got %d", d.TickStepMin)
	}
	if d.CellCap < 0 {
		return Invalid("cellCap", "must be positive, got %d", d.CellCap)
	}
	for i, it := range d.Items {
		field := fmt.Sprintf("items[%d]", i)
		if it.DayIndex < 0 || it.DayIndex >= len(d.Days) {
			return Invalid(field+".dayIndex", "%d outside 0..%d", it.DayIndex, len(d.Days)-1)
		}
		s, err := ParseClock(it.Start)
		if err != nil {
			return Invalid(field+".start", "%v", err)
		}
		e, err := ParseClock(it.End)
		if err != nil {
			return Invalid(field+".end", "%v", err)
		}
		if s >= e {
			return Invalid(field, "start %s must be before end %s", it.Start, it.End)
		}
	}
	if d.Lunch != nil {
		if _, err := ParseClock(d.Lunch.Start); err != nil {
			return Invalid("lunch.start", "%v", err)
		}
		if d.Lunch.DurationMin <= 0 {
			return Invalid("lunch.durationMin", "must be positive, got %d", d.Lunch.DurationMin)
		}
	}
	return nil
}

// Intervals returns the parsed [start, end) minute span of every item, in
// item order. Items that fail to parse are reported as errors.
func (d *ScheduleData) Intervals() ([]Interval, error) {
	out := make([]Interval, 0, len(d.Items))
	for i, it := range d.Items {
		s, err := ParseClock(it.Start)
		if err != nil {
			return nil, Invalid(fmt.Sprintf("items[%d].start", i), "%v", err)
		}
		e, err := ParseClock(it.End)
		if err != nil {
			return nil, Invalid(fmt.Sprintf("items[%d].end", i), "%v", err)
		}
		out = append(out, Interval{Start: s, End: e})
	}
	return out, nil
}

// LunchInterval returns the lunch span, if any.
func (d *ScheduleData) LunchInterval() (Interval, bool) {
	if d.Lunch == nil {
		return Interval{}, false
	}
	s, err := ParseClock(d.Lunch.Start)
	if err != nil || d.Lunch.DurationMin <= 0 {
		return Interval{}, false
	}
	return Interval{Start: s, End: s + d.Lunch.DurationMin}, true
}
