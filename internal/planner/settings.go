package planner

import (
	"fmt"
	"math"
	"strings"

	"weekposter/internal/model"
)

// WeekdayKeys name the days of the week, Monday first.
var WeekdayKeys = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// Lookup maps a message key to display text. Keys are the weekday keys,
// "lunch", "title" and "subtitle".
type Lookup func(key string) string

var english = map[string]string{
	"monday":    "Monday",
	"tuesday":   "Tuesday",
	"wednesday": "Wednesday",
	"thursday":  "Thursday",
	"friday":    "Friday",
	"saturday":  "Saturday",
	"sunday":    "Sunday",
	"lunch":     "Lunch",
	"title":     "My Weekly Schedule",
	"subtitle":  "Activity Planner",
}

// DefaultLookup returns English text, or the key itself when unknown.
func DefaultLookup(key string) string {
	if s, ok := english[key]; ok {
		return s
	}
	return key
}

// LookupFrom overrides day names (Monday..Sunday) and the lunch label on top
// of DefaultLookup. Empty values keep the default.
func LookupFrom(days []string, lunch string) Lookup {
	return func(key string) string {
		if key == "lunch" && lunch != "" {
			return lunch
		}
		if i := weekdayIndex(key); i >= 0 && i < len(days) && days[i] != "" {
			return days[i]
		}
		return DefaultLookup(key)
	}
}

func weekdayIndex(key string) int {
	key = strings.ToLower(strings.TrimSpace(key))
	for i, k := range WeekdayKeys {
		if k == key {
			return i
		}
	}
	return -1
}

// Settings describe the planning grid.
type Settings struct {
	StartDay     string `json:"startDay"`
	EndDay       string `json:"endDay"`
	Start        string `json:"start"`
	End          string `json:"end"`
	StepMin      int    `json:"stepMin"`
	LunchEnabled bool   `json:"lunchEnabled"`
	LunchStart   string `json:"lunchStart"`
	LunchEnd     string `json:"lunchEnd"`
}

// DefaultSettings is Monday..Sunday, 08:00-18:00 in hourly slots.
func DefaultSettings() Settings {
	return Settings{
		StartDay:   "monday",
		EndDay:     "sunday",
		Start:      "08:00",
		End:        "18:00",
		StepMin:    60,
		LunchStart: "13:00",
		LunchEnd:   "14:00",
	}
}

// Validate reports the first invalid field.
func (s Settings) Validate() error {
	if _, err := DaysRange(s.StartDay, s.EndDay); err != nil {
		return err
	}
	start, err := model.ParseClock(s.Start)
	if err != nil {
		return model.Invalid("start", "%v", err)
	}
	end, err := model.ParseClock(s.End)
	if err != nil {
		return model.Invalid("end", "%v", err)
	}
	if end <= start {
		return model.Invalid("end", "must be after start")
	}
	if s.StepMin <= 0 {
		return model.Invalid("stepMin", "must be positive, got %d", s.StepMin)
	}
	if s.LunchEnabled {
		ls, err := model.ParseClock(s.LunchStart)
		if err != nil {
			return model.Invalid("lunchStart", "%v", err)
		}
		le, err := model.ParseClock(s.LunchEnd)
		if err != nil {
			return model.Invalid("lunchEnd", "%v", err)
		}
		if le <= ls {
			return model.Invalid("lunchEnd", "must be after lunchStart")
		}
	}
	return nil
}

// DaysRange returns weekday indices (0 = Monday) from start to end
// inclusive, wrapping past Sunday.
func DaysRange(start, end string) ([]int, error) {
	si, ei := weekdayIndex(start), weekdayIndex(end)
	if si < 0 {
		return nil, model.Invalid("startDay", "unknown day %q, want one of %s", start, strings.Join(WeekdayKeys, ", "))
	}
	if ei < 0 {
		return nil, model.Invalid("endDay", "unknown day %q, want one of %s", end, strings.Join(WeekdayKeys, ", "))
	}
	var out []int
	for i := si; ; i = (i + 1) % len(WeekdayKeys) {
		out = append(out, i)
		if i == ei {
			return out, nil
		}
	}
}

// Slot is one row of the planning grid.
type Slot struct {
	Index int    `json:"index"`
	Start int    `json:"start"` // minutes from midnight
	Label string `json:"label"`
}

// Slots lists the rows from Start (inclusive) to End (exclusive).
func Slots(s Settings) ([]Slot, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	start, _ := model.ParseClock(s.Start)
	end, _ := model.ParseClock(s.End)
	var out []Slot
	for m := start; m < end; m += s.StepMin {
		out = append(out, Slot{Index: len(out), Start: m, Label: model.FormatClock(m)})
	}
	return out, nil
}

// SnapSlot rounds an "HH:MM" time to the nearest slot index, clamped to
// the grid.
func SnapSlot(s Settings, clock string) (int, error) {
	slots, err := Slots(s)
	if err != nil {
		return 0, err
	}
	m, err := model.ParseClock(clock)
	if err != nil {
		return 0, err
	}
	return clampInt(boundary(slots, s.StepMin, m), 0, len(slots)-1), nil
}

// boundary is the nearest slot edge to m, in [0, len(slots)].
func boundary(slots []Slot, step, m int) int {
	i := int(math.Round(float64(m-slots[0].Start) / float64(step)))
	return clampInt(i, 0, len(slots))
}

// slotMinutes is the wall-clock span of [startSlot, endSlot).
func slotMinutes(slots []Slot, step, startSlot, endSlot int) (int, int) {
	base := slots[0].Start
	start := base + startSlot*step
	end := base + endSlot*step
	if end > model.MinutesPerDay {
		end = model.MinutesPerDay
	}
	return start, end
}

// endClock formats an end time, keeping midnight as 24:00.
func endClock(m int) string {
	if m == model.MinutesPerDay {
		return "24:00"
	}
	return model.FormatClock(m)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SuggestedStep picks the poster tick step from item durations: their GCD
// when it lies in 30..120, the first of 30, 45, 60, 90, 120 it divides when
// smaller, and 60 otherwise.
func SuggestedStep(items []model.ScheduleItem) int {
	g := 0
	for _, it := range items {
		s, err1 := model.ParseClock(it.Start)
		e, err2 := model.ParseClock(it.End)
		if err1 != nil || err2 != nil || e <= s {
			continue
		}
		g = gcd(g, e-s)
	}
	switch {
	case g == 0, g > 120:
		return 60
	case g < 30:
		for _, f := range []int{30, 45, 60, 90, 120} {
			if f%g == 0 {
				return f
			}
		}
		return 60
	}
	return g
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func (s Settings) String() string {
	return fmt.Sprintf("%s-%s %s-%s/%dm", s.StartDay, s.EndDay, s.Start, s.End, s.StepMin)
}
