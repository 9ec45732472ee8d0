package ics

import (
	"hash/fnv"
	"regexp"
	"strings"
	"time"

	"weekposter/internal/model"
)

var importColors = []string{"#93c5fd", "#fca5a5", "#86efac", "#fcd34d", "#c4b5fd", "#f9a8d4", "#67e8f9", "#fdba74"}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// colorFor keeps a valid COLOR and otherwise picks a stable color per title,
// so every instance of one class shares it.
func colorFor(o Occurrence) string {
	if hexColor.MatchString(o.Color) {
		return o.Color
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(o.Summary))
	return importColors[h.Sum32()%uint32(len(importColors))]
}

// ToItems maps occurrences of the week starting at weekStart onto day
// columns 0..days-1. All-day events are skipped, timed events are clipped
// at midnight, and the subtitle is the first DESCRIPTION line or the
// LOCATION.
func ToItems(occs []Occurrence, weekStart time.Time, days int) []model.ScheduleItem {
	loc := weekStart.Location()
	day0 := time.Date(weekStart.Year(), weekStart.Month(), weekStart.Day(), 0, 0, 0, 0, loc)

	var out []model.ScheduleItem
	for _, o := range occs {
		if o.AllDay {
			continue
		}
		s := o.Start.In(loc)
		e := o.End.In(loc)
		date := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, loc)
		// hours, not days, so DST weeks still land on the right column
		day := int((date.Sub(day0) + 12*time.Hour) / (24 * time.Hour))
		if date.Before(day0) || day >= days {
			continue
		}

		start := s.Hour()*60 + s.Minute()
		end := e.Hour()*60 + e.Minute()
		if !e.Before(date.AddDate(0, 0, 1)) {
			end = model.MinutesPerDay
		}
		if end <= start {
			continue
		}

		endText := model.FormatClock(end)
		if end == model.MinutesPerDay {
			endText = "24:00"
		}
		subtitle, _, _ := strings.Cut(strings.TrimSpace(o.Description), "\n")
		if subtitle == "" {
			subtitle = o.Location
		}
		out = append(out, model.ScheduleItem{
			DayIndex: day,
			Start:    model.FormatClock(start),
			End:      endText,
			Title:    o.Summary,
			Subtitle: strings.TrimSpace(subtitle),
			Color:    colorFor(o),
		})
	}
	return out
}
