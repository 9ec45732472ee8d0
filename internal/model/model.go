package model

// Activity is a reusable template (name + color) from which schedule items
// are stamped onto the grid. Blocks reference it by ID.
type Activity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Lunch describes the optional lunch band drawn across every day column.
type Lunch struct {
	Start       string `json:"start"` // "HH:MM"
	DurationMin int    `json:"durationMin"`
	Label       string `json:"label,omitempty"`
}

// ScheduleItem is one placed activity instance on the poster.
type ScheduleItem struct {
	DayIndex  int    `json:"dayIndex"`
	Start     string `json:"start"` // "HH:MM"
	End       string `json:"end"`   // "HH:MM", strictly after Start
	Title     string `json:"title"`
	Subtitle  string `json:"subtitle,omitempty"`
	Color     string `json:"color"`
	TextColor string `json:"textColor,omitempty"`
}

// ScheduleData is the export payload: a pure-data snapshot handed from the
// planner (or any caller) to the poster renderer.
type ScheduleData struct {
	Title       string         `json:"title,omitempty"`
	Subtitle    string         `json:"subtitle,omitempty"`
	Days        []string       `json:"days"`
	TickStepMin int            `json:"tickStepMin,omitempty"`
	CellCap     int            `json:"cellCap,omitempty"`
	Lunch       *Lunch         `json:"lunch,omitempty"`
	Items       []ScheduleItem `json:"items"`
}

// Interval is a parsed [Start, End) span in minutes from midnight.
type Interval struct {
	Start int
	End   int
}

// Duration returns End-Start.
func (iv Interval) Duration() int {
	return iv.End - iv.Start
}
