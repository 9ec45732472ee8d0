package planner

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"weekposter/internal/model"
	"weekposter/internal/store"
	"weekposter/internal/timegrid"
)

func newTestPlanner(kv store.KV) *Planner {
	p := New(kv, nil)
	n := 0
	p.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return p
}

func TestDaysRange(t *testing.T) {
	cases := []struct {
		start, end string
		want       []int
	}{
		{"monday", "sunday", []int{0, 1, 2, 3, 4, 5, 6}},
		{"monday", "friday", []int{0, 1, 2, 3, 4}},
		{"friday", "tuesday", []int{4, 5, 6, 0, 1}},
		{"wednesday", "wednesday", []int{2}},
		{"Sunday", "MONDAY", []int{6, 0}},
	}
	for _, tc := range cases {
		got, err := DaysRange(tc.start, tc.end)
		if err != nil {
			t.Fatalf("DaysRange(%s, %s): %v", tc.start, tc.end, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("DaysRange(%s, %s) = %v, want %v", tc.start, tc.end, got, tc.want)
		}
	}
	if _, err := DaysRange("funday", "monday"); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("err = %v", err)
	}
}

func TestSlots(t *testing.T) {
	s := DefaultSettings()
	s.Start, s.End, s.StepMin = "08:00", "10:00", 30
	slots, err := Slots(s)
	if err != nil {
		t.Fatal(err)
	}
	labels := make([]string, len(slots))
	for i, sl := range slots {
		labels[i] = sl.Label
	}
	if want := []string{"08:00", "08:30", "09:00", "09:30"}; !reflect.DeepEqual(labels, want) {
		t.Fatalf("labels = %v", labels)
	}

	bad := s
	bad.End = "07:00"
	if _, err := Slots(bad); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("err = %v", err)
	}
	bad = s
	bad.StepMin = 0
	if _, err := Slots(bad); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("err = %v", err)
	}
}

func TestSnapSlot(t *testing.T) {
	s := DefaultSettings()
	s.StepMin = 30
	cases := []struct {
		clock string
		want  int
	}{
		{"08:00", 0},
		{"08:14", 0},
		{"08:16", 1},
		{"13:00", 10},
		{"06:00", 0},
		{"23:00", 19},
	}
	for _, tc := range cases {
		got, err := SnapSlot(s, tc.clock)
		if err != nil || got != tc.want {
			t.Errorf("SnapSlot(%s) = %d, %v; want %d", tc.clock, got, err, tc.want)
		}
	}
}

func TestSuggestedStep(t *testing.T) {
	item := func(start, end string) model.ScheduleItem {
		return model.ScheduleItem{Start: start, End: end}
	}
	cases := []struct {
		name  string
		items []model.ScheduleItem
		want  int
	}{
		{"empty", nil, 60},
		{"hour", []model.ScheduleItem{item("08:00", "09:00"), item("10:00", "12:00")}, 60},
		{"ninety", []model.ScheduleItem{item("08:00", "09:30"), item("10:00", "13:00")}, 90},
		{"fifteen", []model.ScheduleItem{item("08:00", "08:15"), item("09:00", "10:00")}, 30},
		{"twenty", []model.ScheduleItem{item("08:00", "08:20")}, 60},
		{"seven", []model.ScheduleItem{item("08:00", "08:07")}, 60},
		{"large", []model.ScheduleItem{item("08:00", "11:00")}, 60},
		{"invalid skipped", []model.ScheduleItem{item("09:00", "08:00"), item("08:00", "08:45")}, 45},
	}
	for _, tc := range cases {
		if got := SuggestedStep(tc.items); got != tc.want {
			t.Errorf("%s: SuggestedStep = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestPlaceAndEdit(t *testing.T) {
	p := newTestPlanner(nil)
	a, err := p.AddActivity("Math", "#3b82f6")
	if err != nil {
		t.Fatal(err)
	}

	// hourly grid 08:00-18:00: ten slots, default duration two
	b, err := p.Place(a.ID, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if b.StartSlot != 2 || b.EndSlot != 4 {
		t.Fatalf("placed %+v", b)
	}
	// clamped at the bottom of the grid
	last, err := p.Place(a.ID, 1, 9)
	if err != nil {
		t.Fatal(err)
	}
	if last.EndSlot != 10 {
		t.Fatalf("end = %d, want 10", last.EndSlot)
	}

	if _, err := p.Place(a.ID, 7, 0); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("err = %v", err)
	}
	if _, err := p.Place("nope", 0, 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}

	moved, err := p.Move(b.ID, 3, 8)
	if err != nil {
		t.Fatal(err)
	}
	if moved.DayIndex != 3 || moved.StartSlot != 8 || moved.EndSlot != 10 {
		t.Fatalf("moved %+v", moved)
	}
	if _, err := p.Move(b.ID, -1, 0); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("err = %v", err)
	}

	top, err := p.ResizeTop(b.ID, 9)
	if err != nil {
		t.Fatal(err)
	}
	if top.StartSlot != 9 || top.EndSlot != 10 {
		t.Fatalf("resize top %+v", top)
	}
	top, _ = p.ResizeTop(b.ID, 5)
	if top.StartSlot != 5 {
		t.Fatalf("resize top %+v", top)
	}
	bottom, err := p.ResizeBottom(b.ID, 2)
	if err != nil {
		t.Fatal(err)
	}
	if bottom.EndSlot != 6 {
		t.Fatalf("resize bottom below start should keep one slot, got %+v", bottom)
	}
	bottom, _ = p.ResizeBottom(b.ID, 7)
	if bottom.EndSlot != 8 {
		t.Fatalf("resize bottom %+v", bottom)
	}

	if _, err := p.SetSubtitle(b.ID, "  Room 4 "); err != nil {
		t.Fatal(err)
	}
	items := p.Items()
	if len(items) != 2 {
		t.Fatalf("items = %+v", items)
	}
	want := model.ScheduleItem{DayIndex: 3, Start: "13:00", End: "16:00", Title: "Math", Subtitle: "Room 4", Color: "#3b82f6"}
	if items[0] != want {
		t.Fatalf("item = %+v, want %+v", items[0], want)
	}

	if err := p.DeleteBlock(b.ID); err != nil {
		t.Fatal(err)
	}
	if err := p.DeleteBlock(b.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestDefaultDuration(t *testing.T) {
	for step, want := range map[int]int{15: 4, 30: 2, 60: 2, 120: 2, 20: 3} {
		if got := DefaultDurationSlots(step); got != want {
			t.Errorf("DefaultDurationSlots(%d) = %d, want %d", step, got, want)
		}
	}
}

func TestDeleteActivityCascades(t *testing.T) {
	p := newTestPlanner(nil)
	math, _ := p.AddActivity("Math", "#3b82f6")
	art, _ := p.AddActivity("Art", "#f59e0b")
	for day := 0; day < 5; day++ {
		if _, err := p.Place(math.ID, day, 0); err != nil {
			t.Fatal(err)
		}
		if _, err := p.Place(art.ID, day, 4); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := p.DeleteActivity(math.ID)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 5 {
		t.Fatalf("removed = %d", removed)
	}
	for _, b := range p.Blocks() {
		if b.ActivityID == math.ID {
			t.Fatalf("block %s survived its activity", b.ID)
		}
	}
	if len(p.Blocks()) != 5 || len(p.Activities()) != 1 {
		t.Fatalf("state = %d blocks, %d activities", len(p.Blocks()), len(p.Activities()))
	}
	if _, err := p.DeleteActivity(math.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestRenamePropagates(t *testing.T) {
	p := newTestPlanner(nil)
	a, _ := p.AddActivity("Math", "#3b82f6")
	if _, err := p.Place(a.ID, 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := p.RenameActivity(a.ID, "Algebra"); err != nil {
		t.Fatal(err)
	}
	if err := p.RecolorActivity(a.ID, "#ef4444"); err != nil {
		t.Fatal(err)
	}
	it := p.Items()[0]
	if it.Title != "Algebra" || it.Color != "#ef4444" {
		t.Fatalf("item = %+v", it)
	}
	if err := p.RenameActivity(a.ID, " "); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("err = %v", err)
	}
	if _, err := p.AddActivity("", "#fff"); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("err = %v", err)
	}
}

func TestSetSettingsTrimsBlocks(t *testing.T) {
	p := newTestPlanner(nil)
	a, _ := p.AddActivity("Math", "#3b82f6")
	keep, _ := p.Place(a.ID, 1, 2)
	_, _ = p.Place(a.ID, 6, 0) // sunday
	_, _ = p.Place(a.ID, 0, 8) // 16:00

	s := DefaultSettings()
	s.EndDay = "friday"
	s.End = "15:00"
	if err := p.SetSettings(s); err != nil {
		t.Fatal(err)
	}
	blocks := p.Blocks()
	if len(blocks) != 1 || blocks[0].ID != keep.ID {
		t.Fatalf("blocks = %+v", blocks)
	}
	if len(p.Days()) != 5 {
		t.Fatalf("days = %v", p.Days())
	}

	s.StepMin = -5
	if err := p.SetSettings(s); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("err = %v", err)
	}
}

func TestScheduleData(t *testing.T) {
	p := New(nil, LookupFrom([]string{"Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado", "Domingo"}, "Almuerzo"))
	s := DefaultSettings()
	s.EndDay = "wednesday"
	s.StepMin = 30
	s.LunchEnabled = true
	if err := p.SetSettings(s); err != nil {
		t.Fatal(err)
	}
	a, _ := p.AddActivity("Math", "#3b82f6")
	b, _ := p.Place(a.ID, 2, 3)
	if _, err := p.ResizeBottom(b.ID, 5); err != nil {
		t.Fatal(err)
	}

	data := p.ScheduleData("", "Term 1")
	if data.Title != "My Weekly Schedule" || data.Subtitle != "Term 1" {
		t.Fatalf("titles = %q %q", data.Title, data.Subtitle)
	}
	if !reflect.DeepEqual(data.Days, []string{"Lunes", "Martes", "Miércoles"}) {
		t.Fatalf("days = %v", data.Days)
	}
	if data.Lunch == nil || data.Lunch.Start != "13:00" || data.Lunch.DurationMin != 60 || data.Lunch.Label != "Almuerzo" {
		t.Fatalf("lunch = %+v", data.Lunch)
	}
	if len(data.Items) != 1 || data.Items[0].Start != "09:30" || data.Items[0].End != "11:00" {
		t.Fatalf("items = %+v", data.Items)
	}
	if data.TickStepMin != 30 {
		t.Fatalf("tick = %d, want the 30 minute planner step", data.TickStepMin)
	}
	if err := data.Validate(); err != nil {
		t.Fatalf("planner output invalid: %v", err)
	}
}

func TestScheduleDataKeepsSlotEdges(t *testing.T) {
	p := New(nil, nil)
	s := DefaultSettings()
	s.StepMin = 15
	if err := p.SetSettings(s); err != nil {
		t.Fatal(err)
	}
	a, _ := p.AddActivity("Math", "#3b82f6")
	b1, _ := p.Place(a.ID, 0, 1) // 08:15
	if _, err := p.ResizeBottom(b1.ID, 3); err != nil {
		t.Fatal(err)
	}
	b2, _ := p.Place(a.ID, 0, 8) // 10:00
	if _, err := p.ResizeBottom(b2.ID, 9); err != nil {
		t.Fatal(err)
	}

	data := p.ScheduleData("", "")
	if data.TickStepMin != 15 {
		t.Fatalf("tick = %d, want 15", data.TickStepMin)
	}
	ivs, err := data.Intervals()
	if err != nil {
		t.Fatal(err)
	}
	opts := timegrid.DefaultOptions()
	opts.MinQuantum = data.TickStepMin
	opts.AlignStarts = true
	g := timegrid.Build(ivs, opts)
	for _, iv := range ivs {
		if g.SnapDown(iv.Start) != iv.Start || g.SnapUp(iv.End) != iv.End {
			t.Fatalf("%s-%s moves on a %d minute grid", model.FormatClock(iv.Start), model.FormatClock(iv.End), g.QuantumMin)
		}
	}
}

func TestEndOfDayItem(t *testing.T) {
	p := newTestPlanner(nil)
	s := DefaultSettings()
	s.Start, s.End = "22:00", "24:00"
	if err := p.SetSettings(s); err != nil {
		t.Fatal(err)
	}
	a, _ := p.AddActivity("Night", "#111827")
	if _, err := p.Place(a.ID, 0, 0); err != nil {
		t.Fatal(err)
	}
	it := p.Items()[0]
	if it.Start != "22:00" || it.End != "24:00" {
		t.Fatalf("item = %+v", it)
	}
	if err := p.ScheduleData("", "").Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestImportItems(t *testing.T) {
	p := newTestPlanner(nil)
	existing, _ := p.AddActivity("Math", "#3b82f6")
	n, err := p.ImportItems([]model.ScheduleItem{
		{DayIndex: 0, Start: "09:10", End: "10:50", Title: "Math", Color: "#000000"},
		{DayIndex: 1, Start: "14:00", End: "15:00", Title: "Art", Color: "#f59e0b", Subtitle: "Studio"},
		{DayIndex: 9, Start: "14:00", End: "15:00", Title: "Ghost"},
		{DayIndex: 2, Start: "14:00", End: "13:00", Title: "Backwards"},
		{DayIndex: 2, Start: "14:20", End: "14:25", Title: "Short"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("placed = %d", n)
	}
	acts := p.Activities()
	if len(acts) != 3 || acts[0].ID != existing.ID || acts[0].Color != "#3b82f6" {
		t.Fatalf("activities = %+v", acts)
	}
	blocks := p.Blocks()
	if blocks[0].StartSlot != 1 || blocks[0].EndSlot != 3 {
		t.Fatalf("math block = %+v", blocks[0])
	}
	if blocks[2].EndSlot-blocks[2].StartSlot != 1 {
		t.Fatalf("short block should keep one slot, got %+v", blocks[2])
	}
}

func TestEvents(t *testing.T) {
	p := newTestPlanner(nil)
	var got []EventKind
	unsub := p.Subscribe(func(ev Event) { got = append(got, ev.Kind) })

	a, _ := p.AddActivity("Math", "#3b82f6")
	b, _ := p.Place(a.ID, 0, 0)
	_, _ = p.Move(b.ID, 1, 1)
	_, _ = p.DeleteActivity(a.ID)
	unsub()
	_, _ = p.AddActivity("Art", "#f59e0b")

	want := []EventKind{ActivityAdded, BlockPlaced, BlockChanged, ActivityDeleted}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
}

func TestSubscriberMayReadState(t *testing.T) {
	p := newTestPlanner(nil)
	seen := -1
	p.Subscribe(func(Event) { seen = len(p.Activities()) })
	if _, err := p.AddActivity("Math", "#3b82f6"); err != nil {
		t.Fatal(err)
	}
	if seen != 1 {
		t.Fatalf("subscriber saw %d activities", seen)
	}
}

func TestSaveLoad(t *testing.T) {
	kv := store.NewMemoryStore()
	p := newTestPlanner(kv)
	a, _ := p.AddActivity("Math", "#3b82f6")
	b, _ := p.Place(a.ID, 2, 1)
	_, _ = p.SetSubtitle(b.ID, "Room 4")
	s := DefaultSettings()
	s.StepMin = 30
	_ = p.SetSettings(s)
	if err := p.Save(); err != nil {
		t.Fatal(err)
	}

	q := New(kv, nil)
	if err := q.Load(); err != nil {
		t.Fatal(err)
	}
	if q.Settings() != p.Settings() {
		t.Fatalf("settings = %+v", q.Settings())
	}
	if !reflect.DeepEqual(q.Items(), p.Items()) {
		t.Fatalf("items = %+v, want %+v", q.Items(), p.Items())
	}

	if err := q.Reset(); err != nil {
		t.Fatal(err)
	}
	var acts []model.Activity
	if ok, _ := kv.Get(store.KeyActivities, &acts); ok {
		t.Fatal("Reset left stored activities")
	}
	if len(q.Activities()) != 0 || q.Settings() != DefaultSettings() {
		t.Fatal("Reset did not restore defaults")
	}
}

func TestLoadDropsBrokenState(t *testing.T) {
	kv := store.NewMemoryStore()
	_ = kv.Set(store.KeySettings, Settings{StartDay: "monday", EndDay: "sunday", Start: "10:00", End: "09:00", StepMin: 60})
	_ = kv.Set(store.KeyActivities, []model.Activity{{ID: "a", Name: "Math", Color: "#3b82f6"}})
	_ = kv.Set(store.KeyBlocks, []Block{
		{ID: "b1", ActivityID: "a", DayIndex: 0, StartSlot: 0, EndSlot: 2},
		{ID: "b2", ActivityID: "gone", DayIndex: 0, StartSlot: 0, EndSlot: 2},
		{ID: "b3", ActivityID: "a", DayIndex: 0, StartSlot: 40, EndSlot: 42},
	})
	p := New(kv, nil)
	if err := p.Load(); err != nil {
		t.Fatal(err)
	}
	if p.Settings() != DefaultSettings() {
		t.Fatalf("settings = %+v", p.Settings())
	}
	if blocks := p.Blocks(); len(blocks) != 1 || blocks[0].ID != "b1" {
		t.Fatalf("blocks = %+v", blocks)
	}
}
