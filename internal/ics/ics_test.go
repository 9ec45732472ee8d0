package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"weekposter/internal/model"
)

func weekly() *model.ScheduleData {
	return &model.ScheduleData{
		Title: "Term 1",
		Days:  []string{"Mon", "Tue", "Wed", "Thu", "Fri"},
		Items: []model.ScheduleItem{
			{DayIndex: 0, Start: "09:00", End: "10:30", Title: "Math", Subtitle: "Room 4", Color: "#3b82f6"},
			{DayIndex: 2, Start: "13:00", End: "14:00", Title: "Art", Color: "#f59e0b"},
			{DayIndex: 4, Start: "22:00", End: "24:00", Title: "Late", Color: "#111827"},
		},
	}
}

func sortItems(items []model.ScheduleItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].DayIndex != items[j].DayIndex {
			return items[i].DayIndex < items[j].DayIndex
		}
		return items[i].Start < items[j].Start
	})
}

func TestExportContent(t *testing.T) {
	stamp := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	out, err := Export(weekly(), ExportOptions{WeekOf: time.Date(2025, 1, 8, 15, 0, 0, 0, time.UTC), Stamp: stamp})
	if err != nil {
		t.Fatal(err)
	}
	body := string(out)
	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"X-WR-CALNAME:Term 1",
		"DTSTART:20250106T090000Z",
		"DTEND:20250106T103000Z",
		"RRULE:FREQ=WEEKLY",
		"BYDAY=MO",
		"BYDAY=WE",
		"DTEND:20250111T000000Z",
		"SUMMARY:Math",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("export missing %q", want)
		}
	}
	if n := strings.Count(body, "BEGIN:VEVENT"); n != 3 {
		t.Fatalf("events = %d", n)
	}

	again, _ := Export(weekly(), ExportOptions{WeekOf: time.Date(2025, 1, 8, 15, 0, 0, 0, time.UTC), Stamp: stamp})
	if string(again) != body {
		t.Fatal("export not deterministic")
	}
}

func TestExportTZID(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Skip("tz database unavailable")
	}
	out, err := Export(weekly(), ExportOptions{Location: loc, WeekOf: time.Date(2025, 1, 8, 0, 0, 0, 0, loc)})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "DTSTART;TZID=Europe/Madrid:20250106T090000") {
		t.Fatalf("no local start:\n%s", out)
	}
}

func TestExportCustomWeekdays(t *testing.T) {
	data := weekly()
	data.Days = data.Days[:3]
	data.Items = data.Items[:2]
	out, err := Export(data, ExportOptions{Weekdays: []time.Weekday{time.Saturday, time.Sunday, time.Monday}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "BYDAY=SA") || !strings.Contains(string(out), "BYDAY=MO") {
		t.Fatalf("weekday mapping lost:\n%s", out)
	}
	if _, err := Export(data, ExportOptions{Weekdays: []time.Weekday{time.Monday}}); err == nil {
		t.Fatal("expected error for short weekday list")
	}
}

func TestRoundTrip(t *testing.T) {
	weekOf := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	out, err := Export(weekly(), ExportOptions{WeekOf: weekOf})
	if err != nil {
		t.Fatal(err)
	}
	events, err := Parse(Source{ID: "test"}, out)
	if err != nil {
		t.Fatal(err)
	}

	// a later week: every item comes back through the RRULE
	monday := WeekStart(weekOf, time.UTC).AddDate(0, 0, 14)
	occs, err := Expand(events, Window{Start: monday, End: monday.AddDate(0, 0, 7), Location: time.UTC})
	if err != nil {
		t.Fatal(err)
	}
	got := ToItems(occs, monday, 5)
	want := weekly().Items
	sortItems(got)
	sortItems(want)
	if len(got) != len(want) {
		t.Fatalf("items = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

const calendar = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:standup
DTSTAMP:20250101T000000Z
DTSTART:20250106T090000Z
DTEND:20250106T091500Z
RRULE:FREQ=DAILY;COUNT=10
EXDATE:20250108T090000Z
SUMMARY:Standup
LOCATION:Room 1
END:VEVENT
BEGIN:VEVENT
UID:standup
DTSTAMP:20250101T000000Z
RECURRENCE-ID:20250109T090000Z
DTSTART:20250109T100000Z
DTEND:20250109T103000Z
SUMMARY:Standup (moved)
END:VEVENT
BEGIN:VEVENT
UID:holiday
DTSTAMP:20250101T000000Z
DTSTART;VALUE=DATE:20250107
DTEND;VALUE=DATE:20250108
SUMMARY:Holiday
END:VEVENT
BEGIN:VEVENT
UID:overnight
DTSTAMP:20250101T000000Z
DTSTART:20250110T220000Z
DTEND:20250111T020000Z
SUMMARY:Night shift
END:VEVENT
BEGIN:VEVENT
DTSTAMP:20250101T000000Z
DTSTART:20250110T220000Z
SUMMARY:No UID
END:VEVENT
END:VCALENDAR
`

func TestExpandAndToItems(t *testing.T) {
	events, err := Parse(Source{ID: "cal"}, []byte(strings.ReplaceAll(calendar, "\n", "\r\n")))
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 4 {
		t.Fatalf("events = %d, want 4 (one without UID skipped)", len(events))
	}

	monday := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	occs, err := Expand(events, Window{Start: monday, End: monday.AddDate(0, 0, 7), Location: time.UTC})
	if err != nil {
		t.Fatal(err)
	}

	standups := 0
	for _, o := range occs {
		if strings.HasPrefix(o.Summary, "Standup") {
			standups++
			if o.Start.Day() == 8 {
				t.Fatal("EXDATE instance expanded")
			}
		}
	}
	if standups != 6 {
		t.Fatalf("standups this week = %d, want 6", standups)
	}

	items := ToItems(occs, monday, 7)
	var moved, night *model.ScheduleItem
	for i := range items {
		switch items[i].Title {
		case "Standup (moved)":
			moved = &items[i]
		case "Night shift":
			night = &items[i]
		case "Holiday":
			t.Fatal("all-day event imported")
		}
	}
	if moved == nil || moved.DayIndex != 3 || moved.Start != "10:00" || moved.End != "10:30" {
		t.Fatalf("override = %+v", moved)
	}
	if night == nil || night.DayIndex != 4 || night.End != "24:00" {
		t.Fatalf("overnight = %+v", night)
	}
	for _, it := range items {
		if it.Title == "Standup" && it.Subtitle != "Room 1" {
			t.Fatalf("subtitle = %q", it.Subtitle)
		}
	}
	if items[0].Color == "" {
		t.Fatal("imported item without color")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse(Source{}, nil); err == nil {
		t.Fatal("expected error for empty body")
	}
}

func TestExpandWindow(t *testing.T) {
	now := time.Now()
	if _, err := Expand(nil, Window{Start: now, End: now.Add(-time.Hour)}); err == nil {
		t.Fatal("expected error for inverted window")
	}
}

func TestFetchCaches(t *testing.T) {
	var (
		hits int32
		down atomic.Bool
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if down.Load() {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(calendar))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	f.Client = srv.Client()
	src := Source{ID: "team", URL: srv.URL + "/cal.ics?token=secret"}

	first, err := f.Fetch(context.Background(), src)
	if err != nil || first.FromCache || !strings.Contains(string(first.Body), "Standup") {
		t.Fatalf("first fetch = %+v, %v", first.FromCache, err)
	}
	second, err := f.Fetch(context.Background(), src)
	if err != nil || !second.FromCache || string(second.Body) != string(first.Body) {
		t.Fatalf("304 fetch = %+v, %v", second.FromCache, err)
	}
	down.Store(true)
	third, err := f.Fetch(context.Background(), src)
	if err != nil || !third.FromCache {
		t.Fatalf("fallback fetch = %+v, %v", third.FromCache, err)
	}
	if n := atomic.LoadInt32(&hits); n != 3 {
		t.Fatalf("hits = %d", n)
	}

	fresh := NewFetcher(t.TempDir())
	fresh.Client = srv.Client()
	if _, err := fresh.Fetch(context.Background(), src); err == nil {
		t.Fatal("expected error without cache")
	}
	if _, err := fresh.Fetch(context.Background(), Source{URL: "file:///etc/passwd"}); err == nil {
		t.Fatal("expected error for non-http url")
	}
}

func TestRedactURL(t *testing.T) {
	got := redactURL("https://calendar.example.com/private/abc.ics?token=1")
	if got != "https://calendar.example.com/...(redacted)" {
		t.Fatalf("redactURL = %q", got)
	}
}
