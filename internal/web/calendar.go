package web

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"weekposter/internal/ics"
	appLog "weekposter/internal/log"
	"weekposter/internal/model"
	"weekposter/internal/planner"
)

const weekLayout = "2006-01-02"

// resolveLocation loads the configured zone, falling back to UTC.
func resolveLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to UTC", err, "name", name)
		return time.UTC
	}
	return loc
}

// parseWeek reads a YYYY-MM-DD date in loc; empty means now.
func parseWeek(v string, loc *time.Location) (time.Time, error) {
	if v == "" {
		return time.Now().In(loc), nil
	}
	t, err := time.ParseInLocation(weekLayout, v, loc)
	if err != nil {
		return time.Time{}, model.Invalid("week", "want %s, got %q", weekLayout, v)
	}
	return t, nil
}

// plannerWeek returns the weekday of each planner column and the date of
// the first column in the week containing weekOf.
func (s *Server) plannerWeek(weekOf time.Time, loc *time.Location) ([]time.Weekday, time.Time, error) {
	st := s.planner.Settings()
	idx, err := planner.DaysRange(st.StartDay, st.EndDay)
	if err != nil {
		return nil, time.Time{}, err
	}
	weekdays := make([]time.Weekday, len(idx))
	for i, d := range idx {
		weekdays[i] = time.Weekday((d + 1) % 7)
	}
	first := ics.WeekStart(weekOf, loc).AddDate(0, 0, idx[0])
	return weekdays, first, nil
}

// handleCalendar exports the planner as weekly recurring events.
//
// GET /api/calendar.ics?week=2025-01-06&title=...
//   - week:  any date of the week holding the first occurrences (default now)
//   - title: calendar and poster title
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	loc := resolveLocation(s.cfg.Timezone)
	weekOf, err := parseWeek(q.Get("week"), loc)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	weekdays, _, err := s.plannerWeek(weekOf, loc)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data := s.plannerData(q.Get("title"), "")
	if len(data.Items) == 0 {
		s.fail(w, r, model.Invalid("items", "nothing placed"))
		return
	}
	out, err := ics.Export(data, ics.ExportOptions{Location: loc, WeekOf: weekOf, Weekdays: weekdays})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeBytes(w, "text/calendar; charset=utf-8", "weekposter.ics", out)
}

// importRequest names a calendar to import. Exactly one of URL and
// SourceID is used; SourceID refers to a configured calendar.
type importRequest struct {
	URL      string `json:"url" validate:"required_without=SourceID,omitempty,url"`
	SourceID string `json:"sourceId" validate:"required_without=URL"`
	Week     string `json:"week" validate:"omitempty,datetime=2006-01-02"`
}

type importResponse struct {
	Imported  int  `json:"imported"`
	Skipped   int  `json:"skipped"`
	FromCache bool `json:"fromCache"`
}

// handleImport places the events of one week of a calendar onto the grid.
//
// POST /api/import/ics
//   - text/calendar body: the calendar itself, week from ?week=
//   - JSON body: importRequest, fetched through the ICS cache
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var (
		src   ics.Source
		body  []byte
		week  = r.URL.Query().Get("week")
		cache bool
	)

	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "text/calendar" {
		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, ics.MaxBodyBytes))
		if err != nil {
			s.fail(w, r, model.Invalid("body", "%v", err))
			return
		}
		src, body = ics.Source{ID: "upload"}, raw
	} else {
		var req importRequest
		if err := s.readJSON(w, r, &req, false); err != nil {
			s.fail(w, r, err)
			return
		}
		if req.Week != "" {
			week = req.Week
		}
		src = ics.Source{ID: "url", URL: req.URL}
		if req.SourceID != "" {
			var ok bool
			if src, ok = s.configuredSource(req.SourceID); !ok {
				s.fail(w, r, fmt.Errorf("calendar %s: %w", req.SourceID, planner.ErrNotFound))
				return
			}
		}
		res, err := s.fetcher.Fetch(r.Context(), src)
		if err != nil {
			appLog.Error("ics import fetch failed", err, "id", src.ID)
			writeError(w, http.StatusBadGateway, "failed to fetch calendar")
			return
		}
		body, cache = res.Body, res.FromCache
	}

	if len(bytes.TrimSpace(body)) == 0 {
		s.fail(w, r, model.Invalid("body", "empty calendar"))
		return
	}
	loc := resolveLocation(s.cfg.Timezone)
	weekOf, err := parseWeek(week, loc)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	events, err := ics.Parse(src, body)
	if err != nil {
		s.fail(w, r, model.Invalid("calendar", "%v", err))
		return
	}
	weekdays, first, err := s.plannerWeek(weekOf, loc)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	occs, err := ics.Expand(events, ics.Window{Start: first, End: first.AddDate(0, 0, len(weekdays)), Location: loc})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	items := ics.ToItems(occs, first, len(weekdays))
	n, err := s.planner.ImportItems(items)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	appLog.Info("ics imported", "id", src.ID, "events", len(events), "items", len(items), "placed", n)
	writeJSON(w, http.StatusOK, importResponse{Imported: n, Skipped: len(items) - n, FromCache: cache})
}

func (s *Server) configuredSource(id string) (ics.Source, bool) {
	for _, c := range s.cfg.ICS {
		if c.ID == id && c.URL != "" {
			return ics.Source{ID: c.ID, URL: c.URL}, true
		}
	}
	return ics.Source{}, false
}
