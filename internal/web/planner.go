package web

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"weekposter/internal/model"
	"weekposter/internal/planner"
)

type activityRequest struct {
	Name  string `json:"name" validate:"required,max=80"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

type activityPatch struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=80"`
	Color *string `json:"color" validate:"omitempty,hexcolor"`
}

func (s *Server) listActivities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(s.planner.Activities()))
}

func (s *Server) createActivity(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if err := s.readJSON(w, r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.planner.AddActivity(req.Name, req.Color)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) updateActivity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req activityPatch
	if err := s.readJSON(w, r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Name != nil {
		if err := s.planner.RenameActivity(id, *req.Name); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	if req.Color != nil {
		if err := s.planner.RecolorActivity(id, *req.Color); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	a, ok := findActivity(s.planner.Activities(), id)
	if !ok {
		s.fail(w, r, fmt.Errorf("activity %s: %w", id, planner.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func findActivity(acts []model.Activity, id string) (model.Activity, bool) {
	for _, a := range acts {
		if a.ID == id {
			return a, true
		}
	}
	return model.Activity{}, false
}

func (s *Server) deleteActivity(w http.ResponseWriter, r *http.Request) {
	removed, err := s.planner.DeleteActivity(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removedBlocks": removed})
}

type blocksResponse struct {
	Blocks []planner.Block      `json:"blocks"`
	Items  []model.ScheduleItem `json:"items"`
}

func (s *Server) listBlocks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, blocksResponse{
		Blocks: nonNil(s.planner.Blocks()),
		Items:  nonNil(s.planner.Items()),
	})
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

type placeRequest struct {
	ActivityID string `json:"activityId" validate:"required"`
	DayIndex   *int   `json:"dayIndex" validate:"required,gte=0"`
	Slot       *int   `json:"slot" validate:"required,gte=0"`
}

func (s *Server) placeBlock(w http.ResponseWriter, r *http.Request) {
	var req placeRequest
	if err := s.readJSON(w, r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	b, err := s.planner.Place(req.ActivityID, *req.DayIndex, *req.Slot)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// blockPatch edits a block. Fields apply in order: move (DayIndex and Slot
// together), top edge, bottom edge, subtitle.
type blockPatch struct {
	DayIndex *int    `json:"dayIndex" validate:"required_with=Slot,omitempty,gte=0"`
	Slot     *int    `json:"slot" validate:"required_with=DayIndex,omitempty,gte=0"`
	Top      *int    `json:"top" validate:"omitempty,gte=0"`
	Bottom   *int    `json:"bottom" validate:"omitempty,gte=0"`
	Subtitle *string `json:"subtitle" validate:"omitempty,max=120"`
}

func (s *Server) updateBlock(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req blockPatch
	if err := s.readJSON(w, r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}

	var steps []func() (planner.Block, error)
	if req.DayIndex != nil && req.Slot != nil {
		steps = append(steps, func() (planner.Block, error) { return s.planner.Move(id, *req.DayIndex, *req.Slot) })
	}
	if req.Top != nil {
		steps = append(steps, func() (planner.Block, error) { return s.planner.ResizeTop(id, *req.Top) })
	}
	if req.Bottom != nil {
		steps = append(steps, func() (planner.Block, error) { return s.planner.ResizeBottom(id, *req.Bottom) })
	}
	if req.Subtitle != nil {
		steps = append(steps, func() (planner.Block, error) { return s.planner.SetSubtitle(id, *req.Subtitle) })
	}
	if len(steps) == 0 {
		s.fail(w, r, model.Invalid("body", "nothing to change"))
		return
	}

	var b planner.Block
	for _, step := range steps {
		var err error
		if b, err = step(); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) deleteBlock(w http.ResponseWriter, r *http.Request) {
	if err := s.planner.DeleteBlock(chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type settingsResponse struct {
	Settings planner.Settings `json:"settings"`
	Days     []string         `json:"days"`
	Slots    []planner.Slot   `json:"slots"`
}

func (s *Server) currentSettings() (settingsResponse, error) {
	st := s.planner.Settings()
	slots, err := planner.Slots(st)
	if err != nil {
		return settingsResponse{}, err
	}
	return settingsResponse{Settings: st, Days: s.planner.Days(), Slots: slots}, nil
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	resp, err := s.currentSettings()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) putSettings(w http.ResponseWriter, r *http.Request) {
	st := s.planner.Settings()
	if err := s.readJSON(w, r, &st, false); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.planner.SetSettings(st); err != nil {
		s.fail(w, r, err)
		return
	}
	s.getSettings(w, r)
}

func (s *Server) resetPlanner(w http.ResponseWriter, r *http.Request) {
	if err := s.planner.Reset(); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
