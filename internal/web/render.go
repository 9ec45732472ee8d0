package web

import (
	"net/http"
	"slices"

	"weekposter/internal/export"
	"weekposter/internal/model"
	"weekposter/internal/poster"
)

// renderRequest is the body of the render endpoints. Without a schedule the
// stored planner state is rendered; an empty body renders it with the
// configured defaults.
type renderRequest struct {
	Schedule *model.ScheduleData `json:"schedule"`
	Title    string              `json:"title" validate:"max=120"`
	Subtitle string              `json:"subtitle" validate:"max=160"`

	Format    string  `json:"format"`
	Width     int     `json:"width" validate:"required_with=Height,omitempty,gte=64,lte=8192"`
	Height    int     `json:"height" validate:"required_with=Width,omitempty,gte=64,lte=8192"`
	Theme     string  `json:"theme"`
	Legend    *bool   `json:"legend"`
	Watermark *string `json:"watermark" validate:"omitempty,max=80"`
}

// plannerData snapshots the planner. Configured grid steps win over the
// suggested tick step.
func (s *Server) plannerData(title, subtitle string) *model.ScheduleData {
	data := s.planner.ScheduleData(title, subtitle)
	if s.cfg.Export.TickStepMin > 0 {
		data.TickStepMin = s.cfg.Export.TickStepMin
	}
	if s.cfg.Export.CellCap > 0 {
		data.CellCap = s.cfg.Export.CellCap
	}
	return data
}

// exportOptions merges a request over the configured export defaults.
func (s *Server) exportOptions(req renderRequest) export.Options {
	ec := s.cfg.Export
	opts := export.Options{
		Format:     ec.Format,
		Theme:      ec.Theme,
		ShowLegend: ec.Legend,
		Watermark:  ec.Watermark,
	}
	if req.Format != "" {
		opts.Format = req.Format
	}
	if req.Width > 0 && req.Height > 0 {
		opts.Width, opts.Height = req.Width, req.Height
	}
	if req.Theme != "" {
		opts.Theme = req.Theme
	}
	if req.Legend != nil {
		opts.ShowLegend = *req.Legend
	}
	if req.Watermark != nil {
		opts.Watermark = *req.Watermark
	}
	return opts
}

func (s *Server) pdfOptions(req renderRequest) export.PDFOptions {
	ec := s.cfg.Export
	return export.PDFOptions{
		Options:     s.exportOptions(req),
		DPI:         ec.DPI,
		JPEGQuality: ec.JPEGQuality,
		Oversample:  ec.Oversample,
		MarginPt:    ec.MarginPt,
	}
}

// renderInput reads the request and resolves the schedule to draw.
func (s *Server) renderInput(w http.ResponseWriter, r *http.Request) (*model.ScheduleData, renderRequest, error) {
	var req renderRequest
	if err := s.readJSON(w, r, &req, true); err != nil {
		return nil, req, err
	}
	if req.Theme != "" && !slices.Contains(poster.Themes(), req.Theme) {
		return nil, req, model.Invalid("theme", "unknown theme %q", req.Theme)
	}
	if req.Schedule != nil {
		data := *req.Schedule
		if req.Title != "" {
			data.Title = req.Title
		}
		if req.Subtitle != "" {
			data.Subtitle = req.Subtitle
		}
		return &data, req, nil
	}
	return s.plannerData(req.Title, req.Subtitle), req, nil
}

func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	data, req, err := s.renderInput(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.exporter.SVG(r.Context(), data, s.exportOptions(req))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeBytes(w, "image/svg+xml", "", out)
}

func (s *Server) handlePNG(w http.ResponseWriter, r *http.Request) {
	data, req, err := s.renderInput(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.exporter.PNG(r.Context(), data, s.exportOptions(req))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeBytes(w, "image/png", "weekposter.png", out)
}

func (s *Server) handlePDF(w http.ResponseWriter, r *http.Request) {
	data, req, err := s.renderInput(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.exporter.PDF(r.Context(), data, s.pdfOptions(req))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeBytes(w, "application/pdf", "weekposter.pdf", out)
}

// writeBytes sends a rendered file; a non-empty name makes it a download.
func writeBytes(w http.ResponseWriter, contentType, name string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	if name != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
