package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"weekposter/internal/config"
	"weekposter/internal/export"
	"weekposter/internal/ics"
	appLog "weekposter/internal/log"
	"weekposter/internal/model"
	"weekposter/internal/planner"
)

// runOnce renders one poster from -input (or the stored planner state) and
// writes it to -out.
func runOnce(ctx context.Context, conf *config.Config, p *planner.Planner, ex *export.Exporter, flags flagConfig) error {
	opts, err := exportOptions(conf, flags)
	if err != nil {
		return err
	}

	var (
		data     *model.ScheduleData
		weekdays []time.Weekday
	)
	if flags.input != "" {
		if data, err = readSchedule(flags.input); err != nil {
			return err
		}
		applyGridDefaults(conf, data, false)
	} else {
		data = p.ScheduleData(conf.AutoExport.Title, "")
		applyGridDefaults(conf, data, true)
		weekdays = plannerWeekdays(p)
	}

	format := strings.ToLower(flags.format)
	out, err := render(ctx, conf, ex, data, format, opts, weekdays)
	if err != nil {
		return err
	}

	path := flags.out
	if path == "" {
		path = "weekposter." + format
	}
	if path == "-" {
		_, err = os.Stdout.Write(out)
		return err
	}
	if err := writeFile(path, out); err != nil {
		return err
	}
	appLog.Info("poster written", "path", path, "format", format, "bytes", len(out))
	return nil
}

// autoExport writes every configured format of the planner state to the
// output directory, replacing the previous files.
func autoExport(ctx context.Context, conf *config.Config, p *planner.Planner, ex *export.Exporter) {
	start := time.Now()
	data := p.ScheduleData(conf.AutoExport.Title, "")
	applyGridDefaults(conf, data, true)
	opts, err := exportOptions(conf, flagConfig{})
	if err != nil {
		appLog.Error("auto export: bad options", err)
		return
	}
	if err := os.MkdirAll(conf.AutoExport.OutputDir, 0o755); err != nil {
		appLog.Error("auto export: output dir", err, "dir", conf.AutoExport.OutputDir)
		return
	}

	weekdays := plannerWeekdays(p)
	for _, format := range conf.AutoExport.Formats {
		format = strings.ToLower(strings.TrimSpace(format))
		out, err := render(ctx, conf, ex, data, format, opts, weekdays)
		if err != nil {
			appLog.Error("auto export failed", err, "format", format)
			continue
		}
		path := filepath.Join(conf.AutoExport.OutputDir, "weekposter."+format)
		if err := writeFile(path, out); err != nil {
			appLog.Error("auto export write failed", err, "path", path)
			continue
		}
		appLog.Info("auto export written", "path", path, "bytes", len(out))
	}
	appLog.Debug("auto export finished", "elapsed", time.Since(start))
}

func render(ctx context.Context, conf *config.Config, ex *export.Exporter, data *model.ScheduleData, format string, opts export.Options, weekdays []time.Weekday) ([]byte, error) {
	switch format {
	case "svg":
		return ex.SVG(ctx, data, opts)
	case "png":
		return ex.PNG(ctx, data, opts)
	case "pdf":
		return ex.PDF(ctx, data, export.PDFOptions{
			Options:     opts,
			DPI:         conf.Export.DPI,
			JPEGQuality: conf.Export.JPEGQuality,
			Oversample:  conf.Export.Oversample,
			MarginPt:    conf.Export.MarginPt,
		})
	case "ics":
		return ics.Export(data, ics.ExportOptions{
			Location: resolveLocation(conf.Timezone),
			WeekOf:   time.Now(),
			Weekdays: weekdays,
		})
	default:
		return nil, fmt.Errorf("unknown format %q, want png, pdf, svg or ics", format)
	}
}

// exportOptions merges the CLI flags over the configured defaults.
func exportOptions(conf *config.Config, flags flagConfig) (export.Options, error) {
	opts := export.Options{
		Format:     conf.Export.Format,
		Theme:      conf.Export.Theme,
		ShowLegend: conf.Export.Legend,
		Watermark:  conf.Export.Watermark,
	}
	if flags.theme != "" {
		opts.Theme = flags.theme
	}
	if flags.legendSet {
		opts.ShowLegend = flags.legend
	}
	if flags.size != "" {
		w, h, preset, err := parseSize(flags.size)
		if err != nil {
			return opts, err
		}
		if preset != "" {
			opts.Format = preset
		} else {
			opts.Width, opts.Height = w, h
		}
	}
	if _, _, err := opts.Size(); err != nil {
		return opts, err
	}
	return opts, nil
}

// parseSize accepts a preset name or WIDTHxHEIGHT in pixels.
func parseSize(v string) (w, h int, preset string, err error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if _, _, ok := export.FormatSize(v); ok {
		return 0, 0, v, nil
	}
	if _, scanErr := fmt.Sscanf(v, "%dx%d", &w, &h); scanErr != nil || w <= 0 || h <= 0 {
		return 0, 0, "", fmt.Errorf("invalid size %q, want one of %s or WIDTHxHEIGHT", v, strings.Join(export.Formats(), ", "))
	}
	return w, h, "", nil
}

func readSchedule(path string) (*model.ScheduleData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data model.ScheduleData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, model.Invalid("input", "%v", err))
	}
	return &data, nil
}

// applyGridDefaults copies the configured tick step and cell cap into data.
// Without override only unset values are filled.
func applyGridDefaults(conf *config.Config, data *model.ScheduleData, override bool) {
	if ts := conf.Export.TickStepMin; ts > 0 && (override || data.TickStepMin == 0) {
		data.TickStepMin = ts
	}
	if cc := conf.Export.CellCap; cc > 0 && (override || data.CellCap == 0) {
		data.CellCap = cc
	}
}

func plannerWeekdays(p *planner.Planner) []time.Weekday {
	st := p.Settings()
	idx, err := planner.DaysRange(st.StartDay, st.EndDay)
	if err != nil {
		return nil
	}
	out := make([]time.Weekday, len(idx))
	for i, d := range idx {
		out[i] = time.Weekday((d + 1) % 7)
	}
	return out
}

// writeFile replaces path atomically.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
