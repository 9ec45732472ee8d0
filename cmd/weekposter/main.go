package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"weekposter/internal/capture"
	"weekposter/internal/config"
	"weekposter/internal/export"
	appLog "weekposter/internal/log"
	"weekposter/internal/planner"
	"weekposter/internal/store"
	"weekposter/internal/typeset"
	"weekposter/internal/web"
)

const version = "0.3.0"

// flagConfig holds CLI flag values before config loading.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	input      string
	out        string
	format     string
	theme      string
	size       string
	legend     bool
	legendSet  bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if err := appLog.Configure(conf.Log.Level, conf.Log.Format); err != nil {
		appLog.Warn("invalid log settings, keeping defaults", "err", err)
	}
	defer appLog.Sync()

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("weekposter starting",
		"version", version,
		"listen", conf.Listen,
		"data_dir", conf.DataDir,
		"timezone", conf.Timezone,
		"format", conf.Export.Format,
		"theme", conf.Export.Theme,
		"ics_count", len(conf.ICS),
		"auto_export", conf.AutoExport.Cron,
		"once", flags.once,
	)

	p := newPlanner(conf)
	ex := newExporter(conf)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if flags.once {
		if err := runOnce(ctx, conf, p, ex, flags); err != nil {
			appLog.Error("render failed", err)
			appLog.Sync()
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, conf, p, ex); err != nil {
		appLog.Error("server failed", err)
		appLog.Sync()
		os.Exit(1)
	}
	appLog.Info("weekposter exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Render one poster and exit")
	flag.StringVar(&cfg.input, "input", "", "Schedule JSON to render with -once (default: stored planner state)")
	flag.StringVar(&cfg.out, "out", "", "Output file for -once, - for stdout (default: weekposter.<format>)")
	flag.StringVar(&cfg.format, "format", "png", "Output format for -once: png, pdf, svg or ics")
	flag.StringVar(&cfg.theme, "theme", "", "Theme (overrides config if set)")
	flag.StringVar(&cfg.size, "size", "", "Canvas preset (a4, widescreen, square) or WIDTHxHEIGHT")
	flag.BoolVar(&cfg.legend, "legend", false, "Draw the color legend (overrides config if set)")

	flag.Parse()
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "legend" {
			cfg.legendSet = true
		}
	})

	return cfg
}

// newPlanner opens the file store below DataDir and loads the saved state.
// An unusable directory degrades to an in-memory store.
func newPlanner(conf *config.Config) *planner.Planner {
	var kv store.KV
	fs, err := store.NewFileStore(conf.DataDir)
	if err != nil || !fs.Available() {
		appLog.Warn("data directory unavailable, changes will not be kept", "err", err, "data_dir", conf.DataDir)
		kv = store.NewMemoryStore()
	} else {
		kv = fs
	}

	p := planner.New(kv, planner.LookupFrom(conf.Locale.Days, conf.Locale.LunchLabel))
	if err := p.Load(); err != nil {
		appLog.Error("failed to load planner state; starting empty", err)
	}
	return p
}

func newExporter(conf *config.Config) *export.Exporter {
	timeout := time.Duration(conf.Export.TimeoutSec) * time.Second
	ex := &export.Exporter{
		Rasterizer: &capture.Chromium{
			ExecPath:  conf.Export.ChromePath,
			NoSandbox: conf.Export.NoSandbox,
			Timeout:   timeout,
		},
		Inliner: &export.Inliner{
			AssetsDir: conf.AssetsDir,
			Client:    &http.Client{Timeout: 15 * time.Second},
		},
		AssetBaseURL: conf.AssetBaseURL,
	}
	if conf.Export.FontMetrics {
		m, err := typeset.GoBold()
		if err != nil {
			appLog.Error("font metrics unavailable; using heuristic widths", err)
		} else {
			ex.Measurer = m
		}
	}
	return ex
}

// serve runs the HTTP server and the optional auto-export schedule until
// ctx is canceled.
func serve(ctx context.Context, conf *config.Config, p *planner.Planner, ex *export.Exporter) error {
	s := web.NewServer(conf, p, ex)
	defer s.Close()

	if conf.AutoExport.Cron != "" {
		c := cron.New(cron.WithLocation(resolveLocation(conf.Timezone)))
		if _, err := c.AddFunc(conf.AutoExport.Cron, func() { autoExport(ctx, conf, p, ex) }); err != nil {
			return err
		}
		c.Start()
		appLog.Info("auto export scheduled", "cron", conf.AutoExport.Cron, "output_dir", conf.AutoExport.OutputDir, "formats", conf.AutoExport.Formats)
		defer func() {
			// wait for a running export to finish
			<-c.Stop().Done()
		}()
	}

	srv := &http.Server{
		Addr:              conf.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		appLog.Info("shutdown requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := p.Save(); err != nil {
		appLog.Error("final planner save failed", err)
	}
	return nil
}

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
