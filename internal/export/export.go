// Package export turns schedule data into SVG, PNG and PDF posters.
//
// The vector document comes from poster.Compose; rasterization is delegated
// to a Rasterizer (headless Chromium in production) and the pixel work is
// done by the convert package.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"weekposter/internal/capture"
	"weekposter/internal/convert"
	appLog "weekposter/internal/log"
	"weekposter/internal/model"
	"weekposter/internal/poster"
	"weekposter/internal/typeset"
)

// PDF defaults.
const (
	DefaultDPI         = 240
	DefaultJPEGQuality = 93
	DefaultOversample  = 1.3
)

// ErrNoRasterizer is returned by PNG and PDF when the Exporter has no
// Rasterizer.
var ErrNoRasterizer = errors.New("export: no rasterizer configured")

// Rasterizer renders an SVG to PNG bytes and prints an HTML page to PDF.
// capture.Chromium is the production implementation.
type Rasterizer interface {
	RasterizeSVG(ctx context.Context, svg []byte, width, height int) ([]byte, error)
	PrintPDF(ctx context.Context, html string, widthPt, heightPt float64) ([]byte, error)
}

// Options select the canvas and the look of one export.
type Options struct {
	// Format is a preset name (a4, widescreen, square). Width and Height, when
	// both positive, override it.
	Format        string
	Width, Height int

	Theme      string
	ShowLegend bool
	Watermark  string
}

// Size resolves the canvas size in pixels.
func (o Options) Size() (int, int, error) {
	if o.Width > 0 && o.Height > 0 {
		return o.Width, o.Height, nil
	}
	name := o.Format
	if name == "" {
		name = DefaultFormat
	}
	w, h, ok := FormatSize(name)
	if !ok {
		return 0, 0, model.Invalid("format", "unknown format %q", o.Format)
	}
	return w, h, nil
}

// PDFOptions extend Options with print settings. Zero values take the
// package defaults.
type PDFOptions struct {
	Options
	DPI         float64
	JPEGQuality int
	Oversample  float64
	MarginPt    float64
}

func (p PDFOptions) normalized() PDFOptions {
	if p.DPI <= 0 {
		p.DPI = DefaultDPI
	}
	if p.JPEGQuality < 1 || p.JPEGQuality > 100 {
		p.JPEGQuality = DefaultJPEGQuality
	}
	if p.Oversample < 1 {
		p.Oversample = DefaultOversample
	}
	if p.MarginPt < 0 {
		p.MarginPt = 0
	}
	return p
}

// Exporter wires the composer to a rasterizer. A nil Inliner leaves image
// references untouched; a nil Rasterizer limits it to SVG.
type Exporter struct {
	Rasterizer   Rasterizer
	Inliner      *Inliner
	Measurer     typeset.Measurer
	AssetBaseURL string
}

// Document composes data and inlines its images. Inlining failures are
// logged and leave empty regions.
func (e *Exporter) Document(ctx context.Context, data *model.ScheduleData, opts Options) (*poster.Document, error) {
	w, h, err := opts.Size()
	if err != nil {
		return nil, err
	}
	doc, err := poster.Compose(data, poster.Options{
		Width:        w,
		Height:       h,
		Theme:        opts.Theme,
		ShowLegend:   opts.ShowLegend,
		Watermark:    opts.Watermark,
		Measurer:     e.Measurer,
		AssetBaseURL: e.AssetBaseURL,
	})
	if err != nil {
		return nil, err
	}
	if e.Inliner != nil {
		for _, ierr := range e.Inliner.Inline(ctx, doc) {
			appLog.Warn("image skipped", "err", ierr)
		}
	}
	return doc, nil
}

// SVG returns the self-contained SVG of the poster.
func (e *Exporter) SVG(ctx context.Context, data *model.ScheduleData, opts Options) ([]byte, error) {
	doc, err := e.Document(ctx, data, opts)
	if err != nil {
		return nil, err
	}
	return doc.SVG(), nil
}

// PNG renders the poster at its canvas size, flattened onto white.
func (e *Exporter) PNG(ctx context.Context, data *model.ScheduleData, opts Options) ([]byte, error) {
	doc, err := e.Document(ctx, data, opts)
	if err != nil {
		return nil, err
	}
	img, err := e.raster(ctx, doc, doc.Width, doc.Height)
	if err != nil {
		return nil, err
	}
	out, err := convert.EncodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	appLog.Debug("png exported", "width", doc.Width, "height", doc.Height, "bytes", len(out))
	return out, nil
}

// PDF renders the poster oversampled, downscales it to the canvas size,
// embeds it as JPEG and prints a single page sized to the canvas at DPI.
func (e *Exporter) PDF(ctx context.Context, data *model.ScheduleData, popts PDFOptions) ([]byte, error) {
	p := popts.normalized()
	doc, err := e.Document(ctx, data, p.Options)
	if err != nil {
		return nil, err
	}

	// the SVG carries a viewBox, so a larger raster keeps the same layout
	overW := int(math.Round(float64(doc.Width) * p.Oversample))
	overH := int(math.Round(float64(doc.Height) * p.Oversample))
	img, err := e.raster(ctx, doc, overW, overH)
	if err != nil {
		return nil, err
	}
	final, err := convert.Downscale(img, doc.Width, doc.Height)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	jpg, err := convert.EncodeJPEG(final, p.JPEGQuality)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	g := Geometry(doc.Width, doc.Height, p.DPI, p.MarginPt)
	page := capture.ImagePage("image/jpeg", jpg, capture.Placement{
		PageW: g.WidthPt, PageH: g.HeightPt,
		X: g.X, Y: g.Y, W: g.W, H: g.H,
	})
	pdf, err := e.Rasterizer.PrintPDF(ctx, page, g.WidthPt, g.HeightPt)
	if err != nil {
		return nil, fmt.Errorf("export: print pdf: %w", err)
	}
	appLog.Debug("pdf exported", "page_w_pt", g.WidthPt, "page_h_pt", g.HeightPt, "landscape", g.Landscape, "bytes", len(pdf))
	return pdf, nil
}

func (e *Exporter) raster(ctx context.Context, doc *poster.Document, w, h int) (*image.NRGBA, error) {
	if e.Rasterizer == nil {
		return nil, ErrNoRasterizer
	}
	raw, err := e.Rasterizer.RasterizeSVG(ctx, doc.SVG(), w, h)
	if err != nil {
		return nil, fmt.Errorf("export: rasterize: %w", err)
	}
	img, err := convert.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	flat := convert.Flatten(img, convert.White)
	if convert.Uniform(flat) {
		appLog.Warn("rasterized poster is a single color", "width", w, "height", h)
	}
	// some browsers capture at device scale
	if b := flat.Bounds(); b.Dx() != w || b.Dy() != h {
		if flat, err = convert.Downscale(flat, w, h); err != nil {
			return nil, fmt.Errorf("export: %w", err)
		}
	}
	return flat, nil
}
