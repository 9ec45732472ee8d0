package capture

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// DefaultTimeoutSec bounds one capture when Chromium.Timeout is zero.
const DefaultTimeoutSec = 60

// Chromium rasterizes poster SVGs and prints PDF pages with a headless
// Chromium driven over the DevTools protocol. Every call starts its own
// browser, so one value can serve concurrent exports.
type Chromium struct {
	// ExecPath is the browser binary; chromedp looks up the usual names
	// when empty.
	ExecPath string

	// NoSandbox is needed when running as root inside containers.
	NoSandbox bool

	// Timeout bounds the entire capture operation.
	Timeout time.Duration
}

func (c *Chromium) context(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if c.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.ExecPath))
	}
	if c.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	ctx, ctxCancel := chromedp.NewContext(allocCtx)
	ctx, timeoutCancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		timeoutCancel()
		ctxCancel()
		allocCancel()
	}
}

// setContent replaces the blank page's document with doc.
func setContent(doc string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		tree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return err
		}
		return page.SetDocumentContent(tree.Frame.ID, doc).Do(ctx)
	})
}

// RasterizeSVG renders an SVG document to a PNG of exactly width x height.
//
// Rendering-complete condition: the wrapper page flips
// <body data-ready="true"> from the image's onload handler, and the
// screenshot waits until `[data-ready="true"]` is visible.
func (c *Chromium) RasterizeSVG(parent context.Context, svg []byte, width, height int) ([]byte, error) {
	if len(svg) == 0 {
		return nil, fmt.Errorf("capture: empty svg")
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("capture: invalid size %dx%d", width, height)
	}

	ctx, cancel := c.context(parent)
	defer cancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate("about:blank"),
		setContent(SVGPage(svg, width, height)),
		chromedp.WaitVisible(`[data-ready="true"]`, chromedp.ByQuery),
		chromedp.FullScreenshot(&png, 100),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, fmt.Errorf("capture: chromedp run failed: %w", err)
	}
	return png, nil
}

// PrintPDF prints an HTML page to a single-page PDF of widthPt x heightPt.
func (c *Chromium) PrintPDF(parent context.Context, doc string, widthPt, heightPt float64) ([]byte, error) {
	if widthPt <= 0 || heightPt <= 0 {
		return nil, fmt.Errorf("capture: invalid page %gx%gpt", widthPt, heightPt)
	}

	ctx, cancel := c.context(parent)
	defer cancel()

	var pdf []byte
	tasks := chromedp.Tasks{
		chromedp.Navigate("about:blank"),
		setContent(doc),
		chromedp.WaitVisible(`[data-ready="true"]`, chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(widthPt / 72).
				WithPaperHeight(heightPt / 72).
				WithMarginTop(0).
				WithMarginBottom(0).
				WithMarginLeft(0).
				WithMarginRight(0).
				WithPreferCSSPageSize(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, fmt.Errorf("capture: print pdf failed: %w", err)
	}
	return pdf, nil
}

// DataURI encodes data as a base64 data: URI.
func DataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

const readyScript = `document.body.setAttribute('data-ready','true')`

// SVGPage wraps an SVG in a blank page that shows it at its pixel size.
func SVGPage(svg []byte, width, height int) string {
	var b strings.Builder
	b.WriteString(`<!doctype html><html><head><meta charset="utf-8"><style>`)
	b.WriteString(`html,body{margin:0;padding:0;background:#ffffff;overflow:hidden}`)
	fmt.Fprintf(&b, `img{display:block;width:%dpx;height:%dpx}`, width, height)
	b.WriteString(`</style></head><body data-ready="false">`)
	fmt.Fprintf(&b, `<img alt="" width="%d" height="%d" src="%s" onload="%s">`,
		width, height, html.EscapeString(DataURI("image/svg+xml", svg)), readyScript)
	b.WriteString(`</body></html>`)
	return b.String()
}

// Placement positions an image on a PDF page, in points.
type Placement struct {
	PageW, PageH float64
	X, Y, W, H   float64
}

// ImagePage builds a print page of the given size with one image placed on
// it.
func ImagePage(mime string, img []byte, p Placement) string {
	var b strings.Builder
	b.WriteString(`<!doctype html><html><head><meta charset="utf-8"><style>`)
	fmt.Fprintf(&b, `@page{size:%spt %spt;margin:0}`, pt(p.PageW), pt(p.PageH))
	fmt.Fprintf(&b, `html,body{margin:0;padding:0;width:%spt;height:%spt;overflow:hidden}`, pt(p.PageW), pt(p.PageH))
	fmt.Fprintf(&b, `img{position:absolute;left:%spt;top:%spt;width:%spt;height:%spt}`, pt(p.X), pt(p.Y), pt(p.W), pt(p.H))
	b.WriteString(`</style></head><body data-ready="false">`)
	fmt.Fprintf(&b, `<img alt="" src="%s" onload="%s">`, html.EscapeString(DataURI(mime, img)), readyScript)
	b.WriteString(`</body></html>`)
	return b.String()
}

func pt(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
