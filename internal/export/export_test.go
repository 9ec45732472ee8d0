package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"weekposter/internal/model"
	"weekposter/internal/poster"
)

type fakeRasterizer struct {
	svgs         [][]byte
	sizes        [][2]int
	pages        []string
	pageW, pageH float64
	scale        int
}

func (f *fakeRasterizer) RasterizeSVG(_ context.Context, svg []byte, w, h int) ([]byte, error) {
	f.svgs = append(f.svgs, svg)
	f.sizes = append(f.sizes, [2]int{w, h})
	if f.scale > 1 {
		w, h = w*f.scale, h*f.scale
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h/2; y++ {
		for x := 0; x < w/2; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (f *fakeRasterizer) PrintPDF(_ context.Context, html string, w, h float64) ([]byte, error) {
	f.pages = append(f.pages, html)
	f.pageW, f.pageH = w, h
	return []byte("%PDF-1.4 fake"), nil
}

func sample() *model.ScheduleData {
	return &model.ScheduleData{
		Title: "Week",
		Days:  []string{"Mon", "Tue", "Wed"},
		Items: []model.ScheduleItem{
			{DayIndex: 0, Start: "09:00", End: "10:30", Title: "Math", Color: "#3b82f6"},
			{DayIndex: 2, Start: "13:00", End: "14:00", Title: "Art", Color: "#f59e0b"},
		},
	}
}

func TestOptionsSize(t *testing.T) {
	cases := []struct {
		name string
		opts Options
		w, h int
		bad  bool
	}{
		{name: "default", opts: Options{}, w: 2480, h: 3508},
		{name: "widescreen", opts: Options{Format: "widescreen"}, w: 2560, h: 1440},
		{name: "square", opts: Options{Format: "square"}, w: 2048, h: 2048},
		{name: "explicit wins", opts: Options{Format: "square", Width: 800, Height: 600}, w: 800, h: 600},
		{name: "unknown", opts: Options{Format: "letter"}, bad: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, h, err := tc.opts.Size()
			if tc.bad {
				if !errors.Is(err, model.ErrInvalidInput) {
					t.Fatalf("err = %v, want invalid input", err)
				}
				return
			}
			if err != nil || w != tc.w || h != tc.h {
				t.Fatalf("Size() = %d, %d, %v; want %d, %d", w, h, err, tc.w, tc.h)
			}
		})
	}
}

func TestGeometry(t *testing.T) {
	cases := []struct {
		name      string
		w, h      int
		margin    float64
		pageW     float64
		pageH     float64
		landscape bool
	}{
		{name: "a4", w: 2480, h: 3508, margin: 0, pageW: 744, pageH: 1052.4},
		{name: "a4 margin", w: 2480, h: 3508, margin: 36, pageW: 744, pageH: 1052.4},
		{name: "widescreen", w: 2560, h: 1440, margin: 20, pageW: 768, pageH: 432, landscape: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := Geometry(tc.w, tc.h, 240, tc.margin)
			if math.Abs(g.WidthPt-tc.pageW) > 1e-6 || math.Abs(g.HeightPt-tc.pageH) > 1e-6 {
				t.Fatalf("page = %gx%g, want %gx%g", g.WidthPt, g.HeightPt, tc.pageW, tc.pageH)
			}
			if g.Landscape != tc.landscape {
				t.Fatalf("landscape = %v", g.Landscape)
			}
			if g.X < tc.margin-1e-6 || g.Y < tc.margin-1e-6 ||
				g.X+g.W > g.WidthPt-tc.margin+1e-6 || g.Y+g.H > g.HeightPt-tc.margin+1e-6 {
				t.Fatalf("image box %+v outside margins", g)
			}
			if math.Abs(g.X+g.W/2-g.WidthPt/2) > 1e-6 || math.Abs(g.Y+g.H/2-g.HeightPt/2) > 1e-6 {
				t.Fatalf("image box %+v not centered", g)
			}
			if math.Abs(g.W/g.H-float64(tc.w)/float64(tc.h)) > 1e-6 {
				t.Fatalf("aspect changed: %g", g.W/g.H)
			}
		})
	}
}

func TestPNG(t *testing.T) {
	for _, scale := range []int{1, 2} {
		r := &fakeRasterizer{scale: scale}
		e := &Exporter{Rasterizer: r}
		out, err := e.PNG(context.Background(), sample(), Options{Width: 400, Height: 300})
		if err != nil {
			t.Fatal(err)
		}
		img, err := png.Decode(bytes.NewReader(out))
		if err != nil {
			t.Fatal(err)
		}
		if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 300 {
			t.Fatalf("scale %d: size = %v", scale, b)
		}
		if _, _, _, a := img.At(399, 299).RGBA(); a != 0xffff {
			t.Fatalf("scale %d: corner not opaque", scale)
		}
		if r.sizes[0] != [2]int{400, 300} {
			t.Fatalf("rasterized at %v", r.sizes[0])
		}
	}
}

func TestPDF(t *testing.T) {
	r := &fakeRasterizer{}
	e := &Exporter{Rasterizer: r}
	out, err := e.PDF(context.Background(), sample(), PDFOptions{Options: Options{Format: "a4"}, MarginPt: 18})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("output = %q", out)
	}
	if r.sizes[0] != [2]int{3224, 4560} {
		t.Fatalf("oversampled raster = %v", r.sizes[0])
	}
	if math.Abs(r.pageW-744) > 1e-6 || math.Abs(r.pageH-1052.4) > 1e-6 {
		t.Fatalf("page = %gx%g", r.pageW, r.pageH)
	}
	page := r.pages[0]
	if !strings.Contains(page, "data:image/jpeg;base64,") {
		t.Fatalf("page has no jpeg:\n%.200s", page)
	}
	if !strings.Contains(page, "@page{size:744pt 1052.4pt;margin:0}") {
		t.Fatalf("page size missing:\n%.300s", page)
	}
}

func TestPDFEmbedsFinalSizeJPEG(t *testing.T) {
	r := &fakeRasterizer{}
	e := &Exporter{Rasterizer: r}
	if _, err := e.PDF(context.Background(), sample(), PDFOptions{Options: Options{Width: 500, Height: 250}}); err != nil {
		t.Fatal(err)
	}
	page := r.pages[0]
	start := strings.Index(page, "base64,") + len("base64,")
	end := strings.Index(page[start:], `"`)
	raw, err := base64.StdEncoding.DecodeString(page[start : start+end])
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 500 || cfg.Height != 250 {
		t.Fatalf("embedded jpeg %dx%d", cfg.Width, cfg.Height)
	}
}

func TestExportRejectsInvalidData(t *testing.T) {
	r := &fakeRasterizer{}
	e := &Exporter{Rasterizer: r}
	bad := sample()
	bad.Items[0].End = "08:00"
	if _, err := e.PNG(context.Background(), bad, Options{}); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("err = %v", err)
	}
	if len(r.svgs) != 0 {
		t.Fatal("rasterizer called for invalid data")
	}
}

func TestNoRasterizer(t *testing.T) {
	e := &Exporter{}
	if _, err := e.PNG(context.Background(), sample(), Options{}); !errors.Is(err, ErrNoRasterizer) {
		t.Fatalf("PNG without rasterizer: %v", err)
	}
	svg, err := e.SVG(context.Background(), sample(), Options{Format: "square"})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(svg, []byte("<svg")) {
		t.Fatal("not an svg")
	}
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func docWith(hrefs ...string) *poster.Document {
	g := &poster.Group{Class: "decor"}
	for _, h := range hrefs {
		g.Children = append(g.Children, &poster.Image{W: 10, H: 10, Href: h})
	}
	return &poster.Document{Width: 100, Height: 100, Nodes: []poster.Node{g}}
}

func TestInlineLocal(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "decors", "flores", "flor.png"))
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	writePNG(t, filepath.Join(filepath.Dir(dir), "secret.png"))

	in := &Inliner{AssetsDir: dir}
	doc := docWith(
		"/decors/flores/flor.png",
		"decors/flores/flor.png",
		"/decors/missing.png",
		"/notes.txt",
		"/../secret.png",
		"data:image/png;base64,AAAA",
	)
	errs := in.Inline(context.Background(), doc)
	imgs := doc.Images()

	for i := 0; i < 2; i++ {
		if !strings.HasPrefix(imgs[i].Href, "data:image/png;base64,") {
			t.Fatalf("image %d href = %.40q", i, imgs[i].Href)
		}
	}
	for i := 2; i < 5; i++ {
		if imgs[i].Href != "" {
			t.Fatalf("image %d should be emptied, href = %.40q", i, imgs[i].Href)
		}
	}
	if imgs[5].Href != "data:image/png;base64,AAAA" {
		t.Fatal("data uri rewritten")
	}
	if len(errs) != 3 {
		t.Fatalf("errors = %v", errs)
	}
	for _, err := range errs {
		if !errors.Is(err, ErrResourceUnavailable) {
			t.Fatalf("err = %v", err)
		}
	}
}

func TestInlineHTTP(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 3, 3))); err != nil {
		t.Fatal(err)
	}
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/a.png":
			_, _ = w.Write(buf.Bytes())
		case "/big.png":
			_, _ = w.Write(bytes.Repeat(buf.Bytes(), 2))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	in := &Inliner{Client: srv.Client(), MaxBytes: int64(buf.Len())}
	doc := docWith(srv.URL+"/a.png", srv.URL+"/a.png", srv.URL+"/gone.png", srv.URL+"/big.png")
	errs := in.Inline(context.Background(), doc)
	imgs := doc.Images()

	if !strings.HasPrefix(imgs[0].Href, "data:image/png;base64,") || imgs[1].Href != imgs[0].Href {
		t.Fatalf("hrefs = %.40q %.40q", imgs[0].Href, imgs[1].Href)
	}
	if imgs[2].Href != "" || imgs[3].Href != "" {
		t.Fatal("failed fetches should leave empty regions")
	}
	if len(errs) != 2 {
		t.Fatalf("errors = %v", errs)
	}
	if n := hits.Load(); n != 3 {
		t.Fatalf("server hits = %d, want 3 (duplicate href cached)", n)
	}
}

func TestExportWithDecorationsDegrades(t *testing.T) {
	r := &fakeRasterizer{}
	e := &Exporter{Rasterizer: r, Inliner: &Inliner{AssetsDir: t.TempDir()}}
	if _, err := e.PNG(context.Background(), sample(), Options{Width: 600, Height: 800, Theme: "flowers"}); err != nil {
		t.Fatalf("missing decorations must not fail the export: %v", err)
	}
	if bytes.Contains(r.svgs[0], []byte("<image")) {
		t.Fatal("unresolved decorations should not be emitted")
	}
}
