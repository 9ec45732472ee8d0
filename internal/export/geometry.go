package export

import (
	"math"
	"sort"
)

var formats = map[string][2]int{
	"a4":         {2480, 3508},
	"widescreen": {2560, 1440},
	"square":     {2048, 2048},
}

// DefaultFormat is used when neither a preset nor a size is given.
const DefaultFormat = "a4"

// FormatSize returns the pixel size of a preset.
func FormatSize(name string) (w, h int, ok bool) {
	s, ok := formats[name]
	return s[0], s[1], ok
}

// Formats lists the preset names.
func Formats() []string {
	out := make([]string, 0, len(formats))
	for k := range formats {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// PageGeometry is the PDF page for a raster and the image box on it, in
// points.
type PageGeometry struct {
	WidthPt, HeightPt float64
	X, Y, W, H        float64
	Landscape         bool
}

// Geometry sizes the page to the raster at dpi and fits the raster inside
// marginPt on every side, centered, keeping its aspect ratio.
func Geometry(pxW, pxH int, dpi, marginPt float64) PageGeometry {
	pageW := float64(pxW) / dpi * 72
	pageH := float64(pxH) / dpi * 72
	g := PageGeometry{WidthPt: pageW, HeightPt: pageH, Landscape: pageW >= pageH}

	boxW := math.Max(0, pageW-2*marginPt)
	boxH := math.Max(0, pageH-2*marginPt)
	ratio := float64(pxW) / float64(pxH)

	w := boxW
	h := w / ratio
	if h > boxH {
		h = boxH
		w = h * ratio
	}
	g.W, g.H = w, h
	g.X = marginPt + (boxW-w)/2
	g.Y = marginPt + (boxH-h)/2
	return g
}
