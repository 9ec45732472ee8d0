// Package layout converts a time grid and a canvas size into poster pixel
// geometry.
//
// The grid body is not drawn at a fixed px/min ratio: the vertical space left
// after headers, legend and margins is split evenly across the major-tick
// segments, so a poster always fills its page whatever hours it covers.
package layout

import (
	"math"

	"weekposter/internal/model"
	"weekposter/internal/timegrid"
)

// Proportions of the short canvas side (width for the time column) taken
// from the A4 reference poster (2480x3508).
const (
	marginRatio     = 0.026
	headerRatio     = 0.056
	dayHeaderRatio  = 0.029
	legendRatio     = 0.039
	timeColumnRatio = 0.097

	// MinBlockHeight is the floor applied to very short item blocks.
	MinBlockHeight = 4.0
	// MinColumnWidth leaves a MinBlockHeight-wide block between two
	// minimum column insets.
	MinColumnWidth = 8.0
)

// Rect is an axis-aligned pixel rectangle.
type Rect struct {
	X, Y, W, H float64
}

// Right returns X+W.
func (r Rect) Right() float64 { return r.X + r.W }

// Bottom returns Y+H.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Contains reports whether o lies entirely inside r, within eps pixels.
func (r Rect) Contains(o Rect, eps float64) bool {
	return o.X >= r.X-eps && o.Y >= r.Y-eps && o.Right() <= r.Right()+eps && o.Bottom() <= r.Bottom()+eps
}

// Layout is the derived pixel geometry of one poster.
type Layout struct {
	Width, Height float64
	Unit          float64 // short canvas side, base for every proportional size

	Margin     float64
	Header     Rect // title/subtitle area
	DayHeader  Rect // day-name row, spans the time column and the grid
	TimeColumn Rect // hour label column next to the grid
	Grid       Rect // day x time matrix
	Legend     Rect // zero height when the legend is disabled

	Days         int
	ColumnWidth  float64
	Segments     int
	SegmentH     float64 // height of one major-tick row
	PxPerMin     float64
	StartMin     int
	EndMin       int
	MajorTickMin int
}

// Compute derives the layout. It rejects an empty day list, non-positive
// canvas sizes, windows with no major segment and canvases too small to
// hold a segment of MinBlockHeight or a column of MinColumnWidth.
func Compute(grid timegrid.Grid, days int, width, height float64, showLegend bool) (Layout, error) {
	if days < 1 {
		return Layout{}, model.Invalid("days", "at least one day is required")
	}
	if width <= 0 || height <= 0 || math.IsNaN(width) || math.IsNaN(height) {
		return Layout{}, model.Invalid("size", "canvas must be positive, got %gx%g", width, height)
	}
	segments := grid.Segments()
	if segments <= 0 {
		return Layout{}, model.Invalid("window", "time window %d..%d has no segment", grid.StartMin, grid.EndMin)
	}

	unit := math.Min(width, height)
	margin := math.Round(unit * marginRatio)
	headerH := math.Round(unit * headerRatio)
	dayHeaderH := math.Round(unit * dayHeaderRatio)
	legendH := 0.0
	if showLegend {
		legendH = math.Round(unit * legendRatio)
	}
	timeColW := math.Round(width * timeColumnRatio)

	contentW := width - 2*margin
	contentH := height - 2*margin
	gridW := contentW - timeColW
	gridH := contentH - headerH - dayHeaderH - legendH
	if gridW <= 0 || gridH <= 0 {
		return Layout{}, model.Invalid("size", "canvas %gx%g leaves no room for the grid", width, height)
	}

	top := margin + headerH + dayHeaderH
	gridX := margin + timeColW
	segH := gridH / float64(segments)
	if segH < MinBlockHeight || gridW/float64(days) < MinColumnWidth {
		return Layout{}, model.Invalid("size", "canvas %gx%g is too small for %d days of %d segments", width, height, days, segments)
	}

	return Layout{
		Width:        width,
		Height:       height,
		Unit:         unit,
		Margin:       margin,
		Header:       Rect{X: margin, Y: margin, W: contentW, H: headerH},
		DayHeader:    Rect{X: margin, Y: margin + headerH, W: contentW, H: dayHeaderH},
		TimeColumn:   Rect{X: margin, Y: top, W: timeColW, H: gridH},
		Grid:         Rect{X: gridX, Y: top, W: gridW, H: gridH},
		Legend:       Rect{X: margin, Y: top + gridH, W: contentW, H: legendH},
		Days:         days,
		ColumnWidth:  gridW / float64(days),
		Segments:     segments,
		SegmentH:     segH,
		PxPerMin:     segH / float64(grid.MajorTickMin),
		StartMin:     grid.StartMin,
		EndMin:       grid.EndMin,
		MajorTickMin: grid.MajorTickMin,
	}, nil
}

// YOf maps minutes from midnight onto the grid's y axis (unclamped).
func (l Layout) YOf(m int) float64 {
	return l.Grid.Y + float64(m-l.StartMin)*l.PxPerMin
}

// Column returns the full-height rectangle of day column i.
func (l Layout) Column(i int) Rect {
	return Rect{
		X: l.Grid.X + float64(i)*l.ColumnWidth,
		Y: l.Grid.Y,
		W: l.ColumnWidth,
		H: l.Grid.H,
	}
}

// Segment returns the rectangle of major row k in the time column.
func (l Layout) Segment(k int) Rect {
	return Rect{
		X: l.TimeColumn.X,
		Y: l.Grid.Y + float64(k)*l.SegmentH,
		W: l.TimeColumn.W,
		H: l.SegmentH,
	}
}

// ColumnInset is the horizontal gap between a block and its column edges.
func (l Layout) ColumnInset() float64 {
	return math.Max(2, math.Round(l.ColumnWidth*0.012))
}

// BlockRect returns the rectangle of an item spanning [start, end) minutes
// in day column day. The result is kept inside the grid rectangle and is at
// least MinBlockHeight tall.
func (l Layout) BlockRect(day, start, end int) Rect {
	col := l.Column(day)
	inset := math.Min(l.ColumnInset(), col.W/4)

	y0 := clampF(l.YOf(start), l.Grid.Y, l.Grid.Bottom())
	y1 := clampF(l.YOf(end), l.Grid.Y, l.Grid.Bottom())
	h := y1 - y0
	if h < MinBlockHeight {
		h = math.Min(MinBlockHeight, l.Grid.H)
		if y0+h > l.Grid.Bottom() {
			y0 = l.Grid.Bottom() - h
		}
	}
	return Rect{X: col.X + inset, Y: y0, W: col.W - 2*inset, H: h}
}

func clampF(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
