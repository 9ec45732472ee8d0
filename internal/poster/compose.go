// Package poster composes a schedule into a declarative poster document and
// encodes it as SVG.
//
// Compose is a pure function of its arguments: it holds no state, does no
// I/O and returns a fresh Document per call, so concurrent renders with
// different options never interfere.
package poster

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"weekposter/internal/decor"
	"weekposter/internal/layout"
	"weekposter/internal/model"
	"weekposter/internal/timegrid"
	"weekposter/internal/typeset"
)

const (
	fontFamily = "Inter, system-ui, Arial"

	// LunchSnapMin is how far a lunch edge may sit from a major line and
	// still be drawn on it.
	LunchSnapMin = 2

	defaultLunchLabel = "Lunch"
)

// Options drive one render.
type Options struct {
	Width, Height int
	Theme         string
	ShowLegend    bool
	Watermark     string

	// Measurer estimates text widths; typeset.Heuristic when nil.
	Measurer typeset.Measurer
	// AssetBaseURL prefixes decoration image refs. "/" is used when empty.
	AssetBaseURL string
}

// LegendEntry is one unique title and its color.
type LegendEntry struct {
	Title, Color string
}

type composer struct {
	data   *model.ScheduleData
	opts   Options
	m      typeset.Measurer
	pal    Palette
	grid   timegrid.Grid
	lay    layout.Layout
	stroke float64
}

// Compose renders data into a poster document. Invalid input, including an
// item with start >= end, fails the whole render with model.ErrInvalidInput.
func Compose(data *model.ScheduleData, opts Options) (*Document, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, model.Invalid("size", "canvas must be positive, got %dx%d", opts.Width, opts.Height)
	}
	ivs, err := data.Intervals()
	if err != nil {
		return nil, err
	}

	gopts := timegrid.DefaultOptions()
	if data.TickStepMin > 0 {
		gopts.MinQuantum = data.TickStepMin
	}
	if data.CellCap > 0 {
		gopts.CellCap = data.CellCap
	}
	gopts.AlignStarts = true
	grid := timegrid.Build(ivs, gopts)

	lay, err := layout.Compute(grid, len(data.Days), float64(opts.Width), float64(opts.Height), opts.ShowLegend)
	if err != nil {
		return nil, err
	}

	c := &composer{
		data:   data,
		opts:   opts,
		m:      opts.Measurer,
		pal:    PaletteFor(opts.Theme),
		grid:   grid,
		lay:    lay,
		stroke: math.Max(1, math.Round(lay.Unit/1024)),
	}
	if c.m == nil {
		c.m = typeset.Heuristic{}
	}

	doc := &Document{
		Width:      opts.Width,
		Height:     opts.Height,
		Background: c.pal.Background,
		Grid:       grid,
		Layout:     lay,
	}
	doc.Nodes = append(doc.Nodes, c.header())
	doc.Nodes = append(doc.Nodes, c.dayHeaders()...)
	doc.Nodes = append(doc.Nodes, c.timeColumn()...)
	doc.Nodes = append(doc.Nodes, c.gridLines())
	if g := c.lunch(); g != nil {
		doc.Nodes = append(doc.Nodes, g)
	}
	doc.Nodes = append(doc.Nodes, c.items(ivs)...)
	if opts.ShowLegend {
		doc.Nodes = append(doc.Nodes, c.legend()...)
	}
	if g := c.decorations(); g != nil {
		doc.Nodes = append(doc.Nodes, g)
	}
	if g := c.watermark(); g != nil {
		doc.Nodes = append(doc.Nodes, g)
	}
	return doc, nil
}

func (c *composer) header() *Group {
	h := c.lay.Header
	g := &Group{ID: "header", Class: "header"}
	y := h.Y
	if c.data.Title != "" {
		text, size := typeset.FitLine(c.m, c.data.Title, math.Floor(h.H*0.55), math.Floor(h.H*0.25), h.W)
		g.Children = append(g.Children, &Text{
			X: h.X, Y: y, Content: text, Size: size, Weight: 700,
			Fill: c.pal.Title, Anchor: "start", Baseline: "hanging",
		})
		y += size * 1.15
	}
	if c.data.Subtitle != "" {
		text, size := typeset.FitLine(c.m, c.data.Subtitle, math.Floor(h.H*0.28), math.Floor(h.H*0.15), h.W)
		if y+size <= h.Bottom() {
			g.Children = append(g.Children, &Text{
				X: h.X, Y: y, Content: text, Size: size, Weight: 500,
				Fill: c.pal.Subtitle, Anchor: "start", Baseline: "hanging",
			})
		}
	}
	return g
}

func (c *composer) dayHeaders() []Node {
	dh := c.lay.DayHeader
	out := []Node{&Group{ID: "day-header-corner", Class: "corner", Children: []Node{
		&Rect{X: dh.X, Y: dh.Y, W: c.lay.TimeColumn.W, H: dh.H, Fill: c.pal.HeaderBg, Stroke: c.pal.Border, StrokeWidth: c.stroke * 2},
	}}}
	inset := c.lay.ColumnInset()
	for i, name := range c.data.Days {
		col := c.lay.Column(i)
		text, size := typeset.FitLine(c.m, name, math.Floor(dh.H*0.45), math.Min(10, math.Floor(dh.H*0.45)), col.W-2*inset)
		out = append(out, &Group{
			ID:    "day-" + strconv.Itoa(i),
			Class: "day-header",
			Attrs: []Attr{{"data-day", strconv.Itoa(i)}},
			Children: []Node{
				&Rect{X: col.X, Y: dh.Y, W: col.W, H: dh.H, Fill: c.pal.HeaderBg, Stroke: c.pal.Border, StrokeWidth: c.stroke * 2},
				&Text{
					X: col.X + col.W/2, Y: dh.Y + dh.H/2, Content: text, Size: size, Weight: 700,
					Fill: c.pal.HeaderText, Anchor: "middle", Baseline: "central",
				},
			},
		})
	}
	return out
}

func (c *composer) timeColumn() []Node {
	var out []Node
	major := c.grid.MajorTickMin
	for k := 0; k < c.lay.Segments; k++ {
		seg := c.lay.Segment(k)
		from := c.grid.StartMin + k*major
		label := model.FormatRange(from, from+major)
		pad := math.Max(4, math.Round(seg.W*0.06))
		ideal := math.Floor(math.Min(c.lay.DayHeader.H*0.45, seg.H*0.45))
		text, size := typeset.FitLine(c.m, label, ideal, math.Min(8, ideal), seg.W-2*pad)

		children := []Node{&Rect{X: seg.X, Y: seg.Y, W: seg.W, H: seg.H, Fill: c.pal.HourBg, Stroke: c.pal.Border, StrokeWidth: c.stroke * 1.5}}
		if text != "" && size <= seg.H {
			children = append(children, &Text{
				X: seg.X + seg.W/2, Y: seg.Y + seg.H/2, Content: text, Size: size, Weight: 700,
				Fill: c.pal.HourText, Anchor: "middle", Baseline: "central",
			})
		}
		out = append(out, &Group{
			ID:       "time-" + strconv.Itoa(k),
			Class:    "time-label",
			Attrs:    []Attr{{"data-start", model.FormatClock(from)}},
			Children: children,
		})
	}
	return out
}

func (c *composer) gridLines() *Group {
	r := c.lay.Grid
	g := &Group{ID: "grid", Class: "grid"}
	g.Children = append(g.Children, &Rect{X: r.X, Y: r.Y, W: r.W, H: r.H, Fill: c.pal.GridFill})

	for _, m := range c.grid.MinorTicks() {
		y := c.lay.YOf(m)
		g.Children = append(g.Children, &Line{X1: r.X, Y1: y, X2: r.Right(), Y2: y, Stroke: c.pal.GridLine, Width: c.stroke, Dash: "4 4"})
	}
	for _, m := range c.grid.MajorTicks() {
		y := c.lay.YOf(m)
		g.Children = append(g.Children, &Line{X1: r.X, Y1: y, X2: r.Right(), Y2: y, Stroke: c.pal.Border, Width: c.stroke * 1.5})
	}
	for i := 1; i < c.lay.Days; i++ {
		x := c.lay.Column(i).X
		g.Children = append(g.Children, &Line{X1: x, Y1: r.Y, X2: x, Y2: r.Bottom(), Stroke: c.pal.Border, Width: c.stroke * 1.5})
	}
	g.Children = append(g.Children, &Rect{X: r.X, Y: r.Y, W: r.W, H: r.H, Fill: "none", Stroke: c.pal.Border, StrokeWidth: c.stroke * 2})
	return g
}

// snapLunch moves m onto the nearest drawn grid line, major or minor, when
// within LunchSnapMin.
func (c *composer) snapLunch(m int) int {
	best, bestD := m, LunchSnapMin+1
	for _, lines := range [][]int{c.grid.MajorTicks(), c.grid.MinorTicks()} {
		for _, t := range lines {
			d := t - m
			if d < 0 {
				d = -d
			}
			if d < bestD {
				best, bestD = t, d
			}
		}
	}
	return best
}

func (c *composer) lunch() *Group {
	iv, ok := c.data.LunchInterval()
	if !ok {
		return nil
	}
	s := max(iv.Start, c.grid.StartMin)
	e := min(iv.End, c.grid.EndMin)
	if e <= s {
		return nil
	}
	s, e = c.snapLunch(s), c.snapLunch(e)
	if e <= s {
		return nil
	}

	r := c.lay.Grid
	y0, y1 := c.lay.YOf(s), c.lay.YOf(e)
	label := c.data.Lunch.Label
	if label == "" {
		label = defaultLunchLabel
	}
	g := &Group{
		ID:    "lunch",
		Class: "lunch",
		Attrs: []Attr{{"data-start", model.FormatClock(s)}, {"data-end", model.FormatClock(e)}},
		Children: []Node{
			&Rect{X: r.X, Y: y0, W: r.W, H: y1 - y0, Fill: c.pal.LunchFill, Opacity: 0.35},
			&Line{X1: r.X, Y1: y0, X2: r.Right(), Y2: y0, Stroke: c.pal.Border, Width: c.stroke * 2},
			&Line{X1: r.X, Y1: y1, X2: r.Right(), Y2: y1, Stroke: c.pal.Border, Width: c.stroke * 2},
		},
	}
	ideal := math.Floor(math.Min(c.lay.Unit*0.008*1.25, (y1-y0)*0.6))
	if text, size := typeset.FitLine(c.m, label, ideal, math.Min(8, ideal), r.W*0.9); text != "" && size >= 6 {
		g.Children = append(g.Children, &Text{
			X: r.X + r.W/2, Y: (y0 + y1) / 2, Content: text, Size: size, Weight: 700,
			Fill: c.pal.LunchText, Anchor: "middle", Baseline: "central",
		})
	}
	return g
}

func (c *composer) items(ivs []model.Interval) []Node {
	out := make([]Node, 0, len(c.data.Items))
	for i, it := range c.data.Items {
		iv := ivs[i]
		start, end := c.grid.SnapDown(iv.Start), c.grid.SnapUp(iv.End)
		box := c.lay.BlockRect(it.DayIndex, start, end)

		fill := cleanColor(it.Color, DefaultItemColor)
		fg := cleanColor(it.TextColor, "")
		if fg == "" {
			fg = TextColorFor(fill)
		}

		g := &Group{
			ID:    "item-" + strconv.Itoa(i),
			Class: "item",
			Attrs: []Attr{
				{"data-day", strconv.Itoa(it.DayIndex)},
				{"data-start", model.FormatClock(iv.Start)},
				{"data-end", model.FormatClock(iv.End)},
			},
		}
		g.Children = append(g.Children, &Rect{
			X: box.X, Y: box.Y, W: box.W, H: box.H,
			Radius: math.Min(8, box.H/2), Fill: fill, Stroke: c.pal.Border, StrokeWidth: c.stroke,
		})

		fit := typeset.Fit(typeset.Box{W: box.W, H: box.H}, typeset.Content{
			Title:    it.Title,
			Subtitle: it.Subtitle,
			Time:     model.FormatRange(iv.Start, iv.End),
		}, typeset.Options{Measurer: c.m})
		for _, ln := range fit.Lines {
			g.Children = append(g.Children, &Text{
				X: box.X + box.W/2, Y: box.Y + ln.Baseline, Content: ln.Text,
				Size: ln.Size, Weight: int(ln.Weight), Fill: fg, Anchor: "middle",
			})
		}
		out = append(out, g)
	}
	return out
}

// Legend lists unique item titles with their colors in first-seen order.
// Empty titles are skipped.
func Legend(items []model.ScheduleItem) []LegendEntry {
	seen := make(map[string]bool, len(items))
	var out []LegendEntry
	for _, it := range items {
		if it.Title == "" || seen[it.Title] {
			continue
		}
		seen[it.Title] = true
		out = append(out, LegendEntry{Title: it.Title, Color: cleanColor(it.Color, DefaultItemColor)})
	}
	return out
}

func (c *composer) legend() []Node {
	entries := Legend(c.data.Items)
	r := c.lay.Legend
	if len(entries) == 0 || r.H <= 0 {
		return nil
	}

	minW := c.lay.Unit * 0.105
	perRow := max(1, int(r.W/minW))
	rows := (len(entries) + perRow - 1) / perRow
	cols := min(perRow, len(entries))
	cellW := r.W / float64(cols)
	rowH := r.H / float64(rows)
	swatch := math.Floor(math.Min(c.lay.Unit*0.0117, rowH*0.5))
	gap := math.Round(swatch / 3)

	out := make([]Node, 0, len(entries))
	for i, e := range entries {
		x := r.X + float64(i%perRow)*cellW
		cy := r.Y + float64(i/perRow)*rowH + rowH/2
		ideal := math.Floor(math.Min(c.lay.Unit*0.0088, rowH*0.5))
		text, size := typeset.FitLine(c.m, e.Title, ideal, math.Min(8, ideal), cellW-swatch-3*gap)

		g := &Group{
			ID:    "legend-" + strconv.Itoa(i),
			Class: "legend-entry",
			Attrs: []Attr{{"data-title", e.Title}, {"data-color", e.Color}},
			Children: []Node{
				&Rect{X: x, Y: cy - swatch/2, W: swatch, H: swatch, Radius: math.Round(swatch / 6), Fill: e.Color, Stroke: c.pal.Border, StrokeWidth: c.stroke},
			},
		}
		if text != "" {
			g.Children = append(g.Children, &Text{
				X: x + swatch + gap, Y: cy, Content: text, Size: size, Weight: 500,
				Fill: c.pal.LegendText, Anchor: "start", Baseline: "central",
			})
		}
		out = append(out, g)
	}
	return out
}

func (c *composer) decorations() *Group {
	places := decor.Place(c.opts.Theme, c.lay.Grid)
	if len(places) == 0 {
		return nil
	}
	base := strings.TrimRight(c.opts.AssetBaseURL, "/")
	g := &Group{ID: "decor", Class: "decor", Attrs: []Attr{{"data-theme", c.opts.Theme}}}
	for _, p := range places {
		g.Children = append(g.Children, &Image{
			X: p.X, Y: p.Y, W: p.Size, H: p.Size,
			Href:    base + "/" + p.Ref,
			Rotate:  p.Rotate,
			Opacity: p.Opacity,
		})
	}
	return g
}

func (c *composer) watermark() *Group {
	if c.opts.Watermark == "" {
		return nil
	}
	size := math.Max(12, math.Round(c.lay.Unit*0.0065))
	maxW := c.lay.Width - 2*c.lay.Margin
	text, size := typeset.FitLine(c.m, c.opts.Watermark, size, math.Min(8, size), maxW)
	if text == "" {
		return nil
	}
	return &Group{ID: "watermark", Class: "watermark", Children: []Node{&Text{
		X: c.lay.Width - c.lay.Margin, Y: c.lay.Height - c.lay.Margin*0.3,
		Content: text, Size: size, Weight: 400, Fill: c.pal.Watermark, Anchor: "end",
	}}}
}

// String is a short description for logs.
func (d *Document) String() string {
	return fmt.Sprintf("poster %dx%d window %s-%s q=%d major=%d", d.Width, d.Height,
		model.FormatClock(d.Grid.StartMin), model.FormatClock(d.Grid.EndMin), d.Grid.QuantumMin, d.Grid.MajorTickMin)
}
