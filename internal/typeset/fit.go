package typeset

import "math"

// Sizing constants for block labels, in pixels unless noted.
const (
	Step         = 2.0  // shrink decrement
	MinTitle     = 18.0 // legibility floor
	MinIdeal     = 28.0
	MaxIdeal     = 56.0
	IdealRatio   = 0.34 // ideal title size per block height
	TimeRatio    = 0.62 // time range size per title size
	SubRatio     = 0.52 // subtitle size per title size
	DefaultLines = 3

	ascent      = 0.8  // baseline offset within a line box, em
	minReadable = 6.0  // below this nothing is drawn
	lineGap     = 0.12 // em
)

// Role tags a fitted line.
type Role int

const (
	RoleTitle Role = iota
	RoleSubtitle
	RoleTime
)

// Weight is a CSS font weight.
type Weight int

const (
	Medium   Weight = 500
	Semibold Weight = 600
	Heavy    Weight = 800
)

// Box is the pixel size of a block.
type Box struct {
	W, H float64
}

// Content is what a block wants to show.
type Content struct {
	Title    string
	Subtitle string
	Time     string
}

// Options tunes Fit. Zero values pick the defaults.
type Options struct {
	Measurer Measurer // Heuristic{} when nil
	MaxLines int      // upper bound for title lines, DefaultLines when zero
}

// Line is one positioned line of text. Baseline is relative to the box top;
// lines are horizontally centered on the box.
type Line struct {
	Text     string
	Role     Role
	Size     float64
	Weight   Weight
	Baseline float64
	Width    float64
}

// Result is the outcome of Fit.
type Result struct {
	Lines       []Line // title lines, then subtitle, then time range
	TitleSize   float64
	PadX, PadY  float64
	UsableWidth float64
}

// PaddingX is the horizontal inner padding of a block of width w.
func PaddingX(w float64) float64 {
	p := math.Max(16, math.Min(28, math.Floor(w*0.08)))
	return math.Min(p, w*0.15)
}

// UsableWidth is the width left for text in a block of width w.
func UsableWidth(w float64) float64 {
	return math.Max(0, w-2*PaddingX(w))
}

func paddingY(h float64) float64 {
	return math.Min(12, math.Floor(h*0.06))
}

func gap(size float64) float64 {
	return math.Max(2, math.Round(size*lineGap))
}

// Fit chooses the title size and line breaks for a block. Every returned
// line fits the usable width per the measurer. Subtitle and time range are
// dropped, never shrunk below their proportion, when the box has no room
// left after the title; the time range wins over the subtitle.
func Fit(box Box, c Content, opts Options) Result {
	m := opts.Measurer
	if m == nil {
		m = Heuristic{}
	}
	maxLines := opts.MaxLines
	if maxLines <= 0 {
		maxLines = DefaultLines
	}

	padX, padY := PaddingX(box.W), paddingY(box.H)
	usableW := box.W - 2*padX
	usableH := box.H - 2*padY
	res := Result{PadX: padX, PadY: padY, UsableWidth: math.Max(0, usableW)}
	if usableW <= 0 || usableH < minReadable {
		return res
	}

	ideal := math.Max(MinIdeal, math.Min(MaxIdeal, math.Floor(box.H*IdealRatio)))
	ideal = math.Min(ideal, usableH)
	floor := math.Min(MinTitle, ideal)

	if box.H < 180 {
		maxLines = min(maxLines, 2)
	}
	allowed := func(size float64) int {
		n := int((usableH + gap(size)) / (size + gap(size)))
		return max(1, min(maxLines, n))
	}

	var (
		size  float64
		title []string
		trunc bool
	)
	for size = ideal; ; size -= Step {
		if size <= floor {
			size = floor
		}
		title, trunc = Wrap(m, c.Title, size, usableW, allowed(size))
		if !trunc || size == floor {
			break
		}
	}
	if trunc && len(title) > 0 {
		last := len(title) - 1
		title[last] = withEllipsis(m, title[last], size, usableW)
	}
	res.TitleSize = size

	type pending struct {
		text   string
		role   Role
		size   float64
		weight Weight
	}
	var stack []pending
	used := 0.0
	for _, t := range title {
		t = Ellipsize(m, t, size, usableW)
		if t == "" {
			continue
		}
		if used > 0 {
			used += gap(size)
		}
		used += size
		stack = append(stack, pending{t, RoleTitle, size, Heavy})
	}

	// Secondary texts in priority order; each only if it still has room.
	var sub, tim *pending
	try := func(text string, role Role, ratio float64, w Weight) *pending {
		if text == "" {
			return nil
		}
		s := math.Round(size * ratio)
		need := s
		if used > 0 {
			need += gap(s)
		}
		if used+need > usableH {
			return nil
		}
		fitted := Ellipsize(m, text, s, usableW)
		if fitted == "" {
			return nil
		}
		used += need
		return &pending{fitted, role, s, w}
	}
	tim = try(c.Time, RoleTime, TimeRatio, Semibold)
	sub = try(c.Subtitle, RoleSubtitle, SubRatio, Medium)
	if sub != nil {
		stack = append(stack, *sub)
	}
	if tim != nil {
		stack = append(stack, *tim)
	}

	cursor := padY + (usableH-used)/2
	for i, p := range stack {
		if i > 0 {
			cursor += gap(p.size)
		}
		res.Lines = append(res.Lines, Line{
			Text:     p.text,
			Role:     p.role,
			Size:     p.size,
			Weight:   p.weight,
			Baseline: cursor + p.size*ascent,
			Width:    m.Width(p.text, p.size),
		})
		cursor += p.size
	}
	return res
}
