// Package timegrid infers the visible time axis of a weekly poster from an
// arbitrary set of item intervals.
//
// The builder never fails: empty input falls back to a default window, and a
// quantum that would exceed the row budget is coarsened silently. Callers
// wanting diagnostics compare Grid.Rows() against their cap.
package timegrid

import "weekposter/internal/model"

// Defaults used when Options fields are left at zero.
const (
	DefaultMinQuantum   = 5
	DefaultMaxQuantum   = 60
	DefaultCellCap      = 200
	DefaultPadTopMin    = 5
	DefaultPadBottomMin = 5

	// DefaultWindowStart / DefaultWindowEnd bound the axis when no interval
	// is available (07:00-18:00).
	DefaultWindowStart = 7 * 60
	DefaultWindowEnd   = 18 * 60

	// hourTick is the major tick used whenever the quantum is finer than
	// half an hour.
	hourTick = 60
)

// Options tunes the builder.
type Options struct {
	MinQuantum   int
	MaxQuantum   int
	CellCap      int
	PadTopMin    int
	PadBottomMin int

	// AlignStarts folds every start offset from midnight into the GCD, so
	// the quantum also aligns block tops, not only block lengths.
	AlignStarts bool
}

// DefaultOptions returns {5, 60, 200, 5, 5} with duration-only GCD.
func DefaultOptions() Options {
	return Options{
		MinQuantum:   DefaultMinQuantum,
		MaxQuantum:   DefaultMaxQuantum,
		CellCap:      DefaultCellCap,
		PadTopMin:    DefaultPadTopMin,
		PadBottomMin: DefaultPadBottomMin,
	}
}

// Normalize repairs out-of-range values so the builder always has a usable
// configuration.
func (o *Options) Normalize() {
	if o.MinQuantum <= 0 {
		o.MinQuantum = DefaultMinQuantum
	}
	if o.MaxQuantum <= 0 {
		o.MaxQuantum = DefaultMaxQuantum
	}
	if o.MaxQuantum < o.MinQuantum {
		o.MaxQuantum = o.MinQuantum
	}
	if o.CellCap <= 0 {
		o.CellCap = DefaultCellCap
	}
	if o.PadTopMin < 0 {
		o.PadTopMin = 0
	}
	if o.PadBottomMin < 0 {
		o.PadBottomMin = 0
	}
}

// Grid is the derived, immutable time axis for one render.
type Grid struct {
	StartMin     int // inclusive, multiple of MajorTickMin
	EndMin       int // exclusive, multiple of MajorTickMin
	QuantumMin   int // finest boundary the renderer respects
	MajorTickMin int // visible horizontal grid line spacing

	// CandidateMin is the GCD-derived quantum before clamping; 0 when no
	// valid interval contributed.
	CandidateMin int
}

// Build computes the grid for the given intervals. Intervals with
// End <= Start are ignored.
func Build(intervals []model.Interval, opts Options) Grid {
	opts.Normalize()

	winStart, winEnd, found := window(intervals)
	if found {
		winStart = max(0, winStart-opts.PadTopMin)
		winEnd = min(model.MinutesPerDay, winEnd+opts.PadBottomMin)
	}

	candidate := CandidateQuantum(intervals, opts.AlignStarts)
	q := candidate
	if q == 0 {
		q = hourTick
	}
	q = clamp(q, opts.MinQuantum, opts.MaxQuantum)

	// Coarsen until the minor row count fits the cap, never beyond MaxQuantum.
	// Each step keeps the quantum a divisor of the hour tick when it can.
	for q < opts.MaxQuantum {
		start, end, _ := rounded(winStart, winEnd, q)
		if ceilDiv(end-start, q) <= opts.CellCap {
			break
		}
		q = hourAligned(min(q*2, opts.MaxQuantum), opts.MaxQuantum)
	}

	start, end, major := rounded(winStart, winEnd, q)
	return Grid{
		StartMin:     start,
		EndMin:       end,
		QuantumMin:   q,
		MajorTickMin: major,
		CandidateMin: candidate,
	}
}

// CandidateQuantum returns the GCD of every positive duration, the largest
// unit that evenly divides every block's extent. With alignStarts the start
// offsets from midnight join the GCD so that every block boundary falls on
// a grid line. It returns 0 for no valid intervals.
func CandidateQuantum(intervals []model.Interval, alignStarts bool) int {
	g := 0
	for _, iv := range intervals {
		d := iv.Duration()
		if d <= 0 {
			continue
		}
		g = gcd(g, d)
		if alignStarts {
			g = gcd(g, iv.Start)
		}
	}
	return g
}

// hourAligned raises a quantum below an hour to the nearest divisor of
// hourTick at or above it, bounded by maxQ.
func hourAligned(q, maxQ int) int {
	if q >= hourTick || hourTick%q == 0 {
		return min(q, maxQ)
	}
	for d := q + 1; d < hourTick; d++ {
		if hourTick%d == 0 {
			return min(d, maxQ)
		}
	}
	return min(hourTick, maxQ)
}

// MajorTickFor returns the major tick used for a given quantum.
func MajorTickFor(quantum int) int {
	if quantum >= 30 {
		return quantum
	}
	return hourTick
}

// Span returns EndMin-StartMin.
func (g Grid) Span() int {
	return g.EndMin - g.StartMin
}

// Rows is the number of minor (quantum) rows across the window.
func (g Grid) Rows() int {
	if g.QuantumMin <= 0 {
		return 0
	}
	return ceilDiv(g.Span(), g.QuantumMin)
}

// Segments is the number of major-tick rows across the window.
func (g Grid) Segments() int {
	if g.MajorTickMin <= 0 {
		return 0
	}
	return g.Span() / g.MajorTickMin
}

// MajorTicks lists every major tick from StartMin to EndMin inclusive.
func (g Grid) MajorTicks() []int {
	if g.MajorTickMin <= 0 {
		return nil
	}
	out := make([]int, 0, g.Segments()+1)
	for t := g.StartMin; t <= g.EndMin; t += g.MajorTickMin {
		out = append(out, t)
	}
	return out
}

// MinorTicks lists secondary guide lines between major ticks. The step is
// the largest of major/6, /5, /3, /2 that divides evenly; nothing is
// returned when that step would be under ten minutes.
func (g Grid) MinorTicks() []int {
	major := g.MajorTickMin
	sub := 0
	for _, d := range []int{6, 5, 3, 2} {
		if major%d == 0 {
			sub = major / d
			break
		}
	}
	if sub < 10 {
		return nil
	}
	var out []int
	for t := g.StartMin + sub; t < g.EndMin; t += sub {
		if (t-g.StartMin)%major != 0 {
			out = append(out, t)
		}
	}
	return out
}

// SnapDown rounds m down to the quantum.
func (g Grid) SnapDown(m int) int {
	return floorTo(m, g.QuantumMin)
}

// SnapUp rounds m up to the quantum.
func (g Grid) SnapUp(m int) int {
	return ceilTo(m, g.QuantumMin)
}

func window(intervals []model.Interval) (start, end int, found bool) {
	start, end = DefaultWindowStart, DefaultWindowEnd
	for _, iv := range intervals {
		if iv.Duration() <= 0 {
			continue
		}
		if !found {
			start, end, found = iv.Start, iv.End, true
			continue
		}
		start = min(start, iv.Start)
		end = max(end, iv.End)
	}
	return start, end, found
}

func rounded(winStart, winEnd, quantum int) (start, end, major int) {
	major = MajorTickFor(quantum)
	start = floorTo(winStart, major)
	end = ceilTo(winEnd, major)
	if end <= start {
		end = start + major
	}
	return start, end, major
}

func gcd(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func floorTo(v, step int) int {
	if step <= 0 {
		return v
	}
	q := v / step
	if v%step != 0 && v < 0 {
		q--
	}
	return q * step
}

func ceilTo(v, step int) int {
	if step <= 0 {
		return v
	}
	return -floorTo(-v, step)
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
