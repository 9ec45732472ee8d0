package timegrid

import (
	"reflect"
	"testing"

	"weekposter/internal/model"
)

func iv(start, end int) model.Interval {
	return model.Interval{Start: start, End: end}
}

func TestBuildEmptyFallsBackToDefaultWindow(t *testing.T) {
	g := Build(nil, DefaultOptions())
	if g.StartMin != DefaultWindowStart || g.EndMin != DefaultWindowEnd {
		t.Fatalf("window = %d..%d, want %d..%d", g.StartMin, g.EndMin, DefaultWindowStart, DefaultWindowEnd)
	}
	if g.QuantumMin <= 0 || g.MajorTickMin <= 0 {
		t.Fatalf("degenerate grid %+v", g)
	}
	if g.CandidateMin != 0 {
		t.Fatalf("CandidateMin = %d, want 0", g.CandidateMin)
	}
}

func TestCandidateQuantumIsGCDOfDurations(t *testing.T) {
	ivs := []model.Interval{iv(540, 600), iv(600, 630), iv(660, 750)} // 60, 30, 90
	for _, align := range []bool{false, true} {
		if got := CandidateQuantum(ivs, align); got != 30 {
			t.Fatalf("CandidateQuantum(align=%v) = %d, want 30", align, got)
		}
	}
	g := Build(ivs, DefaultOptions())
	if g.CandidateMin != 30 || g.QuantumMin != 30 || g.MajorTickMin != 30 {
		t.Fatalf("unexpected grid %+v", g)
	}
}

func TestIdenticalDurationsGiveThatQuantum(t *testing.T) {
	ivs := []model.Interval{iv(540, 585), iv(600, 645), iv(720, 765)}
	g := Build(ivs, DefaultOptions())
	if g.QuantumMin != 45 {
		t.Fatalf("QuantumMin = %d, want 45", g.QuantumMin)
	}
	if g.MajorTickMin != 45 {
		t.Fatalf("MajorTickMin = %d, want 45", g.MajorTickMin)
	}
	if g.StartMin%45 != 0 || g.EndMin%45 != 0 {
		t.Fatalf("window %d..%d not aligned to 45", g.StartMin, g.EndMin)
	}
}

func TestAlignStartsFoldsOffsets(t *testing.T) {
	ivs := []model.Interval{iv(540, 585), iv(600, 645)}
	opts := DefaultOptions()
	opts.AlignStarts = true
	g := Build(ivs, opts)
	if g.CandidateMin != 15 || g.QuantumMin != 15 || g.MajorTickMin != 60 {
		t.Fatalf("unexpected grid %+v", g)
	}
}

func TestNoCommonDivisorDegradesToMinQuantum(t *testing.T) {
	ivs := []model.Interval{iv(540, 547), iv(600, 611)}
	g := Build(ivs, DefaultOptions())
	if g.CandidateMin != 1 {
		t.Fatalf("CandidateMin = %d, want 1", g.CandidateMin)
	}
	if g.QuantumMin != DefaultMinQuantum {
		t.Fatalf("QuantumMin = %d, want %d", g.QuantumMin, DefaultMinQuantum)
	}
	if g.MajorTickMin != 60 {
		t.Fatalf("MajorTickMin = %d, want 60", g.MajorTickMin)
	}
}

func TestWindowCoversPaddedItemsRoundedOutward(t *testing.T) {
	opts := DefaultOptions()
	opts.AlignStarts = true
	ivs := []model.Interval{iv(540, 630), iv(960, 1050)} // 09:00 .. 17:30
	g := Build(ivs, opts)

	lo := 540 - opts.PadTopMin
	hi := 1050 + opts.PadBottomMin
	if g.StartMin != floorTo(lo, g.MajorTickMin) || g.EndMin != ceilTo(hi, g.MajorTickMin) {
		t.Fatalf("window %d..%d does not round [%d,%d] outward to %d", g.StartMin, g.EndMin, lo, hi, g.MajorTickMin)
	}
	if g.StartMin > lo || g.EndMin < hi {
		t.Fatalf("window %d..%d does not cover [%d,%d]", g.StartMin, g.EndMin, lo, hi)
	}
	if g.StartMin != 510 || g.EndMin != 1080 {
		t.Fatalf("window = %d..%d, want 510..1080", g.StartMin, g.EndMin)
	}
}

func TestPaddingClampsToDay(t *testing.T) {
	g := Build([]model.Interval{iv(0, 60), iv(1380, 1440)}, DefaultOptions())
	if g.StartMin != 0 || g.EndMin != 1440 {
		t.Fatalf("window = %d..%d, want 0..1440", g.StartMin, g.EndMin)
	}
}

func TestCapDoublesQuantum(t *testing.T) {
	opts := Options{MinQuantum: 1, MaxQuantum: 60, CellCap: 200}
	// durations 1079 and 1 share nothing but 1; the window spans 05:00-23:00
	ivs := []model.Interval{iv(301, 1380), iv(600, 601)}
	g := Build(ivs, opts)
	if g.CandidateMin != 1 {
		t.Fatalf("CandidateMin = %d, want 1", g.CandidateMin)
	}
	if g.Rows() > opts.CellCap {
		t.Fatalf("Rows() = %d exceeds cap %d", g.Rows(), opts.CellCap)
	}
	// 1, 2, 4, then 8 is raised to 10 so rows stay on the hour lines
	if g.QuantumMin != 10 {
		t.Fatalf("QuantumMin = %d, want 10", g.QuantumMin)
	}
}

func TestCapKeepsQuantumOnHourLines(t *testing.T) {
	ivs := []model.Interval{iv(301, 302), iv(540, 600), iv(1379, 1380)}
	cases := []struct {
		name string
		opts Options
	}{
		{"minute quantum", Options{MinQuantum: 1, MaxQuantum: 60, CellCap: 200, AlignStarts: true}},
		{"tight cap", Options{MinQuantum: 1, MaxQuantum: 60, CellCap: 50, AlignStarts: true}},
		{"three minute floor", Options{MinQuantum: 3, MaxQuantum: 60, CellCap: 100, AlignStarts: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := Build(ivs, tc.opts)
			if g.Rows() > tc.opts.CellCap {
				t.Fatalf("Rows() = %d exceeds cap %d", g.Rows(), tc.opts.CellCap)
			}
			if g.MajorTickMin%g.QuantumMin != 0 {
				t.Fatalf("major %d not a multiple of quantum %d", g.MajorTickMin, g.QuantumMin)
			}
			if got := g.SnapDown(540); got != 540 {
				t.Fatalf("SnapDown(09:00) = %d, want 540", got)
			}
		})
	}
}

func TestHourAligned(t *testing.T) {
	cases := []struct{ q, maxQ, want int }{
		{4, 60, 4},
		{8, 60, 10},
		{16, 60, 20},
		{24, 60, 30},
		{32, 60, 60},
		{90, 120, 90},
		{8, 9, 9},
	}
	for _, tc := range cases {
		if got := hourAligned(tc.q, tc.maxQ); got != tc.want {
			t.Errorf("hourAligned(%d, %d) = %d, want %d", tc.q, tc.maxQ, got, tc.want)
		}
	}
}

func TestCapNeverExceedsMaxQuantum(t *testing.T) {
	opts := Options{MinQuantum: 1, MaxQuantum: 4, CellCap: 10}
	g := Build([]model.Interval{iv(301, 1380), iv(600, 601)}, opts)
	if g.QuantumMin != 4 {
		t.Fatalf("QuantumMin = %d, want 4", g.QuantumMin)
	}
	if g.Rows() <= opts.CellCap {
		t.Fatalf("expected degenerate row count above cap, got %d", g.Rows())
	}
}

func TestIgnoresInvalidIntervals(t *testing.T) {
	g := Build([]model.Interval{iv(600, 600), iv(700, 650)}, DefaultOptions())
	if g.StartMin != DefaultWindowStart || g.EndMin != DefaultWindowEnd {
		t.Fatalf("invalid intervals should fall back to default window, got %+v", g)
	}
}

func TestTicks(t *testing.T) {
	g := Grid{StartMin: 480, EndMin: 600, QuantumMin: 30, MajorTickMin: 60}
	if got, want := g.MajorTicks(), []int{480, 540, 600}; !reflect.DeepEqual(got, want) {
		t.Fatalf("MajorTicks = %v, want %v", got, want)
	}
	if g.Segments() != 2 || g.Rows() != 4 {
		t.Fatalf("Segments=%d Rows=%d", g.Segments(), g.Rows())
	}
	minor := g.MinorTicks()
	if len(minor) != 10 {
		t.Fatalf("MinorTicks = %v, want 10 entries", minor)
	}
	for _, m := range minor {
		if m == 540 {
			t.Fatalf("minor ticks must skip major lines: %v", minor)
		}
	}

	g45 := Grid{StartMin: 495, EndMin: 810, QuantumMin: 45, MajorTickMin: 45}
	if got := g45.MinorTicks(); got != nil {
		t.Fatalf("expected no minor ticks for 45-minute majors, got %v", got)
	}
}

func TestSnap(t *testing.T) {
	g := Grid{QuantumMin: 30}
	if g.SnapDown(545) != 540 || g.SnapUp(545) != 570 || g.SnapUp(540) != 540 {
		t.Fatalf("snap mismatch: %d %d %d", g.SnapDown(545), g.SnapUp(545), g.SnapUp(540))
	}
}
