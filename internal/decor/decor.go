// Package decor places a theme's decorative images around the poster grid.
//
// Every theme is a static table of entries; Place resolves each entry
// against the grid rectangle, never the canvas, so decorations land in the
// same spot on portrait, widescreen and square posters.
package decor

import (
	"math"

	"weekposter/internal/layout"
)

// Anchor is a reference point on the grid rectangle.
type Anchor int

const (
	TopLeft Anchor = iota
	TopCenter
	TopRight
	LeftCenter
	Center
	RightCenter
	BottomLeft
	BottomCenter
	BottomRight
)

// Point returns the anchor's position on r.
func (a Anchor) Point(r layout.Rect) (x, y float64) {
	switch a {
	case TopLeft:
		return r.X, r.Y
	case TopCenter:
		return r.X + r.W/2, r.Y
	case TopRight:
		return r.Right(), r.Y
	case LeftCenter:
		return r.X, r.Y + r.H/2
	case RightCenter:
		return r.Right(), r.Y + r.H/2
	case BottomLeft:
		return r.X, r.Bottom()
	case BottomCenter:
		return r.X + r.W/2, r.Bottom()
	case BottomRight:
		return r.Right(), r.Bottom()
	default:
		return r.X + r.W/2, r.Y + r.H/2
	}
}

// Size scales an image edge from the short side of the grid.
type Size struct {
	Factor, Min, Max float64
}

func (s Size) resolve(short float64) float64 {
	return math.Max(s.Min, math.Min(s.Max, short*s.Factor))
}

// Orbit repeats an entry on a circle around its anchor.
type Orbit struct {
	Count      int
	Radius     float64 // multiple of the grid's short side
	RotateStep float64 // degrees added per copy
}

// Entry is one row of a theme table. DX and DY move the image's top-left
// corner from the anchor, in multiples of the image size. Rotate turns the
// image around its own center.
type Entry struct {
	Ref     string
	Anchor  Anchor
	Size    Size
	DX, DY  float64
	Rotate  float64
	Opacity float64 // 1 when zero
	Orbit   *Orbit
}

// Placement is a resolved, square decoration image.
type Placement struct {
	Ref     string
	X, Y    float64
	Size    float64
	Rotate  float64
	Opacity float64
}

var (
	flowerBig  = Size{0.42, 160, 520}
	flowerMid  = Size{0.26, 120, 360}
	flowerTiny = Size{0.12, 60, 120}
	medMid     = Size{0.20, 120, 260}
	sciMid     = Size{0.18, 110, 240}
)

var themes = map[string][]Entry{
	"none": nil,
	"flowers": {
		{Ref: "decors/flores/flores.png", Anchor: TopLeft, Size: flowerBig, DX: -0.68, DY: -0.62, Rotate: -8},
		{Ref: "decors/flores/flores.png", Anchor: BottomRight, Size: flowerBig, DX: -0.32, DY: -0.38, Rotate: 172},
		{Ref: "decors/flores/flores.png", Anchor: LeftCenter, Size: flowerMid, DX: -0.88, DY: -0.5, Rotate: -14},
		{Ref: "decors/flores/flores.png", Anchor: RightCenter, Size: flowerMid, DX: -0.12, DY: -0.5, Rotate: 10},
		{Ref: "decors/flores/flores.png", Anchor: Center, Size: flowerTiny, DX: -0.5, DY: -0.5, Opacity: 0.22,
			Orbit: &Orbit{Count: 10, Radius: 0.55, RotateStep: 22}},
	},
	"medical": {
		{Ref: "decors/medicina/medico.png", Anchor: TopRight, Size: medMid, DX: -1, DY: -1.25},
		{Ref: "decors/medicina/corazon.png", Anchor: TopLeft, Size: medMid, DX: -1, DY: -1, Rotate: -8},
		{Ref: "decors/medicina/sangre.png", Anchor: BottomRight, Size: medMid, Rotate: -10},
		{Ref: "decors/medicina/inyeccion.png", Anchor: BottomLeft, Size: medMid, DX: -1, Rotate: 14},
		{Ref: "decors/medicina/stetoscopio.png", Anchor: RightCenter, Size: medMid, DX: -0.8, DY: -2, Rotate: 14},
	},
	"science": {
		{Ref: "decors/cientifico/atomo.png", Anchor: LeftCenter, Size: sciMid, DX: -1.85, DY: 1},
		{Ref: "decors/cientifico/bacteria.png", Anchor: RightCenter, Size: sciMid, DX: -0.15, DY: -2},
		{Ref: "decors/cientifico/cadena.png", Anchor: BottomRight, Size: sciMid},
		{Ref: "decors/cientifico/micro.png", Anchor: TopRight, Size: sciMid, DX: -1, DY: -1.25},
		{Ref: "decors/cientifico/lupa.png", Anchor: BottomLeft, Size: sciMid, DX: -1},
		{Ref: "decors/cientifico/muestras.png", Anchor: TopLeft, Size: sciMid, DX: -1, DY: -1.2},
	},
	"snoopy": {
		{Ref: "decors/snoopy/peek.png", Anchor: TopRight, Size: medMid, DX: -1, DY: -0.95},
		{Ref: "decors/snoopy/main.png", Anchor: TopLeft, Size: medMid, DX: -1, DY: -1},
		{Ref: "decors/snoopy/asomado.png", Anchor: LeftCenter, Size: medMid, DX: -1.77, DY: 1},
		{Ref: "decors/snoopy/apoyado.png", Anchor: RightCenter, Size: medMid, DX: -0.3, DY: -1},
		{Ref: "decors/snoopy/woodstock.png", Anchor: BottomRight, Size: medMid},
	},
}

// Themes lists the decoration theme names.
func Themes() []string {
	return []string{"none", "flowers", "medical", "science", "snoopy"}
}

// IsTheme reports whether name is a decoration theme.
func IsTheme(name string) bool {
	_, ok := themes[name]
	return ok
}

// Place resolves the theme's table against the grid rectangle. "none" and
// unknown names yield nil.
func Place(theme string, grid layout.Rect) []Placement {
	entries := themes[theme]
	if len(entries) == 0 || grid.W <= 0 || grid.H <= 0 {
		return nil
	}
	short := math.Min(grid.W, grid.H)

	var out []Placement
	for _, e := range entries {
		size := e.Size.resolve(short)
		opacity := e.Opacity
		if opacity <= 0 {
			opacity = 1
		}
		ax, ay := e.Anchor.Point(grid)

		if e.Orbit == nil {
			out = append(out, Placement{
				Ref:     e.Ref,
				X:       ax + e.DX*size,
				Y:       ay + e.DY*size,
				Size:    size,
				Rotate:  e.Rotate,
				Opacity: opacity,
			})
			continue
		}

		radius := short * e.Orbit.Radius
		for i := 0; i < e.Orbit.Count; i++ {
			ang := float64(i) * 2 * math.Pi / float64(e.Orbit.Count)
			cx := ax + math.Cos(ang)*radius
			cy := ay + math.Sin(ang)*radius
			out = append(out, Placement{
				Ref:     e.Ref,
				X:       cx + e.DX*size,
				Y:       cy + e.DY*size,
				Size:    size,
				Rotate:  e.Rotate + float64(i)*e.Orbit.RotateStep,
				Opacity: opacity,
			})
		}
	}
	return out
}
