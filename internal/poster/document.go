package poster

import (
	"weekposter/internal/layout"
	"weekposter/internal/timegrid"
)

// Node is an element of the declarative poster tree.
type Node interface {
	isNode()
}

// Attr is an extra attribute on a Group, written in order.
type Attr struct {
	Key, Value string
}

// Group collects children under one class.
type Group struct {
	ID        string
	Class     string
	Attrs     []Attr
	Transform string
	Children  []Node
}

type Rect struct {
	X, Y, W, H  float64
	Radius      float64
	Fill        string
	Stroke      string
	StrokeWidth float64
	Opacity     float64 // 1 when zero
}

type Line struct {
	X1, Y1, X2, Y2 float64
	Stroke         string
	Width          float64
	Dash           string
}

// Text is a single line. Anchor is start, middle or end; Baseline is a
// dominant-baseline value, alphabetic when empty.
type Text struct {
	X, Y     float64
	Content  string
	Size     float64
	Weight   int
	Fill     string
	Anchor   string
	Baseline string
}

// Image is an external picture. An empty Href leaves an empty region.
type Image struct {
	X, Y, W, H float64
	Href       string
	Rotate     float64 // degrees around the image center
	Opacity    float64 // 1 when zero
}

func (*Group) isNode() {}
func (*Rect) isNode()  {}
func (*Line) isNode()  {}
func (*Text) isNode()  {}
func (*Image) isNode() {}

// Document is the complete poster description for one render.
type Document struct {
	Width, Height int
	Background    string
	Grid          timegrid.Grid
	Layout        layout.Layout
	Nodes         []Node
}

// Attr returns the value of key, if present.
func (g *Group) Attr(key string) (string, bool) {
	for _, a := range g.Attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

func walk(nodes []Node, fn func(Node)) {
	for _, n := range nodes {
		fn(n)
		if g, ok := n.(*Group); ok {
			walk(g.Children, fn)
		}
	}
}

// Find returns every group of the given class in document order.
func (d *Document) Find(class string) []*Group {
	var out []*Group
	walk(d.Nodes, func(n Node) {
		if g, ok := n.(*Group); ok && g.Class == class {
			out = append(out, g)
		}
	})
	return out
}

// Images returns every image node, for resource inlining. Callers may
// rewrite Href in place.
func (d *Document) Images() []*Image {
	var out []*Image
	walk(d.Nodes, func(n Node) {
		if img, ok := n.(*Image); ok {
			out = append(out, img)
		}
	})
	return out
}

// Texts returns the text nodes below g.
func (g *Group) Texts() []*Text {
	var out []*Text
	walk(g.Children, func(n Node) {
		if t, ok := n.(*Text); ok {
			out = append(out, t)
		}
	})
	return out
}

// Rects returns the rectangles below g.
func (g *Group) Rects() []*Rect {
	var out []*Rect
	walk(g.Children, func(n Node) {
		if r, ok := n.(*Rect); ok {
			out = append(out, r)
		}
	})
	return out
}
