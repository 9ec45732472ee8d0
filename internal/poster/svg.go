package poster

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"math"
	"strconv"

	svg "github.com/ajstarks/svgo"
)

// SVG returns the document encoded as a standalone SVG file.
func (d *Document) SVG() []byte {
	var buf bytes.Buffer
	d.encode(&buf)
	return buf.Bytes()
}

// WriteSVG writes the SVG encoding of d to w.
func (d *Document) WriteSVG(w io.Writer) error {
	if _, err := w.Write(d.SVG()); err != nil {
		return fmt.Errorf("poster: write svg: %w", err)
	}
	return nil
}

func (d *Document) encode(w io.Writer) {
	canvas := svg.New(w)
	canvas.Startview(d.Width, d.Height, 0, 0, d.Width, d.Height)
	canvas.Rect(0, 0, d.Width, d.Height, attr("fill", d.Background))
	for _, n := range d.Nodes {
		writeNode(canvas, n)
	}
	canvas.End()
}

func writeNode(canvas *svg.SVG, n Node) {
	switch v := n.(type) {
	case *Group:
		var attrs []string
		if v.ID != "" {
			attrs = append(attrs, attr("id", v.ID))
		}
		if v.Class != "" {
			attrs = append(attrs, attr("class", v.Class))
		}
		for _, a := range v.Attrs {
			attrs = append(attrs, attr(a.Key, a.Value))
		}
		if v.Transform != "" {
			attrs = append(attrs, attr("transform", v.Transform))
		}
		canvas.Group(attrs...)
		for _, c := range v.Children {
			writeNode(canvas, c)
		}
		canvas.Gend()

	case *Rect:
		x, y, w, h := box(v.X, v.Y, v.W, v.H)
		attrs := []string{attr("fill", v.Fill)}
		if v.Stroke != "" {
			attrs = append(attrs, attr("stroke", v.Stroke), attr("stroke-width", num(v.StrokeWidth)))
		}
		if v.Opacity > 0 && v.Opacity < 1 {
			attrs = append(attrs, attr("fill-opacity", num(v.Opacity)))
		}
		if r := int(math.Round(v.Radius)); r > 0 {
			canvas.Roundrect(x, y, w, h, r, r, attrs...)
			return
		}
		canvas.Rect(x, y, w, h, attrs...)

	case *Line:
		attrs := []string{attr("stroke", v.Stroke), attr("stroke-width", num(v.Width))}
		if v.Dash != "" {
			attrs = append(attrs, attr("stroke-dasharray", v.Dash))
		}
		canvas.Line(px(v.X1), px(v.Y1), px(v.X2), px(v.Y2), attrs...)

	case *Text:
		attrs := []string{
			attr("font-family", fontFamily),
			attr("font-size", num(v.Size)),
			attr("font-weight", strconv.Itoa(v.Weight)),
			attr("fill", v.Fill),
		}
		if v.Anchor != "" {
			attrs = append(attrs, attr("text-anchor", v.Anchor))
		}
		if v.Baseline != "" {
			attrs = append(attrs, attr("dominant-baseline", v.Baseline))
		}
		canvas.Text(px(v.X), px(v.Y), v.Content, attrs...)

	case *Image:
		if v.Href == "" {
			return
		}
		x, y, w, h := box(v.X, v.Y, v.W, v.H)
		var attrs []string
		if v.Opacity > 0 && v.Opacity < 1 {
			attrs = append(attrs, attr("opacity", num(v.Opacity)))
		}
		attrs = append(attrs, attr("preserveAspectRatio", "xMidYMid meet"))
		if v.Rotate != 0 {
			canvas.Gtransform(fmt.Sprintf("rotate(%s %d %d)", num(v.Rotate), x+w/2, y+h/2))
			canvas.Image(x, y, w, h, html.EscapeString(v.Href), attrs...)
			canvas.Gend()
			return
		}
		canvas.Image(x, y, w, h, html.EscapeString(v.Href), attrs...)
	}
}

func attr(k, v string) string {
	return k + `="` + html.EscapeString(v) + `"`
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func px(f float64) int {
	return int(math.Round(f))
}

// box rounds edges rather than sizes so adjacent rectangles stay flush.
func box(x, y, w, h float64) (int, int, int, int) {
	x0, y0 := px(x), px(y)
	return x0, y0, px(x+w) - x0, px(y+h) - y0
}
