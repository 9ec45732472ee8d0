// Package typeset fits block labels into fixed pixel boxes.
//
// Text width comes from a Measurer. The default Heuristic multiplies the rune
// count by the font size and a constant tuned for proportional Latin fonts;
// it is an approximation, not text shaping, and small visual drift against
// the rendered font is expected. FontMeasurer swaps in real glyph advances
// from an OpenType font without changing any caller.
package typeset

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
)

// HeuristicFactor is the average advance of a Latin glyph in em.
const HeuristicFactor = 0.58

// Measurer estimates the advance width of a single line of text.
type Measurer interface {
	Width(text string, size float64) float64
}

// Heuristic is the charCount x size x Factor estimator.
type Heuristic struct {
	Factor float64 // HeuristicFactor when zero
}

func (h Heuristic) Width(text string, size float64) float64 {
	f := h.Factor
	if f <= 0 {
		f = HeuristicFactor
	}
	return float64(utf8.RuneCountInString(text)) * size * f
}

// FontMeasurer measures with the advances of a parsed OpenType font. The
// font is parsed once; a face is created per call, so a FontMeasurer can be
// shared between goroutines.
type FontMeasurer struct {
	font     *opentype.Font
	fallback Heuristic
}

// NewFontMeasurer parses a TTF/OTF font.
func NewFontMeasurer(data []byte) (*FontMeasurer, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("typeset: parse font: %w", err)
	}
	return &FontMeasurer{font: f}, nil
}

// GoBold returns a measurer for the bundled Go Bold face, the closest
// bundled match to the heavy weight labels are drawn with.
func GoBold() (*FontMeasurer, error) {
	return NewFontMeasurer(gobold.TTF)
}

func (m *FontMeasurer) Width(text string, size float64) float64 {
	if text == "" || size <= 0 {
		return 0
	}
	face, err := opentype.NewFace(m.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return m.fallback.Width(text, size)
	}
	defer face.Close()
	adv := font.MeasureString(face, text)
	return float64(adv) / 64
}
