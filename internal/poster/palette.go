package poster

import (
	"strconv"
	"strings"

	"weekposter/internal/decor"
)

// Palette holds the fixed colors of a theme.
type Palette struct {
	Background string
	Border     string
	GridLine   string // minor guide lines
	GridFill   string
	HeaderBg   string
	HeaderText string
	HourBg     string
	HourText   string
	LegendText string
	Title      string
	Subtitle   string
	LunchFill  string
	LunchText  string
	Watermark  string
}

const (
	// DefaultItemColor fills items that carry no color.
	DefaultItemColor = "#e5e7eb"

	darkText  = "#111827"
	lightText = "#ffffff"
)

var palettes = map[string]Palette{
	"classic": {
		Background: "#ffffff",
		Border:     "#000000",
		GridLine:   "#e5e7eb",
		GridFill:   "#ffffff",
		HeaderBg:   "#ffffff",
		HeaderText: "#0f172a",
		HourBg:     "#f3f4f6",
		HourText:   "#111827",
		LegendText: "#374151",
		Title:      "#0f172a",
		Subtitle:   "#475569",
		LunchFill:  "#fde68a",
		LunchText:  "#92400e",
		Watermark:  "#94a3b8",
	},
	"light": {
		Background: "#ffffff",
		Border:     "#1f2937",
		GridLine:   "#e6e8eb",
		GridFill:   "#ffffff",
		HeaderBg:   "#ffffff",
		HeaderText: "#0f172a",
		HourBg:     "#f5f7fa",
		HourText:   "#111827",
		LegendText: "#374151",
		Title:      "#0f172a",
		Subtitle:   "#475569",
		LunchFill:  "#fde68a",
		LunchText:  "#92400e",
		Watermark:  "#94a3b8",
	},
	"pastel": {
		Background: "#fffdf8",
		Border:     "#6b7280",
		GridLine:   "#eaeaea",
		GridFill:   "#ffffff",
		HeaderBg:   "#ffffff",
		HeaderText: "#1f2937",
		HourBg:     "#fafafa",
		HourText:   "#374151",
		LegendText: "#4b5563",
		Title:      "#1f2937",
		Subtitle:   "#6b7280",
		LunchFill:  "#fef3c7",
		LunchText:  "#92400e",
		Watermark:  "#a1a1aa",
	},
}

// Themes lists every accepted theme name: color themes first, then
// decoration themes.
func Themes() []string {
	return append([]string{"classic", "light", "pastel"}, decor.Themes()...)
}

// PaletteFor returns the palette of a color theme. Decoration themes and
// unknown names use the light palette.
func PaletteFor(theme string) Palette {
	if p, ok := palettes[theme]; ok {
		return p
	}
	return palettes["light"]
}

// cleanColor keeps CSS color strings made of a safe character set and
// falls back otherwise.
func cleanColor(c, fallback string) string {
	c = strings.TrimSpace(c)
	if c == "" {
		return fallback
	}
	for _, r := range c {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("#(),.% ", r):
		default:
			return fallback
		}
	}
	return c
}

// parseHex accepts #rgb and #rrggbb.
func parseHex(c string) (r, g, b int, ok bool) {
	h := strings.TrimPrefix(strings.TrimSpace(c), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff), true
}

// TextColorFor picks dark or light text by the YIQ brightness of a hex
// background. Non-hex colors get dark text.
func TextColorFor(bg string) string {
	r, g, b, ok := parseHex(bg)
	if !ok {
		return darkText
	}
	yiq := (r*299 + g*587 + b*114) / 1000
	if yiq >= 150 {
		return darkText
	}
	return lightText
}
