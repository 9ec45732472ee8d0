package typeset

import (
	"strings"
)

// Ellipsis is appended to truncated lines.
const Ellipsis = "…"

// Wrap breaks text into at most maxLines lines no wider than maxWidth at the
// given size. Words are joined greedily; a word wider than a whole line is
// broken between runes. truncated reports that text was left over.
func Wrap(m Measurer, text string, size, maxWidth float64, maxLines int) (lines []string, truncated bool) {
	words := strings.Fields(text)
	if len(words) == 0 || maxLines <= 0 {
		return nil, len(words) > 0
	}
	fits := func(s string) bool { return m.Width(s, size) <= maxWidth }

	cur := ""
	for _, w := range words {
		if cur != "" {
			if t := cur + " " + w; fits(t) {
				cur = t
				continue
			}
			lines = append(lines, cur)
			cur = ""
			if len(lines) == maxLines {
				return lines, true
			}
		}
		if fits(w) {
			cur = w
			continue
		}
		chunk := ""
		for _, r := range w {
			if chunk != "" && !fits(chunk+string(r)) {
				lines = append(lines, chunk)
				chunk = ""
				if len(lines) == maxLines {
					return lines, true
				}
			}
			chunk += string(r)
		}
		cur = chunk
	}
	if cur != "" {
		if len(lines) == maxLines {
			return lines, true
		}
		lines = append(lines, cur)
	}
	return lines, false
}

// Ellipsize returns s unchanged when it fits maxWidth, otherwise the longest
// rune prefix of s followed by Ellipsis that fits. It returns "" when not
// even the ellipsis fits.
func Ellipsize(m Measurer, s string, size, maxWidth float64) string {
	if m.Width(s, size) <= maxWidth {
		return s
	}
	return withEllipsis(m, s, size, maxWidth)
}

// withEllipsis always marks s as truncated.
func withEllipsis(m Measurer, s string, size, maxWidth float64) string {
	runes := []rune(s)
	for n := len(runes); n >= 0; n-- {
		t := strings.TrimRight(string(runes[:n]), " ") + Ellipsis
		if m.Width(t, size) <= maxWidth {
			return t
		}
	}
	return ""
}

// FitLine shrinks a single line from ideal towards floor in Step
// decrements until it fits maxWidth; at the floor it is ellipsized.
func FitLine(m Measurer, text string, ideal, floor, maxWidth float64) (string, float64) {
	if floor > ideal {
		floor = ideal
	}
	for size := ideal; size > floor; size -= Step {
		if m.Width(text, size) <= maxWidth {
			return text, size
		}
	}
	return Ellipsize(m, text, floor, maxWidth), floor
}
