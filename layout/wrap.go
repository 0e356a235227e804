package layout

import (
	"strings"
	"unicode/utf8"
)

// DefaultMarker 是截断时追加的省略号。
const DefaultMarker = "…"

// Measurer 返回文本在某一字体字号下的宽度（pt）。
type Measurer interface {
	TextWidth(s string) float64
}

// MeasureFunc adapts a function to Measurer.
type MeasureFunc func(string) float64

func (f MeasureFunc) TextWidth(s string) float64 { return f(s) }

// EstimateMeasurer 在没有字体度量时按字号粗略估算宽度。
func EstimateMeasurer(sizePt float64) Measurer {
	if sizePt <= 0 {
		sizePt = 12
	}
	return MeasureFunc(func(s string) float64 {
		return sizePt * 0.55 * float64(utf8.RuneCountInString(s))
	})
}

// Wrap 按单词贪心折行：显式换行符开始新段落；单个超宽单词独占一行；
// maxLines > 0 且行数超出时保留前 maxLines 行，并逐字缩短最后一行直到
// "行 + marker" 放得下。空文本返回恰好一个空行。
func Wrap(text string, maxWidth float64, m Measurer, maxLines int, marker string) []string {
	if m == nil {
		m = EstimateMeasurer(0)
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		lines = append(lines, wrapParagraph(para, maxWidth, m)...)
	}
	if maxLines > 0 && len(lines) > maxLines {
		kept := append([]string(nil), lines[:maxLines]...)
		kept[maxLines-1] = truncateLine(kept[maxLines-1], maxWidth, m, marker)
		return kept
	}
	return lines
}

func wrapParagraph(para string, maxWidth float64, m Measurer) []string {
	words := strings.Fields(para)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	current := words[0]
	for _, w := range words[1:] {
		candidate := current + " " + w
		if maxWidth > 0 && m.TextWidth(candidate) <= maxWidth {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = w
	}
	return append(lines, current)
}

func truncateLine(line string, maxWidth float64, m Measurer, marker string) string {
	if marker == "" {
		marker = DefaultMarker
	}
	if maxWidth > 0 {
		for line != "" && m.TextWidth(line+marker) > maxWidth {
			_, size := utf8.DecodeLastRuneInString(line)
			line = line[:len(line)-size]
		}
	}
	return strings.TrimRight(line, " ") + marker
}
