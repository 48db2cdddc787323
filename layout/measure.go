package layout

import (
	"math"
	"strings"
)

// MeasureText 返回 content 在给定宽度与字体下折行后的总高度（mm）。
// 这是一次试排，不会改变绘制状态；至少按一行计算。
func MeasureText(ts Typesetter, content string, width float64, font Font) float64 {
	_, height := layoutLines(ts, content, width, font)
	return height
}

// composeTextBox 试排文本并返回定位在 (x, y) 的文本块。
func composeTextBox(ts Typesetter, content string, x, y, width float64, font Font, align string) TextBox {
	lines, height := layoutLines(ts, content, width, font)
	return TextBox{
		Content: content,
		X:       x,
		Y:       y,
		Width:   width,
		Font:    font,
		Lines:   lines,
		Height:  height,
		Align:   align,
	}
}

// layoutLines 调用排版后端拆行，并回填缺省的行高与行间距。
// 返回的总高度满足 Σ(GapBefore + Height)。
func layoutLines(ts Typesetter, content string, width float64, font Font) ([]TextLine, float64) {
	textHeight := font.Size
	if textHeight <= 0 {
		textHeight = font.LineHeight
	}
	defaultLeading := math.Max(font.LineHeight-textHeight, 0)

	var lines []TextLine
	if ts == nil {
		for _, l := range strings.Split(content, "\n") {
			lines = append(lines, TextLine{Content: l, Width: width, Height: textHeight, GapBefore: defaultLeading})
		}
	} else {
		lines = ts.LayoutLines(content, width, font)
	}
	if len(lines) == 0 {
		lines = []TextLine{{Content: "", Width: 0, Height: textHeight}}
	}

	total := 0.0
	for i := range lines {
		if lines[i].Height <= 0 {
			lines[i].Height = textHeight
		}
		if i == 0 {
			lines[i].GapBefore = 0
		} else if lines[i].GapBefore <= 0 {
			lines[i].GapBefore = defaultLeading
		}
		total += lines[i].GapBefore + lines[i].Height
	}
	return lines, total
}
