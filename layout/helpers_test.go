package layout

import (
	"errors"
	"math"
	"strings"
)

func eq(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

// stubTypesetter 每个换行符拆一行，行高取字体行高，宽度按每字符 1mm 估算。
type stubTypesetter struct{}

func (stubTypesetter) LayoutLines(content string, width float64, font Font) []TextLine {
	parts := strings.Split(content, "\n")
	lines := make([]TextLine, 0, len(parts))
	for _, p := range parts {
		lines = append(lines, TextLine{Content: p, Width: math.Min(float64(len(p)), width), Height: font.LineHeight})
	}
	return lines
}

// recordingSurface 记录所有绘制调用，可在指定操作的第 N 次调用时返回错误。
type recordingSurface struct {
	stubTypesetter

	rects    []Rect
	texts    []TextBox
	newPages int
	closes   int

	failOp string
	failAt int
	calls  map[string]int
}

var errBrokenPipe = errors.New("broken pipe")

func (s *recordingSurface) hit(op string) error {
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[op]++
	if op == s.failOp && s.calls[op] >= s.failAt {
		return errBrokenPipe
	}
	return nil
}

func (s *recordingSurface) DrawRect(r Rect) error {
	if err := s.hit("DrawRect"); err != nil {
		return err
	}
	s.rects = append(s.rects, r)
	return nil
}

func (s *recordingSurface) DrawText(tb TextBox) error {
	if err := s.hit("DrawText"); err != nil {
		return err
	}
	s.texts = append(s.texts, tb)
	return nil
}

func (s *recordingSurface) NewPage() error {
	if err := s.hit("NewPage"); err != nil {
		return err
	}
	s.newPages++
	return nil
}

func (s *recordingSurface) Close() error {
	s.closes++
	return s.hit("Close")
}

func (s *recordingSurface) textContents() []string {
	out := make([]string, len(s.texts))
	for i, tb := range s.texts {
		out[i] = tb.Content
	}
	return out
}
