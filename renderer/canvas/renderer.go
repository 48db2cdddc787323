// Package canvasrenderer 基于 github.com/tdewolff/canvas 实现 layout.Surface，逐页流式输出 PDF。
package canvasrenderer

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/gridpaper/fonts"
	"github.com/ByLCY/gridpaper/layout"
)

const defaultStrokeWidth = 0.2

var _ layout.Surface = (*Surface)(nil)

// Surface 把排版器的绘制调用落到 canvas 上：每页一个 canvas，
// 分页或关闭时渲染进同一个 PDF writer。
type Surface struct {
	page   layout.PageSpec
	out    *errWriter
	writer *pdf.PDF
	canvas *canvas.Canvas
	ctx    *canvas.Context

	regular *canvas.FontFamily
	bold    *canvas.FontFamily

	faceMu sync.Mutex
	faces  map[faceKey]*canvas.FontFace

	closed bool
}

type faceKey struct {
	bold  bool
	size  float64
	color layout.Color
}

// errWriter 记录底层输出流的第一个错误，pdf writer 本身只在 Close 时报告。
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	if err != nil {
		e.err = err
	}
	return n, err
}

// New 创建 Surface 并打开第一页。页面尺寸为毫米。
func New(w io.Writer, page layout.PageSpec, meta layout.DocumentMeta) (*Surface, error) {
	if w == nil {
		return nil, fmt.Errorf("canvas: 缺少输出流")
	}
	if page.Width <= 0 || page.Height <= 0 {
		return nil, fmt.Errorf("%w: 页面尺寸 %gx%g", layout.ErrInvalidOptions, page.Width, page.Height)
	}
	regular, err := loadFamily("gridpaper-regular", fonts.Regular, canvas.FontRegular)
	if err != nil {
		return nil, err
	}
	bold, err := loadFamily("gridpaper-bold", fonts.Bold, canvas.FontBold)
	if err != nil {
		return nil, err
	}

	out := &errWriter{w: w}
	s := &Surface{
		page:    page,
		out:     out,
		writer:  pdf.New(out, page.Width, page.Height, nil),
		regular: regular,
		bold:    bold,
		faces:   map[faceKey]*canvas.FontFace{},
	}
	s.applyMeta(meta)
	s.openCanvas()
	return s, nil
}

func loadFamily(name, font string, style canvas.FontStyle) (*canvas.FontFamily, error) {
	data, err := fonts.Load(font)
	if err != nil {
		return nil, err
	}
	family := canvas.NewFontFamily(name)
	if err := family.LoadFont(data, 0, style); err != nil {
		return nil, fmt.Errorf("加载字体 %s 失败: %w", font, err)
	}
	return family, nil
}

func (s *Surface) applyMeta(meta layout.DocumentMeta) {
	keywords := strings.Join(meta.Keywords, ", ")
	s.writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}

func (s *Surface) openCanvas() {
	s.canvas = canvas.New(s.page.Width, s.page.Height)
	s.ctx = canvas.NewContext(s.canvas)
	s.ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点
}

// LayoutLines 实现 layout.Typesetter，使用贪心换行算法；宽度、字号与行高均为毫米。
func (s *Surface) LayoutLines(content string, width float64, font layout.Font) []layout.TextLine {
	face := s.face(font, layout.Color{})
	lines := greedyWrapTokens(content, width, face)

	textHeight := face.Metrics().LineHeight
	if textHeight <= 0 {
		textHeight = font.LineHeight
	}
	leading := math.Max(font.LineHeight-textHeight, 0)
	if len(lines) == 0 {
		lines = []layout.TextLine{{Content: "", Width: 0, Height: textHeight}}
	}
	for i := range lines {
		if lines[i].Height <= 0 {
			lines[i].Height = textHeight
		}
		if i == 0 {
			lines[i].GapBefore = 0
		} else {
			lines[i].GapBefore = leading
		}
	}
	return lines
}

// DrawRect 绘制描边矩形，未指定填充色时保持透明。
func (s *Surface) DrawRect(r layout.Rect) error {
	if err := s.check(); err != nil {
		return err
	}
	w := r.StrokeWidth
	if w <= 0 {
		w = defaultStrokeWidth
	}
	if r.FillColor != nil {
		s.ctx.SetFillColor(colorFromLayout(*r.FillColor))
	} else {
		s.ctx.SetFillColor(color.RGBA{0, 0, 0, 0})
	}
	s.ctx.SetStrokeColor(colorFromLayout(r.StrokeColor))
	s.ctx.SetStrokeWidth(w)
	s.ctx.DrawPath(r.X, r.Y, canvas.Rectangle(r.Width, r.Height))
	return nil
}

// DrawText 按 TextBox 中已排好的行逐行绘制。
func (s *Surface) DrawText(tb layout.TextBox) error {
	if err := s.check(); err != nil {
		return err
	}
	face := s.face(tb.Font, tb.Color)

	lines := tb.Lines
	if len(lines) == 0 {
		lines = []layout.TextLine{{Content: tb.Content, Width: tb.Width, Height: tb.Font.LineHeight}}
	}

	// 处理水平对齐：left（默认）/center/right。
	var textAlign canvas.TextAlign
	var anchorX float64
	switch strings.ToLower(tb.Align) {
	case "center":
		textAlign = canvas.Center
		anchorX = tb.X + tb.Width/2
	case "right", "end":
		textAlign = canvas.Right
		anchorX = tb.X + tb.Width
	default:
		textAlign = canvas.Left
		anchorX = tb.X
	}

	ascent := face.Metrics().Ascent
	cursorY := tb.Y
	for _, line := range lines {
		cursorY += line.GapBefore
		textLine := canvas.NewTextLine(face, line.Content, textAlign)

		lineHeight := line.Height
		if lineHeight <= 0 {
			lineHeight = tb.Font.Size
		}
		// 基线位置：行顶部加上字体上升部
		s.ctx.DrawText(anchorX, cursorY+ascent, textLine)
		cursorY += lineHeight
	}
	return nil
}

// NewPage 渲染当前页并开启同尺寸的新页。
func (s *Surface) NewPage() error {
	if err := s.check(); err != nil {
		return err
	}
	s.canvas.RenderTo(s.writer)
	if s.out.err != nil {
		return s.out.err
	}
	s.writer.NewPage(s.page.Width, s.page.Height)
	s.openCanvas()
	return nil
}

// Close 渲染最后一页并写出 PDF 尾部。重复调用返回 layout.ErrClosed。
func (s *Surface) Close() error {
	if s.closed {
		return layout.ErrClosed
	}
	s.closed = true
	s.canvas.RenderTo(s.writer)
	if err := s.writer.Close(); err != nil {
		return fmt.Errorf("写入 PDF 失败: %w", err)
	}
	if s.out.err != nil {
		return fmt.Errorf("写入 PDF 失败: %w", s.out.err)
	}
	return nil
}

func (s *Surface) check() error {
	if s.closed {
		return layout.ErrClosed
	}
	return s.out.err
}

func (s *Surface) face(font layout.Font, col layout.Color) *canvas.FontFace {
	key := faceKey{bold: font.Bold, size: font.Size, color: col}
	s.faceMu.Lock()
	defer s.faceMu.Unlock()
	if f, ok := s.faces[key]; ok {
		return f
	}
	family, style := s.regular, canvas.FontRegular
	if font.Bold {
		family, style = s.bold, canvas.FontBold
	}
	// 字体系统使用 pt
	f := family.Face(toPt(font.Size), colorFromLayout(col), style, canvas.FontNormal)
	s.faces[key] = f
	return f
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}

// toPt 将毫米(mm)转换为点(pt)。
func toPt(mm float64) float64 { return mm * layout.MmToPt }

// greedyWrapTokens 优先在空白处分割，超过限制时在词内拆分；显式换行总是断行。
func greedyWrapTokens(content string, width float64, face *canvas.FontFace) []layout.TextLine {
	limit := width
	if limit <= 0 {
		limit = math.MaxFloat64
	}

	tokens := tokenizeContent(content)
	var lines []layout.TextLine
	var builder strings.Builder
	currentWidth := 0.0

	emit := func(force bool) {
		if builder.Len() == 0 {
			if force {
				lines = append(lines, layout.TextLine{Content: "", Width: 0})
			}
			return
		}
		lines = append(lines, layout.TextLine{Content: builder.String(), Width: currentWidth})
		builder.Reset()
		currentWidth = 0
	}

	appendToken := func(token string) {
		builder.WriteString(token)
		currentWidth += face.TextWidth(token)
	}

	for _, token := range tokens {
		if token == "\n" {
			emit(true)
			continue
		}

		tokenWidth := face.TextWidth(token)
		if currentWidth > 0 && currentWidth+tokenWidth > limit {
			emit(false)
		}
		if tokenWidth <= limit {
			appendToken(token)
			if currentWidth > limit {
				emit(false)
			}
			continue
		}

		for _, chunk := range splitTokenByWidth(token, limit, face) {
			chunkWidth := face.TextWidth(chunk)
			if currentWidth > 0 && currentWidth+chunkWidth > limit {
				emit(false)
			}
			appendToken(chunk)
			if currentWidth > limit {
				emit(false)
			}
		}
	}

	emit(true)
	return lines
}

func tokenizeContent(s string) []string {
	var tokens []string
	var builder strings.Builder
	lastWasSpace := false
	flush := func() {
		if builder.Len() == 0 {
			return
		}
		tokens = append(tokens, builder.String())
		builder.Reset()
	}

	for _, r := range s {
		if r == '\r' {
			continue
		}
		if r == '\n' {
			flush()
			tokens = append(tokens, "\n")
			lastWasSpace = false
			continue
		}
		isSpace := unicode.IsSpace(r)
		if builder.Len() == 0 {
			lastWasSpace = isSpace
		} else if lastWasSpace != isSpace {
			flush()
			lastWasSpace = isSpace
		}
		builder.WriteRune(r)
	}
	flush()
	return tokens
}

func splitTokenByWidth(token string, limit float64, face *canvas.FontFace) []string {
	if limit <= 0 || limit == math.MaxFloat64 {
		return []string{token}
	}
	var parts []string
	var builder strings.Builder
	for _, r := range token {
		builder.WriteRune(r)
		if face.TextWidth(builder.String()) > limit && builder.Len() > 1 {
			runes := []rune(builder.String())
			parts = append(parts, string(runes[:len(runes)-1]))
			builder.Reset()
			builder.WriteRune(r)
		}
	}
	if builder.Len() > 0 {
		parts = append(parts, builder.String())
	}
	return parts
}
