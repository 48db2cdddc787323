package layout

import (
	"fmt"
	"log/slog"

	"github.com/ByLCY/gridpaper/record"
)

const (
	blockSpacing            = 3.0 // 标题与表格之间的间距（mm）
	defaultLineHeightFactor = 1.2
	defaultTitle            = "Report"
)

// 默认版式：A4，四边 50pt 边距，单元格 5pt 内边距，正文与表头 10pt。
var (
	defaultMargin       = Pt(50).ToMM()
	defaultPadding      = Pt(5).ToMM()
	defaultBodySize     = Pt(10).ToMM()
	defaultTitleSize    = Pt(16).ToMM()
	defaultFooterSize   = Pt(8).ToMM()
	defaultFooterOffset = Pt(10).ToMM()
)

// Typesetter 负责根据字体与宽度约束将文本拆成可绘制的行。
// 实现必须是纯测量：相同的 (content, width, font) 得到相同的结果，且不改变任何绘制状态。
type Typesetter interface {
	LayoutLines(content string, width float64, font Font) []TextLine
}

// Surface 是排版器依赖的绘制后端。构造完成时第一页已经就绪；
// NewPage 插入分页，Close 完成并释放输出流，只会被调用一次。
type Surface interface {
	Typesetter
	DrawRect(r Rect) error
	DrawText(tb TextBox) error
	NewPage() error
	Close() error
}

// Options 配置一次报表生成。建议从 DefaultOptions 开始修改。
type Options struct {
	Title        string
	Footer       string // 为空时不绘制页脚
	Page         PageSpec
	CellPadding  float64
	TitleFont    Font
	HeaderFont   Font
	BodyFont     Font
	FooterFont   Font
	FooterOffset float64 // 页脚相对下边距的纵向偏移
	Placeholder  string
	RepeatHeader bool // 新页顶部重复表头
	Logger       *slog.Logger
}

// DefaultOptions 返回 A4 纵向的默认版式。
func DefaultOptions() Options {
	w, h, _ := PageSize("A4", false)
	return Options{
		Title: defaultTitle,
		Page: PageSpec{
			Width:  w,
			Height: h,
			Margin: UniformMargin(defaultMargin),
		},
		CellPadding:  defaultPadding,
		TitleFont:    NewFont(defaultTitleSize, true),
		HeaderFont:   NewFont(defaultBodySize, true),
		BodyFont:     NewFont(defaultBodySize, false),
		FooterFont:   NewFont(defaultFooterSize, false),
		FooterOffset: defaultFooterOffset,
		Placeholder:  record.DefaultPlaceholder,
	}
}

// NewFont 以默认行高倍数构造字体描述，size 为毫米。
func NewFont(size float64, bold bool) Font {
	return Font{Bold: bold, Size: size, LineHeight: size * defaultLineHeightFactor}
}

// normalize 补齐未设置的字段并校验页面几何。
func (o Options) normalize() (Options, error) {
	def := DefaultOptions()
	if o.Title == "" {
		o.Title = def.Title
	}
	if o.Placeholder == "" {
		o.Placeholder = def.Placeholder
	}
	if o.CellPadding < 0 {
		o.CellPadding = 0
	}
	o.TitleFont = fillFont(o.TitleFont, def.TitleFont)
	o.HeaderFont = fillFont(o.HeaderFont, def.HeaderFont)
	o.BodyFont = fillFont(o.BodyFont, def.BodyFont)
	o.FooterFont = fillFont(o.FooterFont, def.FooterFont)
	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	p := o.Page
	if p.Width <= 0 || p.Height <= 0 {
		return o, fmt.Errorf("%w: 页面尺寸 %gx%g", ErrInvalidOptions, p.Width, p.Height)
	}
	if p.Margin.Top < 0 || p.Margin.Right < 0 || p.Margin.Bottom < 0 || p.Margin.Left < 0 {
		return o, fmt.Errorf("%w: 边距不能为负 %+v", ErrInvalidOptions, p.Margin)
	}
	if p.PrintableWidth() <= 0 || p.PrintableHeight() <= 0 {
		return o, fmt.Errorf("%w: 边距 %+v 超出页面 %gx%g", ErrInvalidOptions, p.Margin, p.Width, p.Height)
	}
	return o, nil
}

func fillFont(f, def Font) Font {
	if f == (Font{}) {
		return def
	}
	if f.Size <= 0 {
		f.Size = def.Size
	}
	if f.LineHeight <= 0 {
		f.LineHeight = f.Size * defaultLineHeightFactor
	}
	return f
}
