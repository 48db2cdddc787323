package layout

// 该文件定义排版结果与绘制原语的数据结构，供排版、后端绘制与调试 JSON 共用。
// 所有坐标与尺寸均为毫米，原点在页面左上角，y 向下增长。

// Result 记录一次报表生成过程中实际绘制的内容。
type Result struct {
	Columns []Column `json:"columns"`
	Pages   []Page   `json:"pages"`
}

// DataRows 返回所有页面上绘制的数据行数（不含表头）。
func (r *Result) DataRows() int {
	n := 0
	for _, p := range r.Pages {
		for _, row := range p.Rows {
			if !row.IsHeader {
				n++
			}
		}
	}
	return n
}

// Column 由第一条记录的键派生，整份报表内位置固定。
type Column struct {
	Name  string  `json:"name"`
	Index int     `json:"index"`
	X     float64 `json:"x"`
	Width float64 `json:"width"`
}

// Page 记录页面尺寸、边距以及该页上绘制的文本与表格行。
type Page struct {
	Index  int        `json:"index"`
	Width  float64    `json:"width"`
	Height float64    `json:"height"`
	Margin Margin     `json:"margin"`
	Texts  []TextBox  `json:"texts,omitempty"` // 标题、页脚
	Rows   []TableRow `json:"rows,omitempty"`
}

// Margin 以毫米为单位。
type Margin struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// UniformMargin 返回四边相同的边距。
func UniformMargin(v float64) Margin {
	return Margin{Top: v, Right: v, Bottom: v, Left: v}
}

// PageSpec 描述固定的页面尺寸与边距。
type PageSpec struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Margin Margin  `json:"margin"`
}

// PrintableWidth 为页宽减去左右边距。
func (p PageSpec) PrintableWidth() float64 {
	return p.Width - p.Margin.Left - p.Margin.Right
}

// PrintableHeight 为页高减去上下边距。
func (p PageSpec) PrintableHeight() float64 {
	return p.Height - p.Margin.Top - p.Margin.Bottom
}

// Font 描述文本的字重与尺寸（mm）。
type Font struct {
	Bold       bool    `json:"bold,omitempty"`
	Size       float64 `json:"size"`
	LineHeight float64 `json:"lineHeight"`
}

// TextBox 表示一个已经排好坐标的文本块。
type TextBox struct {
	Content string     `json:"content"`
	X       float64    `json:"x"`
	Y       float64    `json:"y"`
	Width   float64    `json:"width"`
	Font    Font       `json:"font"`
	Lines   []TextLine `json:"lines"`
	Height  float64    `json:"height"`
	Align   string     `json:"align,omitempty"` // left（默认）/center/right
	Color   Color      `json:"color"`
}

// TextLine 表示排版后的一行文本内容及其宽高。
type TextLine struct {
	Content   string  `json:"content"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	GapBefore float64 `json:"gapBefore,omitempty"`
}

// TableRow 记录每一行的位置、高度与单元格。
type TableRow struct {
	Y        float64     `json:"y"`
	Height   float64     `json:"height"`
	IsHeader bool        `json:"isHeader"`
	Record   int         `json:"record"` // 输入记录的下标，表头为 -1
	Cells    []TableCell `json:"cells"`
}

// TableCell 由边框矩形与其中的文本组成。
type TableCell struct {
	Border Rect    `json:"border"`
	Text   TextBox `json:"text"`
}

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Rect 表示一个描边矩形（不包含圆角）。
type Rect struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	StrokeColor Color   `json:"strokeColor"`
	StrokeWidth float64 `json:"strokeWidth"`         // mm，<=0 时由后端给默认值
	FillColor   *Color  `json:"fillColor,omitempty"` // 为空表示不填充
}

// DocumentMeta 保存 PDF 元信息。
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}
