package layout

import (
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ByLCY/gridpaper/binding"
	"github.com/ByLCY/gridpaper/record"
)

const tableBorderWidth = 0.2

// Compose 将记录排成带边框的表格并逐页绘制到 surface 上：
// 标题 → 表头 → 数据行（必要时分页）→ 末页页脚，最后关闭 surface。
//
// 列取自第一条记录，列宽均分可打印宽度。每行先按当前行高预判
// cursor+h > 页底-h，再把该行画在当前页；预判成立时，下一行绘制前分页。
// 行永远不会跨页拆分。无论成功与否 surface 都只关闭一次。
func Compose(records []*record.Record, s Surface, opts Options) (*Result, error) {
	if s == nil {
		return nil, fmt.Errorf("layout: 缺少绘制后端 Surface")
	}
	opts, err := opts.normalize()
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	c := newCompositor(s, opts)
	if err := c.run(records); err != nil {
		_ = s.Close()
		return nil, err
	}
	if err := s.Close(); err != nil {
		return nil, streamErr("Close", err)
	}
	c.logger.Debug("报表生成完成", "pages", len(c.pages), "rows", c.rowsDrawn)
	return &Result{Columns: c.columns, Pages: c.pages}, nil
}

// compositor 持有一次生成过程的全部可变状态：列、游标与已完成的页面。
type compositor struct {
	surface Surface
	opts    Options
	logger  *slog.Logger
	upper   cases.Caser

	columns      []Column
	pages        []Page
	cursorY      float64
	pendingBreak bool
	rowsDrawn    int
	total        int
}

func newCompositor(s Surface, opts Options) *compositor {
	c := &compositor{
		surface: s,
		opts:    opts,
		logger:  opts.Logger,
		upper:   cases.Upper(language.Und),
	}
	c.beginPage()
	return c
}

func (c *compositor) run(records []*record.Record) error {
	c.total = len(records)
	if err := c.drawTitle(); err != nil {
		return err
	}

	names := record.Columns(records)
	if len(names) == 0 {
		c.logger.Debug("没有可用的列，只输出标题", "records", len(records))
		return c.drawFooter()
	}
	c.columns = buildColumns(names, c.opts.Page.PrintableWidth(), c.opts.Page.Margin.Left)

	if err := c.drawHeader(); err != nil {
		return err
	}
	for i, rec := range records {
		if c.pendingBreak {
			if err := c.pageBreak(); err != nil {
				return err
			}
		}
		row := c.composeRow(c.cellTexts(rec), c.opts.BodyFont, "left", false)
		row.Record = i

		// 按当前行高预判下一行是否还能放下；当前行无论如何画在本页。
		breakAfter := c.cursorY+row.Height > c.contentBottom()-row.Height
		if err := c.drawRow(row); err != nil {
			return err
		}
		c.rowsDrawn++
		if breakAfter {
			c.pendingBreak = true
		}
	}
	return c.drawFooter()
}

// buildColumns 均分可打印宽度；x 为左边距加上此前各列宽度之和。
func buildColumns(names []string, printable, left float64) []Column {
	cols := make([]Column, len(names))
	width := printable / float64(len(names))
	x := left
	for i, name := range names {
		cols[i] = Column{Name: name, Index: i, X: x, Width: width}
		x += width
	}
	return cols
}

func (c *compositor) cellTexts(rec *record.Record) []string {
	texts := make([]string, len(c.columns))
	for i, col := range c.columns {
		texts[i] = rec.Text(col.Name, c.opts.Placeholder)
	}
	return texts
}

func (c *compositor) headerTexts() []string {
	texts := make([]string, len(c.columns))
	for i, col := range c.columns {
		texts[i] = c.upper.String(col.Name)
	}
	return texts
}

// composeRow 在当前游标处试排一行：行高 = 各单元格文本高度的最大值 + 上下内边距。
func (c *compositor) composeRow(texts []string, font Font, align string, header bool) TableRow {
	pad := c.opts.CellPadding
	row := TableRow{Y: c.cursorY, IsHeader: header, Record: -1}
	maxHeight := 0.0
	cells := make([]TableCell, len(c.columns))
	for i, col := range c.columns {
		inner := col.Width - 2*pad
		if inner <= 0 {
			inner = col.Width
		}
		tb := composeTextBox(c.surface, texts[i], col.X+pad, c.cursorY+pad, inner, font, align)
		if tb.Height > maxHeight {
			maxHeight = tb.Height
		}
		cells[i] = TableCell{Text: tb}
	}
	row.Height = maxHeight + 2*pad
	for i, col := range c.columns {
		cells[i].Border = Rect{
			X:           col.X,
			Y:           c.cursorY,
			Width:       col.Width,
			Height:      row.Height,
			StrokeWidth: tableBorderWidth,
		}
	}
	row.Cells = cells
	return row
}

// drawRow 逐格绘制边框与文本，并把游标推进一个行高。
func (c *compositor) drawRow(row TableRow) error {
	for _, cell := range row.Cells {
		if err := c.surface.DrawRect(cell.Border); err != nil {
			return streamErr("DrawRect", err)
		}
		if err := c.surface.DrawText(cell.Text); err != nil {
			return streamErr("DrawText", err)
		}
	}
	c.curr().Rows = append(c.curr().Rows, row)
	c.cursorY += row.Height
	return nil
}

func (c *compositor) drawHeader() error {
	row := c.composeRow(c.headerTexts(), c.opts.HeaderFont, "center", true)
	return c.drawRow(row)
}

func (c *compositor) drawTitle() error {
	width := c.opts.Page.PrintableWidth()
	content := binding.Interpolate(c.opts.Title, map[string]any{
		"title": c.opts.Title,
		"rows":  c.total,
	})
	tb := composeTextBox(c.surface, content, c.opts.Page.Margin.Left, c.cursorY, width, c.opts.TitleFont, "center")
	if err := c.surface.DrawText(tb); err != nil {
		return streamErr("DrawText", err)
	}
	c.curr().Texts = append(c.curr().Texts, tb)
	c.cursorY += tb.Height + blockSpacing
	return nil
}

// drawFooter 只在最后一页绘制页脚，位置固定在下边距之下 FooterOffset 处。
func (c *compositor) drawFooter() error {
	if strings.TrimSpace(c.opts.Footer) == "" {
		return nil
	}
	page := len(c.pages)
	content := binding.Interpolate(c.opts.Footer, map[string]any{
		"title": c.opts.Title,
		"rows":  c.total,
		"page":  page,
		"pages": page,
	})
	p := c.opts.Page
	y := p.Height - p.Margin.Bottom + c.opts.FooterOffset
	tb := composeTextBox(c.surface, content, p.Margin.Left, y, p.PrintableWidth(), c.opts.FooterFont, "center")
	if err := c.surface.DrawText(tb); err != nil {
		return streamErr("DrawText", err)
	}
	c.curr().Texts = append(c.curr().Texts, tb)
	return nil
}

func (c *compositor) pageBreak() error {
	if err := c.surface.NewPage(); err != nil {
		return streamErr("NewPage", err)
	}
	c.pendingBreak = false
	c.beginPage()
	c.logger.Debug("分页", "page", len(c.pages), "rowsDrawn", c.rowsDrawn)
	if c.opts.RepeatHeader {
		return c.drawHeader()
	}
	return nil
}

func (c *compositor) beginPage() {
	p := c.opts.Page
	c.pages = append(c.pages, Page{
		Index:  len(c.pages),
		Width:  p.Width,
		Height: p.Height,
		Margin: p.Margin,
	})
	c.cursorY = p.Margin.Top
}

func (c *compositor) curr() *Page {
	return &c.pages[len(c.pages)-1]
}

// contentBottom 为页面高度减去下边距。
func (c *compositor) contentBottom() float64 {
	return c.opts.Page.Height - c.opts.Page.Margin.Bottom
}
