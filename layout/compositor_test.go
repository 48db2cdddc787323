package layout

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/ByLCY/gridpaper/record"
)

// testOptions: 200x227 的页面，10mm 边距，1mm 内边距；正文行高 3mm，标题行高 5mm。
// 于是每行高 5mm，第一页表头之后游标位于 23mm，分页阈值为 cursor > 207mm。
func testOptions() Options {
	o := DefaultOptions()
	o.Page = PageSpec{Width: 200, Height: 227, Margin: UniformMargin(10)}
	o.CellPadding = 1
	o.TitleFont = Font{Bold: true, Size: 5, LineHeight: 5}
	o.HeaderFont = Font{Bold: true, Size: 3, LineHeight: 3}
	o.BodyFont = Font{Size: 3, LineHeight: 3}
	o.FooterFont = Font{Size: 2, LineHeight: 2}
	o.FooterOffset = 4
	return o
}

func numberedRecords(n int) []*record.Record {
	out := make([]*record.Record, n)
	for i := range out {
		out[i] = record.FromPairs("id", i+1, "name", fmt.Sprintf("user-%d", i+1))
	}
	return out
}

func rowsPerPage(res *Result) []int {
	out := make([]int, len(res.Pages))
	for i, p := range res.Pages {
		for _, row := range p.Rows {
			if !row.IsHeader {
				out[i]++
			}
		}
	}
	return out
}

func TestComposeStaffReport(t *testing.T) {
	records := []*record.Record{
		record.FromPairs("name", "Alice", "age", 30),
		record.FromPairs("name", "Bob"),
	}
	opts := testOptions()
	opts.Title = "Staff"

	s := &recordingSurface{}
	res, err := Compose(records, s, opts)
	if err != nil {
		t.Fatalf("Compose 失败: %v", err)
	}
	want := []string{"Staff", "NAME", "AGE", "Alice", "30", "Bob", "N/A"}
	if got := s.textContents(); !reflect.DeepEqual(got, want) {
		t.Fatalf("绘制文本不一致:\n got=%q\nwant=%q", got, want)
	}
	if len(s.rects) != 6 {
		t.Fatalf("期望 6 个单元格边框，实际 %d", len(s.rects))
	}
	if s.closes != 1 || s.newPages != 0 {
		t.Fatalf("closes=%d newPages=%d", s.closes, s.newPages)
	}
	if res.DataRows() != len(records) {
		t.Fatalf("DataRows=%d", res.DataRows())
	}

	header := res.Pages[0].Rows[0]
	if !header.IsHeader || header.Record != -1 {
		t.Fatalf("第一行应为表头: %+v", header)
	}
	for _, cell := range header.Cells {
		if !cell.Text.Font.Bold || cell.Text.Align != "center" {
			t.Fatalf("表头应加粗居中: %+v", cell.Text)
		}
	}
	if body := res.Pages[0].Rows[1].Cells[0].Text; body.Font.Bold || body.Align != "left" {
		t.Fatalf("正文应左对齐且不加粗: %+v", body)
	}
}

func TestComposeHeaderCellPerColumn(t *testing.T) {
	records := []*record.Record{record.FromPairs("a", 1, "b", 2, "c", 3, "d", 4)}
	s := &recordingSurface{}
	res, err := Compose(records, s, testOptions())
	if err != nil {
		t.Fatalf("Compose 失败: %v", err)
	}
	if n := len(res.Pages[0].Rows[0].Cells); n != 4 {
		t.Fatalf("表头单元格数=%d", n)
	}
	if got := s.textContents()[1:5]; !reflect.DeepEqual(got, []string{"A", "B", "C", "D"}) {
		t.Fatalf("表头文本=%q", got)
	}
}

func TestComposeHeaderUppercaseUnicode(t *testing.T) {
	records := []*record.Record{record.FromPairs("straße", "x", "größe", "y")}
	s := &recordingSurface{}
	if _, err := Compose(records, s, testOptions()); err != nil {
		t.Fatalf("Compose 失败: %v", err)
	}
	if got := s.textContents()[1:3]; !reflect.DeepEqual(got, []string{"STRASSE", "GRÖSSE"}) {
		t.Fatalf("表头大写=%q", got)
	}
}

func TestComposePagination(t *testing.T) {
	records := numberedRecords(200)
	s := &recordingSurface{}
	res, err := Compose(records, s, testOptions())
	if err != nil {
		t.Fatalf("Compose 失败: %v", err)
	}
	if got, want := rowsPerPage(res), []int{38, 41, 41, 41, 39}; !reflect.DeepEqual(got, want) {
		t.Fatalf("每页行数=%v want=%v", got, want)
	}
	if s.newPages != 4 || s.closes != 1 {
		t.Fatalf("newPages=%d closes=%d", s.newPages, s.closes)
	}
	if res.DataRows() != len(records) {
		t.Fatalf("数据行丢失: %d", res.DataRows())
	}

	// 后续页默认不重复表头，第一行紧贴上边距
	for _, p := range res.Pages[1:] {
		if p.Rows[0].IsHeader || !eq(p.Rows[0].Y, 10) {
			t.Fatalf("第 %d 页首行异常: %+v", p.Index, p.Rows[0])
		}
	}

	// 记录按输入顺序出现且不重复
	next := 0
	for _, p := range res.Pages {
		for _, row := range p.Rows {
			if row.IsHeader {
				continue
			}
			if row.Record != next {
				t.Fatalf("记录顺序错误: got=%d want=%d", row.Record, next)
			}
			next++
		}
	}
}

func TestComposeNoTrailingEmptyPage(t *testing.T) {
	// 第二页第 41 行触发预判，但后面没有数据，不应再开新页
	records := numberedRecords(38 + 41)
	s := &recordingSurface{}
	res, err := Compose(records, s, testOptions())
	if err != nil {
		t.Fatalf("Compose 失败: %v", err)
	}
	if len(res.Pages) != 2 || s.newPages != 1 {
		t.Fatalf("pages=%d newPages=%d", len(res.Pages), s.newPages)
	}
}

func TestComposeRepeatHeader(t *testing.T) {
	opts := testOptions()
	opts.RepeatHeader = true
	res, err := Compose(numberedRecords(120), &recordingSurface{}, opts)
	if err != nil {
		t.Fatalf("Compose 失败: %v", err)
	}
	for _, p := range res.Pages {
		if !p.Rows[0].IsHeader {
			t.Fatalf("第 %d 页缺少表头", p.Index)
		}
	}
	if got, want := rowsPerPage(res), []int{38, 40, 40, 2}; !reflect.DeepEqual(got, want) {
		t.Fatalf("每页行数=%v want=%v", got, want)
	}
}

func TestComposeRowsStayInsidePage(t *testing.T) {
	opts := testOptions()
	res, err := Compose(numberedRecords(500), &recordingSurface{}, opts)
	if err != nil {
		t.Fatalf("Compose 失败: %v", err)
	}
	limit := opts.Page.Height - opts.Page.Margin.Bottom
	for _, p := range res.Pages {
		for _, row := range p.Rows {
			if row.Y+row.Height > limit+1e-9 {
				t.Fatalf("第 %d 页的行越过下边距: y=%g h=%g", p.Index, row.Y, row.Height)
			}
		}
	}
}

func TestComposeColumnGeometry(t *testing.T) {
	opts := testOptions()
	records := []*record.Record{record.FromPairs("a", 1, "b", 2, "c", 3)}
	res, err := Compose(records, &recordingSurface{}, opts)
	if err != nil {
		t.Fatalf("Compose 失败: %v", err)
	}
	sum := 0.0
	x := opts.Page.Margin.Left
	for _, col := range res.Columns {
		if !eq(col.X, x) {
			t.Fatalf("列 %s 的 x=%g want=%g", col.Name, col.X, x)
		}
		sum += col.Width
		x += col.Width
	}
	if !eq(sum, opts.Page.PrintableWidth()) {
		t.Fatalf("列宽之和=%g 可打印宽度=%g", sum, opts.Page.PrintableWidth())
	}
}

func TestComposeColumnsFromFirstRecord(t *testing.T) {
	records := []*record.Record{
		record.FromPairs("name", "Alice"),
		record.FromPairs("name", "Bob", "extra", "ignored"),
	}
	opts := testOptions()
	opts.Placeholder = "-"
	s := &recordingSurface{}
	res, err := Compose(records, s, opts)
	if err != nil {
		t.Fatalf("Compose 失败: %v", err)
	}
	if len(res.Columns) != 1 {
		t.Fatalf("列应只取自第一条记录: %+v", res.Columns)
	}
	for _, txt := range s.textContents() {
		if txt == "ignored" {
			t.Fatalf("不在列中的字段不应绘制")
		}
	}
}

func TestComposeMultiLineRowHeight(t *testing.T) {
	records := []*record.Record{record.FromPairs("a", "one", "b", "two\nlines")}
	res, err := Compose(records, &recordingSurface{}, testOptions())
	if err != nil {
		t.Fatalf("Compose 失败: %v", err)
	}
	row := res.Pages[0].Rows[1]
	if !eq(row.Height, 3+3+2) {
		t.Fatalf("行高应取最高单元格: %g", row.Height)
	}
	for _, cell := range row.Cells {
		if !eq(cell.Border.Height, row.Height) {
			t.Fatalf("同一行单元格边框应等高: %+v", cell.Border)
		}
	}
}

func TestComposeEmptyInput(t *testing.T) {
	for name, records := range map[string][]*record.Record{
		"nil":        nil,
		"empty":      {},
		"no columns": {record.New()},
	} {
		t.Run(name, func(t *testing.T) {
			s := &recordingSurface{}
			res, err := Compose(records, s, testOptions())
			if err != nil {
				t.Fatalf("Compose 失败: %v", err)
			}
			if got := s.textContents(); !reflect.DeepEqual(got, []string{"Report"}) {
				t.Fatalf("只应绘制默认标题: %q", got)
			}
			if len(s.rects) != 0 || s.closes != 1 || len(res.Pages) != 1 {
				t.Fatalf("rects=%d closes=%d pages=%d", len(s.rects), s.closes, len(res.Pages))
			}
		})
	}
}

func TestComposeFooterOnLastPageOnly(t *testing.T) {
	opts := testOptions()
	opts.Footer = "Page ${page} of ${pages}"
	s := &recordingSurface{}
	res, err := Compose(numberedRecords(100), s, opts)
	if err != nil {
		t.Fatalf("Compose 失败: %v", err)
	}
	var footers []TextBox
	for _, tb := range s.texts {
		if strings.HasPrefix(tb.Content, "Page ") {
			footers = append(footers, tb)
		}
	}
	if len(footers) != 1 || footers[0].Content != "Page 3 of 3" {
		t.Fatalf("页脚应只出现在末页: %+v", footers)
	}
	if !eq(footers[0].Y, 227-10+4) {
		t.Fatalf("页脚位置 y=%g", footers[0].Y)
	}
	last := res.Pages[len(res.Pages)-1]
	if len(last.Texts) != 1 || last.Texts[0].Content != "Page 3 of 3" {
		t.Fatalf("末页应只记录页脚: %+v", last.Texts)
	}
}

func TestComposeTitleInterpolation(t *testing.T) {
	opts := testOptions()
	opts.Title = "Staff (${rows})"
	s := &recordingSurface{}
	if _, err := Compose(numberedRecords(3), s, opts); err != nil {
		t.Fatalf("Compose 失败: %v", err)
	}
	if s.texts[0].Content != "Staff (3)" || s.texts[0].Align != "center" {
		t.Fatalf("标题=%+v", s.texts[0])
	}
}

func TestComposeStreamError(t *testing.T) {
	for _, op := range []string{"DrawRect", "DrawText", "NewPage"} {
		t.Run(op, func(t *testing.T) {
			s := &recordingSurface{failOp: op, failAt: 3}
			res, err := Compose(numberedRecords(200), s, testOptions())
			if err == nil || res != nil {
				t.Fatalf("期望失败，res=%v err=%v", res, err)
			}
			var se *StreamError
			if !errors.As(err, &se) || se.Op != op {
				t.Fatalf("期望 %s 的 StreamError，实际 %v", op, err)
			}
			if !errors.Is(err, errBrokenPipe) {
				t.Fatalf("应保留底层错误: %v", err)
			}
			if s.closes != 1 {
				t.Fatalf("失败后应关闭一次，实际 %d", s.closes)
			}
		})
	}
}

func TestComposeCloseError(t *testing.T) {
	s := &recordingSurface{failOp: "Close", failAt: 1}
	_, err := Compose(numberedRecords(2), s, testOptions())
	if !IsStreamError(err) || !errors.Is(err, errBrokenPipe) {
		t.Fatalf("期望 Close 的 StreamError: %v", err)
	}
	if s.closes != 1 {
		t.Fatalf("closes=%d", s.closes)
	}
}

func TestComposeInvalidOptions(t *testing.T) {
	opts := testOptions()
	opts.Page.Margin = UniformMargin(150)
	s := &recordingSurface{}
	if _, err := Compose(numberedRecords(1), s, opts); !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("期望 ErrInvalidOptions: %v", err)
	}
	if s.closes != 1 || len(s.texts) != 0 {
		t.Fatalf("参数非法时不应绘制: closes=%d texts=%d", s.closes, len(s.texts))
	}
	if _, err := Compose(nil, nil, opts); err == nil {
		t.Fatalf("缺少 surface 应报错")
	}
}

// wrapTypesetter 按每字符 1mm 折行，用于验证宽度对测量的影响。
type wrapTypesetter struct{}

func (wrapTypesetter) LayoutLines(content string, width float64, font Font) []TextLine {
	per := int(width)
	if per < 1 {
		per = 1
	}
	var lines []TextLine
	for len(content) > per {
		lines = append(lines, TextLine{Content: content[:per], Height: font.Size})
		content = content[per:]
	}
	return append(lines, TextLine{Content: content, Height: font.Size})
}

func TestMeasureText(t *testing.T) {
	font := Font{Size: 3, LineHeight: 4}
	ts := wrapTypesetter{}
	content := strings.Repeat("x", 40)

	a := MeasureText(ts, content, 10, font)
	if b := MeasureText(ts, content, 10, font); a != b {
		t.Fatalf("测量应幂等: %g != %g", a, b)
	}
	// 4 行：3 + 3×(1+3)
	if !eq(a, 15) {
		t.Fatalf("高度=%g", a)
	}
	if wide := MeasureText(ts, content, 20, font); wide > a {
		t.Fatalf("更宽的列不应更高: %g > %g", wide, a)
	}
	if empty := MeasureText(ts, "", 10, font); !eq(empty, 3) {
		t.Fatalf("空文本至少一行: %g", empty)
	}
	if nilTS := MeasureText(nil, "a\nb", 10, font); !eq(nilTS, 7) {
		t.Fatalf("无排版后端时按换行拆分: %g", nilTS)
	}
}

func TestMeasureTextGrowsWithContent(t *testing.T) {
	font := Font{Size: 3, LineHeight: 4}
	prev := 0.0
	for n := 0; n <= 60; n++ {
		h := MeasureText(wrapTypesetter{}, strings.Repeat("x", n), 10, font)
		if h < prev {
			t.Fatalf("n=%d: 高度从 %g 降到 %g", n, prev, h)
		}
		prev = h
	}
	// 60 个字符按 10mm 折为 6 行：3 + 5×(1+3)
	if !eq(prev, 23) {
		t.Fatalf("最终高度=%g", prev)
	}
}
