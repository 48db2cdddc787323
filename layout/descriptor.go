package layout

import (
	"fmt"
	"strings"

	"github.com/ByLCY/gridpaper/dsl"
)

// Descriptor 是报表描述文件解析后的结果。Backend 不参与排版，由调用方选择绘制后端。
type Descriptor struct {
	Name    string
	Options Options
	Backend string
}

// FromDescriptor 以默认版式为基础应用描述文件。
func FromDescriptor(doc *dsl.Document) (Descriptor, error) {
	return ApplyDescriptor(doc, DefaultOptions())
}

// ApplyDescriptor 把描述文件中的设置叠加到 base 上。
func ApplyDescriptor(doc *dsl.Document, base Options) (Descriptor, error) {
	d := Descriptor{Options: base}
	if doc == nil {
		return d, nil
	}
	d.Name = doc.Name

	if cmd := doc.Command("page"); cmd != nil {
		page, err := resolvePage(cmd.Values(), base.Page)
		if err != nil {
			return d, err
		}
		d.Options.Page = page
	}

	var lineHeight *LineHeightSpec
	// 按书写顺序应用，同名配置后者覆盖前者，报错总指向第一处问题
	for _, a := range doc.AssignmentList() {
		key, raw := a.Key, a.Value.Text()
		switch key {
		case "title":
			d.Options.Title = raw
		case "footer":
			d.Options.Footer = raw
		case "placeholder":
			d.Options.Placeholder = raw
		case "backend":
			d.Backend = strings.ToLower(raw)
		case "repeat-header":
			on, err := a.Value.Bool()
			if err != nil {
				return d, fmt.Errorf("repeat-header（第 %d 行）: %w", a.Pos.Line, err)
			}
			d.Options.RepeatHeader = on
		case "padding":
			v, err := parseLengthMM(key, raw, a)
			if err != nil {
				return d, err
			}
			d.Options.CellPadding = v
		case "footer-offset":
			v, err := parseLengthMM(key, raw, a)
			if err != nil {
				return d, err
			}
			d.Options.FooterOffset = v
		case "font-size":
			v, err := parseLengthMM(key, raw, a)
			if err != nil {
				return d, err
			}
			d.Options.BodyFont = NewFont(v, false)
			d.Options.HeaderFont = NewFont(v, true)
		case "title-size":
			v, err := parseLengthMM(key, raw, a)
			if err != nil {
				return d, err
			}
			d.Options.TitleFont = NewFont(v, true)
		case "footer-size":
			v, err := parseLengthMM(key, raw, a)
			if err != nil {
				return d, err
			}
			d.Options.FooterFont = NewFont(v, false)
		case "line-height":
			spec, ok := ParseLineHeight(raw)
			if !ok {
				return d, fmt.Errorf("line-height（第 %d 行）: 无法解析 %q", a.Pos.Line, raw)
			}
			lineHeight = &spec
		default:
			return d, fmt.Errorf("未知配置项 %q（第 %d 行）", key, a.Pos.Line)
		}
	}

	// 行高在字号确定后统一应用
	if lineHeight != nil {
		for _, f := range []*Font{&d.Options.TitleFont, &d.Options.HeaderFont, &d.Options.BodyFont, &d.Options.FooterFont} {
			f.LineHeight = lineHeight.Resolve(f.Size)
		}
	}
	return d, nil
}

func parseLengthMM(key, raw string, a *dsl.Assignment) (float64, error) {
	l, ok := ParseRawLengthStr(raw)
	if !ok || l.Value < 0 {
		return 0, fmt.Errorf("%s（第 %d 行）: 无法解析长度 %q", key, a.Pos.Line, raw)
	}
	return l.ToMM(), nil
}

// resolvePage 解析 `page <size|w h> [portrait|landscape] [margin v1 [v2 [v3 [v4]]]]`。
func resolvePage(args []string, base PageSpec) (PageSpec, error) {
	page := base
	if len(args) == 0 {
		return page, nil
	}

	landscape := false
	for _, a := range args {
		if strings.EqualFold(a, "landscape") {
			landscape = true
		}
	}

	rest := args[1:]
	if w, h, ok := PageSize(args[0], landscape); ok {
		page.Width, page.Height = w, h
	} else if wl, ok := ParseRawLengthStr(args[0]); ok && len(args) > 1 {
		hl, ok := ParseRawLengthStr(args[1])
		if !ok {
			return page, fmt.Errorf("暂不支持的纸张尺寸：%s %s", args[0], args[1])
		}
		page.Width, page.Height = wl.ToMM(), hl.ToMM()
		if landscape && page.Width < page.Height {
			page.Width, page.Height = page.Height, page.Width
		}
		rest = args[2:]
	} else {
		return page, fmt.Errorf("暂不支持的纸张尺寸：%s", args[0])
	}

	if m, ok := resolveMargin(rest); ok {
		page.Margin = m
	}
	return page, nil
}

// resolveMargin 采用类似 CSS 的语义：
// 1 个值四边相同；2 个值为 上下/左右；3 个值为 上/右/下，左=0；4 个及以上取前四个（上右下左）。
func resolveMargin(params []string) (Margin, bool) {
	for i := 0; i < len(params); i++ {
		if params[i] != "margin" {
			continue
		}
		var vals []float64
		for j := i + 1; j < len(params) && len(vals) < 4; j++ {
			l, ok := ParseRawLengthStr(params[j])
			if !ok {
				break
			}
			vals = append(vals, l.ToMM())
		}
		switch len(vals) {
		case 1:
			return UniformMargin(vals[0]), true
		case 2:
			return Margin{Top: vals[0], Right: vals[1], Bottom: vals[0], Left: vals[1]}, true
		case 3:
			return Margin{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: 0}, true
		case 4:
			return Margin{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[3]}, true
		}
	}
	return Margin{}, false
}
