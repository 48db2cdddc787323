package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ByLCY/gridpaper/layout"
	"github.com/ByLCY/gridpaper/record"
	"github.com/ByLCY/gridpaper/source"
)

type renderFlags struct {
	in           string
	out          string
	format       string
	descriptor   string
	title        string
	footer       string
	placeholder  string
	backend      string
	jq           string
	jsonPath     string
	repeatHeader bool
	debugJSON    string
}

var errTerminalOutput = errors.New("拒绝把 PDF 写到终端，请使用 --out 或重定向标准输出")

func (a *app) newRenderCmd() *cobra.Command {
	var f renderFlags
	cmd := &cobra.Command{
		Use:   "render",
		Short: "把记录文件排版为 PDF",
		Example: `  gridpaper render --in staff.json --out staff.pdf --title Staff
  cat users.json | gridpaper render --jq '.data.users[]' > users.pdf
  gridpaper render --in staff.csv --descriptor staff.gp --backend fpdf --out staff.pdf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runRender(cmd, f)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.in, "in", "-", "记录文件（JSON 或 CSV），- 表示标准输入")
	fs.StringVar(&f.out, "out", "-", "PDF 输出路径，- 表示标准输出")
	fs.StringVar(&f.format, "format", "", "输入格式：json|csv（默认按扩展名推断）")
	fs.StringVar(&f.descriptor, "descriptor", "", "报表描述文件")
	fs.StringVar(&f.title, "title", "", "报表标题（默认 Report）")
	fs.StringVar(&f.footer, "footer", "", "末页页脚，可使用 ${page} ${pages} ${rows}")
	fs.StringVar(&f.placeholder, "placeholder", "", "缺失字段的占位文本（默认 N/A）")
	fs.StringVar(&f.backend, "backend", "", "绘制后端：canvas|fpdf")
	fs.StringVar(&f.jq, "jq", "", "用 jq 表达式从输入文档中选取记录")
	fs.StringVar(&f.jsonPath, "jsonpath", "", "用 JSONPath 从输入文档中选取记录")
	fs.BoolVar(&f.repeatHeader, "repeat-header", false, "在每个新页顶部重复表头")
	fs.StringVar(&f.debugJSON, "debug-json", "", "把排版结果写入 JSON 文件")
	flagAlias(fs, "in", "input")
	flagAlias(fs, "out", "output")
	cmd.MarkFlagsMutuallyExclusive("jq", "jsonpath")
	return cmd
}

func (a *app) runRender(cmd *cobra.Command, f renderFlags) error {
	settings, err := a.baseSettings(f.descriptor)
	if err != nil {
		return err
	}
	fs := cmd.Flags()
	if fs.Changed("title") {
		settings.opts.Title = f.title
	}
	if fs.Changed("footer") {
		settings.opts.Footer = f.footer
	}
	if fs.Changed("placeholder") {
		settings.opts.Placeholder = f.placeholder
	}
	if fs.Changed("backend") {
		settings.backend = f.backend
	}
	if fs.Changed("repeat-header") {
		settings.opts.RepeatHeader = f.repeatHeader
	}

	records, err := a.loadRecords(f)
	if err != nil {
		return err
	}
	slog.Debug("已读取记录", "records", len(records), "columns", record.Columns(records))

	toStdout := f.out == "" || f.out == "-"
	if toStdout && a.isTerminal(a.stdout) {
		return errTerminalOutput
	}

	var res *layout.Result
	if toStdout {
		res, err = generate(a.stdout, records, settings)
	} else {
		res, err = writeFile(f.out, records, settings)
	}
	if err != nil {
		return err
	}

	if f.debugJSON != "" {
		if err := writeDebug(res, f.debugJSON); err != nil {
			return err
		}
	}
	if !toStdout {
		a.ui().Success("已生成 PDF：%s（%d 页，%d 行）", f.out, len(res.Pages), res.DataRows())
	}
	return nil
}

func (a *app) loadRecords(f renderFlags) ([]*record.Record, error) {
	var r io.Reader = a.stdin
	if f.in != "" && f.in != "-" {
		file, err := os.Open(f.in)
		if err != nil {
			return nil, fmt.Errorf("无法打开输入文件 %s: %w", f.in, err)
		}
		defer file.Close()
		r = file
	}

	if f.jq == "" && f.jsonPath == "" {
		format := f.format
		if format == "" {
			format = source.DetectFormat(f.in)
		}
		return source.Read(r, format)
	}

	doc, err := source.Decode(r)
	if err != nil {
		return nil, err
	}
	if f.jq != "" {
		return source.Query(doc, f.jq)
	}
	return source.Select(doc, f.jsonPath)
}

// writeFile 生成到目标路径；失败时删除不完整的文件。
func writeFile(path string, records []*record.Record, s reportSettings) (*layout.Result, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("创建 PDF 文件失败: %w", err)
	}
	res, err := generate(file, records, s)
	if cerr := file.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("写入 PDF 文件失败: %w", cerr)
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	return res, nil
}

func writeDebug(result *layout.Result, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(result, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
