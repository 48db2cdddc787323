package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/ByLCY/gridpaper/dsl"
	"github.com/ByLCY/gridpaper/internal/config"
	"github.com/ByLCY/gridpaper/internal/logging"
	"github.com/ByLCY/gridpaper/internal/ui"
	"github.com/ByLCY/gridpaper/layout"
	"github.com/ByLCY/gridpaper/record"
	"github.com/ByLCY/gridpaper/renderer"
)

const (
	exitOK       = 0
	exitError    = 1
	exitCanceled = 130
)

// app 持有 CLI 的输入输出与已加载的配置，便于测试替换。
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// isTerminal 判断写出目标是否为终端
	isTerminal func(w io.Writer) bool

	cfg *config.Config
}

func newApp() *app {
	return &app{
		stdin:      os.Stdin,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		isTerminal: writerIsTerminal,
		cfg:        &config.Config{},
	}
}

func writerIsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (a *app) execute(ctx context.Context, args []string) error {
	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		a.ui().Error("%v", err)
		return err
	}
	return nil
}

func (a *app) ui() *ui.UI {
	return ui.New(a.stderr, ui.ColorAuto)
}

func (a *app) newRootCmd() *cobra.Command {
	var (
		debugMode  bool
		logFormat  string
		configPath string
	)

	root := &cobra.Command{
		Use:           "gridpaper",
		Short:         "把记录排版成表格 PDF",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return fmt.Errorf("加载配置失败: %w", err)
			}
			a.cfg = cfg

			format := logFormat
			if !cmd.Flags().Changed("log-format") && cfg.LogFormat != "" {
				format = cfg.LogFormat
			}
			return logging.SetupFormat(format, debugMode, a.stderr)
		},
	}

	root.PersistentFlags().BoolVar(&debugMode, "debug", false, "输出调试日志（分页等）")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "日志格式：text|json")
	root.PersistentFlags().StringVar(&configPath, "config", "", "配置文件路径（默认 ~/.config/gridpaper/config.yaml）")

	root.AddCommand(a.newRenderCmd(), a.newServeCmd())
	return root
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// reportSettings 是一次生成所需的版式与后端选择。
type reportSettings struct {
	opts    layout.Options
	backend string
}

// baseSettings 合并配置文件与描述文件：描述文件覆盖配置文件，两者都覆盖内置默认值。
// descriptor 为空时使用配置文件中的默认描述文件。
func (a *app) baseSettings(descriptor string) (reportSettings, error) {
	s := reportSettings{opts: layout.DefaultOptions(), backend: a.cfg.Backend}
	if a.cfg.Placeholder != "" {
		s.opts.Placeholder = a.cfg.Placeholder
	}

	path := descriptor
	if path == "" {
		path = a.cfg.Descriptor
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return s, fmt.Errorf("无法打开描述文件 %s: %w", path, err)
		}
		defer f.Close()

		doc, err := dsl.Parse(f)
		if err != nil {
			return s, fmt.Errorf("解析描述文件失败: %w", err)
		}
		d, err := layout.ApplyDescriptor(doc, s.opts)
		if err != nil {
			return s, fmt.Errorf("描述文件 %s: %w", path, err)
		}
		s.opts = d.Options
		if d.Backend != "" {
			s.backend = d.Backend
		}
	}
	s.opts.Logger = slog.Default()
	return s, nil
}

// generate 打开绘制后端并把记录排版写入 w。
func generate(w io.Writer, records []*record.Record, s reportSettings) (*layout.Result, error) {
	surface, err := renderer.Open(s.backend, w, s.opts.Page, layout.DocumentMeta{
		Title:   s.opts.Title,
		Creator: "gridpaper",
	})
	if err != nil {
		return nil, err
	}
	res, err := layout.Compose(records, surface, s.opts)
	if err != nil {
		return nil, fmt.Errorf("生成报表失败: %w", err)
	}
	return res, nil
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitCanceled
	default:
		return exitError
	}
}

// flagAlias 注册一个隐藏的别名 flag，与原 flag 共享取值。
func flagAlias(fs *pflag.FlagSet, name, alias string) {
	f := fs.Lookup(name)
	if f == nil {
		return
	}
	fs.AddFlag(&pflag.Flag{
		Name:        alias,
		Usage:       f.Usage,
		Value:       f.Value,
		DefValue:    f.DefValue,
		NoOptDefVal: f.NoOptDefVal,
		Hidden:      true,
	})
}
