package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ByLCY/gridpaper/renderer"
	"github.com/ByLCY/gridpaper/source"
)

const (
	defaultAddr     = "127.0.0.1:8080"
	maxRequestBytes = 32 << 20
)

func (a *app) newServeCmd() *cobra.Command {
	var (
		addr       string
		descriptor string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务：POST /report 返回 PDF",
		Example: `  gridpaper serve --addr :8080
  curl -s --data @staff.json 'http://localhost:8080/report?title=Staff' > staff.pdf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("addr") && a.cfg.Addr != "" {
				addr = a.cfg.Addr
			}
			base, err := a.baseSettings(descriptor)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), addr, newReportHandler(base), func(bound string) {
				a.ui().Success("正在监听 http://%s", bound)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "监听地址")
	cmd.Flags().StringVar(&descriptor, "descriptor", "", "所有请求共用的报表描述文件")
	return cmd
}

// serve 在 ctx 取消时优雅关闭服务。
func serve(ctx context.Context, addr string, h http.Handler, ready func(addr string)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("监听 %s 失败: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if ready != nil {
		ready(ln.Addr().String())
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func newReportHandler(base reportSettings) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("POST /report", func(w http.ResponseWriter, r *http.Request) {
		handleReport(w, r, base)
	})
	return mux
}

// handleReport 读取请求体中的记录并返回 PDF。
// 查询参数 title、footer、backend、repeat-header 覆盖服务端默认值；
// Content-Type 为 text/csv 时按 CSV 解析，否则按 JSON。
func handleReport(w http.ResponseWriter, r *http.Request, base reportSettings) {
	start := time.Now()
	s := base
	q := r.URL.Query()
	if v := q.Get("title"); v != "" {
		s.opts.Title = v
	}
	if v := q.Get("footer"); v != "" {
		s.opts.Footer = v
	}
	if v := q.Get("backend"); v != "" {
		s.backend = v
	}
	if v := q.Get("repeat-header"); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "repeat-header 必须是布尔值", http.StatusBadRequest)
			return
		}
		s.opts.RepeatHeader = on
	}

	format := source.FormatJSON
	if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil && strings.HasSuffix(mt, "/csv") {
		format = source.FormatCSV
	}
	records, err := source.Read(http.MaxBytesReader(w, r.Body, maxRequestBytes), format)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// 先写入缓冲区，出错时仍可返回错误状态码
	var buf bytes.Buffer
	res, err := generate(&buf, records, s)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, renderer.ErrUnknownBackend) {
			status = http.StatusBadRequest
		}
		slog.Error("生成报表失败", "error", err)
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Report-Pages", strconv.Itoa(len(res.Pages)))
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("写出响应失败", "error", err)
		return
	}
	slog.Info("报表已生成",
		"records", len(records),
		"pages", len(res.Pages),
		"backend", backendName(s.backend),
		"elapsed", time.Since(start))
}

func backendName(b string) string {
	if b == "" {
		return renderer.DefaultBackend
	}
	return b
}
