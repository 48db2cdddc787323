// Package renderer 按名称选择 layout.Surface 的绘制后端。
package renderer

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ByLCY/gridpaper/layout"
	canvasrenderer "github.com/ByLCY/gridpaper/renderer/canvas"
	fpdfrenderer "github.com/ByLCY/gridpaper/renderer/fpdf"
)

// DefaultBackend 在未指定后端时使用。
const DefaultBackend = "canvas"

// ErrUnknownBackend 表示请求了未注册的后端名称。
var ErrUnknownBackend = errors.New("未知的绘制后端")

type openFunc func(w io.Writer, page layout.PageSpec, meta layout.DocumentMeta) (layout.Surface, error)

var backends = map[string]openFunc{
	"canvas": func(w io.Writer, page layout.PageSpec, meta layout.DocumentMeta) (layout.Surface, error) {
		return canvasrenderer.New(w, page, meta)
	},
	"fpdf": func(w io.Writer, page layout.PageSpec, meta layout.DocumentMeta) (layout.Surface, error) {
		return fpdfrenderer.New(w, page, meta)
	},
}

// Open 创建名为 backend 的绘制后端，第一页已经就绪。
func Open(backend string, w io.Writer, page layout.PageSpec, meta layout.DocumentMeta) (layout.Surface, error) {
	name := strings.ToLower(strings.TrimSpace(backend))
	if name == "" {
		name = DefaultBackend
	}
	open, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("%w %q（可选：%s）", ErrUnknownBackend, backend, strings.Join(Backends(), ", "))
	}
	return open(w, page, meta)
}

// Backends 返回所有可用后端的名称。
func Backends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
