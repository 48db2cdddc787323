// Package fonts 提供内置字体，canvas 后端无需额外资源即可排版。
package fonts

import (
	"fmt"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	Regular = "regular"
	Bold    = "bold"
)

// Load 返回内置字体的 TTF 数据，name 可写为 "regular"、"bold"，也可带 "embed:" 前缀。
func Load(name string) ([]byte, error) {
	switch strings.ToLower(strings.TrimPrefix(name, "embed:")) {
	case "", Regular, "go-regular":
		return goregular.TTF, nil
	case Bold, "go-bold":
		return gobold.TTF, nil
	default:
		return nil, fmt.Errorf("未知的内置字体 %s", name)
	}
}
