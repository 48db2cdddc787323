package layout

import (
	"encoding/json"
	"io"
	"os"
)

// WriteDebugJSON 将排版结果输出为 JSON 文件，便于调试或可视化。
func WriteDebugJSON(res *Result, path string) error {
	if res == nil {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeDebugJSON(res, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// EncodeDebugJSON 将排版结果以缩进 JSON 写入 w。
func EncodeDebugJSON(res *Result, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(res)
}
