// Package source 把 JSON / CSV 输入转换为报表记录，并支持用 jq 或 JSONPath 从嵌套文档中选取记录。
package source

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/itchyny/gojq"

	"github.com/ByLCY/gridpaper/record"
)

const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// DetectFormat 根据扩展名推断输入格式，无法判断时返回 json。
func DetectFormat(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return FormatCSV
	}
	return FormatJSON
}

// Read 按 format 读取记录。
func Read(r io.Reader, format string) ([]*record.Record, error) {
	switch strings.ToLower(format) {
	case "", FormatJSON:
		return ReadJSON(r)
	case FormatCSV:
		return ReadCSV(r)
	default:
		return nil, fmt.Errorf("不支持的输入格式 %q", format)
	}
}

// ReadJSON 读取对象数组（或单个对象），保留每个对象的键顺序。
func ReadJSON(r io.Reader) ([]*record.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("读取输入失败: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	switch data[0] {
	case '[':
		var records []*record.Record
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("解析 JSON 记录失败: %w", err)
		}
		return records, nil
	case '{':
		rec := record.New()
		if err := json.Unmarshal(data, rec); err != nil {
			return nil, fmt.Errorf("解析 JSON 记录失败: %w", err)
		}
		return []*record.Record{rec}, nil
	default:
		return nil, errors.New("JSON 输入必须是对象或对象数组")
	}
}

// ReadCSV 以首行为列名读取 CSV；某行字段不足时缺失的列不写入记录。
func ReadCSV(r io.Reader) ([]*record.Record, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取 CSV 表头失败: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var records []*record.Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("读取 CSV 失败: %w", err)
		}
		rec := record.New()
		for i, key := range header {
			if i < len(row) {
				rec.Set(key, row[i])
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// Decode 读取任意 JSON 文档，供 Query / Select 使用。
func Decode(r io.Reader) (any, error) {
	var doc any
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("解析 JSON 文档失败: %w", err)
	}
	return doc, nil
}

// Query 对文档执行 jq 过滤，每个输出的对象成为一条记录；输出数组时逐个展开。
// 过滤结果的键按字典序排列。
func Query(doc any, query string) ([]*record.Record, error) {
	parsed, err := gojq.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("无效的 jq 表达式 %q: %w", query, err)
	}
	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, fmt.Errorf("无效的 jq 表达式 %q: %w", query, err)
	}

	var values []any
	iter := code.Run(doc)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			var halt *gojq.HaltError
			if errors.As(err, &halt) && halt.Value() == nil {
				break
			}
			return nil, fmt.Errorf("jq 执行失败: %w", err)
		}
		values = append(values, v)
	}
	return toRecords(values)
}

// Select 用 JSONPath 选取记录，例如 "$.data.items" 或 "$.users[?(@.active)]"。
func Select(doc any, path string) ([]*record.Record, error) {
	path = normalizeJSONPath(path)
	if path == "" {
		return nil, errors.New("JSONPath 不能为空")
	}
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil, fmt.Errorf("JSONPath %q 执行失败: %w", path, err)
	}
	return toRecords([]any{v})
}

func normalizeJSONPath(path string) string {
	trimmed := strings.TrimSpace(path)
	switch {
	case trimmed == "":
		return ""
	case strings.HasPrefix(trimmed, "$"):
		return trimmed
	case strings.HasPrefix(trimmed, "."), strings.HasPrefix(trimmed, "["):
		return "$" + trimmed
	default:
		return "$." + trimmed
	}
}

func toRecords(values []any) ([]*record.Record, error) {
	var out []*record.Record
	var walk func(v any) error
	walk = func(v any) error {
		switch t := v.(type) {
		case nil:
			return nil
		case map[string]any:
			out = append(out, fromMap(t))
			return nil
		case []any:
			for _, item := range t {
				if err := walk(item); err != nil {
					return err
				}
			}
			return nil
		default:
			return fmt.Errorf("选取结果必须是对象或对象数组，得到 %T", v)
		}
	}
	for _, v := range values {
		if err := walk(v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func fromMap(m map[string]any) *record.Record {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rec := record.New()
	for _, k := range keys {
		rec.Set(k, m[k])
	}
	return rec
}
