// Package record 定义报表的输入记录：按插入顺序保存的 列名 → 标量 映射。
package record

import (
	"bytes"
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/ByLCY/gridpaper/binding"
)

// DefaultPlaceholder 是字段缺失或为 null 时渲染的文本。
const DefaultPlaceholder = "N/A"

// Record 是一条报表记录。键的顺序即首次写入（或 JSON 对象中出现）的顺序。
type Record struct {
	fields *orderedmap.OrderedMap[string, any]
}

// New 创建空记录。
func New() *Record {
	return &Record{fields: orderedmap.New[string, any]()}
}

// FromPairs 按 key, value, key, value... 的顺序构造记录，便于测试与内嵌数据。
// 奇数个参数时最后一个键的值为 nil。
func FromPairs(kv ...any) *Record {
	r := New()
	for i := 0; i < len(kv); i += 2 {
		key, _ := kv[i].(string)
		var val any
		if i+1 < len(kv) {
			val = kv[i+1]
		}
		r.Set(key, val)
	}
	return r
}

// Set 写入字段；已有的键保持原位置。
func (r *Record) Set(key string, value any) *Record {
	r.ensure()
	r.fields.Set(key, value)
	return r
}

// Get 读取字段，第二个返回值表示键是否存在。
func (r *Record) Get(key string) (any, bool) {
	if r == nil || r.fields == nil {
		return nil, false
	}
	return r.fields.Get(key)
}

// Keys 返回按插入顺序排列的键。
func (r *Record) Keys() []string {
	if r == nil || r.fields == nil {
		return nil
	}
	keys := make([]string, 0, r.fields.Len())
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Len 返回字段数量。
func (r *Record) Len() int {
	if r == nil || r.fields == nil {
		return 0
	}
	return r.fields.Len()
}

// Text 返回单元格文本：存在且非 null 的字段取其字符串形式，否则返回 placeholder。
func (r *Record) Text(key, placeholder string) string {
	val, ok := r.Get(key)
	if !ok || val == nil {
		return placeholder
	}
	return binding.Format(val)
}

// UnmarshalJSON 解码 JSON 对象并保留键顺序。
func (r *Record) UnmarshalJSON(data []byte) error {
	fields := orderedmap.New[string, any]()
	if err := json.Unmarshal(data, fields); err != nil {
		return err
	}
	r.fields = fields
	return nil
}

// MarshalJSON 按键顺序输出 JSON 对象。
func (r *Record) MarshalJSON() ([]byte, error) {
	if r == nil || r.fields == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r.fields); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (r *Record) ensure() {
	if r.fields == nil {
		r.fields = orderedmap.New[string, any]()
	}
}

// Columns 返回报表列名：只取第一条记录的键（按插入顺序），后续记录不做一致性校验。
// 输入为空或首条记录为 nil 时返回空切片。
func Columns(records []*Record) []string {
	if len(records) == 0 || records[0] == nil {
		return []string{}
	}
	keys := records[0].Keys()
	if keys == nil {
		return []string{}
	}
	return keys
}
