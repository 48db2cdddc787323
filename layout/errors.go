package layout

import (
	"errors"
	"fmt"
)

// 排版阶段可观察到的错误。几何计算本身不会失败，只有页面参数非法或
// 绘制后端（输出流）出错时才会返回错误。
var (
	ErrClosed         = errors.New("layout: surface 已关闭")
	ErrInvalidOptions = errors.New("layout: 页面参数无效")
)

// StreamError 表示绘制后端在某个操作上失败，生成过程随之终止，不保证输出的完整性。
type StreamError struct {
	Op  string // 操作名，例如 "DrawRect"、"NewPage"、"Close"
	Err error
}

func (e *StreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("layout.%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("layout.%s: 未知错误", e.Op)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// IsStreamError 判断 err 是否源自绘制后端。
func IsStreamError(err error) bool {
	var e *StreamError
	return errors.As(err, &e)
}

func streamErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StreamError
	if errors.As(err, &se) {
		return err
	}
	return &StreamError{Op: op, Err: err}
}
