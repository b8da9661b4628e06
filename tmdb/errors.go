package tmdb

import "fmt"

// TypeError 表示给字段赋了错误种类的值（例如给 tmdb_id 传 int）。
type TypeError struct {
	Field Field
	Got   any
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("字段 %s 类型错误：期望 string，实际 %T", e.Field, e.Got)
}

// ValueError 表示值的种类正确，但违反了领域约束。
//
// 约束：
// - Field 可以是 Entry 字段，也可以是 resolution/size 这类参数名
// - Reason 是面向人的说明，不用于程序判断
type ValueError struct {
	Field  Field
	Value  string
	Reason string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("字段 %s 的值 %q 无效：%s", e.Field, e.Value, e.Reason)
}

// StateError 表示在不支持该操作的 Entry 上调用了它（例如对电影取季列表）。
type StateError struct {
	Op       string
	Category string
	Reason   string
}

func (e *StateError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s 不可用：%s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s 只支持剧集（tv），当前 category=%q", e.Op, e.Category)
}
