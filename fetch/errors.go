package fetch

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// NotFoundError 表示站点明确返回了 404（资源不存在，例如无效页面或图片路径）。
// 与 TransportError 区分开，调用方可以把“不存在”与“坏了”分开处理。
type NotFoundError struct {
	URL string
}

func (e *NotFoundError) Error() string {
	if e == nil || strings.TrimSpace(e.URL) == "" {
		return "资源不存在"
	}
	return fmt.Sprintf("资源不存在：%s", e.URL)
}

// TransportError 表示请求失败或站点返回了 404 以外的非成功状态码。
//
// 约束：
// - StatusCode==0 表示请求没有拿到响应（连接失败、超时、ctx 取消等），此时 Err 非空
// - 核心层不重试，直接把该错误交给调用方
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e == nil {
		return "请求失败"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("请求 %s 失败：HTTP %d", e.URL, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("请求 %s 失败：%v", e.URL, e.Err)
	}
	return fmt.Sprintf("请求 %s 失败", e.URL)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsNotFound 判断 err 链上是否存在 NotFoundError。
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// IsTransport 判断 err 链上是否存在 TransportError。
func IsTransport(err error) bool {
	var e *TransportError
	return errors.As(err, &e)
}
