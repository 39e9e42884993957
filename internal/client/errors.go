package client

import (
	"errors"
	"fmt"
)

// ErrTruncated 流在正常结束之前中断（连接断开、读失败）
var ErrTruncated = errors.New("stream ended before completion")

// StatusError 服务端在打开流之前返回的非 2xx 响应
type StatusError struct {
	StatusCode int
	Message    string
	Details    string
}

func (e *StatusError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("HTTP error! status: %d: %s (%s)", e.StatusCode, e.Message, e.Details)
	}
	if e.Message != "" {
		return fmt.Sprintf("HTTP error! status: %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
}
