package utils

import (
	"errors"
	"io"
	"net/http"
)

var ErrAbortUnsupported = errors.New("response writer cannot abort the connection")

// StreamWriter 无界分块文本流：不设 Content-Length，每个片段写入后立即 Flush
type StreamWriter struct {
	w       http.ResponseWriter
	chunks  int
	written int64
}

func NewStreamWriter(w http.ResponseWriter) *StreamWriter {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Del("Content-Length")

	return &StreamWriter{w: w}
}

func (s *StreamWriter) Write(chunk string) error {
	if chunk == "" {
		return nil
	}

	n, err := io.WriteString(s.w, chunk)
	s.written += int64(n)
	if err != nil {
		return err
	}
	s.chunks++

	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}

	return nil
}

// Abort 在已经发送部分数据后直接断开连接，不写结束块，
// 客户端会读到截断的分块流而不是正常结束
func (s *StreamWriter) Abort() error {
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}

	hj, ok := s.w.(http.Hijacker)
	if !ok {
		return ErrAbortUnsupported
	}

	conn, _, err := hj.Hijack()
	if err != nil {
		return err
	}
	return conn.Close()
}

func (s *StreamWriter) Chunks() int {
	return s.chunks
}

func (s *StreamWriter) BytesWritten() int64 {
	return s.written
}
