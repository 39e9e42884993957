package artifact

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

const (
	// FileName 导出文件名固定
	FileName    = "index.html"
	ContentType = "text/html; charset=utf-8"
)

var ErrEmptyArtifact = errors.New("artifact is empty")

// Artifact 一次成功生成的最终文档，创建后不再修改
type Artifact struct {
	SessionID string    `json:"session_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// New 对原始累计文本做 Finalize 后生成 Artifact
func New(sessionID, raw string) Artifact {
	return Artifact{
		SessionID: sessionID,
		Content:   Finalize(raw),
		CreatedAt: time.Now(),
	}
}

func (a Artifact) Size() int {
	return len(a.Content)
}

// Export 把文档原样写出
func Export(w io.Writer, a Artifact) error {
	if a.Content == "" {
		return ErrEmptyArtifact
	}
	if _, err := io.WriteString(w, a.Content); err != nil {
		return fmt.Errorf("failed to export artifact: %w", err)
	}
	return nil
}

// WriteFile 写入 dir/index.html，返回文件路径
func WriteFile(dir string, a Artifact) (string, error) {
	if a.Content == "" {
		return "", ErrEmptyArtifact
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(a.Content), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
