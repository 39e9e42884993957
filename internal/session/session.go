package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"appbuilder-backend/internal/artifact"
	"appbuilder-backend/internal/progress"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusStreaming Status = "streaming"
	StatusComplete  Status = "complete"
	StatusFailed    Status = "failed"
)

// GenerationSession 一次提交从开始到完成或失败的全部状态。
// 累计文本只追加；失败时保留已收到的部分文本，但不会生成 Artifact
type GenerationSession struct {
	ID        string
	Prompt    string
	StartedAt time.Time

	mu        sync.Mutex
	status    Status
	text      strings.Builder
	chunks    int
	artifact  *artifact.Artifact
	err       error
	abandoned bool

	cancel       context.CancelFunc
	orchestrator *progress.Orchestrator
	done         chan struct{}
}

func (s *GenerationSession) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Text 当前累计的原始文本
func (s *GenerationSession) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text.String()
}

func (s *GenerationSession) Chunks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunks
}

// Artifact 只有 complete 状态才有
func (s *GenerationSession) Artifact() (artifact.Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.artifact == nil {
		return artifact.Artifact{}, false
	}
	return *s.artifact, true
}

func (s *GenerationSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Progress 当前进度快照
func (s *GenerationSession) Progress() progress.Snapshot {
	return s.orchestrator.Snapshot()
}

// ToggleDetail 完成后切换详细/摘要视图
func (s *GenerationSession) ToggleDetail() bool {
	return s.orchestrator.ToggleDetail()
}

// Done 会话进入终态（或被放弃）后关闭
func (s *GenerationSession) Done() <-chan struct{} {
	return s.done
}

// Wait 阻塞到会话结束，返回会话的错误
func (s *GenerationSession) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// abandon 标记放弃并释放连接和定时器，之后的回调都会被丢弃
func (s *GenerationSession) abandon() {
	s.mu.Lock()
	s.abandoned = true
	s.mu.Unlock()

	s.cancel()
	s.orchestrator.Stop()
}
