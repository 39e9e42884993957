package progress

import "fmt"

// StepStatus 步骤状态，只能按 pending < running < completed 单调前进
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepCompleted
)

func (s StepStatus) String() string {
	switch s {
	case StepPending:
		return "pending"
	case StepRunning:
		return "running"
	case StepCompleted:
		return "completed"
	default:
		return fmt.Sprintf("StepStatus(%d)", int(s))
	}
}

type Step struct {
	ID     string     `json:"id"`
	Label  string     `json:"label"`
	Status StepStatus `json:"status"`
}

type MessageStatus string

const (
	MessageTyping MessageStatus = "typing"
	MessageDone   MessageStatus = "done"
)

// ThinkingMessage 一条旁白
type ThinkingMessage struct {
	ID     int           `json:"id"`
	Text   string        `json:"text"`
	Status MessageStatus `json:"status"`
	// Diagnostic 失败时追加的诊断说明
	Diagnostic bool `json:"diagnostic,omitempty"`
}

type Phase string

const (
	PhaseRunning  Phase = "running"
	PhaseComplete Phase = "complete"
	PhaseFailed   Phase = "failed"
)

// Snapshot 某次状态变更后的完整拷贝
type Snapshot struct {
	SessionID string            `json:"session_id"`
	Phase     Phase             `json:"phase"`
	Steps     []Step            `json:"steps"`
	Messages  []ThinkingMessage `json:"messages"`
	Collapsed bool              `json:"collapsed"`
	Summary   string            `json:"summary,omitempty"`
}

// Sink 订阅进度变化。OnProgress 在 Orchestrator 持锁时同步调用，
// 不能回调 Orchestrator，也不应阻塞
type Sink interface {
	OnProgress(Snapshot)
}

// SinkFunc 函数适配器
type SinkFunc func(Snapshot)

func (f SinkFunc) OnProgress(s Snapshot) { f(s) }

// DefaultSteps 步骤序列
var DefaultSteps = []Step{
	{ID: "analyze", Label: "Analyzing Requirements"},
	{ID: "draft", Label: "Drafting Architecture"},
	{ID: "generate", Label: "Generating Frontend"},
	{ID: "finalize", Label: "Finalizing Build"},
}

const (
	stepDrafting   = 1
	stepGenerating = 2
)
