package progress

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"appbuilder-backend/internal/config"
	"appbuilder-backend/pkg/logger"

	"github.com/sirupsen/logrus"
)

const (
	defaultDraftingThreshold = 50
	promptPlaceholder        = "%s"
)

// Orchestrator 一个会话的进度状态机。
//
// 步骤和旁白都与真实生成内容无关，只由长度信号、定时器和 Complete/Fail 驱动。
// 所有定时器都属于本会话；Complete、Fail、Stop 之后任何定时器回调都不会再改动状态。
type Orchestrator struct {
	mu sync.Mutex

	sessionID string
	prompt    string
	cfg       config.ProgressConfig
	sink      Sink
	log       *logrus.Entry

	phase     Phase
	steps     []Step
	messages  []ThinkingMessage
	collapsed bool
	stopped   bool
	started   bool

	narration []*time.Timer
	collapse  *time.Timer
}

// New 创建编排器，初始状态为第一步完成、第二步进行中。Start 之前不会发出任何快照
func New(sessionID, prompt string, cfg config.ProgressConfig, sink Sink) *Orchestrator {
	if cfg.DraftingThreshold <= 0 {
		cfg.DraftingThreshold = defaultDraftingThreshold
	}
	if cfg.Narration == nil {
		cfg.Narration = config.DefaultNarration
	}
	if sink == nil {
		sink = SinkFunc(func(Snapshot) {})
	}

	steps := make([]Step, len(DefaultSteps))
	copy(steps, DefaultSteps)
	steps[0].Status = StepCompleted
	steps[stepDrafting].Status = StepRunning

	return &Orchestrator{
		sessionID: sessionID,
		prompt:    prompt,
		cfg:       cfg,
		sink:      sink,
		log:       logger.WithFields(logrus.Fields{"session_id": sessionID}),
		phase:     PhaseRunning,
		steps:     steps,
	}
}

// Start 发出初始快照并排好旁白定时器，重复调用无效
func (o *Orchestrator) Start() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.started || o.stopped {
		return
	}
	o.started = true

	for i, entry := range o.cfg.Narration {
		text := entry.Text
		if strings.Contains(text, promptPlaceholder) {
			text = strings.Replace(text, promptPlaceholder, o.prompt, 1)
		}
		id := i + 1
		o.narration = append(o.narration, time.AfterFunc(entry.Delay, func() {
			o.narrate(id, text)
		}))
	}

	o.emitLocked()
}

func (o *Orchestrator) narrate(id int, text string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stopped || o.phase != PhaseRunning {
		return
	}

	for i := range o.messages {
		o.messages[i].Status = MessageDone
	}
	o.messages = append(o.messages, ThinkingMessage{ID: id, Text: text, Status: MessageTyping})
	o.emitLocked()
}

// ObserveLength 报告当前累计文本长度。超过阈值时 Drafting 完成、Generating 开始
func (o *Orchestrator) ObserveLength(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stopped || o.phase != PhaseRunning {
		return
	}
	if n <= o.cfg.DraftingThreshold || o.steps[stepDrafting].Status != StepRunning {
		return
	}

	o.advanceLocked(stepDrafting, StepCompleted)
	o.advanceLocked(stepGenerating, StepRunning)
	o.emitLocked()
}

// Complete 流正常结束：取消旁白，全部消息置为 done，全部步骤强制完成，
// CollapseDelay 之后折叠为一行摘要
func (o *Orchestrator) Complete() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stopped || o.phase != PhaseRunning {
		return
	}

	o.cancelNarrationLocked()
	o.phase = PhaseComplete
	for i := range o.messages {
		o.messages[i].Status = MessageDone
	}
	for i := range o.steps {
		o.advanceLocked(i, StepCompleted)
	}

	if o.cfg.CollapseDelay <= 0 {
		o.collapsed = true
		o.emitLocked()
		return
	}

	o.emitLocked()
	o.collapse = time.AfterFunc(o.cfg.CollapseDelay, o.autoCollapse)
}

func (o *Orchestrator) autoCollapse() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stopped || o.phase != PhaseComplete || o.collapsed || o.collapse == nil {
		return
	}
	o.collapse = nil
	o.collapsed = true
	o.emitLocked()
}

// ToggleDetail 完成之后切换详细/摘要视图，返回切换后的折叠状态
func (o *Orchestrator) ToggleDetail() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stopped || o.phase != PhaseComplete {
		return o.collapsed
	}

	// 用户手动切换后不再自动折叠
	if o.collapse != nil {
		o.collapse.Stop()
		o.collapse = nil
	}
	o.collapsed = !o.collapsed
	o.emitLocked()
	return o.collapsed
}

// Fail 流异常结束：取消旁白并追加一条诊断说明，步骤保持原状
func (o *Orchestrator) Fail(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stopped || o.phase != PhaseRunning {
		return
	}

	o.cancelNarrationLocked()
	o.phase = PhaseFailed
	for i := range o.messages {
		o.messages[i].Status = MessageDone
	}

	note := "Generation failed"
	if err != nil {
		note = fmt.Sprintf("Generation failed: %v", err)
	}
	o.messages = append(o.messages, ThinkingMessage{
		ID:         len(o.cfg.Narration) + 1,
		Text:       note,
		Status:     MessageDone,
		Diagnostic: true,
	})
	o.log.WithError(err).Debug("progress failed")
	o.emitLocked()
}

// Stop 放弃会话：取消所有定时器，之后的任何调用和定时器回调都不再改变状态
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stopped {
		return
	}
	o.stopped = true
	o.cancelNarrationLocked()
	if o.collapse != nil {
		o.collapse.Stop()
		o.collapse = nil
	}
	o.log.Debug("progress stopped")
}

// Snapshot 当前状态的拷贝
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Summary 一行摘要，未完成时为空
func (o *Orchestrator) Summary() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.summaryLocked()
}

func (o *Orchestrator) summaryLocked() string {
	if o.phase != PhaseComplete {
		return ""
	}
	return fmt.Sprintf("Build completed successfully • %d steps processed", len(o.steps))
}

// advanceLocked 只允许前进
func (o *Orchestrator) advanceLocked(i int, status StepStatus) {
	if status > o.steps[i].Status {
		o.steps[i].Status = status
	}
}

func (o *Orchestrator) cancelNarrationLocked() {
	for _, t := range o.narration {
		t.Stop()
	}
	o.narration = nil
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	steps := make([]Step, len(o.steps))
	copy(steps, o.steps)
	messages := make([]ThinkingMessage, len(o.messages))
	copy(messages, o.messages)

	return Snapshot{
		SessionID: o.sessionID,
		Phase:     o.phase,
		Steps:     steps,
		Messages:  messages,
		Collapsed: o.collapsed,
		Summary:   o.summaryLocked(),
	}
}

func (o *Orchestrator) emitLocked() {
	o.sink.OnProgress(o.snapshotLocked())
}
