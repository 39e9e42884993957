package ui

import (
	"fmt"
	"io"
	"sync"

	"appbuilder-backend/internal/artifact"
	"appbuilder-backend/internal/progress"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	cyan   = color.New(color.FgCyan)
	faint  = color.New(color.Faint)
	bold   = color.New(color.FgGreen, color.Bold)
	yellow = color.New(color.FgYellow)
)

type Options struct {
	// ShowCode 把生成的原始文本实时写到 Code
	ShowCode bool
	Code     io.Writer
	// Spinner 只在交互终端里打开
	Spinner bool
}

// TerminalSink 把会话事件渲染成终端输出：步骤变化、旁白、最终结果。
// 只打印与上一次快照的差异
type TerminalSink struct {
	mu   sync.Mutex
	out  io.Writer
	opts Options
	spin *Spinner

	sessionID   string
	steps       map[string]progress.StepStatus
	seenMessage int
	summarized  bool
	bytes       int
}

func NewTerminalSink(out io.Writer, opts Options) *TerminalSink {
	if opts.Code == nil {
		opts.Code = out
	}
	return &TerminalSink{
		out:   out,
		opts:  opts,
		spin:  NewSpinner(out, "Starting build...", opts.Spinner),
		steps: make(map[string]progress.StepStatus),
	}
}

func (t *TerminalSink) OnProgress(snap progress.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if snap.SessionID != t.sessionID {
		t.resetLocked(snap.SessionID)
	}

	t.spin.Stop()
	defer t.resumeLocked(snap)

	for _, step := range snap.Steps {
		prev, seen := t.steps[step.ID]
		if seen && prev == step.Status {
			continue
		}
		t.steps[step.ID] = step.Status
		switch step.Status {
		case progress.StepCompleted:
			green.Fprintf(t.out, "  ✓ %s\n", step.Label)
		case progress.StepRunning:
			cyan.Fprintf(t.out, "  ▸ %s\n", step.Label)
		}
	}

	for _, msg := range snap.Messages {
		if msg.ID <= t.seenMessage {
			continue
		}
		t.seenMessage = msg.ID
		if msg.Diagnostic {
			red.Fprintf(t.out, "  ✗ %s\n", msg.Text)
			continue
		}
		faint.Fprintf(t.out, "    %s\n", msg.Text)
	}

	if snap.Collapsed && !t.summarized && snap.Summary != "" {
		t.summarized = true
		bold.Fprintf(t.out, "  %s\n", snap.Summary)
	}
}

func (t *TerminalSink) OnChunk(sessionID, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if sessionID != t.sessionID {
		return
	}
	t.bytes += len(text)
	if t.opts.ShowCode {
		fmt.Fprint(t.opts.Code, text)
		return
	}
	t.spin.Update(fmt.Sprintf("Receiving code... %d bytes", t.bytes))
}

func (t *TerminalSink) OnArtifact(a artifact.Artifact) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.spin.Stop()
	if t.opts.ShowCode {
		fmt.Fprintln(t.opts.Code)
	}
	green.Fprintf(t.out, "  ✓ Artifact ready (%d bytes)\n", a.Size())
}

func (t *TerminalSink) OnFailure(sessionID, partial string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.spin.Stop()
	if t.opts.ShowCode {
		fmt.Fprintln(t.opts.Code)
	}
	red.Fprintf(t.out, "  ✗ Build failed: %v\n", err)
	if partial != "" {
		yellow.Fprintf(t.out, "    %d bytes of partial output were received and discarded\n", len(partial))
	}
}

// Stop 停止 spinner
func (t *TerminalSink) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spin.Stop()
}

func (t *TerminalSink) resetLocked(sessionID string) {
	t.sessionID = sessionID
	t.steps = make(map[string]progress.StepStatus)
	t.seenMessage = 0
	t.summarized = false
	t.bytes = 0
}

// resumeLocked 运行中继续转 spinner，提示当前进行的步骤
func (t *TerminalSink) resumeLocked(snap progress.Snapshot) {
	if snap.Phase != progress.PhaseRunning {
		return
	}
	for _, step := range snap.Steps {
		if step.Status == progress.StepRunning {
			t.spin.Update(step.Label + "...")
			break
		}
	}
	t.spin.Start()
}
