package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"appbuilder-backend/internal/artifact"
	"appbuilder-backend/internal/progress"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func init() {
	color.NoColor = true
}

func steps(statuses ...progress.StepStatus) []progress.Step {
	out := make([]progress.Step, len(progress.DefaultSteps))
	copy(out, progress.DefaultSteps)
	for i, s := range statuses {
		out[i].Status = s
	}
	return out
}

func TestTerminalSink_PrintsOnlyChanges(t *testing.T) {
	var buf bytes.Buffer
	sink := NewTerminalSink(&buf, Options{})

	initial := progress.Snapshot{
		SessionID: "s1",
		Phase:     progress.PhaseRunning,
		Steps:     steps(progress.StepCompleted, progress.StepRunning),
	}
	sink.OnProgress(initial)
	sink.OnProgress(initial)

	withMessage := initial
	withMessage.Messages = []progress.ThinkingMessage{{ID: 1, Text: "Analyzing your prompt...", Status: progress.MessageTyping}}
	sink.OnProgress(withMessage)

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "✓ Analyzing Requirements"))
	assert.Equal(t, 1, strings.Count(out, "▸ Drafting Architecture"))
	assert.Equal(t, 1, strings.Count(out, "Analyzing your prompt..."))
	assert.NotContains(t, out, "Generating Frontend")
}

func TestTerminalSink_CompleteAndSummary(t *testing.T) {
	var buf bytes.Buffer
	sink := NewTerminalSink(&buf, Options{})

	sink.OnProgress(progress.Snapshot{
		SessionID: "s1",
		Phase:     progress.PhaseRunning,
		Steps:     steps(progress.StepCompleted, progress.StepRunning),
	})
	done := progress.Snapshot{
		SessionID: "s1",
		Phase:     progress.PhaseComplete,
		Steps:     steps(progress.StepCompleted, progress.StepCompleted, progress.StepCompleted, progress.StepCompleted),
		Summary:   "Build completed successfully • 4 steps processed",
	}
	sink.OnProgress(done)
	assert.NotContains(t, buf.String(), "Build completed successfully")

	done.Collapsed = true
	sink.OnProgress(done)
	sink.OnProgress(done)
	sink.OnArtifact(artifact.Artifact{SessionID: "s1", Content: "<p>x</p>"})

	out := buf.String()
	assert.Contains(t, out, "✓ Finalizing Build")
	assert.Equal(t, 1, strings.Count(out, "Build completed successfully • 4 steps processed"))
	assert.Contains(t, out, "Artifact ready (8 bytes)")
}

func TestTerminalSink_Failure(t *testing.T) {
	var buf bytes.Buffer
	sink := NewTerminalSink(&buf, Options{})

	sink.OnProgress(progress.Snapshot{
		SessionID: "s1",
		Phase:     progress.PhaseFailed,
		Steps:     steps(progress.StepCompleted, progress.StepRunning),
		Messages: []progress.ThinkingMessage{
			{ID: 8, Text: "Generation failed: unexpected EOF", Status: progress.MessageDone, Diagnostic: true},
		},
	})
	sink.OnFailure("s1", "<html><body>", errors.New("unexpected EOF"))

	out := buf.String()
	assert.Contains(t, out, "✗ Generation failed: unexpected EOF")
	assert.Contains(t, out, "✗ Build failed: unexpected EOF")
	assert.Contains(t, out, "12 bytes of partial output")
}

func TestTerminalSink_ShowCode(t *testing.T) {
	var out, code bytes.Buffer
	sink := NewTerminalSink(&out, Options{ShowCode: true, Code: &code})

	sink.OnProgress(progress.Snapshot{SessionID: "s1", Phase: progress.PhaseRunning, Steps: steps()})
	sink.OnChunk("s1", "<div>")
	sink.OnChunk("other", "ignored")
	sink.OnChunk("s1", "hi</div>")

	assert.Equal(t, "<div>hi</div>", code.String())
}

func TestTerminalSink_NewSessionResets(t *testing.T) {
	var buf bytes.Buffer
	sink := NewTerminalSink(&buf, Options{})

	snap := progress.Snapshot{SessionID: "s1", Phase: progress.PhaseRunning, Steps: steps(progress.StepCompleted)}
	sink.OnProgress(snap)
	snap.SessionID = "s2"
	sink.OnProgress(snap)

	assert.Equal(t, 2, strings.Count(buf.String(), "✓ Analyzing Requirements"))
}
