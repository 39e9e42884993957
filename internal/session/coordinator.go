package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"appbuilder-backend/internal/artifact"
	"appbuilder-backend/internal/config"
	"appbuilder-backend/internal/progress"
	"appbuilder-backend/internal/service"
	"appbuilder-backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Streamer 打开一次生成流并按顺序回调文本片段，client.Client 实现了它
type Streamer interface {
	Consume(ctx context.Context, prompt string, onChunk func(string)) error
}

// Sink 接收会话的进度、片段和结果。所有方法同步调用，
// 不能阻塞，也不能回调 Coordinator
type Sink interface {
	progress.Sink
	OnChunk(sessionID, text string)
	OnArtifact(a artifact.Artifact)
	OnFailure(sessionID, partial string, err error)
}

// NopSink 空实现，便于只关心部分事件的 Sink 嵌入
type NopSink struct{}

func (NopSink) OnProgress(progress.Snapshot)    {}
func (NopSink) OnChunk(string, string)          {}
func (NopSink) OnArtifact(artifact.Artifact)    {}
func (NopSink) OnFailure(string, string, error) {}

// Coordinator 同一时刻只有一个活动会话。新的提交会先放弃上一个会话：
// 取消它的连接、停止它的定时器，迟到的片段不会再影响任何状态
type Coordinator struct {
	streamer Streamer
	cfg      config.ProgressConfig
	sink     Sink
	store    *artifact.Store

	mu      sync.Mutex
	current *GenerationSession
}

// NewCoordinator store 为 nil 时不保存 Artifact
func NewCoordinator(streamer Streamer, cfg config.ProgressConfig, sink Sink, store *artifact.Store) *Coordinator {
	if sink == nil {
		sink = NopSink{}
	}
	return &Coordinator{
		streamer: streamer,
		cfg:      cfg,
		sink:     sink,
		store:    store,
	}
}

// Submit 校验提示词并开始一个新会话。校验失败时不会创建会话，也不会影响当前会话
func (c *Coordinator) Submit(ctx context.Context, prompt string) (*GenerationSession, error) {
	trimmed, err := service.ValidatePrompt(prompt)
	if err != nil {
		return nil, err
	}

	sessCtx, cancel := context.WithCancel(ctx)
	s := &GenerationSession{
		ID:        uuid.New().String(),
		Prompt:    trimmed,
		StartedAt: time.Now(),
		status:    StatusPending,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	s.orchestrator = progress.New(s.ID, trimmed, c.cfg, c.sink)

	c.mu.Lock()
	previous := c.current
	c.current = s
	c.mu.Unlock()

	if previous != nil {
		previous.abandon()
		logger.WithFields(logrus.Fields{
			"session_id":  previous.ID,
			"replaced_by": s.ID,
		}).Info("session abandoned")
	}

	logger.WithFields(logrus.Fields{
		"session_id": s.ID,
		"prompt_len": len(trimmed),
	}).Info("session started")

	s.orchestrator.Start()
	go c.run(sessCtx, s)

	return s, nil
}

// Current 当前会话，没有时为 nil
func (c *Coordinator) Current() *GenerationSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Wait 等待当前会话结束
func (c *Coordinator) Wait(ctx context.Context) (*GenerationSession, error) {
	s := c.Current()
	if s == nil {
		return nil, ErrNoSession
	}
	return s, s.Wait(ctx)
}

// Restart 放弃当前会话，不开始新的会话
func (c *Coordinator) Restart() {
	c.mu.Lock()
	s := c.current
	c.current = nil
	c.mu.Unlock()

	if s != nil {
		s.abandon()
		logger.WithFields(logrus.Fields{"session_id": s.ID}).Info("session restarted")
	}
}

func (c *Coordinator) run(ctx context.Context, s *GenerationSession) {
	err := c.streamer.Consume(ctx, s.Prompt, func(text string) {
		c.onChunk(s, text)
	})
	c.finish(s, err)
}

func (c *Coordinator) onChunk(s *GenerationSession, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.abandoned || s.status == StatusComplete || s.status == StatusFailed {
		return
	}

	s.status = StatusStreaming
	s.text.WriteString(text)
	s.chunks++

	s.orchestrator.ObserveLength(s.text.Len())
	c.sink.OnChunk(s.ID, text)
}

func (c *Coordinator) finish(s *GenerationSession, err error) {
	s.mu.Lock()
	defer close(s.done)
	defer s.mu.Unlock()

	log := logger.WithFields(logrus.Fields{
		"session_id": s.ID,
		"chunks":     s.chunks,
		"bytes":      s.text.Len(),
		"elapsed":    time.Since(s.StartedAt).Round(time.Millisecond).String(),
	})

	if s.abandoned {
		s.status = StatusFailed
		s.err = ErrSessionAbandoned
		log.Debug("abandoned session finished")
		return
	}
	// 正常结束后释放 context
	defer s.cancel()

	if err == nil {
		a := artifact.New(s.ID, s.text.String())
		if a.Content == "" {
			err = artifact.ErrEmptyArtifact
		} else {
			s.status = StatusComplete
			s.artifact = &a
			if c.store != nil {
				if saveErr := c.store.Save(a); saveErr != nil {
					log.WithError(saveErr).Warn("failed to store artifact")
				}
			}
			s.orchestrator.Complete()
			c.sink.OnArtifact(a)
			log.Info("session complete")
			return
		}
	}

	s.status = StatusFailed
	s.err = err
	s.orchestrator.Fail(err)
	c.sink.OnFailure(s.ID, s.text.String(), err)

	if errors.Is(err, context.Canceled) {
		log.Info("session cancelled")
		return
	}
	log.WithError(err).Warn("session failed")
}
