package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"appbuilder-backend/internal/model"
	"appbuilder-backend/pkg/logger"

	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"
)

var (
	ErrEmptyPrompt = errors.New("prompt is required")
	ErrUpstream    = errors.New("upstream generation failed")
)

// ValidatePrompt 去除首尾空白后不能为空
func ValidatePrompt(prompt string) (string, error) {
	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return "", ErrEmptyPrompt
	}
	return trimmed, nil
}

type GenerationService struct {
	generator         model.Generator
	systemInstruction string
}

// NewGenerationService systemInstruction 为空时使用固定的默认指令
func NewGenerationService(generator model.Generator, systemInstruction string) *GenerationService {
	if strings.TrimSpace(systemInstruction) == "" {
		systemInstruction = model.DefaultSystemInstruction
	}
	return &GenerationService{
		generator:         generator,
		systemInstruction: systemInstruction,
	}
}

// Open 校验提示词并启动一次生成。
//
// 第一个片段在返回前就已经取到：引擎在产出任何内容之前失败时返回 ErrUpstream，
// 调用方此时还可以回复结构化错误；之后的失败只能通过 Generation.Next 得到。
func (s *GenerationService) Open(ctx context.Context, prompt string) (*Generation, error) {
	trimmed, err := ValidatePrompt(prompt)
	if err != nil {
		return nil, err
	}

	log := logger.WithFields(logrus.Fields{"prompt_len": len(trimmed)})

	reader, err := s.generator.Generate(ctx, model.GenerationRequest{
		Prompt:            trimmed,
		SystemInstruction: s.systemInstruction,
	})
	if err != nil {
		log.WithError(err).Warn("generation rejected before stream opened")
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	g := &Generation{reader: reader}

	first, err := reader.Recv()
	switch {
	case errors.Is(err, io.EOF):
		g.done = true
	case err != nil:
		reader.Close()
		log.WithError(err).Warn("generation failed before first fragment")
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	default:
		g.pending = &first
	}

	log.Debug("generation opened")
	return g, nil
}

// Generation 一次生成的片段序列，单消费者，只能读一次
type Generation struct {
	reader  *schema.StreamReader[string]
	pending *string
	done    bool
}

// Next 按顺序返回下一个片段；结束时返回 io.EOF
func (g *Generation) Next() (string, error) {
	if g.pending != nil {
		chunk := *g.pending
		g.pending = nil
		return chunk, nil
	}
	if g.done {
		return "", io.EOF
	}

	chunk, err := g.reader.Recv()
	if err != nil {
		g.done = true
		return "", err
	}
	return chunk, nil
}

func (g *Generation) Close() {
	g.reader.Close()
}
