package model

import (
	"context"
	"errors"
	"fmt"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// DefaultSystemInstruction 固定前导指令：只输出一个完整的自包含 HTML 文档
const DefaultSystemInstruction = "You are an expert AI web developer. Your task is to generate a complete, single-file HTML application based on the user's request. \n" +
	"Include all necessary CSS and JavaScript within the HTML file. \n" +
	"Output ONLY the HTML code. \n" +
	"Do NOT include markdown formatting (like ```html). \n" +
	"Do NOT include explanations or extra text. \n" +
	"Just the raw HTML code."

var ErrGenerationFailed = errors.New("generation engine failed")

// Generator 生成服务适配器。
//
// Generate 每次调用都是一次全新的生成，返回的 StreamReader 只能消费一次：
// Recv 按顺序返回文本片段，结束时返回 io.EOF，其它错误表示上游失败。
// 调用方负责 Close。
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (*schema.StreamReader[string], error)
}

// ChatModelGenerator 把任意 eino ChatModel 的流式输出转换为纯文本片段
type ChatModelGenerator struct {
	chatModel einoModel.BaseChatModel
	opts      []einoModel.Option
}

func NewChatModelGenerator(chatModel einoModel.BaseChatModel, opts ...einoModel.Option) *ChatModelGenerator {
	return &ChatModelGenerator{
		chatModel: chatModel,
		opts:      opts,
	}
}

func (g *ChatModelGenerator) Generate(ctx context.Context, req GenerationRequest) (*schema.StreamReader[string], error) {
	messages := []*schema.Message{
		schema.SystemMessage(req.SystemInstruction),
		schema.UserMessage(req.Prompt),
	}

	sr, err := g.chatModel.Stream(ctx, messages, g.opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	// 不解释内容，只跳过空增量
	return schema.StreamReaderWithConvert(sr, func(msg *schema.Message) (string, error) {
		if msg == nil || msg.Content == "" {
			return "", schema.ErrNoValue
		}
		return msg.Content, nil
	}), nil
}
