package model

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"appbuilder-backend/internal/config"
	"appbuilder-backend/pkg/logger"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/qwen"
	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/sirupsen/logrus"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderDoubao = "doubao"
	ProviderQwen   = "qwen"

	defaultOllamaBaseURL = "http://localhost:11434/v1"
)

// NewGenerator 按配置创建生成服务适配器
func NewGenerator(ctx context.Context, cfg *config.Config) (*ChatModelGenerator, error) {
	chatModel, err := NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var opts []einoModel.Option
	if cfg.Generation.MaxTokens > 0 {
		opts = append(opts, einoModel.WithMaxTokens(cfg.Generation.MaxTokens))
	}
	if cfg.Generation.Temperature > 0 {
		opts = append(opts, einoModel.WithTemperature(cfg.Generation.Temperature))
	}

	return NewChatModelGenerator(chatModel, opts...), nil
}

// NewChatModel 创建流式聊天模型
func NewChatModel(ctx context.Context, cfg *config.Config) (einoModel.BaseChatModel, error) {
	switch cfg.Model.Provider {
	case ProviderOpenAI:
		logger.Infof("Using OpenAI model: %s", cfg.OpenAI.Model)
		return newOpenAIChatModel(cfg.OpenAI), nil
	case ProviderOllama, "":
		return newOllamaChatModel(cfg.Ollama), nil
	case ProviderDoubao:
		return createDoubaoModel(ctx, cfg.Doubao)
	case ProviderQwen:
		return createQwenModel(ctx, cfg.Qwen)
	default:
		return nil, fmt.Errorf("unsupported model provider: %s", cfg.Model.Provider)
	}
}

// Ollama 在 /v1 下提供 OpenAI 兼容接口，且要求非空 key
func newOllamaChatModel(cfg config.OpenAIConfig) *openaiChatModel {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOllamaBaseURL
	}
	if cfg.APIKey == "" {
		cfg.APIKey = "ollama"
	}
	logger.Infof("Using Ollama model: %s, BaseURL: %s", cfg.Model, cfg.BaseURL)
	return newOpenAIChatModel(cfg)
}

func createDoubaoModel(ctx context.Context, cfg config.DoubaoConfig) (einoModel.BaseChatModel, error) {
	logger.Infof("Using Doubao model: %s, API key: %s", cfg.Model, maskKey(cfg.APIKey))

	chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		APIKey: cfg.APIKey,
		Model:  cfg.Model,
		CustomHeader: map[string]string{
			"X-Ark-Thinking-Mode": "disable",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Doubao model: %w", err)
	}

	return chatModel, nil
}

func createQwenModel(ctx context.Context, cfg config.QwenConfig) (einoModel.BaseChatModel, error) {
	logger.Infof("Using Qwen model: %s, BaseURL: %s, API key: %s", cfg.Model, cfg.BaseURL, maskKey(cfg.APIKey))

	httpClient := &http.Client{
		Transport: NewDebugTransport(nil, cfg.DebugRequest),
		Timeout:   cfg.Timeout,
	}

	chatModel, err := qwen.NewChatModel(ctx, &qwen.ChatModelConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		MaxTokens:   &cfg.MaxTokens,
		Temperature: &cfg.Temperature,
		TopP:        &cfg.TopP,
		Timeout:     cfg.Timeout,
		HTTPClient:  httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qwen model: %w", err)
	}

	return chatModel, nil
}

func maskKey(key string) string {
	if len(key) > 10 {
		return key[:10] + "..."
	}
	if key == "" {
		return "(empty)"
	}
	return "***"
}

// DebugTransport 自定义HTTP传输层，用于调试发往生成引擎的请求
type DebugTransport struct {
	base    http.RoundTripper
	enabled bool
}

func NewDebugTransport(base http.RoundTripper, enabled bool) *DebugTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &DebugTransport{base: base, enabled: enabled}
}

// RoundTrip 实现http.RoundTripper接口
func (t *DebugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.enabled && req.Method == http.MethodPost {
		t.logRequest(req)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil && t.enabled {
		logger.Errorf("[debug transport] request failed: %v", err)
	}
	return resp, err
}

func (t *DebugTransport) logRequest(req *http.Request) {
	fields := logrus.Fields{
		"method": req.Method,
		"url":    req.URL.String(),
	}
	for name, values := range req.Header {
		if isSensitiveHeader(name) {
			fields["header."+name] = "[REDACTED]"
		} else {
			fields["header."+name] = strings.Join(values, ", ")
		}
	}

	if req.Body != nil {
		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			logger.Errorf("[debug transport] failed to read request body: %v", err)
			return
		}
		// 恢复请求体，以免影响实际请求
		req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		fields["body_bytes"] = len(bodyBytes)
	}

	logger.WithFields(fields).Info("[debug transport] request")
}

func isSensitiveHeader(name string) bool {
	for _, sensitive := range []string{"Authorization", "X-Api-Key", "X-Auth-Token", "Cookie"} {
		if strings.EqualFold(name, sensitive) {
			return true
		}
	}
	return false
}
