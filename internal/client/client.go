package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"appbuilder-backend/internal/model"
	"appbuilder-backend/internal/utils"
	"appbuilder-backend/pkg/logger"
)

const readBufferSize = 4 * 1024

// Delta 流中的一个文本片段；Err 非空时是最后一个元素
type Delta struct {
	Text string
	Err  error
}

// Client 流消费者。没有内置超时和重试，需要限时的调用方自行取消 ctx
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New baseURL 形如 http://localhost:5001/api；httpClient 为 nil 时使用无超时的客户端
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = utils.NewHTTPClient(0)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) open(ctx context.Context, prompt string) (*http.Response, error) {
	body, err := json.Marshal(model.PromptRequest{Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/prompt", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not reach builder server at %s: %w", c.baseURL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var errResp model.ErrorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		if json.Unmarshal(raw, &errResp) == nil {
			statusErr.Message = errResp.Error
			statusErr.Details = errResp.Details
		}
		return nil, statusErr
	}

	return resp, nil
}

// Consume 打开流并逐段回调。onChunk 在读取下一段之前同步执行，顺序与解码顺序一致。
// 正常结束返回 nil；中途断开返回包装了 ErrTruncated 的错误；ctx 取消返回 ctx.Err()。
func (c *Client) Consume(ctx context.Context, prompt string, onChunk func(string)) error {
	resp, err := c.open(ctx, prompt)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	dec := &Decoder{}
	buf := make([]byte, readBufferSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if text := dec.Decode(buf[:n]); text != "" {
				onChunk(text)
			}
		}

		if errors.Is(readErr, io.EOF) {
			if dropped := dec.Flush(); dropped > 0 {
				logger.Warnf("dropped %d undecodable trailing bytes at end of stream", dropped)
			}
			return nil
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %v", ErrTruncated, readErr)
		}
	}
}

// Stream 与 Consume 相同，但以单消费者 channel 交付片段。
// channel 在最后一个片段（或错误）之后关闭；ctx 取消会关闭底层连接。
func (c *Client) Stream(ctx context.Context, prompt string) <-chan Delta {
	ch := make(chan Delta)

	go func() {
		defer close(ch)

		err := c.Consume(ctx, prompt, func(text string) {
			select {
			case ch <- Delta{Text: text}:
			case <-ctx.Done():
			}
		})
		if err != nil {
			select {
			case ch <- Delta{Err: err}:
			case <-ctx.Done():
			}
		}
	}()

	return ch
}

// Health 调用存活探针
func (c *Client) Health(ctx context.Context) (*model.HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	var health model.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("failed to parse health response: %w", err)
	}
	return &health, nil
}
