package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"appbuilder-backend/internal/config"
	"appbuilder-backend/internal/model"
	"appbuilder-backend/internal/service"

	"github.com/cloudwego/eino/schema"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedGenerator 每个片段都要等测试放行，用来验证"写一个、刷一个"
type gatedGenerator struct {
	chunks  []string
	openErr error
	midErr  error
	gate    chan struct{}
	calls   atomic.Int32
}

func (g *gatedGenerator) Generate(ctx context.Context, req model.GenerationRequest) (*schema.StreamReader[string], error) {
	g.calls.Add(1)
	if g.openErr != nil {
		return nil, g.openErr
	}
	sr, sw := schema.Pipe[string](0)
	go func() {
		defer sw.Close()
		for _, c := range g.chunks {
			if g.gate != nil {
				select {
				case <-g.gate:
				case <-ctx.Done():
					return
				}
			}
			if sw.Send(c, nil) {
				return
			}
		}
		if g.midErr != nil {
			sw.Send("", g.midErr)
		}
	}()
	return sr, nil
}

func newTestServer(t *testing.T, gen model.Generator) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewPromptHandler(service.NewGenerationService(gen, ""))
	srv := httptest.NewServer(NewRouter(&config.Config{}, h))
	t.Cleanup(srv.Close)
	return srv
}

func postPrompt(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url+"/api/prompt", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestStreamPrompt_EmptyPromptRejected(t *testing.T) {
	for _, body := range []string{`{"prompt":""}`, `{"prompt":"   "}`, `{}`} {
		gen := &gatedGenerator{chunks: []string{"x"}}
		srv := newTestServer(t, gen)

		resp := postPrompt(t, srv.URL, body)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		var errResp model.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
		assert.Equal(t, "Prompt is required", errResp.Error)
		assert.Zero(t, gen.calls.Load(), "generator must not be called for %s", body)
	}
}

func TestStreamPrompt_MalformedBody(t *testing.T) {
	srv := newTestServer(t, &gatedGenerator{})

	resp := postPrompt(t, srv.URL, `{"prompt":`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStreamPrompt_FIFOAndImmediateFlush(t *testing.T) {
	chunks := []string{"<!DOC", "TYPE html><html>", "</html>"}
	gen := &gatedGenerator{chunks: chunks, gate: make(chan struct{}, 1)}
	srv := newTestServer(t, gen)

	// 第一个片段在 Open 里就会被读取
	gen.gate <- struct{}{}
	resp := postPrompt(t, srv.URL, `{"prompt":"Landing Page"}`)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, int64(-1), resp.ContentLength)
	assert.Equal(t, []string{"chunked"}, resp.TransferEncoding)

	reader := bufio.NewReader(resp.Body)
	var got strings.Builder
	for i, c := range chunks {
		if i > 0 {
			gen.gate <- struct{}{}
		}
		// 下一个片段还没放行，能读到当前片段说明没有批量缓冲
		buf := make([]byte, len(c))
		_, err := io.ReadFull(reader, buf)
		require.NoError(t, err)
		assert.Equal(t, c, string(buf))
		got.Write(buf)
	}

	rest, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, "<!DOCTYPE html><html></html>", got.String())
}

func TestStreamPrompt_UpstreamErrorBeforeFirstByte(t *testing.T) {
	srv := newTestServer(t, &gatedGenerator{openErr: errors.New("ollama unreachable")})

	resp := postPrompt(t, srv.URL, `{"prompt":"Task Manager"}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	var errResp model.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Equal(t, "Internal Server Error", errResp.Error)
	assert.Contains(t, errResp.Details, "ollama unreachable")
}

func TestStreamPrompt_FailureBeforeFirstFragmentIsStructured(t *testing.T) {
	srv := newTestServer(t, &gatedGenerator{midErr: errors.New("model not found")})

	resp := postPrompt(t, srv.URL, `{"prompt":"Task Manager"}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestStreamPrompt_MidStreamFailureTruncatesConnection(t *testing.T) {
	srv := newTestServer(t, &gatedGenerator{
		chunks: []string{"<html>", "<body>"},
		midErr: errors.New("upstream reset"),
	})

	resp := postPrompt(t, srv.URL, `{"prompt":"Task Manager"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.Error(t, err, "truncated stream must not look like a clean end")
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, "<html><body>", string(body))
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &gatedGenerator{})

	for _, path := range []string{"/api/health", "/health"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)

		var health model.HealthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ok", health.Status)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &gatedGenerator{chunks: []string{"a"}})

	resp := postPrompt(t, srv.URL, `{"prompt":"x"}`)
	_, _ = io.ReadAll(resp.Body)
	resp.Body.Close()

	mresp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close()
	body, err := io.ReadAll(mresp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "appbuilder_streams_total")
}
