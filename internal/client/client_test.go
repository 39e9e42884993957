package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"appbuilder-backend/internal/config"
	"appbuilder-backend/internal/handler"
	"appbuilder-backend/internal/model"
	"appbuilder-backend/internal/service"

	"github.com/cloudwego/eino/schema"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedGenerator struct {
	chunks []string
	midErr error
	// hold 为真时发完所有片段后一直挂起，直到请求被取消
	hold bool
}

func (g *scriptedGenerator) Generate(ctx context.Context, req model.GenerationRequest) (*schema.StreamReader[string], error) {
	sr, sw := schema.Pipe[string](len(g.chunks) + 1)
	go func() {
		defer sw.Close()
		for _, c := range g.chunks {
			sw.Send(c, nil)
		}
		if g.midErr != nil {
			sw.Send("", g.midErr)
		}
		if g.hold {
			<-ctx.Done()
		}
	}()
	return sr, nil
}

func newServer(t *testing.T, gen model.Generator) *Client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := handler.NewPromptHandler(service.NewGenerationService(gen, ""))
	srv := httptest.NewServer(handler.NewRouter(&config.Config{}, h))
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api", nil)
}

func TestConsume_RoundTrip(t *testing.T) {
	// 多字节字符被拆在两个片段之间
	chunks := []string{"<h1>Caf\xc3", "\xa9 🚀</h1>"}
	c := newServer(t, &scriptedGenerator{chunks: chunks})

	var got strings.Builder
	err := c.Consume(context.Background(), "Landing Page", func(s string) {
		got.WriteString(s)
	})
	require.NoError(t, err)
	assert.Equal(t, "<h1>Café 🚀</h1>", got.String())
}

func TestConsume_EmptyPromptIsStatusError(t *testing.T) {
	c := newServer(t, &scriptedGenerator{chunks: []string{"x"}})

	err := c.Consume(context.Background(), "  ", func(string) {
		t.Fatal("no chunk expected")
	})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "Prompt is required", statusErr.Message)
	assert.Contains(t, err.Error(), "HTTP error! status: 400")
}

func TestConsume_MidStreamFailureIsTruncated(t *testing.T) {
	c := newServer(t, &scriptedGenerator{
		chunks: []string{"<html>", "<body>"},
		midErr: errors.New("upstream reset"),
	})

	var got strings.Builder
	err := c.Consume(context.Background(), "Task Manager", func(s string) {
		got.WriteString(s)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTruncated)
	assert.Equal(t, "<html><body>", got.String())
}

func TestConsume_Unreachable(t *testing.T) {
	c := New("http://127.0.0.1:1/api", &http.Client{Timeout: time.Second})

	err := c.Consume(context.Background(), "x", func(string) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not reach builder server")
}

func TestStream_DeliversInOrderThenCloses(t *testing.T) {
	chunks := []string{"a", "b", "c"}
	c := newServer(t, &scriptedGenerator{chunks: chunks})

	var got strings.Builder
	for d := range c.Stream(context.Background(), "x") {
		require.NoError(t, d.Err)
		got.WriteString(d.Text)
	}
	assert.Equal(t, "abc", got.String())
}

func TestStream_CancelStopsDelivery(t *testing.T) {
	c := newServer(t, &scriptedGenerator{chunks: []string{"<html>"}, hold: true})

	ctx, cancel := context.WithCancel(context.Background())
	ch := c.Stream(ctx, "x")

	first := <-ch
	require.NoError(t, first.Err)
	assert.Equal(t, "<html>", first.Text)

	cancel()

	done := make(chan struct{})
	go func() {
		for range ch {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream channel not closed after cancel")
	}
}

func TestHealth(t *testing.T) {
	c := newServer(t, &scriptedGenerator{})

	health, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "Server is running", health.Message)
}
