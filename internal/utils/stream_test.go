package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamWriter_WritesAndFlushes(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := NewStreamWriter(rec)

	require.NoError(t, sw.Write("<!DOC"))
	require.NoError(t, sw.Write(""))
	require.NoError(t, sw.Write("TYPE html>"))

	assert.Equal(t, "<!DOCTYPE html>", rec.Body.String())
	assert.True(t, rec.Flushed)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get("Content-Length"))
	assert.Equal(t, 2, sw.Chunks())
	assert.Equal(t, int64(15), sw.BytesWritten())
}

func TestStreamWriter_AbortWithoutHijacker(t *testing.T) {
	sw := NewStreamWriter(httptest.NewRecorder())
	assert.ErrorIs(t, sw.Abort(), ErrAbortUnsupported)
}

func TestNewHTTPClient_NoTimeout(t *testing.T) {
	assert.Zero(t, NewHTTPClient(0).Timeout)
}
