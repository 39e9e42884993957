package artifact

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FinalizesContent(t *testing.T) {
	a := New("s1", "```html\n<div>hi</div>\n```")
	assert.Equal(t, "s1", a.SessionID)
	assert.Equal(t, "<div>hi</div>", a.Content)
	assert.False(t, a.CreatedAt.IsZero())
	assert.Equal(t, len("<div>hi</div>"), a.Size())
}

func TestExport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, New("s1", "<p>x</p>")))
	assert.Equal(t, "<p>x</p>", buf.String())

	assert.ErrorIs(t, Export(&buf, New("s1", "```\n```")), ErrEmptyArtifact)
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	path, err := WriteFile(dir, New("s1", "<!DOCTYPE html><html></html>"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "index.html"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<!DOCTYPE html><html></html>", string(data))
}

func TestWriteFile_Empty(t *testing.T) {
	_, err := WriteFile(t.TempDir(), Artifact{SessionID: "s1"})
	assert.ErrorIs(t, err, ErrEmptyArtifact)
}
