package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWithOutput_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWithOutput("debug", "json", &buf))
	t.Cleanup(func() { log = nil })

	WithFields(logrus.Fields{"session_id": "abc"}).Info("stream opened")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "stream opened", entry["msg"])
	assert.Equal(t, "abc", entry["session_id"])
}

func TestInitWithOutput_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWithOutput("warn", "text", &buf))
	t.Cleanup(func() { log = nil })

	Infof("hidden %d", 1)
	Warnf("shown %d", 2)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown 2")
}

func TestInitWithOutput_UnknownLevel(t *testing.T) {
	err := InitWithOutput("verbose", "text", &bytes.Buffer{})
	assert.Error(t, err)
}

func TestWithFields_Uninitialized(t *testing.T) {
	log = nil
	assert.NotNil(t, WithFields(logrus.Fields{"k": "v"}))
}
