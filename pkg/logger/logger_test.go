package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, New("debug", "json", "stdout").GetLevel())
	assert.Equal(t, logrus.WarnLevel, New("WARN", "json", "stdout").GetLevel())
	assert.Equal(t, logrus.InfoLevel, New("bogus", "json", "stdout").GetLevel(), "unknown level falls back to info")
}

func TestNewFormats(t *testing.T) {
	_, isJSON := New("info", "json", "stdout").Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)

	_, isText := New("info", "text", "stdout").Formatter.(*logrus.TextFormatter)
	assert.True(t, isText)

	_, isJSON = New("info", "", "stdout").Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON, "empty format defaults to JSON")
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.log")

	log := New("info", "json", path)
	log.Info("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"hello"`)
}

func TestNewRejectsTraversalPath(t *testing.T) {
	log := New("info", "json", "../../etc/service.log")
	assert.Equal(t, os.Stdout, log.Out)
}
