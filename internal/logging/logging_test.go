package logging

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesLevelAndFormat(t *testing.T) {
	log, err := New(Config{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	_, ok := log.Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)
}

func TestNewDefaultsToTextFormatter(t *testing.T) {
	log, err := New(Config{Level: "info", Format: "text"})
	require.NoError(t, err)
	_, ok := log.Formatter.(*logrus.TextFormatter)
	assert.True(t, ok)
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "not-a-level"})
	require.Error(t, err)
}

func TestNewWritesToConfiguredOutput(t *testing.T) {
	log, err := New(Config{Level: "info", Format: "text"})
	require.NoError(t, err)
	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.Info("hello")
	assert.Contains(t, buf.String(), "hello")
}
