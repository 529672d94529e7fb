package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"Ledger/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger(config.LogConfig{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	log.WithField("username", "alice").Info("account registered")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "alice", line["username"])
	assert.Equal(t, "account registered", line["msg"])
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)
	_, err = New(config.LogConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}
