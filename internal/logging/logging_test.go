package logging

import (
	"encoding/base64"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureLevels(t *testing.T) {
	defer func() { _ = Configure("info", "text") }()

	require.NoError(t, Configure("debug", "text"))
	assert.Equal(t, log.DebugLevel, log.GetLevel())

	require.NoError(t, Configure("trace", "text"))
	assert.Equal(t, log.TraceLevel, log.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, log.StandardLogger().Formatter)

	assert.Error(t, Configure("verbose", "text"))
	assert.Error(t, Configure("info", "xml"))
}

func TestConfigureTeesIntoCollector(t *testing.T) {
	defer func() { _ = Configure("info", "text") }()
	collector := NewLogCollector()

	require.NoError(t, Configure("info", "text", collector))
	log.Info("collected line")

	assert.Contains(t, collector.GetLogs().Logs, "collected line")
	assert.Empty(t, collector.GetLogs().Logs)
}

func TestCollectorTail(t *testing.T) {
	collector := NewLogCollector()
	_, _ = collector.Write([]byte(strings.Repeat("a", MaxTailSize)))
	_, _ = collector.Write([]byte("END"))

	decoded, err := base64.StdEncoding.DecodeString(collector.Tail())
	require.NoError(t, err)
	assert.Len(t, decoded, MaxTailSize)
	assert.True(t, strings.HasSuffix(string(decoded), "END"))

	decoded, err = base64.StdEncoding.DecodeString(collector.Tail())
	require.NoError(t, err)
	assert.Empty(t, decoded)
}
