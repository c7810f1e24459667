package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_KeyValueFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.Info("run recorded", "result_id", "r1", "status", "Passed")
	l.With("component", "runner").Error("request failed", "status_code", 502)
	l.Debug("tick")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "run recorded", entries[0].Message)
	assert.Equal(t, "r1", entries[0].ContextMap()["result_id"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "runner", entries[1].ContextMap()["component"])
	assert.EqualValues(t, 502, entries[1].ContextMap()["status_code"])
}

func TestNewLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	l := NewLogger("chatty", "json")
	require.NotNil(t, l)
	assert.False(t, l.Desugar().Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Desugar().Core().Enabled(zapcore.InfoLevel))
}
