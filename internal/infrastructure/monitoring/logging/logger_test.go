package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestToZapFieldsTypedFastPaths(t *testing.T) {
	fields := toZapFields([]Field{
		String("s", "v"),
		Int("i", 7),
		Float64("f", 1.5),
		Bool("b", true),
		Duration("d", time.Second),
		Err(errors.New("boom")),
		Any("a", struct{ X int }{X: 1}),
	})
	require.Len(t, fields, 7)
	assert.Equal(t, "s", fields[0].Key)
	assert.Equal(t, "error", fields[5].Key)
}

func TestErrNil(t *testing.T) {
	f := Err(nil)
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, "<nil>", f.Value)
}

func TestLoggerLevelsAndWith(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewLoggerFromCore(core)

	log.Info("scored product", String("product_id", "P1"), Float64("overall", 72.5))
	log.Warn("trend lookup failed", Err(errors.New("timeout")))

	child := log.With(String("component", "miner")).Named("association")
	child.Debug("candidate pruned", Int("size", 3))

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "scored product", entries[0].Message)
	assert.Equal(t, "trend lookup failed", entries[1].Message)
	assert.Equal(t, "candidate pruned", entries[2].Message)
	assert.Equal(t, "association", entries[2].LoggerName)
}

func TestNopLoggerIsInert(t *testing.T) {
	log := NewNopLogger()
	// Must not panic and must return usable children.
	log.Debug("x")
	log.Error("x", Err(errors.New("ignored")))
	assert.NotNil(t, log.With(String("k", "v")).Named("child"))
}

func TestSetDefault(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	l := NewNopLogger()
	SetDefault(l)
	assert.Equal(t, l, Default())

	// nil must be ignored.
	SetDefault(nil)
	assert.Equal(t, l, Default())
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	assert.Equal(t, zapcore.InfoLevel, parseLevel("nonsense"))
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("ERROR"))
}

func TestNewLoggerBuilds(t *testing.T) {
	log, err := NewLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, log)
}
