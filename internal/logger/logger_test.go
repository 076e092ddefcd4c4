package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{input: "debug", expected: zapcore.DebugLevel},
		{input: "DEBUG", expected: zapcore.DebugLevel},
		{input: "info", expected: zapcore.InfoLevel},
		{input: "", expected: zapcore.InfoLevel},
		{input: "warn", expected: zapcore.WarnLevel},
		{input: "warning", expected: zapcore.WarnLevel},
		{input: "error", expected: zapcore.ErrorLevel},
		{input: "bogus", expected: zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

//nolint:paralleltest // mutates the global logger
func TestGlobalLoggerRoutesThroughZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))
	defer Set(zap.NewNop())

	Infof("fetched %d sources", 3)
	Warn("slow source", "source", "house_prices")

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "fetched 3 sources", entries[0].Message)
		assert.Equal(t, "slow source", entries[1].Message)
		assert.Equal(t, "house_prices", entries[1].ContextMap()["source"])
	}
}

//nolint:paralleltest // mutates the global logger
func TestFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Set(zap.New(core))
	defer Set(zap.NewNop())

	l := NewLogr().WithValues("source", "school_characteristics")
	ctx := WithContext(context.Background(), l)

	FromContext(ctx).Info("resolved link", "url", "https://example.org/data.zip")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "school_characteristics", fields["source"])
		assert.Equal(t, "https://example.org/data.zip", fields["url"])
	}

	// A bare context still yields a usable logger.
	assert.NotNil(t, FromContext(context.Background()).GetSink())
}
