package logger

import (
	"context"
	"testing"

	"smartacademy/internal/reqctx"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithCtxAddsRequestFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := Log
	Log = zap.New(core)
	t.Cleanup(func() { Log = prev })

	ctx := reqctx.WithRequestID(context.Background(), "req-1")
	ctx = reqctx.WithUserID(ctx, 42)

	WithCtx(ctx).Info("привет")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "req-1", fields["request_id"])
	require.Equal(t, int64(42), fields["user_id"])
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	require.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	require.Equal(t, zapcore.InfoLevel, parseLevel("nonsense"))
}
