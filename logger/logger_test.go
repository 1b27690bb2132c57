/*
 * @module logger/logger_test
 * @description 日志初始化测试：LOG_LEVEL解析与全局记录器级别生效
 * @architecture 单元测试
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 测试执行流程
 * @rules 无法识别的级别取值回落到debug
 * @dependencies github.com/stretchr/testify
 * @refs logger/logger.go
 */

package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"debug", slog.LevelDebug},
		{"", slog.LevelDebug},
		{"  info  ", slog.LevelInfo},
		{"看不懂的取值", slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestInitLoggerHonorsLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	InitLogger()

	ctx := context.Background()
	assert.True(t, slog.Default().Enabled(ctx, slog.LevelWarn))
	assert.False(t, slog.Default().Enabled(ctx, slog.LevelInfo))
}
