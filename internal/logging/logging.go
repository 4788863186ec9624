// Package logging builds the zap loggers shared by the server and the CLI.
package logging

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const maxSnippetRunes = 1024

// New returns a production JSON logger. level "debug" lowers the threshold.
func New(level string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if strings.EqualFold(strings.TrimSpace(level), "debug") {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	config.DisableStacktrace = true
	return config.Build()
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger {
	return zap.NewNop()
}

// Snippet trims content and caps it at maxSnippetRunes for log fields.
func Snippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	if utf8.RuneCountInString(trimmed) <= maxSnippetRunes {
		return trimmed
	}
	return string([]rune(trimmed)[:maxSnippetRunes]) + "…(truncated)"
}

// LogExchange records one side of a model exchange at debug level.
func LogExchange(logger *zap.Logger, kind, phase, content string) {
	if logger == nil {
		return
	}
	logger.Debug("model exchange",
		zap.String("kind", kind),
		zap.String("phase", phase),
		zap.Int("runes", utf8.RuneCountInString(strings.TrimSpace(content))),
		zap.String("content", Snippet(content)),
	)
}
