package log

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var (
	mu     sync.RWMutex
	base   *zap.Logger
	sugar  *zap.SugaredLogger
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	inited sync.Once
)

// initLogger installs a console logger at INFO until Configure is called.
func initLogger() {
	inited.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		if base == nil {
			install(build("console"))
		}
	})
}

func build(format string) *zap.Logger {
	var cfg zap.Config
	switch format {
	case "json":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.Development = false
	}
	cfg.Level = level
	cfg.DisableStacktrace = true
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func install(l *zap.Logger) {
	base = l
	// one extra frame for the package-level helpers
	sugar = l.WithOptions(zap.AddCallerSkip(1)).Sugar()
}

// Configure rebuilds the global logger. format is "json" or "console".
func Configure(lvl, format string) error {
	if err := parseInto(lvl); err != nil {
		return err
	}
	l := build(strings.ToLower(strings.TrimSpace(format)))
	inited.Do(func() {})
	mu.Lock()
	old := base
	install(l)
	mu.Unlock()
	if old != nil {
		_ = old.Sync()
	}
	return nil
}

// Use installs an existing logger, e.g. zap.NewNop() in tests.
func Use(l *zap.Logger) {
	inited.Do(func() {})
	mu.Lock()
	install(l)
	mu.Unlock()
}

func parseInto(lvl string) error {
	if strings.TrimSpace(lvl) == "" {
		return nil
	}
	l, err := zapcore.ParseLevel(strings.ToLower(lvl))
	if err != nil {
		return fmt.Errorf("log: invalid level %q: %w", lvl, err)
	}
	level.SetLevel(l)
	return nil
}

func SetLevel(l Level) {
	_ = parseInto(string(l))
}

// L returns the underlying zap logger for components that take one.
func L() *zap.Logger {
	initLogger()
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Sync flushes buffered entries.
func Sync() {
	mu.RLock()
	l := base
	mu.RUnlock()
	if l != nil {
		_ = l.Sync()
	}
}

func s() *zap.SugaredLogger {
	initLogger()
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func Debug(msg string, kv ...any) {
	s().Debugw(msg, kv...)
}

func Info(msg string, kv ...any) {
	s().Infow(msg, kv...)
}

func Warn(msg string, kv ...any) {
	s().Warnw(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	s().Errorw(msg, extended...)
}
