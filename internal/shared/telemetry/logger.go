package telemetry

import (
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how log lines are written.
type Options struct {
	Level string // debug, info, warn, error
	// File enables rotated file output in addition to stdout.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	mu   sync.RWMutex
	root = newZap(Options{Level: "info"})
)

// Init replaces the process logger. Safe to call once at startup; callers that
// never call Init get an info-level stdout logger.
func Init(opts Options) {
	mu.Lock()
	defer mu.Unlock()
	root = newZap(opts)
}

// Info writes an info-level log line with the given fields.
func Info(msg string, fields map[string]any) {
	logger().Info(msg, zapFields(fields)...)
}

// Warn writes a warn-level log line with the given fields.
func Warn(msg string, fields map[string]any) {
	logger().Warn(msg, zapFields(fields)...)
}

// Error writes an error-level log line with the given fields.
func Error(msg string, fields map[string]any) {
	logger().Error(msg, zapFields(fields)...)
}

// Sync flushes buffered log entries. Called on shutdown.
func Sync() {
	_ = logger().Sync()
}

func logger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// zapFields sorts keys so log lines are stable for a given event.
func zapFields(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}

func newZap(opts Options) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.MessageKey = "msg"
	encCfg.EncodeTime = zapcore.RFC3339TimeEncoder
	enc := zapcore.NewJSONEncoder(encCfg)

	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.Set(opts.Level); err != nil {
			level = zapcore.InfoLevel
		}
	}

	cores := []zapcore.Core{
		zapcore.NewCore(enc, zapcore.Lock(os.Stdout), level),
	}
	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    defaulted(opts.MaxSizeMB, 100),
			MaxBackups: defaulted(opts.MaxBackups, 3),
			MaxAge:     defaulted(opts.MaxAgeDays, 7),
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(rotator), level))
	}

	return zap.New(zapcore.NewTee(cores...))
}

func defaulted(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
