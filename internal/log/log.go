package log

import (
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
	mu         sync.RWMutex
	logger     *zap.SugaredLogger
	atomLevel  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	loggerOnce sync.Once
)

// initLogger builds the default development logger writing to stderr.
func initLogger() {
	loggerOnce.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		if logger != nil {
			return
		}
		logger = build(false)
	})
}

func build(production bool) *zap.SugaredLogger {
	var conf zap.Config
	if production {
		conf = zap.NewProductionConfig()
	} else {
		conf = zap.NewDevelopmentConfig()
		conf.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		conf.DisableStacktrace = true
	}
	conf.Level = atomLevel

	l, err := conf.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

// Init replaces the global logger. production selects the JSON encoder.
func Init(level Level, production bool) {
	SetLevel(level)
	loggerOnce.Do(func() {})
	mu.Lock()
	defer mu.Unlock()
	if logger != nil {
		_ = logger.Sync()
	}
	logger = build(production)
}

func SetLevel(l Level) {
	atomLevel.SetLevel(toZap(l))
}

// ParseLevel maps a config string to a Level; unknown values yield INFO.
func ParseLevel(s string) Level {
	switch Level(strings.ToUpper(strings.TrimSpace(s))) {
	case LevelDebug:
		return LevelDebug
	case LevelWarn:
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

func Debug(msg string, kv ...any) {
	get().Debugw(msg, kv...)
}

func Info(msg string, kv ...any) {
	get().Infow(msg, kv...)
}

func Warn(msg string, kv ...any) {
	get().Warnw(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	get().Errorw(msg, extended...)
}

// Sync flushes buffered entries. Call once on shutdown.
func Sync() {
	_ = get().Sync()
}

func get() *zap.SugaredLogger {
	initLogger()
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func toZap(l Level) zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
