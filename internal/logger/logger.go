package logger

import (
	"context"
	"os"
	"sync"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu            sync.RWMutex
	defaultLogger *zap.SugaredLogger
)

// Init initializes the global logger
func Init(level string, json bool) {
	_ = InitWithFile(level, json, "")
}

// InitWithFile is Init plus a copy of every entry written to a daily rotated file.
// file is a path such as logs/app.log; rotated files get a date suffix and expire after a week.
func InitWithFile(level string, json bool, file string) error {
	lvl := parseLevel(level)

	var encoder zapcore.Encoder
	if json {
		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoderCfg := zap.NewDevelopmentEncoderConfig()
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), lvl)

	var fileErr error
	if file != "" {
		w, err := rotatelogs.New(
			file+".%Y%m%d",
			rotatelogs.WithLinkName(file),
			rotatelogs.WithRotationTime(24*time.Hour),
			rotatelogs.WithMaxAge(7*24*time.Hour),
		)
		if err != nil {
			fileErr = err
		} else {
			// files always get JSON so they can be shipped as-is
			fileEnc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
			core = zapcore.NewTee(core, zapcore.NewCore(fileEnc, zapcore.AddSync(w), lvl))
		}
	}

	l := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))

	mu.Lock()
	defaultLogger = l.Sugar()
	mu.Unlock()

	if fileErr != nil {
		Warn("log file disabled", "file", file, "error", fileErr)
	}
	return fileErr
}

// SetLogger replaces the global logger. Tests use it with zaptest/observer cores.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defaultLogger = l.WithOptions(zap.AddCallerSkip(1)).Sugar()
	mu.Unlock()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Get returns the default logger
func Get() *zap.SugaredLogger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l == nil {
		Init("info", false)
		mu.RLock()
		l = defaultLogger
		mu.RUnlock()
	}
	return l
}

// WithContext returns a logger with context values
func WithContext(ctx context.Context) *zap.SugaredLogger {
	if rid, ok := ctx.Value(requestIDKey{}).(string); ok && rid != "" {
		return Get().With("request_id", rid)
	}
	return Get()
}

type requestIDKey struct{}

// ContextWithRequestID attaches a request id that WithContext picks up.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// Info logs at info level
func Info(msg string, args ...any) {
	Get().Infow(msg, args...)
}

// Debug logs at debug level
func Debug(msg string, args ...any) {
	Get().Debugw(msg, args...)
}

// Warn logs at warn level
func Warn(msg string, args ...any) {
	Get().Warnw(msg, args...)
}

// Error logs at error level
func Error(msg string, args ...any) {
	Get().Errorw(msg, args...)
}

// Fatal logs at error level and exits
func Fatal(msg string, args ...any) {
	Get().Errorw(msg, args...)
	_ = Get().Sync()
	os.Exit(1)
}

// With returns a logger with the given attributes
func With(args ...any) *zap.SugaredLogger {
	return Get().With(args...)
}

// Sync flushes buffered log entries.
func Sync() {
	_ = Get().Sync()
}
