package log

import (
	"io"
	"os"
	"sync/atomic"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/rs/zerolog"
)

// Level represents the logging level.
type Level int32

const (
	// DebugLevel logs are voluminous and usually disabled in production.
	DebugLevel Level = iota
	// InfoLevel is the default logging priority.
	InfoLevel
	// WarnLevel logs are more important than Info but need no individual
	// human review.
	WarnLevel
	// ErrorLevel logs are high-priority.
	ErrorLevel
)

var (
	loggerStore atomic.Value // of log.Logger
	helperStore atomic.Value // of *log.Helper
)

func init() {
	Init(os.Stderr, InfoLevel)
}

// Init builds the global logger at the given level. Safe to call again to
// reconfigure (e.g. from bootstrap after reading the log config).
func Init(w io.Writer, level Level) {
	var zl zerolog.Level
	switch level {
	case DebugLevel:
		zl = zerolog.DebugLevel
	case WarnLevel:
		zl = zerolog.WarnLevel
	case ErrorLevel:
		zl = zerolog.ErrorLevel
	default:
		zl = zerolog.InfoLevel
	}
	base := zeroLogger{logger: zerolog.New(w).Level(zl).With().Timestamp().Logger()}
	logger := log.With(base, "caller", log.DefaultCaller)
	loggerStore.Store(logger)
	helperStore.Store(log.NewHelper(logger))
}

// Logger returns the global Kratos logger.
func Logger() log.Logger {
	return loggerStore.Load().(log.Logger)
}

// Helper returns the global logging helper.
func Helper() *log.Helper {
	return helperStore.Load().(*log.Helper)
}

// Debugf logs at debug level through the global helper.
func Debugf(format string, args ...interface{}) { Helper().Debugf(format, args...) }

// Infof logs at info level through the global helper.
func Infof(format string, args ...interface{}) { Helper().Infof(format, args...) }

// Warnf logs at warn level through the global helper.
func Warnf(format string, args ...interface{}) { Helper().Warnf(format, args...) }

// Errorf logs at error level through the global helper.
func Errorf(format string, args ...interface{}) { Helper().Errorf(format, args...) }
