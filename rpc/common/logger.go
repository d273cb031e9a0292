package common

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// kvmuxLogger implements logger.ILogger on top of a slog.Logger.
// The level is kept per logger, the handler is shared.
type kvmuxLogger struct {
	name   string
	mu     sync.RWMutex
	level  logger.LogLevel
	logger *slog.Logger
}

func (l *kvmuxLogger) SetLevel(level logger.LogLevel) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

func (l *kvmuxLogger) Debugf(format string, args ...interface{}) {
	l.log(logger.DEBUG, slog.LevelDebug, format, args...)
}

func (l *kvmuxLogger) Infof(format string, args ...interface{}) {
	l.log(logger.INFO, slog.LevelInfo, format, args...)
}

func (l *kvmuxLogger) Warningf(format string, args ...interface{}) {
	l.log(logger.WARNING, slog.LevelWarn, format, args...)
}

func (l *kvmuxLogger) Errorf(format string, args ...interface{}) {
	l.log(logger.ERROR, slog.LevelError, format, args...)
}

func (l *kvmuxLogger) Panicf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.logger.Error(msg)
	panic(msg)
}

// log writes the message if the logger is enabled for level.
func (l *kvmuxLogger) log(level logger.LogLevel, slogLevel slog.Level, format string, args ...interface{}) {
	l.mu.RLock()
	enabled := l.level >= level
	l.mu.RUnlock()
	if !enabled {
		return
	}
	l.logger.Log(context.Background(), slogLevel, fmt.Sprintf(format, args...))
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// NewHandler creates the slog handler used by all kvmux loggers.
// Colour is only enabled if w is a terminal.
func NewHandler(w *os.File) slog.Handler {
	return newHandler(colorable.NewColorable(w), !isatty.IsTerminal(w.Fd()))
}

func newHandler(w io.Writer, noColor bool) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		// levels are filtered by kvmuxLogger
		Level:      slog.LevelDebug,
		TimeFormat: time.DateTime,
		NoColor:    noColor,
	})
}

var (
	handlerMu sync.RWMutex
	handler   = NewHandler(os.Stdout)
)

// CreateLogger implements dragonboats logger.Factory.
func CreateLogger(pkgName string) logger.ILogger {
	handlerMu.RLock()
	h := handler
	handlerMu.RUnlock()

	return &kvmuxLogger{
		name:   pkgName,
		level:  logger.INFO,
		logger: slog.New(h).With("pkg", pkgName),
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// LoggerNames lists the named loggers used by kvmux.
var LoggerNames = []string{
	"store",
	"rpc",
	"transport/rpc",
	"dispatch",
}

var factoryOnce sync.Once

// InitLoggers installs the kvmux logger factory and sets the level of all
// kvmux loggers. It may be called more than once to change the level.
func InitLoggers(level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	factoryOnce.Do(func() {
		logger.SetLoggerFactory(CreateLogger)
	})

	for _, name := range LoggerNames {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}
