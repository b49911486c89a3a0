// Package logging holds the process-wide structured logger used by the CLI
// and the HTTP server: zerolog JSON lines, optionally rotated by lumberjack.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu     sync.RWMutex
	logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

// InitLogger configures JSON logging. An empty file logs to stderr; otherwise
// the file is rotated at maxSizeMB, keeping maxBackups files for maxAgeDays.
// An unknown level falls back to info.
func InitLogger(file string, maxSizeMB, maxBackups, maxAgeDays int, compress bool, level string) {
	var w io.Writer = os.Stderr
	if file != "" {
		w = &lumberjack.Logger{
			Filename:   file,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   compress,
		}
	}
	set(zerolog.New(w).With().Timestamp().Logger().Level(parseLevel(level)))
}

// InitConsole configures human-readable logging to w, for interactive use.
func InitConsole(w io.Writer, level string) {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05", NoColor: !isTerminal(w)}
	set(zerolog.New(cw).With().Timestamp().Logger().Level(parseLevel(level)))
}

// SetLogLevel changes the level of the current logger.
func SetLogLevel(level string) {
	mu.Lock()
	defer mu.Unlock()
	logger = logger.Level(parseLevel(level))
}

// Logger returns the current logger, e.g. to hand it to a library.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// SetLoggerForTest replaces the logger.
func SetLoggerForTest(l zerolog.Logger) {
	set(l)
}

func set(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// Debug logs msg with key/value pairs at debug level.
func Debug(msg string, kv ...any) {
	l := Logger()
	withFields(l.Debug(), kv).Msg(msg)
}

// Info logs msg with key/value pairs at info level.
func Info(msg string, kv ...any) {
	l := Logger()
	withFields(l.Info(), kv).Msg(msg)
}

// Warn logs msg with key/value pairs at warn level.
func Warn(msg string, kv ...any) {
	l := Logger()
	withFields(l.Warn(), kv).Msg(msg)
}

// Error logs msg with key/value pairs at error level.
func Error(msg string, kv ...any) {
	l := Logger()
	withFields(l.Error(), kv).Msg(msg)
}

// withFields adds alternating key/value pairs. A trailing key without a value
// is dropped.
func withFields(e *zerolog.Event, kv []any) *zerolog.Event {
	if e == nil {
		return nil
	}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		switch v := kv[i+1].(type) {
		case error:
			e = e.AnErr(key, v)
		default:
			e = e.Interface(key, v)
		}
	}
	return e
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
