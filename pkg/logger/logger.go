package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Leveled logger shared by the client, the CLI and the dev backend.
// - printf-style helpers (Debugf/Infof/Warnf/Errorf/Fatalf) and Init(level)
// - L() exposes the underlying zerolog.Logger for structured fields

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var (
	mu     sync.RWMutex
	output io.Writer = os.Stdout
	level  Level     = LevelInfo
	logger           = build(output, level)
)

func build(w io.Writer, l Level) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	return zerolog.New(w).Level(toZerolog(l)).With().Timestamp().Logger()
}

func toZerolog(l Level) zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelFatal:
		return zerolog.FatalLevel
	}
	return zerolog.InfoLevel
}

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Call early during startup. Default level is Info.
func Init(l string) {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		level = LevelDebug
	case "warn", "warning":
		level = LevelWarn
	case "error":
		level = LevelError
	case "fatal":
		level = LevelFatal
	default:
		level = LevelInfo
	}
	logger = build(output, level)
}

// SetOutput redirects log output (the CLI logs to stderr, tests to a buffer).
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	logger = build(output, level)
}

// L returns the current structured logger.
func L() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := logger
	return &l
}

func Debugf(format string, v ...interface{}) { L().Debug().Msgf(format, v...) }
func Infof(format string, v ...interface{})  { L().Info().Msgf(format, v...) }
func Warnf(format string, v ...interface{})  { L().Warn().Msgf(format, v...) }
func Errorf(format string, v ...interface{}) { L().Error().Msgf(format, v...) }

func Fatalf(format string, v ...interface{}) {
	L().WithLevel(zerolog.FatalLevel).Msgf(format, v...)
	os.Exit(1)
}

func Debug(v string) { Debugf("%s", v) }
func Info(v string)  { Infof("%s", v) }
func Warn(v string)  { Warnf("%s", v) }
func Error(v string) { Errorf("%s", v) }

// LevelString returns the current level as text.
func LevelString() string {
	mu.RLock()
	defer mu.RUnlock()
	switch level {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	}
	return "info"
}
