package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Logger struct {
	zl zerolog.Logger
}

type Config struct {
	Level    string
	Service  string
	Pretty   bool
	Output   io.Writer
	NoCaller bool
}

var (
	defaultLogger *Logger
	once          sync.Once
)

func New() *Logger {
	return NewFromConfig(Config{})
}

func NewFromConfig(cfg Config) *Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var out io.Writer = os.Stdout
	if cfg.Output != nil {
		out = cfg.Output
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	ctx := zerolog.New(out).With().Timestamp()
	if !cfg.NoCaller {
		ctx = ctx.Caller()
	}
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}

	return &Logger{zl: ctx.Logger().Level(ParseLevel(cfg.Level))}
}

// ParseLevel falls back to info for unknown names.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Nop discards everything; used by tests and optional collaborators.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func InitDefault(cfg Config) *Logger {
	once.Do(func() {
		defaultLogger = NewFromConfig(cfg)
	})
	return defaultLogger
}

func Default() *Logger {
	if defaultLogger == nil {
		return InitDefault(Config{})
	}
	return defaultLogger
}

func (l *Logger) WithOutput(w io.Writer) *Logger {
	return &Logger{zl: l.zl.Output(w)}
}

func (l *Logger) WithLevel(level zerolog.Level) *Logger {
	return &Logger{zl: l.zl.Level(level)}
}

// With returns a child logger carrying one extra string field.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{zl: l.zl.With().Str(key, value).Logger()}
}

func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zl
}

func (l *Logger) Debug(msg string) {
	l.zl.Debug().Msg(msg)
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	l.zl.Debug().Msgf(format, v...)
}

func (l *Logger) Info(msg string) {
	l.zl.Info().Msg(msg)
}

func (l *Logger) Infof(format string, v ...interface{}) {
	l.zl.Info().Msgf(format, v...)
}

func (l *Logger) Warn(msg string) {
	l.zl.Warn().Msg(msg)
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	l.zl.Warn().Msgf(format, v...)
}

func (l *Logger) Error(err error, msg string) {
	l.zl.Error().Err(err).Msg(msg)
}

func (l *Logger) Errorf(err error, format string, v ...interface{}) {
	l.zl.Error().Err(err).Msgf(format, v...)
}

func (l *Logger) Fatal(err error, msg string) {
	l.zl.Fatal().Err(err).Msg(msg)
}

func (l *Logger) Fatalf(err error, format string, v ...interface{}) {
	l.zl.Fatal().Err(err).Msgf(format, v...)
}

// Fields logs msg at info level with structured key/value pairs.
func (l *Logger) Fields(msg string, fields map[string]interface{}) {
	l.zl.Info().Fields(fields).Msg(msg)
}
