package logger

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry/v2"
	slogzerolog "github.com/samber/slog-zerolog/v2"
)

// Logger is the logging facade used across the application.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	WithComponent(name string) Logger
}

type Opts struct {
	Env       string
	SentryUrl string
}

type Impl struct {
	slog *slog.Logger
}

func New(opts Opts) *Impl {
	level := slog.LevelDebug
	zerologLogger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	if opts.Env == "production" {
		level = slog.LevelInfo
		zerologLogger = zerolog.New(os.Stdout)
	}
	zerologLogger = zerologLogger.With().Timestamp().Logger()

	handlers := []slog.Handler{
		slogzerolog.Option{Level: level, Logger: &zerologLogger}.NewZerologHandler(),
	}

	if opts.SentryUrl != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         opts.SentryUrl,
			Environment: opts.Env,
		}); err == nil {
			handlers = append(handlers, slogsentry.Option{Level: slog.LevelError}.NewSentryHandler())
		} else {
			zerologLogger.Warn().Err(err).Msg("Failed to initialize sentry, continuing without it")
		}
	}

	return &Impl{
		slog: slog.New(slogmulti.Fanout(handlers...)),
	}
}

var _ Logger = (*Impl)(nil)

func (l *Impl) Debug(msg string, args ...any) {
	l.slog.Debug(msg, args...)
}

func (l *Impl) Info(msg string, args ...any) {
	l.slog.Info(msg, args...)
}

func (l *Impl) Warn(msg string, args ...any) {
	l.slog.Warn(msg, args...)
}

func (l *Impl) Error(msg string, args ...any) {
	l.slog.Error(msg, args...)
}

func (l *Impl) WithComponent(name string) Logger {
	return &Impl{slog: l.slog.With("component", name)}
}

// Printf implements fx's printer so the DI container logs through us.
func (l *Impl) Printf(format string, args ...any) {
	l.slog.Debug(fmt.Sprintf(format, args...))
}
