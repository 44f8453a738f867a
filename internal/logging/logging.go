package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/clog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/masq"
)

type ctxKey struct{}

var (
	mu            sync.RWMutex
	defaultLogger = slog.Default()
	sentryEnabled bool
)

// Options selects the handler built by Configure.
type Options struct {
	Format string // console or json
	Level  string
	Writer io.Writer
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a logger. Secrets tagged `masq:"secret"` and token-like fields
// are redacted in both formats.
func New(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	level := parseLevel(opts.Level)
	redact := masq.New(
		masq.WithTag("secret"),
		masq.WithFieldName("Authorization"),
		masq.WithFieldName("APIKey"),
		masq.WithFieldName("Token"),
	)
	if opts.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: redact,
		}))
	}
	return slog.New(clog.New(
		clog.WithWriter(w),
		clog.WithLevel(level),
		clog.WithColor(w == os.Stderr || w == os.Stdout),
		clog.WithReplaceAttr(redact),
	))
}

// Configure replaces the process-wide logger.
func Configure(opts Options) *slog.Logger {
	l := New(opts)
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
	return l
}

func Default() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// With attaches logger to ctx.
func With(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// From returns the logger carried by ctx, or the default one.
func From(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return Default()
}

// InitSentry enables error reporting. An empty dsn leaves it off.
func InitSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	}); err != nil {
		return goerr.Wrap(err, "init sentry")
	}
	mu.Lock()
	sentryEnabled = true
	mu.Unlock()
	return nil
}

// Flush drains pending Sentry events before shutdown.
func Flush() {
	mu.RLock()
	enabled := sentryEnabled
	mu.RUnlock()
	if enabled {
		sentry.Flush(2 * time.Second)
	}
}

// Error logs err with its goerr values and stack, and forwards it to Sentry
// when configured.
func Error(ctx context.Context, err error, msg string, args ...any) {
	if err == nil {
		return
	}
	logger := From(ctx)
	var ge *goerr.Error
	if errors.As(err, &ge) {
		args = append(args, "error", err.Error(), "values", ge.Values(), "stack", ge.Stacks())
	} else {
		args = append(args, "error", err.Error())
	}
	logger.Error(msg, args...)

	mu.RLock()
	enabled := sentryEnabled
	mu.RUnlock()
	if enabled {
		hub := sentry.GetHubFromContext(ctx)
		if hub == nil {
			hub = sentry.CurrentHub()
		}
		hub.CaptureException(err)
	}
}
