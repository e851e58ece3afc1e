// Structured logging utility used internally all over Wishful.

package log

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Context keys WithCtx reads, set by globalcontext.UniqueIDMiddleware and the auth middleware.
const (
	requestIDKey = "ReqID"
	usernameKey  = "Username"
)

// Output of Logger based on what environment Wishful is being run on.
var output io.Writer

func init() {
	// setting configurations for logger
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if strings.EqualFold(os.Getenv("ENV"), "dev") {
		// Set output of Logger to prettified ConsoleOutput for local environment
		output = zerolog.ConsoleWriter{Out: os.Stdout}
	} else {
		// ConsoleWriter prettifies log, inefficient in prod
		output = os.Stdout
	}
}

// Logger acts as a wrapper for zerolog with custom features.
type Logger interface {
	// WithCtx returns a sub-logger based of root logger with added context.
	WithCtx(context.Context) Logger
	// Info level log starts a log message with INFO level.
	Info() *zerolog.Event
	// Debug level log starts a log message with DEBUG level.
	Debug() *zerolog.Event
	// Warn level log starts a log message with WARNING level.
	Warn() *zerolog.Event
	// Error level log starts a log message with ERROR level.
	Error() *zerolog.Event
	// Fatal level log starts a log message with FATAL level.
	Fatal() *zerolog.Event
}

type logger struct {
	zerolog.Logger
}

// Creates a new logger instance for other packages to use the internal zerolog.
func New(version string) Logger {
	return NewWithWriter(version, output)
}

// NewWithWriter is New with an explicit sink, the CLI client logs to stderr with it.
func NewWithWriter(version string, w io.Writer) Logger {
	return &logger{zerolog.New(w).With().Str("Version", version).Timestamp().Caller().Stack().Logger()}
}

// WithCtx returns a sub-logger carrying the request id and the authenticated username found in ctx.
// gin.Context works as ctx, so do the contexts built for websocket sessions.
func (l *logger) WithCtx(ctx context.Context) Logger {
	if ctx == nil {
		return l
	}
	requestID, _ := ctx.Value(requestIDKey).(string)
	username, _ := ctx.Value(usernameKey).(string)
	if requestID == "" && username == "" {
		return l
	}
	sub := l.With()
	if requestID != "" {
		sub = sub.Str("ReqID", requestID)
	}
	if username != "" {
		sub = sub.Str("Username", username)
	}
	return &logger{sub.Logger()}
}
