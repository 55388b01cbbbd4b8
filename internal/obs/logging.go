package obs

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/backend-quotes/internal/common"
)

// NewLogger configures a zerolog logger using the provided format and level.
func NewLogger(format, level string) zerolog.Logger {
	return newLogger(os.Stdout, format, level)
}

func newLogger(writer io.Writer, format, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	out := writer
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console", "text":
		out = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

// RequestLogger writes one access log line per request. Handlers reach the request-scoped
// logger through zerolog.Ctx. Requests whose path starts with one of SkipPrefixes are
// served without logging.
type RequestLogger struct {
	Logger       zerolog.Logger
	SkipPrefixes []string
}

// Middleware implements chi middleware for structured request logs.
func (l RequestLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, prefix := range l.SkipPrefixes {
			if strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}

		fields := l.Logger.With().Str("request_id", middleware.GetReqID(r.Context()))
		if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
			fields = fields.Str("trace_id", sc.TraceID().String()).Str("span_id", sc.SpanID().String())
		}
		scoped := fields.Logger()

		recorder := newResponseRecorder(w)
		start := time.Now()
		next.ServeHTTP(recorder, r.WithContext(scoped.WithContext(r.Context())))

		var evt *zerolog.Event
		switch {
		case recorder.status >= http.StatusInternalServerError:
			evt = scoped.Error()
		case recorder.status >= http.StatusBadRequest:
			evt = scoped.Warn()
		default:
			evt = scoped.Info()
		}
		evt = evt.
			Str("method", r.Method).
			Str("route", routePattern(r, r.URL.Path)).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Int64("bytes", recorder.bytes).
			Str("remote_addr", common.ClientIP(r))
		if ua := r.UserAgent(); ua != "" {
			evt = evt.Str("user_agent", ua)
		}
		evt.Msg("http_request")
	})
}

// TaskLogger adapts zerolog to the asynq.Logger interface.
type TaskLogger struct {
	Logger zerolog.Logger
}

func (l TaskLogger) Debug(args ...any) { l.Logger.Debug().Msg(fmt.Sprint(args...)) }
func (l TaskLogger) Info(args ...any)  { l.Logger.Info().Msg(fmt.Sprint(args...)) }
func (l TaskLogger) Warn(args ...any)  { l.Logger.Warn().Msg(fmt.Sprint(args...)) }
func (l TaskLogger) Error(args ...any) { l.Logger.Error().Msg(fmt.Sprint(args...)) }
func (l TaskLogger) Fatal(args ...any) { l.Logger.Fatal().Msg(fmt.Sprint(args...)) }
