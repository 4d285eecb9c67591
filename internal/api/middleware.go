package api

import (
	"log/slog"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// NewLoggingMiddleware logs every request once it completes. The level follows the
// status code; event streams log at debug since they end only on disconnect.
func NewLoggingMiddleware(logger *slog.Logger) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		start := time.Now()

		attrs := []slog.Attr{
			slog.String("method", ctx.Method()),
			slog.String("path", ctx.URL().Path),
			slog.String("remote_addr", ctx.RemoteAddr()),
		}
		if ua := ctx.Header("User-Agent"); ua != "" {
			attrs = append(attrs, slog.String("user_agent", ua))
		}

		next(ctx)

		status := ctx.Status()
		attrs = append(attrs,
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
		)

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		case strings.HasSuffix(ctx.URL().Path, "/stream") || strings.HasSuffix(ctx.URL().Path, "/events"):
			level = slog.LevelDebug
		}
		logger.LogAttrs(ctx.Context(), level, "HTTP request completed", attrs...)
	}
}
