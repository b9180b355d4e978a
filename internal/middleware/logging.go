package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mmynk/receiptsplit/internal/telemetry"
)

// RequestLogger logs every request once it completes and records it in metrics.
// It logs the method, path, status, user ID and duration; server errors are
// logged at error level and client errors at warn.
func RequestLogger(logger *slog.Logger, metrics *telemetry.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			// RequireAuth runs further down the chain and fills the slot.
			slot := &identitySlot{}
			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), identityKey, slot)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			duration := time.Since(start)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			metrics.ObserveRequest(r.Method, route, status, duration)

			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "Request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"user_id", slot.userID,
				"request_id", chimw.GetReqID(r.Context()),
				"duration_ms", duration.Milliseconds(),
			)
		})
	}
}

const identityKey contextKey = "identity"

type identitySlot struct {
	userID string
}

func recordIdentity(ctx context.Context, userID string) {
	if slot, ok := ctx.Value(identityKey).(*identitySlot); ok {
		slot.userID = userID
	}
}
