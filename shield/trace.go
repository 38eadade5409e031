package shield

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/exametl/idgen"
	"github.com/hazyhaar/exametl/kit"
)

var requestID = idgen.Prefixed("req_", idgen.Default)

// RequestID assigns every request an id, taken from X-Request-ID when the
// client sent one. The id goes into the context (kit.RequestIDKey), the
// response headers and a per-request logger stored under LoggerKey.
func RequestID(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" || len(id) > 128 {
				id = requestID()
			}
			ctx := kit.WithRequestID(kit.WithTransport(r.Context(), "http"), id)
			w.Header().Set("X-Request-ID", id)

			reqLogger := logger.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			ctx = context.WithValue(ctx, LoggerKey, reqLogger)
			reqLogger.Debug("request")

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Recover turns a handler panic into a 500 and logs it.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				GetLogger(r.Context()).Error("handler panic", "panic", rec)
				http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
