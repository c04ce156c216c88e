package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/denisok6893-rgb/travel-matching/internal/logging"
	"github.com/denisok6893-rgb/travel-matching/internal/metrics"
)

const (
	requestIDHeader = "X-Request-ID"
	maxRequestIDLen = 128
)

// requestID accepts a caller supplied X-Request-ID or generates a uuid, echoes
// it back and attaches a request scoped zerolog logger to the context.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		l := logging.Logger().With().Str("request_id", id).Logger()
		ctx := l.WithContext(r.Context())
		ctx = context.WithValue(ctx, chimiddleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// instrument records Prometheus request metrics and writes one access log
// line per request. The route label is chi's pattern, not the raw path.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routeLabel(chi.RouteContext(r.Context()))
		d := time.Since(start)
		metrics.RecordAPIRequest(r.Method, route, strconv.Itoa(status), d)

		ev := zerolog.Ctx(r.Context()).Info()
		if status >= 500 {
			ev = zerolog.Ctx(r.Context()).Error()
		}
		ev.Str("method", r.Method).
			Str("route", route).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", d).
			Msg("request")
	})
}

// requireUsers guards routes that need the persistent user store.
func (s *Server) requireUsers(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.users == nil {
			writeError(w, http.StatusServiceUnavailable, "storage_disabled", "user storage is not configured")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// routeLabel is chi's route pattern without a trailing slash, so a mounted
// "/x" and "/x/" share one series.
func routeLabel(rc *chi.Context) string {
	if rc == nil {
		return "unmatched"
	}
	p := rc.RoutePattern()
	if p == "" {
		return "unmatched"
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}
