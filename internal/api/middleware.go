package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/airsial/opshub/internal/metrics"
	"github.com/airsial/opshub/internal/session"
	"github.com/airsial/opshub/pkg/logger"
)

// SessionCookie is the cookie carrying the session token. The same token is
// also accepted as an Authorization bearer value.
const SessionCookie = "opshub_session"

type contextKey string

const principalKey contextKey = "principal"

// Middleware contains the HTTP middleware stack.
type Middleware struct {
	sessions *session.Manager
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

// NewMiddleware creates the middleware stack. metrics may be nil.
func NewMiddleware(sessions *session.Manager, m *metrics.Metrics, log *logger.Logger) *Middleware {
	return &Middleware{
		sessions: sessions,
		metrics:  m,
		logger:   log.Named("api-middleware"),
	}
}

// Logger logs each HTTP request with its final status and timing.
func (m *Middleware) Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			m.logger.Debug("HTTP request",
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.String("remote_addr", r.RemoteAddr),
				logger.Int("status", ww.Status()),
				logger.Int("bytes", ww.BytesWritten()),
				logger.Duration("duration", time.Since(start)),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// Metrics records request counts and latency per route pattern, so
// /records/maintenance and /records/safety share one series.
func (m *Middleware) Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		m.metrics.ObserveRequest(r.Method, route, ww.Status(), time.Since(start).Seconds())
	})
}

// CORS adds CORS headers for allowed origins and answers preflights.
func (m *Middleware) CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			if len(allowedOrigins) == 0 {
				allowed = true
			} else if origin != "" {
				for _, allowedOrigin := range allowedOrigins {
					if allowedOrigin == "*" || allowedOrigin == origin {
						allowed = true
						break
					}
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequestID adds a request ID to the context.
func (m *Middleware) RequestID(next http.Handler) http.Handler {
	return middleware.RequestID(next)
}

// Recoverer recovers from handler panics.
func (m *Middleware) Recoverer(next http.Handler) http.Handler {
	return middleware.Recoverer(next)
}

// Authenticate resolves the session token from the cookie or Authorization
// header and stores the session in the request context. Requests without a
// live session get 401.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		sess, ok := m.sessions.Get(token)
		if !ok {
			respondError(w, http.StatusUnauthorized, "session expired or unknown")
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// principalFrom returns the authenticated session stored by Authenticate.
func principalFrom(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(principalKey).(*session.Session)
	return sess, ok
}
