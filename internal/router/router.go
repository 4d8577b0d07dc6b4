package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-credit-go/internal/access"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/profile"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/setting"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-credit-go/pkg/utilities"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// RequestIDMiddleware tags every request with a snowflake id, echoed in
// X-Request-ID. A caller supplied id is kept.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = utilities.NewSnowflakeID()
			}
			w.Header().Set("X-Request-ID", id)
			next.ServeHTTP(w, r.WithContext(utilities.WithRequestID(r.Context(), id)))
		})
	}
}

// LoggingMiddleware returns a middleware that logs requests at debug level using the provided sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"request_id", utilities.RequestID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware returns a middleware that sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			// responses carry account data
			w.Header().Set("Cache-Control", "no-store")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthMiddleware resolves the bearer token to the active session and
// attaches it to the request context.
func AuthMiddleware(mgr *session.Manager, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := session.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				utilities.WriteError(w, r, apperr.Unauthenticated())
				return
			}
			s, err := mgr.Resolve(token)
			if err != nil {
				logger.Infow("request refused", "path", r.URL.Path, "err", err)
				utilities.WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), s)))
		})
	}
}

// Require rejects sessions whose role lacks c. It must run after AuthMiddleware.
func Require(c access.Capability, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := session.FromContext(r.Context())
			if !ok {
				utilities.WriteError(w, r, apperr.Unauthenticated())
				return
			}
			if !s.Can(c) {
				metrics.PermissionDenials.WithLabelValues(c.String()).Inc()
				logger.Warnw("capability missing", "username", s.User.Username, "role", s.User.Role, "capability", c.String(), "path", r.URL.Path)
				utilities.WriteError(w, r, apperr.PermissionDenied("You don't have permission to "+c.String()+"."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Deps are the handlers mounted by RegisterRoutes.
type Deps struct {
	Logger   *zap.SugaredLogger
	BasePath string
	Sessions *session.Manager
	Session  *session.Handler
	Profiles *profile.Handler
	Settings *setting.Handler
	Users    *user.Handler
}

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
func RegisterRoutes(d Deps) http.Handler {
	mux := http.NewServeMux()
	base := d.BasePath
	auth := AuthMiddleware(d.Sessions, d.Logger)

	// authenticated route, optionally gated on capabilities
	handle := func(pattern string, h http.HandlerFunc, caps ...access.Capability) {
		var next http.Handler = h
		for i := len(caps) - 1; i >= 0; i-- {
			next = Require(caps[i], d.Logger)(next)
		}
		method, path, _ := strings.Cut(pattern, " ")
		mux.Handle(method+" "+base+path, auth(next))
	}

	mux.HandleFunc("GET "+base+"/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET "+base+"/metrics", promhttp.Handler())
	mux.HandleFunc("POST "+base+"/login", d.Session.Login)
	handle("POST /logout", d.Session.Logout)
	handle("GET /me", d.Session.Me)

	handle("GET /settings", d.Settings.List)

	handle("GET /customers", d.Profiles.ListCustomers)
	handle("GET /customers/{id}", d.Profiles.GetCustomer)
	handle("POST /customers/{id}/rows", d.Profiles.AddRow, access.CapEdit)
	handle("PUT /customers/{id}/rows", d.Profiles.UpdateRows, access.CapEdit)
	handle("DELETE /customers/{id}/rows/{index}", d.Profiles.DeleteRow, access.CapDelete)
	handle("GET /customers/{id}/score", d.Profiles.Score)
	handle("GET /customers/{id}/simulation", d.Profiles.GetSimulation, access.CapSimulate)
	handle("PUT /customers/{id}/simulation", d.Profiles.UpdateSimulation, access.CapSimulate)
	handle("DELETE /customers/{id}/simulation", d.Profiles.ResetSimulation, access.CapSimulate)
	handle("GET /customers/{id}/plan", d.Profiles.Plan, access.CapSimulate)

	handle("POST /undo", d.Profiles.Undo, access.CapEdit)
	handle("POST /redo", d.Profiles.Redo, access.CapEdit)
	handle("POST /refresh", d.Profiles.Refresh, access.CapEdit)
	handle("GET /history-depth", d.Profiles.HistoryDepth)
	handle("GET /export", d.Profiles.Export, access.CapExport)
	handle("GET /overview", d.Profiles.Overview)

	handle("GET /users", d.Users.List, access.CapManageUsers)
	handle("POST /users", d.Users.Create, access.CapManageUsers)
	handle("PATCH /users/{username}", d.Users.Update, access.CapManageUsers)
	handle("DELETE /users/{username}", d.Users.Delete, access.CapManageUsers)

	// request id first so every log line and error body carries it
	return RequestIDMiddleware()(LoggingMiddleware(d.Logger)(SecurityHeadersMiddleware()(mux)))
}
