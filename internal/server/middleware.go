package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/wardrounds/rounds-cli/internal/auth"
	"github.com/wardrounds/rounds-cli/internal/model"
)

type contextKey string

const claimsKey contextKey = "claims"

// claimsFrom returns the verified token claims set by the authenticate
// middleware.
func claimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey).(*auth.Claims)
	return c
}

// authenticate verifies the bearer token and stores its claims on the request
// context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			writeError(w, http.StatusUnauthorized, "invalid authorization format")
			return
		}

		claims, err := s.tokens.Verify(parts[1])
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin gates admin-only routes.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFrom(r.Context())
		if claims == nil || claims.Role != model.RoleAdmin {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimit applies a per-client-IP token bucket.
func (s *Server) rateLimit() func(http.Handler) http.Handler {
	perMin := s.cfg.RateLimitPerMin
	if perMin <= 0 {
		perMin = 120
	}
	burst := s.cfg.RateLimitBurst
	if burst <= 0 {
		burst = 30
	}

	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	limiterFor := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters[ip]
		if !ok {
			l = rate.NewLimiter(rate.Limit(float64(perMin)/60.0), burst)
			limiters[ip] = l
		}
		return l
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			if !limiterFor(ip).Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// redactedFields are request-body keys whose values never reach the audit log.
var redactedFields = map[string]bool{
	"password": true,
	"pin":      true,
	"nightPin": true,
	"token":    true,
}

const maxAuditBody = 4096

// redactBody strips credential fields from a JSON request body before it is
// written to the audit log. Non-JSON bodies are dropped entirely.
func redactBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return ""
	}
	redactValue(doc)
	out, err := json.Marshal(doc)
	if err != nil {
		return ""
	}
	if len(out) > maxAuditBody {
		// A mid-token cut would store invalid JSON; keep a valid marker.
		return `{"truncated":true}`
	}
	return string(out)
}

func redactValue(v any) {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if redactedFields[k] {
				t[k] = "[redacted]"
				continue
			}
			redactValue(val)
		}
	case []any:
		for _, item := range t {
			redactValue(item)
		}
	}
}

// audit records every successful mutating call. The write is fire-and-forget;
// an audit failure is logged but never fails the request it describes.
func (s *Server) audit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(io.LimitReader(r.Body, 1<<20))
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		if ww.Status() >= 300 {
			return
		}

		claims := claimsFrom(r.Context())
		if claims == nil {
			return
		}

		// Route params are populated by the time the handler has run.
		var resourceID string
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			resourceID = rctx.URLParam("id")
		}

		entry := model.AuditEntry{
			UserID:        claims.Subject,
			Action:        r.Method,
			Resource:      r.URL.Path,
			ResourceID:    resourceID,
			SanitizedBody: redactBody(body),
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.store.AppendAudit(ctx, entry); err != nil {
				zap.L().Warn("audit write failed", zap.Error(err))
			}
		}()
	})
}
