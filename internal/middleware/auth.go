package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/bike-service/internal/models"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	IdentityContextKey  contextKey = "identity"
	RequestIDContextKey contextKey = "request_id"
)

// IdentityResolver turns a presented bearer token into the caller identity.
type IdentityResolver interface {
	ExtractTokenFromHeader(authHeader string) (string, error)
	Resolve(token string) (models.Identity, error)
}

// AuthMiddleware provides JWT authentication middleware
type AuthMiddleware struct {
	resolver IdentityResolver
	logger   log.FieldLogger
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(resolver IdentityResolver, logger log.FieldLogger) *AuthMiddleware {
	return &AuthMiddleware{
		resolver: resolver,
		logger:   logger,
	}
}

// Authenticate validates the bearer token and stores the identity in the request context
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeMessage(w, http.StatusUnauthorized, "Invalid or missing token")
			return
		}

		token, err := m.resolver.ExtractTokenFromHeader(authHeader)
		if err != nil {
			m.logger.WithError(err).WithField("path", r.URL.Path).Debug("Rejected authorization header")
			writeMessage(w, http.StatusUnauthorized, "Invalid or missing token")
			return
		}

		identity, err := m.resolver.Resolve(token)
		if err != nil {
			m.logger.WithError(err).WithField("path", r.URL.Path).Debug("Rejected token")
			writeMessage(w, http.StatusUnauthorized, "Invalid or missing token")
			return
		}

		ctx := context.WithValue(r.Context(), IdentityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole only lets callers holding one of roles through
func (m *AuthMiddleware) RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := GetIdentityFromContext(r.Context())
			if !ok {
				writeMessage(w, http.StatusUnauthorized, "Invalid or missing token")
				return
			}

			for _, role := range roles {
				if identity.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeMessage(w, http.StatusForbidden, "Access denied")
		})
	}
}

// GetIdentityFromContext extracts the caller identity from request context
func GetIdentityFromContext(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(IdentityContextKey).(models.Identity)
	return identity, ok
}

// RateLimitMiddleware provides basic rate limiting
type RateLimitMiddleware struct {
	requests  map[string][]int64 // IP -> timestamps
	lastSweep int64
	mu        sync.Mutex
	now       func() time.Time
	logger    log.FieldLogger
}

// NewRateLimitMiddleware creates a new rate limiting middleware
func NewRateLimitMiddleware(logger log.FieldLogger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		requests: make(map[string][]int64),
		now:      time.Now,
		logger:   logger,
	}
}

// RateLimit allows at most maxRequests per client IP within window
func (m *RateLimitMiddleware) RateLimit(maxRequests int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := getClientIP(r)

			now := m.now().UnixNano()
			windowStart := now - window.Nanoseconds()

			m.mu.Lock()
			if now-m.lastSweep >= window.Nanoseconds() {
				m.sweep(windowStart)
				m.lastSweep = now
			}

			var valid []int64
			for _, ts := range m.requests[clientIP] {
				if ts > windowStart {
					valid = append(valid, ts)
				}
			}

			if len(valid) >= maxRequests {
				m.requests[clientIP] = valid
				m.mu.Unlock()
				m.logger.WithFields(log.Fields{"client_ip": clientIP, "path": r.URL.Path}).Warn("Rate limit exceeded")
				writeMessage(w, http.StatusTooManyRequests, "Too many requests")
				return
			}

			m.requests[clientIP] = append(valid, now)

			m.mu.Unlock()

			next.ServeHTTP(w, r)
		})
	}
}

// sweep drops clients with no request after windowStart. Callers hold mu.
func (m *RateLimitMiddleware) sweep(windowStart int64) {
	for ip, timestamps := range m.requests {
		if len(timestamps) == 0 || timestamps[len(timestamps)-1] <= windowStart {
			delete(m.requests, ip)
		}
	}
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	ip := r.RemoteAddr
	if colonIndex := strings.LastIndex(ip, ":"); colonIndex != -1 {
		ip = ip[:colonIndex]
	}
	return ip
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
