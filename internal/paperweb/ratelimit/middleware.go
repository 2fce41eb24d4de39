package ratelimit

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Options configures one rate limit middleware instance
type Options struct {
	// LimitType selects the registered limit to enforce
	LimitType string
	// SkipLimitCheck bypasses the limit for matching requests
	SkipLimitCheck func(r *http.Request) bool
}

// Middleware creates an HTTP middleware enforcing the named limit, answering
// over-limit requests with 429 and a Retry-After header.
func Middleware(service Service, logger *slog.Logger, options Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := middleware.GetReqID(r.Context())
			reqLogger := logger.With("requestId", reqID)

			if options.SkipLimitCheck != nil && options.SkipLimitCheck(r) {
				next.ServeHTTP(w, r)
				return
			}

			key := LimitKey{
				Type:     options.LimitType,
				RemoteIP: realIP(r),
				Endpoint: r.URL.Path,
			}

			if err := service.Allow(r.Context(), key); err != nil {
				if errors.Is(err, ErrLimitExceeded) {
					handleLimitExceeded(w, r, service.GetLimit(key.Type), reqLogger)
					return
				}
				reqLogger.Error("rate limit check failed",
					"error", err,
					"type", options.LimitType,
					"path", r.URL.Path,
				)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// handleLimitExceeded sends a 429 Too Many Requests response with
// appropriate headers and a helpful error message
func handleLimitExceeded(w http.ResponseWriter, r *http.Request, limit Limit, logger *slog.Logger) {
	retryAfter := int(limit.Period.Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}

	logger.Warn("rate limit exceeded",
		"path", r.URL.Path,
		"method", r.Method,
		"remoteIP", realIP(r),
		"retryAfter", retryAfter,
	)

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	fmt.Fprintf(w, `{"error":"rate_limit_exceeded","message":"Too many requests, please retry after %d seconds"}`, retryAfter)
}

// realIP extracts the real client IP address using standard headers
func realIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if parts := strings.Split(xff, ","); len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}

	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}

	return host
}

// CommonRateLimiters provides pre-configured rate limit middleware for the
// standard endpoint groups
type CommonRateLimiters struct {
	service Service
	logger  *slog.Logger
}

// NewCommonRateLimiters creates a provider of standard rate limiters
func NewCommonRateLimiters(service Service, logger *slog.Logger) *CommonRateLimiters {
	return &CommonRateLimiters{
		service: service,
		logger:  logger,
	}
}

// UploadLimiter creates middleware for content upload endpoints
func (c *CommonRateLimiters) UploadLimiter() func(http.Handler) http.Handler {
	return Middleware(c.service, c.logger, Options{
		LimitType: "upload",
	})
}

// CommandLimiter creates middleware for display command endpoints. These
// translate directly into panel operations, so the limit is strict.
func (c *CommonRateLimiters) CommandLimiter() func(http.Handler) http.Handler {
	return Middleware(c.service, c.logger, Options{
		LimitType: "command",
	})
}

// APIRequestLimiter creates middleware for general API endpoints
func (c *CommonRateLimiters) APIRequestLimiter() func(http.Handler) http.Handler {
	return Middleware(c.service, c.logger, Options{
		LimitType: "api_request",
		SkipLimitCheck: func(r *http.Request) bool {
			// Skip health checks and monitoring endpoints
			return strings.HasPrefix(r.URL.Path, "/healthz") ||
				strings.HasPrefix(r.URL.Path, "/readyz")
		},
	})
}

// WebSocketLimiter creates middleware for WebSocket connections
func (c *CommonRateLimiters) WebSocketLimiter() func(http.Handler) http.Handler {
	return Middleware(c.service, c.logger, Options{
		LimitType: "ws_connection",
	})
}
